// Package alignment holds the bipartite sentence graph between two versions of a paper
// and the identity pass that seeds it from an exact diff.
package alignment

import (
	"fmt"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

type idSet map[models.SentenceID]struct{}

// Alignment maps sentences of version1 to sentences of version2 and back.
// Every edge is stored in both directions; Connect is the only way to add one.
// Not safe for concurrent mutation.
type Alignment struct {
	Key      models.PairKey
	forward  map[models.SentenceID]idSet
	backward map[models.SentenceID]idSet
	lookup   map[models.SentenceID]string
}

// Edge is one aligned pair, From in version1 and To in version2.
type Edge struct {
	From models.SentenceID `json:"from"`
	To   models.SentenceID `json:"to"`
}

// New returns an empty alignment. It fails with an OrderingError unless version1 < version2.
func New(key models.PairKey) (*Alignment, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return &Alignment{
		Key:      key,
		forward:  make(map[models.SentenceID]idSet),
		backward: make(map[models.SentenceID]idSet),
		lookup:   make(map[models.SentenceID]string),
	}, nil
}

// AddSentence registers id with its text. Registering an existing id replaces the text only.
func (a *Alignment) AddSentence(id models.SentenceID, text string) error {
	if id.PaperID != a.Key.PaperID {
		return fmt.Errorf("sentence %s does not belong to paper %s", id, a.Key.PaperID)
	}
	var side map[models.SentenceID]idSet
	switch id.Version {
	case a.Key.Version1:
		side = a.forward
	case a.Key.Version2:
		side = a.backward
	default:
		return fmt.Errorf("sentence %s is not in %s", id, a.Key)
	}
	if _, ok := side[id]; !ok {
		side[id] = make(idSet)
	}
	a.lookup[id] = text
	return nil
}

// Connect adds the edge from (version1) - to (version2) in both directions.
// Both ids must already be registered. Adding an existing edge is a no-op.
func (a *Alignment) Connect(from, to models.SentenceID) error {
	fwd, ok := a.forward[from]
	if !ok {
		return &models.InvariantViolation{Op: "connect", Detail: fmt.Sprintf("unknown version-%d sentence %s", a.Key.Version1, from)}
	}
	bwd, ok := a.backward[to]
	if !ok {
		return &models.InvariantViolation{Op: "connect", Detail: fmt.Sprintf("unknown version-%d sentence %s", a.Key.Version2, to)}
	}
	fwd[to] = struct{}{}
	bwd[from] = struct{}{}
	return nil
}

// Has reports whether id is registered on either side.
func (a *Alignment) Has(id models.SentenceID) bool {
	_, ok := a.lookup[id]
	return ok
}

// Text returns the sentence text for id.
func (a *Alignment) Text(id models.SentenceID) (string, bool) {
	t, ok := a.lookup[id]
	return t, ok
}

// Neighbors returns the ids aligned with id, sorted. An unaligned or unknown id yields an empty slice.
func (a *Alignment) Neighbors(id models.SentenceID) []models.SentenceID {
	set, ok := a.forward[id]
	if !ok {
		set = a.backward[id]
	}
	out := make([]models.SentenceID, 0, len(set))
	for other := range set {
		out = append(out, other)
	}
	models.SortSentenceIDs(out)
	return out
}

// IsAligned reports whether id has at least one edge.
func (a *Alignment) IsAligned(id models.SentenceID) bool {
	if set, ok := a.forward[id]; ok {
		return len(set) > 0
	}
	return len(a.backward[id]) > 0
}

// Sentences returns every registered id of one version, sorted.
func (a *Alignment) Sentences(version int) []models.SentenceID {
	var side map[models.SentenceID]idSet
	switch version {
	case a.Key.Version1:
		side = a.forward
	case a.Key.Version2:
		side = a.backward
	}
	out := make([]models.SentenceID, 0, len(side))
	for id := range side {
		out = append(out, id)
	}
	models.SortSentenceIDs(out)
	return out
}

// Edges returns all edges ordered by (From, To).
func (a *Alignment) Edges() []Edge {
	var out []Edge
	for _, from := range a.Sentences(a.Key.Version1) {
		for _, to := range a.Neighbors(from) {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// EdgeCount returns the number of edges.
func (a *Alignment) EdgeCount() int {
	n := 0
	for _, set := range a.forward {
		n += len(set)
	}
	return n
}

// CheckSymmetry verifies that every forward edge has its backward twin and vice versa.
func (a *Alignment) CheckSymmetry() error {
	for from, set := range a.forward {
		for to := range set {
			if _, ok := a.backward[to][from]; !ok {
				return &models.InvariantViolation{Op: "symmetry", Detail: fmt.Sprintf("%s -> %s has no backward edge", from, to)}
			}
		}
	}
	for to, set := range a.backward {
		for from := range set {
			if _, ok := a.forward[from][to]; !ok {
				return &models.InvariantViolation{Op: "symmetry", Detail: fmt.Sprintf("%s <- %s has no forward edge", to, from)}
			}
		}
	}
	return nil
}

// Equal reports whether both alignments hold the same key, sentences, texts and edges.
func (a *Alignment) Equal(b *Alignment) bool {
	if a.Key != b.Key || len(a.lookup) != len(b.lookup) || a.EdgeCount() != b.EdgeCount() {
		return false
	}
	for id, text := range a.lookup {
		if other, ok := b.lookup[id]; !ok || other != text {
			return false
		}
	}
	for from, set := range a.forward {
		for to := range set {
			if _, ok := b.forward[from][to]; !ok {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (a *Alignment) Clone() *Alignment {
	c, _ := New(a.Key)
	for id, text := range a.lookup {
		_ = c.AddSentence(id, text)
	}
	for from, set := range a.forward {
		for to := range set {
			_ = c.Connect(from, to)
		}
	}
	return c
}
