package review

import (
	"fmt"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Renumber numbers the unaligned sentences of each version from zero: paragraphs in order of
// appearance, sentences from zero within each paragraph. ids must be sorted.
func Renumber(key models.PairKey, ids []models.SentenceID) models.Renumbering {
	ren := models.Renumbering{Key: key, Entries: make([]models.RenumberEntry, 0, len(ids))}
	type cursor struct {
		origParagraph int
		paragraph     int
		sentence      int
		started       bool
	}
	cursors := map[int]*cursor{}
	for _, id := range ids {
		c, ok := cursors[id.Version]
		if !ok {
			c = &cursor{}
			cursors[id.Version] = c
		}
		switch {
		case !c.started:
			c.started = true
			c.origParagraph = id.Paragraph
		case id.Paragraph != c.origParagraph:
			c.origParagraph = id.Paragraph
			c.paragraph++
			c.sentence = 0
		}
		ren.Entries = append(ren.Entries, models.RenumberEntry{
			Version:   id.Version,
			Paragraph: c.paragraph,
			Sentence:  c.sentence,
			ID:        id,
		})
		c.sentence++
	}
	return ren
}

// Label renders the review-table index of a renumbered sentence.
func Label(e models.RenumberEntry) string {
	return fmt.Sprintf("%d-%d", e.Paragraph, e.Sentence)
}

// Resolver maps review-table indices back to sentence ids.
type Resolver struct {
	key   models.PairKey
	index map[int]map[string]models.SentenceID
}

// NewResolver indexes ren.
func NewResolver(ren models.Renumbering) *Resolver {
	r := &Resolver{key: ren.Key, index: make(map[int]map[string]models.SentenceID)}
	for _, e := range ren.Entries {
		m, ok := r.index[e.Version]
		if !ok {
			m = make(map[string]models.SentenceID)
			r.index[e.Version] = m
		}
		m[Label(e)] = e.ID
	}
	return r
}

// Resolve returns the id for label in version.
func (r *Resolver) Resolve(version int, label string) (models.SentenceID, bool) {
	id, ok := r.index[version][label]
	return id, ok
}
