// Package models defines core data structures for paper versions, diffs, sentence records and review tables.
package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SentenceID locates one sentence inside a paper version's paragraph/sentence structure.
// It is a comparable value and can be used as a map key.
type SentenceID struct {
	PaperID   string `json:"paper_id"`
	Version   int    `json:"version"`
	Paragraph int    `json:"paragraph"`
	Sentence  int    `json:"sentence"`
}

// Less orders ids by (version, paragraph, sentence). Paper id breaks remaining ties so the order is total.
func (id SentenceID) Less(other SentenceID) bool {
	if id.Version != other.Version {
		return id.Version < other.Version
	}
	if id.Paragraph != other.Paragraph {
		return id.Paragraph < other.Paragraph
	}
	if id.Sentence != other.Sentence {
		return id.Sentence < other.Sentence
	}
	return id.PaperID < other.PaperID
}

// String renders the id as paper/v<version>/<paragraph>/<sentence>.
func (id SentenceID) String() string {
	return fmt.Sprintf("%s/v%d/%d/%d", id.PaperID, id.Version, id.Paragraph, id.Sentence)
}

// ParseSentenceID parses the String form. Paper ids may themselves contain slashes (old-style arXiv ids).
func ParseSentenceID(s string) (SentenceID, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 4 {
		return SentenceID{}, fmt.Errorf("invalid sentence id %q", s)
	}
	n := len(parts)
	verPart := parts[n-3]
	if !strings.HasPrefix(verPart, "v") {
		return SentenceID{}, fmt.Errorf("invalid sentence id %q: missing version", s)
	}
	version, err := strconv.Atoi(verPart[1:])
	if err != nil {
		return SentenceID{}, fmt.Errorf("invalid sentence id %q: %w", s, err)
	}
	para, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return SentenceID{}, fmt.Errorf("invalid sentence id %q: %w", s, err)
	}
	sent, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return SentenceID{}, fmt.Errorf("invalid sentence id %q: %w", s, err)
	}
	return SentenceID{
		PaperID:   strings.Join(parts[:n-3], "/"),
		Version:   version,
		Paragraph: para,
		Sentence:  sent,
	}, nil
}

// SortSentenceIDs sorts ids in place by (version, paragraph, sentence).
func SortSentenceIDs(ids []SentenceID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// PairKey identifies a version pair of one paper. Version1 must be smaller than Version2.
type PairKey struct {
	PaperID  string `json:"paper_id"`
	Version1 int    `json:"version1"`
	Version2 int    `json:"version2"`
}

// Validate returns an OrderingError when the versions are not strictly increasing.
func (k PairKey) Validate() error {
	if k.Version1 >= k.Version2 {
		return &OrderingError{PaperID: k.PaperID, Version1: k.Version1, Version2: k.Version2}
	}
	return nil
}

func (k PairKey) String() string {
	return fmt.Sprintf("%s v%d-v%d", k.PaperID, k.Version1, k.Version2)
}
