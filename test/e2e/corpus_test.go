package e2e

import (
	"testing"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/classify"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

func TestBuildCorpus_PapersPerKind(t *testing.T) {
	c := BuildCorpus(2)
	if len(c.Papers) != 2*int(editKinds) {
		t.Fatalf("expected %d papers, got %d", 2*int(editKinds), len(c.Papers))
	}
	seen := make(map[string]bool)
	counts := make(map[Edit]int)
	for _, p := range c.Papers {
		if seen[p.Key.PaperID] {
			t.Errorf("duplicate paper id %s", p.Key.PaperID)
		}
		seen[p.Key.PaperID] = true
		counts[p.Edit]++
		if err := p.Key.Validate(); err != nil {
			t.Errorf("%s: %v", p.Key, err)
		}
	}
	for e := Edit(0); e < editKinds; e++ {
		if counts[e] != 2 {
			t.Errorf("edit %s: %d papers, want 2", e, counts[e])
		}
	}
	if c.Papers[0].Key.PaperID != "hep-th/9901001" {
		t.Errorf("first paper id = %s", c.Papers[0].Key.PaperID)
	}
	if len(c.Documents()) != 2*len(c.Papers) {
		t.Errorf("Documents() = %d, want %d", len(c.Documents()), 2*len(c.Papers))
	}
}

func text(doc *models.Document, id models.SentenceID) (string, bool) {
	if id.Paragraph >= len(doc.Paragraphs) || id.Sentence >= len(doc.Paragraphs[id.Paragraph]) {
		return "", false
	}
	return doc.Paragraphs[id.Paragraph][id.Sentence], true
}

func TestBuildCorpus_ExpectedPairsShareText(t *testing.T) {
	for _, p := range BuildCorpus(1).Papers {
		for _, pair := range p.Aligned {
			t1, ok1 := text(p.V1, pair[0])
			t2, ok2 := text(p.V2, pair[1])
			if !ok1 || !ok2 {
				t.Errorf("%s: pair %v points outside the documents", p.Edit, pair)
				continue
			}
			if t1 != t2 {
				t.Errorf("%s: %q != %q", p.Edit, t1, t2)
			}
		}
	}
}

func TestBuildCorpus_SentencesAreDistinct(t *testing.T) {
	m := classify.NewMatcher(classify.DefaultMatchConfig())
	f := classify.NewFilter(classify.DefaultFilterConfig())
	var all []string
	for _, para := range baseParagraphs() {
		all = append(all, para...)
	}
	all = append(all, appendedSentence, replacementSentence)
	for i, a := range all {
		if f.IsBoring(a) {
			t.Errorf("%q should not be boring", a)
		}
		for j, b := range all {
			if i != j && m.Match(a, b) {
				t.Errorf("%q and %q should not match", a, b)
			}
		}
	}
}
