// Package e2e provides end-to-end tests over a synthetic corpus of revised papers.
package e2e

import (
	"fmt"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Edit is the kind of revision applied to version 1 of a corpus paper.
type Edit int

const (
	// EditNone leaves the paper unchanged.
	EditNone Edit = iota
	// EditAppend adds one new sentence at the end of the last paragraph.
	EditAppend
	// EditDelete removes the second sentence of the first paragraph.
	EditDelete
	// EditReplace swaps one sentence for unrelated text.
	EditReplace
	// EditReorder swaps the last two paragraphs.
	EditReorder
	editKinds
)

func (e Edit) String() string {
	switch e {
	case EditNone:
		return "none"
	case EditAppend:
		return "append"
	case EditDelete:
		return "delete"
	case EditReplace:
		return "replace"
	case EditReorder:
		return "reorder"
	default:
		return fmt.Sprintf("edit(%d)", int(e))
	}
}

// Paper is one version pair of the corpus together with its expected outcome.
type Paper struct {
	Key  models.PairKey
	Edit Edit
	V1   *models.Document
	V2   *models.Document
	// Aligned lists (version1, version2) id pairs that must end up connected.
	Aligned [][2]models.SentenceID
	// Unaligned is the number of non-boring sentences left for review after the automatic passes.
	Unaligned int
}

// Corpus holds the papers used by the end-to-end tests.
type Corpus struct {
	Papers []Paper
}

// Documents returns both versions of every paper.
func (c *Corpus) Documents() []*models.Document {
	out := make([]*models.Document, 0, 2*len(c.Papers))
	for _, p := range c.Papers {
		out = append(out, p.V1, p.V2)
	}
	return out
}

// ByKey returns the paper for key.
func (c *Corpus) ByKey(key models.PairKey) (Paper, bool) {
	for _, p := range c.Papers {
		if p.Key == key {
			return p, true
		}
	}
	return Paper{}, false
}

const (
	paragraphs          = 3
	sentencesPerPara    = 2
	wordsPerSentence    = 5
	appendedSentence    = "Additional experiments confirm these findings convincingly."
	replacementSentence = "Reviewers requested clearer figures throughout."
)

// vocabulary supplies disjoint word groups so no two corpus sentences pass the word-overlap matcher.
var vocabulary = []string{
	"entropy", "graphene", "lattice", "phonon", "anisotropy",
	"quasar", "redshift", "luminosity", "halo", "accretion",
	"gradient", "optimizer", "embedding", "dropout", "regularizer",
	"protein", "folding", "ligand", "kinase", "receptor",
	"manifold", "curvature", "geodesic", "tensor", "homology",
	"plasma", "tokamak", "confinement", "turbulence", "divertor",
}

func sentence(k int) string {
	w := vocabulary[k*wordsPerSentence : (k+1)*wordsPerSentence]
	return fmt.Sprintf("We measure %s %s of the %s %s %s.", w[0], w[1], w[2], w[3], w[4])
}

func baseParagraphs() [][]string {
	out := make([][]string, paragraphs)
	k := 0
	for p := range out {
		for s := 0; s < sentencesPerPara; s++ {
			out[p] = append(out[p], sentence(k))
			k++
		}
	}
	return out
}

func copyParagraphs(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, p := range in {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// BuildCorpus returns perKind papers of every Edit kind. The first paper uses an old-style
// identifier containing a slash.
func BuildCorpus(perKind int) *Corpus {
	c := &Corpus{}
	n := 0
	for i := 0; i < perKind; i++ {
		for e := Edit(0); e < editKinds; e++ {
			paper := fmt.Sprintf("2101.%05d", n+1)
			if n == 0 {
				paper = "hep-th/9901001"
			}
			c.Papers = append(c.Papers, buildPaper(paper, e))
			n++
		}
	}
	return c
}

func buildPaper(paper string, e Edit) Paper {
	key := models.PairKey{PaperID: paper, Version1: 1, Version2: 2}
	v1 := baseParagraphs()
	v2 := copyParagraphs(v1)

	id := func(version, para, sent int) models.SentenceID {
		return models.SentenceID{PaperID: paper, Version: version, Paragraph: para, Sentence: sent}
	}
	// same pairs every sentence whose position survives the edit.
	same := func(skip func(p, s int) bool) [][2]models.SentenceID {
		var out [][2]models.SentenceID
		for p := range v1 {
			for s := range v1[p] {
				if skip != nil && skip(p, s) {
					continue
				}
				out = append(out, [2]models.SentenceID{id(1, p, s), id(2, p, s)})
			}
		}
		return out
	}

	out := Paper{Key: key, Edit: e}
	switch e {
	case EditNone:
		out.Aligned = same(nil)
	case EditAppend:
		last := len(v2) - 1
		v2[last] = append(v2[last], appendedSentence)
		out.Aligned = same(nil)
		out.Unaligned = 1
	case EditDelete:
		v2[0] = v2[0][:1]
		out.Aligned = same(func(p, s int) bool { return p == 0 && s == 1 })
		out.Unaligned = 1
	case EditReplace:
		v2[1][0] = replacementSentence
		out.Aligned = same(func(p, s int) bool { return p == 1 && s == 0 })
		out.Unaligned = 2
	case EditReorder:
		v2[1], v2[2] = v2[2], v2[1]
		for p := range v1 {
			moved := p
			if p == 1 {
				moved = 2
			} else if p == 2 {
				moved = 1
			}
			for s := range v1[p] {
				out.Aligned = append(out.Aligned, [2]models.SentenceID{id(1, p, s), id(2, moved, s)})
			}
		}
	}
	out.V1 = &models.Document{PaperID: paper, Version: 1, Paragraphs: v1}
	out.V2 = &models.Document{PaperID: paper, Version: 2, Paragraphs: v2}
	return out
}
