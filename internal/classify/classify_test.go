package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/diff"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/dpalign"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/similarity"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/termfreq"
)

func TestFilterIsBoring(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	tests := []struct {
		text string
		want bool
	}{
		{"The cat sat.", false},
		{"We propose a new method for alignment.", false},
		{"", true},
		{"   ", true},
		{"[BLANK]", true},
		{"[TITLE] Introduction", true},
		{"### Related work", true},
		{"See above.", true},
		{"[MATH] = [MATH] + [MATH] holds", true},
		{"as shown in [CITATION] and [REF] too", false},
		{"12 34 56 78 90 = x", true},
		{"where [MATH] is the loss function", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsBoring(tt.text))
		})
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(DefaultMatchConfig())
	tests := []struct {
		name   string
		s1, s2 string
		want   bool
	}{
		{"one added word", "The cat sat.", "The small cat sat.", true},
		{"identical up to case and punctuation", "The cat sat.", "the cat sat", true},
		{"substring", "We use a model.", "In this paper we use a model trained on arXiv.", true},
		{"too many removed", "We train a large model on data.", "We train on data.", false},
		{"unrelated", "The cat sat on the mat.", "Results are shown in the table.", false},
		{"empty", "", "The cat sat.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.s1, tt.s2))
		})
	}

	removed, added := Fractions("The cat sat.", "The small cat sat.")
	assert.Equal(t, 0.0, removed)
	assert.InDelta(t, 1.0/3.0, added, 1e-9)
}

func run(t *testing.T, v1, v2 models.Document) []*models.SentenceRecord {
	t.Helper()
	entries, err := diff.LCSDiffer{}.Diff(v1.Flatten(), v2.Flatten())
	require.NoError(t, err)
	_, records, err := alignment.Identity(models.PairKey{PaperID: "p", Version1: 1, Version2: 2}, entries)
	require.NoError(t, err)

	matcher := NewMatcher(DefaultMatchConfig())
	_, err = NewParagraphClassifier(NewFilter(DefaultFilterConfig()), matcher).Run(records)
	require.NoError(t, err)
	_, err = NewCrossParagraphMatcher(matcher).Run(records)
	require.NoError(t, err)
	return records
}

func TestParagraphClassifierIdenticalDocuments(t *testing.T) {
	doc := models.Document{Paragraphs: [][]string{{"The cat sat.", "It was happy."}, {"The end came."}}}
	records := run(t, doc, doc)
	for _, r := range records {
		assert.Equal(t, models.Solved, r.Status)
		assert.Equal(t, []int{r.Index}, r.AlignedIndices())
	}
}

func TestParagraphClassifierScenarioC(t *testing.T) {
	v1 := models.Document{Paragraphs: [][]string{{"The cat sat."}}}
	v2 := models.Document{Paragraphs: [][]string{{"The small cat sat."}}}
	records := run(t, v1, v2)

	require.Len(t, records, 2)
	del, ins := records[0], records[1]
	assert.Equal(t, models.Delete, del.Entry.Tag)
	assert.Equal(t, models.Solved, del.Status)
	assert.Equal(t, models.Used, ins.Status)
	assert.Equal(t, []int{ins.Index}, del.AlignedIndices())
	assert.Equal(t, []int{del.Index}, ins.AlignedIndices())
}

func TestParagraphClassifierManyToMany(t *testing.T) {
	v1 := models.Document{Paragraphs: [][]string{{"We study sentence alignment.", "We evaluate the sentence alignment."}}}
	v2 := models.Document{Paragraphs: [][]string{{"Here we study sentence alignment and we evaluate the sentence alignment."}}}
	records := run(t, v1, v2)

	require.Len(t, records, 3)
	assert.Equal(t, models.Solved, records[0].Status)
	assert.Equal(t, models.Solved, records[1].Status)
	assert.Equal(t, models.Used, records[2].Status)
	assert.Equal(t, []int{0, 1}, records[2].AlignedIndices())
}

func TestParagraphClassifierBoring(t *testing.T) {
	v1 := models.Document{Paragraphs: [][]string{{"[TITLE] Intro", "The cat sat."}}}
	v2 := models.Document{Paragraphs: [][]string{{"[TITLE] Introduction", "The cat sat."}}}
	records := run(t, v1, v2)

	statuses := map[string]models.Status{}
	for _, r := range records {
		statuses[r.Entry.Text] = r.Status
	}
	assert.Equal(t, models.Boring, statuses["[TITLE] Intro"])
	assert.Equal(t, models.Boring, statuses["[TITLE] Introduction"])
	assert.Equal(t, models.Solved, statuses["The cat sat."])
}

func TestCrossParagraphMatcher(t *testing.T) {
	del := func(i, seg int, text string) *models.SentenceRecord {
		return models.NewSentenceRecord(i, seg, models.DiffEntry{Tag: models.Delete, Text: text},
			models.SentenceID{PaperID: "p", Version: 1, Sentence: i})
	}
	ins := func(i, seg int, text string) *models.SentenceRecord {
		return models.NewSentenceRecord(i, seg, models.DiffEntry{Tag: models.Insert, Text: text},
			models.SentenceID{PaperID: "p", Version: 2, Sentence: i})
	}
	records := []*models.SentenceRecord{
		del(0, 0, "We study the alignment of sentences."),
		ins(1, 0, "Completely new material appears here."),
		ins(3, 1, "We study the alignment of sentences carefully."),
	}
	matcher := NewMatcher(DefaultMatchConfig())
	st, err := NewParagraphClassifier(NewFilter(DefaultFilterConfig()), matcher).Run(records)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Pairs)

	st, err = NewCrossParagraphMatcher(matcher).Run(records)
	require.NoError(t, err)
	assert.Equal(t, Stats{Solved: 1, Used: 1, Pairs: 1}, st)
	assert.Equal(t, models.Solved, records[0].Status)
	assert.Equal(t, models.Unknown, records[1].Status)
	assert.Equal(t, models.Used, records[2].Status)
	assert.Equal(t, []int{3}, records[0].AlignedIndices())
}

func TestDPPass(t *testing.T) {
	records := []*models.SentenceRecord{
		models.NewSentenceRecord(0, 0, models.DiffEntry{Tag: models.Delete, Text: "alpha beta gamma delta epsilon zeta"},
			models.SentenceID{PaperID: "p", Version: 1}),
		models.NewSentenceRecord(1, 0, models.DiffEntry{Tag: models.Insert, Text: "alpha beta gamma omega psi chi"},
			models.SentenceID{PaperID: "p", Version: 2}),
	}
	matcher := NewMatcher(DefaultMatchConfig())
	_, err := NewParagraphClassifier(NewFilter(DefaultFilterConfig()), matcher).Run(records)
	require.NoError(t, err)
	require.Equal(t, models.Unknown, records[0].Status, "word-level test rejects this pair")

	scorer, err := similarity.NewScorer(termfreq.NewMemoryIndex(10, nil))
	require.NoError(t, err)
	pass := NewDPPass(dpalign.New(scorer.Similarity, 0.1), 0.3)
	st, err := pass.Run(records)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pairs)
	assert.Equal(t, models.Solved, records[0].Status)
	assert.Equal(t, models.Used, records[1].Status)

	strict := NewDPPass(dpalign.New(scorer.Similarity, 0.1), 0.9)
	fresh := []*models.SentenceRecord{
		models.NewSentenceRecord(0, 0, records[0].Entry, records[0].IDs...),
		models.NewSentenceRecord(1, 0, records[1].Entry, records[1].IDs...),
	}
	st, err = strict.Run(fresh)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Pairs)
}
