package diff

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

var roundTripCases = []struct {
	name string
	a, b []string
}{
	{"both empty", nil, nil},
	{"left empty", nil, []string{"a", "b"}},
	{"right empty", []string{"a", "b"}, nil},
	{"identical", []string{"a", "", "b", "c"}, []string{"a", "", "b", "c"}},
	{"appended", []string{"a", "b"}, []string{"a", "b", "c"}},
	{"replaced", []string{"a", "b", "c"}, []string{"a", "x", "c"}},
	{"swapped", []string{"x", "y"}, []string{"y", "x"}},
	{"paragraph split", []string{"a", "b", "c"}, []string{"a", "", "b", "c"}},
	{"repeats", []string{"a", "a", "b", "a"}, []string{"a", "b", "a", "a"}},
}

func differs() map[string]Differ {
	return map[string]Differ{
		"lcs":      LCSDiffer{},
		"linehash": LineHashDiffer{},
		"auto":     New(StrategyAuto, 4),
	}
}

func TestDiffRoundTrip(t *testing.T) {
	for name, d := range differs() {
		for _, tc := range roundTripCases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				entries, err := d.Diff(tc.a, tc.b)
				require.NoError(t, err)
				assert.Equal(t, nonNil(tc.a), models.Version1(entries))
				assert.Equal(t, nonNil(tc.b), models.Version2(entries))
			})
		}
	}
}

func TestDiffMinimal(t *testing.T) {
	for name, d := range differs() {
		t.Run(name, func(t *testing.T) {
			entries, err := d.Diff([]string{"a", "b", "c"}, []string{"a", "x", "c"})
			require.NoError(t, err)
			want := []models.DiffEntry{
				{Tag: models.Keep, Text: "a"},
				{Tag: models.Delete, Text: "b"},
				{Tag: models.Insert, Text: "x"},
				{Tag: models.Keep, Text: "c"},
			}
			assert.Equal(t, want, entries)
		})
	}
}

func TestLCSDifferDeletesBeforeInserts(t *testing.T) {
	entries, err := LCSDiffer{}.Diff([]string{"x", "y"}, []string{"y", "x"})
	require.NoError(t, err)
	want := []models.DiffEntry{
		{Tag: models.Delete, Text: "x"},
		{Tag: models.Keep, Text: "y"},
		{Tag: models.Insert, Text: "x"},
	}
	assert.Equal(t, want, entries)
}

func TestDiffDeterministic(t *testing.T) {
	a := make([]string, 0, 200)
	b := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		a = append(a, fmt.Sprintf("sentence %d", i%37))
		if i%5 != 0 {
			b = append(b, fmt.Sprintf("sentence %d", i%41))
		}
	}
	for name, d := range differs() {
		t.Run(name, func(t *testing.T) {
			first, err := d.Diff(a, b)
			require.NoError(t, err)
			second, err := d.Diff(a, b)
			require.NoError(t, err)
			assert.Equal(t, first, second)
			assert.Equal(t, a, models.Version1(first))
			assert.Equal(t, b, models.Version2(first))
		})
	}
}

func TestSymbolMappingSkipsSurrogates(t *testing.T) {
	for _, i := range []int{0, surrogateLo - 2, surrogateLo - 1, surrogateLo, maxSymbols - 1} {
		r := symbolFor(i)
		assert.False(t, r >= surrogateLo && r <= surrogateHi, "index %d mapped into surrogate block", i)
		assert.Equal(t, i, indexFor(r))
	}
}

func TestCache(t *testing.T) {
	c := NewCache(LCSDiffer{})
	a, b := []string{"a", "b"}, []string{"a", "c"}

	first, err := c.Diff(a, b)
	require.NoError(t, err)
	second, err := c.Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.Len())
	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	// Length prefixes keep differently split inputs apart.
	_, err = c.Diff([]string{"ab"}, nil)
	require.NoError(t, err)
	_, err = c.Diff([]string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	hits, misses = c.Stats()
	assert.Zero(t, hits+misses)
}

func TestUnified(t *testing.T) {
	entries, err := LCSDiffer{}.Diff([]string{"a", "b", "c", "d", "e"}, []string{"a", "x", "c", "d", "e"})
	require.NoError(t, err)

	out, err := Unified("v1", "v2", entries, 1)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "--- v1")
	assert.Contains(t, s, "+++ v2")
	assert.Contains(t, s, " a\n-b\n+x\n c\n")
	assert.NotContains(t, s, " e\n")

	out, err = Unified("v1", "v2", []models.DiffEntry{{Tag: models.Keep, Text: "a"}}, 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHunkRangesMerge(t *testing.T) {
	entries := []models.DiffEntry{
		{Tag: models.Delete, Text: "a"},
		{Tag: models.Keep, Text: "b"},
		{Tag: models.Insert, Text: "c"},
		{Tag: models.Keep, Text: "d"},
		{Tag: models.Keep, Text: "e"},
		{Tag: models.Keep, Text: "f"},
		{Tag: models.Delete, Text: "g"},
	}
	assert.Equal(t, [][2]int{{0, 4}, {5, 7}}, hunkRanges(entries, 1))
	assert.Equal(t, [][2]int{{0, 1}, {2, 3}, {6, 7}}, hunkRanges(entries, 0))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
