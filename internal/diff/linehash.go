package diff

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

const (
	surrogateLo = 0xD800
	surrogateHi = 0xDFFF
	// maxSymbols is the number of runes available once the surrogate block is skipped.
	maxSymbols = 0x10FFFF - (surrogateHi - surrogateLo + 1)
)

// LineHashDiffer maps each distinct sentence to one rune and diffs the resulting strings with
// diff-match-patch. It scales to long documents where the LCS table would not fit.
type LineHashDiffer struct{}

// Diff implements Differ.
func (LineHashDiffer) Diff(a, b []string) ([]models.DiffEntry, error) {
	symbols := make(map[string]rune)
	var table []string
	encode := func(lines []string) ([]rune, error) {
		out := make([]rune, len(lines))
		for i, l := range lines {
			r, ok := symbols[l]
			if !ok {
				if len(table) >= maxSymbols {
					return nil, fmt.Errorf("too many distinct sentences for line hashing: %d", len(table)+1)
				}
				r = symbolFor(len(table))
				symbols[l] = r
				table = append(table, l)
			}
			out[i] = r
		}
		return out, nil
	}
	ra, err := encode(a)
	if err != nil {
		return nil, err
	}
	rb, err := encode(b)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	// No deadline keeps the result deterministic and disables the half-match shortcut.
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(ra, rb, false)

	out := make([]models.DiffEntry, 0, len(a)+len(b))
	var dels, ins []models.DiffEntry
	flush := func() {
		out = append(out, dels...)
		out = append(out, ins...)
		dels, ins = dels[:0], ins[:0]
	}
	for _, d := range diffs {
		for _, r := range d.Text {
			text := table[indexFor(r)]
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				flush()
				out = append(out, models.DiffEntry{Tag: models.Keep, Text: text})
			case diffmatchpatch.DiffDelete:
				dels = append(dels, models.DiffEntry{Tag: models.Delete, Text: text})
			case diffmatchpatch.DiffInsert:
				ins = append(ins, models.DiffEntry{Tag: models.Insert, Text: text})
			}
		}
	}
	flush()
	return out, nil
}

func symbolFor(i int) rune {
	r := rune(i + 1)
	if r >= surrogateLo {
		r += surrogateHi - surrogateLo + 1
	}
	return r
}

func indexFor(r rune) int {
	if r > surrogateHi {
		r -= surrogateHi - surrogateLo + 1
	}
	return int(r) - 1
}
