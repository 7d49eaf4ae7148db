package diff

import (
	"bytes"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Unified renders entries as a unified diff with context lines around each change.
// Paragraph sentinels appear as blank lines.
func Unified(origName, newName string, entries []models.DiffEntry, context int) ([]byte, error) {
	if context < 0 {
		context = 0
	}
	fd := &godiff.FileDiff{OrigName: origName, NewName: newName}
	for _, r := range hunkRanges(entries, context) {
		fd.Hunks = append(fd.Hunks, buildHunk(entries, r[0], r[1]))
	}
	if len(fd.Hunks) == 0 {
		return nil, nil
	}
	return godiff.PrintFileDiff(fd)
}

// hunkRanges returns half-open entry ranges covering each change plus context, merged when they touch.
func hunkRanges(entries []models.DiffEntry, context int) [][2]int {
	var ranges [][2]int
	for i, e := range entries {
		if e.Tag == models.Keep {
			continue
		}
		lo, hi := max(0, i-context), min(len(entries), i+context+1)
		if n := len(ranges); n > 0 && lo <= ranges[n-1][1] {
			ranges[n-1][1] = max(ranges[n-1][1], hi)
			continue
		}
		ranges = append(ranges, [2]int{lo, hi})
	}
	return ranges
}

func buildHunk(entries []models.DiffEntry, lo, hi int) *godiff.Hunk {
	var origBefore, newBefore int32
	for _, e := range entries[:lo] {
		if e.Tag != models.Insert {
			origBefore++
		}
		if e.Tag != models.Delete {
			newBefore++
		}
	}
	h := &godiff.Hunk{}
	var body bytes.Buffer
	for _, e := range entries[lo:hi] {
		switch e.Tag {
		case models.Keep:
			body.WriteByte(' ')
			h.OrigLines++
			h.NewLines++
		case models.Delete:
			body.WriteByte('-')
			h.OrigLines++
		case models.Insert:
			body.WriteByte('+')
			h.NewLines++
		}
		body.WriteString(e.Text)
		body.WriteByte('\n')
	}
	h.OrigStartLine = origBefore
	if h.OrigLines > 0 {
		h.OrigStartLine++
	}
	h.NewStartLine = newBefore
	if h.NewLines > 0 {
		h.NewStartLine++
	}
	h.Body = body.Bytes()
	return h
}
