package diff

import (
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// LCSDiffer computes a minimal edit script from a longest-common-subsequence table.
// At a mismatch it emits deletions before insertions, so replaced blocks read DELETE...INSERT.
type LCSDiffer struct{}

// Diff implements Differ.
func (LCSDiffer) Diff(a, b []string) ([]models.DiffEntry, error) {
	return EditScript(a, b, func(x, y string) bool { return x == y }), nil
}

// EditScript is the generic form of LCSDiffer.Diff with a caller-supplied equality.
func EditScript(a, b []string, eq func(x, y string) bool) []models.DiffEntry {
	n, m := len(a), len(b)
	// suffix[i*(m+1)+j] = LCS length of a[i:] and b[j:]
	w := m + 1
	suffix := make([]int32, (n+1)*w)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if eq(a[i], b[j]) {
				suffix[i*w+j] = suffix[(i+1)*w+j+1] + 1
			} else if down, right := suffix[(i+1)*w+j], suffix[i*w+j+1]; down >= right {
				suffix[i*w+j] = down
			} else {
				suffix[i*w+j] = right
			}
		}
	}

	out := make([]models.DiffEntry, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case eq(a[i], b[j]):
			out = append(out, models.DiffEntry{Tag: models.Keep, Text: a[i]})
			i++
			j++
		case suffix[(i+1)*w+j] >= suffix[i*w+j+1]:
			out = append(out, models.DiffEntry{Tag: models.Delete, Text: a[i]})
			i++
		default:
			out = append(out, models.DiffEntry{Tag: models.Insert, Text: b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, models.DiffEntry{Tag: models.Delete, Text: a[i]})
	}
	for ; j < m; j++ {
		out = append(out, models.DiffEntry{Tag: models.Insert, Text: b[j]})
	}
	return out
}
