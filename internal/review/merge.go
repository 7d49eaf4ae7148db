// Package review merges heuristic matches into an alignment and runs the manual-review round trip:
// unaligned listing, renumbered export, and import of relabeled rows.
package review

import (
	"fmt"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Merge inserts the matches recorded on DELETE records into a. KEEP targets resolve to their
// version-2 id. It returns the number of edges inserted.
// Any inconsistency is an InvariantViolation and leaves a partially merged; callers discard it.
func Merge(records []*models.SentenceRecord, a *alignment.Alignment) (int, error) {
	byIndex := make(map[int]*models.SentenceRecord, len(records))
	for _, r := range records {
		byIndex[r.Index] = r
	}
	merged := 0
	for _, r := range records {
		if r.Status.Resolved() && len(r.Aligned) == 0 {
			return merged, violation("record %d is %s with an empty aligned set", r.Index, r.Status)
		}
		if r.Entry.Tag != models.Delete || !r.Status.Resolved() {
			continue
		}
		if len(r.IDs) != 1 {
			return merged, violation("DELETE record %d carries %d ids", r.Index, len(r.IDs))
		}
		from := r.IDs[0]
		if !a.Has(from) {
			return merged, violation("sentence %s missing from alignment", from)
		}
		for _, idx := range r.AlignedIndices() {
			target, ok := byIndex[idx]
			if !ok {
				return merged, violation("record %d aligned with unknown record %d", r.Index, idx)
			}
			var to models.SentenceID
			switch {
			case target.Entry.Tag == models.Insert && len(target.IDs) == 1:
				to = target.IDs[0]
			case target.Entry.Tag == models.Keep && len(target.IDs) == 2:
				to = target.IDs[1]
			default:
				return merged, violation("record %d aligned with %s record %d carrying %d ids",
					r.Index, target.Entry.Tag, idx, len(target.IDs))
			}
			if !a.Has(to) {
				return merged, violation("sentence %s missing from alignment", to)
			}
			if err := a.Connect(from, to); err != nil {
				return merged, err
			}
			merged++
		}
	}
	return merged, nil
}

func violation(format string, args ...any) error {
	return &models.InvariantViolation{Op: "merge", Detail: fmt.Sprintf(format, args...)}
}

// BoringIDs collects the ids of every BORING record.
func BoringIDs(records []*models.SentenceRecord) map[models.SentenceID]struct{} {
	out := make(map[models.SentenceID]struct{})
	for _, r := range records {
		if r.Status != models.Boring {
			continue
		}
		for _, id := range r.IDs {
			out[id] = struct{}{}
		}
	}
	return out
}

// Unaligned returns every non-boring sentence of a without edges, sorted by (version, paragraph, sentence).
func Unaligned(a *alignment.Alignment, boring map[models.SentenceID]struct{}) []models.SentenceID {
	out := []models.SentenceID{}
	for _, v := range []int{a.Key.Version1, a.Key.Version2} {
		for _, id := range a.Sentences(v) {
			if _, skip := boring[id]; skip || a.IsAligned(id) {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}
