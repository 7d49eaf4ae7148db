package models

import (
	"fmt"
	"sort"
)

// Status is the classification state of one sentence record.
type Status int

const (
	// Unknown is the initial state of every record.
	Unknown Status = iota
	// Solved marks a version-1 sentence (or a KEEP pair) that has a counterpart.
	Solved
	// Used marks a version-2 sentence that has been claimed by a version-1 sentence.
	Used
	// Boring marks a sentence excluded from alignment.
	Boring
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Solved:
		return "solved"
	case Used:
		return "used"
	case Boring:
		return "boring"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Resolved reports whether the status is SOLVED or USED.
func (s Status) Resolved() bool {
	return s == Solved || s == Used
}

// SentenceRecord is the classifier's view of one non-sentinel diff entry.
type SentenceRecord struct {
	// Index is the position of the entry in the flattened diff.
	Index int
	// Segment counts the paragraph separators seen before this entry in the diff.
	Segment int
	// IDs holds two ids (v1, v2) for KEEP entries and exactly one otherwise.
	IDs     []SentenceID
	Entry   DiffEntry
	Status  Status
	Aligned map[int]struct{}
}

// NewSentenceRecord returns a record in the Unknown state.
func NewSentenceRecord(index, segment int, entry DiffEntry, ids ...SentenceID) *SentenceRecord {
	return &SentenceRecord{
		Index:   index,
		Segment: segment,
		IDs:     ids,
		Entry:   entry,
		Status:  Unknown,
		Aligned: make(map[int]struct{}),
	}
}

// Transition moves the record forward. Only UNKNOWN may change state; re-applying the current
// state is a no-op. Anything else is an invariant violation.
func (r *SentenceRecord) Transition(to Status) error {
	if r.Status == to {
		return nil
	}
	if r.Status != Unknown || to == Unknown {
		return &InvariantViolation{
			Op:     "transition",
			Detail: fmt.Sprintf("record %d: %s -> %s", r.Index, r.Status, to),
		}
	}
	r.Status = to
	return nil
}

// AlignWith records idx in the aligned set.
func (r *SentenceRecord) AlignWith(idx int) {
	r.Aligned[idx] = struct{}{}
}

// AlignedIndices returns the aligned set in ascending order.
func (r *SentenceRecord) AlignedIndices() []int {
	out := make([]int, 0, len(r.Aligned))
	for i := range r.Aligned {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Validate checks id cardinality against the entry tag.
func (r *SentenceRecord) Validate() error {
	want := 1
	if r.Entry.Tag == Keep {
		want = 2
	}
	if len(r.IDs) != want {
		return &InvariantViolation{
			Op:     "cardinality",
			Detail: fmt.Sprintf("record %d (%s) carries %d ids, want %d", r.Index, r.Entry.Tag, len(r.IDs), want),
		}
	}
	return nil
}
