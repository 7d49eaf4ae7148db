package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for failure classes. Typed errors below unwrap to these.
var (
	// ErrOrdering indicates version1 >= version2.
	ErrOrdering = errors.New("version ordering")
	// ErrMissingInput indicates absent sentence data for a version.
	ErrMissingInput = errors.New("missing input")
	// ErrInvariant indicates corrupted upstream state.
	ErrInvariant = errors.New("invariant violation")
	// ErrUnknownLabel indicates a review row with an aligning_method outside {1,2,3}.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrSnapshotNotFound indicates no persisted snapshot for a key or revision.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrChecksum indicates a snapshot blob that does not match its stored checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

// OrderingError is returned before any work starts when version1 is not smaller than version2.
type OrderingError struct {
	PaperID  string
	Version1 int
	Version2 int
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("paper %s: version1 (%d) must be smaller than version2 (%d)", e.PaperID, e.Version1, e.Version2)
}

func (e *OrderingError) Unwrap() error { return ErrOrdering }

// MissingInputError reports a version without sentence data.
type MissingInputError struct {
	PaperID string
	Version int
	Err     error
}

func (e *MissingInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no sentences for paper %s v%d: %v", e.PaperID, e.Version, e.Err)
	}
	return fmt.Sprintf("no sentences for paper %s v%d", e.PaperID, e.Version)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// InvariantViolation reports identifier or cardinality inconsistencies found while merging.
type InvariantViolation struct {
	Op     string
	Detail string
	Err    error
}

func (e *InvariantViolation) Error() string {
	msg := fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match both ErrInvariant and the wrapped cause.
func (e *InvariantViolation) Is(target error) bool { return target == ErrInvariant }

func (e *InvariantViolation) Unwrap() error { return e.Err }

// UnknownLabelError reports the offending review row.
type UnknownLabelError struct {
	Row    int
	PairID string
	Label  string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("row %d (pair %s): unknown aligning_method %q", e.Row, e.PairID, e.Label)
}

func (e *UnknownLabelError) Unwrap() error { return ErrUnknownLabel }

// ErrorClass returns a short label for metrics and logs.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrOrdering):
		return "ordering"
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	case errors.Is(err, ErrUnknownLabel):
		return "unknown_label"
	case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, ErrChecksum):
		return "snapshot"
	default:
		return "other"
	}
}
