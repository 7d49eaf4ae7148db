// Package diff computes sentence-level edit scripts between two versions of a document.
package diff

import (
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// Differ produces an edit script such that KEEP+DELETE entries rebuild a and KEEP+INSERT entries rebuild b.
type Differ interface {
	Diff(a, b []string) ([]models.DiffEntry, error)
}

// Strategy names a Differ implementation.
type Strategy string

const (
	// StrategyLCS is the quadratic table-backed diff.
	StrategyLCS Strategy = "lcs"
	// StrategyLineHash maps sentences to symbols and runs a string diff over them.
	StrategyLineHash Strategy = "linehash"
	// StrategyAuto picks LCS for small inputs and line hashing above a size threshold.
	StrategyAuto Strategy = "auto"
)

// DefaultLineHashThreshold is the n*m product above which the auto strategy switches to line hashing.
const DefaultLineHashThreshold = 250_000

// New returns the Differ for strategy. threshold is only used by StrategyAuto; values <= 0 use the default.
func New(strategy Strategy, threshold int) Differ {
	switch strategy {
	case StrategyLCS:
		return LCSDiffer{}
	case StrategyLineHash:
		return LineHashDiffer{}
	default:
		if threshold <= 0 {
			threshold = DefaultLineHashThreshold
		}
		return &autoDiffer{threshold: threshold}
	}
}

type autoDiffer struct {
	threshold int
}

func (d *autoDiffer) Diff(a, b []string) ([]models.DiffEntry, error) {
	if len(a)*len(b) > d.threshold {
		return LineHashDiffer{}.Diff(a, b)
	}
	return LCSDiffer{}.Diff(a, b)
}
