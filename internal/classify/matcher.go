package classify

import (
	"strings"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/diff"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// MatchConfig holds the word-level acceptance thresholds.
type MatchConfig struct {
	MaxRemovedFraction float64
	MaxAddedFraction   float64
}

// DefaultMatchConfig accepts up to 20% removed and 40% added words.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{MaxRemovedFraction: 0.2, MaxAddedFraction: 0.4}
}

// Matcher is the pairwise test shared by the paragraph and cross-paragraph passes.
type Matcher struct {
	cfg MatchConfig
}

// NewMatcher returns a Matcher for cfg.
func NewMatcher(cfg MatchConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Fractions returns removed and added word counts of s1 -> s2, each divided by the word count of s1.
func Fractions(s1, s2 string) (removed, added float64) {
	w1, w2 := utils.Tokenize(s1), utils.Tokenize(s2)
	entries, _ := diff.LCSDiffer{}.Diff(w1, w2)
	var dels, ins int
	for _, e := range entries {
		switch e.Tag {
		case models.Delete:
			dels++
		case models.Insert:
			ins++
		}
	}
	return utils.Fraction(dels, len(w1)), utils.Fraction(ins, len(w1))
}

// Match reports whether s2 is an edited form of s1: few words removed and not too many added,
// or one normalized sentence contained in the other.
func (m *Matcher) Match(s1, s2 string) bool {
	n1 := strings.Join(utils.Tokenize(s1), " ")
	n2 := strings.Join(utils.Tokenize(s2), " ")
	if n1 == "" || n2 == "" {
		return false
	}
	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		return true
	}
	removed, added := Fractions(s1, s2)
	return removed <= m.cfg.MaxRemovedFraction && added <= m.cfg.MaxAddedFraction
}
