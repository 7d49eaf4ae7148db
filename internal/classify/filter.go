// Package classify runs the heuristic passes that resolve DELETE and INSERT sentences left over
// by the identity pass.
package classify

import (
	"strings"

	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// FilterConfig tunes the boring-sentence filter.
type FilterConfig struct {
	MinTokens           int
	MaxPlaceholderRatio float64
	MinAlphaRatio       float64
	Placeholders        []string
	TitleMarkers        []string
	BlankMarkers        []string
}

// DefaultFilterConfig returns the thresholds used when none are configured.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinTokens:           3,
		MaxPlaceholderRatio: 0.5,
		MinAlphaRatio:       0.5,
		Placeholders:        []string{"[MATH]", "[CITATION]", "[REF]"},
		TitleMarkers:        []string{"[TITLE]", "[SECTION]", "###"},
		BlankMarkers:        []string{"[BLANK]"},
	}
}

// Filter decides which sentences are excluded from alignment.
type Filter struct {
	cfg FilterConfig
}

// NewFilter returns a Filter for cfg.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// IsBoring reports whether text is a title, a blank marker, or fails the quality checks.
func (f *Filter) IsBoring(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	for _, m := range f.cfg.BlankMarkers {
		if strings.EqualFold(text, m) {
			return true
		}
	}
	for _, m := range f.cfg.TitleMarkers {
		if strings.HasPrefix(text, m) {
			return true
		}
	}
	tokens := utils.Fields(text)
	if len(tokens) < f.cfg.MinTokens {
		return true
	}
	placeholders := 0
	for _, tok := range tokens {
		if f.isPlaceholder(tok) {
			placeholders++
		}
	}
	if utils.Fraction(placeholders, len(tokens)) > f.cfg.MaxPlaceholderRatio {
		return true
	}
	return utils.AlphaRatio(f.stripPlaceholders(text)) < f.cfg.MinAlphaRatio
}

func (f *Filter) isPlaceholder(tok string) bool {
	for _, p := range f.cfg.Placeholders {
		if strings.Contains(tok, p) {
			return true
		}
	}
	return false
}

func (f *Filter) stripPlaceholders(text string) string {
	for _, p := range f.cfg.Placeholders {
		text = strings.ReplaceAll(text, p, "")
	}
	return text
}
