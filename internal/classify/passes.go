package classify

import (
	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/dpalign"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// Stats counts the transitions one pass made.
type Stats struct {
	Solved int `json:"solved"`
	Used   int `json:"used"`
	Boring int `json:"boring"`
	Pairs  int `json:"pairs"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Solved += other.Solved
	s.Used += other.Used
	s.Boring += other.Boring
	s.Pairs += other.Pairs
}

// link records a match between a DELETE and an INSERT record in both aligned-sets.
func link(del, ins *models.SentenceRecord, st *Stats) error {
	wasUnknown := del.Status == models.Unknown
	if err := del.Transition(models.Solved); err != nil {
		return err
	}
	if wasUnknown {
		st.Solved++
	}
	wasUnknown = ins.Status == models.Unknown
	if err := ins.Transition(models.Used); err != nil {
		return err
	}
	if wasUnknown {
		st.Used++
	}
	del.AlignWith(ins.Index)
	ins.AlignWith(del.Index)
	st.Pairs++
	return nil
}

// segments groups records by diff segment, keeping order.
func segments(records []*models.SentenceRecord) [][]*models.SentenceRecord {
	var out [][]*models.SentenceRecord
	last := -1
	for _, r := range records {
		if len(out) == 0 || r.Segment != last {
			out = append(out, nil)
			last = r.Segment
		}
		out[len(out)-1] = append(out[len(out)-1], r)
	}
	return out
}

func unresolved(seg []*models.SentenceRecord) bool {
	for _, r := range seg {
		if r.Status == models.Unknown {
			return true
		}
	}
	return false
}

// ParagraphClassifier is the first heuristic pass. It settles KEEP and boring records and then
// tests every DELETE against every INSERT of the same paragraph segment.
type ParagraphClassifier struct {
	filter  *Filter
	matcher *Matcher
	logger  *zap.Logger
}

// Option configures a pass.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = utils.OrNop(o.logger)
	return o
}

// NewParagraphClassifier returns the first pass.
func NewParagraphClassifier(filter *Filter, matcher *Matcher, opts ...Option) *ParagraphClassifier {
	o := applyOptions(opts)
	return &ParagraphClassifier{filter: filter, matcher: matcher, logger: o.logger}
}

// Run classifies records in place. Matching is greedy and many-to-many: every candidate pair is tested.
func (c *ParagraphClassifier) Run(records []*models.SentenceRecord) (Stats, error) {
	var st Stats
	for _, r := range records {
		switch {
		case r.Entry.Tag == models.Keep:
			if err := r.Transition(models.Solved); err != nil {
				return st, err
			}
			r.AlignWith(r.Index)
			st.Solved++
		case r.Status == models.Unknown && c.filter.IsBoring(r.Entry.Text):
			if err := r.Transition(models.Boring); err != nil {
				return st, err
			}
			st.Boring++
		}
	}
	for _, seg := range segments(records) {
		var dels, ins []*models.SentenceRecord
		for _, r := range seg {
			switch {
			case r.Status == models.Boring:
			case r.Entry.Tag == models.Delete:
				dels = append(dels, r)
			case r.Entry.Tag == models.Insert:
				ins = append(ins, r)
			}
		}
		for _, d := range dels {
			for _, i := range ins {
				if !c.matcher.Match(d.Entry.Text, i.Entry.Text) {
					continue
				}
				if err := link(d, i, &st); err != nil {
					return st, err
				}
			}
		}
	}
	c.logger.Debug("paragraph pass finished",
		zap.Int("solved", st.Solved), zap.Int("used", st.Used), zap.Int("boring", st.Boring), zap.Int("pairs", st.Pairs))
	return st, nil
}

// CrossParagraphMatcher is the second pass: UNKNOWN deletions from unresolved segments against
// every UNKNOWN insertion in the document.
type CrossParagraphMatcher struct {
	matcher *Matcher
	logger  *zap.Logger
}

// NewCrossParagraphMatcher returns the second pass.
func NewCrossParagraphMatcher(matcher *Matcher, opts ...Option) *CrossParagraphMatcher {
	o := applyOptions(opts)
	return &CrossParagraphMatcher{matcher: matcher, logger: o.logger}
}

// Run classifies records in place. Candidates are collected before any pair is tested.
func (m *CrossParagraphMatcher) Run(records []*models.SentenceRecord) (Stats, error) {
	var st Stats
	var dels, ins []*models.SentenceRecord
	for _, seg := range segments(records) {
		if !unresolved(seg) {
			continue
		}
		for _, r := range seg {
			if r.Status == models.Unknown && r.Entry.Tag == models.Delete {
				dels = append(dels, r)
			}
		}
	}
	for _, r := range records {
		if r.Status == models.Unknown && r.Entry.Tag == models.Insert {
			ins = append(ins, r)
		}
	}
	for _, d := range dels {
		for _, i := range ins {
			if !m.matcher.Match(d.Entry.Text, i.Entry.Text) {
				continue
			}
			if err := link(d, i, &st); err != nil {
				return st, err
			}
		}
	}
	m.logger.Debug("cross-paragraph pass finished",
		zap.Int("candidates_deleted", len(dels)), zap.Int("candidates_inserted", len(ins)), zap.Int("pairs", st.Pairs))
	return st, nil
}

// DPPass aligns what is still UNKNOWN inside each segment with the weighted dynamic program.
type DPPass struct {
	aligner  *dpalign.Aligner
	minScore float64
	logger   *zap.Logger
}

// NewDPPass returns the optional third pass. Groups scoring below minScore are ignored.
func NewDPPass(aligner *dpalign.Aligner, minScore float64, opts ...Option) *DPPass {
	o := applyOptions(opts)
	return &DPPass{aligner: aligner, minScore: minScore, logger: o.logger}
}

// Run classifies records in place.
func (p *DPPass) Run(records []*models.SentenceRecord) (Stats, error) {
	var st Stats
	for _, seg := range segments(records) {
		var dels, ins []*models.SentenceRecord
		for _, r := range seg {
			if r.Status != models.Unknown {
				continue
			}
			switch r.Entry.Tag {
			case models.Delete:
				dels = append(dels, r)
			case models.Insert:
				ins = append(ins, r)
			}
		}
		if len(dels) == 0 || len(ins) == 0 {
			continue
		}
		groups := p.aligner.Align(tokens(dels), tokens(ins))
		for _, g := range groups {
			if g.Score < p.minScore {
				continue
			}
			for _, a := range g.A {
				for _, b := range g.B {
					if err := link(dels[a], ins[b], &st); err != nil {
						return st, err
					}
				}
			}
		}
	}
	p.logger.Debug("dp pass finished", zap.Int("pairs", st.Pairs))
	return st, nil
}

func tokens(records []*models.SentenceRecord) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = utils.Tokenize(r.Entry.Text)
	}
	return out
}
