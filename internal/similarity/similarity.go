// Package similarity scores sentence pairs by idf-weighted longest common subsequence.
package similarity

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/termfreq"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// LCS returns a longest common subsequence of a and b.
// On ties the backtrack moves left (shorter b) before up (shorter a), so results are reproducible.
func LCS(a, b []string) []string {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return []string{}
	}
	w := m + 1
	table := make([]int32, (n+1)*w)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			switch {
			case a[i-1] == b[j-1]:
				table[i*w+j] = table[(i-1)*w+j-1] + 1
			case table[i*w+j-1] >= table[(i-1)*w+j]:
				table[i*w+j] = table[i*w+j-1]
			default:
				table[i*w+j] = table[(i-1)*w+j]
			}
		}
	}
	out := make([]string, table[n*w+m])
	k := len(out)
	for i, j := n, m; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			k--
			out[k] = a[i-1]
			i--
			j--
		case table[i*w+j-1] >= table[(i-1)*w+j]:
			j--
		default:
			i--
		}
	}
	return out
}

// Scorer computes weighted similarity against one term-frequency index.
// idf values are memoized, so a Scorer should live no longer than the work it serves. Not safe for concurrent use.
type Scorer struct {
	index  termfreq.Index
	logger *zap.Logger
	docs   int
	idf    map[string]float64
	warned map[string]struct{}
	err    error
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets a logger for missing-word warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// NewScorer reads the corpus size from index and returns a Scorer.
func NewScorer(index termfreq.Index, opts ...Option) (*Scorer, error) {
	docs, err := index.Documents()
	if err != nil {
		return nil, err
	}
	s := &Scorer{
		index:  index,
		logger: zap.NewNop(),
		docs:   docs,
		idf:    make(map[string]float64),
		warned: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IDF returns ln((1+N)/(1+df)). Words the index does not know count as df=0.
// An index failure yields 0 and is recorded for Err; nothing computed on a failure is memoized.
func (s *Scorer) IDF(word string) float64 {
	if v, ok := s.idf[word]; ok {
		return v
	}
	df, ok, err := s.index.DocFreq(word)
	if err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("failed to look up %q in term frequency index: %w", word, err)
		}
		return 0
	}
	if !ok {
		if _, seen := s.warned[word]; !seen {
			s.warned[word] = struct{}{}
			s.logger.Warn("word missing from term frequency index; using df=0", zap.String("word", word))
		}
		df = 0
	}
	v := math.Log(float64(1+s.docs) / float64(1+df))
	s.idf[word] = v
	return v
}

// Err returns the first index failure seen by IDF. Scores computed after a failure are not meaningful.
func (s *Scorer) Err() error { return s.err }

// Weight sums idf over tokens.
func (s *Scorer) Weight(tokens []string) float64 {
	var total float64
	for _, t := range tokens {
		total += s.IDF(t)
	}
	return total
}

// Similarity returns Σidf(LCS(a, b)) / max(Σidf(a), Σidf(b)).
// ok is false when both sides carry zero weight and the ratio is undefined.
func (s *Scorer) Similarity(a, b []string) (score float64, ok bool) {
	denom := math.Max(s.Weight(a), s.Weight(b))
	if denom == 0 {
		return 0, false
	}
	return s.Weight(LCS(a, b)) / denom, true
}

// SentenceSimilarity tokenizes both sentences before scoring.
func (s *Scorer) SentenceSimilarity(s1, s2 string) (float64, bool) {
	return s.Similarity(utils.Tokenize(s1), utils.Tokenize(s2))
}

// MissingWords returns how many distinct words fell back to df=0.
func (s *Scorer) MissingWords() int { return len(s.warned) }
