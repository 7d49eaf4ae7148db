// Package pipeline runs the alignment stages for a pair of paper versions: diff, identity pass,
// heuristic passes, merge, snapshot and review export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/classify"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/config"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/diff"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/dpalign"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/metrics"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/review"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/similarity"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/termfreq"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

// Pipeline aligns document pairs read from storage and persists the results.
// A Pipeline holds no per-pair state and may be shared by batch workers.
type Pipeline struct {
	store     storage.Storage
	snapshots storage.SnapshotStore
	termFreq  termfreq.Index
	differ    diff.Differ
	filter    *classify.Filter
	matcher   *classify.Matcher
	cfg       *config.Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for per-pair events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records pair outcomes and pass counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSnapshotStore stores snapshots somewhere other than the document storage.
func WithSnapshotStore(s storage.SnapshotStore) Option {
	return func(p *Pipeline) { p.snapshots = s }
}

// WithTermFreq sets the term-frequency index used by the DP pass.
func WithTermFreq(idx termfreq.Index) Option {
	return func(p *Pipeline) { p.termFreq = idx }
}

// New creates a pipeline over store configured by cfg.
func New(store storage.Storage, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		snapshots: store,
		differ:    diff.New(diff.Strategy(cfg.Diff.Strategy), cfg.Diff.LineHashThreshold),
		filter: classify.NewFilter(classify.FilterConfig{
			MinTokens:           cfg.Classify.MinTokens,
			MaxPlaceholderRatio: cfg.Classify.MaxPlaceholderRatio,
			MinAlphaRatio:       cfg.Classify.MinAlphaRatio,
			Placeholders:        cfg.Classify.Placeholders,
			TitleMarkers:        cfg.Classify.TitleMarkers,
			BlankMarkers:        cfg.Classify.BlankMarkers,
		}),
		matcher: classify.NewMatcher(classify.MatchConfig{
			MaxRemovedFraction: cfg.Classify.MaxRemovedFraction,
			MaxAddedFraction:   cfg.Classify.MaxAddedFraction,
		}),
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Result summarizes one aligned pair.
type Result struct {
	Key        models.PairKey      `json:"key"`
	Revision   storage.Revision    `json:"revision"`
	Entries    int                 `json:"diff_entries"`
	Identity   int                 `json:"identity"`
	Paragraph  classify.Stats      `json:"paragraph"`
	Cross      classify.Stats      `json:"cross"`
	DP         *classify.Stats     `json:"dp,omitempty"`
	Merged     int                 `json:"merged"`
	Unaligned  []models.SentenceID `json:"unaligned"`
	ReviewFile string              `json:"review_file,omitempty"`
	ReviewRows int                 `json:"review_rows"`
	Duration   time.Duration       `json:"duration"`
}

// Run aligns one pair with a private diff cache that is cleared before returning.
func (p *Pipeline) Run(ctx context.Context, key models.PairKey) (*Result, error) {
	cache := diff.NewCache(p.differ)
	defer p.release(cache)
	return p.run(ctx, key, cache)
}

func (p *Pipeline) release(cache *diff.Cache) {
	hits, misses := cache.Stats()
	p.metrics.RecordCache(hits, misses)
	cache.Clear()
}

func (p *Pipeline) run(ctx context.Context, key models.PairKey, cache *diff.Cache) (res *Result, err error) {
	start := time.Now()
	log := p.logger.With(zap.String("paper", key.PaperID), zap.Int("v1", key.Version1), zap.Int("v2", key.Version2))
	defer func() {
		p.metrics.RecordPair(err, time.Since(start))
		if err != nil {
			log.Warn("pair failed", zap.String("class", models.ErrorClass(err)), zap.Error(err))
		}
	}()

	if err := key.Validate(); err != nil {
		return nil, err
	}
	entries, err := p.diffPair(ctx, key, cache)
	if err != nil {
		return nil, err
	}

	a, records, err := alignment.Identity(key, entries)
	if err != nil {
		return nil, fmt.Errorf("identity pass: %w", err)
	}
	res = &Result{Key: key, Entries: len(entries)}
	for _, r := range records {
		if r.Entry.Tag == models.Keep {
			res.Identity++
		}
	}
	p.metrics.RecordAligned(metrics.PassIdentity, res.Identity)

	opt := classify.WithLogger(log)
	if res.Paragraph, err = classify.NewParagraphClassifier(p.filter, p.matcher, opt).Run(records); err != nil {
		return nil, fmt.Errorf("paragraph pass: %w", err)
	}
	// KEEP records are counted by the identity pass.
	p.metrics.RecordAligned(metrics.PassParagraph, res.Paragraph.Solved-res.Identity+res.Paragraph.Used)
	if res.Cross, err = classify.NewCrossParagraphMatcher(p.matcher, opt).Run(records); err != nil {
		return nil, fmt.Errorf("cross-paragraph pass: %w", err)
	}
	p.metrics.RecordAligned(metrics.PassCross, res.Cross.Solved+res.Cross.Used)

	if p.cfg.DP.Enabled {
		st, err := p.runDP(records, log)
		if err != nil {
			return nil, fmt.Errorf("dp pass: %w", err)
		}
		res.DP = &st
		p.metrics.RecordAligned(metrics.PassDP, st.Solved+st.Used)
	}

	if res.Merged, err = review.Merge(records, a); err != nil {
		return nil, err
	}
	if err := a.CheckSymmetry(); err != nil {
		return nil, err
	}

	if res.Revision, err = p.snapshots.SaveAlignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	boring := review.BoringIDs(records)
	res.Unaligned = review.Unaligned(a, boring)
	if res.ReviewFile, res.ReviewRows, err = p.exportReview(ctx, a, boring); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	log.Info("pair aligned",
		zap.Int("revision", res.Revision.Number),
		zap.Int("edges", res.Revision.Edges),
		zap.Int("merged", res.Merged),
		zap.Int("unaligned", len(res.Unaligned)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) runDP(records []*models.SentenceRecord, log *zap.Logger) (classify.Stats, error) {
	if p.termFreq == nil {
		return classify.Stats{}, fmt.Errorf("dp pass enabled without a term frequency index")
	}
	scorer, err := similarity.NewScorer(p.termFreq, similarity.WithLogger(log))
	if err != nil {
		return classify.Stats{}, fmt.Errorf("failed to read term frequency index: %w", err)
	}
	aligner := dpalign.New(scorer.Similarity, p.cfg.DP.MismatchPenalty)
	st, err := classify.NewDPPass(aligner, p.cfg.DP.MinSimilarity, classify.WithLogger(log)).Run(records)
	if err != nil {
		return st, err
	}
	if err := scorer.Err(); err != nil {
		return classify.Stats{}, err
	}
	if n := scorer.MissingWords(); n > 0 {
		log.Debug("words missing from term frequency index", zap.Int("count", n))
	}
	return st, nil
}

// Diff returns the edit script between the stored documents of key.
func (p *Pipeline) Diff(ctx context.Context, key models.PairKey) ([]models.DiffEntry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	cache := diff.NewCache(p.differ)
	defer p.release(cache)
	return p.diffPair(ctx, key, cache)
}

func (p *Pipeline) diffPair(ctx context.Context, key models.PairKey, cache *diff.Cache) ([]models.DiffEntry, error) {
	d1, err := p.document(ctx, key.PaperID, key.Version1)
	if err != nil {
		return nil, err
	}
	d2, err := p.document(ctx, key.PaperID, key.Version2)
	if err != nil {
		return nil, err
	}
	entries, err := cache.Diff(d1.Flatten(), d2.Flatten())
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", key, err)
	}
	return entries, nil
}

func (p *Pipeline) document(ctx context.Context, paper string, version int) (*models.Document, error) {
	doc, err := p.store.GetDocument(ctx, paper, version)
	if err != nil {
		return nil, err
	}
	doc.Normalize()
	if len(doc.Paragraphs) == 0 {
		return nil, &models.MissingInputError{PaperID: paper, Version: version}
	}
	if limit := p.cfg.Diff.MaxSentences; limit > 0 && doc.SentenceCount() > limit {
		p.logger.Warn("document truncated",
			zap.String("paper", paper), zap.Int("version", version),
			zap.Int("sentences", doc.SentenceCount()), zap.Int("max", limit))
		truncate(doc, limit)
	}
	return doc, nil
}

// truncate keeps the first limit sentences of doc.
func truncate(doc *models.Document, limit int) {
	kept := 0
	for i, para := range doc.Paragraphs {
		if kept+len(para) >= limit {
			doc.Paragraphs[i] = para[:limit-kept]
			doc.Paragraphs = doc.Paragraphs[:i+1]
			return
		}
		kept += len(para)
	}
}

// exportReview writes the cross product of unaligned sentences to the review directory and stores
// the renumbering needed to read it back. Nothing is written when either side has no candidates.
// Review files left from an earlier export of the pair are removed, since the new renumbering
// no longer resolves their indices.
func (p *Pipeline) exportReview(ctx context.Context, a *alignment.Alignment, boring map[models.SentenceID]struct{}) (string, int, error) {
	ren, rows := review.Export(a, boring)
	if err := p.store.SaveRenumbering(ctx, ren); err != nil {
		return "", 0, fmt.Errorf("failed to save renumbering: %w", err)
	}
	dir := p.cfg.Storage.ReviewDir
	if dir == "" {
		return "", len(rows), nil
	}
	format := review.Format(p.cfg.Review.Format)
	for _, f := range []review.Format{review.FormatCSV, review.FormatXLSX} {
		if len(rows) > 0 && f == format {
			continue
		}
		stale := filepath.Join(dir, review.FileName(a.Key, f))
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", 0, fmt.Errorf("failed to remove stale review file: %w", err)
		} else if err == nil {
			p.logger.Debug("stale review file removed", zap.String("path", stale))
		}
	}
	if len(rows) == 0 {
		return "", 0, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create review directory: %w", err)
	}
	path := filepath.Join(dir, review.FileName(a.Key, format))
	if err := review.WriteFile(path, rows); err != nil {
		return "", 0, err
	}
	p.logger.Debug("review file written", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, len(rows), nil
}

// Load returns the latest snapshot for key.
func (p *Pipeline) Load(ctx context.Context, key models.PairKey) (*alignment.Alignment, storage.Revision, error) {
	if err := key.Validate(); err != nil {
		return nil, storage.Revision{}, err
	}
	return p.snapshots.LoadAlignment(ctx, key)
}

// LoadRevision returns one stored revision of key.
func (p *Pipeline) LoadRevision(ctx context.Context, key models.PairKey, revision int) (*alignment.Alignment, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return p.snapshots.LoadAlignmentRevision(ctx, key, revision)
}

// Revisions lists the stored snapshots of key.
func (p *Pipeline) Revisions(ctx context.Context, key models.PairKey) ([]storage.Revision, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return p.snapshots.AlignmentRevisions(ctx, key)
}

// Boring returns the sentences of a the filter excludes from alignment.
func (p *Pipeline) Boring(a *alignment.Alignment) map[models.SentenceID]struct{} {
	out := make(map[models.SentenceID]struct{})
	for _, v := range []int{a.Key.Version1, a.Key.Version2} {
		for _, id := range a.Sentences(v) {
			if a.IsAligned(id) {
				continue
			}
			if text, _ := a.Text(id); p.filter.IsBoring(text) {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

// Unaligned lists the non-boring unaligned sentences of the latest snapshot of key.
func (p *Pipeline) Unaligned(ctx context.Context, key models.PairKey) (*alignment.Alignment, []models.SentenceID, error) {
	a, _, err := p.Load(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return a, review.Unaligned(a, p.Boring(a)), nil
}

// Export rewrites the review file for the latest snapshot of key.
func (p *Pipeline) Export(ctx context.Context, key models.PairKey) (string, int, error) {
	a, _, err := p.Load(ctx, key)
	if err != nil {
		return "", 0, err
	}
	return p.exportReview(ctx, a, p.Boring(a))
}
