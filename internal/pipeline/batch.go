package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/diff"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// PairResult is the outcome of one pair in a batch. Err is set instead of Result on failure.
type PairResult struct {
	Key    models.PairKey `json:"key"`
	Result *Result        `json:"result,omitempty"`
	Err    error          `json:"-"`
}

// BatchReport summarizes a batch run.
type BatchReport struct {
	RunID     string        `json:"run_id"`
	Pairs     []PairResult  `json:"pairs"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// RunBatch aligns every key. Each worker owns a diff cache that is cleared after every pair.
// A failing pair is recorded in its PairResult and never stops the others; only cancellation of
// ctx ends the batch early.
func (p *Pipeline) RunBatch(ctx context.Context, keys []models.PairKey) (*BatchReport, error) {
	start := time.Now()
	report := &BatchReport{
		RunID: uuid.New().String(),
		Pairs: make([]PairResult, len(keys)),
	}
	log := p.logger.With(zap.String("run_id", report.RunID))

	workers := p.cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(keys) {
		workers = len(keys)
	}
	log.Info("batch started", zap.Int("pairs", len(keys)), zap.Int("workers", workers))

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range keys {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			cache := diff.NewCache(p.differ)
			for i := range jobs {
				res, err := p.run(gctx, keys[i], cache)
				p.release(cache)
				report.Pairs[i] = PairResult{Key: keys[i], Result: res, Err: err}
			}
			return nil
		})
	}
	err := g.Wait()

	for i, pr := range report.Pairs {
		if pr.Result == nil && pr.Err == nil {
			// never dispatched
			report.Pairs[i] = PairResult{Key: keys[i], Err: context.Cause(ctx)}
			if report.Pairs[i].Err == nil {
				report.Pairs[i].Err = context.Canceled
			}
		}
		if report.Pairs[i].Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	report.Duration = time.Since(start)
	log.Info("batch finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, err
}
