package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/metrics"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/review"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
)

// CorrectionResult summarizes one merged review file.
type CorrectionResult struct {
	Key      models.PairKey      `json:"key"`
	Path     string              `json:"path"`
	Import   review.ImportResult `json:"import"`
	Revision storage.Revision    `json:"revision"`
}

// ApplyCorrections merges a relabeled review file into the latest snapshot of its pair and saves
// the result as a new revision. The pair is taken from the file name. Nothing is saved when any
// row fails validation or no row is labeled aligned.
func (p *Pipeline) ApplyCorrections(ctx context.Context, path string) (*CorrectionResult, error) {
	key, _, err := review.ParseFileName(path)
	if err != nil {
		return nil, err
	}
	a, current, err := p.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	ren, err := p.store.LoadRenumbering(ctx, key)
	if err != nil {
		return nil, err
	}
	rows, err := review.ReadFile(path)
	if err != nil {
		return nil, err
	}

	log := p.logger.With(zap.String("paper", key.PaperID), zap.Int("v1", key.Version1), zap.Int("v2", key.Version2))
	imported, err := review.Import(a, ren, rows, log)
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s: %w", path, err)
	}
	p.metrics.RecordReview(imported.Aligned, imported.Partial, imported.Unaligned)
	p.metrics.RecordAligned(metrics.PassReview, imported.Aligned)
	if imported.Aligned == 0 {
		log.Debug("review file has no aligned rows", zap.String("path", path), zap.Int("rows", imported.Rows))
		return &CorrectionResult{Key: key, Path: path, Import: imported, Revision: current}, nil
	}

	rev, err := p.snapshots.SaveAlignment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	log.Info("review merged",
		zap.String("path", path),
		zap.Int("rows", imported.Rows),
		zap.Int("aligned", imported.Aligned),
		zap.Int("partial", imported.Partial),
		zap.Int("revision", rev.Number),
	)
	return &CorrectionResult{Key: key, Path: path, Import: imported, Revision: rev}, nil
}
