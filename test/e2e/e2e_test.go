package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/config"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/metrics"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/pipeline"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
)

const e2ePapersPerKind = 3

type backend struct {
	name      string
	snapshots string
	format    string
}

var backends = []backend{
	{name: "sqlite-csv", snapshots: "sqlite", format: "csv"},
	{name: "disk-xlsx", snapshots: "disk", format: "xlsx"},
}

func newPipeline(t *testing.T, b backend) (*pipeline.Pipeline, storage.Storage, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "alignments.db")
	cfg.Storage.SnapshotBackend = b.snapshots
	cfg.Storage.SnapshotDir = filepath.Join(dir, "snapshots")
	cfg.Storage.ReviewDir = filepath.Join(dir, "review")
	cfg.Review.Format = b.format
	cfg.Batch.Workers = 4

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	opts := []pipeline.Option{pipeline.WithMetrics(metrics.New())}
	if b.snapshots == "disk" {
		disk, err := storage.NewDiskSnapshots(cfg.Storage.SnapshotDir)
		if err != nil {
			t.Fatal(err)
		}
		opts = append(opts, pipeline.WithSnapshotStore(disk))
	}
	return pipeline.New(store, cfg, opts...), store, cfg
}

func contains(ids []models.SentenceID, want models.SentenceID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func TestE2E_BatchAlignsCorpus(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			p, store, _ := newPipeline(t, b)
			ctx := context.Background()
			corpus := BuildCorpus(e2ePapersPerKind)

			for _, doc := range corpus.Documents() {
				if err := store.PutDocument(ctx, doc); err != nil {
					t.Fatalf("put %s v%d: %v", doc.PaperID, doc.Version, err)
				}
			}
			keys, err := store.ListPairs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(keys) != len(corpus.Papers) {
				t.Fatalf("ListPairs returned %d pairs, want %d", len(keys), len(corpus.Papers))
			}

			report, err := p.RunBatch(ctx, keys)
			if err != nil {
				t.Fatalf("RunBatch: %v", err)
			}
			if report.Failed != 0 || report.Succeeded != len(keys) {
				for _, pr := range report.Pairs {
					if pr.Err != nil {
						t.Errorf("%s: %v", pr.Key, pr.Err)
					}
				}
				t.Fatalf("batch: %d succeeded, %d failed", report.Succeeded, report.Failed)
			}

			for _, pr := range report.Pairs {
				paper, ok := corpus.ByKey(pr.Key)
				if !ok {
					t.Fatalf("unexpected pair %s", pr.Key)
				}
				t.Run(paper.Edit.String()+"/"+paper.Key.PaperID, func(t *testing.T) {
					a, rev, err := p.Load(ctx, paper.Key)
					if err != nil {
						t.Fatalf("Load: %v", err)
					}
					if rev.Number != 1 {
						t.Errorf("revision = %d, want 1", rev.Number)
					}
					if err := a.CheckSymmetry(); err != nil {
						t.Errorf("CheckSymmetry: %v", err)
					}
					for _, pair := range paper.Aligned {
						if !contains(a.Neighbors(pair[0]), pair[1]) {
							t.Errorf("%s should be aligned with %s", pair[0], pair[1])
						}
					}
					if got := len(pr.Result.Unaligned); got != paper.Unaligned {
						t.Errorf("unaligned = %d (%v), want %d", got, pr.Result.Unaligned, paper.Unaligned)
					}
					// Only a replacement leaves sentences on both sides, so only it produces a review file.
					if (pr.Result.ReviewFile != "") != (paper.Edit == EditReplace) {
						t.Errorf("review file = %q for edit %s", pr.Result.ReviewFile, paper.Edit)
					}
				})
			}
		})
	}
}

func TestE2E_ReviewRoundTrip(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			p, store, cfg := newPipeline(t, b)
			ctx := context.Background()
			paper := buildPaper("2101.00042", EditReplace)
			for _, doc := range []*models.Document{paper.V1, paper.V2} {
				if err := store.PutDocument(ctx, doc); err != nil {
					t.Fatal(err)
				}
			}

			res, err := p.Run(ctx, paper.Key)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.ReviewRows != 1 {
				t.Fatalf("review rows = %d, want 1", res.ReviewRows)
			}
			if filepath.Dir(res.ReviewFile) != cfg.Storage.ReviewDir {
				t.Errorf("review file %s is outside %s", res.ReviewFile, cfg.Storage.ReviewDir)
			}
			if filepath.Ext(res.ReviewFile) != "."+b.format {
				t.Errorf("review file %s should have extension .%s", res.ReviewFile, b.format)
			}
			if _, err := os.Stat(res.ReviewFile); err != nil {
				t.Fatalf("review file missing: %v", err)
			}

			if err := Relabel(res.ReviewFile, "1"); err != nil {
				t.Fatalf("Relabel: %v", err)
			}
			corr, err := p.ApplyCorrections(ctx, res.ReviewFile)
			if err != nil {
				t.Fatalf("ApplyCorrections: %v", err)
			}
			if corr.Import.Aligned != 1 {
				t.Errorf("aligned rows = %d, want 1", corr.Import.Aligned)
			}
			if corr.Revision.Number != 2 {
				t.Errorf("revision = %d, want 2", corr.Revision.Number)
			}

			a, ids, err := p.Unaligned(ctx, paper.Key)
			if err != nil {
				t.Fatalf("Unaligned: %v", err)
			}
			if len(ids) != 0 {
				t.Errorf("unaligned after review = %v, want none", ids)
			}
			replaced := models.SentenceID{PaperID: paper.Key.PaperID, Version: 1, Paragraph: 1, Sentence: 0}
			replacement := models.SentenceID{PaperID: paper.Key.PaperID, Version: 2, Paragraph: 1, Sentence: 0}
			if !contains(a.Neighbors(replaced), replacement) {
				t.Errorf("%s should be aligned with %s after review", replaced, replacement)
			}

			// Revision 1 is kept unchanged.
			first, err := p.LoadRevision(ctx, paper.Key, 1)
			if err != nil {
				t.Fatalf("LoadRevision: %v", err)
			}
			if first.IsAligned(replaced) {
				t.Errorf("revision 1 should not contain the reviewed edge")
			}
			revs, err := p.Revisions(ctx, paper.Key)
			if err != nil {
				t.Fatal(err)
			}
			if len(revs) != 2 {
				t.Errorf("revisions = %d, want 2", len(revs))
			}
		})
	}
}
