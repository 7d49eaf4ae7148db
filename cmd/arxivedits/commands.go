package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/cli"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/config"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/diff"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/server"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/termfreq"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/watcher"
)

// pairCommand parses common flags plus "<paper> <v1> <v2>".
func pairCommand(name string, fs *flag.FlagSet, flags commonFlags) (*session, models.PairKey) {
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	key, err := parsePairArgs(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n\n", name, err)
		fs.Usage()
		os.Exit(1)
	}
	return open(flags), key
}

func runIngest() {
	fs, flags := newFlagSet("ingest")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() != 1 {
		exitf("Usage: arxivedits ingest [flags] <dir>")
	}
	docs, err := readDocuments(fs.Arg(0))
	if err != nil {
		exitf("Failed to read documents: %v", err)
	}

	s := open(flags)
	defer s.Close()
	ctx, cancel := signalContext()
	defer cancel()

	stored := 0
	for _, doc := range docs {
		doc.Normalize()
		if err := s.components.Storage.PutDocument(ctx, doc); err != nil {
			s.logger.Error("store document failed",
				zap.String("paper", doc.PaperID), zap.Int("version", doc.Version), zap.Error(err))
			continue
		}
		stored++
		s.logger.Debug("document stored",
			zap.String("paper", doc.PaperID), zap.Int("version", doc.Version),
			zap.Int("sentences", doc.SentenceCount()))
	}
	fmt.Printf("Stored %d of %d documents\n", stored, len(docs))
	if stored < len(docs) {
		os.Exit(1)
	}
}

func runAlign() {
	fs, flags := newFlagSet("align")
	s, key := pairCommand("align", fs, flags)
	defer s.Close()
	ctx, cancel := signalContext()
	defer cancel()

	res, err := s.components.Pipeline.Run(ctx, key)
	if err != nil {
		exitf("Alignment failed (%s): %v", models.ErrorClass(err), err)
	}
	if err := cli.WriteResult(os.Stdout, res, s.format); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runBatch() {
	fs, flags := newFlagSet("batch")
	workers := fs.Int("workers", -1, "worker count (default from config; 0 = one per CPU)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	s := open(flags)
	defer s.Close()
	if *workers >= 0 {
		s.cfg.Batch.Workers = *workers
	}
	ctx, cancel := signalContext()
	defer cancel()

	keys, err := batchKeys(ctx, s.components.Storage, fs.Args())
	if err != nil {
		exitf("Failed to list pairs: %v", err)
	}
	if len(keys) == 0 {
		fmt.Println("No version pairs to align")
		return
	}
	report, err := s.components.Pipeline.RunBatch(ctx, keys)
	if report != nil {
		if werr := cli.WriteBatchReport(os.Stdout, report, s.format); werr != nil {
			exitf("Output failed: %v", werr)
		}
	}
	if err != nil {
		exitf("Batch interrupted: %v", err)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// batchKeys lists every stored pair, or the consecutive pairs of the named papers.
func batchKeys(ctx context.Context, store storage.Storage, papers []string) ([]models.PairKey, error) {
	if len(papers) == 0 {
		return store.ListPairs(ctx)
	}
	var keys []models.PairKey
	for _, paper := range papers {
		versions, err := store.ListVersions(ctx, paper)
		if err != nil {
			return nil, err
		}
		if len(versions) < 2 {
			return nil, fmt.Errorf("paper %s has %d stored versions; need at least 2", paper, len(versions))
		}
		keys = append(keys, consecutivePairs(paper, versions)...)
	}
	return keys, nil
}

func runDiff() {
	fs, flags := newFlagSet("diff")
	contextLines := fs.Int("context", 3, "context sentences around each change")
	s, key := pairCommand("diff", fs, flags)
	defer s.Close()
	ctx, cancel := signalContext()
	defer cancel()

	entries, err := s.components.Pipeline.Diff(ctx, key)
	if err != nil {
		exitf("Diff failed (%s): %v", models.ErrorClass(err), err)
	}
	out, err := diff.Unified(
		fmt.Sprintf("%s/v%d", key.PaperID, key.Version1),
		fmt.Sprintf("%s/v%d", key.PaperID, key.Version2),
		entries, *contextLines)
	if err != nil {
		exitf("Diff failed: %v", err)
	}
	if len(out) == 0 {
		fmt.Printf("%s: no changes\n", key)
		return
	}
	_, _ = os.Stdout.Write(out)
}

func runUnaligned() {
	fs, flags := newFlagSet("unaligned")
	s, key := pairCommand("unaligned", fs, flags)
	defer s.Close()

	a, ids, err := s.components.Pipeline.Unaligned(context.Background(), key)
	if err != nil {
		exitf("Lookup failed (%s): %v", models.ErrorClass(err), err)
	}
	if err := cli.WriteUnaligned(os.Stdout, a, ids, s.format); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runExport() {
	fs, flags := newFlagSet("export")
	s, key := pairCommand("export", fs, flags)
	defer s.Close()

	path, rows, err := s.components.Pipeline.Export(context.Background(), key)
	if err != nil {
		exitf("Export failed (%s): %v", models.ErrorClass(err), err)
	}
	if rows == 0 {
		fmt.Printf("%s: nothing to review\n", key)
		return
	}
	fmt.Printf("%s: wrote %d rows to %s\n", key, rows, path)
}

func runMerge() {
	fs, flags := newFlagSet("merge")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() != 1 {
		exitf("Usage: arxivedits merge [flags] <file>")
	}
	s := open(flags)
	defer s.Close()

	res, err := s.components.Pipeline.ApplyCorrections(context.Background(), fs.Arg(0))
	if err != nil {
		exitf("Merge failed (%s): %v", models.ErrorClass(err), err)
	}
	if err := cli.WriteCorrection(os.Stdout, res, s.format); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runRevisions() {
	fs, flags := newFlagSet("revisions")
	s, key := pairCommand("revisions", fs, flags)
	defer s.Close()

	revs, err := s.components.Pipeline.Revisions(context.Background(), key)
	if err != nil {
		exitf("Lookup failed (%s): %v", models.ErrorClass(err), err)
	}
	if err := cli.WriteRevisions(os.Stdout, key, revs, s.format); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runStatus() {
	fs, flags := newFlagSet("status")
	_ = fs.Parse(os.Args[2:])
	s := open(flags)
	defer s.Close()

	st, err := collectStatus(context.Background(), s.cfg, s.components.Storage)
	if err != nil {
		exitf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, s.format); err != nil {
		exitf("Output failed: %v", err)
	}
}

func collectStatus(ctx context.Context, cfg *config.Config, store storage.Storage) (cli.Status, error) {
	st := cli.Status{DatabasePath: cfg.Storage.DatabasePath, ReviewDir: cfg.Storage.ReviewDir}
	var err error
	if st.Documents, err = store.CountDocuments(ctx); err != nil {
		return st, err
	}
	if st.Sentences, err = store.CountSentences(ctx); err != nil {
		return st, err
	}
	if st.Snapshots, err = store.CountSnapshots(ctx); err != nil {
		return st, err
	}
	pairs, err := store.ListPairs(ctx)
	if err != nil {
		return st, err
	}
	st.Pairs = len(pairs)

	paths := []string{cfg.Storage.DatabasePath, cfg.Storage.ReviewDir}
	if cfg.Storage.SnapshotBackend == "disk" {
		paths = append(paths, cfg.Storage.SnapshotDir)
	}
	// Missing directories just mean nothing was written yet.
	st.DiskUsageBytes, _ = storage.DiskUsageBytes(paths...)
	return st, nil
}

// newCorrectionWatcher applies review files dropped into the review directory.
func newCorrectionWatcher(s *session) *watcher.Watcher {
	p := s.components.Pipeline
	logger := s.logger
	return watcher.NewWatcher(
		s.cfg.Storage.ReviewDir,
		func(path string) error {
			res, err := p.ApplyCorrections(context.Background(), path)
			if err != nil {
				logger.Warn("apply corrections failed",
					zap.String("path", path), zap.String("class", models.ErrorClass(err)), zap.Error(err))
				return err
			}
			logger.Info("corrections applied",
				zap.String("path", path),
				zap.String("pair", res.Key.String()),
				zap.Int("aligned", res.Import.Aligned),
				zap.Int("revision", res.Revision.Number))
			return nil
		},
		watcher.WithLogger(logger),
	)
}

func runServer() {
	fs, flags := newFlagSet("serve")
	watch := fs.Bool("watch", true, "watch the review directory for corrections")
	_ = fs.Parse(os.Args[2:])
	s := open(flags)
	defer s.Close()

	s.logger.Info("config loaded",
		zap.String("config_path", s.configPath),
		zap.Bool("debug", s.cfg.Debug || *flags.debug),
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if *watch {
		w := newCorrectionWatcher(s)
		if err := w.Start(watchCtx); err != nil {
			s.logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		w.SyncExistingFiles()
	}

	c := s.components
	srv := server.NewServer(c.Pipeline, c.Storage, c.Metrics, s.cfg, s.logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()
	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.logger.Error("Server failed", zap.Error(err))
	}

	s.logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runWatch() {
	fs, flags := newFlagSet("watch")
	_ = fs.Parse(os.Args[2:])
	s := open(flags)
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()
	w := newCorrectionWatcher(s)
	if err := w.Start(ctx); err != nil {
		exitf("Failed to start watcher: %v", err)
	}
	defer w.Stop()
	w.SyncExistingFiles()
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", w.Root())
	<-ctx.Done()
}

func runTermFreq() {
	if len(os.Args) < 3 {
		exitf("Usage: arxivedits termfreq <import|build> [flags]")
	}
	sub := os.Args[2]
	fs, flags := newFlagSet("termfreq " + sub)
	_ = fs.Parse(reorderArgs(os.Args[3:]))

	switch sub {
	case "import":
		if fs.NArg() != 1 {
			exitf("Usage: arxivedits termfreq import [flags] <file.tsv>")
		}
		cfg, _, err := loadConfig(*flags.configPath)
		if err != nil {
			exitf("Failed to load config: %v", err)
		}
		n, err := importTermFreq(context.Background(), cfg.TermFreq.Path, fs.Arg(0))
		if err != nil {
			exitf("Import failed: %v", err)
		}
		fmt.Printf("Imported %d words into %s\n", n, cfg.TermFreq.Path)
	case "build":
		s := open(flags)
		defer s.Close()
		// With dp enabled the bleve index is already open and holds the file lock.
		idx, ok := s.components.TermFreq.(*termfreq.BleveIndex)
		if !ok {
			var err error
			if idx, err = termfreq.NewBleveIndex(s.cfg.TermFreq.BleveIndexPath); err != nil {
				exitf("Failed to open index: %v", err)
			}
			defer idx.Close()
		}
		n, err := buildBleveIndex(context.Background(), s.components.Storage, idx)
		if err != nil {
			exitf("Build failed: %v", err)
		}
		fmt.Printf("Indexed %d documents into %s\n", n, s.cfg.TermFreq.BleveIndexPath)
	default:
		exitf("Unknown termfreq command: %s (want import or build)", sub)
	}
}

// importTermFreq loads a word<TAB>count TSV into the sqlite index at dbPath.
func importTermFreq(ctx context.Context, dbPath, tsvPath string) (int, error) {
	if dbPath == "" {
		return 0, errors.New("termfreq.path is not set")
	}
	f, err := os.Open(tsvPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return 0, err
	}
	idx, err := termfreq.NewSQLiteIndex(dbPath)
	if err != nil {
		return 0, err
	}
	defer idx.Close()
	return idx.ImportTSV(ctx, f)
}

// buildBleveIndex adds one corpus document per stored paper version.
func buildBleveIndex(ctx context.Context, store storage.Storage, idx *termfreq.BleveIndex) (int, error) {
	papers, err := store.ListPapers(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, paper := range papers {
		versions, err := store.ListVersions(ctx, paper)
		if err != nil {
			return total, err
		}
		batch := make(map[string]string, len(versions))
		for _, v := range versions {
			doc, err := store.GetDocument(ctx, paper, v)
			if err != nil {
				return total, err
			}
			var sb strings.Builder
			for _, para := range doc.Paragraphs {
				for _, sent := range para {
					sb.WriteString(sent)
					sb.WriteByte('\n')
				}
			}
			batch[fmt.Sprintf("%s/v%d", paper, v)] = sb.String()
		}
		if err := idx.AddBatch(batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

func runConfig() {
	if len(os.Args) != 4 || os.Args[2] != "init" {
		exitf("Usage: arxivedits config init <path>")
	}
	path := os.Args[3]
	if _, err := os.Stat(path); err == nil {
		exitf("%s already exists", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		exitf("Failed to write config: %v", err)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}
