// Package main is the arxivedits CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/cli"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/config"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/metrics"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/pipeline"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/termfreq"
	"github.com/samuelstevens/arxiv-edits-sub000/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/arxivedits/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists; when neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			cfg := config.Default()
			config.ApplyEnv(cfg)
			if err := config.Validate(cfg); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; values then come from the config file and real environment.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ingest":
		runIngest()
	case "align":
		runAlign()
	case "batch":
		runBatch()
	case "diff":
		runDiff()
	case "unaligned":
		runUnaligned()
	case "export":
		runExport()
	case "merge":
		runMerge()
	case "revisions":
		runRevisions()
	case "status":
		runStatus()
	case "serve", "server":
		runServer()
	case "watch":
		runWatch()
	case "termfreq":
		runTermFreq()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("arxivedits version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// exitf prints to stderr and exits with status 1.
func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// commonFlags are shared by every command that opens storage.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs, commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// session is what a command needs after flags are parsed.
type session struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	format     cli.OutputFormat
	components *Components
}

// open loads config, builds the logger and initializes components.
func open(flags commonFlags) *session {
	format, err := cli.ParseOutputFormat(*flags.output)
	if err != nil {
		exitf("%v", err)
	}
	cfg, resolved, err := loadConfig(*flags.configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *flags.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return &session{cfg: cfg, configPath: resolved, logger: logger, format: format, components: components}
}

func (s *session) Close() {
	s.components.Close()
	_ = s.logger.Sync()
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Snapshots storage.SnapshotStore
	TermFreq  termfreq.Index
	Metrics   *metrics.Metrics
	Pipeline  *pipeline.Pipeline
}

func (c *Components) Close() {
	if closer, ok := c.TermFreq.(io.Closer); ok {
		_ = closer.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store, Snapshots: store, Metrics: metrics.New()}

	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithMetrics(c.Metrics)}
	if cfg.Storage.SnapshotBackend == "disk" {
		disk, err := storage.NewDiskSnapshots(cfg.Storage.SnapshotDir)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize snapshot directory: %w", err)
		}
		c.Snapshots = disk
		opts = append(opts, pipeline.WithSnapshotStore(disk))
	}

	// The idf index is only read by the DP pass.
	if cfg.DP.Enabled {
		idx, err := openTermFreq(cfg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize term-frequency index: %w", err)
		}
		if idx != nil {
			c.TermFreq = idx
			opts = append(opts, pipeline.WithTermFreq(idx))
			logger.Info("term-frequency index opened", zap.String("backend", cfg.TermFreq.Backend))
		} else {
			logger.Warn("dp enabled without a term-frequency index; pairs will fail the dp pass")
		}
	}

	c.Pipeline = pipeline.New(store, cfg, opts...)
	return c, nil
}

// openTermFreq opens the configured index. The memory backend reads a TSV at termfreq.path and
// returns nil when no path is set.
func openTermFreq(cfg *config.Config) (termfreq.Index, error) {
	switch cfg.TermFreq.Backend {
	case "bleve":
		return termfreq.NewBleveIndex(cfg.TermFreq.BleveIndexPath)
	case "memory":
		if cfg.TermFreq.Path == "" {
			return nil, nil
		}
		f, err := os.Open(cfg.TermFreq.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return termfreq.LoadMemoryIndex(f)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.TermFreq.Path), 0755); err != nil {
			return nil, err
		}
		return termfreq.NewSQLiteIndex(cfg.TermFreq.Path)
	}
}

// reorderArgs moves flags (and their values) that appear after the positional arguments
// to the front, since flag.Parse stops at the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parsePairArgs reads "<paper> <v1> <v2>". Versions may carry a leading "v".
func parsePairArgs(args []string) (models.PairKey, error) {
	if len(args) != 3 {
		return models.PairKey{}, fmt.Errorf("expected <paper> <v1> <v2>, got %d arguments", len(args))
	}
	v1, err := parseVersion(args[1])
	if err != nil {
		return models.PairKey{}, err
	}
	v2, err := parseVersion(args[2])
	if err != nil {
		return models.PairKey{}, err
	}
	key := models.PairKey{PaperID: args[0], Version1: v1, Version2: v2}
	if key.PaperID == "" {
		return models.PairKey{}, errors.New("paper id is empty")
	}
	return key, key.Validate()
}

func parseVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(s), "v"))
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// consecutivePairs returns (v[i], v[i+1]) pairs over the sorted versions of one paper.
func consecutivePairs(paper string, versions []int) []models.PairKey {
	vs := append([]int(nil), versions...)
	sort.Ints(vs)
	var out []models.PairKey
	for i := 1; i < len(vs); i++ {
		if vs[i] == vs[i-1] {
			continue
		}
		out = append(out, models.PairKey{PaperID: paper, Version1: vs[i-1], Version2: vs[i]})
	}
	return out
}

var versionFile = regexp.MustCompile(`^v(\d+)\.json$`)

// documentFile is the JSON layout read by ingest.
type documentFile struct {
	Paragraphs [][]string `json:"paragraphs"`
}

// readDocuments walks root for <paper>/v<N>.json files. The paper id is the directory path
// relative to root, so old-style ids such as hep-th/9901001 map to nested directories.
func readDocuments(root string) ([]*models.Document, error) {
	var docs []*models.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := versionFile.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		if rel == "." {
			return fmt.Errorf("%s: version file must be inside a paper directory", path)
		}
		v, _ := strconv.Atoi(m[1])
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var f documentFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		docs = append(docs, &models.Document{
			PaperID:    filepath.ToSlash(rel),
			Version:    v,
			Paragraphs: f.Paragraphs,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].PaperID != docs[j].PaperID {
			return docs[i].PaperID < docs[j].PaperID
		}
		return docs[i].Version < docs[j].Version
	})
	return docs, nil
}

func printUsage() {
	fmt.Println(`arxivedits - Sentence alignment between versions of arXiv papers

Usage:
  arxivedits ingest [flags] <dir>                  Store documents from <dir>/<paper>/v<N>.json
  arxivedits align [flags] <paper> <v1> <v2>       Align one version pair
  arxivedits batch [flags] [paper...]              Align consecutive versions (all papers when none given)
  arxivedits diff [flags] <paper> <v1> <v2>        Print the sentence diff as a unified diff
  arxivedits unaligned [flags] <paper> <v1> <v2>   List sentences left unaligned
  arxivedits export [flags] <paper> <v1> <v2>      Write the manual-review file for a pair
  arxivedits merge [flags] <file>                  Apply a labeled review file
  arxivedits revisions [flags] <paper> <v1> <v2>   Show the snapshot history of a pair
  arxivedits status [flags]                        Show storage counts and disk usage
  arxivedits serve [flags]                         Start the HTTP API and watch the review directory
  arxivedits watch [flags]                         Watch the review directory and apply corrections
  arxivedits termfreq import [flags] <file.tsv>    Load word/document counts into the sqlite index
  arxivedits termfreq build [flags]                Index stored documents into the bleve index
  arxivedits config init <path>                    Write the default config to <path>
  arxivedits version                               Show version
  arxivedits help                                  Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/arxivedits/config.yaml, or ./config.yaml)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Batch Flags:
  --workers int      Worker count (default from config; 0 = one per CPU)

Diff Flags:
  --context int      Context sentences around each change (default: 3)

Serve Flags:
  --watch            Watch the review directory for corrections (default: true)

Examples:
  arxivedits ingest ./data/papers
  arxivedits align 1801.00001 1 2
  arxivedits batch --workers 8
  arxivedits diff hep-th/9901001 v1 v2
  arxivedits export 1801.00001 1 2
  arxivedits merge /usr/local/var/arxivedits/data/review/1801.00001_v1_v2.csv
  arxivedits status --output json`)
}
