// Package config provides configuration loading and structs for the alignment tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	TermFreq TermFreqConfig `yaml:"termfreq"`
	Diff     DiffConfig     `yaml:"diff"`
	Classify ClassifyConfig `yaml:"classify"`
	DP       DPConfig       `yaml:"dp"`
	Batch    BatchConfig    `yaml:"batch"`
	Review   ReviewConfig   `yaml:"review"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// StorageConfig holds paths for the database, snapshots and review files.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" validate:"required"`
	// SnapshotBackend is "sqlite" (snapshots table) or "disk" (SnapshotDir).
	SnapshotBackend string `yaml:"snapshot_backend" validate:"oneof=sqlite disk"`
	SnapshotDir     string `yaml:"snapshot_dir"`
	ReviewDir       string `yaml:"review_dir" validate:"required"`
}

// TermFreqConfig selects the term-frequency index.
type TermFreqConfig struct {
	Backend        string `yaml:"backend" validate:"oneof=memory sqlite bleve"`
	Path           string `yaml:"path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// DiffConfig selects the line differ.
type DiffConfig struct {
	Strategy          string `yaml:"strategy" validate:"oneof=auto lcs linehash"`
	LineHashThreshold int    `yaml:"linehash_threshold" validate:"min=0"`
	// MaxSentences caps each flattened document; 0 disables the cap.
	MaxSentences int `yaml:"max_sentences" validate:"min=0"`
}

// ClassifyConfig holds the heuristic thresholds.
type ClassifyConfig struct {
	MaxRemovedFraction  float64  `yaml:"max_removed_fraction" validate:"min=0,max=1"`
	MaxAddedFraction    float64  `yaml:"max_added_fraction" validate:"min=0"`
	MinTokens           int      `yaml:"min_tokens" validate:"min=0"`
	MaxPlaceholderRatio float64  `yaml:"max_placeholder_ratio" validate:"min=0,max=1"`
	MinAlphaRatio       float64  `yaml:"min_alpha_ratio" validate:"min=0,max=1"`
	Placeholders        []string `yaml:"placeholders"`
	TitleMarkers        []string `yaml:"title_markers"`
	BlankMarkers        []string `yaml:"blank_markers"`
}

// DPConfig controls the optional dynamic-programming pass.
type DPConfig struct {
	Enabled         bool    `yaml:"enabled"`
	MismatchPenalty float64 `yaml:"mismatch_penalty" validate:"min=0"`
	MinSimilarity   float64 `yaml:"min_similarity" validate:"min=0,max=1"`
}

// BatchConfig controls the batch driver.
type BatchConfig struct {
	Workers int `yaml:"workers" validate:"min=0"`
}

// ReviewConfig controls manual-review export.
type ReviewConfig struct {
	Format string `yaml:"format" validate:"oneof=csv xlsx"`
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
// Returns an error if the file cannot be read or parsed or a value is out of range.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.SnapshotDir = expandPath(cfg.Storage.SnapshotDir, configDir)
	cfg.Storage.ReviewDir = expandPath(cfg.Storage.ReviewDir, configDir)
	cfg.TermFreq.Path = expandPath(cfg.TermFreq.Path, configDir)
	cfg.TermFreq.BleveIndexPath = expandPath(cfg.TermFreq.BleveIndexPath, configDir)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges and backend-specific requirements.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.SnapshotBackend == "disk" && cfg.Storage.SnapshotDir == "" {
		return fmt.Errorf("invalid config: storage.snapshot_dir is required for the disk snapshot backend")
	}
	if cfg.TermFreq.Backend == "bleve" && cfg.TermFreq.BleveIndexPath == "" {
		return fmt.Errorf("invalid config: termfreq.bleve_index_path is required for the bleve backend")
	}
	if cfg.TermFreq.Backend != "bleve" && cfg.TermFreq.Path == "" && cfg.TermFreq.Backend != "memory" {
		return fmt.Errorf("invalid config: termfreq.path is required for the %s backend", cfg.TermFreq.Backend)
	}
	return nil
}

// Environment variables that override file values.
const (
	EnvDatabasePath = "ARXIVEDITS_DATABASE_PATH"
	EnvReviewDir    = "ARXIVEDITS_REVIEW_DIR"
	EnvDebug        = "ARXIVEDITS_DEBUG"
)

// ApplyEnv overrides values from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv(EnvReviewDir); v != "" {
		cfg.Storage.ReviewDir = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
