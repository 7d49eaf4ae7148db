package config

const dataDir = "/usr/local/var/arxivedits/data"

// ApplyDefaults sets default values for any zero values in cfg.
// Thresholds left at zero take the documented defaults; set them explicitly in YAML to override.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = dataDir + "/db/alignments.db"
	}
	if cfg.Storage.SnapshotBackend == "" {
		cfg.Storage.SnapshotBackend = "sqlite"
	}
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = dataDir + "/snapshots"
	}
	if cfg.Storage.ReviewDir == "" {
		cfg.Storage.ReviewDir = dataDir + "/review"
	}
	if cfg.TermFreq.Backend == "" {
		cfg.TermFreq.Backend = "sqlite"
	}
	if cfg.TermFreq.Path == "" && cfg.TermFreq.Backend == "sqlite" {
		cfg.TermFreq.Path = dataDir + "/db/termfreq.db"
	}
	if cfg.TermFreq.BleveIndexPath == "" {
		cfg.TermFreq.BleveIndexPath = dataDir + "/indices/termfreq.bleve"
	}
	if cfg.Diff.Strategy == "" {
		cfg.Diff.Strategy = "auto"
	}
	if cfg.Diff.LineHashThreshold == 0 {
		cfg.Diff.LineHashThreshold = 250_000
	}
	if cfg.Classify.MaxRemovedFraction == 0 {
		cfg.Classify.MaxRemovedFraction = 0.2
	}
	if cfg.Classify.MaxAddedFraction == 0 {
		cfg.Classify.MaxAddedFraction = 0.4
	}
	if cfg.Classify.MinTokens == 0 {
		cfg.Classify.MinTokens = 3
	}
	if cfg.Classify.MaxPlaceholderRatio == 0 {
		cfg.Classify.MaxPlaceholderRatio = 0.5
	}
	if cfg.Classify.MinAlphaRatio == 0 {
		cfg.Classify.MinAlphaRatio = 0.5
	}
	if cfg.Classify.Placeholders == nil {
		cfg.Classify.Placeholders = []string{"[MATH]", "[CITATION]", "[REF]"}
	}
	if cfg.Classify.TitleMarkers == nil {
		cfg.Classify.TitleMarkers = []string{"[TITLE]", "[SECTION]", "###"}
	}
	if cfg.Classify.BlankMarkers == nil {
		cfg.Classify.BlankMarkers = []string{"[BLANK]"}
	}
	if cfg.DP.MismatchPenalty == 0 {
		cfg.DP.MismatchPenalty = 0.1
	}
	if cfg.DP.MinSimilarity == 0 {
		cfg.DP.MinSimilarity = 0.5
	}
	if cfg.Review.Format == "" {
		cfg.Review.Format = "csv"
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
