package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "./test.db"
classify:
  max_added_fraction: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if want := filepath.Join(filepath.Dir(path), "test.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Classify.MaxAddedFraction != 0.5 {
		t.Errorf("max_added_fraction = %v, want 0.5", cfg.Classify.MaxAddedFraction)
	}
	if cfg.Classify.MaxRemovedFraction != 0.2 || cfg.Classify.MinTokens != 3 {
		t.Errorf("classify defaults not applied: %+v", cfg.Classify)
	}
	if cfg.Diff.Strategy != "auto" || cfg.Review.Format != "csv" || cfg.Storage.SnapshotBackend != "sqlite" {
		t.Errorf("defaults not applied: %+v %+v %+v", cfg.Diff, cfg.Review, cfg.Storage)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad strategy", "diff:\n  strategy: fancy\n", "Strategy"},
		{"bad fraction", "classify:\n  max_removed_fraction: 1.5\n", "MaxRemovedFraction"},
		{"bad format", "review:\n  format: pdf\n", "Format"},
		{"bad port", "server:\n  port: 70000\n", "Port"},
		{"not yaml", "server: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv(EnvDatabasePath, "/tmp/override.db")
	t.Setenv(EnvDebug, "true")
	cfg, err := Load(writeConfig(t, "storage:\n  database_path: ./file.db\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.DatabasePath != "/tmp/override.db" {
		t.Errorf("database_path = %q", cfg.Storage.DatabasePath)
	}
	if !cfg.Debug {
		t.Error("debug should come from the environment")
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("", "/cfg"); got != "" {
		t.Errorf("empty path expanded to %q", got)
	}
	if got := expandPath("/abs/x", "/cfg"); got != "/abs/x" {
		t.Errorf("absolute path changed to %q", got)
	}
	if got := expandPath("./x", "/cfg"); got != "/cfg/x" {
		t.Errorf("dot-slash path = %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		if got := expandPath("data/x", "/cfg"); got != filepath.Join(home, "data/x") {
			t.Errorf("home-relative path = %q", got)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.DP.Enabled = true
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.DP.Enabled || loaded.DP.MinSimilarity != cfg.DP.MinSimilarity {
		t.Errorf("loaded %+v", loaded.DP)
	}
}
