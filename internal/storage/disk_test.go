package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

func TestDiskSnapshots(t *testing.T) {
	root := filepath.Join(t.TempDir(), "snapshots")
	store, err := NewDiskSnapshots(root)
	if err != nil {
		t.Fatal(err)
	}
	testSnapshotStore(t, store)

	dir := filepath.Join(root, "math%2F0101001", "v1-v3")
	for _, name := range []string{"1.alignment.xz", "1.blake3", "2.alignment.xz", "2.blake3"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	// A tampered checksum file is detected on load.
	if err := os.WriteFile(filepath.Join(dir, "1.blake3"), []byte(strings.Repeat("0", 64)), 0644); err != nil {
		t.Fatal(err)
	}
	a := sampleAlignment(t)
	if _, err := store.LoadAlignmentRevision(context.Background(), a.Key, 1); !errors.Is(err, models.ErrChecksum) {
		t.Errorf("expected checksum error, got %v", err)
	}
}

func TestDiskSnapshots_IgnoresStrayFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskSnapshots(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a := sampleAlignment(t)
	if _, err := store.SaveAlignment(ctx, a); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, "math%2F0101001", "v1-v3")
	for _, name := range []string{"notes.txt", "draft.alignment.xz", "old"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	revs, err := store.AlignmentRevisions(ctx, a.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 || revs[0].Number != 1 {
		t.Fatalf("revisions = %+v, want only revision 1", revs)
	}

	// The next save continues numbering after the stray files.
	rev, err := store.SaveAlignment(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Number != 2 {
		t.Errorf("next revision = %d, want 2", rev.Number)
	}

	other := models.PairKey{PaperID: "2101.00001", Version1: 1, Version2: 2}
	if revs, err := store.AlignmentRevisions(ctx, other); err != nil || len(revs) != 0 {
		t.Errorf("unknown pair revisions = %v, %v", revs, err)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	root := t.TempDir()
	db := filepath.Join(root, "alignments.db")
	review := filepath.Join(root, "review")
	snapshots := filepath.Join(root, "snapshots", "1801.00001", "v1-v2")
	for _, dir := range []string{review, snapshots} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	files := map[string]int{
		db: 10,
		filepath.Join(review, "1801.00001_v1_v2.csv"): 4,
		filepath.Join(snapshots, "1.alignment.xz"):     6,
		filepath.Join(snapshots, "1.blake3"):           3,
	}
	for path, size := range files {
		if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database only", []string{db}, 10},
		{"review directory", []string{review}, 4},
		{"nested snapshot tree", []string{filepath.Join(root, "snapshots")}, 9},
		{"everything", []string{db, review, filepath.Join(root, "snapshots")}, 23},
		{"missing paths skipped", []string{filepath.Join(root, "absent"), db}, 10},
		{"empty paths skipped", []string{"", review, ""}, 4},
		{"none", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes(%v) = %d, want %d", tt.paths, got, tt.want)
			}
		})
	}
}
