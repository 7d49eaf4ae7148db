package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

const (
	snapshotExt = ".alignment.xz"
	checksumExt = ".blake3"
)

// DiskSnapshots stores revisions as files: <root>/<paper>/v<v1>-v<v2>/<rev>.alignment.xz,
// each with a sibling <rev>.blake3 checksum file.
type DiskSnapshots struct {
	root string
}

// NewDiskSnapshots returns a store rooted at root, creating it if needed.
func NewDiskSnapshots(root string) (*DiskSnapshots, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &DiskSnapshots{root: root}, nil
}

// Root returns the snapshot directory.
func (d *DiskSnapshots) Root() string { return d.root }

func (d *DiskSnapshots) dir(key models.PairKey) string {
	return filepath.Join(d.root, url.PathEscape(key.PaperID), fmt.Sprintf("v%d-v%d", key.Version1, key.Version2))
}

// SaveAlignment writes a as the next revision. Existing files are never replaced.
func (d *DiskSnapshots) SaveAlignment(ctx context.Context, a *alignment.Alignment) (Revision, error) {
	blob, checksum, err := EncodeSnapshot(a)
	if err != nil {
		return Revision{}, err
	}
	dir := d.dir(a.Key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Revision{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	revs, err := d.AlignmentRevisions(ctx, a.Key)
	if err != nil {
		return Revision{}, err
	}
	n := 1
	if len(revs) > 0 {
		n = revs[len(revs)-1].Number + 1
	}
	base := filepath.Join(dir, strconv.Itoa(n))
	f, err := os.OpenFile(base+snapshotExt, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to create snapshot revision %d: %w", n, err)
	}
	if _, err := f.Write(blob); err != nil {
		_ = f.Close()
		return Revision{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return Revision{}, err
	}
	if err := os.WriteFile(base+checksumExt, []byte(checksum+"\n"), 0644); err != nil {
		return Revision{}, fmt.Errorf("failed to write checksum: %w", err)
	}
	info, err := os.Stat(base + snapshotExt)
	if err != nil {
		return Revision{}, err
	}
	k := a.Key
	return Revision{
		Number:    n,
		Checksum:  checksum,
		Edges:     a.EdgeCount(),
		Sentences: len(a.Sentences(k.Version1)) + len(a.Sentences(k.Version2)),
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

// LoadAlignment returns the latest revision for key.
func (d *DiskSnapshots) LoadAlignment(ctx context.Context, key models.PairKey) (*alignment.Alignment, Revision, error) {
	revs, err := d.AlignmentRevisions(ctx, key)
	if err != nil {
		return nil, Revision{}, err
	}
	if len(revs) == 0 {
		return nil, Revision{}, fmt.Errorf("%s: %w", key, models.ErrSnapshotNotFound)
	}
	latest := revs[len(revs)-1]
	a, err := d.LoadAlignmentRevision(ctx, key, latest.Number)
	if err != nil {
		return nil, Revision{}, err
	}
	latest.Edges = a.EdgeCount()
	latest.Sentences = len(a.Sentences(key.Version1)) + len(a.Sentences(key.Version2))
	return a, latest, nil
}

// LoadAlignmentRevision reads and verifies one revision.
func (d *DiskSnapshots) LoadAlignmentRevision(_ context.Context, key models.PairKey, revision int) (*alignment.Alignment, error) {
	base := filepath.Join(d.dir(key), strconv.Itoa(revision))
	blob, err := os.ReadFile(base + snapshotExt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s revision %d: %w", key, revision, models.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, err
	}
	sum, err := os.ReadFile(base + checksumExt)
	if err != nil {
		return nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	return DecodeSnapshot(blob, strings.TrimSpace(string(sum)))
}

// AlignmentRevisions lists revisions on disk in ascending order. Edge and sentence counts are not
// known without decoding and are left zero.
func (d *DiskSnapshots) AlignmentRevisions(_ context.Context, key models.PairKey) ([]Revision, error) {
	entries, err := os.ReadDir(d.dir(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Revision
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, snapshotExt))
		if err != nil {
			continue
		}
		rev := Revision{Number: n}
		if info, err := e.Info(); err == nil {
			rev.CreatedAt = info.ModTime().UTC()
		}
		if sum, err := os.ReadFile(filepath.Join(d.dir(key), strconv.Itoa(n)+checksumExt)); err == nil {
			rev.Checksum = strings.TrimSpace(string(sum))
		}
		out = append(out, rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped; errors during the walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
