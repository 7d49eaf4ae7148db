// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers from batch workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sentences (
		paper_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		paragraph INTEGER NOT NULL,
		sentence INTEGER NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (paper_id, version, paragraph, sentence)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		paper_id TEXT NOT NULL,
		version1 INTEGER NOT NULL,
		version2 INTEGER NOT NULL,
		revision INTEGER NOT NULL,
		blob BLOB NOT NULL,
		checksum TEXT NOT NULL,
		edges INTEGER NOT NULL,
		sentences INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (paper_id, version1, version2, revision)
	);

	CREATE TABLE IF NOT EXISTS review_index (
		paper_id TEXT NOT NULL,
		version1 INTEGER NOT NULL,
		version2 INTEGER NOT NULL,
		entries TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (paper_id, version1, version2)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PutDocument replaces every sentence of (paper, version) with doc's paragraphs.
func (s *SQLiteStorage) PutDocument(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sentences WHERE paper_id = ? AND version = ?`, doc.PaperID, doc.Version); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sentences (paper_id, version, paragraph, sentence, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for p, para := range doc.Paragraphs {
		for i, text := range para {
			if _, err := stmt.ExecContext(ctx, doc.PaperID, doc.Version, p, i, text); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetDocument returns the sentences of (paper, version). A version without sentences is a MissingInputError.
func (s *SQLiteStorage) GetDocument(ctx context.Context, paperID string, version int) (*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paragraph, text FROM sentences
		 WHERE paper_id = ? AND version = ? ORDER BY paragraph, sentence`,
		paperID, version,
	)
	if err != nil {
		return nil, &models.MissingInputError{PaperID: paperID, Version: version, Err: err}
	}
	defer rows.Close()

	doc := &models.Document{PaperID: paperID, Version: version}
	last := -1
	for rows.Next() {
		var para int
		var text string
		if err := rows.Scan(&para, &text); err != nil {
			return nil, err
		}
		if para != last {
			doc.Paragraphs = append(doc.Paragraphs, nil)
			last = para
		}
		doc.Paragraphs[len(doc.Paragraphs)-1] = append(doc.Paragraphs[len(doc.Paragraphs)-1], text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(doc.Paragraphs) == 0 {
		return nil, &models.MissingInputError{PaperID: paperID, Version: version}
	}
	return doc, nil
}

// ListPapers returns every paper id with at least one sentence, sorted.
func (s *SQLiteStorage) ListPapers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT paper_id FROM sentences ORDER BY paper_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListVersions returns the stored versions of a paper in ascending order.
func (s *SQLiteStorage) ListVersions(ctx context.Context, paperID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT version FROM sentences WHERE paper_id = ? ORDER BY version`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListPairs returns consecutive stored versions of every paper.
func (s *SQLiteStorage) ListPairs(ctx context.Context) ([]models.PairKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT paper_id, version FROM sentences ORDER BY paper_id, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PairKey
	prevPaper, prevVersion := "", 0
	first := true
	for rows.Next() {
		var paper string
		var v int
		if err := rows.Scan(&paper, &v); err != nil {
			return nil, err
		}
		if !first && paper == prevPaper {
			out = append(out, models.PairKey{PaperID: paper, Version1: prevVersion, Version2: v})
		}
		prevPaper, prevVersion, first = paper, v, false
	}
	return out, rows.Err()
}

// SaveAlignment stores a as the next revision of its key.
func (s *SQLiteStorage) SaveAlignment(ctx context.Context, a *alignment.Alignment) (Revision, error) {
	blob, checksum, err := EncodeSnapshot(a)
	if err != nil {
		return Revision{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, err
	}
	defer tx.Rollback()

	var latest sql.NullInt64
	k := a.Key
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(revision) FROM snapshots WHERE paper_id = ? AND version1 = ? AND version2 = ?`,
		k.PaperID, k.Version1, k.Version2,
	).Scan(&latest); err != nil {
		return Revision{}, err
	}
	rev := Revision{
		Number:    int(latest.Int64) + 1,
		Checksum:  checksum,
		Edges:     a.EdgeCount(),
		Sentences: len(a.Sentences(k.Version1)) + len(a.Sentences(k.Version2)),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (paper_id, version1, version2, revision, blob, checksum, edges, sentences, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.PaperID, k.Version1, k.Version2, rev.Number, blob, checksum, rev.Edges, rev.Sentences, rev.CreatedAt,
	); err != nil {
		return Revision{}, err
	}
	return rev, tx.Commit()
}

// LoadAlignment returns the latest revision for key.
func (s *SQLiteStorage) LoadAlignment(ctx context.Context, key models.PairKey) (*alignment.Alignment, Revision, error) {
	revs, err := s.AlignmentRevisions(ctx, key)
	if err != nil {
		return nil, Revision{}, err
	}
	if len(revs) == 0 {
		return nil, Revision{}, fmt.Errorf("%s: %w", key, models.ErrSnapshotNotFound)
	}
	latest := revs[len(revs)-1]
	a, err := s.LoadAlignmentRevision(ctx, key, latest.Number)
	return a, latest, err
}

// LoadAlignmentRevision returns one specific revision for key.
func (s *SQLiteStorage) LoadAlignmentRevision(ctx context.Context, key models.PairKey, revision int) (*alignment.Alignment, error) {
	var blob []byte
	var checksum string
	err := s.db.QueryRowContext(ctx,
		`SELECT blob, checksum FROM snapshots
		 WHERE paper_id = ? AND version1 = ? AND version2 = ? AND revision = ?`,
		key.PaperID, key.Version1, key.Version2, revision,
	).Scan(&blob, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s revision %d: %w", key, revision, models.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(blob, checksum)
}

// AlignmentRevisions lists the revisions of key in ascending order.
func (s *SQLiteStorage) AlignmentRevisions(ctx context.Context, key models.PairKey) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT revision, checksum, edges, sentences, created_at FROM snapshots
		 WHERE paper_id = ? AND version1 = ? AND version2 = ? ORDER BY revision`,
		key.PaperID, key.Version1, key.Version2,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.Number, &r.Checksum, &r.Edges, &r.Sentences, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRenumbering stores the renumbering of the most recent review export for its key.
func (s *SQLiteStorage) SaveRenumbering(ctx context.Context, ren models.Renumbering) error {
	entries, err := json.Marshal(ren.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal renumbering: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_index (paper_id, version1, version2, entries, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id, version1, version2) DO UPDATE SET entries = excluded.entries, updated_at = excluded.updated_at`,
		ren.Key.PaperID, ren.Key.Version1, ren.Key.Version2, string(entries), time.Now().UTC(),
	)
	return err
}

// LoadRenumbering returns the stored renumbering for key.
func (s *SQLiteStorage) LoadRenumbering(ctx context.Context, key models.PairKey) (models.Renumbering, error) {
	var entries string
	err := s.db.QueryRowContext(ctx,
		`SELECT entries FROM review_index WHERE paper_id = ? AND version1 = ? AND version2 = ?`,
		key.PaperID, key.Version1, key.Version2,
	).Scan(&entries)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Renumbering{}, fmt.Errorf("%s: %w", key, ErrNoRenumbering)
	}
	if err != nil {
		return models.Renumbering{}, err
	}
	ren := models.Renumbering{Key: key}
	if err := json.Unmarshal([]byte(entries), &ren.Entries); err != nil {
		return models.Renumbering{}, fmt.Errorf("failed to unmarshal renumbering: %w", err)
	}
	sort.SliceStable(ren.Entries, func(i, j int) bool { return ren.Entries[i].ID.Less(ren.Entries[j].ID) })
	return ren, nil
}

// CountDocuments returns the number of stored (paper, version) documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT DISTINCT paper_id, version FROM sentences)`).Scan(&count)
	return count, err
}

// CountSentences returns the total number of stored sentences.
func (s *SQLiteStorage) CountSentences(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences`).Scan(&count)
	return count, err
}

// CountSnapshots returns the number of stored snapshot revisions.
func (s *SQLiteStorage) CountSnapshots(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
