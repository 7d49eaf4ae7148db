package termfreq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteIndex stores document frequencies in a SQLite table.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens or creates the term-frequency database at dbPath.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create term frequency directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open term frequency database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS term_frequencies (
		word TEXT PRIMARY KEY,
		df INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS term_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize term frequency schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// ImportTSV replaces the table contents with a dump in ParseTSV format. Returns the number of words loaded.
func (s *SQLiteIndex) ImportTSV(ctx context.Context, r io.Reader) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_frequencies`); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO term_frequencies (word, df) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	docs, err := ParseTSV(r, func(e Entry) error {
		n++
		_, err := stmt.ExecContext(ctx, e.Word, e.DF)
		return err
	})
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO term_meta (key, value) VALUES ('documents', ?)`, strconv.Itoa(docs)); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Documents implements Index.
func (s *SQLiteIndex) Documents() (int, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM term_meta WHERE key = 'documents'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// DocFreq implements Index.
func (s *SQLiteIndex) DocFreq(word string) (int, bool, error) {
	var df int
	err := s.db.QueryRow(`SELECT df FROM term_frequencies WHERE word = ?`, strings.ToLower(word)).Scan(&df)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return df, true, nil
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
