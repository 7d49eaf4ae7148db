// Package storage defines persistence for documents, alignment snapshots and review renumbering.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

// ErrNoRenumbering is returned when a pair has never been exported for review.
var ErrNoRenumbering = errors.New("no renumbering stored")

// Revision describes one immutable snapshot of an alignment.
type Revision struct {
	Number    int       `json:"revision"`
	Checksum  string    `json:"checksum"`
	Edges     int       `json:"edges"`
	Sentences int       `json:"sentences"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotStore persists alignments. Every save adds a revision; nothing is overwritten.
type SnapshotStore interface {
	SaveAlignment(ctx context.Context, a *alignment.Alignment) (Revision, error)
	// LoadAlignment returns the latest revision. Missing keys yield ErrSnapshotNotFound.
	LoadAlignment(ctx context.Context, key models.PairKey) (*alignment.Alignment, Revision, error)
	LoadAlignmentRevision(ctx context.Context, key models.PairKey, revision int) (*alignment.Alignment, error)
	AlignmentRevisions(ctx context.Context, key models.PairKey) ([]Revision, error)
}

// Storage defines document, snapshot and renumbering persistence operations.
type Storage interface {
	// Document operations
	PutDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, paperID string, version int) (*models.Document, error)
	ListPapers(ctx context.Context) ([]string, error)
	ListVersions(ctx context.Context, paperID string) ([]int, error)
	ListPairs(ctx context.Context) ([]models.PairKey, error)

	SnapshotStore

	// Review operations
	SaveRenumbering(ctx context.Context, ren models.Renumbering) error
	LoadRenumbering(ctx context.Context, key models.PairKey) (models.Renumbering, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountSentences(ctx context.Context) (int64, error)
	CountSnapshots(ctx context.Context) (int64, error)

	Close() error
}
