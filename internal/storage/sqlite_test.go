package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

func newStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "sub", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Documents(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	doc := &models.Document{PaperID: "1701.00001", Version: 1, Paragraphs: [][]string{{"a", "b"}, {"c"}}}
	if err := store.PutDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetDocument(ctx, "1701.00001", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Paragraphs) != 2 || got.Paragraphs[0][1] != "b" || got.Paragraphs[1][0] != "c" {
		t.Errorf("got %+v", got.Paragraphs)
	}

	// Re-put replaces the version.
	doc.Paragraphs = [][]string{{"z"}}
	if err := store.PutDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "1701.00001", 1)
	if len(got.Paragraphs) != 1 || got.Paragraphs[0][0] != "z" {
		t.Errorf("after replace got %+v", got.Paragraphs)
	}

	_, err = store.GetDocument(ctx, "1701.00001", 2)
	if !errors.Is(err, models.ErrMissingInput) {
		t.Errorf("expected missing input, got %v", err)
	}
	var mi *models.MissingInputError
	if !errors.As(err, &mi) || mi.Version != 2 {
		t.Errorf("expected MissingInputError for v2, got %v", err)
	}
}

func TestSQLiteStorage_ListPairs(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, d := range []struct {
		paper string
		v     int
	}{{"b", 1}, {"a", 3}, {"a", 1}, {"a", 2}, {"c", 5}} {
		doc := &models.Document{PaperID: d.paper, Version: d.v, Paragraphs: [][]string{{"x"}}}
		if err := store.PutDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}
	pairs, err := store.ListPairs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.PairKey{
		{PaperID: "a", Version1: 1, Version2: 2},
		{PaperID: "a", Version1: 2, Version2: 3},
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d: got %v, want %v", i, pairs[i], want[i])
		}
	}

	papers, _ := store.ListPapers(ctx)
	if len(papers) != 3 {
		t.Errorf("expected 3 papers, got %v", papers)
	}
	versions, _ := store.ListVersions(ctx, "a")
	if len(versions) != 3 || versions[0] != 1 || versions[2] != 3 {
		t.Errorf("got versions %v", versions)
	}
	if n, _ := store.CountDocuments(ctx); n != 5 {
		t.Errorf("CountDocuments = %d, want 5", n)
	}
	if n, _ := store.CountSentences(ctx); n != 5 {
		t.Errorf("CountSentences = %d, want 5", n)
	}
}

func sampleAlignment(t *testing.T) *alignment.Alignment {
	t.Helper()
	key := models.PairKey{PaperID: "math/0101001", Version1: 1, Version2: 3}
	a, err := alignment.New(key)
	if err != nil {
		t.Fatal(err)
	}
	id1 := models.SentenceID{PaperID: key.PaperID, Version: 1}
	id2 := models.SentenceID{PaperID: key.PaperID, Version: 3}
	id3 := models.SentenceID{PaperID: key.PaperID, Version: 3, Sentence: 1}
	for id, text := range map[models.SentenceID]string{id1: "one", id2: "one", id3: "two"} {
		if err := a.AddSentence(id, text); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Connect(id1, id2); err != nil {
		t.Fatal(err)
	}
	return a
}

func testSnapshotStore(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	a := sampleAlignment(t)

	if _, _, err := store.LoadAlignment(ctx, a.Key); !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rev1, err := store.SaveAlignment(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if rev1.Number != 1 || rev1.Edges != 1 || rev1.Sentences != 3 {
		t.Errorf("rev1 = %+v", rev1)
	}

	b := a.Clone()
	if err := b.Connect(models.SentenceID{PaperID: a.Key.PaperID, Version: 1}, models.SentenceID{PaperID: a.Key.PaperID, Version: 3, Sentence: 1}); err != nil {
		t.Fatal(err)
	}
	rev2, err := store.SaveAlignment(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if rev2.Number != 2 {
		t.Errorf("rev2 = %+v", rev2)
	}

	latest, rev, err := store.LoadAlignment(ctx, a.Key)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Number != 2 || !latest.Equal(b) {
		t.Errorf("latest revision mismatch: %+v", rev)
	}
	if err := latest.CheckSymmetry(); err != nil {
		t.Error(err)
	}

	first, err := store.LoadAlignmentRevision(ctx, a.Key, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(a) {
		t.Error("revision 1 should be unchanged after saving revision 2")
	}

	if _, err := store.LoadAlignmentRevision(ctx, a.Key, 9); !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	revs, err := store.AlignmentRevisions(ctx, a.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 || revs[0].Checksum != rev1.Checksum {
		t.Errorf("revisions = %+v", revs)
	}
}

func TestSQLiteStorage_Snapshots(t *testing.T) {
	store := newStore(t)
	testSnapshotStore(t, store)
	if n, _ := store.CountSnapshots(context.Background()); n != 2 {
		t.Errorf("CountSnapshots = %d, want 2", n)
	}
}

func TestSQLiteStorage_Renumbering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	key := models.PairKey{PaperID: "p", Version1: 1, Version2: 2}

	if _, err := store.LoadRenumbering(ctx, key); !errors.Is(err, ErrNoRenumbering) {
		t.Fatalf("expected ErrNoRenumbering, got %v", err)
	}
	ren := models.Renumbering{Key: key, Entries: []models.RenumberEntry{
		{Version: 1, Paragraph: 0, Sentence: 0, ID: models.SentenceID{PaperID: "p", Version: 1, Paragraph: 4, Sentence: 2}},
		{Version: 2, Paragraph: 0, Sentence: 0, ID: models.SentenceID{PaperID: "p", Version: 2, Paragraph: 1, Sentence: 0}},
	}}
	if err := store.SaveRenumbering(ctx, ren); err != nil {
		t.Fatal(err)
	}
	ren.Entries = ren.Entries[:1]
	if err := store.SaveRenumbering(ctx, ren); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadRenumbering(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != key || len(got.Entries) != 1 || got.Entries[0] != ren.Entries[0] {
		t.Errorf("got %+v", got)
	}
}
