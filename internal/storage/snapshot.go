package storage

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/alignment"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

type snapshotSentence struct {
	ID   models.SentenceID `json:"id"`
	Text string            `json:"text"`
}

// snapshotPayload is the serialized alignment: the lookup plus the edge set.
// Both directions of the graph are rebuilt from the edges on load.
type snapshotPayload struct {
	Key       models.PairKey     `json:"key"`
	Sentences []snapshotSentence `json:"sentences"`
	Edges     []alignment.Edge   `json:"edges"`
}

// EncodeSnapshot serializes a to xz-compressed JSON and returns the blob with its BLAKE3 hex checksum.
func EncodeSnapshot(a *alignment.Alignment) ([]byte, string, error) {
	p := snapshotPayload{Key: a.Key, Edges: a.Edges()}
	for _, v := range []int{a.Key.Version1, a.Key.Version2} {
		for _, id := range a.Sentences(v) {
			text, _ := a.Text(id)
			p.Sentences = append(p.Sentences, snapshotSentence{ID: id, Text: text})
		}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	blob := buf.Bytes()
	return blob, Checksum(blob), nil
}

// DecodeSnapshot verifies blob against checksum and rebuilds the alignment.
func DecodeSnapshot(blob []byte, checksum string) (*alignment.Alignment, error) {
	if got := Checksum(blob); got != checksum {
		return nil, fmt.Errorf("%w: have %s, want %s", models.ErrChecksum, got, checksum)
	}
	r, err := xz.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to open xz stream: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	var p snapshotPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	a, err := alignment.New(p.Key)
	if err != nil {
		return nil, err
	}
	for _, s := range p.Sentences {
		if err := a.AddSentence(s.ID, s.Text); err != nil {
			return nil, fmt.Errorf("corrupt snapshot: %w", err)
		}
	}
	for _, e := range p.Edges {
		if err := a.Connect(e.From, e.To); err != nil {
			return nil, fmt.Errorf("corrupt snapshot: %w", err)
		}
	}
	return a, nil
}

// Checksum returns the BLAKE3-256 hex digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
