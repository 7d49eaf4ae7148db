// Package termfreq provides read-only document-frequency lookups for idf weighting.
package termfreq

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Index answers corpus statistics. Implementations are read-only from the aligner's point of view.
type Index interface {
	// Documents returns the number of documents in the corpus.
	Documents() (int, error)
	// DocFreq returns how many documents contain word. ok is false when the word is unknown.
	DocFreq(word string) (df int, ok bool, err error)
}

// MemoryIndex is an in-memory Index, mostly for tests and small corpora.
type MemoryIndex struct {
	docs  int
	freqs map[string]int
}

// NewMemoryIndex returns an index over docs documents with the given frequencies.
func NewMemoryIndex(docs int, freqs map[string]int) *MemoryIndex {
	m := &MemoryIndex{docs: docs, freqs: make(map[string]int, len(freqs))}
	for w, n := range freqs {
		m.freqs[strings.ToLower(w)] = n
	}
	return m
}

// Documents implements Index.
func (m *MemoryIndex) Documents() (int, error) { return m.docs, nil }

// DocFreq implements Index.
func (m *MemoryIndex) DocFreq(word string) (int, bool, error) {
	n, ok := m.freqs[strings.ToLower(word)]
	return n, ok, nil
}

// Entry is one parsed line of a term-frequency dump.
type Entry struct {
	Word string
	DF   int
}

// ParseTSV reads a dump made of an optional "#documents <N>" header followed by "word<TAB>df" lines.
// Blank lines and other "#" comments are ignored.
func ParseTSV(r io.Reader, fn func(Entry) error) (docs int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			fields := strings.Fields(strings.TrimPrefix(text, "#"))
			if len(fields) == 2 && fields[0] == "documents" {
				docs, err = strconv.Atoi(fields[1])
				if err != nil {
					return 0, fmt.Errorf("line %d: invalid document count: %w", line, err)
				}
			}
			continue
		}
		word, df, found := strings.Cut(text, "\t")
		if !found {
			return 0, fmt.Errorf("line %d: expected word<TAB>df", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(df))
		if err != nil {
			return 0, fmt.Errorf("line %d: invalid df: %w", line, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("line %d: negative df %d", line, n)
		}
		if err := fn(Entry{Word: strings.ToLower(strings.TrimSpace(word)), DF: n}); err != nil {
			return 0, err
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("failed to read term frequencies: %w", err)
	}
	return docs, nil
}

// LoadMemoryIndex reads a TSV dump into a MemoryIndex.
func LoadMemoryIndex(r io.Reader) (*MemoryIndex, error) {
	freqs := make(map[string]int)
	docs, err := ParseTSV(r, func(e Entry) error {
		freqs[e.Word] = e.DF
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &MemoryIndex{docs: docs, freqs: freqs}, nil
}
