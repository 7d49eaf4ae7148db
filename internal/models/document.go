package models

import "strings"

// Sentinel is the empty-string marker inserted between paragraphs when a document is flattened.
const Sentinel = ""

// Document is one version of a paper: ordered paragraphs of ordered sentences.
type Document struct {
	PaperID    string     `json:"paper_id"`
	Version    int        `json:"version"`
	Paragraphs [][]string `json:"paragraphs"`
}

// Flatten returns the sentences in order with a Sentinel between consecutive paragraphs.
func (d *Document) Flatten() []string {
	out := make([]string, 0, d.SentenceCount()+len(d.Paragraphs))
	for i, para := range d.Paragraphs {
		if i > 0 {
			out = append(out, Sentinel)
		}
		out = append(out, para...)
	}
	return out
}

// SentenceCount returns the number of sentences across all paragraphs.
func (d *Document) SentenceCount() int {
	n := 0
	for _, p := range d.Paragraphs {
		n += len(p)
	}
	return n
}

// Normalize trims sentences and drops blank ones so that no real sentence can collide with the Sentinel.
// Paragraphs left empty are dropped as well.
func (d *Document) Normalize() {
	paras := d.Paragraphs[:0]
	for _, p := range d.Paragraphs {
		kept := make([]string, 0, len(p))
		for _, s := range p {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" {
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) > 0 {
			paras = append(paras, kept)
		}
	}
	d.Paragraphs = paras
}

// Unflatten rebuilds paragraphs from a flattened sentence list.
func Unflatten(lines []string) [][]string {
	if len(lines) == 0 {
		return nil
	}
	paras := [][]string{{}}
	for _, l := range lines {
		if l == Sentinel {
			paras = append(paras, []string{})
			continue
		}
		paras[len(paras)-1] = append(paras[len(paras)-1], l)
	}
	return paras
}
