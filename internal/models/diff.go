package models

// Tag is the edit operation of a DiffEntry.
type Tag int

const (
	// Keep marks a sentence present unchanged in both versions.
	Keep Tag = iota
	// Insert marks a sentence only present in version 2.
	Insert
	// Delete marks a sentence only present in version 1.
	Delete
)

// String returns a human-readable label for the tag.
func (t Tag) String() string {
	switch t {
	case Keep:
		return "KEEP"
	case Insert:
		return "INSERT"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// DiffEntry is one step of an edit script.
type DiffEntry struct {
	Tag  Tag    `json:"tag"`
	Text string `json:"text"`
}

// IsSentinel reports whether the entry is a paragraph separator.
func (e DiffEntry) IsSentinel() bool {
	return e.Text == Sentinel
}

// Version1 reconstructs the first input from KEEP and DELETE entries.
func Version1(entries []DiffEntry) []string {
	return reconstruct(entries, Delete)
}

// Version2 reconstructs the second input from KEEP and INSERT entries.
func Version2(entries []DiffEntry) []string {
	return reconstruct(entries, Insert)
}

func reconstruct(entries []DiffEntry, side Tag) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Tag == Keep || e.Tag == side {
			out = append(out, e.Text)
		}
	}
	return out
}
