package models

// Label is the aligning_method column of the manual-review table.
type Label int

const (
	// LabelAligned marks a pair a reviewer confirmed.
	LabelAligned Label = 1
	// LabelPartial marks a partial alignment. Merging it is not supported.
	LabelPartial Label = 2
	// LabelUnaligned is the default for exported rows.
	LabelUnaligned Label = 3
)

// RenumberEntry maps a review-table position back to a sentence id.
type RenumberEntry struct {
	Version   int        `json:"version"`
	Paragraph int        `json:"paragraph"`
	Sentence  int        `json:"sentence"`
	ID        SentenceID `json:"id"`
}

// Renumbering is the table written alongside a review export.
type Renumbering struct {
	Key     PairKey         `json:"key"`
	Entries []RenumberEntry `json:"entries"`
}

// ReviewRow is one line of the manual-review table.
type ReviewRow struct {
	PairID   string
	PairUID  string
	Sent0Idx string
	Sent0    string
	Sent1Idx string
	Sent1    string
	Method   string
}
