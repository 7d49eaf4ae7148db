package alignment

import (
	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

type position struct {
	paragraph int
	sentence  int
}

func (p *position) next() { p.sentence++ }

func (p *position) newParagraph() {
	p.paragraph++
	p.sentence = 0
}

// Identity walks a diff of the flattened documents and assigns sentence ids.
// KEEP entries become aligned pairs sharing one text; DELETE and INSERT entries are registered unaligned.
// Paragraph sentinels advance the paragraph counter of the version(s) they belong to and start a new
// segment; they produce no record.
func Identity(key models.PairKey, entries []models.DiffEntry) (*Alignment, []*models.SentenceRecord, error) {
	a, err := New(key)
	if err != nil {
		return nil, nil, err
	}
	var p1, p2 position
	segment := 0
	records := make([]*models.SentenceRecord, 0, len(entries))

	id := func(version int, p position) models.SentenceID {
		return models.SentenceID{PaperID: key.PaperID, Version: version, Paragraph: p.paragraph, Sentence: p.sentence}
	}

	for i, e := range entries {
		if e.IsSentinel() {
			segment++
			switch e.Tag {
			case models.Keep:
				p1.newParagraph()
				p2.newParagraph()
			case models.Delete:
				p1.newParagraph()
			case models.Insert:
				p2.newParagraph()
			}
			continue
		}
		switch e.Tag {
		case models.Keep:
			id1, id2 := id(key.Version1, p1), id(key.Version2, p2)
			if err := a.AddSentence(id1, e.Text); err != nil {
				return nil, nil, err
			}
			if err := a.AddSentence(id2, e.Text); err != nil {
				return nil, nil, err
			}
			if err := a.Connect(id1, id2); err != nil {
				return nil, nil, err
			}
			records = append(records, models.NewSentenceRecord(i, segment, e, id1, id2))
			p1.next()
			p2.next()
		case models.Delete:
			id1 := id(key.Version1, p1)
			if err := a.AddSentence(id1, e.Text); err != nil {
				return nil, nil, err
			}
			records = append(records, models.NewSentenceRecord(i, segment, e, id1))
			p1.next()
		case models.Insert:
			id2 := id(key.Version2, p2)
			if err := a.AddSentence(id2, e.Text); err != nil {
				return nil, nil, err
			}
			records = append(records, models.NewSentenceRecord(i, segment, e, id2))
			p2.next()
		}
	}
	return a, records, nil
}
