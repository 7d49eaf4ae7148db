package termfreq

import (
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	regexptokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
)

// BleveIndex derives document frequencies from a Bleve full-text index of sentence text.
type BleveIndex struct {
	index bleve.Index
}

type bleveDoc struct {
	Content string `json:"content"`
}

const (
	wordAnalyzer  = "words"
	wordTokenizer = "letters_digits"
	// wordPattern splits text the same way utils.Tokenize does, so "don't" indexes as "don" and "t".
	wordPattern = `[\p{L}\p{Nd}]+`
)

// NewBleveIndex creates or opens a Bleve index at path.
// Content is lowercased and tokenized with no stemming or stop words so counts line up with raw words.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomTokenizer(wordTokenizer, map[string]interface{}{
		"type":   regexptokenizer.Name,
		"regexp": wordPattern,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register tokenizer: %w", err)
	}
	err = im.AddCustomAnalyzer(wordAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     wordTokenizer,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = wordAnalyzer
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Add indexes text as one corpus document.
func (b *BleveIndex) Add(id, text string) error {
	return b.index.Index(id, bleveDoc{Content: text})
}

// AddBatch indexes many documents in one batch.
func (b *BleveIndex) AddBatch(docs map[string]string) error {
	batch := b.index.NewBatch()
	for id, text := range docs {
		if err := batch.Index(id, bleveDoc{Content: text}); err != nil {
			return err
		}
	}
	return b.index.Batch(batch)
}

// Documents implements Index.
func (b *BleveIndex) Documents() (int, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return int(n), nil
}

// DocFreq implements Index.
func (b *BleveIndex) DocFreq(word string) (int, bool, error) {
	q := bleve.NewTermQuery(strings.ToLower(word))
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := b.index.Search(req)
	if err != nil {
		return 0, false, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(res.Total), res.Total > 0, nil
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
