// Package djvutext extracts text blocks from a flat OCR text stream paired
// with a page offset index (the _djvu.txt / pageindex derivative pair). This
// is the fast ingestion path: no markup to walk, no positional metadata, one
// block per non-empty line of each page's slice.
package djvutext

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

// PageSpan is one entry of the page offset index: character offsets into the
// text stream plus auxiliary byte offsets into the source container.
type PageSpan struct {
	CharStart int
	CharEnd   int
	AuxStart  int
	AuxEnd    int
}

// ParsePageIndex decodes a pageindex resource: a JSON array of four-element
// integer arrays, one per page in leaf order.
func ParsePageIndex(data []byte) ([]PageSpan, error) {
	var raw [][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, catalog.NewParseError("pageindex", "malformed index document", err)
	}
	spans := make([]PageSpan, 0, len(raw))
	for i, entry := range raw {
		if len(entry) != 4 {
			return nil, catalog.NewParseError("pageindex",
				fmt.Sprintf("entry %d has %d elements, want 4", i, len(entry)), nil)
		}
		spans = append(spans, PageSpan{
			CharStart: entry[0],
			CharEnd:   entry[1],
			AuxStart:  entry[2],
			AuxEnd:    entry[3],
		})
	}
	return spans, nil
}

// Parse slices the text stream by the index and emits one text block per
// non-empty trimmed line. Leaf numbers are index positions; block numbers
// restart per leaf. No bbox, confidence or font size is available in this
// mode.
//
// Index offsets count characters, not bytes: a multibyte rune advances the
// offset by one.
func Parse(text []byte, index []PageSpan) ([]catalog.TextBlock, error) {
	if len(index) == 0 {
		return nil, catalog.NewParseError("plaintext", "empty page index", nil)
	}
	content := []rune(string(text))

	var blocks []catalog.TextBlock
	for leaf, span := range index {
		start, end := span.CharStart, span.CharEnd
		if start < 0 || end < start || end > len(content) {
			return nil, catalog.NewParseError("plaintext",
				fmt.Sprintf("page %d span [%d:%d) out of range", leaf, start, end), nil)
		}
		number := 0
		for _, line := range strings.Split(string(content[start:end]), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			blocks = append(blocks, catalog.TextBlock{
				Leaf:        leaf,
				BlockNumber: number,
				StableID:    fmt.Sprintf("t%04d_%03d", leaf, number),
				Class:       catalog.ClassUnknown,
				Text:        line,
				LineCount:   1,
				WordCount:   len(strings.Fields(line)),
			})
			number++
		}
	}
	return blocks, nil
}

// Source adapts a text stream plus raw pageindex bytes to the catalog's
// ingestion interface.
type Source struct {
	text  []byte
	index []byte
}

// NewSource wraps the _djvu.txt stream and its pageindex resource.
func NewSource(text, index []byte) *Source {
	return &Source{text: text, index: index}
}

func (s *Source) Mode() catalog.IngestMode { return catalog.ModePlainText }

func (s *Source) TextBlocks() ([]catalog.TextBlock, error) {
	spans, err := ParsePageIndex(s.index)
	if err != nil {
		return nil, err
	}
	return Parse(s.text, spans)
}
