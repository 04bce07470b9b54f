// Package hocr extracts text blocks from hOCR documents, the HTML-based OCR
// markup produced by Tesseract and by the Internet Archive's derivation
// pipeline. Block-level elements (ocr_par, ocr_caption, ocr_header,
// ocr_textfloat) become catalog text blocks with positional metadata and
// word-level confidence and font-size averages.
package hocr

import (
	"github.com/mhalle/ia-utils/pkg/catalog"
)

// Source adapts a raw hOCR document to the catalog's ingestion interface.
type Source struct {
	data []byte
}

// NewSource wraps raw hOCR bytes.
func NewSource(data []byte) *Source {
	return &Source{data: data}
}

// Mode identifies this source as full hOCR ingestion: bounding boxes,
// confidences and font sizes are populated.
func (s *Source) Mode() catalog.IngestMode { return catalog.ModeHOCR }

// TextBlocks parses the document and returns its blocks in catalog order.
func (s *Source) TextBlocks() ([]catalog.TextBlock, error) {
	return Parse(s.data)
}
