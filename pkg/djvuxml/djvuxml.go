// Package djvuxml extracts text blocks from DjVu XML documents, the
// OBJECT→PARAGRAPH→LINE→WORD hierarchy emitted as an OCR derivative. The
// document is consumed as a forward-only stream, one page OBJECT at a time,
// so memory stays bounded on very large books.
package djvuxml

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

// Parse reads a DjVu XML stream and returns one text block per paragraph
// that contains at least one non-empty word. Leaf numbers come from the page
// name the OBJECT carries (usemap attribute or PAGE param), falling back to
// the position in document order; classification is always paragraph; no
// positional data is available in this format.
func Parse(r io.Reader) ([]catalog.TextBlock, error) {
	// Streaming with a target element path makes the parser discard each
	// OBJECT subtree once the next one is read, which is the per-page
	// release that keeps memory flat.
	p, err := xmlquery.CreateStreamParser(r, "//OBJECT")
	if err != nil {
		return nil, catalog.NewParseError("djvuxml", "bad stream expression", err)
	}

	var blocks []catalog.TextBlock
	position := 0
	for {
		node, err := p.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, catalog.NewParseError("djvuxml", "malformed markup", err)
		}
		blocks = append(blocks, parsePage(node, leafNumber(node, position))...)
		position++
	}
	if position == 0 {
		return nil, catalog.NewParseError("djvuxml", "no page objects found", nil)
	}
	return blocks, nil
}

// pageNamePattern matches the numeric suffix of a page component name such
// as "item_0005.djvu".
var pageNamePattern = regexp.MustCompile(`_(\d+)\.[^.]+$`)

// leafNumber reads the leaf from the page name the OBJECT carries, first the
// usemap attribute, then a PAGE param. Objects without a parseable name keep
// their position in document order.
func leafNumber(page *xmlquery.Node, position int) int {
	name := page.SelectAttr("usemap")
	if name == "" {
		if param := xmlquery.FindOne(page, "PARAM[@name='PAGE']"); param != nil {
			name = param.SelectAttr("value")
		}
	}
	if m := pageNamePattern.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return position
}

func parsePage(page *xmlquery.Node, leaf int) []catalog.TextBlock {
	var blocks []catalog.TextBlock
	number := 0
	for _, par := range xmlquery.Find(page, ".//PARAGRAPH") {
		words := xmlquery.Find(par, ".//WORD")

		var texts []string
		var confSum, confN float64
		for _, w := range words {
			text := strings.TrimSpace(w.InnerText())
			if text == "" {
				continue
			}
			texts = append(texts, text)
			if conf := w.SelectAttr("conf"); conf != "" {
				if f, err := strconv.ParseFloat(conf, 64); err == nil {
					confSum += f
					confN++
				}
			}
		}
		if len(texts) == 0 {
			continue
		}

		b := catalog.TextBlock{
			Leaf:        leaf,
			BlockNumber: number,
			StableID:    fmt.Sprintf("x%04d_%03d", leaf, number),
			Class:       catalog.ClassParagraph,
			Text:        strings.Join(texts, " "),
			LineCount:   len(xmlquery.Find(par, ".//LINE")),
			WordCount:   len(texts),
		}
		if confN > 0 {
			avg := confSum / confN
			b.AvgConfidence = &avg
		}
		blocks = append(blocks, b)
		number++
	}
	return blocks
}

// Source adapts a DjVu XML stream to the catalog's ingestion interface.
type Source struct {
	r io.Reader
}

// NewSource wraps a DjVu XML reader.
func NewSource(r io.Reader) *Source {
	return &Source{r: r}
}

func (s *Source) Mode() catalog.IngestMode { return catalog.ModeDjVuXML }

func (s *Source) TextBlocks() ([]catalog.TextBlock, error) {
	return Parse(s.r)
}
