package hocr

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

// blockClasses maps the hOCR block-level classes to catalog classifications.
// Anything else (areas, lines, words) is structure, not a block.
var blockClasses = map[string]string{
	"ocr_par":       catalog.ClassParagraph,
	"ocr_caption":   catalog.ClassCaption,
	"ocr_header":    catalog.ClassHeader,
	"ocr_textfloat": catalog.ClassFloatingText,
}

var pageIDPattern = regexp.MustCompile(`page_(\d+)`)

// Parse extracts text blocks from raw hOCR data. Blocks on each page are
// ordered top-to-bottom, left-to-right by bbox, numbered in that order, and
// blocks whose text is empty after trimming are dropped (their numbers are
// not reused). An input with no ocr_page elements fails closed.
func Parse(data []byte) ([]catalog.TextBlock, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, catalog.NewParseError("hocr", "charset decode failed", err)
	}

	doc, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, catalog.NewParseError("hocr", "malformed markup", err)
	}

	var pages []*html.Node
	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			pages = append(pages, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(doc)
	if len(pages) == 0 {
		return nil, catalog.NewParseError("hocr", "no ocr_page elements found", nil)
	}

	var blocks []catalog.TextBlock
	for i, page := range pages {
		leaf := leafNumber(page, i)
		pageLang := getAttrVal(page, "lang")
		blocks = append(blocks, parsePage(page, leaf, pageLang)...)
	}
	return blocks, nil
}

// decodeCharset sniffs the declared charset and converts Latin-1 documents
// to UTF-8. Anything else is assumed to already be UTF-8.
func decodeCharset(data []byte) ([]byte, error) {
	content := string(data)
	idx := strings.Index(content, "charset=")
	if idx < 0 {
		return data, nil
	}
	rest := content[idx+len("charset="):]
	enc := strings.ToLower(strings.FieldsFunc(rest, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' '
	})[0])
	switch enc {
	case "", "utf-8", "utf8":
		return data, nil
	default:
		return charmap.ISO8859_1.NewDecoder().Bytes(data)
	}
}

// leafNumber reads the leaf from a page id like "page_000022". The numeric
// convention of the producing pipeline is kept as-is; pages without a
// parseable id fall back to their document position.
func leafNumber(page *html.Node, position int) int {
	m := pageIDPattern.FindStringSubmatch(getAttrVal(page, "id"))
	if m == nil {
		return position
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return position
	}
	return n
}

func parsePage(page *html.Node, leaf int, pageLang string) []catalog.TextBlock {
	var blockNodes []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := blockClasses[firstOCRClass(n)]; ok {
				blockNodes = append(blockNodes, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	for c := page.FirstChild; c != nil; c = c.NextSibling {
		collect(c)
	}

	// Visual reading order: top edge first, then left edge. Blocks without
	// a bbox sort as (0,0).
	sort.SliceStable(blockNodes, func(i, j int) bool {
		yi, xi := blockPosition(blockNodes[i])
		yj, xj := blockPosition(blockNodes[j])
		if yi != yj {
			return yi < yj
		}
		return xi < xj
	})

	var blocks []catalog.TextBlock
	for number, node := range blockNodes {
		b, ok := parseBlock(node, leaf, number, pageLang)
		if ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func parseBlock(n *html.Node, leaf, number int, pageLang string) (catalog.TextBlock, bool) {
	words := collectWords(n)
	var texts []string
	for _, w := range words {
		if t := extractTextContent(w); t != "" {
			texts = append(texts, t)
		}
	}
	text := strings.Join(texts, " ")
	if strings.TrimSpace(text) == "" {
		return catalog.TextBlock{}, false
	}

	lang := getAttrVal(n, "lang")
	if lang == "" {
		lang = getAttrVal(n, "xml:lang")
	}
	if lang == "" {
		lang = pageLang
	}
	dir := getAttrVal(n, "dir")
	if dir == "" {
		dir = "ltr"
	}

	stableID := getAttrVal(n, "id")
	if stableID == "" {
		stableID = "block_" + strconv.Itoa(leaf) + "_" + strconv.Itoa(number)
	}

	b := catalog.TextBlock{
		Leaf:         leaf,
		BlockNumber:  number,
		StableID:     stableID,
		Class:        blockClasses[firstOCRClass(n)],
		Language:     lang,
		Direction:    dir,
		BBox:         BBoxFromTitle(getAttrVal(n, "title")),
		Text:         text,
		LineCount:    countClass(n, "ocr_line"),
		WordCount:    len(words),
		ParentAreaID: parentAreaID(n),
	}

	var confSum, confN, sizeSum, sizeN float64
	for _, w := range words {
		title := getAttrVal(w, "title")
		if conf, ok := floatProp(title, "x_wconf"); ok {
			confSum += conf
			confN++
		}
		if size, ok := floatProp(title, "x_fsize"); ok {
			sizeSum += size
			sizeN++
		}
	}
	if confN > 0 {
		avg := confSum / confN
		b.AvgConfidence = &avg
	}
	if sizeN > 0 {
		avg := sizeSum / sizeN
		b.AvgFontSize = &avg
	}
	return b, true
}

func blockPosition(n *html.Node) (y0, x0 int) {
	if bbox := BBoxFromTitle(getAttrVal(n, "title")); bbox != nil {
		return bbox.Y0, bbox.X0
	}
	return 0, 0
}

// parentAreaID finds the id of the nearest enclosing ocr_carea div, if any.
func parentAreaID(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "div" && hasClass(p, "ocr_carea") {
			return getAttrVal(p, "id")
		}
	}
	return ""
}

func collectWords(n *html.Node) []*html.Node {
	var words []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && hasClass(node, "ocrx_word") {
			words = append(words, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return words
}

func countClass(n *html.Node, class string) int {
	count := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && hasClass(node, class) {
			count++
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return count
}

// firstOCRClass returns the first class token starting with "ocr_", matching
// how block typing treats multi-class elements.
func firstOCRClass(n *html.Node) string {
	for _, token := range strings.Fields(getAttrVal(n, "class")) {
		if strings.HasPrefix(token, "ocr_") {
			return token
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(getAttrVal(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

// extractTextContent gets all text from a node and its children.
func extractTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var text string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text += extractTextContent(c)
	}
	return strings.TrimSpace(text)
}

// getAttrVal returns the value of a specific attribute from a node.
func getAttrVal(n *html.Node, attrName string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}
