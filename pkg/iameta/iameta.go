// Package iameta parses Internet Archive item descriptors (the meta.xml and
// files.xml sidecars) and handles the item-identifier conventions used
// throughout the tooling: detail-URL parsing, page references, page ranges
// and human-readable slugs.
package iameta

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

var (
	fileExpr = xpath.MustCompile("//file")

	nonAlnum      = regexp.MustCompile(`[^a-z0-9]`)
	nonAlnumSpace = regexp.MustCompile(`[^a-z0-9\s]`)
)

// ParseMetadata decodes a meta.xml descriptor into ordered key/value fields.
// Repeated tags (creator, subject, collection, language) produce repeated
// keys; empty tags are skipped.
func ParseMetadata(data []byte) (catalog.Metadata, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, catalog.NewParseError("meta", "malformed descriptor", err)
	}
	root := firstElement(doc)
	if root == nil {
		return nil, catalog.NewParseError("meta", "empty descriptor", nil)
	}

	var m catalog.Metadata
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		value := strings.TrimSpace(c.InnerText())
		if value == "" {
			continue
		}
		m = append(m, catalog.Field{Key: c.Data, Value: value})
	}
	return m, nil
}

// ParseFiles decodes a files.xml manifest into file records.
func ParseFiles(data []byte) ([]catalog.FileInfo, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, catalog.NewParseError("files", "malformed manifest", err)
	}

	var files []catalog.FileInfo
	for _, node := range xmlquery.QuerySelectorAll(doc, fileExpr) {
		f := catalog.FileInfo{
			Name:   node.SelectAttr("name"),
			Source: node.SelectAttr("source"),
			Format: childText(node, "format"),
			MD5:    childText(node, "md5"),
			SHA1:   childText(node, "sha1"),
			CRC32:  childText(node, "crc32"),
		}
		if size := childText(node, "size"); size != "" {
			f.Size, _ = strconv.ParseInt(size, 10, 64)
		}
		files = append(files, f)
	}
	return files, nil
}

func firstElement(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func childText(n *xmlquery.Node, name string) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return strings.TrimSpace(c.InnerText())
		}
	}
	return ""
}

// GenerateSlug builds a human-readable catalog slug of the form
// author-title-year-edition_identifier: the first author's last name, the
// first four significant title words, the publication year, and the edition
// when present. The identifier suffix keeps slugs unique.
func GenerateSlug(m catalog.Metadata, identifier string) string {
	author := "unknown"
	if creator := m.First("creator", ""); creator != "" {
		// "Last, First; Other" keeps the first author's last name only.
		first := strings.SplitN(creator, ";", 2)[0]
		first = strings.SplitN(first, ",", 2)[0]
		if cleaned := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(first)), ""); cleaned != "" {
			author = cleaned
		}
	}

	noise := map[string]bool{
		"the": true, "of": true, "a": true, "an": true, "and": true,
		"or": true, "in": true, "for": true, "to": true, "with": true,
		"by": true, "on": true, "at": true,
	}
	title := strings.ToLower(m.First("title", "document"))
	var words []string
	for _, w := range strings.Fields(nonAlnumSpace.ReplaceAllString(title, "")) {
		if !noise[w] {
			words = append(words, w)
		}
		if len(words) == 4 {
			break
		}
	}

	year := ""
	if date := m.First("date", ""); len(date) >= 4 {
		year = date[:4]
	}
	edition := nonAlnum.ReplaceAllString(strings.ToLower(m.First("edition", "")), "")

	parts := []string{author, strings.Join(words, "-"), year, edition}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-") + "_" + identifier
}

// PageRefKind distinguishes how a page reference addresses the document.
type PageRefKind string

const (
	// RefLeaf is a physical scan position ("n404" in a details URL).
	RefLeaf PageRefKind = "leaf"
	// RefBook is a printed page label that needs resolution.
	RefBook PageRefKind = "book"
)

// PageRef is one parsed page reference.
type PageRef struct {
	Kind  PageRefKind
	Leaf  int    // set for RefLeaf
	Book  string // set for RefBook
	Valid bool
}

// ParseIdentifier extracts the item identifier from a details or download
// URL, or returns bare input unchanged.
func ParseIdentifier(input string) string {
	if !strings.Contains(input, "archive.org") {
		return strings.TrimSpace(input)
	}
	for _, marker := range []string{"/details/", "/download/"} {
		if idx := strings.Index(input, marker); idx >= 0 {
			rest := input[idx+len(marker):]
			return strings.SplitN(rest, "/", 2)[0]
		}
	}
	return strings.TrimSpace(input)
}

// ParsePageRef reads a page reference in the details-URL convention: "n404"
// is a physical leaf, a bare value is a printed book page.
func ParsePageRef(ref string) PageRef {
	ref = strings.TrimSpace(strings.TrimSuffix(ref, "/"))
	if ref == "" {
		return PageRef{}
	}
	if strings.HasPrefix(ref, "n") {
		if leaf, err := strconv.Atoi(ref[1:]); err == nil {
			return PageRef{Kind: RefLeaf, Leaf: leaf, Valid: true}
		}
		return PageRef{}
	}
	return PageRef{Kind: RefBook, Book: ref, Valid: true}
}

// ParseRange expands a page range expression like "1-7,21,45-50" into a
// sorted list of unique page numbers.
func ParseRange(expr string) ([]int, error) {
	seen := map[int]bool{}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			start, err0 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err1 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err0 != nil || err1 != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			if start > end {
				return nil, fmt.Errorf("invalid range %q: start after end", part)
			}
			for p := start; p <= end; p++ {
				seen[p] = true
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		seen[p] = true
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no pages in range %q", expr)
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}
