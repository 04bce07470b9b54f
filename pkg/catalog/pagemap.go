package catalog

import "encoding/json"

// ParsePageNumbers decodes a page-number mapping resource of the form
//
//	{"pages": [{"leafNum": 5, "pageNumber": "42", "confidence": 98.7}, ...]}
//
// Page numbers are labels, not integers: roman numerals, "A-7" style plates
// and the like pass through untouched. Entries with an empty label are kept;
// an unmapped leaf is still a leaf.
func ParsePageNumbers(data []byte) ([]PageNumber, error) {
	var doc struct {
		Pages []struct {
			LeafNum    int      `json:"leafNum"`
			PageNumber string   `json:"pageNumber"`
			Confidence *float64 `json:"confidence"`
			PageProb   *float64 `json:"pageProb"`
			WordConf   *float64 `json:"wordConf"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewParseError("pagenumbers", "malformed mapping document", err)
	}

	pages := make([]PageNumber, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		pages = append(pages, PageNumber{
			Leaf:       p.LeafNum,
			BookPage:   p.PageNumber,
			Confidence: p.Confidence,
			PageProb:   p.PageProb,
			WordConf:   p.WordConf,
		})
	}
	return pages, nil
}
