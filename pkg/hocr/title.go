package hocr

import (
	"strconv"
	"strings"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

// ParseTitle breaks down an hOCR title attribute into its components.
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// BBoxFromTitle extracts a bounding box from a title string, or nil when the
// title carries no bbox property.
func BBoxFromTitle(title string) *catalog.BBox {
	props := ParseTitle(title)
	bbox, ok := props["bbox"]
	if !ok || len(bbox) < 4 {
		return nil
	}
	x0, err0 := strconv.Atoi(bbox[0])
	y0, err1 := strconv.Atoi(bbox[1])
	x1, err2 := strconv.Atoi(bbox[2])
	y1, err3 := strconv.Atoi(bbox[3])
	if err0 != nil || err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	return &catalog.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// floatProp extracts a single numeric title property like x_wconf or x_fsize.
func floatProp(title, key string) (float64, bool) {
	props := ParseTitle(title)
	vals, ok := props[key]
	if !ok || len(vals) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
