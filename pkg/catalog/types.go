package catalog

// Block classifications, normalized from the source OCR vocabularies.
const (
	ClassParagraph    = "paragraph"
	ClassCaption      = "caption"
	ClassHeader       = "header"
	ClassFloatingText = "floating-text"
	ClassUnknown      = "unknown"
)

// IngestMode identifies which parser family produced the text blocks of a
// catalog. It is persisted in catalog_info so consumers know which optional
// fields (bbox, confidence) may be absent.
type IngestMode string

const (
	ModeHOCR      IngestMode = "hocr"
	ModePlainText IngestMode = "plaintext"
	ModeDjVuXML   IngestMode = "djvuxml"
)

// BBox is a rectangle in page pixel coordinates.
// X0,Y0 is the top-left corner, X1,Y1 the bottom-right.
type BBox struct {
	X0 int
	Y0 int
	X1 int
	Y1 int
}

// TextBlock is one normalized OCR unit. Optional numeric fields are pointers
// so that absent values stay NULL in the store instead of collapsing to zero.
//
// Blocks are ordered within a leaf by (BBox.Y0, BBox.X0) when positional data
// exists, otherwise by source sequence; BlockNumber records that order.
type TextBlock struct {
	Leaf          int
	BlockNumber   int
	StableID      string
	Class         string
	Language      string
	Direction     string
	BBox          *BBox
	Text          string
	LineCount     int
	WordCount     int
	AvgConfidence *float64
	AvgFontSize   *float64
	ParentAreaID  string
}

// PageNumber maps one physical leaf to its printed book page. BookPage may be
// empty (unnumbered leaf) or non-numeric (roman numerals, plates).
type PageNumber struct {
	Leaf       int
	BookPage   string
	Confidence *float64
	PageProb   *float64
	WordConf   *float64
}

// BlockSource is the capability every format parser provides: produce the
// ordered text blocks for one document. The store depends only on this
// contract, never on parser identity.
type BlockSource interface {
	// Mode reports which parser family this source is.
	Mode() IngestMode
	// TextBlocks parses the source and returns all blocks, grouped by leaf
	// in leaf order. Malformed input fails closed: an error and no blocks.
	TextBlocks() ([]TextBlock, error)
}
