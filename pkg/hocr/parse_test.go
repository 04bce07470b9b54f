package hocr

import (
	"errors"
	"strings"
	"testing"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

func TestParseSingleParagraph(t *testing.T) {
	data := []byte(`<html><body>
<div class='ocr_page' id='page_000003' title='bbox 0 0 2000 3000'>
 <div class='ocr_carea' id='block_1_1' title='bbox 100 200 300 250'>
  <p class='ocr_par' id='par_1_1' lang='eng' title='bbox 100 200 300 250'>
   <span class='ocr_line' title='bbox 100 200 300 250'>
    <span class='ocrx_word' title='bbox 100 200 190 250; x_wconf 91; x_fsize 30'>Hello</span>
    <span class='ocrx_word' title='bbox 200 200 300 250; x_wconf 87; x_fsize 32'>World</span>
   </span>
  </p>
 </div>
</div>
</body></html>`)

	blocks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	b := blocks[0]
	if b.Leaf != 3 {
		t.Errorf("Leaf = %d, want 3", b.Leaf)
	}
	if b.BlockNumber != 0 {
		t.Errorf("BlockNumber = %d, want 0", b.BlockNumber)
	}
	if b.StableID != "par_1_1" {
		t.Errorf("StableID = %q, want par_1_1", b.StableID)
	}
	if b.Class != catalog.ClassParagraph {
		t.Errorf("Class = %q, want paragraph", b.Class)
	}
	if b.Text != "Hello World" {
		t.Errorf("Text = %q, want %q", b.Text, "Hello World")
	}
	if b.Language != "eng" {
		t.Errorf("Language = %q, want eng", b.Language)
	}
	if b.Direction != "ltr" {
		t.Errorf("Direction = %q, want ltr", b.Direction)
	}
	if b.BBox == nil || *b.BBox != (catalog.BBox{X0: 100, Y0: 200, X1: 300, Y1: 250}) {
		t.Errorf("BBox = %+v, want (100,200,300,250)", b.BBox)
	}
	if b.LineCount != 1 {
		t.Errorf("LineCount = %d, want 1", b.LineCount)
	}
	if b.WordCount != 2 {
		t.Errorf("WordCount = %d, want 2", b.WordCount)
	}
	if b.AvgConfidence == nil || *b.AvgConfidence != 89.0 {
		t.Errorf("AvgConfidence = %v, want 89.0", b.AvgConfidence)
	}
	if b.AvgFontSize == nil || *b.AvgFontSize != 31.0 {
		t.Errorf("AvgFontSize = %v, want 31.0", b.AvgFontSize)
	}
	if b.ParentAreaID != "block_1_1" {
		t.Errorf("ParentAreaID = %q, want block_1_1", b.ParentAreaID)
	}
}

func TestBlockOrderingByPosition(t *testing.T) {
	// Source order is bottom block first; parse order must be top-down.
	data := []byte(`<html><body>
<div class='ocr_page' id='page_000000'>
 <p class='ocr_par' id='lower' title='bbox 100 500 300 550'>
  <span class='ocrx_word' title='x_wconf 90'>lower</span>
 </p>
 <p class='ocr_par' id='upper' title='bbox 100 100 300 150'>
  <span class='ocrx_word' title='x_wconf 90'>upper</span>
 </p>
 <p class='ocr_par' id='right' title='bbox 900 100 1100 150'>
  <span class='ocrx_word' title='x_wconf 90'>right</span>
 </p>
</div>
</body></html>`)

	blocks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var ids []string
	for _, b := range blocks {
		ids = append(ids, b.StableID)
	}
	want := []string{"upper", "right", "lower"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", ids, want)
	}
	for i, b := range blocks {
		if b.BlockNumber != i {
			t.Errorf("block %s number = %d, want %d", b.StableID, b.BlockNumber, i)
		}
	}
}

func TestEmptyBlocksSkippedWithoutRenumbering(t *testing.T) {
	data := []byte(`<html><body>
<div class='ocr_page' id='page_000000'>
 <p class='ocr_par' id='first' title='bbox 0 100 300 150'>
  <span class='ocrx_word' title='x_wconf 90'>kept</span>
 </p>
 <p class='ocr_par' id='blank' title='bbox 0 200 300 250'>
  <span class='ocrx_word' title='x_wconf 90'>   </span>
 </p>
 <p class='ocr_par' id='last' title='bbox 0 300 300 350'>
  <span class='ocrx_word' title='x_wconf 90'>also kept</span>
 </p>
</div>
</body></html>`)

	blocks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].StableID != "first" || blocks[0].BlockNumber != 0 {
		t.Errorf("first block = %s/%d, want first/0", blocks[0].StableID, blocks[0].BlockNumber)
	}
	// The skipped block keeps its position in the numbering.
	if blocks[1].StableID != "last" || blocks[1].BlockNumber != 2 {
		t.Errorf("second block = %s/%d, want last/2", blocks[1].StableID, blocks[1].BlockNumber)
	}
}

func TestBlockClassifications(t *testing.T) {
	data := []byte(`<html><body>
<div class='ocr_page' id='page_000000'>
 <p class='ocr_header' title='bbox 0 0 300 50'><span class='ocrx_word'>Title</span></p>
 <p class='ocr_par' title='bbox 0 100 300 150'><span class='ocrx_word'>Body</span></p>
 <p class='ocr_caption' title='bbox 0 200 300 250'><span class='ocrx_word'>Figure</span></p>
 <p class='ocr_textfloat' title='bbox 0 300 300 350'><span class='ocrx_word'>Margin</span></p>
</div>
</body></html>`)

	blocks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{
		catalog.ClassHeader,
		catalog.ClassParagraph,
		catalog.ClassCaption,
		catalog.ClassFloatingText,
	}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(want))
	}
	for i, b := range blocks {
		if b.Class != want[i] {
			t.Errorf("block %d class = %q, want %q", i, b.Class, want[i])
		}
	}
}

func TestMissingConfidenceExcludedFromAverage(t *testing.T) {
	data := []byte(`<html><body>
<div class='ocr_page' id='page_000000'>
 <p class='ocr_par' title='bbox 0 0 300 50'>
  <span class='ocrx_word' title='x_wconf 80'>one</span>
  <span class='ocrx_word'>two</span>
  <span class='ocrx_word' title='x_wconf 100'>three</span>
 </p>
</div>
</body></html>`)

	blocks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if blocks[0].AvgConfidence == nil || *blocks[0].AvgConfidence != 90.0 {
		t.Errorf("AvgConfidence = %v, want 90.0 (missing values excluded)", blocks[0].AvgConfidence)
	}
	if blocks[0].AvgFontSize != nil {
		t.Errorf("AvgFontSize = %v, want nil", blocks[0].AvgFontSize)
	}
}

func TestNoPagesFailsClosed(t *testing.T) {
	_, err := Parse([]byte(`<html><body><p>not ocr output</p></body></html>`))
	var perr *catalog.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *catalog.ParseError", err)
	}
}

func TestLatin1CharsetFallback(t *testing.T) {
	head := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1"></head><body>
<div class='ocr_page' id='page_000000'>
 <p class='ocr_par' title='bbox 0 0 300 50'><span class='ocrx_word'>caf`
	tail := `</span></p>
</div></body></html>`
	data := append([]byte(head), 0xE9) // é in Latin-1
	data = append(data, []byte(tail)...)

	blocks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if blocks[0].Text != "café" {
		t.Errorf("Text = %q, want café", blocks[0].Text)
	}
}

func TestParseTitle(t *testing.T) {
	props := ParseTitle("bbox 100 200 300 400; x_wconf 95; x_fsize 12")
	if got := props["bbox"]; len(got) != 4 || got[0] != "100" {
		t.Errorf("bbox = %v", got)
	}
	if got := props["x_wconf"]; len(got) != 1 || got[0] != "95" {
		t.Errorf("x_wconf = %v", got)
	}
	if BBoxFromTitle("x_wconf 95") != nil {
		t.Error("BBoxFromTitle without bbox should be nil")
	}
}
