package djvutext

import (
	"errors"
	"testing"

	"github.com/mhalle/ia-utils/pkg/catalog"
)

func TestParsePageIndex(t *testing.T) {
	spans, err := ParsePageIndex([]byte(`[[0, 100, 0, 500], [100, 200, 500, 1000]]`))
	if err != nil {
		t.Fatalf("ParsePageIndex: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[1] != (PageSpan{CharStart: 100, CharEnd: 200, AuxStart: 500, AuxEnd: 1000}) {
		t.Errorf("span[1] = %+v", spans[1])
	}
}

func TestParsePageIndexRejectsBadInput(t *testing.T) {
	for _, data := range []string{`{"pages": []}`, `[[0, 100, 0]]`, `not json`} {
		if _, err := ParsePageIndex([]byte(data)); err == nil {
			t.Errorf("ParsePageIndex(%q) should fail", data)
		}
	}
}

func TestParseSplitsPagesAndLines(t *testing.T) {
	text := []byte("hello world\nfoo bar baz")
	index := []PageSpan{
		{CharStart: 0, CharEnd: 11},
		{CharStart: 12, CharEnd: 23},
	}
	blocks, err := Parse(text, index)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Leaf != 0 || blocks[0].Text != "hello world" {
		t.Errorf("block 0 = leaf %d %q", blocks[0].Leaf, blocks[0].Text)
	}
	if blocks[1].Leaf != 1 || blocks[1].Text != "foo bar baz" {
		t.Errorf("block 1 = leaf %d %q", blocks[1].Leaf, blocks[1].Text)
	}
	if blocks[0].StableID != "t0000_000" {
		t.Errorf("StableID = %q, want t0000_000", blocks[0].StableID)
	}
	if blocks[0].Class != catalog.ClassUnknown {
		t.Errorf("Class = %q, want unknown", blocks[0].Class)
	}
	if blocks[1].WordCount != 3 {
		t.Errorf("WordCount = %d, want 3", blocks[1].WordCount)
	}
	if blocks[0].BBox != nil || blocks[0].AvgConfidence != nil {
		t.Error("plain-text blocks must not carry bbox or confidence")
	}
}

func TestParseCountsMultibyteRunesOnce(t *testing.T) {
	text := []byte("café au lait\nsecond page line")
	index := []PageSpan{
		{CharStart: 0, CharEnd: 12},
		{CharStart: 13, CharEnd: 29},
	}
	blocks, err := Parse(text, index)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Text != "café au lait" {
		t.Errorf("page 0 text = %q, want %q", blocks[0].Text, "café au lait")
	}
	if blocks[1].Text != "second page line" {
		t.Errorf("page 1 text = %q, want %q", blocks[1].Text, "second page line")
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	text := []byte("first line\n\n   \nsecond line\n")
	blocks, err := Parse(text, []PageSpan{{CharStart: 0, CharEnd: len(text)}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[1].Text != "second line" || blocks[1].BlockNumber != 1 {
		t.Errorf("block 1 = %q number %d", blocks[1].Text, blocks[1].BlockNumber)
	}
}

func TestParseRejectsOutOfRangeSpan(t *testing.T) {
	_, err := Parse([]byte("short"), []PageSpan{{CharStart: 0, CharEnd: 99}})
	var perr *catalog.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *catalog.ParseError", err)
	}
}

func TestSource(t *testing.T) {
	src := NewSource([]byte("one\ntwo"), []byte(`[[0, 7, 0, 10]]`))
	if src.Mode() != catalog.ModePlainText {
		t.Errorf("Mode = %q", src.Mode())
	}
	blocks, err := src.TextBlocks()
	if err != nil {
		t.Fatalf("TextBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Errorf("got %d blocks, want 2", len(blocks))
	}
}
