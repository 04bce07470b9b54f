package catalog

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// BuildInput carries everything a full catalog build needs. Either Source or
// Blocks must be set; when Source is set it wins and Mode is taken from it.
type BuildInput struct {
	Identifier  string
	Slug        string
	Metadata    Metadata
	Files       []FileInfo
	Source      BlockSource
	Blocks      []TextBlock
	Mode        IngestMode
	PageNumbers []PageNumber
	// SourceBytes, when present, are the raw OCR bytes the blocks came from.
	// Their BLAKE3 digest is stamped into catalog_info so identical sources
	// can be recognized across rebuilds.
	SourceBytes []byte
}

// Build creates the whole catalog in one transaction: every table is dropped
// and recreated, all rows inserted, and both derived indices rebuilt. Any
// failure rolls the transaction back, leaving no partial artifact.
func (c *Catalog) Build(ctx context.Context, in BuildInput) error {
	blocks := in.Blocks
	mode := in.Mode
	if in.Source != nil {
		var err error
		blocks, err = in.Source.TextBlocks()
		if err != nil {
			return err
		}
		mode = in.Source.Mode()
	}
	if err := validateBlocks(blocks); err != nil {
		return err
	}

	c.log.Info("building catalog", "identifier", in.Identifier, "blocks", len(blocks))

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin build", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropSQL); err != nil {
		return storageErr("drop tables", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return storageErr("create schema", err)
	}
	if err := insertMetadata(ctx, tx, in); err != nil {
		return err
	}
	if err := insertFiles(ctx, tx, in.Identifier, in.Files); err != nil {
		return err
	}
	if err := insertBlocks(ctx, tx, blocks); err != nil {
		return err
	}
	if err := insertPageNumbers(ctx, tx, in.PageNumbers); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ftsSQL); err != nil {
		return storageErr("build fts indexes", err)
	}
	if err := stampInfo(ctx, tx, mode, in.SourceBytes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit build", err)
	}
	c.log.Info("catalog built", "path", c.path)
	return nil
}

// RebuildText replaces the text_blocks table and both derived indices,
// leaving metadata, manifest and page mapping untouched. The replacement runs
// in a single transaction, but callers wanting atomicity guarantees across
// concurrent readers should build into a fresh file and swap.
func (c *Catalog) RebuildText(ctx context.Context, blocks []TextBlock) error {
	if err := validateBlocks(blocks); err != nil {
		return err
	}
	c.log.Info("rebuilding text blocks", "blocks", len(blocks))

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin rebuild", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM text_blocks`); err != nil {
		return storageErr("clear text_blocks", err)
	}
	if err := insertBlocks(ctx, tx, blocks); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ftsSQL); err != nil {
		return storageErr("build fts indexes", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO catalog_info(key, value) VALUES ('text_rebuilt_at', ?)`,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return storageErr("stamp rebuild time", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit rebuild", err)
	}
	return nil
}

// Reindex recomputes both derived indices from the current text_blocks table.
// Cost is O(total text); the intended use is once per batch of mutations, not
// per row.
func (c *Catalog) Reindex(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin reindex", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, ftsSQL); err != nil {
		return storageErr("build fts indexes", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit reindex", err)
	}
	return nil
}

func validateBlocks(blocks []TextBlock) error {
	if len(blocks) == 0 {
		return storageErr("validate text blocks", fmt.Errorf("no text blocks to store"))
	}
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" {
			return storageErr("validate text blocks",
				fmt.Errorf("block %s on leaf %d has empty text", b.StableID, b.Leaf))
		}
	}
	return nil
}

func insertMetadata(ctx context.Context, tx *sql.Tx, in BuildInput) error {
	m := in.Metadata
	creators := m.All("creator")
	creatorPrimary, creatorSecondary := "", ""
	if len(creators) > 0 {
		creatorPrimary = creators[0]
	}
	if len(creators) > 1 {
		creatorSecondary = creators[1]
	}
	pageCount := 0
	fmt.Sscanf(m.First("imagecount", ""), "%d", &pageCount)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO document_metadata (
			id, identifier, slug, title, creator_primary, creator_secondary,
			publisher, publication_date, page_count, language, collection,
			subject, mediatype, contributor, description, created_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Identifier,
		in.Slug,
		m.First("title", ""),
		creatorPrimary,
		creatorSecondary,
		m.First("publisher", ""),
		m.First("date", ""),
		pageCount,
		strings.Join(m.All("language"), "; "),
		strings.Join(m.All("collection"), "; "),
		strings.Join(m.All("subject"), "; "),
		m.First("mediatype", ""),
		m.First("contributor", ""),
		strings.Join(m.All("description"), " | "),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storageErr("insert document_metadata", err)
	}
	return nil
}

func insertFiles(ctx context.Context, tx *sql.Tx, identifier string, files []FileInfo) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO archive_files (
			filename, format, size_bytes, source_type,
			md5_checksum, sha1_checksum, crc32_checksum, download_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return storageErr("prepare archive_files", err)
	}
	defer stmt.Close()

	for _, f := range files {
		url := fmt.Sprintf("https://archive.org/download/%s/%s", identifier, f.Name)
		if _, err := stmt.ExecContext(ctx, f.Name, f.Format, f.Size, f.Source,
			f.MD5, f.SHA1, f.CRC32, url); err != nil {
			return storageErr("insert archive_files", err)
		}
	}
	return nil
}

func insertBlocks(ctx context.Context, tx *sql.Tx, blocks []TextBlock) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO text_blocks (
			stable_id, leaf, block_number, block_type, language, text_direction,
			bbox_x0, bbox_y0, bbox_x1, bbox_y1, text, line_count, word_count,
			avg_confidence, avg_font_size, parent_area_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return storageErr("prepare text_blocks", err)
	}
	defer stmt.Close()

	for _, b := range blocks {
		var x0, y0, x1, y1 any
		if b.BBox != nil {
			x0, y0, x1, y1 = b.BBox.X0, b.BBox.Y0, b.BBox.X1, b.BBox.Y1
		}
		if _, err := stmt.ExecContext(ctx,
			b.StableID, b.Leaf, b.BlockNumber, b.Class,
			nullString(b.Language), nullString(b.Direction),
			x0, y0, x1, y1,
			b.Text, b.LineCount, b.WordCount,
			nullFloat(b.AvgConfidence), nullFloat(b.AvgFontSize),
			nullString(b.ParentAreaID),
		); err != nil {
			return storageErr(fmt.Sprintf("insert text_block %s", b.StableID), err)
		}
	}
	return nil
}

func insertPageNumbers(ctx context.Context, tx *sql.Tx, pages []PageNumber) error {
	if len(pages) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO page_numbers (leaf, book_page, confidence, page_prob, word_conf)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return storageErr("prepare page_numbers", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, p.Leaf, p.BookPage,
			nullFloat(p.Confidence), nullFloat(p.PageProb), nullFloat(p.WordConf)); err != nil {
			return storageErr("insert page_numbers", err)
		}
	}
	return nil
}

func stampInfo(ctx context.Context, tx *sql.Tx, mode IngestMode, source []byte) error {
	info := map[string]string{
		"schema_version": schemaVersion,
		"build_id":       uuid.NewString(),
		"ingest_mode":    string(mode),
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if source != nil {
		sum := blake3.Sum256(source)
		info["source_checksum"] = hex.EncodeToString(sum[:])
	}
	for k, v := range info {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO catalog_info(key, value) VALUES (?, ?)`, k, v); err != nil {
			return storageErr("stamp catalog_info", err)
		}
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
