package catalog

import (
	"context"
	"database/sql"
	"errors"
)

// Info summarizes a built catalog: provenance stamps, the document record,
// and content statistics.
type Info struct {
	Identifier     string
	Slug           string
	Title          string
	Mode           IngestMode
	BuildID        string
	SourceChecksum string
	SchemaVersion  string
	CreatedAt      string

	BlockCount    int
	PageCount     int
	MappedPages   int
	FileCount     int
	AvgConfidence *float64
	ClassCounts   map[string]int
}

// Info reads the catalog's provenance and statistics.
func (c *Catalog) Info(ctx context.Context) (*Info, error) {
	info := &Info{ClassCounts: map[string]int{}}

	rows, err := c.db.QueryContext(ctx, `SELECT key, value FROM catalog_info`)
	if err != nil {
		return nil, storageErr("read catalog_info", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, storageErr("scan catalog_info", err)
		}
		switch k {
		case "build_id":
			info.BuildID = v
		case "ingest_mode":
			info.Mode = IngestMode(v)
		case "source_checksum":
			info.SourceChecksum = v
		case "schema_version":
			info.SchemaVersion = v
		case "created_at":
			info.CreatedAt = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read catalog_info", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT identifier, COALESCE(slug, ''), COALESCE(title, '') FROM document_metadata WHERE id = 1`).
		Scan(&info.Identifier, &info.Slug, &info.Title)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("read document_metadata", err)
	}

	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT leaf) FROM text_blocks`).
		Scan(&info.BlockCount, &info.PageCount); err != nil {
		return nil, storageErr("count text_blocks", err)
	}
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_numbers`).Scan(&info.MappedPages); err != nil {
		return nil, storageErr("count page_numbers", err)
	}
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM archive_files`).Scan(&info.FileCount); err != nil {
		return nil, storageErr("count archive_files", err)
	}

	var avg sql.NullFloat64
	if err := c.db.QueryRowContext(ctx,
		`SELECT AVG(avg_confidence) FROM text_blocks WHERE avg_confidence IS NOT NULL`).
		Scan(&avg); err != nil {
		return nil, storageErr("average confidence", err)
	}
	if avg.Valid {
		info.AvgConfidence = &avg.Float64
	}

	classes, err := c.db.QueryContext(ctx,
		`SELECT block_type, COUNT(*) FROM text_blocks GROUP BY block_type`)
	if err != nil {
		return nil, storageErr("count block types", err)
	}
	defer classes.Close()
	for classes.Next() {
		var class string
		var n int
		if err := classes.Scan(&class, &n); err != nil {
			return nil, storageErr("scan block types", err)
		}
		info.ClassCounts[class] = n
	}
	if err := classes.Err(); err != nil {
		return nil, storageErr("count block types", err)
	}
	return info, nil
}
