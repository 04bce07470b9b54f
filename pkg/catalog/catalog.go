// Package catalog builds and queries searchable catalogs of OCR'd documents.
//
// A catalog is a single SQLite file holding the document metadata, the source
// file manifest, the normalized text blocks produced by one of the format
// parsers, an optional leaf-to-book-page mapping, and two derived full-text
// indices (block level and page level). The indices are always a deterministic
// function of the text_blocks table and are rebuilt wholesale, never patched.
//
// This package provides:
//
// - The shared data model every format parser targets (TextBlock, PageNumber)
// - Build, RebuildText and Reindex with drop-and-recreate table semantics
// - FTS5-backed search at block or page granularity with query escaping
// - Page identity resolution between printed book pages and physical leaves
//
// All operations take an explicit *Catalog handle; there is no package-level
// connection state.
package catalog

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Catalog is a handle to one catalog database.
type Catalog struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Open opens (or creates) a catalog database at path.
// A catalog build holds exclusive write ownership for its duration, so the
// connection pool is capped at a single connection.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Catalog{db: db, path: path, log: slog.Default()}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the filesystem path of the catalog database.
func (c *Catalog) Path() string { return c.path }

// SetLogger replaces the logger used for build progress. nil restores the
// process default.
func (c *Catalog) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	c.log = l
}
