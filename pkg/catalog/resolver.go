package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MappingFetch retrieves the raw page-number mapping resource when the
// catalog itself has no page_numbers rows. Typically this reads a
// *_page_numbers.json sidecar from disk or over HTTP.
type MappingFetch func(ctx context.Context) ([]byte, error)

// Resolver translates between printed book pages and physical leaf numbers.
//
// Lookups prefer the catalog's page_numbers table. When the table is empty
// the resolver falls back to the fetch function, re-fetching per lookup —
// callers resolving many pages in one run should build the mapping into the
// catalog instead. An empty table with no fetch function yields
// ErrNoMappingSource; a present mapping that lacks the requested page yields
// ErrPageNotFound.
type Resolver struct {
	cat   *Catalog
	fetch MappingFetch
}

// NewResolver builds a resolver over cat. fetch may be nil when the catalog
// is known to carry its own mapping.
func NewResolver(cat *Catalog, fetch MappingFetch) *Resolver {
	return &Resolver{cat: cat, fetch: fetch}
}

// LeafForBookPage returns the leaf number the given printed page label maps
// to. Labels are matched exactly: "42", "xiv" and "A-7" are all distinct.
func (r *Resolver) LeafForBookPage(ctx context.Context, bookPage string) (int, error) {
	stored, err := r.hasStoredMapping(ctx)
	if err != nil {
		return 0, err
	}
	if stored {
		var leaf int
		err := r.cat.db.QueryRowContext(ctx,
			`SELECT leaf FROM page_numbers WHERE book_page = ? ORDER BY leaf LIMIT 1`,
			bookPage).Scan(&leaf)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: book page %q", ErrPageNotFound, bookPage)
		}
		if err != nil {
			return 0, storageErr("lookup book page", err)
		}
		return leaf, nil
	}

	pages, err := r.fallbackMapping(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range pages {
		if p.BookPage == bookPage {
			return p.Leaf, nil
		}
	}
	return 0, fmt.Errorf("%w: book page %q", ErrPageNotFound, bookPage)
}

// BookPageForLeaf returns the printed page label recorded for a leaf.
func (r *Resolver) BookPageForLeaf(ctx context.Context, leaf int) (string, error) {
	stored, err := r.hasStoredMapping(ctx)
	if err != nil {
		return "", err
	}
	if stored {
		var page string
		err := r.cat.db.QueryRowContext(ctx,
			`SELECT book_page FROM page_numbers WHERE leaf = ?`, leaf).Scan(&page)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: leaf %d", ErrPageNotFound, leaf)
		}
		if err != nil {
			return "", storageErr("lookup leaf", err)
		}
		return page, nil
	}

	pages, err := r.fallbackMapping(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if p.Leaf == leaf {
			return p.BookPage, nil
		}
	}
	return "", fmt.Errorf("%w: leaf %d", ErrPageNotFound, leaf)
}

// Resolution is the outcome of one batch lookup. Err is nil on success,
// ErrPageNotFound when the mapping lacks the page, or ErrNoMappingSource
// when nothing could be consulted.
type Resolution struct {
	BookPage string
	Leaf     int
	Err      error
}

// ResolveAll looks up every page label, continuing past per-page failures.
// The returned slice is parallel to bookPages.
func (r *Resolver) ResolveAll(ctx context.Context, bookPages []string) []Resolution {
	out := make([]Resolution, len(bookPages))
	for i, bp := range bookPages {
		leaf, err := r.LeafForBookPage(ctx, bp)
		out[i] = Resolution{BookPage: bp, Leaf: leaf, Err: err}
	}
	return out
}

// hasStoredMapping reports whether the catalog's page_numbers table exists
// and holds at least one row. An empty table counts as no mapping so a
// catalog built without a sidecar still resolves via fetch.
func (r *Resolver) hasStoredMapping(ctx context.Context) (bool, error) {
	var n int
	err := r.cat.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'page_numbers'`).Scan(&n)
	if err != nil {
		return false, storageErr("probe page_numbers", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := r.cat.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_numbers`).Scan(&n); err != nil {
		return false, storageErr("count page_numbers", err)
	}
	return n > 0, nil
}

func (r *Resolver) fallbackMapping(ctx context.Context) ([]PageNumber, error) {
	if r.fetch == nil {
		return nil, ErrNoMappingSource
	}
	data, err := r.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", ErrNoMappingSource, err)
	}
	return ParsePageNumbers(data)
}
