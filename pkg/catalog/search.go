package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SearchOptions controls granularity, filtering and ordering of a search.
// The zero value searches at page granularity with escaped queries, BM25
// ordering, and the default limit.
type SearchOptions struct {
	// Granularity selects the index: "pages" (default) or "blocks".
	Granularity string
	// Limit caps the number of results; 0 means 20.
	Limit int
	// Class restricts results to pages containing (or blocks of) the given
	// classification.
	Class string
	// BookPage restricts results to leaves mapped to this printed page label.
	BookPage string
	// Raw passes the query to the index verbatim, enabling full FTS5 syntax.
	// Syntax errors then surface as *QueryError.
	Raw bool
	// OrderByDensity orders by match count (occurrences, descending) before
	// relevance, favoring pages saturated with the query terms.
	OrderByDensity bool
	// SnippetTokens is the approximate excerpt length in tokens; 0 means 32.
	SnippetTokens int
}

const (
	GranularityPages  = "pages"
	GranularityBlocks = "blocks"
)

// Result is one search hit. StableID and Class are only set at block
// granularity. BookPage is empty when the leaf has no mapping.
type Result struct {
	Leaf       int
	BookPage   string
	StableID   string
	Class      string
	Excerpt    string
	Rank       float64
	MatchCount int
}

// Search runs a full-text query against the catalog. Queries are escaped to
// plain term/phrase matching unless opts.Raw is set. Excerpts mark matched
// terms with the arrows used throughout the tooling.
func (c *Catalog) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	match := query
	if !opts.Raw {
		match = EscapeQuery(query)
	}
	if strings.TrimSpace(match) == "" {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	tokens := opts.SnippetTokens
	if tokens <= 0 {
		tokens = 32
	}

	switch opts.Granularity {
	case "", GranularityPages:
		return c.searchPages(ctx, query, match, opts, limit, tokens)
	case GranularityBlocks:
		return c.searchBlocks(ctx, query, match, opts, limit, tokens)
	default:
		return nil, fmt.Errorf("unknown search granularity %q", opts.Granularity)
	}
}

func (c *Catalog) searchPages(ctx context.Context, orig, match string, opts SearchOptions, limit, tokens int) ([]Result, error) {
	// match_count: highlight() inserts one marker per matched token, so the
	// length delta against the unmarked text counts occurrences.
	q := `
		SELECT pages_fts.leaf,
		       COALESCE(p.book_page, '') AS book_page,
		       snippet(pages_fts, 0, '→', '←', '...', ?) AS excerpt,
		       rank,
		       LENGTH(highlight(pages_fts, 0, char(1), '')) - LENGTH(pages_fts.page_text) AS match_count
		FROM pages_fts
		LEFT JOIN page_numbers p ON p.leaf = pages_fts.leaf
		WHERE pages_fts MATCH ?`
	args := []any{tokens, match}
	if opts.Class != "" {
		q += ` AND EXISTS (SELECT 1 FROM text_blocks b WHERE b.leaf = pages_fts.leaf AND b.block_type = ?)`
		args = append(args, opts.Class)
	}
	if opts.BookPage != "" {
		q += ` AND p.book_page = ?`
		args = append(args, opts.BookPage)
	}
	if opts.OrderByDensity {
		q += ` ORDER BY match_count DESC, rank`
	} else {
		q += ` ORDER BY rank`
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &QueryError{Query: orig, Err: err}
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Leaf, &r.BookPage, &r.Excerpt, &r.Rank, &r.MatchCount); err != nil {
			return nil, storageErr("scan page result", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: orig, Err: err}
	}
	return results, nil
}

func (c *Catalog) searchBlocks(ctx context.Context, orig, match string, opts SearchOptions, limit, tokens int) ([]Result, error) {
	q := `
		SELECT b.leaf,
		       COALESCE(p.book_page, '') AS book_page,
		       b.stable_id,
		       b.block_type,
		       snippet(text_blocks_fts, 0, '→', '←', '...', ?) AS excerpt,
		       rank,
		       LENGTH(highlight(text_blocks_fts, 0, char(1), '')) - LENGTH(b.text) AS match_count
		FROM text_blocks_fts
		JOIN text_blocks b ON b.rowid = text_blocks_fts.rowid
		LEFT JOIN page_numbers p ON p.leaf = b.leaf
		WHERE text_blocks_fts MATCH ?`
	args := []any{tokens, match}
	if opts.Class != "" {
		q += ` AND b.block_type = ?`
		args = append(args, opts.Class)
	}
	if opts.BookPage != "" {
		q += ` AND p.book_page = ?`
		args = append(args, opts.BookPage)
	}
	if opts.OrderByDensity {
		q += ` ORDER BY match_count DESC, rank`
	} else {
		q += ` ORDER BY rank`
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &QueryError{Query: orig, Err: err}
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Leaf, &r.BookPage, &r.StableID, &r.Class,
			&r.Excerpt, &r.Rank, &r.MatchCount); err != nil {
			return nil, storageErr("scan block result", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: orig, Err: err}
	}
	return results, nil
}

// PageText returns the concatenated text of one leaf, blocks joined in block
// order with single spaces. Returns ErrPageNotFound when the leaf has no
// blocks.
func (c *Catalog) PageText(ctx context.Context, leaf int) (string, error) {
	var text sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT group_concat(text, ' ' ORDER BY block_number)
		FROM text_blocks WHERE leaf = ?`,
		leaf).Scan(&text)
	if err != nil {
		return "", storageErr("read page text", err)
	}
	if !text.Valid {
		return "", fmt.Errorf("%w: leaf %d", ErrPageNotFound, leaf)
	}
	return text.String, nil
}
