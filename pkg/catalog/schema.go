package catalog

// schemaVersion is stamped into catalog_info at build time.
const schemaVersion = "2"

// dropSQL removes every catalog table. Builds drop and recreate rather than
// upsert so the result is consistent after schema or source changes.
const dropSQL = `
DROP TABLE IF EXISTS catalog_info;
DROP TABLE IF EXISTS document_metadata;
DROP TABLE IF EXISTS archive_files;
DROP TABLE IF EXISTS text_blocks;
DROP TABLE IF EXISTS page_numbers;
DROP TABLE IF EXISTS text_blocks_fts;
DROP TABLE IF EXISTS pages_fts;
`

// schemaSQL defines the persistent tables.
const schemaSQL = `
-- Build provenance: schema version, build id, ingestion mode, source checksum.
CREATE TABLE IF NOT EXISTS catalog_info (
    key TEXT PRIMARY KEY,
    value TEXT
);

-- One logical record per catalog. Written at build time, immutable except by
-- full rebuild.
CREATE TABLE IF NOT EXISTS document_metadata (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    identifier TEXT NOT NULL,
    slug TEXT,
    title TEXT,
    creator_primary TEXT,
    creator_secondary TEXT,
    publisher TEXT,
    publication_date TEXT,
    page_count INTEGER,
    language TEXT,
    collection TEXT,
    subject TEXT,
    mediatype TEXT,
    contributor TEXT,
    description TEXT,
    created_at TEXT
);

-- One row per source file.
CREATE TABLE IF NOT EXISTS archive_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    format TEXT,
    size_bytes INTEGER,
    source_type TEXT,
    md5_checksum TEXT,
    sha1_checksum TEXT,
    crc32_checksum TEXT,
    download_url TEXT
);

-- One row per OCR unit. Optional fields stay NULL when the ingestion mode
-- does not populate them.
CREATE TABLE IF NOT EXISTS text_blocks (
    stable_id TEXT PRIMARY KEY,
    leaf INTEGER NOT NULL,
    block_number INTEGER NOT NULL,
    block_type TEXT NOT NULL,
    language TEXT,
    text_direction TEXT,
    bbox_x0 INTEGER,
    bbox_y0 INTEGER,
    bbox_x1 INTEGER,
    bbox_y1 INTEGER,
    text TEXT NOT NULL,
    line_count INTEGER,
    word_count INTEGER,
    avg_confidence REAL,
    avg_font_size REAL,
    parent_area_id TEXT
);

-- Leaf to printed book page correspondence. At most one row per leaf.
CREATE TABLE IF NOT EXISTS page_numbers (
    leaf INTEGER PRIMARY KEY,
    book_page TEXT,
    confidence REAL,
    page_prob REAL,
    word_conf REAL
);

CREATE INDEX IF NOT EXISTS idx_blocks_leaf ON text_blocks(leaf);
CREATE INDEX IF NOT EXISTS idx_blocks_type ON text_blocks(block_type);
CREATE INDEX IF NOT EXISTS idx_blocks_language ON text_blocks(language);
CREATE INDEX IF NOT EXISTS idx_blocks_confidence ON text_blocks(avg_confidence);
CREATE INDEX IF NOT EXISTS idx_blocks_font_size ON text_blocks(avg_font_size);
CREATE INDEX IF NOT EXISTS idx_book_page ON page_numbers(book_page);
`

// ftsSQL rebuilds both derived indices from text_blocks. Stale index content
// is always dropped first, never merged. There are no sync triggers: index
// maintenance is the explicit Reindex entry point, full recompute per call.
const ftsSQL = `
DROP TABLE IF EXISTS text_blocks_fts;
CREATE VIRTUAL TABLE text_blocks_fts USING fts5(
    text,
    stable_id UNINDEXED,
    leaf UNINDEXED
);
INSERT INTO text_blocks_fts(rowid, text, stable_id, leaf)
SELECT rowid, text, stable_id, leaf FROM text_blocks;

DROP TABLE IF EXISTS pages_fts;
CREATE VIRTUAL TABLE pages_fts USING fts5(
    page_text,
    leaf UNINDEXED
);
INSERT INTO pages_fts(rowid, page_text, leaf)
SELECT ROW_NUMBER() OVER (ORDER BY leaf),
       group_concat(text, ' ' ORDER BY block_number),
       leaf
FROM text_blocks
GROUP BY leaf;
`
