// iacat builds and queries searchable catalogs of OCR'd Internet Archive
// documents.
//
// A catalog is a single SQLite file produced from locally downloaded
// derivative files: an hOCR document, a plain-text stream with its pageindex,
// or a DjVu XML document, plus the optional meta.xml, files.xml and
// page-numbers sidecars.
//
// Configuration:
//
// An optional YAML configuration file supplies defaults:
//
//	catalog: "catalog.db"
//	limit: 20
//	granularity: "pages"
//
// Usage:
//
//	iacat <command> [options]
//
// Commands:
//
//	create    Build a catalog from OCR derivative files
//	rebuild   Replace the text blocks of an existing catalog
//	reindex   Recompute the full-text indices from stored blocks
//	search    Run a full-text query against a catalog
//	resolve   Convert a printed book page to its physical leaf
//	info      Show catalog provenance and statistics
//
// Example:
//
//	iacat create -db atlas.db -id anatomicalatlasi00smit \
//	    -hocr atlas_hocr.html -meta atlas_meta.xml -files atlas_files.xml \
//	    -pages atlas_page_numbers.json
//	iacat search -db atlas.db -limit 10 "cranial nerve"
//	iacat resolve -db atlas.db -page 42
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mhalle/ia-utils/pkg/catalog"
	"github.com/mhalle/ia-utils/pkg/djvutext"
	"github.com/mhalle/ia-utils/pkg/djvuxml"
	"github.com/mhalle/ia-utils/pkg/hocr"
	"github.com/mhalle/ia-utils/pkg/iameta"
)

type yamlConfig struct {
	Catalog     string `yaml:"catalog"`
	Limit       int    `yaml:"limit"`
	Granularity string `yaml:"granularity"`
}

// loadConfig reads the optional YAML defaults file.
func loadConfig(path string) (*yamlConfig, error) {
	yc := &yamlConfig{}
	if path == "" {
		return yc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, yc); err != nil {
		return nil, err
	}
	return yc, nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "create":
		runCreate(ctx, args)
	case "rebuild":
		runRebuild(ctx, args)
	case "reindex":
		runReindex(ctx, args)
	case "search":
		runSearch(ctx, args)
	case "resolve":
		runResolve(ctx, args)
	case "info":
		runInfo(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: iacat <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands: create, rebuild, reindex, search, resolve, info")
}

// ingestFlags are the OCR input options shared by create and rebuild.
// Exactly one input format must be provided.
type ingestFlags struct {
	hocrPath      string
	textPath      string
	pageIndexPath string
	djvuXMLPath   string
}

func (f *ingestFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.hocrPath, "hocr", "", "Path to an hOCR document")
	fs.StringVar(&f.textPath, "text", "", "Path to a plain-text OCR stream (requires -pageindex)")
	fs.StringVar(&f.pageIndexPath, "pageindex", "", "Path to the page offset index for -text")
	fs.StringVar(&f.djvuXMLPath, "djvuxml", "", "Path to a DjVu XML document")
}

// source reads the selected input and returns the block source plus the raw
// bytes used for the provenance checksum.
func (f *ingestFlags) source() (catalog.BlockSource, []byte, error) {
	provided := 0
	for _, p := range []string{f.hocrPath, f.textPath, f.djvuXMLPath} {
		if p != "" {
			provided++
		}
	}
	if provided != 1 {
		return nil, nil, fmt.Errorf("exactly one of -hocr, -text or -djvuxml is required")
	}

	switch {
	case f.hocrPath != "":
		data, err := os.ReadFile(f.hocrPath)
		if err != nil {
			return nil, nil, err
		}
		return hocr.NewSource(data), data, nil
	case f.textPath != "":
		if f.pageIndexPath == "" {
			return nil, nil, fmt.Errorf("-text requires -pageindex")
		}
		text, err := os.ReadFile(f.textPath)
		if err != nil {
			return nil, nil, err
		}
		index, err := os.ReadFile(f.pageIndexPath)
		if err != nil {
			return nil, nil, err
		}
		return djvutext.NewSource(text, index), text, nil
	default:
		data, err := os.ReadFile(f.djvuXMLPath)
		if err != nil {
			return nil, nil, err
		}
		return djvuxml.NewSource(strings.NewReader(string(data))), data, nil
	}
}

func runCreate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the optional config YAML file")
	dbPath := fs.String("db", "", "Path of the catalog database to create")
	identifier := fs.String("id", "", "Item identifier (bare or a details URL)")
	metaPath := fs.String("meta", "", "Path to the meta.xml descriptor")
	filesPath := fs.String("files", "", "Path to the files.xml manifest")
	pagesPath := fs.String("pages", "", "Path to the page-numbers JSON sidecar")
	var ingest ingestFlags
	ingest.register(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	path := pick(*dbPath, cfg.Catalog)
	if path == "" {
		log.Fatalf("-db flag is required")
	}
	if *identifier == "" {
		log.Fatalf("-id flag is required")
	}
	id := iameta.ParseIdentifier(*identifier)

	src, raw, err := ingest.source()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	in := catalog.BuildInput{
		Identifier:  id,
		Source:      src,
		SourceBytes: raw,
	}

	if *metaPath != "" {
		data, err := os.ReadFile(*metaPath)
		if err != nil {
			log.Fatalf("Failed to read metadata: %v", err)
		}
		in.Metadata, err = iameta.ParseMetadata(data)
		if err != nil {
			log.Fatalf("Failed to parse metadata: %v", err)
		}
	}
	in.Slug = iameta.GenerateSlug(in.Metadata, id)

	if *filesPath != "" {
		data, err := os.ReadFile(*filesPath)
		if err != nil {
			log.Fatalf("Failed to read file manifest: %v", err)
		}
		in.Files, err = iameta.ParseFiles(data)
		if err != nil {
			log.Fatalf("Failed to parse file manifest: %v", err)
		}
	}

	if *pagesPath != "" {
		data, err := os.ReadFile(*pagesPath)
		if err != nil {
			log.Fatalf("Failed to read page numbers: %v", err)
		}
		in.PageNumbers, err = catalog.ParsePageNumbers(data)
		if err != nil {
			log.Fatalf("Failed to parse page numbers: %v", err)
		}
	}

	cat, err := catalog.Open(path)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	if err := cat.Build(ctx, in); err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	fmt.Println("Catalog saved to:", path)
}

func runRebuild(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	dbPath := fs.String("db", "", "Path of the catalog database")
	var ingest ingestFlags
	ingest.register(fs)
	fs.Parse(args)

	if *dbPath == "" {
		log.Fatalf("-db flag is required")
	}
	src, _, err := ingest.source()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	blocks, err := src.TextBlocks()
	if err != nil {
		log.Fatalf("Parse failed: %v", err)
	}

	cat, err := catalog.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	if err := cat.RebuildText(ctx, blocks); err != nil {
		log.Fatalf("Rebuild failed: %v", err)
	}
	fmt.Printf("Replaced text blocks in %s (%d blocks)\n", *dbPath, len(blocks))
}

func runReindex(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	dbPath := fs.String("db", "", "Path of the catalog database")
	fs.Parse(args)

	if *dbPath == "" {
		log.Fatalf("-db flag is required")
	}
	cat, err := catalog.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	if err := cat.Reindex(ctx); err != nil {
		log.Fatalf("Reindex failed: %v", err)
	}
	fmt.Println("Indices rebuilt for:", *dbPath)
}

func runSearch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the optional config YAML file")
	dbPath := fs.String("db", "", "Path of the catalog database")
	blocks := fs.Bool("blocks", false, "Search at block granularity instead of pages")
	limit := fs.Int("limit", 0, "Maximum number of results (default 20)")
	class := fs.String("class", "", "Restrict to a block classification (paragraph, caption, header, floating-text)")
	bookPage := fs.String("book-page", "", "Restrict to a printed page label")
	raw := fs.Bool("raw", false, "Pass the query to the index verbatim (full FTS5 syntax)")
	density := fs.Bool("density", false, "Order by match count before relevance")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	path := pick(*dbPath, cfg.Catalog)
	if path == "" {
		log.Fatalf("-db flag is required")
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		log.Fatalf("A query is required")
	}

	opts := catalog.SearchOptions{
		Limit:          *limit,
		Class:          *class,
		BookPage:       *bookPage,
		Raw:            *raw,
		OrderByDensity: *density,
	}
	if opts.Limit == 0 {
		opts.Limit = cfg.Limit
	}
	if *blocks {
		opts.Granularity = catalog.GranularityBlocks
	} else if cfg.Granularity != "" {
		opts.Granularity = cfg.Granularity
	}

	cat, err := catalog.Open(path)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	results, err := cat.Search(ctx, query, opts)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		page := r.BookPage
		if page == "" {
			page = "-"
		}
		if r.StableID != "" {
			fmt.Printf("leaf %d (p. %s) [%s %s] %dx: %s\n",
				r.Leaf, page, r.Class, r.StableID, r.MatchCount, r.Excerpt)
		} else {
			fmt.Printf("leaf %d (p. %s) %dx: %s\n", r.Leaf, page, r.MatchCount, r.Excerpt)
		}
	}
}

func runResolve(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	dbPath := fs.String("db", "", "Path of the catalog database")
	pagesPath := fs.String("pages", "", "Page-numbers JSON sidecar to consult when the catalog has no mapping")
	pageRef := fs.String("page", "", "Page reference: a printed page label, or nN for a physical leaf")
	fs.Parse(args)

	if *dbPath == "" || *pageRef == "" {
		log.Fatalf("-db and -page flags are required")
	}

	cat, err := catalog.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	var fetch catalog.MappingFetch
	if *pagesPath != "" {
		fetch = func(context.Context) ([]byte, error) {
			return os.ReadFile(*pagesPath)
		}
	}
	resolver := catalog.NewResolver(cat, fetch)

	ref := iameta.ParsePageRef(*pageRef)
	if !ref.Valid {
		log.Fatalf("Invalid page reference: %q", *pageRef)
	}
	switch ref.Kind {
	case iameta.RefLeaf:
		page, err := resolver.BookPageForLeaf(ctx, ref.Leaf)
		if err != nil {
			log.Fatalf("Resolve failed: %v", err)
		}
		fmt.Printf("leaf %d is printed page %s\n", ref.Leaf, page)
	case iameta.RefBook:
		leaf, err := resolver.LeafForBookPage(ctx, ref.Book)
		if err != nil {
			log.Fatalf("Resolve failed: %v", err)
		}
		fmt.Printf("printed page %s is leaf %d\n", ref.Book, leaf)
	}
}

func runInfo(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dbPath := fs.String("db", "", "Path of the catalog database")
	fs.Parse(args)

	if *dbPath == "" {
		log.Fatalf("-db flag is required")
	}
	cat, err := catalog.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	info, err := cat.Info(ctx)
	if err != nil {
		log.Fatalf("Failed to read catalog info: %v", err)
	}

	fmt.Println("Identifier:    ", info.Identifier)
	fmt.Println("Slug:          ", info.Slug)
	fmt.Println("Title:         ", info.Title)
	fmt.Println("Ingest mode:   ", info.Mode)
	fmt.Println("Build id:      ", info.BuildID)
	fmt.Println("Schema version:", info.SchemaVersion)
	fmt.Println("Created:       ", info.CreatedAt)
	if info.SourceChecksum != "" {
		fmt.Println("Source BLAKE3: ", info.SourceChecksum)
	}
	fmt.Println("Text blocks:   ", info.BlockCount)
	fmt.Println("Pages with text:", info.PageCount)
	fmt.Println("Mapped pages:  ", info.MappedPages)
	fmt.Println("Manifest files:", info.FileCount)
	if info.AvgConfidence != nil {
		fmt.Printf("Avg confidence: %.1f\n", *info.AvgConfidence)
	}
	for class, n := range info.ClassCounts {
		fmt.Printf("  %-14s %d\n", class, n)
	}
}

func pick(flagVal, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfgVal
}
