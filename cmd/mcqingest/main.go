package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mcqbank"

	"github.com/google/uuid"
)

const (
	defaultPDF    = "March 2025.pdf"
	defaultStart  = 438
	defaultEnd    = 452
	defaultWindow = mcqbank.DefaultWindowPages
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional)")
		batchPages = flag.Int("batch-pages", 0, "Pages per batch (default from config, 20)")
		table      = flag.String("table", "", "Month table to load into (default: derived from the PDF name)")
		dumpDir    = flag.String("dump-dir", "", "Directory for the JSON dumps (default from config)")
		dryRun     = flag.Bool("dry-run", false, "Extract, explain and classify without saving")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)
	flag.Usage = usage
	flag.Parse()

	mcqbank.SetVerbose(*verbose)

	if err := mcqbank.LoadENV(); err != nil {
		log.Printf("⚠️ %v", err)
	}
	cfg, err := mcqbank.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pdfName, pages, window, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		usage()
		os.Exit(2)
	}

	pdfPath := pdfName
	if !filepath.IsAbs(pdfPath) && filepath.Dir(pdfPath) == "." {
		pdfPath = filepath.Join(cfg.Ingest.PDFDir, pdfName)
	}

	fmt.Printf("🚀 MCQ Extractor for %s\n", filepath.Base(pdfPath))
	fmt.Println(strings.Repeat("=", 40))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := mcqbank.OpenPDF(pdfPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer doc.Close()

	var ocr *mcqbank.PageOCR
	fz, err := mcqbank.OpenFitz(pdfPath)
	if err != nil {
		log.Printf("⚠️ Text fallback and OCR unavailable: %v", err)
	} else {
		defer fz.Close()
		if cfg.OCR.Enabled {
			client := mcqbank.NewOCRClient(cfg.OCR.URL, cfg.OCR.Timeout)
			if err := client.HealthCheck(ctx); err != nil {
				log.Printf("⚠️ OCR disabled: %v", err)
			} else {
				ocr = mcqbank.NewPageOCR(fz, client, cfg.OCR.DPI)
			}
		}
	}
	extractor := mcqbank.NewExtractor(doc, ocr)
	if fz != nil {
		extractor.SetTextFallback(fz)
	}

	var db *mcqbank.DB
	if !*dryRun {
		fmt.Println("🔧 Initializing database...")
		db, err = mcqbank.OpenDB(cfg.Database.Driver, cfg.Database.DataSource())
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer db.Close()
	}

	gen, closer, err := mcqbank.BuildGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create LLM client: %v", err)
	}
	defer closer.Close()

	runID := uuid.NewString()
	logger, err := mcqbank.NewLLMLogger(cfg.Ingest.LogDir, mcqbank.RunInfo{
		RunID:      runID,
		SourceFile: filepath.Base(pdfPath),
		Pages:      pages,
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
	})
	if err != nil {
		log.Printf("⚠️ LLM transcript disabled: %v", err)
	} else {
		defer logger.Close()
		log.Printf("LLM transcript: %s", logger.Path())
	}

	opts := mcqbank.OptionsFromConfig(cfg.Ingest)
	opts.RunID = runID
	opts.WindowPages = window
	if opts.OverlapPages >= window {
		opts.OverlapPages = window - 1
	}
	if *batchPages > 0 {
		opts.BatchPages = *batchPages
	}
	if *dumpDir != "" {
		opts.DumpDir = *dumpDir
	}
	opts.Table = *table
	opts.DryRun = *dryRun

	fmt.Printf("📖 Pages: %d to %d\n", pages.Start, pages.End)
	fmt.Printf("📦 Window: %d pages (overlap %d), batch: %d pages\n", opts.WindowPages, opts.OverlapPages, opts.BatchPages)

	pipeline := mcqbank.NewPipeline(gen, extractor, db, logger, opts)
	stats, runErr := pipeline.Run(ctx, pdfPath, pages)

	// reporting runs even after an interrupt
	reportCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(stats.AnswerChecks) > 0 {
		mcqbank.WriteAnswerReport(os.Stdout, stats.AnswerChecks)
	}
	mcqbank.WriteRunSummary(os.Stdout, stats)

	if db != nil && stats.Table != "" {
		if stats.Insert.Successful() > 0 {
			fmt.Println("\n🔍 Verifying database storage...")
			if _, err := mcqbank.VerifyStorage(reportCtx, os.Stdout, db, stats.Table, stats.Source); err != nil {
				fmt.Printf("❌ Could not verify database storage: %v\n", err)
			}
			fmt.Println("\n🔍 Verifying explanations...")
			if _, _, err := mcqbank.VerifyExplanations(reportCtx, os.Stdout, db, stats.Table, stats.Source); err != nil {
				fmt.Printf("⚠️ Could not verify explanations: %v\n", err)
			}
		}

		fmt.Println("\n📈 Database statistics:")
		if s, err := db.Statistics(reportCtx, stats.Table); err != nil {
			fmt.Printf("❌ Could not read statistics: %v\n", err)
		} else {
			mcqbank.WriteStatistics(os.Stdout, s)
		}
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		fmt.Println("\n⚠️ Process interrupted by user")
	case runErr != nil:
		fmt.Printf("\n❌ Error: %v\n", runErr)
		os.Exit(1)
	}
}

// parseArgs reads [pdf] [start] [end] [window], falling back to defaults
// for missing arguments
func parseArgs(args []string) (string, mcqbank.PageRange, int, error) {
	pdfName := defaultPDF
	pages := mcqbank.PageRange{Start: defaultStart, End: defaultEnd}
	window := defaultWindow

	if len(args) > 4 {
		return "", pages, 0, fmt.Errorf("too many arguments: %d", len(args))
	}
	if len(args) > 0 {
		pdfName = args[0]
	}

	ints := []*int{&pages.Start, &pages.End, &window}
	names := []string{"start page", "end page", "window size"}
	for i := 1; i < len(args); i++ {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return "", pages, 0, fmt.Errorf("invalid %s %q", names[i-1], args[i])
		}
		*ints[i-1] = n
	}

	if window < 1 {
		return "", pages, 0, fmt.Errorf("window size must be positive, got %d", window)
	}
	return pdfName, pages, window, nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "\n📖 MCQ Extractor Usage:")
	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintln(out, "mcqingest [flags] [pdf_name] [start_page] [end_page] [window_pages]")
	fmt.Fprintln(out, "\nExamples:")
	fmt.Fprintf(out, "  mcqingest                              # Default: %s, pages %d-%d\n", defaultPDF, defaultStart, defaultEnd)
	fmt.Fprintln(out, "  mcqingest 'March 2025.pdf' 1 100       # Pages 1-100")
	fmt.Fprintln(out, "  mcqingest 'March 2025.pdf' 1 100 3     # Pages 1-100, 3-page windows")
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()

	entries, err := os.ReadDir("pdf_files")
	if err != nil {
		return
	}
	fmt.Fprintln(out, "\nAvailable PDFs:")
	for _, e := range entries {
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			fmt.Fprintf(out, "  - %s\n", e.Name())
		}
	}
}
