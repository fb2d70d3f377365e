package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mcqbank"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional)")
		table      = flag.String("table", "", "Month table to load into (default: derived from -source)")
		source     = flag.String("source", "", "Source label stored with each question, e.g. \"March 2025.pdf:p438-452\" (default: dump file name)")
		verbose    = flag.Bool("verbose", false, "Enable verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: mcqimport [flags] classified_mcqs.json ...")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	mcqbank.SetVerbose(*verbose)

	if err := mcqbank.LoadENV(); err != nil {
		log.Printf("⚠️ %v", err)
	}
	cfg, err := mcqbank.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mcqbank.OpenDB(cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer db.Close()

	var total mcqbank.BatchResult
	for _, path := range flag.Args() {
		label := *source
		if label == "" {
			label = filepath.Base(path)
		}
		dest, err := mcqbank.ResolveTable(*table, label)
		if err != nil {
			log.Printf("❌ %s: %v (use -table)", path, err)
			continue
		}

		mcqs, err := mcqbank.ReadMCQDump(path)
		if err != nil {
			log.Printf("❌ %v", err)
			continue
		}
		if err := db.CreateTables(ctx, dest); err != nil {
			log.Fatalf("❌ %v", err)
		}

		fmt.Printf("💾 Loading %d MCQs from %s into %s\n", len(mcqs), path, dest)
		total.Add(db.BatchInsert(ctx, dest, mcqs, label, nil))
		if ctx.Err() != nil {
			fmt.Println("⚠️ Import interrupted by user")
			break
		}
	}

	fmt.Printf("\n✅ Successfully saved: %d MCQs (%d new, %d updated)\n", total.Successful(), total.Inserted, total.Updated)
	fmt.Printf("❌ Failed to save: %d MCQs\n", total.Rejected+total.Failed)
}
