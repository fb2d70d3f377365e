package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"mcqbank"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional)")
		year       = flag.Int("year", time.Now().Year(), "Create the twelve month tables of this year")
		tables     = flag.String("tables", "", "Comma-separated extra month tables to create, e.g. march25_mcqs")
		stats      = flag.Bool("stats", true, "Print statistics of every month table")
		verbose    = flag.Bool("verbose", false, "Enable verbose output")
	)
	flag.Parse()

	mcqbank.SetVerbose(*verbose)

	if err := mcqbank.LoadENV(); err != nil {
		log.Printf("⚠️ %v", err)
	}
	cfg, err := mcqbank.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := mcqbank.OpenDB(cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer db.Close()

	if *year > 0 {
		if err := db.CreateYearTables(ctx, *year); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("✅ Month tables for %d ready\n", *year)
	}

	if *tables != "" {
		var extra []string
		for _, t := range strings.Split(*tables, ",") {
			if t = strings.TrimSpace(t); t != "" {
				extra = append(extra, t)
			}
		}
		if err := db.CreateTables(ctx, extra...); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("✅ Created %s\n", strings.Join(extra, ", "))
	}

	if !*stats {
		return
	}

	months, err := db.MonthTables(ctx)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	for _, table := range months {
		s, err := db.Statistics(ctx, table)
		if err != nil {
			fmt.Printf("❌ Could not read statistics of %s: %v\n", table, err)
			continue
		}
		if len(s.Subjects) == 0 && !*verbose {
			continue
		}
		mcqbank.WriteStatistics(os.Stdout, s)
	}
}
