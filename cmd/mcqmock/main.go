package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mcqbank"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional)")
		medicine   = flag.Int("medicine", mcqbank.DefaultMockTestLimits[mcqbank.SubjectMedicine], "Medicine questions")
		paeds      = flag.Int("paeds", mcqbank.DefaultMockTestLimits[mcqbank.SubjectPaeds], "Paeds questions")
		gynae      = flag.Int("gynae", mcqbank.DefaultMockTestLimits[mcqbank.SubjectGynae], "Gynae questions")
		surgery    = flag.Int("surgery", mcqbank.DefaultMockTestLimits[mcqbank.SubjectSurgery], "Surgery questions")
		outputFile = flag.String("output", "", "Output file for the mock test JSON (default: stdout)")
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := mcqbank.OpenDB(cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer db.Close()

	mcqs, err := db.MockTest(ctx, map[mcqbank.Subject]int{
		mcqbank.SubjectMedicine: *medicine,
		mcqbank.SubjectPaeds:    *paeds,
		mcqbank.SubjectGynae:    *gynae,
		mcqbank.SubjectSurgery:  *surgery,
	})
	if err != nil {
		log.Fatalf("Failed to build mock test: %v", err)
	}
	if len(mcqs) == 0 {
		log.Printf("⚠️ No questions available")
	}

	if *outputFile != "" {
		if err := mcqbank.WriteJSONFile(*outputFile, mcqs); err != nil {
			log.Fatalf("Failed to write mock test: %v", err)
		}
		fmt.Printf("Mock test with %d questions saved to %s\n", len(mcqs), *outputFile)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mcqs); err != nil {
		log.Fatalf("Failed to encode mock test: %v", err)
	}
}
