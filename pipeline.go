package mcqbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Names of the per-batch JSON dumps
const (
	ExtractedDumpFile  = "extracted_mcqs.json"
	ClassifiedDumpFile = "classified_mcqs.json"
)

// PipelineOptions shapes one ingestion run
type PipelineOptions struct {
	RunID         string // generated when empty
	WindowPages   int
	OverlapPages  int
	BatchPages    int
	ClassifyBatch int
	Table         string // month table; derived from the source name when empty
	DumpDir       string // empty disables the JSON dumps
	DryRun        bool   // stop after classification
}

// OptionsFromConfig fills PipelineOptions from the ingest settings
func OptionsFromConfig(cfg IngestConfig) PipelineOptions {
	return PipelineOptions{
		WindowPages:   cfg.WindowPages,
		OverlapPages:  cfg.OverlapPages,
		BatchPages:    cfg.BatchPages,
		ClassifyBatch: cfg.ClassifyBatch,
		DumpDir:       cfg.DumpDir,
	}
}

// Pipeline orchestrates extraction, segmentation, merging, explanation,
// classification and persistence of the questions in a page range
type Pipeline struct {
	extractor  *Extractor
	segmenter  *Segmenter
	explainer  *Explainer
	classifier *Classifier
	db         *DB
	logger     *LLMLogger
	opts       PipelineOptions
}

// NewPipeline wires the stages around one generator. db may be nil for a
// dry run; logger may be nil.
func NewPipeline(gen Generator, extractor *Extractor, db *DB, logger *LLMLogger, opts PipelineOptions) *Pipeline {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.WindowPages < 1 {
		opts.WindowPages = DefaultWindowPages
	}
	if opts.OverlapPages < 0 || opts.OverlapPages >= opts.WindowPages {
		opts.OverlapPages = min(DefaultOverlapPages, opts.WindowPages-1)
	}
	if opts.BatchPages < 1 {
		opts.BatchPages = 20
	}
	return &Pipeline{
		extractor:  extractor,
		segmenter:  NewSegmenter(gen, logger),
		explainer:  NewExplainer(gen, logger),
		classifier: NewClassifier(gen, opts.ClassifyBatch, logger),
		db:         db,
		logger:     logger,
		opts:       opts,
	}
}

// RunID identifies the run in logs and transcripts
func (p *Pipeline) RunID() string {
	return p.opts.RunID
}

// RunStats summarises a run. It is filled in as batches complete, so a
// cancelled run still reports what it did.
type RunStats struct {
	RunID         string
	Source        string
	Table         string
	Pages         PageRange
	Batches       int
	BatchesFailed int
	Windows       int
	WindowsFailed int
	Candidates    int
	Merged        int
	Explained     int
	Subjects      map[Subject]int
	Insert        BatchResult
	AnswerChecks  []AnswerCheck
	Duration      time.Duration
}

// SuccessRate is the share of attempted inserts that were stored, in percent
func (s *RunStats) SuccessRate() float64 {
	attempted := s.Insert.Successful() + s.Insert.Rejected + s.Insert.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Insert.Successful()) / float64(attempted) * 100
}

// ResolveTable returns the month table for source, or table when given
func ResolveTable(table, source string) (string, error) {
	if table == "" {
		date, err := ParseExamDate(source)
		if err != nil {
			return "", fmt.Errorf("cannot derive exam table from %q: %w", source, err)
		}
		table = MonthTableName(date)
	}
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	return table, nil
}

// SourceLabel names the pages of a batch as stored in source_file, e.g.
// "March 2025.pdf:p438-452"
func SourceLabel(source string, r PageRange) string {
	return fmt.Sprintf("%s:p%d-%d", filepath.Base(source), r.Start, r.End)
}

// Run processes r batch by batch. A failing batch is logged and skipped;
// only an unusable range, an unknown table or cancellation end the run
// early. The returned stats are never nil.
func (p *Pipeline) Run(ctx context.Context, source string, r PageRange) (*RunStats, error) {
	started := time.Now()
	stats := &RunStats{
		RunID:    p.opts.RunID,
		Source:   filepath.Base(source),
		Subjects: make(map[Subject]int),
	}
	defer func() { stats.Duration = time.Since(started) }()

	r, err := ClampRange(r, p.extractor.doc.NumPages())
	if err != nil {
		return stats, err
	}
	stats.Pages = r

	table, err := ResolveTable(p.opts.Table, source)
	if err != nil {
		return stats, err
	}
	stats.Table = table

	if p.db != nil && !p.opts.DryRun {
		if err := p.db.CreateTables(ctx, table); err != nil {
			return stats, err
		}
	}

	log.Printf("Processing %s, pages %s, into %s (run %s)", stats.Source, r, table, p.opts.RunID)
	p.logger.Logf("Table: %s\n", table)

	for start := r.Start; start < r.End; start += p.opts.BatchPages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		batch := PageRange{Start: start, End: min(start+p.opts.BatchPages, r.End)}
		stats.Batches++

		log.Printf("Processing pages %s...", batch)
		if err := p.runBatch(ctx, source, table, batch, stats); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Printf("%s Error processing pages %s: %v", markFail, batch, err)
			stats.BatchesFailed++
		}
	}
	return stats, nil
}

func (p *Pipeline) runBatch(ctx context.Context, source, table string, batch PageRange, stats *RunStats) error {
	x, err := p.extractor.Extract(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to extract pages: %w", err)
	}

	windows := x.Windows(p.opts.WindowPages, p.opts.OverlapPages)
	stats.Windows += len(windows)
	pool := NewMCQPool(p.logger)

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("Segmenting pages %s (window %d/%d)...", w.Pages, i+1, len(windows))
		candidates, err := p.segmenter.Segment(ctx, w.Text, x.Annotated)
		if err != nil {
			log.Printf("%s Skipping pages %s: %v", markFail, w.Pages, err)
			stats.WindowsFailed++
			continue
		}
		VerboseLog("Found %d MCQs in pages %s", len(candidates), w.Pages)
		stats.Candidates += len(candidates)
		pool.AddAll(candidates)
	}

	if pool.IsEmpty() {
		log.Printf("%s No MCQs found in pages %s", markWarn, batch)
		return nil
	}

	mcqs := pool.Merged()
	stats.Merged += len(mcqs)
	log.Printf("Extracted %d MCQs from pages %s", len(mcqs), batch)
	stats.AnswerChecks = append(stats.AnswerChecks, VerifyAnswers(x.PlainText(), mcqs)...)

	stats.Explained += p.explainer.ExplainAll(ctx, mcqs)
	if err := ctx.Err(); err != nil {
		return err
	}
	p.dump(ExtractedDumpFile, mcqs)

	for subject, n := range p.classifier.ClassifyAll(ctx, mcqs) {
		stats.Subjects[subject] += n
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.dump(ClassifiedDumpFile, mcqs)

	if p.opts.DryRun || p.db == nil {
		log.Printf("%s Dry run: %d MCQs not saved", markWarn, len(mcqs))
		return nil
	}

	result := p.db.BatchInsert(ctx, table, mcqs, SourceLabel(source, batch), p.logger)
	stats.Insert.Add(result)
	log.Printf("Saved: %d successful, %d failed", result.Successful(), result.Rejected+result.Failed)
	return nil
}

// dump writes mcqs to name in the dump directory. Failures only warn.
func (p *Pipeline) dump(name string, mcqs []*MergedMCQ) {
	if p.opts.DumpDir == "" {
		return
	}
	path := filepath.Join(p.opts.DumpDir, name)
	if err := WriteJSONFile(path, mcqs); err != nil {
		log.Printf("%s Could not write %s: %v", markWarn, path, err)
		return
	}
	VerboseLog("Wrote %d MCQs to %s", len(mcqs), path)
}

// WriteJSONFile writes v as indented JSON. HTML in explanations is kept
// as written.
func WriteJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// ReadMCQDump loads a JSON dump written by a run
func ReadMCQDump(path string) ([]*MergedMCQ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var mcqs []*MergedMCQ
	if err := json.Unmarshal(data, &mcqs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return mcqs, nil
}
