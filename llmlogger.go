package mcqbank

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger writes a transcript of every LLM exchange made during one run
type LLMLogger struct {
	file  *os.File
	mu    sync.Mutex
	runID string
}

// RunInfo describes an ingestion run for the transcript header
type RunInfo struct {
	RunID      string
	SourceFile string
	Pages      PageRange
	Provider   string
	Model      string
}

// NewLLMLogger creates <dir>/<run id>.log and writes the run header
func NewLLMLogger(dir string, info RunInfo) (*LLMLogger, error) {
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", info.RunID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:  file,
		runID: info.RunID,
	}

	logger.Logf("=== MCQ Ingestion Log ===\n")
	logger.Logf("Run ID: %s\n", info.RunID)
	logger.Logf("Source: %s\n", info.SourceFile)
	logger.Logf("Pages: %s\n", info.Pages)
	logger.Logf("Model: %s/%s\n", info.Provider, info.Model)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// Path returns the transcript file name
func (ll *LLMLogger) Path() string {
	if ll == nil || ll.file == nil {
		return ""
	}
	return ll.file.Name()
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...any) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(ll.file, "[%s] %s", timestamp, message)
	ll.file.Sync()
}

// LogLLMRequest logs an LLM request
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs an LLM response
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogLLMError logs a failed LLM call
func (ll *LLMLogger) LogLLMError(module string, err error) {
	ll.Logf("=== LLM ERROR (%s) === %v\n\n", module, err)
}

// LogQuestionResult logs the outcome of a question at some pipeline stage
func (ll *LLMLogger) LogQuestionResult(questionNumber string, status QuestionStatus, reason string) {
	ll.Logf("Question %s: %s - %s\n", questionNumber, status, reason)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	if ll == nil {
		return nil
	}
	ll.Logf("=== Ingestion Complete ===\n")
	ll.Logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	ll.Logf("==========================\n")

	ll.mu.Lock()
	defer ll.mu.Unlock()
	if ll.file != nil {
		err := ll.file.Close()
		ll.file = nil
		return err
	}
	return nil
}
