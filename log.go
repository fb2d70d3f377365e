package mcqbank

import (
	"log"
	"sync/atomic"
)

// Outcome markers prefixed to console lines
const (
	markOK   = "✅"
	markFail = "❌"
	markWarn = "⚠️"
)

// verbose gates VerboseLog; pipeline windows read it concurrently
var verbose atomic.Bool

// SetVerbose turns detailed progress logging on or off for the process
func SetVerbose(on bool) {
	verbose.Store(on)
}

// VerboseLog prints through the standard logger when verbose logging is on
func VerboseLog(format string, args ...any) {
	if !verbose.Load() {
		return
	}
	log.Printf(format, args...)
}
