// Package debug provides conditional debug logging for smolder.
//
// Debug logging is enabled by setting the SMOLDER_DEBUG environment
// variable:
//
//	SMOLDER_DEBUG=1 smolder .
//
// When enabled, debug messages are written to stderr with timestamps so
// they never collide with the TUI on stdout. When disabled (default),
// all debug functions are no-ops with zero overhead.
package debug

import (
	"log"
	"os"
	"time"
)

var (
	// enabled is true when SMOLDER_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [SMOLDER] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("SMOLDER_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[SMOLDER] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[SMOLDER] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}
