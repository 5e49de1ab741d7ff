// Package logging holds the module-wide logger used for recoverable
// warnings (version skew, spillover parse failures, keyword pattern
// mismatches on write). These conditions never surface as errors; they are
// logged and decoding or writing continues with a defined fallback.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Str("module", "pycyt").Logger()
)

// SetLogger replaces the module logger. Pass zerolog.Nop() to silence all
// recoverable warnings globally.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger returns the current module logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return logger
}

// Warn starts a warning event on the module logger.
func Warn() *zerolog.Event {
	l := Logger()

	return l.Warn()
}
