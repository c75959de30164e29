// Package logger owns the process-wide structured logger used by every engine package.
package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

// Default returns the shared engine logger, creating it on first use.
func Default() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "oxy",
		})
		singleton.SetLevel(log.InfoLevel)
	})
	return singleton
}

// SetLevel parses a level name ("debug", "info", "warn", "error") and applies it to the shared logger.
// Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		Default().Warn("unknown log level", "level", name)
		return false
	}
	Default().SetLevel(lvl)
	return true
}

// Named returns a child of the shared logger carrying a component prefix.
func Named(component string) *log.Logger {
	return Default().WithPrefix("oxy/" + component)
}
