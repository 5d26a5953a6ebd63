// Package logging builds the structured logger shared by the service.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"

	"ragquery/config"
)

// New returns a logger configured from cfg. Output goes to stderr so the
// CLI can keep stdout for results.
func New(cfg config.LoggingConfig) *log.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) *log.Logger {
	logger := &log.Logger{
		Level:      log.ParseLevel(cfg.Level),
		TimeFormat: "15:04:05",
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.Writer = &log.IOWriter{Writer: w}
	default:
		logger.Writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    false,
			EndWithMessage: true,
		}
	}

	return logger
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}
