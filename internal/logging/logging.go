package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// New returns a JSON logger writing to stderr at the given level.
func New(level string) *log.Logger {
	return &log.Logger{
		Level:  log.ParseLevel(level),
		Caller: 1,
		Writer: &log.IOWriter{Writer: os.Stderr},
	}
}

// Discard returns a logger that drops every entry.
func Discard() *log.Logger {
	return &log.Logger{Writer: &log.IOWriter{Writer: io.Discard}}
}

// OrDiscard substitutes a discarding logger for nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
