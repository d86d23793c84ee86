// Package monitoring provides the diagnostic logger injected into picker
// components. There is no package-level logger: each component receives
// a Logger explicitly and falls back to Nop when none is given.
package monitoring

import (
	"fmt"
	"log"
)

// Logger is a printf-style diagnostic sink.
type Logger func(format string, v ...interface{})

// Nop discards everything.
func Nop(string, ...interface{}) {}

// Std returns a Logger writing through the standard log package with an
// optional prefix such as "[picker] ".
func Std(prefix string) Logger {
	return func(format string, v ...interface{}) {
		log.Printf(prefix+format, v...)
	}
}

// To returns a Logger writing to l.
func To(l *log.Logger) Logger {
	if l == nil {
		return Nop
	}
	return func(format string, v ...interface{}) {
		l.Printf(format, v...)
	}
}

// OrNop returns f, or Nop when f is nil.
func OrNop(f Logger) Logger {
	if f == nil {
		return Nop
	}
	return f
}

// Recorder captures formatted log lines, mainly for tests.
type Recorder struct {
	Lines []string
}

// Logf implements Logger.
func (r *Recorder) Logf(format string, v ...interface{}) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, v...))
}
