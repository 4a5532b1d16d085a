// Package monitoring provides the package-level diagnostic logger shared by
// the processing packages. Algorithms report notable decisions through it
// (excluded sensors, dropped windows, degenerate-signal substitutions) so
// that no data is silently discarded.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// and may be replaced with SetLogger; tests commonly mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Capture replaces the logger with one that appends formatted lines to the
// returned slice, and returns a restore function. Intended for tests that
// assert on diagnostic output.
func Capture() (*[]string, func()) {
	prev := Logf
	lines := &[]string{}
	Logf = func(format string, v ...interface{}) {
		*lines = append(*lines, fmt.Sprintf(format, v...))
	}
	return lines, func() { Logf = prev }
}
