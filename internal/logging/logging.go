// Package logging configures the commonlog backend for the garnet tools.
package logging

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Configure sets the log verbosity for every garnet logger. Verbosity 0
// shows only errors and warnings, each step above adds a level, and -1
// disables logging. An empty path logs to stderr.
func Configure(verbosity int, path string) {
	var p *string
	if path != "" {
		p = &path
	}
	commonlog.Configure(verbosity, p)
}

// Verbosity combines the configured verbosity with the count of -v flags
// given on the command line. quiet wins over both.
func Verbosity(configured, flags int, quiet bool) int {
	if quiet {
		return -1
	}
	if flags > 0 {
		return flags
	}
	return configured
}
