// Package diagnose provides the engine's category-prefixed logging
// plumbing. Output is silent by default; callers opt in with SetOutput.
package diagnose

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// EnableDebug can be overridden at build time:
//
//	go build -ldflags "-X github.com/standardbeagle/sentrygo/internal/diagnose.EnableDebug=true"
var EnableDebug = "false"

var (
	mu        sync.Mutex
	output    io.Writer
	agentMode bool
)

// SetOutput sets the writer for log output. Pass nil to silence logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetAgentMode suppresses human-oriented logging when the machine JSON
// diagnostic format has been selected, mirroring the MCP-mode silence
// contract this style of logger always carries.
func SetAgentMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	agentMode = enabled
}

func write(category, format string, args ...any) {
	if EnableDebug != "true" {
		return
	}
	mu.Lock()
	w, quiet := output, agentMode
	mu.Unlock()
	if w == nil || quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "[%s] %s %s\n", time.Now().Format("15:04:05.000"), category, msg)
}

// LogIndex logs a Source Store / ingestion event.
func LogIndex(format string, args ...any) { write("source", format, args...) }

// LogParse logs a parser-facade event.
func LogParse(format string, args ...any) { write("parse", format, args...) }

// LogGraph logs a Global Reference Graph build event.
func LogGraph(format string, args ...any) { write("graph", format, args...) }

// LogRule logs a rule-dispatch event.
func LogRule(format string, args ...any) { write("rule", format, args...) }

// LogCache logs an incremental-cache event.
func LogCache(format string, args ...any) { write("cache", format, args...) }

// Fatal logs a formatted message and returns it as an error, for callers
// that need to both report and propagate a terminal failure.
func Fatal(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	write("fatal", "%v", err)
	return err
}
