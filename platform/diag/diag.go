// Package diag holds the diagnostic values produced by backend compilers and
// renders them, in original order, to a configured sink.
package diag

import (
	"fmt"
	"io"
	"strings"
)

// Severity classifies a single diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic is one message reported by a backend compiler. File, Line and
// Col are a location hint and may be zero when the backend has none.
type Diagnostic struct {
	Severity Severity
	Message  string
	File     string
	Line     int
	Col      int
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.File != "" {
		b.WriteString(d.File)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d", d.Line)
			if d.Col > 0 {
				fmt.Fprintf(&b, ":%d", d.Col)
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(d.Severity.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Render writes each diagnostic to w in order, one per line. Write errors
// are ignored: the sink is best-effort output, never a failure source.
func Render(w io.Writer, diags []Diagnostic) {
	if w == nil {
		return
	}
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}
