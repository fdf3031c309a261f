package types

import (
	"fmt"
	"strings"
)

// Severity describes how severe a Diagnostic reported by a toolchain is.
type Severity int

const (
	// SeverityInfo describes an informational message.
	SeverityInfo Severity = iota
	// SeverityWarning describes a warning which did not prevent compilation.
	SeverityWarning
	// SeverityError describes an error which caused compilation to fail.
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ParseSeverity converts a severity string as emitted by a toolchain into a Severity. Unknown values are treated as
// informational.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "fatal":
		return SeverityError
	case "warning", "warn", "mandatory_warning":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Diagnostic describes a single message reported by a toolchain while compiling.
type Diagnostic struct {
	// Severity describes the kind of message.
	Severity Severity

	// Message is the human-readable message, preferably already formatted by the toolchain.
	Message string

	// Source is the source path the message refers to, if any.
	Source string

	// Start and End describe the byte range within Source the message refers to. Both are -1 when unknown.
	Start int
	End   int

	// Code is a toolchain-specific identifier for the message, if any.
	Code string
}

// String returns a single-line representation of the diagnostic.
func (d Diagnostic) String() string {
	message := strings.TrimSpace(d.Message)
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		message = message[:i]
	}
	if d.Source == "" {
		return fmt.Sprintf("%s: %s", d.Severity, message)
	}
	if d.Start >= 0 {
		return fmt.Sprintf("%s:%d: %s: %s", d.Source, d.Start, d.Severity, message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Source, d.Severity, message)
}
