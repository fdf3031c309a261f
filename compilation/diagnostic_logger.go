package compilation

import (
	"strings"
	"sync"

	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/logging"
	"github.com/crytic/bytereactor/logging/colors"
	"github.com/pkg/errors"
)

// ReportLevel is the minimum severity a diagnostic must have to be forwarded to the log.
type ReportLevel int

const (
	// ReportLevelAll forwards every diagnostic.
	ReportLevelAll ReportLevel = iota
	// ReportLevelInfo forwards informational messages and above.
	ReportLevelInfo
	// ReportLevelWarn forwards warnings and errors.
	ReportLevelWarn
	// ReportLevelError forwards errors only.
	ReportLevelError
)

// DefaultReportLevel is the report level used when none is configured.
const DefaultReportLevel = ReportLevelWarn

// String returns the name of the report level.
func (r ReportLevel) String() string {
	switch r {
	case ReportLevelAll:
		return "all"
	case ReportLevelInfo:
		return "info"
	case ReportLevelWarn:
		return "warn"
	case ReportLevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseReportLevel parses a report level name, case-insensitively.
func ParseReportLevel(s string) (ReportLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return ReportLevelAll, nil
	case "info":
		return ReportLevelInfo, nil
	case "warn", "warning":
		return ReportLevelWarn, nil
	case "error":
		return ReportLevelError, nil
	default:
		return ReportLevelAll, errors.Errorf("unknown report level '%s'", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r ReportLevel) MarshalText() ([]byte, error) {
	if r < ReportLevelAll || r > ReportLevelError {
		return nil, errors.Errorf("unknown report level %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ReportLevel) UnmarshalText(text []byte) error {
	level, err := ParseReportLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// Allows indicates whether a diagnostic of the given severity meets the report level.
func (r ReportLevel) Allows(severity types.Severity) bool {
	switch severity {
	case types.SeverityError:
		return true
	case types.SeverityWarning:
		return r <= ReportLevelWarn
	default:
		return r <= ReportLevelInfo
	}
}

// DiagnosticLogger is a platforms.DiagnosticListener which forwards diagnostics meeting its report level to a logger.
// It never influences control flow.
type DiagnosticLogger struct {
	level  ReportLevel
	logger *logging.Logger
}

// NewDiagnosticLogger returns a DiagnosticLogger forwarding to the provided logger. A nil logger forwards to a
// sub-logger of the global logger.
func NewDiagnosticLogger(level ReportLevel, logger *logging.Logger) *DiagnosticLogger {
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("module", "compiler")
	}
	return &DiagnosticLogger{
		level:  level,
		logger: logger,
	}
}

// Level returns the configured report level.
func (d *DiagnosticLogger) Level() ReportLevel {
	return d.level
}

// Report forwards the diagnostic to the logger if its severity meets the report level.
func (d *DiagnosticLogger) Report(diagnostic types.Diagnostic) {
	if !d.level.Allows(diagnostic.Severity) {
		return
	}

	info := logging.StructuredLogInfo{"severity": diagnostic.Severity.String()}
	if diagnostic.Source != "" {
		info["source"] = diagnostic.Source
	}
	if diagnostic.Start >= 0 {
		info["start"] = diagnostic.Start
		info["end"] = diagnostic.End
	}
	if diagnostic.Code != "" {
		info["code"] = diagnostic.Code
	}

	message := strings.TrimSpace(diagnostic.Message)
	switch diagnostic.Severity {
	case types.SeverityError:
		d.logger.Error(colors.Bold, "compiler: ", colors.Reset, message, info)
	case types.SeverityWarning:
		d.logger.Warn(colors.Bold, "compiler: ", colors.Reset, message, info)
	default:
		d.logger.Info(colors.Bold, "compiler: ", colors.Reset, message, info)
	}
}

// DiagnosticCollector is a platforms.DiagnosticListener which records error diagnostics and forwards every diagnostic
// to an optional downstream listener. A fresh collector is used for each toolchain invocation.
type DiagnosticCollector struct {
	next   platforms.DiagnosticListener
	errors []types.Diagnostic
	lock   sync.Mutex
}

// NewDiagnosticCollector returns a DiagnosticCollector forwarding to next, which may be nil.
func NewDiagnosticCollector(next platforms.DiagnosticListener) *DiagnosticCollector {
	return &DiagnosticCollector{next: next}
}

// Report records the diagnostic if it is an error and forwards it downstream.
func (c *DiagnosticCollector) Report(diagnostic types.Diagnostic) {
	if diagnostic.Severity == types.SeverityError {
		c.lock.Lock()
		c.errors = append(c.errors, diagnostic)
		c.lock.Unlock()
	}
	if c.next != nil {
		c.next.Report(diagnostic)
	}
}

// Errors returns a copy of the error diagnostics recorded so far.
func (c *DiagnosticCollector) Errors() []types.Diagnostic {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]types.Diagnostic(nil), c.errors...)
}
