package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel is the severity of one logged message, grounded directly on the
// teacher's LogLevel (src/logger.go).
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelWarn
	LevelError
	LevelFatal
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // grey
)

// Logger writes warnings/errors to a target, with the position each caller
// supplies, and counts them by taxonomy kind — grounded on the teacher's Logger
// (src/logger.go) for shape and formatting, extended with r4d's
// Logger/TrackType (logger.rs) warning/error counting and print_result.
type Logger struct {
	enabled bool
	out     io.Writer
	errOut  io.Writer
	color   bool

	contextLines int

	counts map[ErrorKind]int
	warns  int
	errs   int
}

// NewLogger creates a Logger writing debug lines to out and warnings/errors
// to errOut. color enables lipgloss styling (the caller decides this from
// Sink.IsTerminal()).
func NewLogger(out, errOut io.Writer, color bool) *Logger {
	return &Logger{
		out:          out,
		errOut:       errOut,
		color:        color,
		contextLines: 2,
		counts:       make(map[ErrorKind]int),
	}
}

// SetEnabled toggles debug-level output.
func (l *Logger) SetEnabled(v bool) { l.enabled = v }

// SetContextLines controls how many source lines of context precede the
// marked line of a position-tagged diagnostic.
func (l *Logger) SetContextLines(n int) { l.contextLines = n }

func (l *Logger) shouldLog(level LogLevel) bool {
	if level == LevelFatal || level == LevelError || level == LevelWarn {
		return true
	}
	return l.enabled
}

func (l *Logger) style(level LogLevel, s string) string {
	if !l.color {
		return s
	}
	switch level {
	case LevelWarn:
		return warnStyle.Render(s)
	case LevelError, LevelFatal:
		return errorStyle.Render(s)
	case LevelDebug:
		return debugStyle.Render(s)
	default:
		return s
	}
}

// Log is the unified entry point; every caller ultimately routes here so
// counting stays centralized.
func (l *Logger) Log(level LogLevel, kind ErrorKind, message string, pos *Position, context []string) {
	if !l.shouldLog(level) {
		return
	}

	switch level {
	case LevelWarn:
		l.warns++
	case LevelError, LevelFatal:
		l.errs++
	}
	if kind != "" {
		l.counts[kind]++
	}

	var prefix string
	switch level {
	case LevelDebug:
		prefix = "[DEBUG]"
	case LevelWarn:
		prefix = "[macroproc WARN]"
	case LevelError, LevelFatal:
		prefix = "[macroproc ERROR]"
	}

	out := fmt.Sprintf("%s %s", l.style(level, prefix), message)
	if pos != nil {
		filename := pos.Filename
		if filename == "" {
			filename = "<unknown>"
		}
		out += fmt.Sprintf("\n  at line %d, column %d in %s", pos.Line, pos.Column, filename)
		if pos.Macro != nil {
			out += l.formatMacroContext(pos.Macro)
		}
		if len(context) > 0 {
			out += l.formatSourceContext(pos, context)
		}
	}

	if level == LevelDebug {
		fmt.Fprintln(l.out, out)
	} else {
		fmt.Fprintln(l.errOut, out)
	}
}

// Debug logs an unpositioned debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LevelDebug, "", fmt.Sprintf(format, args...), nil, nil)
}

// Warn logs an unpositioned warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log(LevelWarn, "", fmt.Sprintf(format, args...), nil, nil)
}

// WarnPosition logs a position-tagged warning (e.g. EmptyName, unterminated
// relay, Restricted-capability no-op).
func (l *Logger) WarnPosition(message string, pos *Position, context []string) {
	l.Log(LevelWarn, "", message, pos, context)
}

// ErrorWithPosition logs a position-tagged error, tagging it with kind for
// the final summary counts.
func (l *Logger) ErrorWithPosition(kind ErrorKind, message string, pos *Position, context []string) {
	l.Log(LevelError, kind, message, pos, context)
}

// LogEngineError logs *Error, deriving level from whether it is a
// StrictPanic/Interrupt signal (always Fatal) or a normal diagnostic.
func (l *Logger) LogEngineError(e *Error, context []string) {
	level := LevelError
	if e.IsSignal() {
		level = LevelFatal
	}
	l.Log(level, e.Kind, e.Message, e.Position, context)
}

func (l *Logger) formatMacroContext(mc *MacroContext) string {
	chain := mc.Chain()
	var b strings.Builder
	b.WriteString("\n\nMacro call chain:")
	for i, c := range chain {
		indent := strings.Repeat("  ", i+1)
		fmt.Fprintf(&b, "\n%s-> macro %q", indent, c.Name)
		if c.CallPosition != nil {
			fmt.Fprintf(&b, "\n%s  called from %s:%d:%d", indent, c.CallPosition.Filename, c.CallPosition.Line, c.CallPosition.Column)
		}
	}
	return b.String()
}

func (l *Logger) formatSourceContext(pos *Position, context []string) string {
	var b strings.Builder
	b.WriteString("\n")

	start := pos.Line - 1 - l.contextLines
	if start < 0 {
		start = 0
	}
	end := pos.Line
	if end > len(context) {
		end = len(context)
	}

	for i := start; i < end; i++ {
		lineNum := i + 1
		marker := " "
		if lineNum == pos.Line {
			marker = ">"
		}
		fmt.Fprintf(&b, "\n  %s %3d | %s", marker, lineNum, context[i])
		if lineNum == pos.Line && pos.Column > 0 {
			caretLen := pos.Length
			if caretLen < 1 {
				caretLen = 1
			}
			b.WriteString("\n      | ")
			b.WriteString(strings.Repeat(" ", pos.Column-1))
			b.WriteString(strings.Repeat("^", caretLen))
		}
	}
	return b.String()
}

// Counts returns a snapshot of the error-kind tally, grounded on r4d's
// Logger::print_result (logger.rs).
func (l *Logger) Counts() map[ErrorKind]int {
	out := make(map[ErrorKind]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// WarnCount and ErrorCount report the raw tallies used by PrintResult.
func (l *Logger) WarnCount() int  { return l.warns }
func (l *Logger) ErrorCount() int { return l.errs }

// PrintResult emits a final summary line to errOut, grounded on r4d's
// Processor::print_result.
func (l *Logger) PrintResult() {
	if l.warns == 0 && l.errs == 0 {
		return
	}
	summary := fmt.Sprintf("%d error(s), %d warning(s)", l.errs, l.warns)
	fmt.Fprintln(l.errOut, l.style(LevelError, summary))
}
