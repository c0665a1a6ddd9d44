package cachegate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is a structured per-request event trace. It wraps slog.Logger with
// a handler that emits one line per record in the wire format:
//
//	[RCL] [<SEVERITY>] <message>\n
//
// Trace-level messages are suppressed unless verbose is enabled.
type Logger struct {
	slog    *slog.Logger
	verbose bool
}

// NewLogger returns a Logger writing to w. If w is nil, os.Stderr is used.
func NewLogger(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := &rclHandler{w: w}
	return &Logger{slog: slog.New(handler), verbose: verbose}
}

// log renders a printf-style message at the given slog level.
func (l *Logger) log(level slog.Level, format string, args ...any) {
	if l == nil {
		return
	}
	if level < slog.LevelInfo && !l.verbose {
		return
	}
	l.slog.Log(context.Background(), level, renderf(format, args...))
}

// Info records an info-severity event.
func (l *Logger) Info(format string, args ...any) { l.log(slog.LevelInfo, format, args...) }

// Warn records a warn-severity event.
func (l *Logger) Warn(format string, args ...any) { l.log(slog.LevelWarn, format, args...) }

// Trace records a trace-severity event, gated by verbose.
func (l *Logger) Trace(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }

// renderf implements the %p directive: a debug representation of the next
// argument, quoted when it is text.
func renderf(format string, args ...any) string {
	rendered := make([]any, 0, len(args))
	spec := make([]byte, 0, len(format))
	i := 0
	for i < len(format) {
		if format[i] == '%' && i+1 < len(format) && format[i+1] == 'p' && len(rendered) < len(args) {
			spec = append(spec, "%v"...)
			rendered = append(rendered, quoteIfText(args[len(rendered)]))
			i += 2
			continue
		}
		spec = append(spec, format[i])
		i++
	}
	remaining := args[len(rendered):]
	return fmt.Sprintf(string(spec), append(rendered, remaining...)...)
}

func quoteIfText(v any) any {
	switch s := v.(type) {
	case string:
		return fmt.Sprintf("%q", s)
	case fmt.Stringer:
		return fmt.Sprintf("%q", s.String())
	default:
		return fmt.Sprintf("%+v", v)
	}
}

// rclHandler is a minimal slog.Handler emitting one line per record in the
// shape "[RCL] [SEVERITY] message\n".
type rclHandler struct {
	w io.Writer
}

func (h *rclHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *rclHandler) Handle(_ context.Context, r slog.Record) error {
	severity := r.Level.String()
	if r.Level == slog.LevelDebug {
		severity = "TRACE"
	}
	_, err := fmt.Fprintf(h.w, "[RCL] [%s] %s\n", severity, r.Message)
	return err
}

func (h *rclHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *rclHandler) WithGroup(string) slog.Handler { return h }
