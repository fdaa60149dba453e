package ui

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	MarkOK   = "✓"
	MarkFail = "✗"
	MarkSkip = "·"
)

// Logger writes diagnostics through slog on stderr and per-item markers on
// stdout. The printf-style methods accept the trailing newline the rest of
// the code base passes.
type Logger struct {
	Debug bool

	log *slog.Logger
	mu  sync.Mutex
	out io.Writer
}

func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr, debug)
}

func NewLoggerTo(out, diag io.Writer, debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(diag, &slog.HandlerOptions{Level: level})
	return &Logger{Debug: debug, log: slog.New(h), out: out}
}

func msg(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug {
		l.log.Debug(msg(format, args))
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.log.Info(msg(format, args))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log.Warn(msg(format, args))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log.Error(msg(format, args))
}

// SetOutput redirects the item markers and returns the previous writer.
func (l *Logger) SetOutput(w io.Writer) io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.out
	l.out = w
	return prev
}

func (l *Logger) mark(symbol, label, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if detail == "" {
		fmt.Fprintf(l.out, "%s %s\n", symbol, label)
		return
	}
	fmt.Fprintf(l.out, "%s %s  %s\n", symbol, label, detail)
}

func (l *Logger) OK(label, detail string) { l.mark(MarkOK, label, detail) }

func (l *Logger) Fail(label string, err error) { l.mark(MarkFail, label, err.Error()) }

func (l *Logger) Skip(label, detail string) { l.mark(MarkSkip, label, detail) }
