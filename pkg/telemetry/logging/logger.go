package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"mercator-hq/ganymede/pkg/config"
)

// Format is the log output format.
type Format string

const (
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
	// FormatText emits logfmt-style key=value lines.
	FormatText Format = "text"
	// FormatConsole emits human-readable text for local development.
	FormatConsole Format = "console"
)

// Logger wraps log/slog with PII redaction and async buffered writes.
// Component loggers obtained through Slog share the same redacting
// handler chain, so redaction applies regardless of which handle a
// component logs through.
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
	level    slog.Level
	format   Format
	buffer   *writeBuffer
}

// New creates a Logger writing to stdout.
func New(cfg config.LoggingConfig) (*Logger, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a Logger writing to w.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = os.Stdout
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	buffer := newWriteBuffer(w, bufferSize)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}
	var handler slog.Handler
	switch format {
	case FormatText, FormatConsole:
		handler = slog.NewTextHandler(buffer, opts)
	default:
		handler = slog.NewJSONHandler(buffer, opts)
	}

	var redactor *Redactor
	if cfg.RedactPII {
		redactor = NewRedactor(cfg.RedactPatterns)
		handler = &redactHandler{inner: handler, redactor: redactor}
	}

	return &Logger{
		slog:     slog.New(handler),
		redactor: redactor,
		level:    level,
		format:   format,
		buffer:   buffer,
	}, nil
}

// Slog returns the underlying slog logger for components that take a
// *slog.Logger directly. Redaction and buffering stay in effect.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelError, msg, args...)
}

// DebugContext logs at debug level with fields extracted from ctx.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.Log(ctx, slog.LevelDebug, msg, append(Fields(ctx), args...)...)
}

// InfoContext logs at info level with fields extracted from ctx.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.Log(ctx, slog.LevelInfo, msg, append(Fields(ctx), args...)...)
}

// WarnContext logs at warn level with fields extracted from ctx.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.Log(ctx, slog.LevelWarn, msg, append(Fields(ctx), args...)...)
}

// ErrorContext logs at error level with fields extracted from ctx.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.Log(ctx, slog.LevelError, msg, append(Fields(ctx), args...)...)
}

// With returns a Logger carrying the given fields on every entry.
func (l *Logger) With(args ...any) *Logger {
	clone := *l
	clone.slog = l.slog.With(args...)
	return &clone
}

// WithContext returns a Logger carrying the session fields present in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := Fields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Dropped reports how many log lines were discarded because the async
// buffer was full.
func (l *Logger) Dropped() int64 {
	return l.buffer.dropped.Load()
}

// Shutdown flushes buffered log lines and stops the writer goroutine.
func (l *Logger) Shutdown() error {
	l.buffer.close()
	return nil
}

// writeBuffer decouples log production from the output writer. Write
// never blocks: when the channel is full the line is dropped and
// counted.
type writeBuffer struct {
	lines   chan []byte
	writer  io.Writer
	dropped atomic.Int64
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func newWriteBuffer(w io.Writer, size int) *writeBuffer {
	wb := &writeBuffer{
		lines:  make(chan []byte, size),
		writer: w,
		done:   make(chan struct{}),
	}
	wb.wg.Add(1)
	go wb.run()
	return wb
}

func (wb *writeBuffer) Write(p []byte) (int, error) {
	// slog handlers reuse their output buffer, so the line must be
	// copied before it crosses the channel.
	line := make([]byte, len(p))
	copy(line, p)
	select {
	case wb.lines <- line:
	default:
		wb.dropped.Add(1)
	}
	return len(p), nil
}

func (wb *writeBuffer) run() {
	defer wb.wg.Done()
	for {
		select {
		case line := <-wb.lines:
			wb.writer.Write(line)
		case <-wb.done:
			for {
				select {
				case line := <-wb.lines:
					wb.writer.Write(line)
				default:
					return
				}
			}
		}
	}
}

func (wb *writeBuffer) close() {
	wb.once.Do(func() { close(wb.done) })
	wb.wg.Wait()
}

// redactHandler applies PII redaction to every record before handing it
// to the wrapped handler.
type redactHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.redactAttr(a)
	}
	return &redactHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

func parseFormat(s string) (Format, error) {
	switch s {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	case "console", "CONSOLE":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %q", s)
	}
}
