// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides the query engine's Logger abstraction: a
// standard text logger and a structured JSON logger, both backed by
// log/slog, selected at startup by the same format/level flags the
// teacher's own server package exposes.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Logger is the interface every component in this repo logs through,
// so call sites never depend on the concrete slog configuration.
type Logger interface {
	DebugContext(ctx context.Context, msg string, keysAndValues ...any)
	InfoContext(ctx context.Context, msg string, keysAndValues ...any)
	WarnContext(ctx context.Context, msg string, keysAndValues ...any)
	ErrorContext(ctx context.Context, msg string, keysAndValues ...any)
}

// NewLogger creates a Logger for format ("standard" or "json") at level.
func NewLogger(format, level string, out, errW io.Writer) (Logger, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewStructuredLogger(out, errW, level)
	case "standard":
		return NewStdLogger(out, errW, level)
	default:
		return nil, fmt.Errorf("logging format invalid: %s", format)
	}
}

// StdLogger writes plain text lines, informational output to out and
// warnings/errors to errW.
type StdLogger struct {
	outLogger *slog.Logger
	errLogger *slog.Logger
}

// NewStdLogger builds a StdLogger at logLevel.
func NewStdLogger(outW, errW io.Writer, logLevel string) (Logger, error) {
	programLevel := new(slog.LevelVar)
	slogLevel, err := SeverityToLevel(logLevel)
	if err != nil {
		return nil, err
	}
	programLevel.Set(slogLevel)

	opts := &slog.HandlerOptions{Level: programLevel}
	return &StdLogger{
		outLogger: slog.New(slog.NewTextHandler(outW, opts)),
		errLogger: slog.New(slog.NewTextHandler(errW, opts)),
	}, nil
}

func (sl *StdLogger) DebugContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.DebugContext(ctx, msg, kv...)
}
func (sl *StdLogger) InfoContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.InfoContext(ctx, msg, kv...)
}
func (sl *StdLogger) WarnContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.WarnContext(ctx, msg, kv...)
}
func (sl *StdLogger) ErrorContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.ErrorContext(ctx, msg, kv...)
}

const (
	Debug = "DEBUG"
	Info  = "INFO"
	Warn  = "WARN"
	Error = "ERROR"
)

// SeverityToLevel maps a severity name to its slog.Level.
func SeverityToLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case Debug:
		return slog.LevelDebug, nil
	case Info:
		return slog.LevelInfo, nil
	case Warn:
		return slog.LevelWarn, nil
	case Error:
		return slog.LevelError, nil
	default:
		return slog.Level(-5), fmt.Errorf("invalid log level")
	}
}

func levelToSeverity(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return Error
	case l >= slog.LevelWarn:
		return Warn
	case l >= slog.LevelInfo:
		return Info
	default:
		return Debug
	}
}

// StructuredLogger emits Cloud-LogEntry-shaped JSON, with trace/span IDs
// attached from the request context when one is present.
type StructuredLogger struct {
	outLogger *slog.Logger
	errLogger *slog.Logger
}

// NewStructuredLogger builds a StructuredLogger at logLevel.
func NewStructuredLogger(outW, errW io.Writer, logLevel string) (Logger, error) {
	programLevel := new(slog.LevelVar)
	slogLevel, err := SeverityToLevel(logLevel)
	if err != nil {
		return nil, err
	}
	programLevel.Set(slogLevel)

	replace := func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			lvl, _ := a.Value.Any().(slog.Level)
			return slog.Attr{Key: "severity", Value: slog.StringValue(levelToSeverity(lvl))}
		case slog.MessageKey:
			return slog.Attr{Key: "message", Value: a.Value}
		case slog.SourceKey:
			return slog.Attr{Key: "logging.googleapis.com/sourceLocation", Value: a.Value}
		case slog.TimeKey:
			return slog.Attr{Key: "timestamp", Value: a.Value}
		}
		return a
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: programLevel, ReplaceAttr: replace}
	return &StructuredLogger{
		outLogger: slog.New(withSpanContext(slog.NewJSONHandler(outW, opts))),
		errLogger: slog.New(withSpanContext(slog.NewJSONHandler(errW, opts))),
	}, nil
}

func (sl *StructuredLogger) DebugContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.DebugContext(ctx, msg, kv...)
}
func (sl *StructuredLogger) InfoContext(ctx context.Context, msg string, kv ...any) {
	sl.outLogger.InfoContext(ctx, msg, kv...)
}
func (sl *StructuredLogger) WarnContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.WarnContext(ctx, msg, kv...)
}
func (sl *StructuredLogger) ErrorContext(ctx context.Context, msg string, kv ...any) {
	sl.errLogger.ErrorContext(ctx, msg, kv...)
}

// spanContextHandler decorates every record with trace_id/span_id when
// the logging context carries an active OTel span, so structured logs
// correlate with internal/telemetry's spans without every call site
// having to attach the IDs itself.
type spanContextHandler struct {
	slog.Handler
}

func withSpanContext(h slog.Handler) slog.Handler {
	return &spanContextHandler{Handler: h}
}

func (h *spanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithGroup(name)}
}
