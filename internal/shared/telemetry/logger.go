package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

var (
	level  = new(slog.LevelVar)
	logger atomic.Pointer[slog.Logger]
)

func init() {
	SetOutput(os.Stdout)
}

// SetOutput sends subsequent log lines to w as JSON.
func SetOutput(w io.Writer) {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: renameAttr})
	logger.Store(slog.New(h))
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unrecognized names fall back to info.
func SetLevel(name string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		l = slog.LevelInfo
	}
	level.Set(l)
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	write(slog.LevelDebug, msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(slog.LevelInfo, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(slog.LevelWarn, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(slog.LevelError, msg, fields)
}

// Err renders err for a log field, tolerating nil.
func Err(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func write(l slog.Level, msg string, fields map[string]any) {
	lg := logger.Load()
	ctx := context.Background()
	if !lg.Enabled(ctx, l) {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		switch k {
		case "ts", slog.LevelKey, slog.MessageKey:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if err, ok := v.(error); ok {
			v = Err(err)
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	lg.LogAttrs(ctx, l, msg, attrs...)
}

func renameAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
	case slog.LevelKey:
		return slog.String(slog.LevelKey, strings.ToLower(a.Value.String()))
	}
	return a
}
