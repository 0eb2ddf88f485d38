package logger

import (
	"context"
	"log/slog"
	"strings"
)

// Background is shorthand for context.Background at call sites without a request.
func Background() context.Context {
	return context.Background()
}

// Component returns L scoped to the given component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes event through logg, falling back to the logger stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

func logAt(ctx context.Context, level slog.Level, component, event string, attrs []slog.Attr) {
	logg := Component(component)
	if logg == nil {
		if logg = FromContext(ctx); logg == nil {
			return
		}
		if component != "" {
			logg = logg.With("component", component)
		}
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs event at debug level under component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelDebug, component, event, attrs)
}

// Info logs event at info level under component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelInfo, component, event, attrs)
}

// Warn logs event at warn level under component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelWarn, component, event, attrs)
}

// Error logs event at error level under component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelError, component, event, attrs)
}
