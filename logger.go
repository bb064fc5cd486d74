package scenecore

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with scenecore-specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithEntity adds an entity field to the logger.
func (l *Logger) WithEntity(e Entity) *Logger {
	return &Logger{
		Logger: l.Logger.With("entity", e.ID()),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogSpawn logs a spawn.
func (l *Logger) LogSpawn(ctx context.Context, e Entity, nodes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "spawn failed",
			"nodes", nodes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "spawn completed",
			"entity", e.ID(),
			"nodes", nodes,
			"skinned", e.Joints.Present(),
			"animated", e.Animation.Present(),
		)
	}
}

// LogDespawn logs a despawn.
func (l *Logger) LogDespawn(ctx context.Context, id int32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "despawn failed",
			"entity", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "despawn completed",
			"entity", id,
		)
	}
}

// LogUpdate logs one transform update pass.
func (l *Logger) LogUpdate(ctx context.Context, entities int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"entities", entities,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "update completed",
			"entities", entities,
			"duration", duration,
		)
	}
}

// LogCapture logs a frame capture.
func (l *Logger) LogCapture(ctx context.Context, name string, st CaptureStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "capture failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "capture written",
			"name", name,
			"entities", st.Entities,
			"raw_bytes", st.RawBytes,
			"stored_bytes", st.StoredBytes,
			"codec", st.Codec.String(),
		)
	}
}

// LogAlloc logs an allocation or free through the tiered allocator.
func (l *Logger) LogAlloc(ctx context.Context, op string, size int, class string, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"size", size,
			"tier", class,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"size", size,
			"tier", class,
		)
	}
}
