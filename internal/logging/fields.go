package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID identifies a queued file across its whole lifecycle.
	FieldTaskID = "task_id"
	// FieldJobID identifies one encode process (ffmpeg invocation).
	FieldJobID = "job_id"
	// FieldSlot is the zero-based worker slot index.
	FieldSlot = "slot"
	// FieldEncoder is the encoder profile name bound to a slot.
	FieldEncoder = "encoder"
	// FieldFile is the source file path.
	FieldFile = "file"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags anomalies that should stand out.
	FieldAlert = "alert"
)

type contextKey int

const (
	taskIDKey contextKey = iota
	slotKey
	encoderKey
)

// WithTask tags ctx with a task identifier.
func WithTask(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// WithSlot tags ctx with the slot index and its encoder profile.
func WithSlot(ctx context.Context, slot int, encoder string) context.Context {
	ctx = context.WithValue(ctx, slotKey, slot)
	return context.WithValue(ctx, encoderKey, encoder)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(taskIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldTaskID, id))
	}
	if slot, ok := ctx.Value(slotKey).(int); ok {
		fields = append(fields, slog.Int(FieldSlot, slot))
	}
	if encoder, ok := ctx.Value(encoderKey).(string); ok && encoder != "" {
		fields = append(fields, slog.String(FieldEncoder, encoder))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
