package sim

import (
	"context"
	"log/slog"
)

// A LogHook writes every hook invocation as a structured log record.
type LogHook struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogHook creates a LogHook that logs at the given level. A nil logger
// falls back to slog.Default().
func NewLogHook(logger *slog.Logger, level slog.Level) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogHook{logger: logger, level: level}
}

// Func logs the hook context. Items that implement slog.LogValuer control
// their own rendering.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	where := ""
	if ctx.Domain != nil {
		where = ctx.Domain.Name()
	}

	h.logger.LogAttrs(context.Background(), h.level, ctx.Pos.Name,
		slog.String("where", where),
		slog.Any("item", ctx.Item),
	)
}
