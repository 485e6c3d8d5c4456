package async

import (
	"context"
	"log/slog"
	"time"
)

func (e *Executor) logOperationStart(ctx context.Context, opID, name string) {
	e.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", opID),
		slog.String("op", name))
}

func (e *Executor) logOperationComplete(ctx context.Context, opID, name string, duration time.Duration) {
	e.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", opID),
		slog.String("op", name),
		slog.Duration("duration", duration))
}

func (e *Executor) logOperationCancelled(ctx context.Context, opID, name string) {
	e.logger.InfoContext(ctx, "operation_cancelled",
		slog.String("operation_id", opID),
		slog.String("op", name))
}

func (e *Executor) logOperationFailed(ctx context.Context, opID, name string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	e.logger.ErrorContext(ctx, "operation_failed",
		slog.String("operation_id", opID),
		slog.String("op", name),
		slog.String("error", errorMsg))
}

func (e *Executor) logDuplicateSkip(ctx context.Context, name string) {
	e.logger.InfoContext(ctx, "duplicate_request_skipped",
		slog.String("op", name))
}
