package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-wms/meridian/internal/jobs"
	"github.com/meridian-wms/meridian/internal/shared"
)

// SessionSweeper is the slice of the counting service the sweep job needs.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// NewSessionsSweepHandler builds the handler removing expired counting
// sessions from the session index.
func NewSessionsSweepHandler(sweeper SessionSweeper, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScheduledPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("sessions_sweep")
		swept, err := sweeper.SweepExpired(ctx)
		if err == nil {
			metrics.AddSweptSessions(swept)
			logger.Info("swept counting sessions", slog.Int("count", swept))
		}
		return tracker.End(err)
	}
}

// NewIdempotencyCleanupHandler builds the handler pruning idempotency keys
// older than the retention window.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, retention time.Duration, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScheduledPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("idempotency_cleanup")
		err := store.Cleanup(ctx, retention)
		if err == nil {
			logger.Info("pruned idempotency keys", slog.Duration("retention", retention))
		}
		return tracker.End(err)
	}
}
