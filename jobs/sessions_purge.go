package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/vitagym/vitagym/internal/jobs"
)

// SessionsPurgeJob deletes expired login session records. The Redis session
// store expires keys on its own; this job keeps the audit table in Postgres
// from growing without bound.
type SessionsPurgeJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSessionsPurgeJob initialises the session purge handler.
func NewSessionsPurgeJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPurgeJob {
	return &SessionsPurgeJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle removes sessions whose expiry passed longer than the grace window ago.
func (j *SessionsPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("sessions purge: handler not configured")
	}
	var payload SessionsPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Grace < 0 {
		payload.Grace = 0
	}

	tracker := j.metrics().Track(TaskSessionsPurge)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Pool == nil {
		resultErr = errors.New("sessions purge: pool not configured")
		return resultErr
	}

	cutoff := time.Now().UTC().Add(-payload.Grace)
	tag, err := j.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("purge failed", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("purged expired sessions",
		slog.Int64("deleted", tag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return resultErr
}

func (j *SessionsPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionsPurge))
	}
	return slog.Default().With(slog.String("job", TaskSessionsPurge))
}

func (j *SessionsPurgeJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
