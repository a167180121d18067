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
	"github.com/vitagym/vitagym/internal/rbac"
)

// ClaimsIntegrityJob scans role permission claims for values that are no
// longer part of the permission catalog. Stale values are reported, never
// removed: cleanup is an operator decision.
type ClaimsIntegrityJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewClaimsIntegrityJob initialises the claims integrity handler.
func NewClaimsIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ClaimsIntegrityJob {
	return &ClaimsIntegrityJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type staleClaim struct {
	RoleID   int64
	RoleName string
	Value    string
}

// Handle executes the claims integrity scan.
func (j *ClaimsIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("claims integrity: handler not configured")
	}
	var payload ClaimsIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskClaimsIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting claims integrity scan")

	scanned, stale, err := j.scan(ctx)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	perRole := make(map[string]int)
	for _, s := range stale {
		logger.Warn("stale permission claim",
			slog.Int64("role_id", s.RoleID),
			slog.String("role", s.RoleName),
			slog.String("value", s.Value),
		)
		perRole[s.RoleName]++
	}
	for role, count := range perRole {
		j.metrics().AddStaleClaims(role, count)
	}

	logger.Info("completed claims integrity scan",
		slog.Int("claims", scanned),
		slog.Int("stale", len(stale)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *ClaimsIntegrityJob) scan(ctx context.Context) (int, []staleClaim, error) {
	if j.Pool == nil {
		return 0, nil, errors.New("claims integrity: pool not configured")
	}
	rows, err := j.Pool.Query(ctx,
		`SELECT rc.role_id, r.name, rc.claim_value
		 FROM role_claims rc
		 JOIN roles r ON r.id = rc.role_id
		 WHERE rc.claim_type = $1
		 ORDER BY r.name, rc.claim_value`,
		rbac.ClaimTypePermission,
	)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	scanned := 0
	stale := make([]staleClaim, 0)
	for rows.Next() {
		var claim staleClaim
		if err := rows.Scan(&claim.RoleID, &claim.RoleName, &claim.Value); err != nil {
			return 0, nil, err
		}
		scanned++
		if !rbac.Known(rbac.Permission(claim.Value)) {
			stale = append(stale, claim)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return scanned, stale, nil
}

func (j *ClaimsIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskClaimsIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskClaimsIntegrity))
}

func (j *ClaimsIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *ClaimsIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
