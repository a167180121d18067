package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskClaimsIntegrity scans role permission claims for values outside the catalog.
	TaskClaimsIntegrity = "rbac:claims_integrity"
	// TaskSessionsPurge removes expired login session records.
	TaskSessionsPurge = "auth:sessions_purge"
)

// ClaimsIntegrityPayload carries scheduling metadata for the claims scan.
type ClaimsIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewClaimsIntegrityTask constructs an Asynq task for the claims integrity scan.
func NewClaimsIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ClaimsIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClaimsIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// SessionsPurgePayload configures the session purge window.
type SessionsPurgePayload struct {
	// Grace keeps expired sessions around for the given duration before deletion.
	Grace time.Duration `json:"grace"`
}

// NewSessionsPurgeTask constructs an Asynq task for purging expired sessions.
func NewSessionsPurgeTask(grace time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(SessionsPurgePayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, body, asynq.Queue(QueueDefault)), nil
}
