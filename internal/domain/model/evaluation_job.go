package model

import "time"

type EvaluationJobStatus string

const (
	JobStatusQueued     EvaluationJobStatus = "Queued"
	JobStatusProcessing EvaluationJobStatus = "Processing"
	JobStatusDone       EvaluationJobStatus = "Done"
	JobStatusFailed     EvaluationJobStatus = "Failed"
)

// EvaluationJob is the outbox row behind an achievement evaluation pass.
// The row is written in the same transaction as the attempt that triggered
// it, and its ID is pushed onto the Redis queue after commit, so a crash can
// delay an evaluation but not lose it.
type EvaluationJob struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Status    EvaluationJobStatus `json:"status"`
	Attempts  int                 `json:"attempts"`
	LastError *string             `json:"last_error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
