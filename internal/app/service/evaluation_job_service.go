package service

import (
	"context"
	"database/sql"
	"fmt"

	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/config"
	"nagukpo_backend/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EvaluationJobService owns the achievement-evaluation outbox. A job row is
// written inside the caller's transaction; after the caller commits, Enqueue
// pushes the job ID onto the Redis queue the worker pops from.
type EvaluationJobService struct {
	jobRepo repository.EvaluationJobRepository
	rdb     *redis.Client
	log     *logger.Logger
}

func NewEvaluationJobService(jobRepo repository.EvaluationJobRepository, rdb *redis.Client, log *logger.Logger) *EvaluationJobService {
	return &EvaluationJobService{jobRepo: jobRepo, rdb: rdb, log: log}
}

// CreateInTx writes the outbox row. Must be called before the transaction
// commits so the job survives a crash between commit and enqueue.
func (s *EvaluationJobService) CreateInTx(ctx context.Context, tx *sql.Tx, userID string) (*model.EvaluationJob, error) {
	job := &model.EvaluationJob{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: model.JobStatusQueued,
	}
	if err := s.jobRepo.Create(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("failed to create evaluation job: %w", err)
	}
	return job, nil
}

// Enqueue pushes a committed job onto the queue. A push failure is not fatal
// to the caller; the startup requeue pass will pick the row up.
func (s *EvaluationJobService) Enqueue(ctx context.Context, jobID string) error {
	if err := s.rdb.LPush(ctx, config.AppConfig.EvaluationQueueName, jobID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue evaluation job %s: %w", jobID, err)
	}
	return nil
}

// RequeueUnfinished pushes every Queued or Processing job back onto the
// queue. Run once at startup to recover jobs stranded by a crash. Evaluation
// is idempotent, so re-pushing a job that was also delivered is harmless.
func (s *EvaluationJobService) RequeueUnfinished(ctx context.Context) error {
	ids, err := s.jobRepo.ListUnfinishedIDs(ctx, 1000)
	if err != nil {
		return fmt.Errorf("failed to list unfinished evaluation jobs: %w", err)
	}
	for _, id := range ids {
		if err := s.rdb.LPush(ctx, config.AppConfig.EvaluationQueueName, id).Err(); err != nil {
			return fmt.Errorf("failed to requeue evaluation job %s: %w", id, err)
		}
	}
	if len(ids) > 0 {
		s.log.Info("Requeued unfinished evaluation jobs", "count", len(ids))
	}
	return nil
}
