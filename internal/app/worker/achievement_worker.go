package worker

import (
	"context"
	"errors"
	"time"

	"nagukpo_backend/internal/app/service"
	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/config"
	"nagukpo_backend/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

// AchievementWorker pops evaluation job IDs off the Redis queue and runs the
// achievement evaluator for the job's user. Delivery is at least once; the
// grant's unique constraint makes duplicate evaluation harmless.
type AchievementWorker struct {
	rdb          *redis.Client
	jobRepo      repository.EvaluationJobRepository
	achievements *service.AchievementService
	log          *logger.Logger
}

func NewAchievementWorker(
	rdb *redis.Client,
	jobRepo repository.EvaluationJobRepository,
	achievements *service.AchievementService,
	log *logger.Logger,
) *AchievementWorker {
	return &AchievementWorker{
		rdb:          rdb,
		jobRepo:      jobRepo,
		achievements: achievements,
		log:          log.With("component", "AchievementWorker"),
	}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (w *AchievementWorker) Start(ctx context.Context) {
	w.log.Info("Achievement worker started", "queue", config.AppConfig.EvaluationQueueName)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Achievement worker stopping")
			return
		default:
		}

		result, err := w.rdb.BRPop(ctx, 5*time.Second, config.AppConfig.EvaluationQueueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			w.log.Error("Failed to pop from evaluation queue", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		w.process(ctx, result[1])
	}
}

func (w *AchievementWorker) process(ctx context.Context, jobID string) {
	job, err := w.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			w.log.Warn("Evaluation job not found, dropping", "jobID", jobID)
			return
		}
		w.log.Error("Failed to load evaluation job", "jobID", jobID, "error", err)
		return
	}
	if job.Status == model.JobStatusDone {
		return
	}

	if err := w.jobRepo.MarkProcessing(ctx, jobID); err != nil {
		w.log.Error("Failed to mark job processing", "jobID", jobID, "error", err)
		return
	}

	granted, evalErr := w.achievements.Evaluate(ctx, job.UserID)
	if evalErr == nil {
		if err := w.jobRepo.UpdateStatus(ctx, jobID, model.JobStatusDone, nil); err != nil {
			w.log.Error("Failed to mark job done", "jobID", jobID, "error", err)
		}
		if len(granted) > 0 {
			w.log.Info("Evaluation granted achievements", "jobID", jobID, "userID", job.UserID, "codes", granted)
		}
		return
	}

	msg := evalErr.Error()
	// MarkProcessing already counted this try; job.Attempts is one behind.
	if job.Attempts+1 >= config.AppConfig.EvaluationJobMaxRetries {
		w.log.Error("Evaluation job failed permanently", "jobID", jobID, "attempts", job.Attempts+1, "error", evalErr)
		if err := w.jobRepo.UpdateStatus(ctx, jobID, model.JobStatusFailed, &msg); err != nil {
			w.log.Error("Failed to mark job failed", "jobID", jobID, "error", err)
		}
		return
	}

	w.log.Warn("Evaluation job failed, requeueing", "jobID", jobID, "attempts", job.Attempts+1, "error", evalErr)
	if err := w.jobRepo.UpdateStatus(ctx, jobID, model.JobStatusQueued, &msg); err != nil {
		w.log.Error("Failed to requeue job status", "jobID", jobID, "error", err)
		return
	}
	if err := w.rdb.LPush(ctx, config.AppConfig.EvaluationQueueName, jobID).Err(); err != nil {
		w.log.Error("Failed to push job back onto queue", "jobID", jobID, "error", err)
	}
}
