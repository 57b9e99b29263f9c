package scheduler

import (
	"context"
	"time"

	"nagukpo_backend/internal/platform/logger"

	"github.com/go-co-op/gocron"
)

// TokenCleaner deletes expired refresh tokens and reports how many went away.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance tasks for the application.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cleaner   TokenCleaner
	log       *logger.Logger
}

func New(cleaner TokenCleaner, log *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		cleaner:   cleaner,
		log:       log.With("component", "scheduler"),
	}
}

// Start begins running all scheduled tasks in a non-blocking manner.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Day().At("03:00").Do(s.cleanupExpiredTokens)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) cleanupExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.cleaner.CleanupExpiredTokens(ctx)
	if err != nil {
		s.log.Error("expired token cleanup failed", "error", err)
		return
	}
	s.log.Info("expired refresh tokens cleaned up", "deleted", deleted)
}
