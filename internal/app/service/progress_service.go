package service

import (
	"context"
	"fmt"
	"math"

	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
)

const recentActivityLimit = 10

type ProgressService struct {
	userRepo    repository.UserRepository
	attemptRepo repository.AttemptRepository
}

func NewProgressService(userRepo repository.UserRepository, attemptRepo repository.AttemptRepository) *ProgressService {
	return &ProgressService{userRepo: userRepo, attemptRepo: attemptRepo}
}

type ProgressResponse struct {
	Level            int                   `json:"level"`
	ExperiencePoints int                   `json:"experience_points"`
	Points           int                   `json:"points"`
	StreakDays       int                   `json:"streak_days"`
	TotalAttempts    int                   `json:"total_attempts"`
	CorrectAttempts  int                   `json:"correct_attempts"`
	SolvedProblems   int                   `json:"solved_problems"`
	Accuracy         float64               `json:"accuracy"`
	Levels           []model.LevelProgress `json:"levels"`
	RecentActivity   []model.Attempt       `json:"recent_activity"`
}

// Progress assembles the user's dashboard view. Accuracy is over all
// attempts, not distinct problems, rounded to one decimal place.
func (s *ProgressService) Progress(ctx context.Context, userID string) (*ProgressResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, correct, err := s.attemptRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	solved, err := s.attemptRepo.CountSolved(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count solved problems: %w", err)
	}

	levels, err := s.attemptRepo.LevelProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load level progress: %w", err)
	}

	recent, err := s.attemptRepo.ListRecent(ctx, userID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}

	return &ProgressResponse{
		Level:            user.Level,
		ExperiencePoints: user.ExperiencePoints,
		Points:           user.Points,
		StreakDays:       user.StreakDays,
		TotalAttempts:    total,
		CorrectAttempts:  correct,
		SolvedProblems:   solved,
		Accuracy:         Accuracy(correct, total),
		Levels:           levels,
		RecentActivity:   recent,
	}, nil
}

type StatsResponse struct {
	Points           int                `json:"points"`
	ExperiencePoints int                `json:"experience_points"`
	Level            int                `json:"level"`
	StreakDays       int                `json:"streak_days"`
	ByType           []model.GroupStats `json:"by_type"`
	ByDifficulty     []model.GroupStats `json:"by_difficulty"`
}

func (s *ProgressService) Stats(ctx context.Context, userID string) (*StatsResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	byType, err := s.attemptRepo.StatsByType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load type stats: %w", err)
	}
	byDifficulty, err := s.attemptRepo.StatsByDifficulty(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load difficulty stats: %w", err)
	}
	return &StatsResponse{
		Points:           user.Points,
		ExperiencePoints: user.ExperiencePoints,
		Level:            user.Level,
		StreakDays:       user.StreakDays,
		ByType:           byType,
		ByDifficulty:     byDifficulty,
	}, nil
}

// Accuracy is the correct-rate percentage rounded to one decimal place.
// Zero attempts yields zero rather than dividing by zero.
func Accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}
