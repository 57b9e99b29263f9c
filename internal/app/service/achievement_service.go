package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/logger"
)

type AchievementService struct {
	db              *sql.DB
	achievementRepo repository.AchievementRepository
	attemptRepo     repository.AttemptRepository
	problemRepo     repository.ProblemRepository
	userRepo        repository.UserRepository
	log             *logger.Logger
}

func NewAchievementService(
	db *sql.DB,
	achievementRepo repository.AchievementRepository,
	attemptRepo repository.AttemptRepository,
	problemRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	log *logger.Logger,
) *AchievementService {
	return &AchievementService{
		db:              db,
		achievementRepo: achievementRepo,
		attemptRepo:     attemptRepo,
		problemRepo:     problemRepo,
		userRepo:        userRepo,
		log:             log,
	}
}

// ListWithStatus returns every achievement annotated with the caller's
// unlock state.
func (s *AchievementService) ListWithStatus(ctx context.Context, userID string) ([]model.AchievementStatus, error) {
	return s.achievementRepo.ListWithStatus(ctx, userID)
}

// ListEarned returns only the achievements the user has unlocked, newest
// first.
func (s *AchievementService) ListEarned(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	return s.achievementRepo.ListEarned(ctx, userID)
}

// Evaluate checks every not-yet-granted achievement against the user's
// current state and grants the ones whose condition holds, awarding the
// achievement's bonus points in the same transaction as the grant. The
// unique (user, achievement) constraint makes concurrent evaluation of the
// same user idempotent. Returns the codes granted by this pass.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]string, error) {
	achievements, err := s.achievementRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	granted, err := s.achievementRepo.ListGrantedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list granted achievements: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for evaluation: %w", err)
	}

	var newlyGranted []string
	for _, a := range achievements {
		if _, ok := granted[a.ID]; ok {
			continue
		}

		cond, err := a.ParseCondition()
		if err != nil {
			s.log.Warn("Skipping achievement with malformed condition", "code", a.Code, "error", err)
			continue
		}

		satisfied, err := s.conditionSatisfied(ctx, user, cond)
		if err != nil {
			return newlyGranted, fmt.Errorf("failed to evaluate achievement %s: %w", a.Code, err)
		}
		if !satisfied {
			continue
		}

		inserted, err := s.grant(ctx, userID, a)
		if err != nil {
			return newlyGranted, err
		}
		if inserted {
			newlyGranted = append(newlyGranted, a.Code)
		}
	}
	return newlyGranted, nil
}

// grant inserts the unlock row and awards the bonus points in one
// transaction. Reports false without error when a concurrent evaluation got
// there first; in that case no points are awarded either.
func (s *AchievementService) grant(ctx context.Context, userID string, a model.Achievement) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin grant transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.achievementRepo.Grant(ctx, tx, userID, a.ID)
	if err != nil {
		return false, fmt.Errorf("failed to grant achievement %s: %w", a.Code, err)
	}
	if inserted && a.Points > 0 {
		if err := s.userRepo.AwardPoints(ctx, tx, userID, a.Points); err != nil {
			return false, fmt.Errorf("failed to award achievement points for %s: %w", a.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit grant for %s: %w", a.Code, err)
	}
	if inserted {
		s.log.Info("Achievement unlocked", "userID", userID, "code", a.Code)
	}
	return inserted, nil
}

func (s *AchievementService) conditionSatisfied(ctx context.Context, user *model.User, cond model.AchievementCondition) (bool, error) {
	switch cond.Type {
	case model.ConditionProblemCount:
		// Counts correct attempts in the append-only log, so re-solving a
		// problem counts again. Distinct-problem thresholds are what
		// level_complete and all_complete are for.
		_, correct, err := s.attemptRepo.CountByUser(ctx, user.ID)
		if err != nil {
			return false, err
		}
		return correct >= cond.Count, nil

	case model.ConditionStreakDays:
		return user.StreakDays >= cond.Days, nil

	case model.ConditionLevelComplete:
		total, err := s.problemRepo.CountByLevel(ctx, cond.Level)
		if err != nil {
			return false, err
		}
		if total == 0 {
			return false, nil
		}
		solved, err := s.attemptRepo.CountSolvedByLevel(ctx, user.ID, cond.Level)
		if err != nil {
			return false, err
		}
		return solved >= total, nil

	case model.ConditionAccuracy:
		total, correct, err := s.attemptRepo.CountByUser(ctx, user.ID)
		if err != nil {
			return false, err
		}
		if total < cond.MinProblems || total == 0 {
			return false, nil
		}
		return float64(correct)/float64(total)*100 >= cond.Rate, nil

	case model.ConditionTypeCount:
		solved, err := s.attemptRepo.CountSolvedByType(ctx, user.ID, model.ProblemType(cond.ProblemType))
		if err != nil {
			return false, err
		}
		return solved >= cond.Count, nil

	case model.ConditionDailyCount:
		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		correct, err := s.attemptRepo.CountCorrectBetween(ctx, user.ID, dayStart, now)
		if err != nil {
			return false, err
		}
		return correct >= cond.Count, nil

	case model.ConditionAllComplete:
		total, err := s.problemRepo.Count(ctx)
		if err != nil {
			return false, err
		}
		if total == 0 {
			return false, nil
		}
		solved, err := s.attemptRepo.CountSolved(ctx, user.ID)
		if err != nil {
			return false, err
		}
		return solved >= total, nil

	default:
		// Unknown condition types never fire, so new types can be seeded
		// ahead of the code that evaluates them.
		return false, nil
	}
}
