package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/logger"

	"github.com/google/uuid"
)

type ProblemService struct {
	db          *sql.DB
	problemRepo repository.ProblemRepository
	attemptRepo repository.AttemptRepository
	userRepo    repository.UserRepository
	jobService  *EvaluationJobService
	log         *logger.Logger
}

func NewProblemService(
	db *sql.DB,
	problemRepo repository.ProblemRepository,
	attemptRepo repository.AttemptRepository,
	userRepo repository.UserRepository,
	jobService *EvaluationJobService,
	log *logger.Logger,
) *ProblemService {
	return &ProblemService{
		db:          db,
		problemRepo: problemRepo,
		attemptRepo: attemptRepo,
		userRepo:    userRepo,
		jobService:  jobService,
		log:         log,
	}
}

type ProblemListResult struct {
	Problems []model.Problem `json:"problems"`
	Total    int             `json:"total"`
	Solved   int             `json:"solved"`
}

// List returns problems matching the filter with answers and explanations
// stripped, plus the caller's attempted count over the same filter.
func (s *ProblemService) List(ctx context.Context, userID string, f repository.ProblemFilter) (*ProblemListResult, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	problems, total, err := s.problemRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	for i := range problems {
		problems[i].Answer = ""
		problems[i].Explanation = ""
	}

	solved, err := s.problemRepo.CountAttemptedMatching(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempted problems: %w", err)
	}

	return &ProblemListResult{Problems: problems, Total: total, Solved: solved}, nil
}

// Get returns a single problem with the answer stripped. The explanation is
// kept so the client can show it after submission.
func (s *ProblemService) Get(ctx context.Context, id string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	problem.Answer = ""
	return problem, nil
}

type CreateProblemRequest struct {
	Level       int                     `json:"level"`
	Type        model.ProblemType       `json:"type"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	Passage     *string                 `json:"passage,omitempty"`
	Question    string                  `json:"question"`
	Options     []string                `json:"options"`
	Answer      string                  `json:"answer"`
	Explanation string                  `json:"explanation"`
	Source      string                  `json:"source"`
	Tags        []string                `json:"tags"`
}

func (r CreateProblemRequest) validate() error {
	if r.Level < 1 || r.Level > 4 {
		return fmt.Errorf("level must be between 1 and 4: %w", common.ErrValidation)
	}
	switch r.Type {
	case model.TypeReading, model.TypeVocabulary, model.TypeGrammar, model.TypeWriting:
	default:
		return fmt.Errorf("unknown problem type %q: %w", r.Type, common.ErrValidation)
	}
	switch r.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return fmt.Errorf("unknown difficulty %q: %w", r.Difficulty, common.ErrValidation)
	}
	if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
		return fmt.Errorf("question and answer are required: %w", common.ErrValidation)
	}
	return nil
}

// Create inserts a single problem. Admin only, enforced at the router.
func (s *ProblemService) Create(ctx context.Context, req CreateProblemRequest) (*model.Problem, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	problem := &model.Problem{
		ID:          uuid.NewString(),
		Level:       req.Level,
		Type:        req.Type,
		Difficulty:  req.Difficulty,
		Passage:     req.Passage,
		Question:    req.Question,
		Options:     req.Options,
		Answer:      req.Answer,
		Explanation: req.Explanation,
		Source:      req.Source,
		Tags:        req.Tags,
	}
	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}
	return problem, nil
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import bulk-creates problems, skipping invalid rows instead of aborting.
func (s *ProblemService) Import(ctx context.Context, reqs []CreateProblemRequest) (*ImportResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("empty problem list: %w", common.ErrBadRequest)
	}
	result := &ImportResult{}
	for i, req := range reqs {
		if _, err := s.Create(ctx, req); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i, err))
			continue
		}
		result.Imported++
	}
	return result, nil
}

// gradeAnswer compares the submission to the stored answer. Exact equality
// after trimming surrounding whitespace; case and internal spacing matter.
func gradeAnswer(submitted, answer string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(answer)
}

type SubmitAnswerRequest struct {
	Answer    string `json:"answer"`
	TimeSpent *int   `json:"time_spent,omitempty"`
}

type SubmitAnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
	PointsAwarded int    `json:"points_awarded"`
	AttemptCount  int    `json:"attempt_count"`
	FirstSolve    bool   `json:"first_solve"`
}

// SubmitAnswer grades a submission and records the attempt. Grading is exact
// string equality after trimming surrounding whitespace. Points are awarded
// only on the first correct answer per (user, problem) pair, gated by the
// solved_problems marker insert so concurrent submissions cannot double-award.
// The attempt, the marker, the award, the streak touch and the evaluation
// outbox row all commit in one transaction; the Redis push happens after.
func (s *ProblemService) SubmitAnswer(ctx context.Context, userID, problemID string, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return nil, fmt.Errorf("answer is required: %w", common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	isCorrect := gradeAnswer(req.Answer, problem.Answer)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	attempt := &model.Attempt{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  problemID,
		UserAnswer: req.Answer,
		IsCorrect:  isCorrect,
		TimeSpent:  req.TimeSpent,
	}
	if err := s.attemptRepo.Create(ctx, tx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	result := &SubmitAnswerResult{
		IsCorrect:     isCorrect,
		CorrectAnswer: problem.Answer,
		Explanation:   problem.Explanation,
		AttemptCount:  attempt.AttemptCount,
	}

	var jobID string
	if isCorrect {
		firstSolve, err := s.attemptRepo.MarkSolved(ctx, tx, userID, problemID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark problem solved: %w", err)
		}
		result.FirstSolve = firstSolve
		if firstSolve {
			points := model.PointsForDifficulty(problem.Difficulty)
			if err := s.userRepo.AwardPoints(ctx, tx, userID, points); err != nil {
				return nil, fmt.Errorf("failed to award points: %w", err)
			}
			result.PointsAwarded = points
		}
		if err := s.userRepo.TouchStreak(ctx, tx, userID); err != nil {
			return nil, fmt.Errorf("failed to update streak: %w", err)
		}

		job, err := s.jobService.CreateInTx(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		jobID = job.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit attempt: %w", err)
	}

	if jobID != "" {
		if err := s.jobService.Enqueue(ctx, jobID); err != nil {
			// The outbox row is committed; the startup requeue pass covers it.
			s.log.Error("Failed to enqueue evaluation job", "jobID", jobID, "error", err)
		}
	}

	return result, nil
}
