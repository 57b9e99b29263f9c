package service

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/platform/logger"
)

func TestGradeAnswer(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		answer    string
		want      bool
	}{
		{"exact match", "먹었어요", "먹었어요", true},
		{"leading and trailing whitespace trimmed", "  먹었어요  ", "먹었어요", true},
		{"answer side trimmed too", "먹었어요", " 먹었어요 ", true},
		{"wrong answer", "먹었습니다", "먹었어요", false},
		{"case matters", "Seoul", "seoul", false},
		{"internal spacing matters", "한 국", "한국", false},
		{"numeric option answer", "3", "3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeAnswer(tt.submitted, tt.answer); got != tt.want {
				t.Errorf("gradeAnswer(%q, %q) = %v, want %v", tt.submitted, tt.answer, got, tt.want)
			}
		})
	}
}

func TestPointsForDifficulty(t *testing.T) {
	tests := []struct {
		difficulty model.ProblemDifficulty
		want       int
	}{
		{model.DifficultyEasy, 10},
		{model.DifficultyMedium, 20},
		{model.DifficultyHard, 30},
		{model.ProblemDifficulty("unknown"), 10},
	}

	for _, tt := range tests {
		if got := model.PointsForDifficulty(tt.difficulty); got != tt.want {
			t.Errorf("PointsForDifficulty(%q) = %d, want %d", tt.difficulty, got, tt.want)
		}
	}
}

func newSubmitFixture(problem *model.Problem) (*ProblemService, *fakeAttemptRepo, *fakeUserRepo, *fakeEvaluationJobRepo) {
	attemptRepo := &fakeAttemptRepo{}
	userRepo := &fakeUserRepo{}
	jobRepo := &fakeEvaluationJobRepo{}
	problemRepo := &fakeProblemRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Problem, error) {
			return problem, nil
		},
	}
	// The queue is unreachable on purpose: a failed push is logged, never
	// surfaced, because the committed outbox row covers the job.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	jobService := NewEvaluationJobService(jobRepo, rdb, logger.NewNop())
	svc := NewProblemService(newStubDB(), problemRepo, attemptRepo, userRepo, jobService, logger.NewNop())
	return svc, attemptRepo, userRepo, jobRepo
}

func TestSubmitAnswer_AwardsPointsOnlyOnFirstSolve(t *testing.T) {
	problem := &model.Problem{
		ID:         "p1",
		Level:      2,
		Type:       model.TypeGrammar,
		Difficulty: model.DifficultyMedium,
		Question:   "빈칸에 알맞은 것은?",
		Answer:     "먹었어요",
	}
	svc, attemptRepo, userRepo, jobRepo := newSubmitFixture(problem)
	ctx := context.Background()

	first, err := svc.SubmitAnswer(ctx, "u1", "p1", SubmitAnswerRequest{Answer: "먹었어요"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !first.IsCorrect || !first.FirstSolve {
		t.Fatalf("first submit: IsCorrect=%v FirstSolve=%v, want true/true", first.IsCorrect, first.FirstSolve)
	}
	if first.PointsAwarded != 20 {
		t.Errorf("first submit: PointsAwarded = %d, want 20", first.PointsAwarded)
	}
	if first.AttemptCount != 1 {
		t.Errorf("first submit: AttemptCount = %d, want 1", first.AttemptCount)
	}

	second, err := svc.SubmitAnswer(ctx, "u1", "p1", SubmitAnswerRequest{Answer: "먹었어요"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !second.IsCorrect || second.FirstSolve {
		t.Fatalf("second submit: IsCorrect=%v FirstSolve=%v, want true/false", second.IsCorrect, second.FirstSolve)
	}
	if second.PointsAwarded != 0 {
		t.Errorf("re-solve awarded %d points, want 0", second.PointsAwarded)
	}
	if second.AttemptCount != 2 {
		t.Errorf("second submit: AttemptCount = %d, want 2", second.AttemptCount)
	}

	if len(userRepo.awardedPoints) != 1 || userRepo.awardedPoints[0] != 20 {
		t.Errorf("awarded points per submit = %v, want [20]", userRepo.awardedPoints)
	}
	if userRepo.streakTouches != 2 {
		t.Errorf("streak touched %d times, want 2 (every correct answer)", userRepo.streakTouches)
	}
	if len(jobRepo.createdJobs) != 2 {
		t.Errorf("evaluation jobs created = %d, want 2", len(jobRepo.createdJobs))
	}
	if len(attemptRepo.createdAttempts) != 2 {
		t.Errorf("attempts recorded = %d, want 2", len(attemptRepo.createdAttempts))
	}
}

func TestSubmitAnswer_WrongAnswerRecordsAttemptOnly(t *testing.T) {
	problem := &model.Problem{
		ID:         "p1",
		Difficulty: model.DifficultyEasy,
		Answer:     "먹었어요",
	}
	svc, attemptRepo, userRepo, jobRepo := newSubmitFixture(problem)

	result, err := svc.SubmitAnswer(context.Background(), "u1", "p1", SubmitAnswerRequest{Answer: "먹었습니다"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.IsCorrect || result.FirstSolve || result.PointsAwarded != 0 {
		t.Errorf("wrong answer: IsCorrect=%v FirstSolve=%v PointsAwarded=%d, want false/false/0",
			result.IsCorrect, result.FirstSolve, result.PointsAwarded)
	}
	if result.CorrectAnswer != "먹었어요" {
		t.Errorf("CorrectAnswer = %q, want the stored answer", result.CorrectAnswer)
	}
	if len(attemptRepo.createdAttempts) != 1 {
		t.Fatalf("attempts recorded = %d, want 1", len(attemptRepo.createdAttempts))
	}
	if len(userRepo.awardedPoints) != 0 || userRepo.streakTouches != 0 {
		t.Errorf("wrong answer touched rewards: points=%v streak=%d", userRepo.awardedPoints, userRepo.streakTouches)
	}
	if len(jobRepo.createdJobs) != 0 {
		t.Errorf("wrong answer created %d evaluation jobs, want 0", len(jobRepo.createdJobs))
	}
}

func TestSubmitAnswer_BlankAnswerRejected(t *testing.T) {
	svc, _, _, _ := newSubmitFixture(&model.Problem{ID: "p1", Answer: "x"})

	_, err := svc.SubmitAnswer(context.Background(), "u1", "p1", SubmitAnswerRequest{Answer: "   "})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestCreateProblemRequestValidate(t *testing.T) {
	valid := CreateProblemRequest{
		Level:      2,
		Type:       model.TypeVocabulary,
		Difficulty: model.DifficultyMedium,
		Question:   "다음 중 '사과'의 뜻은?",
		Options:    []string{"apple", "banana", "grape", "peach"},
		Answer:     "apple",
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *CreateProblemRequest)
	}{
		{"level too low", func(r *CreateProblemRequest) { r.Level = 0 }},
		{"level too high", func(r *CreateProblemRequest) { r.Level = 5 }},
		{"unknown type", func(r *CreateProblemRequest) { r.Type = "listening" }},
		{"unknown difficulty", func(r *CreateProblemRequest) { r.Difficulty = "extreme" }},
		{"blank question", func(r *CreateProblemRequest) { r.Question = "   " }},
		{"blank answer", func(r *CreateProblemRequest) { r.Answer = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, common.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
