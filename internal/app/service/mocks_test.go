package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/llm"
	"nagukpo_backend/internal/platform/vector"
)

// Hand-rolled fakes with overridable function fields. Unset fields return
// zero values so each test only wires what it exercises.

// stubDriver backs a *sql.DB whose transactions are no-ops. The repositories
// are faked, so only Begin/Commit/Rollback plumbing is ever exercised.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (*stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (*stubConn) Close() error                        { return nil }
func (*stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var registerStubDriver sync.Once

func newStubDB() *sql.DB {
	registerStubDriver.Do(func() { sql.Register("stub", stubDriver{}) })
	db, err := sql.Open("stub", "")
	if err != nil {
		panic(err)
	}
	return db
}

type fakeLLM struct {
	completeFn func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
	embedFn    func(ctx context.Context, input string) ([]float32, error)

	completeCalls []llm.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	f.completeCalls = append(f.completeCalls, req)
	if f.completeFn != nil {
		return f.completeFn(ctx, req)
	}
	return &llm.Completion{Content: "ok", FinishReason: "stop"}, nil
}

func (f *fakeLLM) Embed(ctx context.Context, input string) ([]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(ctx, input)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	queryFn func(ctx context.Context, namespace string, vec []float32, topK int) ([]vector.Match, error)
}

func (f *fakeIndex) Query(ctx context.Context, namespace string, vec []float32, topK int) ([]vector.Match, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, namespace, vec, topK)
	}
	return nil, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, namespace string, vectors []vector.Vector) error {
	return nil
}

func (f *fakeIndex) Close() {}

type fakeProblemRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.Problem, error)
	countFn        func(ctx context.Context) (int, error)
	countByLevelFn func(ctx context.Context, level int) (int, error)
}

func (f *fakeProblemRepo) Create(ctx context.Context, problem *model.Problem) error { return nil }

func (f *fakeProblemRepo) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeProblemRepo) List(ctx context.Context, filter repository.ProblemFilter) ([]model.Problem, int, error) {
	return nil, 0, nil
}

func (f *fakeProblemRepo) CountAttemptedMatching(ctx context.Context, userID string, filter repository.ProblemFilter) (int, error) {
	return 0, nil
}

func (f *fakeProblemRepo) Count(ctx context.Context) (int, error) {
	if f.countFn != nil {
		return f.countFn(ctx)
	}
	return 0, nil
}

func (f *fakeProblemRepo) CountByLevel(ctx context.Context, level int) (int, error) {
	if f.countByLevelFn != nil {
		return f.countByLevelFn(ctx, level)
	}
	return 0, nil
}

type fakeAttemptRepo struct {
	markSolvedFn          func(ctx context.Context, userID, problemID string) (bool, error)
	countByUserFn         func(ctx context.Context, userID string) (int, int, error)
	countCorrectBetweenFn func(ctx context.Context, userID string, from, to time.Time) (int, error)
	countSolvedFn         func(ctx context.Context, userID string) (int, error)
	countSolvedByLevelFn  func(ctx context.Context, userID string, level int) (int, error)
	countSolvedByTypeFn   func(ctx context.Context, userID string, pt model.ProblemType) (int, error)
	listRecentFn          func(ctx context.Context, userID string, limit int) ([]model.Attempt, error)
	levelProgressFn       func(ctx context.Context, userID string) ([]model.LevelProgress, error)
	statsByTypeFn         func(ctx context.Context, userID string) ([]model.GroupStats, error)
	statsByDifficultyFn   func(ctx context.Context, userID string) ([]model.GroupStats, error)

	createdAttempts []*model.Attempt
	solvedPairs     map[string]bool
}

func (f *fakeAttemptRepo) Create(ctx context.Context, tx *sql.Tx, attempt *model.Attempt) error {
	f.createdAttempts = append(f.createdAttempts, attempt)
	attempt.AttemptCount = len(f.createdAttempts)
	return nil
}

func (f *fakeAttemptRepo) MarkSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) (bool, error) {
	if f.markSolvedFn != nil {
		return f.markSolvedFn(ctx, userID, problemID)
	}
	// Default mirrors the marker table: first insert per pair wins.
	key := userID + "/" + problemID
	if f.solvedPairs == nil {
		f.solvedPairs = map[string]bool{}
	}
	if f.solvedPairs[key] {
		return false, nil
	}
	f.solvedPairs[key] = true
	return true, nil
}

func (f *fakeAttemptRepo) CountByUser(ctx context.Context, userID string) (int, int, error) {
	if f.countByUserFn != nil {
		return f.countByUserFn(ctx, userID)
	}
	return 0, 0, nil
}

func (f *fakeAttemptRepo) CountCorrectBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	if f.countCorrectBetweenFn != nil {
		return f.countCorrectBetweenFn(ctx, userID, from, to)
	}
	return 0, nil
}

func (f *fakeAttemptRepo) CountSolved(ctx context.Context, userID string) (int, error) {
	if f.countSolvedFn != nil {
		return f.countSolvedFn(ctx, userID)
	}
	return 0, nil
}

func (f *fakeAttemptRepo) CountSolvedByLevel(ctx context.Context, userID string, level int) (int, error) {
	if f.countSolvedByLevelFn != nil {
		return f.countSolvedByLevelFn(ctx, userID, level)
	}
	return 0, nil
}

func (f *fakeAttemptRepo) CountSolvedByType(ctx context.Context, userID string, pt model.ProblemType) (int, error) {
	if f.countSolvedByTypeFn != nil {
		return f.countSolvedByTypeFn(ctx, userID, pt)
	}
	return 0, nil
}

func (f *fakeAttemptRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.Attempt, error) {
	if f.listRecentFn != nil {
		return f.listRecentFn(ctx, userID, limit)
	}
	return nil, nil
}

func (f *fakeAttemptRepo) LevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error) {
	if f.levelProgressFn != nil {
		return f.levelProgressFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeAttemptRepo) StatsByType(ctx context.Context, userID string) ([]model.GroupStats, error) {
	if f.statsByTypeFn != nil {
		return f.statsByTypeFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeAttemptRepo) StatsByDifficulty(ctx context.Context, userID string) ([]model.GroupStats, error) {
	if f.statsByDifficultyFn != nil {
		return f.statsByDifficultyFn(ctx, userID)
	}
	return nil, nil
}

type fakeUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)

	created       []*model.User
	awardedPoints []int
	streakTouches int
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	// Snapshot the value so later mutations by the service under test
	// don't alias into what the repo recorded at Create time.
	snapshot := *user
	f.created = append(f.created, &snapshot)
	return nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return &model.User{ID: id}, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (f *fakeUserRepo) AwardPoints(ctx context.Context, tx *sql.Tx, userID string, points int) error {
	f.awardedPoints = append(f.awardedPoints, points)
	return nil
}

func (f *fakeUserRepo) TouchStreak(ctx context.Context, tx *sql.Tx, userID string) error {
	f.streakTouches++
	return nil
}

type fakeAchievementRepo struct {
	listAllFn        func(ctx context.Context) ([]model.Achievement, error)
	listGrantedIDsFn func(ctx context.Context, userID string) (map[string]struct{}, error)
	grantFn          func(ctx context.Context, userID, achievementID string) (bool, error)

	grantCalls []string
}

func (f *fakeAchievementRepo) ListAll(ctx context.Context) ([]model.Achievement, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeAchievementRepo) ListGrantedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if f.listGrantedIDsFn != nil {
		return f.listGrantedIDsFn(ctx, userID)
	}
	return map[string]struct{}{}, nil
}

func (f *fakeAchievementRepo) Grant(ctx context.Context, tx *sql.Tx, userID, achievementID string) (bool, error) {
	f.grantCalls = append(f.grantCalls, achievementID)
	if f.grantFn != nil {
		return f.grantFn(ctx, userID, achievementID)
	}
	return true, nil
}

func (f *fakeAchievementRepo) ListEarned(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	return nil, nil
}

func (f *fakeAchievementRepo) ListWithStatus(ctx context.Context, userID string) ([]model.AchievementStatus, error) {
	return nil, nil
}

type fakeEvaluationJobRepo struct {
	createdJobs []*model.EvaluationJob
}

func (f *fakeEvaluationJobRepo) Create(ctx context.Context, tx *sql.Tx, job *model.EvaluationJob) error {
	f.createdJobs = append(f.createdJobs, job)
	return nil
}

func (f *fakeEvaluationJobRepo) FindByID(ctx context.Context, id string) (*model.EvaluationJob, error) {
	return nil, nil
}

func (f *fakeEvaluationJobRepo) MarkProcessing(ctx context.Context, id string) error { return nil }

func (f *fakeEvaluationJobRepo) UpdateStatus(ctx context.Context, id string, status model.EvaluationJobStatus, lastError *string) error {
	return nil
}

func (f *fakeEvaluationJobRepo) ListUnfinishedIDs(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

type fakeTokenRepo struct {
	findByTokenFn func(ctx context.Context, token string) (*model.RefreshToken, error)

	stored  []*model.RefreshToken
	deleted []string
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	f.stored = append(f.stored, token)
	return nil
}

func (f *fakeTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	if f.findByTokenFn != nil {
		return f.findByTokenFn(ctx, token)
	}
	return nil, nil
}

func (f *fakeTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeTokenRepo) DeleteByID(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type fakeChatRepo struct {
	listRecentFn func(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)

	createdPairs [][2]string
	cleared      []string
}

func (f *fakeChatRepo) CreatePair(ctx context.Context, userID, userMessage, assistantMessage string) error {
	f.createdPairs = append(f.createdPairs, [2]string{userMessage, assistantMessage})
	return nil
}

func (f *fakeChatRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	if f.listRecentFn != nil {
		return f.listRecentFn(ctx, userID, limit)
	}
	return nil, nil
}

func (f *fakeChatRepo) DeleteByUser(ctx context.Context, userID string) error {
	f.cleared = append(f.cleared, userID)
	return nil
}
