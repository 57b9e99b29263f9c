package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nagukpo_backend/internal/domain/model"
)

type AttemptRepository interface {
	Create(ctx context.Context, tx *sql.Tx, attempt *model.Attempt) error

	// MarkSolved inserts the first-correct marker for the pair. It reports
	// whether the marker was newly inserted; a false return means the user
	// already solved this problem and no points may be awarded.
	MarkSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) (bool, error)

	CountByUser(ctx context.Context, userID string) (total, correct int, err error)
	CountCorrectBetween(ctx context.Context, userID string, from, to time.Time) (int, error)

	CountSolved(ctx context.Context, userID string) (int, error)
	CountSolvedByLevel(ctx context.Context, userID string, level int) (int, error)
	CountSolvedByType(ctx context.Context, userID string, problemType model.ProblemType) (int, error)

	ListRecent(ctx context.Context, userID string, limit int) ([]model.Attempt, error)
	LevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error)
	StatsByType(ctx context.Context, userID string) ([]model.GroupStats, error)
	StatsByDifficulty(ctx context.Context, userID string) ([]model.GroupStats, error)
}

type pgAttemptRepository struct {
	db *sql.DB
}

func NewPgAttemptRepository(db *sql.DB) AttemptRepository {
	return &pgAttemptRepository{db: db}
}

// Create inserts the attempt and derives its ordinal within the same
// statement, so concurrent submissions for one (user, problem) pair cannot
// both claim the same attempt_count. The computed ordinal and timestamp are
// written back onto a.
func (r *pgAttemptRepository) Create(ctx context.Context, tx *sql.Tx, a *model.Attempt) error {
	query := `INSERT INTO attempts (id, user_id, problem_id, user_answer, is_correct, time_spent, attempt_count)
	          VALUES ($1, $2, $3, $4, $5, $6,
	                  (SELECT COUNT(*) + 1 FROM attempts WHERE user_id = $2 AND problem_id = $3))
	          RETURNING attempt_count, attempted_at`

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, a.ID, a.UserID, a.ProblemID, a.UserAnswer, a.IsCorrect, a.TimeSpent).Scan(&a.AttemptCount, &a.AttemptedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, a.ID, a.UserID, a.ProblemID, a.UserAnswer, a.IsCorrect, a.TimeSpent).Scan(&a.AttemptCount, &a.AttemptedAt)
	}
	if err != nil {
		return fmt.Errorf("pgAttemptRepository.Create: %w", err)
	}
	return nil
}

func (r *pgAttemptRepository) MarkSolved(ctx context.Context, tx *sql.Tx, userID, problemID string) (bool, error) {
	query := `INSERT INTO solved_problems (user_id, problem_id)
	          VALUES ($1, $2)
	          ON CONFLICT (user_id, problem_id) DO NOTHING`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, userID, problemID)
	} else {
		res, err = r.db.ExecContext(ctx, query, userID, problemID)
	}
	if err != nil {
		return false, fmt.Errorf("pgAttemptRepository.MarkSolved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgAttemptRepository.MarkSolved: rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *pgAttemptRepository) CountByUser(ctx context.Context, userID string) (int, int, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_correct) FROM attempts WHERE user_id = $1`
	var total, correct int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total, &correct); err != nil {
		return 0, 0, fmt.Errorf("pgAttemptRepository.CountByUser: %w", err)
	}
	return total, correct, nil
}

func (r *pgAttemptRepository) CountCorrectBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM attempts
	          WHERE user_id = $1 AND is_correct AND attempted_at >= $2 AND attempted_at < $3`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgAttemptRepository.CountCorrectBetween: %w", err)
	}
	return count, nil
}

func (r *pgAttemptRepository) CountSolved(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM solved_problems WHERE user_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgAttemptRepository.CountSolved: %w", err)
	}
	return count, nil
}

func (r *pgAttemptRepository) CountSolvedByLevel(ctx context.Context, userID string, level int) (int, error) {
	query := `SELECT COUNT(*) FROM solved_problems sp
	          JOIN problems p ON p.id = sp.problem_id
	          WHERE sp.user_id = $1 AND p.level = $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, level).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgAttemptRepository.CountSolvedByLevel: %w", err)
	}
	return count, nil
}

func (r *pgAttemptRepository) CountSolvedByType(ctx context.Context, userID string, problemType model.ProblemType) (int, error) {
	query := `SELECT COUNT(*) FROM solved_problems sp
	          JOIN problems p ON p.id = sp.problem_id
	          WHERE sp.user_id = $1 AND p.type = $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, problemType).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgAttemptRepository.CountSolvedByType: %w", err)
	}
	return count, nil
}

func (r *pgAttemptRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.Attempt, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT a.id, a.user_id, a.problem_id, a.user_answer, a.is_correct, a.time_spent,
	                 a.attempt_count, a.attempted_at,
	                 p.level, p.type, p.difficulty, p.question
	          FROM attempts a
	          JOIN problems p ON p.id = a.problem_id
	          WHERE a.user_id = $1
	          ORDER BY a.attempted_at DESC
	          LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgAttemptRepository.ListRecent: %w", err)
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.ProblemID, &a.UserAnswer, &a.IsCorrect, &a.TimeSpent,
			&a.AttemptCount, &a.AttemptedAt,
			&a.ProblemLevel, &a.ProblemType, &a.ProblemDifficulty, &a.ProblemQuestion,
		); err != nil {
			return nil, fmt.Errorf("pgAttemptRepository.ListRecent: scan: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAttemptRepository.ListRecent: rows: %w", err)
	}
	return attempts, nil
}

func (r *pgAttemptRepository) LevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error) {
	query := `SELECT p.level,
	                 COUNT(DISTINCT sp.problem_id) AS solved_count,
	                 COUNT(DISTINCT p.id) AS total_count
	          FROM problems p
	          LEFT JOIN solved_problems sp ON sp.problem_id = p.id AND sp.user_id = $1
	          GROUP BY p.level
	          ORDER BY p.level`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAttemptRepository.LevelProgress: %w", err)
	}
	defer rows.Close()

	var progress []model.LevelProgress
	for rows.Next() {
		var lp model.LevelProgress
		if err := rows.Scan(&lp.Level, &lp.SolvedCount, &lp.TotalCount); err != nil {
			return nil, fmt.Errorf("pgAttemptRepository.LevelProgress: scan: %w", err)
		}
		progress = append(progress, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAttemptRepository.LevelProgress: rows: %w", err)
	}
	return progress, nil
}

func (r *pgAttemptRepository) StatsByType(ctx context.Context, userID string) ([]model.GroupStats, error) {
	return r.groupStats(ctx, userID, "p.type")
}

func (r *pgAttemptRepository) StatsByDifficulty(ctx context.Context, userID string) ([]model.GroupStats, error) {
	return r.groupStats(ctx, userID, "p.difficulty")
}

func (r *pgAttemptRepository) groupStats(ctx context.Context, userID, column string) ([]model.GroupStats, error) {
	query := `SELECT ` + column + `,
	                 COUNT(*) AS total_attempts,
	                 COUNT(*) FILTER (WHERE a.is_correct) AS correct_attempts,
	                 ROUND(AVG(CASE WHEN a.is_correct THEN 100.0 ELSE 0.0 END), 1) AS accuracy
	          FROM attempts a
	          JOIN problems p ON p.id = a.problem_id
	          WHERE a.user_id = $1
	          GROUP BY ` + column

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAttemptRepository.groupStats: %w", err)
	}
	defer rows.Close()

	var stats []model.GroupStats
	for rows.Next() {
		var gs model.GroupStats
		if err := rows.Scan(&gs.Group, &gs.TotalAttempts, &gs.CorrectAttempts, &gs.Accuracy); err != nil {
			return nil, fmt.Errorf("pgAttemptRepository.groupStats: scan: %w", err)
		}
		stats = append(stats, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAttemptRepository.groupStats: rows: %w", err)
	}
	return stats, nil
}
