package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
)

// ProblemFilter narrows problem listings. Zero values mean "no filter".
type ProblemFilter struct {
	Level      int
	Type       model.ProblemType
	Difficulty model.ProblemDifficulty
	Limit      int
	Offset     int

	// ExcludeAttemptedBy drops problems the given user has already attempted.
	ExcludeAttemptedBy string
}

type ProblemRepository interface {
	Create(ctx context.Context, problem *model.Problem) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	List(ctx context.Context, f ProblemFilter) ([]model.Problem, int, error)

	// CountAttemptedMatching counts distinct problems matching the filter that
	// the user has attempted at least once.
	CountAttemptedMatching(ctx context.Context, userID string, f ProblemFilter) (int, error)

	Count(ctx context.Context) (int, error)
	CountByLevel(ctx context.Context, level int) (int, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `id, level, type, difficulty, passage, question, options, answer,
	       explanation, source, tags, created_at, updated_at`

func (r *pgProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	options, err := json.Marshal(p.Options)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: marshal options: %w", err)
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: marshal tags: %w", err)
	}

	query := `INSERT INTO problems (id, level, type, difficulty, passage, question, options, answer, explanation, source, tags)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Level, p.Type, p.Difficulty, p.Passage, p.Question, options, p.Answer, p.Explanation, p.Source, tags,
	)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`

	p := &model.Problem{}
	var options, tags []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Level, &p.Type, &p.Difficulty, &p.Passage, &p.Question, &options, &p.Answer,
		&p.Explanation, &p.Source, &tags, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	if err := unmarshalJSONColumns(p, options, tags); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) List(ctx context.Context, f ProblemFilter) ([]model.Problem, int, error) {
	where, args := buildProblemWhere(f)

	countQuery := `SELECT COUNT(*) FROM problems p` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: count: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT p.id, p.level, p.type, p.difficulty, p.passage, p.question, p.options, p.answer,
	                 p.explanation, p.source, p.tags, p.created_at, p.updated_at
	          FROM problems p` + where +
		` ORDER BY p.created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: %w", err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var p model.Problem
		var options, tags []byte
		if err := rows.Scan(
			&p.ID, &p.Level, &p.Type, &p.Difficulty, &p.Passage, &p.Question, &options, &p.Answer,
			&p.Explanation, &p.Source, &tags, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.List: scan: %w", err)
		}
		if err := unmarshalJSONColumns(&p, options, tags); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.List: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: rows: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) CountAttemptedMatching(ctx context.Context, userID string, f ProblemFilter) (int, error) {
	f.ExcludeAttemptedBy = "" // attempted-state is the subject here, not a filter
	where, args := buildProblemWhere(f)

	cond := " WHERE"
	if where != "" {
		cond = where + " AND"
	}
	query := `SELECT COUNT(DISTINCT a.problem_id)
	          FROM problems p
	          JOIN attempts a ON a.problem_id = p.id` + cond + ` a.user_id = $` + strconv.Itoa(len(args)+1)
	args = append(args, userID)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.CountAttemptedMatching: %w", err)
	}
	return count, nil
}

func (r *pgProblemRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.Count: %w", err)
	}
	return count, nil
}

func (r *pgProblemRepository) CountByLevel(ctx context.Context, level int) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems WHERE level = $1`, level).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.CountByLevel: %w", err)
	}
	return count, nil
}

func buildProblemWhere(f ProblemFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Level > 0 {
		args = append(args, f.Level)
		conds = append(conds, "p.level = $"+strconv.Itoa(len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, "p.type = $"+strconv.Itoa(len(args)))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		conds = append(conds, "p.difficulty = $"+strconv.Itoa(len(args)))
	}
	if f.ExcludeAttemptedBy != "" {
		args = append(args, f.ExcludeAttemptedBy)
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM attempts a WHERE a.problem_id = p.id AND a.user_id = $"+strconv.Itoa(len(args))+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args
}

func unmarshalJSONColumns(p *model.Problem, options, tags []byte) error {
	if len(options) > 0 {
		if err := json.Unmarshal(options, &p.Options); err != nil {
			return fmt.Errorf("unmarshal options: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return nil
}
