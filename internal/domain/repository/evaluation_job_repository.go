package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
)

type EvaluationJobRepository interface {
	Create(ctx context.Context, tx *sql.Tx, job *model.EvaluationJob) error
	FindByID(ctx context.Context, id string) (*model.EvaluationJob, error)

	// MarkProcessing flips the job to Processing and bumps its attempt counter.
	MarkProcessing(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status model.EvaluationJobStatus, lastError *string) error

	// ListUnfinishedIDs returns jobs left Queued or Processing, oldest first.
	// Used by the startup requeue pass after a crash.
	ListUnfinishedIDs(ctx context.Context, limit int) ([]string, error)
}

type pgEvaluationJobRepository struct {
	db *sql.DB
}

func NewPgEvaluationJobRepository(db *sql.DB) EvaluationJobRepository {
	return &pgEvaluationJobRepository{db: db}
}

func (r *pgEvaluationJobRepository) Create(ctx context.Context, tx *sql.Tx, job *model.EvaluationJob) error {
	query := `INSERT INTO evaluation_jobs (id, user_id, status) VALUES ($1, $2, $3)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, job.ID, job.UserID, job.Status)
	} else {
		_, err = r.db.ExecContext(ctx, query, job.ID, job.UserID, job.Status)
	}
	if err != nil {
		return fmt.Errorf("pgEvaluationJobRepository.Create: %w", err)
	}
	return nil
}

func (r *pgEvaluationJobRepository) FindByID(ctx context.Context, id string) (*model.EvaluationJob, error) {
	query := `SELECT id, user_id, status, attempts, last_error, created_at, updated_at
	          FROM evaluation_jobs WHERE id = $1`
	job := &model.EvaluationJob{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgEvaluationJobRepository.FindByID: %w", err)
	}
	return job, nil
}

func (r *pgEvaluationJobRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE evaluation_jobs SET status = $2, attempts = attempts + 1, updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, model.JobStatusProcessing); err != nil {
		return fmt.Errorf("pgEvaluationJobRepository.MarkProcessing: %w", err)
	}
	return nil
}

func (r *pgEvaluationJobRepository) UpdateStatus(ctx context.Context, id string, status model.EvaluationJobStatus, lastError *string) error {
	query := `UPDATE evaluation_jobs SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, lastError); err != nil {
		return fmt.Errorf("pgEvaluationJobRepository.UpdateStatus: %w", err)
	}
	return nil
}

func (r *pgEvaluationJobRepository) ListUnfinishedIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id FROM evaluation_jobs
	          WHERE status IN ($1, $2)
	          ORDER BY created_at ASC LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, model.JobStatusQueued, model.JobStatusProcessing, limit)
	if err != nil {
		return nil, fmt.Errorf("pgEvaluationJobRepository.ListUnfinishedIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgEvaluationJobRepository.ListUnfinishedIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgEvaluationJobRepository.ListUnfinishedIDs: rows: %w", err)
	}
	return ids, nil
}
