package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id string) error

	// AwardPoints atomically adds the same amount to points and experience and
	// recomputes level from the new experience total.
	AwardPoints(ctx context.Context, tx *sql.Tx, userID string, points int) error

	// TouchStreak advances the consecutive-day counter in a single statement:
	// same day is a no-op, the day after extends the streak, any gap resets it.
	TouchStreak(ctx context.Context, tx *sql.Tx, userID string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role, birth_year, parent_email,
	       points, experience_points, level, streak_days, last_streak_date, last_login_at,
	       created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role, birth_year, parent_email)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Role, user.BirthYear, user.ParentEmail,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findBy(ctx, "id", id)
}

func (r *pgUserRepository) findBy(ctx context.Context, column, value string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.BirthYear, &user.ParentEmail,
		&user.Points, &user.ExperiencePoints, &user.Level,
		&user.StreakDays, &user.LastStreakDate, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.findBy %s: %w", column, err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = now(), updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("pgUserRepository.UpdateLastLogin: %w", err)
	}
	return nil
}

func (r *pgUserRepository) AwardPoints(ctx context.Context, tx *sql.Tx, userID string, points int) error {
	query := `UPDATE users SET
	            points = points + $2,
	            experience_points = experience_points + $2,
	            level = (experience_points + $2) / $3 + 1,
	            updated_at = now()
	          WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, userID, points, model.ExperiencePerLevel)
	} else {
		_, err = r.db.ExecContext(ctx, query, userID, points, model.ExperiencePerLevel)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.AwardPoints: %w", err)
	}
	return nil
}

func (r *pgUserRepository) TouchStreak(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `UPDATE users SET
	            streak_days = CASE
	              WHEN last_streak_date = CURRENT_DATE THEN streak_days
	              WHEN last_streak_date = CURRENT_DATE - 1 THEN streak_days + 1
	              ELSE 1
	            END,
	            last_streak_date = CURRENT_DATE,
	            updated_at = now()
	          WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, userID)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.TouchStreak: %w", err)
	}
	return nil
}
