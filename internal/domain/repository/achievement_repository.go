package repository

import (
	"context"
	"database/sql"
	"fmt"

	"nagukpo_backend/internal/domain/model"

	"github.com/google/uuid"
)

type AchievementRepository interface {
	ListAll(ctx context.Context) ([]model.Achievement, error)
	ListGrantedIDs(ctx context.Context, userID string) (map[string]struct{}, error)

	// Grant inserts the user-achievement row. It reports whether the grant was
	// newly inserted; false means the user already held the achievement.
	Grant(ctx context.Context, tx *sql.Tx, userID, achievementID string) (bool, error)

	ListEarned(ctx context.Context, userID string) ([]model.UserAchievement, error)
	ListWithStatus(ctx context.Context, userID string) ([]model.AchievementStatus, error)
}

type pgAchievementRepository struct {
	db *sql.DB
}

func NewPgAchievementRepository(db *sql.DB) AchievementRepository {
	return &pgAchievementRepository{db: db}
}

const achievementColumns = `id, code, name, description, icon, condition, points, created_at`

func (r *pgAchievementRepository) ListAll(ctx context.Context) ([]model.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements ORDER BY points ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListAll: %w", err)
	}
	defer rows.Close()

	var achievements []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Icon, &a.Condition, &a.Points, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgAchievementRepository.ListAll: scan: %w", err)
		}
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListAll: rows: %w", err)
	}
	return achievements, nil
}

func (r *pgAchievementRepository) ListGrantedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	query := `SELECT achievement_id FROM user_achievements WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListGrantedIDs: %w", err)
	}
	defer rows.Close()

	granted := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgAchievementRepository.ListGrantedIDs: scan: %w", err)
		}
		granted[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListGrantedIDs: rows: %w", err)
	}
	return granted, nil
}

func (r *pgAchievementRepository) Grant(ctx context.Context, tx *sql.Tx, userID, achievementID string) (bool, error) {
	query := `INSERT INTO user_achievements (id, user_id, achievement_id)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, achievement_id) DO NOTHING`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, uuid.NewString(), userID, achievementID)
	} else {
		res, err = r.db.ExecContext(ctx, query, uuid.NewString(), userID, achievementID)
	}
	if err != nil {
		return false, fmt.Errorf("pgAchievementRepository.Grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgAchievementRepository.Grant: rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *pgAchievementRepository) ListEarned(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	query := `SELECT ua.id, ua.user_id, ua.achievement_id, ua.unlocked_at,
	                 a.id, a.code, a.name, a.description, a.icon, a.condition, a.points, a.created_at
	          FROM user_achievements ua
	          JOIN achievements a ON a.id = ua.achievement_id
	          WHERE ua.user_id = $1
	          ORDER BY ua.unlocked_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListEarned: %w", err)
	}
	defer rows.Close()

	var earned []model.UserAchievement
	for rows.Next() {
		var ua model.UserAchievement
		var a model.Achievement
		if err := rows.Scan(
			&ua.ID, &ua.UserID, &ua.AchievementID, &ua.UnlockedAt,
			&a.ID, &a.Code, &a.Name, &a.Description, &a.Icon, &a.Condition, &a.Points, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgAchievementRepository.ListEarned: scan: %w", err)
		}
		ua.Achievement = &a
		earned = append(earned, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListEarned: rows: %w", err)
	}
	return earned, nil
}

func (r *pgAchievementRepository) ListWithStatus(ctx context.Context, userID string) ([]model.AchievementStatus, error) {
	query := `SELECT a.id, a.code, a.name, a.description, a.icon, a.condition, a.points, a.created_at,
	                 ua.unlocked_at
	          FROM achievements a
	          LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = $1
	          ORDER BY a.points ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListWithStatus: %w", err)
	}
	defer rows.Close()

	var statuses []model.AchievementStatus
	for rows.Next() {
		var s model.AchievementStatus
		if err := rows.Scan(
			&s.ID, &s.Code, &s.Name, &s.Description, &s.Icon, &s.Condition, &s.Points, &s.CreatedAt,
			&s.UnlockedAt,
		); err != nil {
			return nil, fmt.Errorf("pgAchievementRepository.ListWithStatus: scan: %w", err)
		}
		s.Unlocked = s.UnlockedAt != nil
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListWithStatus: rows: %w", err)
	}
	return statuses, nil
}
