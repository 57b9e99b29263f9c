package repository

import (
	"context"
	"database/sql"
	"fmt"

	"nagukpo_backend/internal/domain/model"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// CreatePair stores a user turn and the assistant reply atomically so the
	// history never contains a question without its answer.
	CreatePair(ctx context.Context, userID, userMessage, assistantMessage string) error
	ListRecent(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type pgChatMessageRepository struct {
	db *sql.DB
}

func NewPgChatMessageRepository(db *sql.DB) ChatMessageRepository {
	return &pgChatMessageRepository{db: db}
}

func (r *pgChatMessageRepository) CreatePair(ctx context.Context, userID, userMessage, assistantMessage string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgChatMessageRepository.CreatePair: begin: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO chat_messages (id, user_id, role, content) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), userID, model.ChatRoleUser, userMessage); err != nil {
		return fmt.Errorf("pgChatMessageRepository.CreatePair: user turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), userID, model.ChatRoleAssistant, assistantMessage); err != nil {
		return fmt.Errorf("pgChatMessageRepository.CreatePair: assistant turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgChatMessageRepository.CreatePair: commit: %w", err)
	}
	return nil
}

func (r *pgChatMessageRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, user_id, role, content, created_at FROM chat_messages
	          WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgChatMessageRepository.ListRecent: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgChatMessageRepository.ListRecent: scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgChatMessageRepository.ListRecent: rows: %w", err)
	}
	return messages, nil
}

func (r *pgChatMessageRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("pgChatMessageRepository.DeleteByUser: %w", err)
	}
	return nil
}
