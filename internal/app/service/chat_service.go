package service

import (
	"context"
	"fmt"
	"strings"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/llm"
	"nagukpo_backend/internal/platform/logger"
)

const maxChatMessageLength = 2000

type ChatService struct {
	rag      *RAGService
	chatRepo repository.ChatMessageRepository
	log      *logger.Logger
}

func NewChatService(rag *RAGService, chatRepo repository.ChatMessageRepository, log *logger.Logger) *ChatService {
	return &ChatService{rag: rag, chatRepo: chatRepo, log: log}
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

// ChatTurn is one prior exchange supplied by the client. When the client
// sends its own history it wins over the stored one, so a fresh tab or an
// anonymous trial session still converses coherently.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat answers a question with retrieval context and conversation history,
// then persists the exchange. Persistence failure is logged but does not
// fail the response; the answer was already produced.
func (s *ChatService) Chat(ctx context.Context, userID, message string, clientHistory []ChatTurn) (*ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message is required: %w", common.ErrBadRequest)
	}
	if len(message) > maxChatMessageLength {
		return nil, fmt.Errorf("message too long: %w", common.ErrValidation)
	}

	var history []llm.Message
	if len(clientHistory) > 0 {
		history = make([]llm.Message, 0, len(clientHistory))
		for _, turn := range clientHistory {
			role := llm.RoleUser
			if turn.Role == model.ChatRoleAssistant {
				role = llm.RoleAssistant
			}
			history = append(history, llm.Message{Role: role, Content: turn.Content})
		}
	} else {
		recent, err := s.chatRepo.ListRecent(ctx, userID, historyWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to load chat history: %w", err)
		}

		// ListRecent returns newest-first; the model wants oldest-first.
		history = make([]llm.Message, 0, len(recent))
		for i := len(recent) - 1; i >= 0; i-- {
			role := llm.RoleUser
			if recent[i].Role == model.ChatRoleAssistant {
				role = llm.RoleAssistant
			}
			history = append(history, llm.Message{Role: role, Content: recent[i].Content})
		}
	}

	answer, err := s.rag.Answer(ctx, message, history)
	if err != nil {
		return nil, err
	}

	if err := s.chatRepo.CreatePair(ctx, userID, message, answer); err != nil {
		s.log.Error("Failed to persist chat exchange", "userID", userID, "error", err)
	}

	return &ChatResponse{Answer: answer}, nil
}

// History returns the user's recent messages oldest-first.
func (s *ChatService) History(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	messages, err := s.chatRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	return s.chatRepo.DeleteByUser(ctx, userID)
}
