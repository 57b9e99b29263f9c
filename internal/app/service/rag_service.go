package service

import (
	"context"
	"fmt"
	"strings"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/platform/config"
	"nagukpo_backend/internal/platform/llm"
	"nagukpo_backend/internal/platform/logger"
	"nagukpo_backend/internal/platform/vector"
)

const (
	// retrievalTopK bounds how many similar problems are folded into the
	// chat prompt.
	retrievalTopK = 3
	// historyWindow bounds how many prior turns are replayed to the model.
	historyWindow = 6
)

const tutorSystemPrompt = `당신은 한국어 학습을 돕는 친절한 AI 튜터입니다. 한국어 문법, 어휘, 읽기, 쓰기 등 한국어 학습에 관한 질문에만 답합니다. 학습과 관련 없는 질문에는 "저는 한국어 학습에 관한 질문만 도와드릴 수 있어요"라고 답하고 다른 주제는 다루지 마세요. 학습자의 수준에 맞추어 쉽고 명확하게 설명하고, 답을 바로 알려주기보다 학습자가 스스로 이해할 수 있도록 단계적으로 안내하세요. 답변은 500자 이내로 간결하게 작성하세요. 관련 문제 정보가 주어지면 그것을 참고하여 답변하세요.`

const continuationHint = "\n\n(답변이 길어 잘렸습니다. '계속'이라고 입력하면 이어서 설명합니다.)"

// RetrievedContext is one similar problem pulled from the vector index.
type RetrievedContext struct {
	Level      any
	Type       any
	Question   any
	Answer     any
	Similarity float64
}

// RAGService retrieves similar problems for a question and composes the
// prompt sent to the language model.
type RAGService struct {
	llm   llm.Client
	index vector.Index
	log   *logger.Logger
}

func NewRAGService(llmClient llm.Client, index vector.Index, log *logger.Logger) *RAGService {
	return &RAGService{llm: llmClient, index: index, log: log}
}

// Retrieve embeds the question and queries the problems namespace for the
// closest problems. Failures of either external call surface to the caller
// as a service-unavailable error; chat never answers on a half-working
// pipeline.
func (s *RAGService) Retrieve(ctx context.Context, question string) ([]RetrievedContext, error) {
	embedding, err := s.llm.Embed(ctx, question)
	if err != nil {
		s.log.Error("Question embedding failed", "error", err)
		return nil, fmt.Errorf("question embedding failed: %v: %w", err, common.ErrServiceUnavailable)
	}

	matches, err := s.index.Query(ctx, config.AppConfig.PineconeNamespace, embedding, retrievalTopK)
	if err != nil {
		s.log.Error("Vector query failed", "error", err)
		return nil, fmt.Errorf("vector query failed: %v: %w", err, common.ErrServiceUnavailable)
	}

	contexts := make([]RetrievedContext, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, RetrievedContext{
			Level:      m.Metadata["level"],
			Type:       m.Metadata["type"],
			Question:   m.Metadata["question"],
			Answer:     m.Metadata["answer"],
			Similarity: m.Score,
		})
	}
	return contexts, nil
}

// RenderContextBlock turns retrieved problems into the reference block
// appended to the system prompt.
func RenderContextBlock(contexts []RetrievedContext) string {
	if len(contexts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("참고할 수 있는 관련 문제:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "%d. [레벨 %v / %v] %v (정답: %v, 유사도: %.0f%%)\n",
			i+1, c.Level, c.Type, c.Question, c.Answer, c.Similarity*100)
	}
	return b.String()
}

// Answer runs the full pipeline: retrieve, compose, complete. History is
// oldest-first; only the trailing window is replayed. When the model stops
// for length, a continuation hint is appended so the user knows to ask for
// the rest.
func (s *RAGService) Answer(ctx context.Context, question string, history []llm.Message) (string, error) {
	contexts, err := s.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	systemContent := tutorSystemPrompt
	if block := RenderContextBlock(contexts); block != "" {
		systemContent += "\n\n" + block
	}

	messages := make([]llm.Message, 0, historyWindow+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemContent})

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	completion, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   config.AppConfig.ChatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %v: %w", err, common.ErrServiceUnavailable)
	}

	answer := completion.Content
	if completion.FinishReason == llm.FinishReasonLength {
		answer += continuationHint
	}
	return answer, nil
}
