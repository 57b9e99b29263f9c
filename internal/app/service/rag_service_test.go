package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/platform/llm"
	"nagukpo_backend/internal/platform/logger"
	"nagukpo_backend/internal/platform/vector"
)

func TestRenderContextBlock(t *testing.T) {
	t.Run("empty contexts render nothing", func(t *testing.T) {
		if got := RenderContextBlock(nil); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("contexts include level, question, answer and similarity", func(t *testing.T) {
		block := RenderContextBlock([]RetrievedContext{
			{Level: 1, Type: "vocabulary", Question: "'사과'의 뜻은?", Answer: "apple", Similarity: 0.92},
		})
		for _, want := range []string{"레벨 1", "vocabulary", "'사과'의 뜻은?", "apple", "92%"} {
			if !strings.Contains(block, want) {
				t.Errorf("context block missing %q:\n%s", want, block)
			}
		}
	})
}

func TestRetrieve_FailuresSurfaceAsServiceUnavailable(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		llmClient := &fakeLLM{
			embedFn: func(ctx context.Context, input string) ([]float32, error) {
				return nil, errors.New("embedding backend down")
			},
		}
		s := NewRAGService(llmClient, &fakeIndex{}, logger.NewNop())
		contexts, err := s.Retrieve(context.Background(), "질문")
		if !errors.Is(err, common.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if contexts != nil {
			t.Errorf("expected nil contexts on embed failure, got %v", contexts)
		}
	})

	t.Run("vector query failure", func(t *testing.T) {
		index := &fakeIndex{
			queryFn: func(ctx context.Context, ns string, vec []float32, topK int) ([]vector.Match, error) {
				return nil, errors.New("index unavailable")
			},
		}
		s := NewRAGService(&fakeLLM{}, index, logger.NewNop())
		contexts, err := s.Retrieve(context.Background(), "질문")
		if !errors.Is(err, common.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if contexts != nil {
			t.Errorf("expected nil contexts on query failure, got %v", contexts)
		}
	})
}

func TestAnswer_FailedRetrievalAbortsChat(t *testing.T) {
	index := &fakeIndex{
		queryFn: func(ctx context.Context, ns string, vec []float32, topK int) ([]vector.Match, error) {
			return nil, errors.New("index unavailable")
		},
	}
	llmClient := &fakeLLM{}
	s := NewRAGService(llmClient, index, logger.NewNop())

	answer, err := s.Answer(context.Background(), "질문", nil)
	if !errors.Is(err, common.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if answer != "" {
		t.Errorf("expected empty answer when retrieval fails, got %q", answer)
	}
	if len(llmClient.completeCalls) != 0 {
		t.Error("completion must not run when retrieval failed")
	}
}

func TestAnswer_CompletionFailureIsServiceUnavailable(t *testing.T) {
	llmClient := &fakeLLM{
		completeFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			return nil, errors.New("model overloaded")
		},
	}
	s := NewRAGService(llmClient, &fakeIndex{}, logger.NewNop())

	_, err := s.Answer(context.Background(), "질문", nil)
	if !errors.Is(err, common.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestRetrieve_MapsMatches(t *testing.T) {
	index := &fakeIndex{
		queryFn: func(ctx context.Context, ns string, vec []float32, topK int) ([]vector.Match, error) {
			if topK != retrievalTopK {
				t.Errorf("topK = %d, want %d", topK, retrievalTopK)
			}
			return []vector.Match{
				{ID: "p1", Score: 0.95, Metadata: map[string]any{
					"level": float64(2), "type": "grammar", "question": "Q1", "answer": "A1",
				}},
			}, nil
		},
	}
	s := NewRAGService(&fakeLLM{}, index, logger.NewNop())

	contexts, err := s.Retrieve(context.Background(), "조사 '은/는'의 차이가 뭐예요?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected 1 context, got %d", len(contexts))
	}
	if contexts[0].Similarity != 0.95 {
		t.Errorf("similarity = %v, want 0.95", contexts[0].Similarity)
	}
	if contexts[0].Question != "Q1" {
		t.Errorf("question = %v, want Q1", contexts[0].Question)
	}
}

func TestAnswer_HistoryWindow(t *testing.T) {
	llmClient := &fakeLLM{}
	s := NewRAGService(llmClient, &fakeIndex{}, logger.NewNop())

	history := make([]llm.Message, 10)
	for i := range history {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		history[i] = llm.Message{Role: role, Content: strings.Repeat("x", i+1)}
	}

	if _, err := s.Answer(context.Background(), "질문입니다", history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := llmClient.completeCalls[0]
	// system + capped history + user question
	if len(req.Messages) != 1+historyWindow+1 {
		t.Fatalf("sent %d messages, want %d", len(req.Messages), 1+historyWindow+1)
	}
	if req.Messages[0].Role != llm.RoleSystem {
		t.Error("first message should be the system prompt")
	}
	// Only the most recent turns survive the cap.
	if req.Messages[1].Content != history[4].Content {
		t.Errorf("history window should keep the trailing %d turns", historyWindow)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser || !strings.Contains(last.Content, "질문입니다") {
		t.Error("last message should carry the user's question")
	}
}

func TestAnswer_TruncationHint(t *testing.T) {
	llmClient := &fakeLLM{
		completeFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Content: "긴 설명이", FinishReason: llm.FinishReasonLength}, nil
		},
	}
	s := NewRAGService(llmClient, &fakeIndex{}, logger.NewNop())

	answer, err := s.Answer(context.Background(), "설명해 주세요", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(answer, "계속") {
		t.Errorf("truncated answer should carry the continuation hint, got %q", answer)
	}

	t.Run("no hint on normal stop", func(t *testing.T) {
		llmClient.completeFn = func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Content: "완결된 답변", FinishReason: "stop"}, nil
		}
		answer, err := s.Answer(context.Background(), "설명해 주세요", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if answer != "완결된 답변" {
			t.Errorf("answer should pass through untouched, got %q", answer)
		}
	})
}

func TestAnswer_ContextFoldedIntoSystemPrompt(t *testing.T) {
	index := &fakeIndex{
		queryFn: func(ctx context.Context, ns string, vec []float32, topK int) ([]vector.Match, error) {
			return []vector.Match{
				{ID: "p1", Score: 0.9, Metadata: map[string]any{
					"level": float64(1), "type": "vocabulary", "question": "연관 문제", "answer": "정답",
				}},
			}, nil
		},
	}
	llmClient := &fakeLLM{}
	s := NewRAGService(llmClient, index, logger.NewNop())

	if _, err := s.Answer(context.Background(), "사과가 뭐예요?", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := llmClient.completeCalls[0]
	systemMsg := req.Messages[0]
	if systemMsg.Role != llm.RoleSystem {
		t.Fatal("first message should be the system prompt")
	}
	if !strings.Contains(systemMsg.Content, "연관 문제") {
		t.Error("retrieved problem should be folded into the system prompt")
	}
	userMsg := req.Messages[len(req.Messages)-1]
	if userMsg.Role != llm.RoleUser || userMsg.Content != "사과가 뭐예요?" {
		t.Errorf("user message should carry the bare question, got %q", userMsg.Content)
	}
}

func TestTutorSystemPrompt_ScopeAndLength(t *testing.T) {
	if !strings.Contains(tutorSystemPrompt, "한국어 학습에 관한 질문만") {
		t.Error("system prompt should restrict the tutor to language-learning questions")
	}
	if !strings.Contains(tutorSystemPrompt, "500자") {
		t.Error("system prompt should cap answers at 500 characters")
	}
}
