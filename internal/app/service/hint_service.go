package service

import (
	"context"
	"fmt"

	"nagukpo_backend/internal/common"
	"nagukpo_backend/internal/domain/model"
	"nagukpo_backend/internal/domain/repository"
	"nagukpo_backend/internal/platform/config"
	"nagukpo_backend/internal/platform/llm"
)

// Hint levels escalate from a nudge to a near-walkthrough. The answer itself
// is never revealed.
const (
	HintLevelNudge       = 1
	HintLevelConcept     = 2
	HintLevelWalkthrough = 3
)

var hintInstructions = map[int]string{
	HintLevelNudge:       "문제를 풀기 위해 주목해야 할 부분을 한 문장으로만 짚어 주세요. 정답은 절대 알려주지 마세요.",
	HintLevelConcept:     "이 문제를 풀기 위해 필요한 문법이나 어휘 개념을 간단한 예시와 함께 설명해 주세요. 정답은 절대 알려주지 마세요.",
	HintLevelWalkthrough: "정답 직전까지 단계별로 풀이 과정을 안내해 주세요. 마지막 단계와 정답은 학습자가 스스로 찾도록 남겨 두세요.",
}

const hintSystemPrompt = `당신은 한국어 학습 문제의 힌트를 주는 AI 튜터입니다. 요청된 힌트 수준에 맞추어 답하고, 어떤 경우에도 정답을 직접 말하지 마세요.`

type HintService struct {
	problemRepo repository.ProblemRepository
	llm         llm.Client
}

func NewHintService(problemRepo repository.ProblemRepository, llmClient llm.Client) *HintService {
	return &HintService{problemRepo: problemRepo, llm: llmClient}
}

type HintResponse struct {
	ProblemID string `json:"problem_id"`
	Level     int    `json:"level"`
	Hint      string `json:"hint"`
}

func (s *HintService) Hint(ctx context.Context, problemID string, level int) (*HintResponse, error) {
	instruction, ok := hintInstructions[level]
	if !ok {
		return nil, fmt.Errorf("hint level must be 1, 2 or 3: %w", common.ErrValidation)
	}

	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	completion, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: hintSystemPrompt},
			{Role: llm.RoleUser, Content: renderHintPrompt(problem, instruction)},
		},
		Temperature: 0.5,
		MaxTokens:   config.AppConfig.HintMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("hint completion failed: %v: %w", err, common.ErrServiceUnavailable)
	}

	return &HintResponse{ProblemID: problemID, Level: level, Hint: completion.Content}, nil
}

func renderHintPrompt(p *model.Problem, instruction string) string {
	prompt := fmt.Sprintf("문제 (레벨 %d, %s): %s\n", p.Level, p.Type, p.Question)
	if p.Passage != nil && *p.Passage != "" {
		prompt += "지문: " + *p.Passage + "\n"
	}
	for i, opt := range p.Options {
		prompt += fmt.Sprintf("%d) %s\n", i+1, opt)
	}
	prompt += "\n" + instruction
	return prompt
}
