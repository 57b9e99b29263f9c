package model

import (
	"time"
)

type ProblemDifficulty string
type ProblemType string

const (
	DifficultyEasy   ProblemDifficulty = "easy"
	DifficultyMedium ProblemDifficulty = "medium"
	DifficultyHard   ProblemDifficulty = "hard"

	TypeReading    ProblemType = "reading"
	TypeVocabulary ProblemType = "vocabulary"
	TypeGrammar    ProblemType = "grammar"
	TypeWriting    ProblemType = "writing"
)

// PointsForDifficulty is the award table for a first correct answer. An
// unrecognized difficulty falls back to the easy award rather than erroring.
func PointsForDifficulty(d ProblemDifficulty) int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 20
	case DifficultyHard:
		return 30
	default:
		return 10
	}
}

type Problem struct {
	ID          string            `json:"id"`
	Level       int               `json:"level"` // 1-4
	Type        ProblemType       `json:"type"`
	Difficulty  ProblemDifficulty `json:"difficulty"`
	Passage     *string           `json:"passage,omitempty"`
	Question    string            `json:"question"`
	Options     []string          `json:"options"`
	Answer      string            `json:"answer,omitempty"` // stripped in listings
	Explanation string            `json:"explanation,omitempty"`
	Source      string            `json:"source,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
