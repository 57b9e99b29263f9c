package model

import "time"

// Attempt is one recorded answer submission. The attempts table is an
// append-only log; AttemptCount is the ordinal of this attempt within the
// (user, problem) pair.
type Attempt struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProblemID    string    `json:"problem_id"`
	UserAnswer   string    `json:"user_answer"`
	IsCorrect    bool      `json:"is_correct"`
	TimeSpent    *int      `json:"time_spent,omitempty"` // seconds
	AttemptCount int       `json:"attempt_count"`
	AttemptedAt  time.Time `json:"attempted_at"`

	// Joined problem summary for recent-activity listings.
	ProblemLevel      *int               `json:"problem_level,omitempty"`
	ProblemType       *ProblemType       `json:"problem_type,omitempty"`
	ProblemDifficulty *ProblemDifficulty `json:"problem_difficulty,omitempty"`
	ProblemQuestion   *string            `json:"problem_question,omitempty"`
}

// LevelProgress summarizes distinct correctly-solved problems per level.
type LevelProgress struct {
	Level       int `json:"level"`
	SolvedCount int `json:"solved_count"`
	TotalCount  int `json:"total_count"`
}

// GroupStats is a per-type or per-difficulty accuracy row.
type GroupStats struct {
	Group           string  `json:"group"`
	TotalAttempts   int     `json:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts"`
	Accuracy        float64 `json:"accuracy"`
}
