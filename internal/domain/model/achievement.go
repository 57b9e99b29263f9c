package model

import (
	"encoding/json"
	"time"
)

// Achievement condition types. Conditions are stored as JSON documents on the
// achievement row; unknown types are treated as never satisfied.
const (
	ConditionProblemCount  = "problem_count"
	ConditionStreakDays    = "streak_days"
	ConditionLevelComplete = "level_complete"
	ConditionAccuracy      = "accuracy"
	ConditionTypeCount     = "type_count"
	ConditionDailyCount    = "daily_count"
	ConditionAllComplete   = "all_complete"
)

// AchievementCondition is the declarative rule attached to an achievement.
// Field names match the seeded condition documents.
type AchievementCondition struct {
	Type        string  `json:"type"`
	Count       int     `json:"count,omitempty"`
	Days        int     `json:"days,omitempty"`
	Level       int     `json:"level,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
	MinProblems int     `json:"minProblems,omitempty"`
	ProblemType string  `json:"problemType,omitempty"`
}

type Achievement struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Condition   json.RawMessage `json:"condition"`
	Points      int             `json:"points"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ParseCondition decodes the stored condition document.
func (a *Achievement) ParseCondition() (AchievementCondition, error) {
	var cond AchievementCondition
	err := json.Unmarshal(a.Condition, &cond)
	return cond, err
}

// UserAchievement records that a user satisfied an achievement's condition.
// At most one row exists per (user, achievement).
type UserAchievement struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`

	Achievement *Achievement `json:"achievement,omitempty"`
}

// AchievementStatus is an achievement annotated with the caller's unlock state.
type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
