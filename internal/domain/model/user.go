package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ExperiencePerLevel is the amount of experience that advances a user one
// level. Level is always derived from experience, never set independently.
const ExperiencePerLevel = 100

type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	HashedPassword   string     `json:"-"` // Not exposed
	Role             string     `json:"role"`
	BirthYear        int        `json:"birth_year"`
	ParentEmail      *string    `json:"parent_email,omitempty"`
	Points           int        `json:"points"`
	ExperiencePoints int        `json:"experience_points"`
	Level            int        `json:"level"`
	StreakDays       int        `json:"streak_days"`
	LastStreakDate   *time.Time `json:"last_streak_date,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
