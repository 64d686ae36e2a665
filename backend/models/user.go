package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	SubscriptionFree     = "free"
	SubscriptionPremium  = "premium"
	SubscriptionLifetime = "lifetime"
)

type User struct {
	gorm.Model
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	FullName           string     `json:"full_name"`
	AvatarURL          string     `json:"avatar_url"`
	PasswordHash       string     `gorm:"not null" json:"-"`
	Role               string     `gorm:"default:student" json:"role"`
	SubscriptionStatus string     `gorm:"default:free" json:"subscription_status"`
	LastSignInAt       *time.Time `json:"last_sign_in_at"`
}

// UserProfile holds per-user totals recomputed from user_progress.
type UserProfile struct {
	gorm.Model
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalWatchTime   int       `gorm:"default:0" json:"total_watch_time"`
	TotalPoints      int       `gorm:"default:0" json:"total_points"`
	LessonsCompleted int       `gorm:"default:0" json:"lessons_completed"`
	LastActiveAt     time.Time `json:"last_active_at"`
}

// TokenBlacklist records signed-out sessions until their natural expiry.
type TokenBlacklist struct {
	gorm.Model
	JTI       string    `gorm:"uniqueIndex;not null"`
	UserID    uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
}
