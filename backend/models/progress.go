package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress is keyed by (user_id, lesson_id); rows are written with upserts.
type UserProgress struct {
	gorm.Model
	UserID       uint       `gorm:"uniqueIndex:idx_user_lesson;not null" json:"user_id"`
	LessonID     uint       `gorm:"uniqueIndex:idx_user_lesson;not null" json:"lesson_id"`
	Completed    bool       `gorm:"default:false" json:"completed"`
	LastPosition int        `gorm:"default:0" json:"last_position"`
	WatchTime    int        `gorm:"default:0" json:"watch_time"`
	QuizScore    int        `gorm:"default:0" json:"quiz_score"`
	QuizAttempts int        `gorm:"default:0" json:"quiz_attempts"`
	CompletedAt  *time.Time `json:"completed_at"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&TokenBlacklist{},
		&Course{},
		&Chapter{},
		&Lesson{},
		&Question{},
		&UserProgress{},
	}
}
