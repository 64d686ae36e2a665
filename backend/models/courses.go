package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title        string    `gorm:"not null" json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Price        float64   `gorm:"default:0" json:"price"`
	IsActive     bool      `json:"is_active"`
	Chapters     []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	gorm.Model
	CourseID    uint     `gorm:"index;not null" json:"course_id"`
	Title       string   `gorm:"not null" json:"title"`
	Description string   `json:"description"`
	OrderIndex  int      `gorm:"default:0" json:"order_index"`
	IsActive    bool     `json:"is_active"`
	Lessons     []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	gorm.Model
	ChapterID   uint       `gorm:"index;not null" json:"chapter_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	VideoURL    string     `json:"video_url"`
	Duration    int        `gorm:"default:0" json:"duration"` // seconds
	OrderIndex  int        `gorm:"default:0" json:"order_index"`
	IsFree      bool       `json:"is_free"`
	Notes       string     `json:"notes"`
	Tips        string     `json:"tips"`
	Questions   []Question `json:"questions,omitempty"`
}

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionText           = "text"
)

type Question struct {
	gorm.Model
	LessonID      uint           `gorm:"index;not null" json:"lesson_id"`
	Type          string         `gorm:"default:multiple_choice" json:"type"`
	Question      string         `gorm:"not null" json:"question"`
	Options       datatypes.JSON `json:"options"`
	CorrectAnswer string         `gorm:"not null" json:"correct_answer"`
	Explanation   string         `json:"explanation"`
	Points        int            `gorm:"default:1" json:"points"`
	OrderIndex    int            `gorm:"default:0" json:"order_index"`
}
