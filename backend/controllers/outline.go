package controllers

import (
	"context"
	"fmt"
	"strconv"

	"academy/backend/models"
	"academy/backend/services/quiz"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type LessonItem struct {
	ID         uint   `json:"id"`
	ChapterID  uint   `json:"chapter_id"`
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	OrderIndex int    `json:"order_index"`
	IsFree     bool   `json:"is_free"`
	Completed  bool   `json:"completed"`
	Locked     bool   `json:"locked"`
	Path       string `json:"path"`
}

type ChapterItem struct {
	ID               uint         `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	OrderIndex       int          `json:"order_index"`
	CompletedLessons int          `json:"completed_lessons"`
	Lessons          []LessonItem `json:"lessons"`
}

type CourseOutline struct {
	ID               uint          `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	ThumbnailURL     string        `json:"thumbnail_url"`
	TotalLessons     int           `json:"total_lessons"`
	CompletedLessons int           `json:"completed_lessons"`
	Progress         float64       `json:"progress"`
	Chapters         []ChapterItem `json:"chapters"`
}

func lessonPath(chapterID, lessonID uint) string {
	return fmt.Sprintf("/course/%d/%d", chapterID, lessonID)
}

func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+param)
	}
	return uint(id), nil
}

// loadCourseTree loads an active course with its active chapters and their
// lessons, both in display order.
func loadCourseTree(ctx context.Context, db *gorm.DB, courseID uint) (*models.Course, error) {
	var course models.Course
	err := db.WithContext(ctx).
		Preload("Chapters", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_active = ?", true).Order("order_index, id")
		}).
		Preload("Chapters.Lessons", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("order_index, id")
		}).
		Where("is_active = ?", true).
		First(&course, courseID).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// defaultCourseID is the first active course; the site shows one course at
// a time.
func defaultCourseID(ctx context.Context, db *gorm.DB) (uint, error) {
	var course models.Course
	err := db.WithContext(ctx).Select("id").Where("is_active = ?", true).Order("id").First(&course).Error
	if err != nil {
		return 0, err
	}
	return course.ID, nil
}

// buildOutline flattens the course in viewing order and decides which
// lessons are open. A lesson is open when it is free, first, already done,
// follows a completed lesson, or the viewer is an admin.
func buildOutline(course *models.Course, completed map[uint]bool, isAdmin bool) CourseOutline {
	out := CourseOutline{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		ThumbnailURL: course.ThumbnailURL,
	}

	prevDone := true
	for _, ch := range course.Chapters {
		item := ChapterItem{
			ID:          ch.ID,
			Title:       ch.Title,
			Description: ch.Description,
			OrderIndex:  ch.OrderIndex,
			Lessons:     make([]LessonItem, 0, len(ch.Lessons)),
		}
		for _, l := range ch.Lessons {
			done := completed[l.ID]
			item.Lessons = append(item.Lessons, LessonItem{
				ID:         l.ID,
				ChapterID:  ch.ID,
				Title:      l.Title,
				Duration:   l.Duration,
				OrderIndex: l.OrderIndex,
				IsFree:     l.IsFree,
				Completed:  done,
				Locked:     !(isAdmin || l.IsFree || done || prevDone),
				Path:       lessonPath(ch.ID, l.ID),
			})
			if done {
				item.CompletedLessons++
			}
			prevDone = done
		}
		out.TotalLessons += len(item.Lessons)
		out.CompletedLessons += item.CompletedLessons
		out.Chapters = append(out.Chapters, item)
	}
	if out.TotalLessons > 0 {
		out.Progress = float64(out.CompletedLessons) / float64(out.TotalLessons) * 100
	}
	return out
}

// Sequence returns the lessons in viewing order.
func (o CourseOutline) Sequence() []LessonItem {
	var seq []LessonItem
	for _, ch := range o.Chapters {
		seq = append(seq, ch.Lessons...)
	}
	return seq
}

// Neighbours finds a lesson and the lessons before and after it.
func (o CourseOutline) Neighbours(lessonID uint) (prev, cur, next *LessonItem) {
	seq := o.Sequence()
	for i := range seq {
		if seq[i].ID != lessonID {
			continue
		}
		cur = &seq[i]
		if i > 0 {
			prev = &seq[i-1]
		}
		if i+1 < len(seq) {
			next = &seq[i+1]
		}
		return prev, cur, next
	}
	return nil, nil, nil
}

// NextUp is the first open lesson that is not completed yet.
func (o CourseOutline) NextUp() *LessonItem {
	for _, l := range o.Sequence() {
		if !l.Completed && !l.Locked {
			return &l
		}
	}
	return nil
}

func toQuizQuestions(rows []models.Question) ([]quiz.Question, error) {
	out := make([]quiz.Question, 0, len(rows))
	for _, q := range rows {
		var options []string
		if len(q.Options) > 0 {
			if err := sonic.Unmarshal(q.Options, &options); err != nil {
				return nil, errors.Wrapf(err, "question %d options", q.ID)
			}
		}
		if q.Type == models.QuestionTrueFalse && len(options) == 0 {
			options = []string{"true", "false"}
		}
		out = append(out, quiz.Question{
			ID:            q.ID,
			Type:          q.Type,
			Prompt:        q.Question,
			Options:       options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Points:        q.Points,
		})
	}
	return out, nil
}

func publicQuestions(questions []quiz.Question) []quiz.PublicQuestion {
	out := make([]quiz.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, quiz.PublicQuestion{
			ID:      q.ID,
			Type:    q.Type,
			Prompt:  q.Prompt,
			Options: q.Options,
			Points:  q.Points,
		})
	}
	return out
}

func loadQuestions(ctx context.Context, db *gorm.DB, lessonID uint) ([]quiz.Question, error) {
	var rows []models.Question
	err := db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("order_index, id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load questions")
	}
	return toQuizQuestions(rows)
}
