package controllers

import (
	"context"
	"errors"
	"time"

	"academy/backend/config"
	"academy/backend/jobs"
	"academy/backend/middleware"
	"academy/backend/models"
	"academy/backend/repository"
	"academy/backend/services/tracker"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LessonController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *repository.ProgressRepository
	Jobs     jobs.Dispatcher
	Log      *utils.Logger
}

func NewLessonController(db *gorm.DB, cfg *config.Config, progress *repository.ProgressRepository, dispatcher jobs.Dispatcher, log *utils.Logger) *LessonController {
	return &LessonController{DB: db, Cfg: cfg, Progress: progress, Jobs: dispatcher, Log: log}
}

// lessonContext is a lesson as seen by one viewer, with its place in the course.
type lessonContext struct {
	Lesson  models.Lesson
	Chapter models.Chapter
	Outline CourseOutline
	Prev    *LessonItem
	Current *LessonItem
	Next    *LessonItem
}

// loadLessonContext finds the lesson and refuses it when it is still locked
// for the viewer.
func loadLessonContext(ctx context.Context, db *gorm.DB, progress *repository.ProgressRepository, lessonID uint, session *utils.Session, isAdmin bool) (*lessonContext, error) {
	var lc lessonContext
	if err := db.WithContext(ctx).First(&lc.Lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Lesson not found")
		}
		return nil, err
	}
	if err := db.WithContext(ctx).First(&lc.Chapter, lc.Lesson.ChapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Chapter not found")
		}
		return nil, err
	}
	course, err := loadCourseTree(ctx, db, lc.Chapter.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Course not found")
		}
		return nil, err
	}

	completed, err := progress.CompletedLessonIDs(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	lc.Outline = buildOutline(course, completed, isAdmin)
	lc.Prev, lc.Current, lc.Next = lc.Outline.Neighbours(lessonID)
	if lc.Current == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Lesson not found")
	}
	if lc.Current.Locked {
		return nil, fiber.NewError(fiber.StatusForbidden, "Lesson is locked")
	}
	return &lc, nil
}

func (lc *LessonController) resolve(c *fiber.Ctx) (*lessonContext, error) {
	lessonID, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	session := utils.CurrentSession(c)
	return loadLessonContext(c.UserContext(), lc.DB, lc.Progress, lessonID, session, middleware.IsAdmin(session, lc.Cfg))
}

func progressPayload(row *models.UserProgress, resumeThreshold time.Duration) fiber.Map {
	if row == nil {
		return fiber.Map{
			"completed":     false,
			"last_position": 0,
			"watch_time":    0,
			"quiz_score":    0,
			"quiz_attempts": 0,
			"completed_at":  nil,
			"resume_at":     0,
		}
	}
	return fiber.Map{
		"completed":     row.Completed,
		"last_position": row.LastPosition,
		"watch_time":    row.WatchTime,
		"quiz_score":    row.QuizScore,
		"quiz_attempts": row.QuizAttempts,
		"completed_at":  row.CompletedAt,
		"resume_at":     tracker.ResumeAt(row.LastPosition, resumeThreshold),
	}
}

// lessonView is the payload of the lesson page.
func (lc *LessonController) lessonView(ctx context.Context, v *lessonContext, userID uint) (fiber.Map, error) {
	questions, err := loadQuestions(ctx, lc.DB, v.Lesson.ID)
	if err != nil {
		return nil, err
	}
	row, err := lc.Progress.Get(ctx, userID, v.Lesson.ID)
	if err != nil {
		return nil, err
	}

	var siblings []LessonItem
	for _, ch := range v.Outline.Chapters {
		if ch.ID == v.Chapter.ID {
			siblings = ch.Lessons
		}
	}

	return fiber.Map{
		"lesson": fiber.Map{
			"id":          v.Lesson.ID,
			"chapter_id":  v.Lesson.ChapterID,
			"title":       v.Lesson.Title,
			"description": v.Lesson.Description,
			"video_url":   v.Lesson.VideoURL,
			"duration":    v.Lesson.Duration,
			"is_free":     v.Lesson.IsFree,
			"notes":       v.Lesson.Notes,
			"tips":        v.Lesson.Tips,
		},
		"chapter": fiber.Map{
			"id":      v.Chapter.ID,
			"title":   v.Chapter.Title,
			"lessons": siblings,
		},
		"questions": publicQuestions(questions),
		"progress":  progressPayload(row, lc.Cfg.ResumeThreshold),
		"previous":  v.Prev,
		"next":      v.Next,
		"tracking": fiber.Map{
			"interval_seconds":      int(lc.Cfg.CheckpointInterval.Seconds()),
			"completion_percentage": lc.Cfg.CompletionPercentage,
		},
	}, nil
}

// GetLesson godoc
// @Summary Lesson viewer payload
// @Description Lesson content, quiz questions without answers, stored progress and neighbouring lessons.
// @Tags lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/lessons/{id} [get]
func (lc *LessonController) GetLesson(c *fiber.Ctx) error {
	v, err := lc.resolve(c)
	if err != nil {
		return err
	}
	view, err := lc.lessonView(c.UserContext(), v, utils.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.OK(c, view)
}

func (lc *LessonController) GetProgress(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	row, err := lc.Progress.Get(c.UserContext(), utils.CurrentUserID(c), lessonID)
	if err != nil {
		return err
	}
	return utils.OK(c, progressPayload(row, lc.Cfg.ResumeThreshold))
}

type CheckpointInput struct {
	CurrentTime float64 `json:"current_time" validate:"gte=0"`
	WatchTime   int     `json:"watch_time" validate:"gte=0"`
	// Duration overrides the stored lesson duration when the player knows better.
	Duration float64 `json:"duration" validate:"gte=0"`
}

// SaveProgress godoc
// @Summary Store a playback checkpoint
// @Description Upserts position and watch time. The lesson counts as completed once 90% of it has been watched.
// @Tags lessons
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param request body CheckpointInput true "Checkpoint"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/lessons/{id}/progress [put]
func (lc *LessonController) SaveProgress(c *fiber.Ctx) error {
	v, err := lc.resolve(c)
	if err != nil {
		return err
	}
	var input CheckpointInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	duration := input.Duration
	if duration <= 0 {
		duration = float64(v.Lesson.Duration)
	}
	pct, completed := tracker.Evaluate(input.CurrentTime, duration, lc.Cfg.CompletionPercentage)

	userID := utils.CurrentUserID(c)
	cp := tracker.Checkpoint{
		UserID:     userID,
		LessonID:   v.Lesson.ID,
		Position:   int(input.CurrentTime),
		WatchTime:  input.WatchTime,
		Percentage: pct,
		Completed:  completed,
		At:         time.Now(),
	}
	if err := lc.Progress.SaveCheckpoint(c.UserContext(), cp); err != nil {
		return err
	}
	wasCompleted := v.Current != nil && v.Current.Completed
	if completed || wasCompleted {
		lc.refreshProfile(c.UserContext(), userID)
	}

	return utils.OK(c, fiber.Map{
		"position":   cp.Position,
		"watch_time": cp.WatchTime,
		"percentage": pct,
		"completed":  completed,
	})
}

type CompleteInput struct {
	WatchTime *int `json:"watch_time" validate:"omitempty,gte=0"`
}

// Complete marks the lesson as done regardless of position.
func (lc *LessonController) Complete(c *fiber.Ctx) error {
	v, err := lc.resolve(c)
	if err != nil {
		return err
	}
	var input CompleteInput
	if len(c.Body()) > 0 {
		if ok, err := utils.ParseAndValidate(c, &input); !ok {
			return err
		}
	}

	userID := utils.CurrentUserID(c)
	if err := lc.Progress.MarkComplete(c.UserContext(), userID, v.Lesson.ID, input.WatchTime, time.Now()); err != nil {
		return err
	}
	lc.refreshProfile(c.UserContext(), userID)
	if v.Next != nil {
		v.Next.Locked = false
	}

	row, err := lc.Progress.Get(c.UserContext(), userID, v.Lesson.ID)
	if err != nil {
		return err
	}
	return utils.OK(c, fiber.Map{
		"progress": progressPayload(row, lc.Cfg.ResumeThreshold),
		"next":     v.Next,
	})
}

func (lc *LessonController) refreshProfile(ctx context.Context, userID uint) {
	if err := lc.Jobs.EnqueueProfileRefresh(ctx, userID); err != nil {
		lc.Log.Error(err, "enqueue profile refresh user=%d", userID)
	}
}
