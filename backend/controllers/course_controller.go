package controllers

import (
	"errors"

	"academy/backend/config"
	"academy/backend/middleware"
	"academy/backend/models"
	"academy/backend/repository"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CourseController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *repository.ProgressRepository
}

func NewCourseController(db *gorm.DB, cfg *config.Config, progress *repository.ProgressRepository) *CourseController {
	return &CourseController{DB: db, Cfg: cfg, Progress: progress}
}

type CourseSummary struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Price        float64 `json:"price"`
	Chapters     int64   `json:"chapters"`
	Lessons      int64   `json:"lessons"`
}

func activeCourseSummaries(db *gorm.DB) ([]CourseSummary, error) {
	var courses []models.Course
	if err := db.Where("is_active = ?", true).Order("id").Find(&courses).Error; err != nil {
		return nil, err
	}

	result := make([]CourseSummary, 0, len(courses))
	for _, course := range courses {
		s := CourseSummary{
			ID:           course.ID,
			Title:        course.Title,
			Description:  course.Description,
			ThumbnailURL: course.ThumbnailURL,
			Price:        course.Price,
		}
		db.Model(&models.Chapter{}).Where("course_id = ? AND is_active = ?", course.ID, true).Count(&s.Chapters)
		db.Model(&models.Lesson{}).
			Joins("JOIN chapters ON chapters.id = lessons.chapter_id AND chapters.deleted_at IS NULL").
			Where("chapters.course_id = ? AND chapters.is_active = ?", course.ID, true).
			Count(&s.Lessons)
		result = append(result, s)
	}
	return result, nil
}

// ListCourses godoc
// @Summary List active courses
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/courses [get]
func (cc *CourseController) ListCourses(c *fiber.Ctx) error {
	courses, err := activeCourseSummaries(cc.DB.WithContext(c.UserContext()))
	if err != nil {
		return err
	}
	return utils.OK(c, courses)
}

// GetCourse godoc
// @Summary Course outline for the current user
// @Description Chapters and lessons in order with completion and lock state.
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/courses/{id} [get]
func (cc *CourseController) GetCourse(c *fiber.Ctx) error {
	courseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	outline, err := cc.outline(c, courseID)
	if err != nil {
		return err
	}
	return utils.OK(c, outline)
}

func (cc *CourseController) outline(c *fiber.Ctx, courseID uint) (*CourseOutline, error) {
	course, err := loadCourseTree(c.UserContext(), cc.DB, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Course not found")
		}
		return nil, err
	}
	session := utils.CurrentSession(c)
	completed, err := cc.Progress.CompletedLessonIDs(c.UserContext(), session.UserID)
	if err != nil {
		return nil, err
	}
	outline := buildOutline(course, completed, middleware.IsAdmin(session, cc.Cfg))
	return &outline, nil
}

// defaultOutline is the outline of the course shown at /course.
func (cc *CourseController) defaultOutline(c *fiber.Ctx) (*CourseOutline, error) {
	courseID, err := defaultCourseID(c.UserContext(), cc.DB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return cc.outline(c, courseID)
}
