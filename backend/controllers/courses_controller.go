package controllers

import (
	"errors"

	"academy/backend/config"
	"academy/backend/models"
	"academy/backend/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CoursesController manages the course catalogue for admins: courses,
// chapters, lessons and quiz questions.
type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

type CourseInput struct {
	Title        *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitempty,url"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	IsActive     *bool    `json:"is_active"`
}

type ChapterInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

type LessonInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url" validate:"omitempty,url"`
	Duration    *int    `json:"duration" validate:"omitempty,gte=0"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,gte=0"`
	IsFree      *bool   `json:"is_free"`
	Notes       *string `json:"notes"`
	Tips        *string `json:"tips"`
}

type QuestionInput struct {
	Type          *string  `json:"type" validate:"omitempty,oneof=multiple_choice true_false text"`
	Question      *string  `json:"question" validate:"omitempty,min=1"`
	Options       []string `json:"options" validate:"omitempty,dive,required"`
	CorrectAnswer *string  `json:"correct_answer" validate:"omitempty,min=1"`
	Explanation   *string  `json:"explanation"`
	Points        *int     `json:"points" validate:"omitempty,gte=1"`
	OrderIndex    *int     `json:"order_index" validate:"omitempty,gte=0"`
}

func (in CourseInput) apply(course *models.Course) {
	if in.Title != nil {
		course.Title = *in.Title
	}
	if in.Description != nil {
		course.Description = *in.Description
	}
	if in.ThumbnailURL != nil {
		course.ThumbnailURL = *in.ThumbnailURL
	}
	if in.Price != nil {
		course.Price = *in.Price
	}
	if in.IsActive != nil {
		course.IsActive = *in.IsActive
	}
}

func (in ChapterInput) apply(ch *models.Chapter) {
	if in.Title != nil {
		ch.Title = *in.Title
	}
	if in.Description != nil {
		ch.Description = *in.Description
	}
	if in.OrderIndex != nil {
		ch.OrderIndex = *in.OrderIndex
	}
	if in.IsActive != nil {
		ch.IsActive = *in.IsActive
	}
}

func (in LessonInput) apply(l *models.Lesson) {
	if in.Title != nil {
		l.Title = *in.Title
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.VideoURL != nil {
		l.VideoURL = *in.VideoURL
	}
	if in.Duration != nil {
		l.Duration = *in.Duration
	}
	if in.OrderIndex != nil {
		l.OrderIndex = *in.OrderIndex
	}
	if in.IsFree != nil {
		l.IsFree = *in.IsFree
	}
	if in.Notes != nil {
		l.Notes = *in.Notes
	}
	if in.Tips != nil {
		l.Tips = *in.Tips
	}
}

func (in QuestionInput) apply(q *models.Question) error {
	if in.Type != nil {
		q.Type = *in.Type
	}
	if in.Question != nil {
		q.Question = *in.Question
	}
	if in.Options != nil {
		raw, err := sonic.Marshal(in.Options)
		if err != nil {
			return err
		}
		q.Options = datatypes.JSON(raw)
	}
	if in.CorrectAnswer != nil {
		q.CorrectAnswer = *in.CorrectAnswer
	}
	if in.Explanation != nil {
		q.Explanation = *in.Explanation
	}
	if in.Points != nil {
		q.Points = *in.Points
	}
	if in.OrderIndex != nil {
		q.OrderIndex = *in.OrderIndex
	}
	return nil
}

// checkQuestion makes sure the stored answer can actually be given.
func checkQuestion(q *models.Question) map[string]string {
	fields := map[string]string{}
	if q.Type == "" {
		q.Type = models.QuestionMultipleChoice
	}
	switch q.Type {
	case models.QuestionMultipleChoice:
		var options []string
		if len(q.Options) > 0 {
			_ = sonic.Unmarshal(q.Options, &options)
		}
		if len(options) < 2 {
			fields["options"] = "options must have at least 2 items"
			break
		}
		found := false
		for _, o := range options {
			if o == q.CorrectAnswer {
				found = true
			}
		}
		if !found {
			fields["correct_answer"] = "correct_answer must be one of the options"
		}
	case models.QuestionTrueFalse:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			fields["correct_answer"] = "correct_answer must be true or false"
		}
	}
	if q.Question == "" {
		fields["question"] = "question is a required field"
	}
	if q.CorrectAnswer == "" {
		fields["correct_answer"] = "correct_answer is a required field"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	}
	return err
}

// ListCourses godoc
// @Summary Full course tree for the content editor
// @Description Includes inactive courses and chapters and every question with its answer.
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/admin/courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	var courses []models.Course
	err := cc.DB.WithContext(c.UserContext()).
		Preload("Chapters", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index, id") }).
		Preload("Chapters.Lessons", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index, id") }).
		Preload("Chapters.Lessons.Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index, id") }).
		Order("id").
		Find(&courses).Error
	if err != nil {
		return err
	}
	return utils.OK(c, courses)
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input CourseInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if input.Title == nil {
		return utils.ValidationError(c, map[string]string{"title": "title is a required field"})
	}

	course := models.Course{IsActive: true}
	input.apply(&course)
	if err := cc.DB.WithContext(c.UserContext()).Create(&course).Error; err != nil {
		return err
	}
	return utils.Created(c, course)
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input CourseInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var course models.Course
	if err := cc.DB.WithContext(c.UserContext()).First(&course, id).Error; err != nil {
		return notFound(err, "Course")
	}
	input.apply(&course)
	if err := cc.DB.WithContext(c.UserContext()).Save(&course).Error; err != nil {
		return err
	}
	return utils.OK(c, course)
}

// DeleteCourse removes a course with its chapters, lessons, questions and
// the progress recorded against those lessons.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.First(&course, id).Error; err != nil {
			return notFound(err, "Course")
		}
		var chapterIDs []uint
		if err := tx.Model(&models.Chapter{}).Where("course_id = ?", id).Pluck("id", &chapterIDs).Error; err != nil {
			return err
		}
		if err := deleteChapters(tx, chapterIDs); err != nil {
			return err
		}
		return tx.Delete(&course).Error
	})
	if err != nil {
		return err
	}
	return utils.NoContent(c)
}

func deleteChapters(tx *gorm.DB, chapterIDs []uint) error {
	if len(chapterIDs) == 0 {
		return nil
	}
	var lessonIDs []uint
	if err := tx.Model(&models.Lesson{}).Where("chapter_id IN ?", chapterIDs).Pluck("id", &lessonIDs).Error; err != nil {
		return err
	}
	if err := deleteLessons(tx, lessonIDs); err != nil {
		return err
	}
	return tx.Where("id IN ?", chapterIDs).Delete(&models.Chapter{}).Error
}

func deleteLessons(tx *gorm.DB, lessonIDs []uint) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.Question{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("lesson_id IN ?", lessonIDs).Delete(&models.UserProgress{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", lessonIDs).Delete(&models.Lesson{}).Error
}

func (cc *CoursesController) CreateChapter(c *fiber.Ctx) error {
	courseID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input ChapterInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if input.Title == nil {
		return utils.ValidationError(c, map[string]string{"title": "title is a required field"})
	}

	db := cc.DB.WithContext(c.UserContext())
	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		return notFound(err, "Course")
	}

	chapter := models.Chapter{CourseID: courseID, IsActive: true}
	if input.OrderIndex == nil {
		var count int64
		db.Model(&models.Chapter{}).Where("course_id = ?", courseID).Count(&count)
		chapter.OrderIndex = int(count)
	}
	input.apply(&chapter)
	if err := db.Create(&chapter).Error; err != nil {
		return err
	}
	return utils.Created(c, chapter)
}

func (cc *CoursesController) UpdateChapter(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input ChapterInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var chapter models.Chapter
	if err := cc.DB.WithContext(c.UserContext()).First(&chapter, id).Error; err != nil {
		return notFound(err, "Chapter")
	}
	input.apply(&chapter)
	if err := cc.DB.WithContext(c.UserContext()).Save(&chapter).Error; err != nil {
		return err
	}
	return utils.OK(c, chapter)
}

func (cc *CoursesController) DeleteChapter(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var chapter models.Chapter
		if err := tx.First(&chapter, id).Error; err != nil {
			return notFound(err, "Chapter")
		}
		return deleteChapters(tx, []uint{chapter.ID})
	})
	if err != nil {
		return err
	}
	return utils.NoContent(c)
}

func (cc *CoursesController) CreateLesson(c *fiber.Ctx) error {
	chapterID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input LessonInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if input.Title == nil {
		return utils.ValidationError(c, map[string]string{"title": "title is a required field"})
	}

	db := cc.DB.WithContext(c.UserContext())
	var chapter models.Chapter
	if err := db.First(&chapter, chapterID).Error; err != nil {
		return notFound(err, "Chapter")
	}

	lesson := models.Lesson{ChapterID: chapterID}
	if input.OrderIndex == nil {
		var count int64
		db.Model(&models.Lesson{}).Where("chapter_id = ?", chapterID).Count(&count)
		lesson.OrderIndex = int(count)
	}
	input.apply(&lesson)
	if err := db.Create(&lesson).Error; err != nil {
		return err
	}
	return utils.Created(c, lesson)
}

func (cc *CoursesController) UpdateLesson(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input LessonInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var lesson models.Lesson
	if err := cc.DB.WithContext(c.UserContext()).First(&lesson, id).Error; err != nil {
		return notFound(err, "Lesson")
	}
	input.apply(&lesson)
	if err := cc.DB.WithContext(c.UserContext()).Save(&lesson).Error; err != nil {
		return err
	}
	return utils.OK(c, lesson)
}

func (cc *CoursesController) DeleteLesson(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var lesson models.Lesson
		if err := tx.First(&lesson, id).Error; err != nil {
			return notFound(err, "Lesson")
		}
		return deleteLessons(tx, []uint{lesson.ID})
	})
	if err != nil {
		return err
	}
	return utils.NoContent(c)
}

// ListQuestions returns a lesson's questions including correct answers.
func (cc *CoursesController) ListQuestions(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var questions []models.Question
	err = cc.DB.WithContext(c.UserContext()).
		Where("lesson_id = ?", lessonID).
		Order("order_index, id").
		Find(&questions).Error
	if err != nil {
		return err
	}
	return utils.OK(c, questions)
}

func (cc *CoursesController) CreateQuestion(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input QuestionInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	db := cc.DB.WithContext(c.UserContext())
	var lesson models.Lesson
	if err := db.First(&lesson, lessonID).Error; err != nil {
		return notFound(err, "Lesson")
	}

	question := models.Question{LessonID: lessonID, Points: 1}
	if input.OrderIndex == nil {
		var count int64
		db.Model(&models.Question{}).Where("lesson_id = ?", lessonID).Count(&count)
		question.OrderIndex = int(count)
	}
	if err := input.apply(&question); err != nil {
		return err
	}
	if fields := checkQuestion(&question); fields != nil {
		return utils.ValidationError(c, fields)
	}
	if err := db.Create(&question).Error; err != nil {
		return err
	}
	return utils.Created(c, question)
}

func (cc *CoursesController) UpdateQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input QuestionInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var question models.Question
	if err := cc.DB.WithContext(c.UserContext()).First(&question, id).Error; err != nil {
		return notFound(err, "Question")
	}
	if err := input.apply(&question); err != nil {
		return err
	}
	if fields := checkQuestion(&question); fields != nil {
		return utils.ValidationError(c, fields)
	}
	if err := cc.DB.WithContext(c.UserContext()).Save(&question).Error; err != nil {
		return err
	}
	return utils.OK(c, question)
}

func (cc *CoursesController) DeleteQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	res := cc.DB.WithContext(c.UserContext()).Delete(&models.Question{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Question not found")
	}
	return utils.NoContent(c)
}
