package controllers

import (
	"context"
	"errors"
	"time"

	"academy/backend/config"
	"academy/backend/jobs"
	"academy/backend/middleware"
	"academy/backend/repository"
	"academy/backend/services/quiz"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type QuizController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *repository.ProgressRepository
	Jobs     jobs.Dispatcher
	Attempts *quiz.Registry
	Log      *utils.Logger
	// Clock is nil outside tests.
	Clock quiz.Clock
}

func NewQuizController(db *gorm.DB, cfg *config.Config, progress *repository.ProgressRepository, dispatcher jobs.Dispatcher, attempts *quiz.Registry, log *utils.Logger) *QuizController {
	return &QuizController{DB: db, Cfg: cfg, Progress: progress, Jobs: dispatcher, Attempts: attempts, Log: log}
}

// onPassed persists a passed attempt with the points it earned. It may run on the timer goroutine,
// after the request that started the quiz has finished.
func (qc *QuizController) onPassed(userID, lessonID uint) func(quiz.Outcome) {
	return func(out quiz.Outcome) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := qc.Progress.SaveQuizResult(ctx, userID, lessonID, out.Score, time.Now()); err != nil {
			qc.Log.Error(err, "save quiz result user=%d lesson=%d", userID, lessonID)
			return
		}
		if err := qc.Jobs.EnqueueProfileRefresh(ctx, userID); err != nil {
			qc.Log.Error(err, "enqueue profile refresh user=%d", userID)
		}
	}
}

// Start godoc
// @Summary Start a quiz attempt for a lesson
// @Description Starts the countdown and returns the first question. Any earlier attempt of the same lesson is discarded.
// @Tags quiz
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 201 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/lessons/{id}/quiz [post]
func (qc *QuizController) Start(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	session := utils.CurrentSession(c)
	if _, err := loadLessonContext(c.UserContext(), qc.DB, qc.Progress, lessonID, session, middleware.IsAdmin(session, qc.Cfg)); err != nil {
		return err
	}

	questions, err := loadQuestions(c.UserContext(), qc.DB, lessonID)
	if err != nil {
		return err
	}
	engine, err := quiz.New(questions, quiz.Options{
		TimeLimit:      qc.Cfg.QuizTimeLimit,
		PassPercentage: qc.Cfg.QuizPassPercentage,
		Clock:          qc.Clock,
		OnComplete:     qc.onPassed(session.UserID, lessonID),
	})
	if errors.Is(err, quiz.ErrNoQuestions) || errors.Is(err, quiz.ErrNoPoints) {
		return utils.NotFound(c, "This lesson has no quiz")
	}
	if err != nil {
		return err
	}

	attempt := qc.Attempts.Add(session.UserID, lessonID, engine)
	return utils.Created(c, fiber.Map{
		"attempt_id": attempt.ID,
		"lesson_id":  lessonID,
		"quiz":       engine.View(),
	})
}

func (qc *QuizController) attempt(c *fiber.Ctx) (*quiz.Attempt, error) {
	a, err := qc.Attempts.Get(c.Params("attempt"), utils.CurrentUserID(c))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Quiz attempt not found")
	}
	return a, nil
}

// quizError maps engine errors to HTTP responses that still carry the
// current quiz state.
func quizError(c *fiber.Ctx, err error, view quiz.View) error {
	status := fiber.StatusConflict
	if errors.Is(err, quiz.ErrEmptyAnswer) {
		status = fiber.StatusUnprocessableEntity
	}
	return utils.Error(c, status, err, fiber.Map{"quiz": view})
}

func (qc *QuizController) Get(c *fiber.Ctx) error {
	a, err := qc.attempt(c)
	if err != nil {
		return err
	}
	return utils.OK(c, fiber.Map{
		"attempt_id": a.ID,
		"lesson_id":  a.LessonID,
		"quiz":       a.Engine.View(),
	})
}

type AnswerInput struct {
	Answer string `json:"answer"`
}

// Answer godoc
// @Summary Submit the answer for the current question
// @Description Each question takes one answer. Answers arriving after the countdown ends are not scored.
// @Tags quiz
// @Accept json
// @Produce json
// @Param attempt path string true "Attempt ID"
// @Param request body AnswerInput true "Answer"
// @Success 200 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/quiz/{attempt}/answer [post]
func (qc *QuizController) Answer(c *fiber.Ctx) error {
	a, err := qc.attempt(c)
	if err != nil {
		return err
	}
	var input AnswerInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := a.Engine.Submit(input.Answer)
	if err != nil {
		return quizError(c, err, a.Engine.View())
	}
	return utils.OK(c, fiber.Map{
		"result": result,
		"quiz":   a.Engine.View(),
	})
}

// Next moves past a revealed answer. Finishing a passing attempt records it.
func (qc *QuizController) Next(c *fiber.Ctx) error {
	a, err := qc.attempt(c)
	if err != nil {
		return err
	}
	view, err := a.Engine.Next()
	if err != nil {
		return quizError(c, err, view)
	}
	return utils.OK(c, fiber.Map{"quiz": view})
}

// Restart begins a failed attempt again from the first question.
func (qc *QuizController) Restart(c *fiber.Ctx) error {
	a, err := qc.attempt(c)
	if err != nil {
		return err
	}
	if err := a.Engine.Restart(); err != nil {
		return quizError(c, err, a.Engine.View())
	}
	return utils.OK(c, fiber.Map{"quiz": a.Engine.View()})
}
