package controllers

import (
	"time"

	"academy/backend/config"
	"academy/backend/jobs"
	"academy/backend/repository"
	"academy/backend/services/progress"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *repository.ProgressRepository
	Jobs     jobs.Dispatcher
	Log      *utils.Logger
	Now      func() time.Time
}

func NewProgressController(db *gorm.DB, cfg *config.Config, repo *repository.ProgressRepository, dispatcher jobs.Dispatcher, log *utils.Logger) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Progress: repo, Jobs: dispatcher, Log: log, Now: time.Now}
}

type Overview struct {
	Summary      progress.Summary       `json:"summary"`
	Achievements []progress.Achievement `json:"achievements"`
}

func (pc *ProgressController) overview(c *fiber.Ctx) (*Overview, error) {
	ctx := c.UserContext()
	rows, err := pc.Progress.ListForUser(ctx, utils.CurrentUserID(c))
	if err != nil {
		return nil, err
	}
	total, err := pc.Progress.CountLessons(ctx)
	if err != nil {
		return nil, err
	}
	summary := progress.Summarize(rows, total, pc.Now())
	return &Overview{Summary: summary, Achievements: progress.Achievements(summary)}, nil
}

// GetProgress lists the raw progress rows of the current user.
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	rows, err := pc.Progress.ListForUser(c.UserContext(), utils.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.OK(c, rows)
}

// GetProgressOverview godoc
// @Summary Learning totals, streak and achievements
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/progress/overview [get]
func (pc *ProgressController) GetProgressOverview(c *fiber.Ctx) error {
	ov, err := pc.overview(c)
	if err != nil {
		return err
	}
	return utils.OK(c, ov)
}

// ResetProgress deletes every progress row of the current user.
func (pc *ProgressController) ResetProgress(c *fiber.Ctx) error {
	userID := utils.CurrentUserID(c)
	n, err := pc.Progress.Reset(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if err := pc.Jobs.EnqueueProfileRefresh(c.UserContext(), userID); err != nil {
		pc.Log.Error(err, "enqueue profile refresh user=%d", userID)
	}
	return utils.OK(c, fiber.Map{"deleted": n})
}
