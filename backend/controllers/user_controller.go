package controllers

import (
	"errors"

	"academy/backend/config"
	"academy/backend/models"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

type UpdateProfileInput struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
	OldPassword string  `json:"old_password" validate:"required_with=NewPassword"`
	NewPassword string  `json:"new_password" validate:"omitempty,min=6"`
}

func (uc *UserController) profile(c *fiber.Ctx) (fiber.Map, error) {
	userID := utils.CurrentUserID(c)

	var user models.User
	if err := uc.DB.WithContext(c.UserContext()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return nil, err
	}

	var profile models.UserProfile
	err := uc.DB.WithContext(c.UserContext()).Where("user_id = ?", userID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return fiber.Map{
		"user": userPayload(&user, uc.Cfg),
		"stats": fiber.Map{
			"total_watch_time":  profile.TotalWatchTime,
			"total_points":      profile.TotalPoints,
			"lessons_completed": profile.LessonsCompleted,
			"last_active_at":    profile.LastActiveAt,
		},
	}, nil
}

// GetProfile godoc
// @Summary Current user's profile and totals
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	data, err := uc.profile(c)
	if err != nil {
		return err
	}
	return utils.OK(c, data)
}

func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var input UpdateProfileInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var user models.User
	if err := uc.DB.First(&user, utils.CurrentUserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return err
	}

	updates := map[string]interface{}{}
	if input.FullName != nil {
		updates["full_name"] = *input.FullName
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = *input.AvatarURL
	}
	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Old password is incorrect")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		updates["password_hash"] = string(hashed)
	}
	if len(updates) == 0 {
		return utils.BadRequest(c, "Nothing to update")
	}

	if err := uc.DB.Model(&user).Updates(updates).Error; err != nil {
		return err
	}
	return utils.OK(c, userPayload(&user, uc.Cfg))
}
