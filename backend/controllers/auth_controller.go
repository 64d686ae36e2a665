package controllers

import (
	"errors"
	"strings"
	"time"

	"academy/backend/config"
	"academy/backend/middleware"
	"academy/backend/models"
	"academy/backend/services/access"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Policy access.Policy
}

func NewAuthController(db *gorm.DB, cfg *config.Config, policy access.Policy) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Policy: policy}
}

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=120"`
}

type SignInInput struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RedirectTo string `json:"redirect_to"`
}

func userPayload(u *models.User, cfg *config.Config) fiber.Map {
	return fiber.Map{
		"id":                  u.ID,
		"email":               u.Email,
		"full_name":           u.FullName,
		"avatar_url":          u.AvatarURL,
		"role":                u.Role,
		"is_admin":            u.Role == models.RoleAdmin || cfg.IsAdminEmail(u.Email),
		"subscription_status": u.SubscriptionStatus,
		"created_at":          u.CreatedAt,
	}
}

func (ac *AuthController) issueSession(c *fiber.Ctx, user *models.User) (string, *utils.Session, error) {
	token, session, err := utils.GenerateJWTToken(user.ID, user.Email, user.Role, ac.Cfg)
	if err != nil {
		return "", nil, err
	}
	c.Cookie(&fiber.Cookie{
		Name:     ac.Cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   ac.Cfg.Env == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return token, session, nil
}

// SignUp godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpInput true "Credentials and full name"
// @Success 201 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/auth/sign-up [post]
func (ac *AuthController) SignUp(c *fiber.Ctx) error {
	var input SignUpInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing int64
	if err := ac.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return utils.Conflict(c, "An account with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Email:              email,
		FullName:           strings.TrimSpace(input.FullName),
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleStudent,
		SubscriptionStatus: models.SubscriptionFree,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not create user")
	}

	token, session, err := ac.issueSession(c, &user)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Created(c, fiber.Map{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"user":       userPayload(&user, ac.Cfg),
	})
}

// SignIn godoc
// @Summary Sign in with email and password
// @Description Returns a session token, sets the session cookie and tells the client where to go next.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInInput true "Credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /api/auth/sign-in [post]
func (ac *AuthController) SignIn(c *fiber.Ctx) error {
	var input SignInInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var user models.User
	err := ac.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, session, err := ac.issueSession(c, &user)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	now := time.Now()
	ac.DB.Model(&user).Update("last_sign_in_at", now)

	return utils.OK(c, fiber.Map{
		"token":       token,
		"expires_at":  session.ExpiresAt,
		"redirect_to": ac.Policy.SafeRedirect(input.RedirectTo),
		"user":        userPayload(&user, ac.Cfg),
	})
}

// SignOut revokes the current token and clears the cookie.
func (ac *AuthController) SignOut(c *fiber.Ctx) error {
	session := utils.CurrentSession(c)
	entry := models.TokenBlacklist{
		JTI:       session.TokenID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}
	if err := ac.DB.Create(&entry).Error; err != nil {
		return err
	}
	c.ClearCookie(ac.Cfg.CookieName)
	return utils.NoContent(c)
}

// Session returns the signed-in user and token expiry.
func (ac *AuthController) Session(c *fiber.Ctx) error {
	session := utils.CurrentSession(c)

	var user models.User
	if err := ac.DB.First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Session user no longer exists")
		}
		return err
	}

	return utils.OK(c, fiber.Map{
		"user":       userPayload(&user, ac.Cfg),
		"expires_at": session.ExpiresAt,
		"is_admin":   middleware.IsAdmin(session, ac.Cfg),
	})
}
