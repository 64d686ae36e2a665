package middleware

import (
	"academy/backend/config"
	"academy/backend/models"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ResolveSession returns the caller's session. A missing, malformed, expired
// or revoked token yields (nil, nil); an error means the revocation list
// could not be consulted.
func ResolveSession(c *fiber.Ctx, db *gorm.DB, cfg *config.Config) (*utils.Session, error) {
	tokenString := utils.TokenFromRequest(c, cfg)
	if tokenString == "" {
		return nil, nil
	}
	session, err := utils.ParseJWTToken(tokenString, cfg)
	if err != nil {
		return nil, nil
	}

	var revoked int64
	err = db.WithContext(c.UserContext()).Model(&models.TokenBlacklist{}).
		Where("jti = ?", session.TokenID).
		Count(&revoked).Error
	if err != nil {
		return nil, errors.Wrap(err, "check token blacklist")
	}
	if revoked > 0 {
		return nil, nil
	}
	return session, nil
}

// IsAdmin reports admin rights: the admin role or an allow-listed email.
func IsAdmin(s *utils.Session, cfg *config.Config) bool {
	if s == nil {
		return false
	}
	return s.Role == models.RoleAdmin || cfg.IsAdminEmail(s.Email)
}

func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := ResolveSession(c, db, cfg)
		if err != nil {
			return err
		}
		if session == nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		utils.SetSession(c, session)
		return c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(utils.CurrentSession(c), cfg) {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}
		return c.Next()
	}
}
