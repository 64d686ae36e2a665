package middleware

import (
	"net/url"

	"academy/backend/config"
	"academy/backend/services/access"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PageGuard applies the access policy to page routes. Redirects are 302s;
// allowed requests carry the resolved session in locals.
func PageGuard(db *gorm.DB, cfg *config.Config, policy access.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := ResolveSession(c, db, cfg)
		decision := policy.Decide(GuardInput(c, session, err, cfg))
		if decision.Redirect {
			return c.Redirect(decision.Location, fiber.StatusFound)
		}
		if session != nil {
			utils.SetSession(c, session)
		}
		return c.Next()
	}
}

// GuardInput builds the policy input for the current request.
func GuardInput(c *fiber.Ctx, session *utils.Session, sessionErr error, cfg *config.Config) access.Input {
	query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	return access.Input{
		Path:          c.Path(),
		Query:         query,
		Authenticated: session != nil,
		IsAdmin:       IsAdmin(session, cfg),
		SessionErr:    sessionErr,
	}
}
