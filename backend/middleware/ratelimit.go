package middleware

import (
	"time"

	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func rateLimiter(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Error(c, fiber.StatusTooManyRequests, fiber.NewError(fiber.StatusTooManyRequests, message))
		},
	})
}

func SignInRateLimiter() fiber.Handler {
	return rateLimiter(10, time.Minute, "Too many sign-in attempts, try again in a minute")
}

func SignUpRateLimiter() fiber.Handler {
	return rateLimiter(5, 5*time.Minute, "Too many sign-up attempts, try again later")
}
