package routes

import (
	"time"

	"academy/backend/config"
	"academy/backend/middleware"
	"academy/backend/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const requestTimeout = 5 * time.Second

// NewApp builds the fiber application with the shared middleware stack and
// every route mounted.
func NewApp(db *gorm.DB, cfg *config.Config, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "academy",
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: utils.ErrorHandler(svc.Logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.RequestIDHeader,
		AllowCredentials: cfg.CORSOrigins != "*",
	}))
	app.Use(middleware.RequestID(requestTimeout))
	app.Use(middleware.LoggingMiddleware(svc.Logger.Std()))

	SetupRoutes(app, db, cfg, svc)
	return app
}
