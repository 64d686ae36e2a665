package routes

import (
	"academy/backend/config"
	"academy/backend/controllers"
	"academy/backend/jobs"
	"academy/backend/middleware"
	"academy/backend/repository"
	"academy/backend/services/access"
	"academy/backend/services/quiz"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services are the long-lived dependencies shared by the handlers.
type Services struct {
	Logger   *utils.Logger
	Jobs     jobs.Dispatcher
	Attempts *quiz.Registry
	Policy   access.Policy
	// RateLimit turns on the sign-in/sign-up limiters.
	RateLimit bool
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, svc Services) {
	progressRepo := repository.NewProgressRepository(db)

	authController := controllers.NewAuthController(db, cfg, svc.Policy)
	courseController := controllers.NewCourseController(db, cfg, progressRepo)
	lessonController := controllers.NewLessonController(db, cfg, progressRepo, svc.Jobs, svc.Logger)
	quizController := controllers.NewQuizController(db, cfg, progressRepo, svc.Jobs, svc.Attempts, svc.Logger)
	progressController := controllers.NewProgressController(db, cfg, progressRepo, svc.Jobs, svc.Logger)
	userController := controllers.NewUserController(db, cfg)
	adminController := controllers.NewAdminController(db, cfg)
	coursesController := controllers.NewCoursesController(db, cfg)
	pagesController := controllers.NewPagesController(db, cfg, svc.Policy,
		courseController, lessonController, progressController,
		userController, adminController, coursesController)

	authMiddleware := middleware.AuthMiddleware(db, cfg)
	adminMiddleware := middleware.AdminMiddleware(cfg)
	guard := middleware.PageGuard(db, cfg, svc.Policy)

	// Pages
	app.Get("/", guard, pagesController.Home)
	app.Get("/auth", guard, pagesController.AuthPage)
	app.Get("/dashboard", guard, pagesController.Dashboard)
	app.Get("/course", guard, pagesController.Course)
	app.Get("/course/:chapter/:lesson", guard, pagesController.Lesson)
	app.Get("/profile", guard, pagesController.Profile)
	app.Get("/admin", guard, pagesController.AdminHome)
	app.Get("/admin/users", guard, pagesController.AdminUsers)
	app.Get("/admin/content", guard, pagesController.AdminContent)

	// Auth routes
	signIn := []fiber.Handler{authController.SignIn}
	signUp := []fiber.Handler{authController.SignUp}
	if svc.RateLimit {
		signIn = append([]fiber.Handler{middleware.SignInRateLimiter()}, signIn...)
		signUp = append([]fiber.Handler{middleware.SignUpRateLimiter()}, signUp...)
	}
	app.Post("/api/auth/sign-up", signUp...)
	app.Post("/api/auth/sign-in", signIn...)
	app.Post("/api/auth/sign-out", authMiddleware, authController.SignOut)
	app.Get("/api/auth/session", authMiddleware, authController.Session)

	// User routes
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Course routes
	app.Get("/api/courses", authMiddleware, courseController.ListCourses)
	app.Get("/api/courses/:id", authMiddleware, courseController.GetCourse)

	// Lesson routes
	lessons := app.Group("/api/lessons", authMiddleware)
	lessons.Get("/:id", lessonController.GetLesson)
	lessons.Get("/:id/progress", lessonController.GetProgress)
	lessons.Put("/:id/progress", lessonController.SaveProgress)
	lessons.Post("/:id/complete", lessonController.Complete)
	lessons.Post("/:id/quiz", quizController.Start)

	// Quiz attempt routes
	attempts := app.Group("/api/quiz", authMiddleware)
	attempts.Get("/:attempt", quizController.Get)
	attempts.Post("/:attempt/answer", quizController.Answer)
	attempts.Post("/:attempt/next", quizController.Next)
	attempts.Post("/:attempt/restart", quizController.Restart)

	// Progress routes
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)
	app.Get("/api/progress/overview", authMiddleware, progressController.GetProgressOverview)
	app.Delete("/api/progress", authMiddleware, progressController.ResetProgress)

	// Admin routes
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Get("/stats", adminController.GetStats)
	admin.Get("/users", adminController.ListUsers)
	admin.Put("/users/:id", adminController.UpdateUser)
	admin.Delete("/users/:id", adminController.DeleteUser)

	admin.Get("/courses", coursesController.ListCourses)
	admin.Post("/courses", coursesController.CreateCourse)
	admin.Put("/courses/:id", coursesController.UpdateCourse)
	admin.Delete("/courses/:id", coursesController.DeleteCourse)
	admin.Post("/courses/:id/chapters", coursesController.CreateChapter)
	admin.Put("/chapters/:id", coursesController.UpdateChapter)
	admin.Delete("/chapters/:id", coursesController.DeleteChapter)
	admin.Post("/chapters/:id/lessons", coursesController.CreateLesson)
	admin.Put("/lessons/:id", coursesController.UpdateLesson)
	admin.Delete("/lessons/:id", coursesController.DeleteLesson)
	admin.Get("/lessons/:id/questions", coursesController.ListQuestions)
	admin.Post("/lessons/:id/questions", coursesController.CreateQuestion)
	admin.Put("/questions/:id", coursesController.UpdateQuestion)
	admin.Delete("/questions/:id", coursesController.DeleteQuestion)
}
