package controllers

import (
	"errors"

	"academy/backend/config"
	"academy/backend/middleware"
	"academy/backend/services/access"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PagesController serves the JSON view models behind the site's pages. Page
// routes sit behind middleware.PageGuard, so handlers that need a user can
// rely on a session being present.
type PagesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Policy   access.Policy
	Courses  *CourseController
	Lessons  *LessonController
	Progress *ProgressController
	Users    *UserController
	Admin    *AdminController
	Content  *CoursesController
}

func NewPagesController(db *gorm.DB, cfg *config.Config, policy access.Policy,
	courses *CourseController, lessons *LessonController, progress *ProgressController,
	users *UserController, admin *AdminController, content *CoursesController) *PagesController {
	return &PagesController{
		DB:       db,
		Cfg:      cfg,
		Policy:   policy,
		Courses:  courses,
		Lessons:  lessons,
		Progress: progress,
		Users:    users,
		Admin:    admin,
		Content:  content,
	}
}

func (pc *PagesController) Home(c *fiber.Ctx) error {
	courses, err := activeCourseSummaries(pc.DB.WithContext(c.UserContext()))
	if err != nil {
		return err
	}
	session := utils.CurrentSession(c)
	return utils.OK(c, fiber.Map{
		"page":          "home",
		"authenticated": session != nil,
		"courses":       courses,
	})
}

// AuthPage only renders for signed-out visitors; the guard sends everyone
// else on to their destination.
func (pc *PagesController) AuthPage(c *fiber.Ctx) error {
	return utils.OK(c, fiber.Map{
		"page":        "auth",
		"redirect_to": pc.Policy.SafeRedirect(c.Query("redirectTo")),
	})
}

func (pc *PagesController) Dashboard(c *fiber.Ctx) error {
	user, err := pc.Users.profile(c)
	if err != nil {
		return err
	}
	overview, err := pc.Progress.overview(c)
	if err != nil {
		return err
	}
	outline, err := pc.Courses.defaultOutline(c)
	if err != nil {
		return err
	}

	var nextUp *LessonItem
	if outline != nil {
		nextUp = outline.NextUp()
	}
	return utils.OK(c, fiber.Map{
		"page":         "dashboard",
		"user":         user["user"],
		"summary":      overview.Summary,
		"achievements": overview.Achievements,
		"course":       outline,
		"next_up":      nextUp,
	})
}

func (pc *PagesController) Course(c *fiber.Ctx) error {
	outline, err := pc.Courses.defaultOutline(c)
	if err != nil {
		return err
	}
	return utils.OK(c, fiber.Map{
		"page":   "course",
		"course": outline,
	})
}

// Lesson serves /course/:chapter/:lesson. It asks the access policy again
// so the page stays closed even when mounted outside the guarded group.
// Locked lessons send the viewer back to the course outline.
func (pc *PagesController) Lesson(c *fiber.Ctx) error {
	session, err := middleware.ResolveSession(c, pc.DB, pc.Cfg)
	decision := pc.Policy.Decide(middleware.GuardInput(c, session, err, pc.Cfg))
	if decision.Redirect {
		return c.Redirect(decision.Location, fiber.StatusFound)
	}
	if session == nil {
		return c.Redirect(pc.Policy.LoginURL(c.Path()), fiber.StatusFound)
	}
	utils.SetSession(c, session)

	chapterID, err := parseID(c, "chapter")
	if err != nil {
		return err
	}
	lessonID, err := parseID(c, "lesson")
	if err != nil {
		return err
	}

	v, err := loadLessonContext(c.UserContext(), pc.DB, pc.Lessons.Progress, lessonID, session, middleware.IsAdmin(session, pc.Cfg))
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusForbidden {
			return c.Redirect("/course", fiber.StatusFound)
		}
		return err
	}
	if v.Chapter.ID != chapterID {
		return utils.NotFound(c, "Lesson not found")
	}

	view, err := pc.Lessons.lessonView(c.UserContext(), v, session.UserID)
	if err != nil {
		return err
	}
	view["page"] = "lesson"
	return utils.OK(c, view)
}

func (pc *PagesController) Profile(c *fiber.Ctx) error {
	data, err := pc.Users.profile(c)
	if err != nil {
		return err
	}
	overview, err := pc.Progress.overview(c)
	if err != nil {
		return err
	}
	data["page"] = "profile"
	data["summary"] = overview.Summary
	data["achievements"] = overview.Achievements
	return utils.OK(c, data)
}

func (pc *PagesController) AdminHome(c *fiber.Ctx) error {
	db := pc.DB.WithContext(c.UserContext())
	stats, err := pc.Admin.stats(db)
	if err != nil {
		return err
	}
	activity, err := pc.Admin.recentActivity(db, 10)
	if err != nil {
		return err
	}
	return utils.OK(c, fiber.Map{
		"page":            "admin",
		"stats":           stats,
		"recent_activity": activity,
	})
}

func (pc *PagesController) AdminUsers(c *fiber.Ctx) error {
	return pc.Admin.ListUsers(c)
}

func (pc *PagesController) AdminContent(c *fiber.Ctx) error {
	return pc.Content.ListCourses(c)
}
