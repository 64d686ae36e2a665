package controllers

import (
	"strings"
	"time"

	"academy/backend/config"
	"academy/backend/models"
	"academy/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const activeWindow = 7 * 24 * time.Hour

type AdminController struct {
	DB  *gorm.DB
	Cfg *config.Config
	Now func() time.Time
}

func NewAdminController(db *gorm.DB, cfg *config.Config) *AdminController {
	return &AdminController{DB: db, Cfg: cfg, Now: time.Now}
}

type PlatformStats struct {
	TotalUsers       int64   `json:"total_users"`
	ActiveUsers      int64   `json:"active_users"`
	TotalLessons     int64   `json:"total_lessons"`
	CompletedLessons int64   `json:"completed_lessons"`
	AverageProgress  float64 `json:"average_progress"`
	NewUsersToday    int64   `json:"new_users_today"`
}

type Activity struct {
	UserID      uint      `json:"user_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	LessonID    uint      `json:"lesson_id"`
	LessonTitle string    `json:"lesson_title"`
	Completed   bool      `json:"completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// countAll runs each query into its target and stops at the first error.
func countAll(queries map[*int64]*gorm.DB) error {
	for target, q := range queries {
		if err := q.Count(target).Error; err != nil {
			return err
		}
	}
	return nil
}

func (ac *AdminController) stats(db *gorm.DB) (PlatformStats, error) {
	now := ac.Now()
	var s PlatformStats

	err := countAll(map[*int64]*gorm.DB{
		&s.TotalUsers:       db.Model(&models.User{}),
		&s.ActiveUsers:      db.Model(&models.User{}).Where("last_sign_in_at >= ?", now.Add(-activeWindow)),
		&s.NewUsersToday:    db.Model(&models.User{}).Where("created_at >= ?", startOfDay(now)),
		&s.TotalLessons:     db.Model(&models.Lesson{}),
		&s.CompletedLessons: db.Model(&models.UserProgress{}).Where("completed = ?", true),
	})
	if err != nil {
		return s, err
	}

	if s.TotalUsers > 0 && s.TotalLessons > 0 {
		s.AverageProgress = float64(s.CompletedLessons) / float64(s.TotalUsers*s.TotalLessons) * 100
	}
	return s, nil
}

func (ac *AdminController) recentActivity(db *gorm.DB, limit int) ([]Activity, error) {
	var out []Activity
	err := db.Table("user_progress").
		Select("user_progress.user_id, users.email, users.full_name, user_progress.lesson_id, lessons.title AS lesson_title, user_progress.completed, user_progress.updated_at").
		Joins("JOIN users ON users.id = user_progress.user_id").
		Joins("JOIN lessons ON lessons.id = user_progress.lesson_id").
		Where("user_progress.deleted_at IS NULL").
		Order("user_progress.updated_at DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// GetStats godoc
// @Summary Platform totals for the admin dashboard
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/admin/stats [get]
func (ac *AdminController) GetStats(c *fiber.Ctx) error {
	db := ac.DB.WithContext(c.UserContext())
	stats, err := ac.stats(db)
	if err != nil {
		return err
	}
	activity, err := ac.recentActivity(db, 10)
	if err != nil {
		return err
	}
	return utils.OK(c, fiber.Map{
		"stats":           stats,
		"recent_activity": activity,
	})
}

type UserRow struct {
	ID                 uint       `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Role               string     `json:"role"`
	SubscriptionStatus string     `json:"subscription_status"`
	CreatedAt          time.Time  `json:"created_at"`
	LastSignInAt       *time.Time `json:"last_sign_in_at"`
	IsActive           bool       `json:"is_active"`
	LessonsCompleted   int64      `json:"lessons_completed"`
	WatchTime          int64      `json:"watch_time"`
}

type UserStats struct {
	Total       int64 `json:"total"`
	Active      int64 `json:"active"`
	NewThisWeek int64 `json:"new_this_week"`
	Premium     int64 `json:"premium"`
}

func (ac *AdminController) userStats(db *gorm.DB, now time.Time) (UserStats, error) {
	var s UserStats
	err := countAll(map[*int64]*gorm.DB{
		&s.Total:       db.Model(&models.User{}),
		&s.Active:      db.Model(&models.User{}).Where("last_sign_in_at >= ?", now.Add(-activeWindow)),
		&s.NewThisWeek: db.Model(&models.User{}).Where("created_at >= ?", now.Add(-activeWindow)),
		&s.Premium:     db.Model(&models.User{}).Where("subscription_status <> ?", models.SubscriptionFree),
	})
	return s, err
}

type userTotals struct {
	UserID           uint
	LessonsCompleted int64
	WatchTime        int64
}

// progressTotals aggregates completed lessons and watch time for a page of users.
func progressTotals(db *gorm.DB, ids []uint) (map[uint]userTotals, error) {
	out := make(map[uint]userTotals, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []userTotals
	err := db.Model(&models.UserProgress{}).
		Select("user_id, "+
			"COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS lessons_completed, "+
			"COALESCE(SUM(watch_time), 0) AS watch_time").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.UserID] = r
	}
	return out, nil
}

// ListUsers godoc
// @Summary List registered users
// @Description Search by email or name, filter by status (active, inactive, premium) and paginate.
// @Tags admin
// @Produce json
// @Param search query string false "Search"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /api/admin/users [get]
func (ac *AdminController) ListUsers(c *fiber.Ctx) error {
	db := ac.DB.WithContext(c.UserContext())
	now := ac.Now()
	page, pageSize := utils.PageParams(c)

	query := db.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	since := now.Add(-activeWindow)
	switch c.Query("status") {
	case "", "all":
	case "active":
		query = query.Where("last_sign_in_at >= ?", since)
	case "inactive":
		query = query.Where("last_sign_in_at IS NULL OR last_sign_in_at < ?", since)
	case "premium":
		query = query.Where("subscription_status <> ?", models.SubscriptionFree)
	default:
		return utils.BadRequest(c, "Unknown status filter")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return err
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	totals, err := progressTotals(db, ids)
	if err != nil {
		return err
	}
	meta, err := ac.userStats(db, now)
	if err != nil {
		return err
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		row := UserRow{
			ID:                 u.ID,
			Email:              u.Email,
			FullName:           u.FullName,
			Role:               u.Role,
			SubscriptionStatus: u.SubscriptionStatus,
			CreatedAt:          u.CreatedAt,
			LastSignInAt:       u.LastSignInAt,
			IsActive:           u.LastSignInAt != nil && !u.LastSignInAt.Before(since),
			LessonsCompleted:   totals[u.ID].LessonsCompleted,
			WatchTime:          totals[u.ID].WatchTime,
		}
		if ac.Cfg.IsAdminEmail(u.Email) {
			row.Role = models.RoleAdmin
		}
		rows = append(rows, row)
	}

	return utils.Paginate(c, rows, total, page, pageSize, meta)
}

type UpdateUserInput struct {
	Role               *string `json:"role" validate:"omitempty,oneof=student admin"`
	SubscriptionStatus *string `json:"subscription_status" validate:"omitempty,oneof=free premium lifetime"`
	FullName           *string `json:"full_name" validate:"omitempty,max=120"`
}

func (ac *AdminController) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var input UpdateUserInput
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	db := ac.DB.WithContext(c.UserContext())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return notFound(err, "User")
	}

	updates := map[string]interface{}{}
	if input.Role != nil {
		if id == utils.CurrentUserID(c) && *input.Role != models.RoleAdmin {
			return utils.BadRequest(c, "You cannot remove your own admin role")
		}
		updates["role"] = *input.Role
	}
	if input.SubscriptionStatus != nil {
		updates["subscription_status"] = *input.SubscriptionStatus
	}
	if input.FullName != nil {
		updates["full_name"] = *input.FullName
	}
	if len(updates) == 0 {
		return utils.BadRequest(c, "Nothing to update")
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return err
	}
	return utils.OK(c, userPayload(&user, ac.Cfg))
}

// DeleteUser removes an account together with its progress and profile.
func (ac *AdminController) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if id == utils.CurrentUserID(c) {
		return utils.BadRequest(c, "You cannot delete your own account")
	}

	err = ac.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return notFound(err, "User")
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.UserProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.UserProfile{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		return err
	}
	return utils.NoContent(c)
}
