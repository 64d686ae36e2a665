package progress

import (
	"context"
	"testing"
	"time"

	"academy/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func day(y int, m time.Month, d, hour int) *time.Time {
	t := time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, Streak(nil, now))
	assert.Equal(t, 3, Streak([]time.Time{
		*day(2026, 3, 10, 9), *day(2026, 3, 10, 11), *day(2026, 3, 9, 8), *day(2026, 3, 8, 23), *day(2026, 3, 6, 10),
	}, now))
	// nothing today breaks the streak
	assert.Equal(t, 0, Streak([]time.Time{*day(2026, 3, 9, 8)}, now))
	// month boundary
	assert.Equal(t, 2, Streak([]time.Time{*day(2026, 3, 1, 8), *day(2026, 2, 28, 8)},
		time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)))
}

func TestSummarizeAndAchievements(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	rows := []models.UserProgress{
		{LessonID: 1, Completed: true, WatchTime: 1800, QuizScore: 80, CompletedAt: day(2026, 3, 10, 9)},
		{LessonID: 2, Completed: true, WatchTime: 1500, QuizScore: 100, CompletedAt: day(2026, 3, 9, 9)},
		{LessonID: 3, Completed: false, WatchTime: 600},
	}

	s := Summarize(rows, 4, now)
	assert.Equal(t, int64(4), s.TotalLessons)
	assert.Equal(t, 2, s.CompletedLessons)
	assert.Equal(t, 3900, s.TotalWatchTime)
	assert.Equal(t, "1h 5m", s.WatchTimeLabel)
	assert.Equal(t, 180, s.TotalPoints)
	assert.InDelta(t, 50.0, s.CompletionPercentage, 0.0001)
	assert.Equal(t, 2, s.CurrentStreak)

	unlocked := map[string]bool{}
	for _, a := range Achievements(s) {
		unlocked[a.ID] = a.Unlocked
	}
	assert.Equal(t, map[string]bool{
		"first_lesson": true,
		"five_lessons": false,
		"halfway":      true,
		"completed":    false,
		"week_streak":  false,
	}, unlocked)
}

func TestSummarizeWithoutLessons(t *testing.T) {
	s := Summarize(nil, 0, time.Now())
	assert.Equal(t, 0.0, s.CompletionPercentage)
	assert.Equal(t, "0m", s.WatchTimeLabel)
}

func TestFormatWatchTime(t *testing.T) {
	assert.Equal(t, "0m", FormatWatchTime(59))
	assert.Equal(t, "12m", FormatWatchTime(12*60+30))
	assert.Equal(t, "2h 0m", FormatWatchTime(7200))
	assert.Equal(t, "0m", FormatWatchTime(-5))
}

func TestProfileRefresh(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:profile_refresh?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	db.Create(&models.UserProgress{UserID: 7, LessonID: 1, Completed: true, WatchTime: 100, QuizScore: 90})
	db.Create(&models.UserProgress{UserID: 7, LessonID: 2, WatchTime: 50})
	db.Create(&models.UserProgress{UserID: 8, LessonID: 1, WatchTime: 999})

	r := NewProfileRefresher(db)
	profile, err := r.Refresh(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 150, profile.TotalWatchTime)
	assert.Equal(t, 90, profile.TotalPoints)
	assert.Equal(t, 1, profile.LessonsCompleted)

	db.Create(&models.UserProgress{UserID: 7, LessonID: 3, Completed: true, WatchTime: 10})
	_, err = r.Refresh(context.Background(), 7)
	require.NoError(t, err)

	var stored []models.UserProfile
	require.NoError(t, db.Where("user_id = ?", 7).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].LessonsCompleted)
	assert.Equal(t, 160, stored[0].TotalWatchTime)
}
