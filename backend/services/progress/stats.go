// Package progress turns raw user_progress rows into the learner's totals,
// streak and achievements.
package progress

import (
	"fmt"
	"sort"
	"time"

	"academy/backend/models"
)

type Summary struct {
	TotalLessons         int64   `json:"total_lessons"`
	CompletedLessons     int     `json:"completed_lessons"`
	TotalWatchTime       int     `json:"total_watch_time"`
	WatchTimeLabel       string  `json:"watch_time_label"`
	TotalPoints          int     `json:"total_points"`
	CompletionPercentage float64 `json:"completion_percentage"`
	CurrentStreak        int     `json:"current_streak"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// Summarize aggregates rows for one user. now decides which day is today
// for the streak.
func Summarize(rows []models.UserProgress, totalLessons int64, now time.Time) Summary {
	s := Summary{TotalLessons: totalLessons}
	var completedAt []time.Time
	for _, row := range rows {
		s.TotalWatchTime += row.WatchTime
		s.TotalPoints += row.QuizScore
		if row.Completed {
			s.CompletedLessons++
			if row.CompletedAt != nil {
				completedAt = append(completedAt, *row.CompletedAt)
			}
		}
	}
	if totalLessons > 0 {
		s.CompletionPercentage = float64(s.CompletedLessons) / float64(totalLessons) * 100
		if s.CompletionPercentage > 100 {
			s.CompletionPercentage = 100
		}
	}
	s.CurrentStreak = Streak(completedAt, now)
	s.WatchTimeLabel = FormatWatchTime(s.TotalWatchTime)
	return s
}

// Streak counts consecutive calendar days, ending today, on which at least
// one lesson was completed. Days are taken in now's location.
func Streak(completedAt []time.Time, now time.Time) int {
	loc := now.Location()
	days := make(map[string]bool, len(completedAt))
	for _, t := range completedAt {
		days[t.In(loc).Format("2006-01-02")] = true
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	streak := 0
	y, m, d := now.Date()
	for _, day := range keys {
		want := time.Date(y, m, d-streak, 0, 0, 0, 0, loc).Format("2006-01-02")
		if day != want {
			break
		}
		streak++
	}
	return streak
}

func Achievements(s Summary) []Achievement {
	return []Achievement{
		{ID: "first_lesson", Title: "First step", Description: "Complete your first lesson", Unlocked: s.CompletedLessons >= 1},
		{ID: "five_lessons", Title: "Getting started", Description: "Complete 5 lessons", Unlocked: s.CompletedLessons >= 5},
		{ID: "halfway", Title: "Halfway there", Description: "Complete 50% of the course", Unlocked: s.CompletionPercentage >= 50},
		{ID: "completed", Title: "Graduate", Description: "Complete the whole course", Unlocked: s.CompletionPercentage >= 100},
		{ID: "week_streak", Title: "Consistent", Description: "Study 7 days in a row", Unlocked: s.CurrentStreak >= 7},
	}
}

// FormatWatchTime renders seconds as "1h 5m" or "12m".
func FormatWatchTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
