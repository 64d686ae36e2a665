package progress

import (
	"context"
	"time"

	"academy/backend/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRefresher recomputes the user_profiles row of a user from their
// progress rows.
type ProfileRefresher struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewProfileRefresher(db *gorm.DB) *ProfileRefresher {
	return &ProfileRefresher{DB: db, Now: time.Now}
}

type profileTotals struct {
	WatchTime int
	Points    int
	Completed int
}

func (r *ProfileRefresher) Refresh(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var totals profileTotals
	err := r.DB.WithContext(ctx).Model(&models.UserProgress{}).
		Select("COALESCE(SUM(watch_time), 0) AS watch_time, "+
			"COALESCE(SUM(quiz_score), 0) AS points, "+
			"COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed").
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return nil, errors.Wrapf(err, "aggregate progress user=%d", userID)
	}

	profile := &models.UserProfile{
		UserID:           userID,
		TotalWatchTime:   totals.WatchTime,
		TotalPoints:      totals.Points,
		LessonsCompleted: totals.Completed,
		LastActiveAt:     r.Now(),
	}
	err = r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_watch_time", "total_points", "lessons_completed", "last_active_at", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return nil, errors.Wrapf(err, "upsert profile user=%d", userID)
	}
	return profile, nil
}
