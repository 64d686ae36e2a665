package jobs

import (
	"context"
	"time"

	"academy/backend/models"
	"academy/backend/services/quiz"
	"academy/backend/utils"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CleanupBlacklist drops revoked tokens that have expired anyway.
func CleanupBlacklist(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Unscoped().
		Where("expires_at < ?", now).
		Delete(&models.TokenBlacklist{})
	return res.RowsAffected, errors.Wrap(res.Error, "cleanup token blacklist")
}

// StartScheduler runs periodic housekeeping until the returned cron is stopped.
func StartScheduler(db *gorm.DB, attempts *quiz.Registry, attemptTTL time.Duration, log *utils.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc("@hourly", func() {
		n, err := CleanupBlacklist(context.Background(), db, time.Now())
		if err != nil {
			log.Error(err, "scheduled blacklist cleanup")
			return
		}
		if n > 0 {
			log.Info("removed %d expired blacklisted tokens", n)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "schedule blacklist cleanup")
	}

	_, err = c.AddFunc("@every 10m", func() {
		if n := attempts.Prune(attemptTTL); n > 0 {
			log.Info("pruned %d stale quiz attempts", n)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "schedule quiz pruning")
	}

	c.Start()
	return c, nil
}
