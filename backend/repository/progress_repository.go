package repository

import (
	"context"
	"time"

	"academy/backend/models"
	"academy/backend/services/tracker"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository reads and upserts user_progress rows. Every write is a
// single upsert on (user_id, lesson_id); concurrent writers are last-write-wins.
// A checkpoint stores the completion it was evaluated with. Explicit
// completions and passed quizzes never clear it.
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

var _ tracker.Store = (*ProgressRepository)(nil)

var conflictColumns = []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}}

func set(column string, value interface{}) clause.Assignment {
	return clause.Assignment{Column: clause.Column{Name: column}, Value: value}
}

func fromExcluded(column string) clause.Assignment {
	return set(column, gorm.Expr("excluded."+column))
}

var (
	stickyCompleted   = set("completed", gorm.Expr("user_progress.completed OR excluded.completed"))
	latestCompleted   = fromExcluded("completed")
	latestCompletedAt = fromExcluded("completed_at")
	firstCompletedAt  = set("completed_at", gorm.Expr("COALESCE(user_progress.completed_at, excluded.completed_at)"))
	touchUpdatedAt    = fromExcluded("updated_at")
	clearDeletedAt    = set("deleted_at", nil)
	incrementAttempts = set("quiz_attempts", gorm.Expr("user_progress.quiz_attempts + 1"))
)

func (r *ProgressRepository) upsert(ctx context.Context, row *models.UserProgress, sets ...clause.Assignment) error {
	sets = append(sets, touchUpdatedAt, clearDeletedAt)
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   conflictColumns,
		DoUpdates: clause.Set(sets),
	}).Create(row).Error
	return errors.Wrapf(err, "upsert progress user=%d lesson=%d", row.UserID, row.LessonID)
}

// Get returns the row for (userID, lessonID), or nil when there is none.
func (r *ProgressRepository) Get(ctx context.Context, userID, lessonID uint) (*models.UserProgress, error) {
	var row models.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load progress")
	}
	return &row, nil
}

func (r *ProgressRepository) LastPosition(ctx context.Context, userID, lessonID uint) (tracker.Position, error) {
	row, err := r.Get(ctx, userID, lessonID)
	if err != nil || row == nil {
		return tracker.Position{}, err
	}
	return tracker.Position{
		LastPosition: row.LastPosition,
		WatchTime:    row.WatchTime,
		Completed:    row.Completed,
	}, nil
}

func (r *ProgressRepository) SaveCheckpoint(ctx context.Context, cp tracker.Checkpoint) error {
	row := &models.UserProgress{
		UserID:       cp.UserID,
		LessonID:     cp.LessonID,
		LastPosition: cp.Position,
		WatchTime:    cp.WatchTime,
		Completed:    cp.Completed,
	}
	if cp.Completed {
		at := cp.At
		if at.IsZero() {
			at = time.Now()
		}
		row.CompletedAt = &at
	}
	return r.upsert(ctx, row,
		fromExcluded("last_position"),
		fromExcluded("watch_time"),
		latestCompleted,
		latestCompletedAt,
	)
}

// MarkComplete stores an explicit completion. A nil watchTime keeps the
// stored watch time.
func (r *ProgressRepository) MarkComplete(ctx context.Context, userID, lessonID uint, watchTime *int, at time.Time) error {
	row := &models.UserProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &at,
	}
	sets := []clause.Assignment{stickyCompleted, firstCompletedAt}
	if watchTime != nil {
		row.WatchTime = *watchTime
		sets = append(sets, fromExcluded("watch_time"))
	}
	return r.upsert(ctx, row, sets...)
}

// SaveQuizResult records a passed quiz: the score, one more attempt and a
// completed lesson.
func (r *ProgressRepository) SaveQuizResult(ctx context.Context, userID, lessonID uint, score int, at time.Time) error {
	row := &models.UserProgress{
		UserID:       userID,
		LessonID:     lessonID,
		Completed:    true,
		QuizScore:    score,
		QuizAttempts: 1,
		CompletedAt:  &at,
	}
	return r.upsert(ctx, row,
		fromExcluded("quiz_score"),
		incrementAttempts,
		stickyCompleted,
		firstCompletedAt,
	)
}

func (r *ProgressRepository) ListForUser(ctx context.Context, userID uint) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error
	return rows, errors.Wrap(err, "list progress")
}

// CompletedLessonIDs returns the set of lessons the user has completed.
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "completed lessons")
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Reset hard-deletes all progress of a user so the unique key is free again.
func (r *ProgressRepository) Reset(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&models.UserProgress{})
	return res.RowsAffected, errors.Wrap(res.Error, "reset progress")
}

func (r *ProgressRepository) CountLessons(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Lesson{}).Count(&n).Error
	return n, errors.Wrap(err, "count lessons")
}
