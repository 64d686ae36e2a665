// Package tracker samples a video player and persists playback checkpoints.
package tracker

import (
	"context"
	"math"
	"sync"
	"time"
)

const (
	DefaultInterval             = 5 * time.Second
	DefaultCompletionPercentage = 90.0
	DefaultResumeThreshold      = 30 * time.Second
)

// Player is the media element being watched.
type Player interface {
	CurrentTime() float64
	Duration() float64
	Playing() bool
	Seek(seconds float64)
}

// Position is the stored playback state for a (user, lesson) pair.
type Position struct {
	LastPosition int
	WatchTime    int
	Completed    bool
}

type Checkpoint struct {
	UserID     uint
	LessonID   uint
	Position   int
	WatchTime  int
	Percentage float64
	Completed  bool
	At         time.Time
}

type Store interface {
	LastPosition(ctx context.Context, userID, lessonID uint) (Position, error)
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
}

type Logger interface {
	Error(err error, format string, args ...interface{})
}

// Evaluate returns the watched percentage and whether it reaches threshold.
// A non-positive threshold means DefaultCompletionPercentage.
func Evaluate(currentTime, totalDuration, threshold float64) (float64, bool) {
	if threshold <= 0 {
		threshold = DefaultCompletionPercentage
	}
	if totalDuration <= 0 || currentTime <= 0 {
		return 0, false
	}
	pct := currentTime / totalDuration * 100
	return pct, pct >= threshold
}

// ResumeAt is where playback should restart: the stored position when it is
// past threshold, otherwise the beginning.
func ResumeAt(lastPosition int, threshold time.Duration) int {
	if threshold <= 0 {
		threshold = DefaultResumeThreshold
	}
	if float64(lastPosition) > threshold.Seconds() {
		return lastPosition
	}
	return 0
}

type Options struct {
	Interval             time.Duration
	CompletionPercentage float64
	ResumeThreshold      time.Duration
	Now                  func() time.Time
	Logger               Logger
	// OnComplete is called at most once per Tracker.
	OnComplete func()
}

type Tracker struct {
	userID   uint
	lessonID uint
	player   Player
	store    Store
	opts     Options

	mu         sync.Mutex
	watched    float64
	lastSample time.Time
	signalled  bool
}

func New(userID, lessonID uint, player Player, store Store, opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CompletionPercentage <= 0 {
		opts.CompletionPercentage = DefaultCompletionPercentage
	}
	if opts.ResumeThreshold <= 0 {
		opts.ResumeThreshold = DefaultResumeThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{userID: userID, lessonID: lessonID, player: player, store: store, opts: opts}
}

// Mount loads the stored position and seeks the player when it is worth
// resuming. The stored watch time seeds the running total.
func (t *Tracker) Mount(ctx context.Context) error {
	pos, err := t.store.LastPosition(ctx, t.userID, t.lessonID)
	if err != nil {
		t.logError(err, "load position user=%d lesson=%d", t.userID, t.lessonID)
		return err
	}

	t.mu.Lock()
	t.watched = float64(pos.WatchTime)
	t.mu.Unlock()

	if at := ResumeAt(pos.LastPosition, t.opts.ResumeThreshold); at > 0 {
		t.player.Seek(float64(at))
	}
	return nil
}

// Sample takes one checkpoint. Nothing is written while the player is paused
// or still at the start.
func (t *Tracker) Sample(ctx context.Context) error {
	now := t.opts.Now()

	t.mu.Lock()
	if !t.player.Playing() {
		t.lastSample = time.Time{}
		t.mu.Unlock()
		return nil
	}
	elapsed := t.opts.Interval
	if !t.lastSample.IsZero() {
		if d := now.Sub(t.lastSample); d < elapsed {
			elapsed = d
		}
	}
	t.lastSample = now
	t.watched += elapsed.Seconds()
	watched := t.watched
	t.mu.Unlock()

	current := t.player.CurrentTime()
	if current <= 0 {
		return nil
	}
	pct, completed := Evaluate(current, t.player.Duration(), t.opts.CompletionPercentage)

	err := t.save(ctx, Checkpoint{
		UserID:     t.userID,
		LessonID:   t.lessonID,
		Position:   int(math.Floor(current)),
		WatchTime:  int(math.Floor(watched)),
		Percentage: pct,
		Completed:  completed,
		At:         now,
	})
	if completed {
		t.signal()
	}
	return err
}

// Ended records the media end as a completed checkpoint.
func (t *Tracker) Ended(ctx context.Context) error {
	now := t.opts.Now()
	duration := t.player.Duration()

	t.mu.Lock()
	t.lastSample = time.Time{}
	watched := t.watched
	t.mu.Unlock()

	err := t.save(ctx, Checkpoint{
		UserID:     t.userID,
		LessonID:   t.lessonID,
		Position:   int(math.Floor(duration)),
		WatchTime:  int(math.Floor(watched)),
		Percentage: 100,
		Completed:  true,
		At:         now,
	})
	t.signal()
	return err
}

// Run samples every Interval until ctx is cancelled. Failed saves are
// logged by Sample and otherwise ignored.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = t.Sample(ctx)
		}
	}
}

func (t *Tracker) WatchTime() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(math.Floor(t.watched))
}

func (t *Tracker) save(ctx context.Context, cp Checkpoint) error {
	if err := t.store.SaveCheckpoint(ctx, cp); err != nil {
		t.logError(err, "save checkpoint user=%d lesson=%d", cp.UserID, cp.LessonID)
		return err
	}
	return nil
}

func (t *Tracker) signal() {
	t.mu.Lock()
	if t.signalled {
		t.mu.Unlock()
		return
	}
	t.signalled = true
	t.mu.Unlock()
	if t.opts.OnComplete != nil {
		t.opts.OnComplete()
	}
}

func (t *Tracker) logError(err error, format string, args ...interface{}) {
	if t.opts.Logger != nil {
		t.opts.Logger.Error(err, format, args...)
	}
}
