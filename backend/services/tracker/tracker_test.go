package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	current  float64
	duration float64
	playing  bool
	seekedTo float64
	seeks    int
}

func (p *fakePlayer) CurrentTime() float64 { return p.current }
func (p *fakePlayer) Duration() float64    { return p.duration }
func (p *fakePlayer) Playing() bool        { return p.playing }
func (p *fakePlayer) Seek(s float64) {
	p.seekedTo = s
	p.current = s
	p.seeks++
}

type memStore struct {
	mu      sync.Mutex
	pos     Position
	loadErr error
	saveErr error
	saved   []Checkpoint
}

func (s *memStore) LastPosition(ctx context.Context, userID, lessonID uint) (Position, error) {
	return s.pos, s.loadErr
}

func (s *memStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, cp)
	return nil
}

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }
func (c *stepClock) step(d time.Duration) {
	c.now = c.now.Add(d)
}

type recordingLogger struct{ errs []error }

func (l *recordingLogger) Error(err error, format string, args ...interface{}) {
	l.errs = append(l.errs, err)
}

func TestEvaluate(t *testing.T) {
	pct, done := Evaluate(540, 600, 0)
	assert.InDelta(t, 90.0, pct, 0.0001)
	assert.True(t, done)

	pct, done = Evaluate(539, 600, 90)
	assert.Less(t, pct, 90.0)
	assert.False(t, done)

	pct, done = Evaluate(10, 0, 90)
	assert.Equal(t, 0.0, pct)
	assert.False(t, done)
}

func TestResumeAt(t *testing.T) {
	assert.Equal(t, 0, ResumeAt(30, 30*time.Second))
	assert.Equal(t, 31, ResumeAt(31, 30*time.Second))
	assert.Equal(t, 0, ResumeAt(0, 0))
}

func TestMountSeeksOnlyPastThreshold(t *testing.T) {
	player := &fakePlayer{duration: 600}
	store := &memStore{pos: Position{LastPosition: 125, WatchTime: 200}}
	tr := New(1, 2, player, store, Options{})

	require.NoError(t, tr.Mount(context.Background()))
	assert.Equal(t, 125.0, player.seekedTo)
	assert.Equal(t, 200, tr.WatchTime())

	player = &fakePlayer{duration: 600}
	store = &memStore{pos: Position{LastPosition: 30}}
	tr = New(1, 2, player, store, Options{})
	require.NoError(t, tr.Mount(context.Background()))
	assert.Equal(t, 0, player.seeks)
}

func TestMountReportsLoadError(t *testing.T) {
	logger := &recordingLogger{}
	store := &memStore{loadErr: errors.New("db down")}
	tr := New(1, 2, &fakePlayer{}, store, Options{Logger: logger})

	assert.Error(t, tr.Mount(context.Background()))
	assert.Len(t, logger.errs, 1)
}

func TestSampleWritesCheckpointsAndSignalsOnce(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	player := &fakePlayer{duration: 100, playing: true}
	store := &memStore{}
	completions := 0
	tr := New(3, 4, player, store, Options{Now: clock.Now, OnComplete: func() { completions++ }})
	ctx := context.Background()

	player.current = 50
	require.NoError(t, tr.Sample(ctx))
	clock.step(5 * time.Second)
	player.current = 89.9
	require.NoError(t, tr.Sample(ctx))
	clock.step(5 * time.Second)
	player.current = 90
	require.NoError(t, tr.Sample(ctx))
	clock.step(5 * time.Second)
	player.current = 95
	require.NoError(t, tr.Sample(ctx))

	require.Len(t, store.saved, 4)
	assert.False(t, store.saved[0].Completed)
	assert.False(t, store.saved[1].Completed)
	assert.True(t, store.saved[2].Completed)
	assert.True(t, store.saved[3].Completed)
	assert.Equal(t, 89, store.saved[1].Position)
	assert.Equal(t, 20, store.saved[3].WatchTime)
	assert.Equal(t, 1, completions)
}

func TestSampleSkipsWhenPausedOrAtStart(t *testing.T) {
	store := &memStore{}
	player := &fakePlayer{duration: 100}
	tr := New(1, 1, player, store, Options{})

	player.current = 40
	require.NoError(t, tr.Sample(context.Background()))
	assert.Empty(t, store.saved)

	player.playing = true
	player.current = 0
	require.NoError(t, tr.Sample(context.Background()))
	assert.Empty(t, store.saved)
}

func TestSampleSwallowsSaveErrorButStillSignals(t *testing.T) {
	logger := &recordingLogger{}
	store := &memStore{saveErr: errors.New("write failed")}
	player := &fakePlayer{duration: 100, current: 99, playing: true}
	done := false
	tr := New(1, 1, player, store, Options{Logger: logger, OnComplete: func() { done = true }})

	assert.Error(t, tr.Sample(context.Background()))
	assert.Len(t, logger.errs, 1)
	assert.True(t, done)
}

func TestEndedPersistsCompletion(t *testing.T) {
	store := &memStore{}
	player := &fakePlayer{duration: 312.6}
	completions := 0
	tr := New(1, 9, player, store, Options{OnComplete: func() { completions++ }})

	require.NoError(t, tr.Ended(context.Background()))
	require.NoError(t, tr.Ended(context.Background()))

	require.Len(t, store.saved, 2)
	assert.True(t, store.saved[0].Completed)
	assert.Equal(t, 312, store.saved[0].Position)
	assert.Equal(t, 1, completions)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &memStore{}
	player := &fakePlayer{duration: 100, current: 10, playing: true}
	tr := New(1, 1, player, store, Options{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotEmpty(t, store.saved)
}
