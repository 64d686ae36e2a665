package quiz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func sampleQuestions() []Question {
	return []Question{
		{ID: 1, Type: "multiple_choice", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Points: 1},
		{ID: 2, Type: "true_false", Prompt: "Sky is green", Options: []string{"true", "false"}, CorrectAnswer: "false", Points: 2},
		{ID: 3, Type: "text", Prompt: "Capital of France", CorrectAnswer: "Paris", Explanation: "It is Paris.", Points: 7},
	}
}

func TestEngineScoresPassingRun(t *testing.T) {
	clock := newManualClock()
	var calls []Outcome
	e, err := New(sampleQuestions(), Options{Clock: clock, OnComplete: func(o Outcome) { calls = append(calls, o) }})
	require.NoError(t, err)

	res, err := e.Submit("4")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, res.Awarded)

	_, err = e.Next()
	require.NoError(t, err)
	res, err = e.Submit("true")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "false", res.CorrectAnswer)

	_, err = e.Next()
	require.NoError(t, err)
	_, err = e.Submit("Paris")
	require.NoError(t, err)

	view, err := e.Next()
	require.NoError(t, err)
	assert.Equal(t, StateFinished, view.State)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, 8, view.Outcome.Score)
	assert.Equal(t, 10, view.Outcome.MaxScore)
	assert.InDelta(t, 80.0, view.Outcome.Percentage, 0.0001)
	assert.True(t, view.Outcome.Passed)

	require.Len(t, calls, 1)
	assert.Equal(t, 8, calls[0].Score)
	assert.True(t, calls[0].Passed)
}

func TestEnginePercentageMatchesAwardedPoints(t *testing.T) {
	cases := []struct {
		answers []string
		want    float64
		passed  bool
	}{
		{[]string{"4", "false", "Paris"}, 100, true},
		{[]string{"3", "false", "Paris"}, 90, true},
		{[]string{"4", "false", "Rome"}, 30, false},
		{[]string{"3", "true", "paris"}, 0, false},
	}
	for _, tc := range cases {
		e, err := New(sampleQuestions(), Options{Clock: newManualClock()})
		require.NoError(t, err)
		for _, a := range tc.answers {
			_, err := e.Submit(a)
			require.NoError(t, err)
			_, err = e.Next()
			require.NoError(t, err)
		}
		out, ok := e.Outcome()
		require.True(t, ok)
		assert.InDelta(t, tc.want, out.Percentage, 0.0001)
		assert.Equal(t, tc.passed, out.Passed)
	}
}

func TestEnginePassBoundaryIsInclusive(t *testing.T) {
	questions := []Question{
		{ID: 1, CorrectAnswer: "a", Points: 7},
		{ID: 2, CorrectAnswer: "b", Points: 3},
	}
	e, err := New(questions, Options{Clock: newManualClock()})
	require.NoError(t, err)

	_, _ = e.Submit("a")
	_, _ = e.Next()
	_, _ = e.Submit("wrong")
	_, _ = e.Next()

	out, ok := e.Outcome()
	require.True(t, ok)
	assert.Equal(t, 70.0, out.Percentage)
	assert.True(t, out.Passed)
}

func TestEngineSubmitIsLatchedPerQuestion(t *testing.T) {
	e, err := New(sampleQuestions(), Options{Clock: newManualClock()})
	require.NoError(t, err)

	_, err = e.Submit("4")
	require.NoError(t, err)
	_, err = e.Submit("4")
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	_, err = e.Submit("3")
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	assert.Equal(t, 1, e.View().Score)
}

func TestEngineRejectsEmptyAnswerAndSkipping(t *testing.T) {
	e, err := New(sampleQuestions(), Options{Clock: newManualClock()})
	require.NoError(t, err)

	_, err = e.Submit("")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	assert.Equal(t, StateAnswering, e.State())

	_, err = e.Next()
	assert.ErrorIs(t, err, ErrNotAnswered)
}

func TestEngineTimerExpiryFinishesWithUnansweredQuestions(t *testing.T) {
	clock := newManualClock()
	e, err := New(sampleQuestions(), Options{Clock: clock})
	require.NoError(t, err)

	_, err = e.Submit("4")
	require.NoError(t, err)
	assert.Equal(t, 300, e.TimeLeft())

	clock.Advance(299 * time.Second)
	assert.Equal(t, 1, e.TimeLeft())
	assert.Equal(t, StateRevealed, e.State())

	clock.Advance(time.Second)
	assert.Equal(t, StateFinished, e.State())
	assert.Equal(t, 0, e.TimeLeft())

	out, ok := e.Outcome()
	require.True(t, ok)
	assert.True(t, out.TimedOut)
	assert.Equal(t, 1, out.Answered)
	assert.InDelta(t, 10.0, out.Percentage, 0.0001)
	assert.False(t, out.Passed)
}

func TestEngineLateSubmitIsNotScored(t *testing.T) {
	clock := newManualClock()
	e, err := New(sampleQuestions(), Options{Clock: clock})
	require.NoError(t, err)

	// move time without firing the timer, as if the answer raced the countdown
	clock.mu.Lock()
	clock.now = clock.now.Add(301 * time.Second)
	clock.mu.Unlock()

	_, err = e.Submit("4")
	assert.ErrorIs(t, err, ErrTimeUp)
	out, ok := e.Outcome()
	require.True(t, ok)
	assert.Equal(t, 0, out.Score)

	_, err = e.Submit("4")
	assert.ErrorIs(t, err, ErrFinished)
}

func TestEngineRestartAfterFailure(t *testing.T) {
	clock := newManualClock()
	e, err := New(sampleQuestions(), Options{Clock: clock})
	require.NoError(t, err)

	clock.Advance(300 * time.Second)
	require.Equal(t, StateFinished, e.State())

	require.NoError(t, e.Restart())
	view := e.View()
	assert.Equal(t, StateAnswering, view.State)
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, 0, view.Score)
	assert.Equal(t, 300, view.TimeLeft)
	assert.Nil(t, view.Outcome)

	// the first timer is gone, the new one expires 300s after restart
	clock.Advance(200 * time.Second)
	assert.Equal(t, StateAnswering, e.State())
	clock.Advance(100 * time.Second)
	assert.Equal(t, StateFinished, e.State())
}

func TestEngineRestartRules(t *testing.T) {
	e, err := New(sampleQuestions(), Options{Clock: newManualClock()})
	require.NoError(t, err)
	assert.ErrorIs(t, e.Restart(), ErrNotFinished)

	for _, a := range []string{"4", "false", "Paris"} {
		_, _ = e.Submit(a)
		_, _ = e.Next()
	}
	assert.ErrorIs(t, e.Restart(), ErrAlreadyPassed)
}

func TestEngineFailureDoesNotCallOnComplete(t *testing.T) {
	called := false
	e, err := New(sampleQuestions(), Options{Clock: newManualClock(), OnComplete: func(Outcome) { called = true }})
	require.NoError(t, err)

	for _, a := range []string{"3", "true", "Rome"} {
		_, _ = e.Submit(a)
		_, _ = e.Next()
	}
	assert.False(t, called)
}

func TestEngineViewHidesAnswerUntilRevealed(t *testing.T) {
	e, err := New(sampleQuestions(), Options{Clock: newManualClock()})
	require.NoError(t, err)

	view := e.View()
	require.NotNil(t, view.Question)
	assert.Equal(t, "2+2?", view.Question.Prompt)
	assert.Nil(t, view.Result)

	_, _ = e.Submit("4")
	view = e.View()
	require.NotNil(t, view.Result)
	assert.Equal(t, "4", view.Result.CorrectAnswer)
}

func TestNewRejectsUnscorableQuizzes(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = New([]Question{{ID: 1, CorrectAnswer: "a", Points: 0}}, Options{})
	assert.ErrorIs(t, err, ErrNoPoints)
}
