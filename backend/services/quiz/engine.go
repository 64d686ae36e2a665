// Package quiz runs a timed, scored quiz over a fixed list of questions.
//
// An Engine moves through answering(i) -> revealed(i) -> answering(i+1) and
// ends in finished, either after the last question or when the countdown
// runs out. Each question accepts exactly one answer.
package quiz

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTimeLimit      = 300 * time.Second
	DefaultPassPercentage = 70.0
)

var (
	ErrNoQuestions     = errors.New("quiz has no questions")
	ErrNoPoints        = errors.New("quiz questions are worth no points")
	ErrEmptyAnswer     = errors.New("answer is empty")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNotAnswered     = errors.New("current question has not been answered")
	ErrFinished        = errors.New("quiz is finished")
	ErrTimeUp          = errors.New("time is up")
	ErrNotFinished     = errors.New("quiz is still running")
	ErrAlreadyPassed   = errors.New("quiz already passed")
)

type State string

const (
	StateAnswering State = "answering"
	StateRevealed  State = "revealed"
	StateFinished  State = "finished"
)

type Question struct {
	ID            uint
	Type          string
	Prompt        string
	Options       []string
	CorrectAnswer string
	Explanation   string
	Points        int
}

// Result is what the learner sees after submitting an answer.
type Result struct {
	QuestionID    uint   `json:"question_id"`
	Answer        string `json:"answer"`
	Correct       bool   `json:"correct"`
	Awarded       int    `json:"awarded"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

type Outcome struct {
	Score      int     `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Answered   int     `json:"answered"`
	TimedOut   bool    `json:"timed_out"`
}

type Options struct {
	TimeLimit      time.Duration
	PassPercentage float64
	Clock          Clock
	// OnComplete runs once per passing attempt, outside the engine lock.
	OnComplete func(Outcome)
}

type Engine struct {
	mu        sync.Mutex
	questions []Question
	maxScore  int
	opts      Options

	state    State
	index    int
	score    int
	results  []*Result
	deadline time.Time
	timer    Timer
	outcome  *Outcome
}

// New validates the questions and starts the countdown.
func New(questions []Question, opts Options) (*Engine, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	total := 0
	for _, q := range questions {
		if q.Points > 0 {
			total += q.Points
		}
	}
	if total == 0 {
		return nil, ErrNoPoints
	}
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = DefaultTimeLimit
	}
	if opts.PassPercentage <= 0 {
		opts.PassPercentage = DefaultPassPercentage
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}

	e := &Engine{
		questions: append([]Question(nil), questions...),
		maxScore:  total,
		opts:      opts,
	}
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	return e, nil
}

func (e *Engine) resetLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.state = StateAnswering
	e.index = 0
	e.score = 0
	e.results = make([]*Result, len(e.questions))
	e.outcome = nil
	e.deadline = e.opts.Clock.Now().Add(e.opts.TimeLimit)
	e.timer = e.opts.Clock.AfterFunc(e.opts.TimeLimit, e.expire)
}

func (e *Engine) expire() {
	e.mu.Lock()
	if e.state == StateFinished || e.opts.Clock.Now().Before(e.deadline) {
		e.mu.Unlock()
		return
	}
	done := e.finishLocked(true)
	e.mu.Unlock()
	e.notify(done)
}

func (e *Engine) expiredLocked() bool {
	return !e.opts.Clock.Now().Before(e.deadline)
}

// finishLocked freezes the score. It returns the outcome to report when the
// attempt passed, nil otherwise.
func (e *Engine) finishLocked(timedOut bool) *Outcome {
	if e.timer != nil {
		e.timer.Stop()
	}
	answered := 0
	for _, r := range e.results {
		if r != nil {
			answered++
		}
	}
	pct := float64(e.score) * 100 / float64(e.maxScore)
	out := Outcome{
		Score:      e.score,
		MaxScore:   e.maxScore,
		Percentage: pct,
		Passed:     pct >= e.opts.PassPercentage,
		Answered:   answered,
		TimedOut:   timedOut,
	}
	e.state = StateFinished
	e.outcome = &out
	if out.Passed {
		return &out
	}
	return nil
}

func (e *Engine) notify(out *Outcome) {
	if out != nil && e.opts.OnComplete != nil {
		e.opts.OnComplete(*out)
	}
}

// Submit scores an answer for the current question. Answers that arrive
// after the deadline are not scored; the quiz finishes and ErrTimeUp is
// returned instead.
func (e *Engine) Submit(answer string) (Result, error) {
	e.mu.Lock()
	if e.state == StateFinished {
		e.mu.Unlock()
		return Result{}, ErrFinished
	}
	if e.expiredLocked() {
		done := e.finishLocked(true)
		e.mu.Unlock()
		e.notify(done)
		return Result{}, ErrTimeUp
	}
	defer e.mu.Unlock()

	if e.state == StateRevealed {
		return Result{}, ErrAlreadyAnswered
	}
	if answer == "" {
		return Result{}, ErrEmptyAnswer
	}

	q := e.questions[e.index]
	res := Result{
		QuestionID:    q.ID,
		Answer:        answer,
		Correct:       answer == q.CorrectAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	if res.Correct && q.Points > 0 {
		res.Awarded = q.Points
		e.score += q.Points
	}
	e.results[e.index] = &res
	e.state = StateRevealed
	return res, nil
}

// Next leaves the revealed state, either for the next question or for the
// final result.
func (e *Engine) Next() (View, error) {
	e.mu.Lock()
	if e.state == StateFinished {
		v := e.viewLocked()
		e.mu.Unlock()
		return v, ErrFinished
	}
	if e.expiredLocked() {
		done := e.finishLocked(true)
		v := e.viewLocked()
		e.mu.Unlock()
		e.notify(done)
		return v, ErrTimeUp
	}
	if e.state != StateRevealed {
		v := e.viewLocked()
		e.mu.Unlock()
		return v, ErrNotAnswered
	}

	var done *Outcome
	if e.index+1 < len(e.questions) {
		e.index++
		e.state = StateAnswering
	} else {
		done = e.finishLocked(false)
	}
	v := e.viewLocked()
	e.mu.Unlock()
	e.notify(done)
	return v, nil
}

// Restart zeroes a failed attempt and restarts the countdown.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateFinished {
		return ErrNotFinished
	}
	if e.outcome != nil && e.outcome.Passed {
		return ErrAlreadyPassed
	}
	e.resetLocked()
	return nil
}

// Close stops the countdown without finishing the quiz.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Outcome returns the final result once the quiz is finished.
func (e *Engine) Outcome() (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome == nil {
		return Outcome{}, false
	}
	return *e.outcome, true
}

// TimeLeft is the remaining countdown in whole seconds, rounded up.
func (e *Engine) TimeLeft() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeLeftLocked()
}

func (e *Engine) timeLeftLocked() int {
	if e.state == StateFinished {
		return 0
	}
	left := e.deadline.Sub(e.opts.Clock.Now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// PublicQuestion is a question without its answer.
type PublicQuestion struct {
	ID      uint     `json:"id"`
	Type    string   `json:"type"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

type View struct {
	State    State           `json:"state"`
	Index    int             `json:"index"`
	Total    int             `json:"total"`
	Score    int             `json:"score"`
	TimeLeft int             `json:"time_left"`
	Question *PublicQuestion `json:"question,omitempty"`
	Result   *Result         `json:"result,omitempty"`
	Outcome  *Outcome        `json:"outcome,omitempty"`
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	v := View{
		State:    e.state,
		Index:    e.index,
		Total:    len(e.questions),
		Score:    e.score,
		TimeLeft: e.timeLeftLocked(),
	}
	if e.state == StateFinished {
		out := *e.outcome
		v.Outcome = &out
		return v
	}
	q := e.questions[e.index]
	v.Question = &PublicQuestion{
		ID:      q.ID,
		Type:    q.Type,
		Prompt:  q.Prompt,
		Options: q.Options,
		Points:  q.Points,
	}
	if e.state == StateRevealed {
		res := *e.results[e.index]
		v.Result = &res
	}
	return v
}
