package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrAttemptNotFound = errors.New("quiz attempt not found")

// Attempt is a running quiz owned by one user for one lesson.
type Attempt struct {
	ID        string
	UserID    uint
	LessonID  uint
	Engine    *Engine
	StartedAt time.Time
}

// Registry keeps in-flight attempts in memory.
type Registry struct {
	mu       sync.RWMutex
	attempts map[string]*Attempt
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{attempts: make(map[string]*Attempt), now: time.Now}
}

// Add stores a new attempt and drops any earlier attempt of the same user
// on the same lesson.
func (r *Registry) Add(userID, lessonID uint, engine *Engine) *Attempt {
	a := &Attempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		LessonID:  lessonID,
		Engine:    engine,
		StartedAt: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, old := range r.attempts {
		if old.UserID == userID && old.LessonID == lessonID {
			old.Engine.Close()
			delete(r.attempts, id)
		}
	}
	r.attempts[a.ID] = a
	return a
}

// Get returns the attempt when it exists and belongs to userID.
func (r *Registry) Get(id string, userID uint) (*Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok || a.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[id]; ok {
		a.Engine.Close()
		delete(r.attempts, id)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}

// Prune removes attempts started more than maxAge ago and returns how many
// were dropped.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, a := range r.attempts {
		if a.StartedAt.Before(cutoff) {
			a.Engine.Close()
			delete(r.attempts, id)
			removed++
		}
	}
	return removed
}
