package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory builds a controller for a new session id.
type Factory func(id string) *Controller

type session struct {
	controller *Controller
	lastSeen   time.Time
}

// Registry keeps sessions in memory for the life of the process.
type Registry struct {
	factory Factory
	idle    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry(factory Factory, idle time.Duration) *Registry {
	return &Registry{
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (r *Registry) Create() *Controller {
	id := uuid.NewString()
	c := r.factory(id)

	r.mu.Lock()
	r.sessions[id] = &session{controller: c, lastSeen: r.now()}
	r.mu.Unlock()
	return c
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.controller, true
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict drops sessions idle for longer than the idle timeout. Sessions with
// an operation in flight are kept.
func (r *Registry) Evict() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) && s.controller.State() == StateIdle {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}
