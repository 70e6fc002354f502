package api

import (
	"RouteGrader/monitor"
	"RouteGrader/session"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

type instance struct {
	mu         sync.Mutex
	id         string
	sess       *session.Session
	lastActive time.Time
}

// Registry holds the open grading sessions. A session is used by one request
// at a time and is released after it has been idle for the configured
// timeout.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*instance
	idleTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewRegistry(idleTimeout time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions:    map[string]*instance{},
		idleTimeout: idleTimeout,
		now:         time.Now,
		log:         log,
	}
}

// Alloc registers s and returns its id.
func (r *Registry) Alloc(s *session.Session) string {
	inst := &instance{
		id:         uuid.NewString(),
		sess:       s,
		lastActive: r.now(),
	}
	r.mu.Lock()
	r.sessions[inst.id] = inst
	r.mu.Unlock()
	monitor.SessionsActive.Inc()
	return inst.id
}

// With runs fn on the session id while holding its lock.
func (r *Registry) With(id string, fn func(*session.Session) error) error {
	r.mu.RLock()
	inst, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.lastActive = r.now()
	return fn(inst.sess)
}

func (r *Registry) Release(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		monitor.SessionsActive.Dec()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// releaseIdle drops every session that has not been used within the idle
// timeout and returns how many were released.
func (r *Registry) releaseIdle() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	now := r.now()
	r.mu.RLock()
	var idle []string
	for id, inst := range r.sessions {
		if !inst.mu.TryLock() {
			continue
		}
		if now.Sub(inst.lastActive) > r.idleTimeout {
			idle = append(idle, id)
		}
		inst.mu.Unlock()
	}
	r.mu.RUnlock()
	released := 0
	for _, id := range idle {
		if r.Release(id) {
			released++
			r.log.Info("idle session released", zap.String("session", id))
		}
	}
	return released
}

// IdleMonitor releases idle sessions until ctx is cancelled.
func (r *Registry) IdleMonitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.releaseIdle()
		}
	}
}
