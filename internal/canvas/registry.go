package canvas

import (
	"context"
	"sync"
	"time"

	"floorplan-studio-backend/internal/persistence"
)

// Registry hands out one open Session per project.
type Registry struct {
	svc   *persistence.Service
	delay time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	opening  map[string]*pendingOpen
}

// pendingOpen is a session being loaded; done closes once s or err is set.
type pendingOpen struct {
	done chan struct{}
	s    *Session
	err  error
}

func NewRegistry(svc *persistence.Service, autosaveDelay time.Duration) *Registry {
	return &Registry{
		svc:      svc,
		delay:    autosaveDelay,
		sessions: make(map[string]*Session),
		opening:  make(map[string]*pendingOpen),
	}
}

// Session returns the project's session, opening it on first use. Loading
// runs outside the registry lock; concurrent callers for the same project
// wait for the one load in flight.
func (r *Registry) Session(ctx context.Context, projectID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[projectID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	if op, ok := r.opening[projectID]; ok {
		r.mu.Unlock()
		select {
		case <-op.done:
			return op.s, op.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	op := &pendingOpen{done: make(chan struct{})}
	r.opening[projectID] = op
	r.mu.Unlock()

	s := NewSession(projectID, r.svc, r.delay)
	if _, err := s.Open(ctx); err != nil {
		s.Close(ctx)
		op.err = err
	} else {
		op.s = s
	}

	r.mu.Lock()
	delete(r.opening, projectID)
	if op.err == nil {
		r.sessions[projectID] = s
	}
	r.mu.Unlock()
	close(op.done)
	return op.s, op.err
}

// Lookup returns an already open session.
func (r *Registry) Lookup(projectID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[projectID]
	return s, ok
}

// Persistence exposes the shared persistence service.
func (r *Registry) Persistence() *persistence.Service { return r.svc }

// Close flushes and closes every session.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close(ctx)
	}
}
