package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simp-lee/gamelib/internal/module/auth"
	"github.com/simp-lee/gamelib/internal/workflow"
)

// WorkflowFactory builds the workflow of a new session, subscribed to session.
type WorkflowFactory func(session *auth.Session) *workflow.Workflow

type sessionState struct {
	wf       *workflow.Workflow
	auth     *auth.Session
	lastSeen time.Time
}

// Registry keeps one workflow and auth session per client session id and
// evicts sessions that have been idle longer than the configured timeout.
type Registry struct {
	newWorkflow WorkflowFactory
	idle        time.Duration
	now         func() time.Time
	log         *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewRegistry creates a Registry. Panics if factory is nil or idle is not positive.
func NewRegistry(factory WorkflowFactory, idle time.Duration, log *slog.Logger) *Registry {
	if factory == nil {
		panic("search.NewRegistry: workflow factory must not be nil")
	}
	if idle <= 0 {
		panic("search.NewRegistry: idle timeout must be positive")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		newWorkflow: factory,
		idle:        idle,
		now:         time.Now,
		log:         log,
		sessions:    make(map[string]*sessionState),
	}
}

// Get returns the workflow and auth session for id, creating them on first use.
func (r *Registry) Get(id string) (*workflow.Workflow, *auth.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		sess := auth.NewSession()
		s = &sessionState{wf: r.newWorkflow(sess), auth: sess}
		r.sessions[id] = s
	}
	s.lastSeen = r.now()
	return s.wf, s.auth
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and forgets every session idle for longer than the timeout.
// It returns the number of evicted sessions.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []*workflow.Workflow
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.wf)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, wf := range expired {
		wf.Close()
	}
	if len(expired) > 0 {
		r.log.Debug("evicted idle search sessions", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes and forgets all sessions.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*sessionState)
	r.mu.Unlock()

	for _, s := range sessions {
		s.wf.Close()
	}
}
