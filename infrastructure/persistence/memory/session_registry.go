package memory

import (
	"context"
	"sync"
	"time"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// SessionRegistry keeps session states and init leases in process memory.
// Expired leases are reclaimed lazily on acquire.
type SessionRegistry struct {
	mu     sync.Mutex
	states map[string]ports.SessionState
	leases map[string]lease
	now    func() time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		states: make(map[string]ports.SessionState),
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (r *SessionRegistry) Ping(ctx context.Context) error { return nil }

func (r *SessionRegistry) State(ctx context.Context, session valueobjects.SessionID) (ports.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[session.String()], nil
}

func (r *SessionRegistry) SetState(ctx context.Context, session valueobjects.SessionID, state ports.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state == ports.SessionAbsent {
		delete(r.states, session.String())
		return nil
	}
	r.states[session.String()] = state
	return nil
}

func (r *SessionRegistry) AcquireInitLease(ctx context.Context, session valueobjects.SessionID, owner string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if l, ok := r.leases[session.String()]; ok && l.owner != owner && now.Before(l.expiresAt) {
		return false, nil
	}
	r.leases[session.String()] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (r *SessionRegistry) ReleaseInitLease(ctx context.Context, session valueobjects.SessionID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leases[session.String()]; ok && l.owner == owner {
		delete(r.leases, session.String())
	}
	return nil
}
