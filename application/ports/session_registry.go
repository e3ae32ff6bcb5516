package ports

import (
	"context"
	"time"

	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

// SessionState is the explicit lifecycle marker of a session.
type SessionState string

const (
	// SessionAbsent means the registry has never seen the session.
	SessionAbsent SessionState = ""
	// SessionInitializing means seeding started and has not completed.
	SessionInitializing SessionState = "initializing"
	// SessionReady means the session's collections hold its working copy.
	SessionReady SessionState = "ready"
)

// SessionRegistry records whether a session has been initialized and
// arbitrates which process may initialize it.
type SessionRegistry interface {
	Ping(ctx context.Context) error
	State(ctx context.Context, session valueobjects.SessionID) (SessionState, error)
	SetState(ctx context.Context, session valueobjects.SessionID, state SessionState) error
	// AcquireInitLease returns false when another owner holds an unexpired lease.
	AcquireInitLease(ctx context.Context, session valueobjects.SessionID, owner string, ttl time.Duration) (bool, error)
	// ReleaseInitLease drops the lease if owner still holds it.
	ReleaseInitLease(ctx context.Context, session valueobjects.SessionID, owner string) error
}
