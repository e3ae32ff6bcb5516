// Package redis stores session registry state in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

const defaultPrefix = "lineage:session:"

// releaseScript deletes the lease only while the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionRegistry keeps one state key per session plus a short-lived lease key
// that arbitrates initialization between processes.
type SessionRegistry struct {
	client *redis.Client
	prefix string
}

// NewSessionRegistry connects to redisURL and verifies the connection.
func NewSessionRegistry(redisURL string) (*SessionRegistry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewSessionRegistryWithClient(client), nil
}

// NewSessionRegistryWithClient wraps an existing client.
func NewSessionRegistryWithClient(client *redis.Client) *SessionRegistry {
	return &SessionRegistry{client: client, prefix: defaultPrefix}
}

func (r *SessionRegistry) stateKey(s valueobjects.SessionID) string {
	return r.prefix + s.String() + ":state"
}

func (r *SessionRegistry) leaseKey(s valueobjects.SessionID) string {
	return r.prefix + s.String() + ":lease"
}

func (r *SessionRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *SessionRegistry) State(ctx context.Context, session valueobjects.SessionID) (ports.SessionState, error) {
	val, err := r.client.Get(ctx, r.stateKey(session)).Result()
	if errors.Is(err, redis.Nil) {
		return ports.SessionAbsent, nil
	}
	if err != nil {
		return ports.SessionAbsent, externalError("get_session_state", err)
	}
	return ports.SessionState(val), nil
}

func (r *SessionRegistry) SetState(ctx context.Context, session valueobjects.SessionID, state ports.SessionState) error {
	if state == ports.SessionAbsent {
		if err := r.client.Del(ctx, r.stateKey(session)).Err(); err != nil {
			return externalError("clear_session_state", err)
		}
		return nil
	}
	if err := r.client.Set(ctx, r.stateKey(session), string(state), 0).Err(); err != nil {
		return externalError("set_session_state", err)
	}
	return nil
}

func (r *SessionRegistry) AcquireInitLease(ctx context.Context, session valueobjects.SessionID, owner string, ttl time.Duration) (bool, error) {
	key := r.leaseKey(session)
	ok, err := r.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, externalError("acquire_init_lease", err)
	}
	if ok {
		return true, nil
	}

	holder, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return r.client.SetNX(ctx, key, owner, ttl).Result()
	}
	if err != nil {
		return false, externalError("read_init_lease", err)
	}
	if holder != owner {
		return false, nil
	}
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return false, externalError("extend_init_lease", err)
	}
	return true, nil
}

func (r *SessionRegistry) ReleaseInitLease(ctx context.Context, session valueobjects.SessionID, owner string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.leaseKey(session)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return externalError("release_init_lease", err)
	}
	return nil
}

func externalError(op string, err error) error {
	return apperrors.NewExternalError("redis", err).
		WithDetails(map[string]interface{}{"operation": op})
}

// Close releases the underlying connection pool.
func (r *SessionRegistry) Close() error {
	return r.client.Close()
}
