package valueobjects

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptySession is returned when no session token was supplied.
	ErrEmptySession = errors.New("session ID cannot be empty")
	// ErrInvalidSession is returned when a token cannot name a collection.
	ErrInvalidSession = errors.New("session ID may only contain letters, digits, '-' and '_'")
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SessionID is the normalized client session token. Hyphens are replaced by
// underscores so the value can be embedded in collection names.
type SessionID struct {
	value string
}

// NewSessionID normalizes a raw token taken from the x-session-id header.
func NewSessionID(raw string) (SessionID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SessionID{}, ErrEmptySession
	}
	normalized := strings.ReplaceAll(raw, "-", "_")
	if !sessionPattern.MatchString(normalized) {
		return SessionID{}, ErrInvalidSession
	}
	return SessionID{value: normalized}, nil
}

// MustSessionID is NewSessionID for constants and tests.
func MustSessionID(raw string) SessionID {
	id, err := NewSessionID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (s SessionID) String() string { return s.value }

// IsZero reports whether the session is unset.
func (s SessionID) IsZero() bool { return s.value == "" }

// Equals compares two sessions.
func (s SessionID) Equals(other SessionID) bool { return s.value == other.value }
