package valueobjects

import (
	"errors"
	"fmt"
)

// ErrUnsupportedKind is returned for a collection kind other than vertex or edge.
var ErrUnsupportedKind = errors.New("unsupported collection kind")

// CollectionKind selects one of the two collections every session owns.
type CollectionKind string

const (
	KindVertex CollectionKind = "vertex"
	KindEdge   CollectionKind = "edge"
)

// SessionCollectionPrefix starts the name of every session collection.
const SessionCollectionPrefix = "demo_"

// ParseCollectionKind validates a kind name.
func ParseCollectionKind(s string) (CollectionKind, error) {
	switch CollectionKind(s) {
	case KindVertex, KindEdge:
		return CollectionKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

func (k CollectionKind) String() string { return string(k) }

// IsEdge reports whether collections of this kind hold edges.
func (k CollectionKind) IsEdge() bool { return k == KindEdge }

// CollectionName returns demo_<session>_<kind>.
func CollectionName(session SessionID, kind CollectionKind) string {
	return SessionCollectionPrefix + session.String() + "_" + string(kind)
}
