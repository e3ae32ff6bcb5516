package valueobjects

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNodeRef is returned when an id is not of the form
// demo_<session>_<kind>/<key>.
var ErrInvalidNodeRef = errors.New("invalid node id")

// NodeRef addresses one document inside a session collection. Its textual
// form is the store id: demo_<session>_<kind>/<key>.
type NodeRef struct {
	Session SessionID
	Kind    CollectionKind
	Key     string
}

// NewNodeRef builds a reference to key inside the session's kind collection.
func NewNodeRef(session SessionID, kind CollectionKind, key string) NodeRef {
	return NodeRef{Session: session, Kind: kind, Key: key}
}

// ParseNodeRef is the inverse of NodeRef.String. The session may itself
// contain underscores; the kind is whatever follows the last one.
func ParseNodeRef(id string) (NodeRef, error) {
	slash := strings.LastIndex(id, "/")
	if slash <= 0 || slash == len(id)-1 {
		return NodeRef{}, fmt.Errorf("%w: %q", ErrInvalidNodeRef, id)
	}
	collection, key := id[:slash], id[slash+1:]
	if !strings.HasPrefix(collection, SessionCollectionPrefix) {
		return NodeRef{}, fmt.Errorf("%w: %q is not a session collection", ErrInvalidNodeRef, collection)
	}

	underscore := strings.LastIndex(collection, "_")
	if underscore < len(SessionCollectionPrefix) {
		return NodeRef{}, fmt.Errorf("%w: %q", ErrInvalidNodeRef, id)
	}
	kind, err := ParseCollectionKind(collection[underscore+1:])
	if err != nil {
		return NodeRef{}, fmt.Errorf("%w: %v", ErrInvalidNodeRef, err)
	}
	session, err := NewSessionID(collection[len(SessionCollectionPrefix):underscore])
	if err != nil {
		return NodeRef{}, fmt.Errorf("%w: %v", ErrInvalidNodeRef, err)
	}
	return NodeRef{Session: session, Kind: kind, Key: key}, nil
}

// Collection returns the name of the collection holding the document.
func (r NodeRef) Collection() string {
	return CollectionName(r.Session, r.Kind)
}

func (r NodeRef) String() string {
	return r.Collection() + "/" + r.Key
}

// In returns the same kind and key re-scoped to another session.
func (r NodeRef) In(session SessionID) NodeRef {
	r.Session = session
	return r
}

// BelongsTo reports whether the reference points into the session's collections.
func (r NodeRef) BelongsTo(session SessionID) bool {
	return r.Session.Equals(session)
}
