package valueobjects

import (
	"sort"
	"strings"
)

// Selection names the part of a session the evstore service should read:
// either whole collections or specific keys grouped by kind.
type Selection struct {
	session SessionID
	kinds   []CollectionKind
	keys    map[CollectionKind][]string
}

// WholeSession selects both collections of a session.
func WholeSession(session SessionID) Selection {
	return Selection{session: session, kinds: []CollectionKind{KindVertex, KindEdge}}
}

// WholeCollection selects a single session collection.
func WholeCollection(session SessionID, kind CollectionKind) Selection {
	return Selection{session: session, kinds: []CollectionKind{kind}}
}

// SelectNodes selects specific documents. Every ref is re-scoped to session,
// duplicate keys are collapsed and first-seen order is kept per kind.
func SelectNodes(session SessionID, refs ...NodeRef) Selection {
	sel := Selection{session: session, keys: make(map[CollectionKind][]string)}
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		id := ref.In(session).String()
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := sel.keys[ref.Kind]; !ok {
			sel.kinds = append(sel.kinds, ref.Kind)
		}
		sel.keys[ref.Kind] = append(sel.keys[ref.Kind], ref.Key)
	}
	sort.Slice(sel.kinds, func(i, j int) bool { return sel.kinds[i] < sel.kinds[j] })
	return sel
}

// Session returns the session the selection is scoped to.
func (s Selection) Session() SessionID { return s.session }

// IsWhole reports whether whole collections are selected.
func (s Selection) IsWhole() bool { return s.keys == nil }

// Kinds lists the selected collection kinds.
func (s Selection) Kinds() []CollectionKind { return s.kinds }

// Keys lists the selected keys of one kind. Nil for whole-collection selections.
func (s Selection) Keys(kind CollectionKind) []string { return s.keys[kind] }

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return len(s.kinds) == 0 }

// Path renders the evstore path expression, e.g.
//
//	/c/demo_abc_{vertex,edge}
//	/n/demo_abc_vertex/k1
//	/n/demo_abc_{edge/e1,vertex/{k1,k2}}
func (s Selection) Path() string {
	prefix := SessionCollectionPrefix + s.session.String() + "_"

	if s.IsWhole() {
		names := make([]string, len(s.kinds))
		for i, k := range s.kinds {
			names[i] = string(k)
		}
		return "/c/" + prefix + braces(names)
	}

	parts := make([]string, len(s.kinds))
	for i, k := range s.kinds {
		parts[i] = string(k) + "/" + braces(s.keys[k])
	}
	return "/n/" + prefix + braces(parts)
}

func braces(items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	return "{" + strings.Join(items, ",") + "}"
}
