package events

import "time"

const (
	TypeSessionInitialized = "session.initialized"
	TypeChildrenAdded      = "session.children_added"
	TypeNodeEdited         = "session.node_edited"
	TypeSubtreeRemoved     = "session.subtree_removed"
)

// SessionInitialized is raised once a session has been seeded from the
// canonical graph (or adopted with pre-existing data).
type SessionInitialized struct {
	BaseEvent
	Nodes   int  `json:"nodes"`
	Edges   int  `json:"edges"`
	Adopted bool `json:"adopted,omitempty"`
}

func NewSessionInitialized(session string, nodes, edges int, adopted bool, at time.Time) SessionInitialized {
	return SessionInitialized{
		BaseEvent: newBase(session, TypeSessionInitialized, at),
		Nodes:     nodes,
		Edges:     edges,
		Adopted:   adopted,
	}
}

// ChildrenAdded is raised after children were attached to a parent node.
type ChildrenAdded struct {
	BaseEvent
	ParentID string   `json:"parent_id"`
	ChildIDs []string `json:"child_ids"`
}

func NewChildrenAdded(session, parentID string, childIDs []string, at time.Time) ChildrenAdded {
	return ChildrenAdded{
		BaseEvent: newBase(session, TypeChildrenAdded, at),
		ParentID:  parentID,
		ChildIDs:  childIDs,
	}
}

// NodeEdited is raised after a node was replaced.
type NodeEdited struct {
	BaseEvent
	NodeID string `json:"node_id"`
}

func NewNodeEdited(session, nodeID string, at time.Time) NodeEdited {
	return NodeEdited{BaseEvent: newBase(session, TypeNodeEdited, at), NodeID: nodeID}
}

// SubtreeRemoved is raised after a cascading delete.
type SubtreeRemoved struct {
	BaseEvent
	RootID       string `json:"root_id"`
	NodesRemoved int    `json:"nodes_removed"`
	EdgesRemoved int    `json:"edges_removed"`
}

func NewSubtreeRemoved(session, rootID string, nodes, edges int, at time.Time) SubtreeRemoved {
	return SubtreeRemoved{
		BaseEvent:    newBase(session, TypeSubtreeRemoved, at),
		RootID:       rootID,
		NodesRemoved: nodes,
		EdgesRemoved: edges,
	}
}
