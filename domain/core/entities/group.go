package entities

import "github.com/CivicGraph/demo-server/domain/core/valueobjects"

// Group is one bucket of a grouped show result.
type Group struct {
	Type  valueobjects.CollectionKind `json:"type"`
	Nodes []Document                  `json:"nodes"`
}

// ShowResult is the payload of the show operation.
type ShowResult struct {
	Groups []Group `json:"groups"`
}

// NormalizeGroups returns exactly a vertex group followed by an edge group,
// projecting every document. Missing groups become empty lists and groups of
// any other type are dropped.
func NormalizeGroups(raw []Group) ShowResult {
	byType := make(map[valueobjects.CollectionKind][]Document, 2)
	for _, g := range raw {
		byType[g.Type] = append(byType[g.Type], g.Nodes...)
	}

	result := ShowResult{Groups: make([]Group, 0, 2)}
	for _, kind := range []valueobjects.CollectionKind{valueobjects.KindVertex, valueobjects.KindEdge} {
		nodes := make([]Document, 0, len(byType[kind]))
		for _, d := range byType[kind] {
			nodes = append(nodes, d.Project(kind))
		}
		result.Groups = append(result.Groups, Group{Type: kind, Nodes: nodes})
	}
	return result
}

// Nodes returns the documents of one group type.
func (r ShowResult) Nodes(kind valueobjects.CollectionKind) []Document {
	for _, g := range r.Groups {
		if g.Type == kind {
			return g.Nodes
		}
	}
	return nil
}
