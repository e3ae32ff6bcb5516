package arangodb

import (
	"errors"

	"github.com/CivicGraph/demo-server/application/ports"
)

var errBadTraversal = errors.New("traversal needs one start (id or collection) and one edge source (graph or edge collection)")

// buildTraversal renders an outbound traversal as AQL plus bind variables.
func buildTraversal(spec ports.TraversalSpec) (string, map[string]interface{}, error) {
	if (spec.StartID == "") == (spec.StartCollection == "") || (spec.Graph == "") == (spec.EdgeCollection == "") {
		return "", nil, errBadTraversal
	}

	bind := map[string]interface{}{
		"minDepth": spec.MinDepth,
		"maxDepth": spec.MaxDepth,
	}

	query := ""
	start := "@start"
	if spec.StartCollection != "" {
		query += "LET start = FIRST(FOR s IN @@startCollection LIMIT 1 RETURN s)\n"
		bind["@startCollection"] = spec.StartCollection
		start = "start"
	} else {
		bind["start"] = spec.StartID
	}

	query += "FOR v, e IN @minDepth..@maxDepth OUTBOUND " + start
	if spec.Graph != "" {
		query += " GRAPH @graph\n"
		bind["graph"] = spec.Graph
	} else {
		query += " @@edgeCollection\n"
		bind["@edgeCollection"] = spec.EdgeCollection
	}

	if len(spec.VertexCollections) > 0 {
		query += "  FILTER PARSE_IDENTIFIER(v).collection IN @vertexCollections\n"
		bind["vertexCollections"] = spec.VertexCollections
	}
	query += "  RETURN { v, e }"
	return query, bind, nil
}

// buildFirstExample renders a lookup of the first document matching example.
func buildFirstExample(collection string, example map[string]interface{}) (string, map[string]interface{}) {
	return "FOR d IN @@collection FILTER MATCHES(d, @example) LIMIT 1 RETURN d",
		map[string]interface{}{"@collection": collection, "example": example}
}
