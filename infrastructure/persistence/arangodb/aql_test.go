package arangodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicGraph/demo-server/application/ports"
)

func TestBuildTraversalFromRootCollection(t *testing.T) {
	query, bind, err := buildTraversal(ports.TraversalSpec{
		StartCollection:   "evstore_test_stars",
		MinDepth:          0,
		MaxDepth:          1,
		Graph:             "evstore_test_ss_lineage",
		VertexCollections: []string{"evstore_test_planets", "evstore_test_stars"},
	})

	require.NoError(t, err)
	assert.Equal(t, "LET start = FIRST(FOR s IN @@startCollection LIMIT 1 RETURN s)\n"+
		"FOR v, e IN @minDepth..@maxDepth OUTBOUND start GRAPH @graph\n"+
		"  FILTER PARSE_IDENTIFIER(v).collection IN @vertexCollections\n"+
		"  RETURN { v, e }", query)
	assert.Equal(t, map[string]interface{}{
		"@startCollection":  "evstore_test_stars",
		"minDepth":          0,
		"maxDepth":          1,
		"graph":             "evstore_test_ss_lineage",
		"vertexCollections": []string{"evstore_test_planets", "evstore_test_stars"},
	}, bind)
}

func TestBuildTraversalOverEdgeCollection(t *testing.T) {
	query, bind, err := buildTraversal(ports.TraversalSpec{
		StartID:        "demo_abc_vertex/k1",
		MinDepth:       0,
		MaxDepth:       10,
		EdgeCollection: "demo_abc_edge",
	})

	require.NoError(t, err)
	assert.Equal(t, "FOR v, e IN @minDepth..@maxDepth OUTBOUND @start @@edgeCollection\n  RETURN { v, e }", query)
	assert.Equal(t, "demo_abc_vertex/k1", bind["start"])
	assert.Equal(t, "demo_abc_edge", bind["@edgeCollection"])
	assert.Equal(t, 10, bind["maxDepth"])
}

func TestBuildTraversalRejectsAmbiguousSpec(t *testing.T) {
	specs := []ports.TraversalSpec{
		{Graph: "g"},
		{StartID: "a/1", StartCollection: "a", Graph: "g"},
		{StartID: "a/1"},
		{StartID: "a/1", Graph: "g", EdgeCollection: "e"},
	}
	for _, spec := range specs {
		_, _, err := buildTraversal(spec)
		assert.ErrorIs(t, err, errBadTraversal)
	}
}

func TestBuildFirstExample(t *testing.T) {
	query, bind := buildFirstExample("demo_abc_edge", map[string]interface{}{"_to": "demo_abc_vertex/k"})

	assert.Contains(t, query, "MATCHES(d, @example)")
	assert.Equal(t, "demo_abc_edge", bind["@collection"])
}
