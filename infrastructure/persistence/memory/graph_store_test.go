package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

type tickingClock struct{ t time.Time }

func (c *tickingClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestTraverseSeedShape(t *testing.T) {
	s := NewSolarSystemStore()

	rows, err := s.Traverse(context.Background(), ports.TraversalSpec{
		StartCollection:   SolarPrefix + "stars",
		MinDepth:          0,
		MaxDepth:          1,
		Graph:             SolarGraph,
		VertexCollections: []string{SolarPrefix + "planets", SolarPrefix + "stars"},
	})

	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, "evstore_test_stars/sun", rows[0].Vertex.ID())
	assert.Nil(t, rows[0].Edge)
	for _, row := range rows[1:] {
		assert.Contains(t, row.Vertex.ID(), "evstore_test_planets/")
		assert.Equal(t, "evstore_test_stars/sun", row.Edge.From())
	}
}

func TestTraverseDepthAndFilter(t *testing.T) {
	s := NewSolarSystemStore()
	ctx := context.Background()

	rows, err := s.Traverse(ctx, ports.TraversalSpec{StartID: "evstore_test_stars/sun", MinDepth: 1, MaxDepth: 2, Graph: SolarGraph})
	require.NoError(t, err)
	assert.Len(t, rows, 10, "8 planets, pluto and the moon")

	rows, err = s.Traverse(ctx, ports.TraversalSpec{StartID: "evstore_test_planets/earth", MinDepth: 1, MaxDepth: 1, Graph: SolarGraph})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Moon", rows[0].Vertex.Body())

	_, err = s.Traverse(ctx, ports.TraversalSpec{StartID: "x/y", MaxDepth: 1, Graph: "missing"})
	assert.Error(t, err)
}

func TestWritesAreJournaled(t *testing.T) {
	clock := &tickingClock{t: time.Unix(1700000000, 0)}
	s := NewGraphStore(WithClock(clock.now))
	ctx := context.Background()
	sid := valueobjects.MustSessionID("abc")
	coll := valueobjects.CollectionName(sid, valueobjects.KindVertex)
	require.NoError(t, s.CreateCollection(ctx, coll, valueobjects.KindVertex))

	require.NoError(t, s.InsertDocuments(ctx, coll, []entities.Document{{"_key": "k1", "Body": "Earth"}}))
	require.NoError(t, s.ReplaceDocument(ctx, coll, entities.Document{"_key": "k1", "Body": "Terra"}))
	require.NoError(t, s.RemoveDocuments(ctx, coll, []entities.Document{{"_key": "k1"}, {"_key": "missing"}}))

	events, err := s.Log(ctx, valueobjects.WholeCollection(sid, valueobjects.KindVertex), ports.LogOptions{Sort: "asc"})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{entities.EventCreated, entities.EventUpdated, entities.EventDeleted},
		[]string{events[0].Event, events[1].Event, events[2].Event})
	assert.Equal(t, "demo_abc_vertex/k1", events[0].Meta.ID)

	var ops []map[string]interface{}
	require.NoError(t, json.Unmarshal(events[1].Command, &ops))
	assert.Contains(t, ops, map[string]interface{}{"op": "add", "path": "/Body", "value": "Terra"})

	n, err := s.CountDocuments(ctx, coll)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestShowAt(t *testing.T) {
	clock := &tickingClock{t: time.Unix(1000, 0)}
	s := NewGraphStore(WithClock(clock.now))
	ctx := context.Background()
	sid := valueobjects.MustSessionID("abc")
	coll := valueobjects.CollectionName(sid, valueobjects.KindVertex)
	require.NoError(t, s.CreateCollection(ctx, coll, valueobjects.KindVertex))

	require.NoError(t, s.InsertDocuments(ctx, coll, []entities.Document{{"_key": "k1", "Body": "v1"}})) // t=1001
	require.NoError(t, s.ReplaceDocument(ctx, coll, entities.Document{"_key": "k1", "Body": "v2"}))   // t=1002

	sel := valueobjects.SelectNodes(sid, valueobjects.NewNodeRef(sid, valueobjects.KindVertex, "k1"))

	before, err := s.ShowAt(ctx, sel, 1000)
	require.NoError(t, err)
	assert.Empty(t, before)

	first, err := s.ShowAt(ctx, sel, 1001.5)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "v1", first[0].Body())

	latest, err := s.ShowAt(ctx, sel, 5000)
	require.NoError(t, err)
	assert.Equal(t, "v2", latest[0].Body())
}

func TestGroupedLogLimitsGroups(t *testing.T) {
	s := NewGraphStore()
	ctx := context.Background()
	sid := valueobjects.MustSessionID("abc")
	coll := valueobjects.CollectionName(sid, valueobjects.KindVertex)
	require.NoError(t, s.CreateCollection(ctx, coll, valueobjects.KindVertex))
	require.NoError(t, s.InsertDocuments(ctx, coll, []entities.Document{{"_key": "a"}, {"_key": "b"}}))
	require.NoError(t, s.ReplaceDocument(ctx, coll, entities.Document{"_key": "a", "x": 1}))

	groups, err := s.GroupedLog(ctx, valueobjects.WholeCollection(sid, valueobjects.KindVertex), ports.GroupedLogOptions{
		GroupBy: "event", GroupSort: "asc", Limit: 1, ReturnCommands: true,
	})

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, entities.EventCreated, groups[0].Event)
	assert.Len(t, groups[0].Events, 2)
	assert.NotEmpty(t, groups[0].Events[0].Command)
}

func TestInsertRejectsDuplicatesAndBareEdges(t *testing.T) {
	s := NewGraphStore()
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "demo_abc_vertex", valueobjects.KindVertex))
	require.NoError(t, s.CreateCollection(ctx, "demo_abc_edge", valueobjects.KindEdge))
	require.NoError(t, s.InsertDocuments(ctx, "demo_abc_vertex", []entities.Document{{"_key": "a"}}))

	assert.Error(t, s.InsertDocuments(ctx, "demo_abc_vertex", []entities.Document{{"_key": "a"}}))
	assert.Error(t, s.InsertDocuments(ctx, "demo_abc_edge", []entities.Document{{"_from": "demo_abc_vertex/a"}}))
	assert.Error(t, s.InsertDocuments(ctx, "demo_missing_vertex", []entities.Document{{}}))
}

func TestFirstExample(t *testing.T) {
	s := NewSolarSystemStore()
	ctx := context.Background()

	edge, err := s.FirstExample(ctx, SolarEdgeCollection, map[string]interface{}{"_to": "evstore_test_moons/moon"})
	require.NoError(t, err)
	assert.Equal(t, "evstore_test_planets/earth", edge.From())

	_, err = s.FirstExample(ctx, SolarEdgeCollection, map[string]interface{}{"_to": "nowhere/1"})
	assert.ErrorIs(t, err, ports.ErrDocumentNotFound)
}

func TestShowGroupsOnlyNonEmpty(t *testing.T) {
	s := NewGraphStore()
	ctx := context.Background()
	sid := valueobjects.MustSessionID("abc")
	require.NoError(t, s.CreateCollection(ctx, "demo_abc_vertex", valueobjects.KindVertex))
	require.NoError(t, s.CreateCollection(ctx, "demo_abc_edge", valueobjects.KindEdge))
	require.NoError(t, s.InsertDocuments(ctx, "demo_abc_vertex", []entities.Document{{"_key": "a"}}))

	groups, err := s.Show(ctx, valueobjects.WholeSession(sid), nil)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, valueobjects.KindVertex, groups[0].Type)
	assert.Equal(t, "demo_abc_vertex/a", groups[0].Nodes[0].ID())
}
