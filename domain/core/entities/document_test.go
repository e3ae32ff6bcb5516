package entities

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

func TestProjectVertex(t *testing.T) {
	stored := Document{
		"_id": "demo_abc_vertex/k1", "_key": "k1", "_rev": "_r1",
		"obj-class": "planets", "Body": "Earth",
	}

	got := stored.ProjectVertex()

	want := Document{"id": "demo_abc_vertex/k1", "obj-class": "planets", "Body": "Earth"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProjectVertex mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "k1", stored.Key(), "source document must not be mutated")
}

func TestProjectEdge(t *testing.T) {
	stored := Document{
		"_id": "demo_abc_edge/e1", "_key": "e1", "_rev": "_r",
		"_from": "demo_abc_vertex/a", "_to": "demo_abc_vertex/b", "label": "orbits",
	}

	got := stored.ProjectEdge()

	want := Document{
		"id": "demo_abc_edge/e1", "source": "demo_abc_vertex/a",
		"target": "demo_abc_vertex/b", "label": "orbits",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProjectEdge mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeGroups(t *testing.T) {
	t.Run("missing groups default to empty", func(t *testing.T) {
		res := NormalizeGroups(nil)

		assert.Len(t, res.Groups, 2)
		assert.Equal(t, valueobjects.KindVertex, res.Groups[0].Type)
		assert.Equal(t, valueobjects.KindEdge, res.Groups[1].Type)
		assert.NotNil(t, res.Groups[0].Nodes)
		assert.Empty(t, res.Groups[1].Nodes)
	})

	t.Run("order and projection", func(t *testing.T) {
		res := NormalizeGroups([]Group{
			{Type: valueobjects.KindEdge, Nodes: []Document{{"_id": "e/1", "_from": "a", "_to": "b"}}},
			{Type: valueobjects.KindVertex, Nodes: []Document{{"_id": "v/1", "_key": "1"}}},
		})

		assert.Equal(t, []Document{{"id": "v/1"}}, res.Nodes(valueobjects.KindVertex))
		assert.Equal(t, []Document{{"id": "e/1", "source": "a", "target": "b"}}, res.Nodes(valueobjects.KindEdge))
	})
}

func TestEventStartMillis(t *testing.T) {
	assert.Equal(t, int64(1700000000500), Event{Ctime: 1700000000.5}.StartMillis())
}
