package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionPath(t *testing.T) {
	sid := MustSessionID("abc")
	v := func(k string) NodeRef { return NewNodeRef(sid, KindVertex, k) }
	e := func(k string) NodeRef { return NewNodeRef(sid, KindEdge, k) }

	tests := []struct {
		name string
		sel  Selection
		want string
	}{
		{"whole session", WholeSession(sid), "/c/demo_abc_{vertex,edge}"},
		{"whole collection", WholeCollection(sid, KindVertex), "/c/demo_abc_vertex"},
		{"single node", SelectNodes(sid, v("k1")), "/n/demo_abc_vertex/k1"},
		{"several keys", SelectNodes(sid, v("k1"), v("k2")), "/n/demo_abc_vertex/{k1,k2}"},
		{"several kinds", SelectNodes(sid, v("k1"), e("e1"), v("k2")), "/n/demo_abc_{edge/e1,vertex/{k1,k2}}"},
		{"duplicates collapsed", SelectNodes(sid, v("k1"), v("k1")), "/n/demo_abc_vertex/k1"},
		{"foreign session re-scoped", SelectNodes(sid, NewNodeRef(MustSessionID("zzz"), KindVertex, "k9")), "/n/demo_abc_vertex/k9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.Path())
		})
	}
}

func TestSelectionAccessors(t *testing.T) {
	sid := MustSessionID("abc")

	whole := WholeSession(sid)
	assert.True(t, whole.IsWhole())
	assert.Nil(t, whole.Keys(KindVertex))

	sel := SelectNodes(sid, NewNodeRef(sid, KindVertex, "a"))
	assert.False(t, sel.IsWhole())
	assert.Equal(t, []string{"a"}, sel.Keys(KindVertex))
	assert.Empty(t, sel.Keys(KindEdge))
	assert.True(t, SelectNodes(sid).IsEmpty())
}
