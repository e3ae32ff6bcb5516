package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"plain", "abc", "abc", nil},
		{"uuid hyphens replaced", "3f2a-11b0-9c", "3f2a_11b0_9c", nil},
		{"trimmed", "  abc ", "abc", nil},
		{"empty", "", "", ErrEmptySession},
		{"path characters", "abc/../x", "", ErrInvalidSession},
		{"braces", "a{b}", "", ErrInvalidSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSessionID(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCollectionName(t *testing.T) {
	sid := MustSessionID("abc")

	assert.Equal(t, "demo_abc_vertex", CollectionName(sid, KindVertex))
	assert.Equal(t, "demo_abc_edge", CollectionName(sid, KindEdge))

	_, err := ParseCollectionKind("document")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestNodeRefRoundTrip(t *testing.T) {
	ids := []string{
		"demo_abc_vertex/8c1d7e8a-0a4f-4a43-b2d1-1f6a3c7b9e21",
		"demo_abc_edge/123",
		"demo_3f2a_11b0_9c_vertex/k",
		"demo_a_b_edge/x",
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			ref, err := ParseNodeRef(id)
			require.NoError(t, err)
			assert.Equal(t, id, ref.String())
		})
	}
}

func TestParseNodeRefParts(t *testing.T) {
	ref, err := ParseNodeRef("demo_3f2a_11b0_9c_vertex/key-1")

	require.NoError(t, err)
	assert.Equal(t, "3f2a_11b0_9c", ref.Session.String())
	assert.Equal(t, KindVertex, ref.Kind)
	assert.Equal(t, "key-1", ref.Key)
	assert.Equal(t, "demo_3f2a_11b0_9c_vertex", ref.Collection())
}

func TestParseNodeRefRejects(t *testing.T) {
	bad := []string{
		"",
		"no-slash",
		"demo_abc_vertex/",
		"/key",
		"evstore_test_planets/earth",
		"demo_abc_document/1",
		"demo_vertex/1",
		"demo__vertex/1",
	}

	for _, id := range bad {
		t.Run(id, func(t *testing.T) {
			_, err := ParseNodeRef(id)
			assert.ErrorIs(t, err, ErrInvalidNodeRef)
		})
	}
}

func TestNodeRefRescope(t *testing.T) {
	ref, err := ParseNodeRef("demo_other_vertex/k")
	require.NoError(t, err)

	mine := MustSessionID("mine")

	assert.False(t, ref.BelongsTo(mine))
	assert.Equal(t, "demo_mine_vertex/k", ref.In(mine).String())
	assert.True(t, ref.In(mine).BelongsTo(mine))
}
