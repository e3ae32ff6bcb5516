package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjClassMatcher(t *testing.T) {
	m := NewObjClassMatcher("evstore_test_")

	class, err := m.Match("evstore_test_planets/earth")
	require.NoError(t, err)
	assert.Equal(t, "planets", class)

	class, err = m.Match("evstore_test_dwarf_planets/pluto")
	require.NoError(t, err)
	assert.Equal(t, "dwarf_planets", class)

	_, err = m.Match("demo_abc_vertex/1")
	assert.Error(t, err)
	assert.False(t, m.IsCanonical("demo_abc_vertex/1"))
	assert.True(t, m.IsCanonical("evstore_test_stars/sun"))
}

func TestClassOrderAndDisplay(t *testing.T) {
	assert.Less(t, ClassOrder("stars"), ClassOrder("planets"))
	assert.Less(t, ClassOrder("planets"), ClassOrder("dwarf_planets"))
	assert.Less(t, ClassOrder("moons"), ClassOrder("asteroids"))
	assert.Less(t, ClassOrder("asteroids"), ClassOrder("comets"))
	assert.Equal(t, UnknownClassOrder, ClassOrder("nebulae"))

	assert.Equal(t, "Dwarf Planets", ClassDisplayName("dwarf_planets"))
	assert.Equal(t, "Stars", ClassDisplayName("stars"))
}
