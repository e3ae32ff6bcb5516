package memory

import (
	"strings"

	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

// Canonical dataset names used by SeedSolarSystem.
const (
	SolarGraph          = "evstore_test_ss_lineage"
	SolarEdgeCollection = "evstore_test_orbits"
	SolarPrefix         = "evstore_test_"
)

var planets = []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune"}

// NewSolarSystemStore returns a store holding the canonical demo dataset.
func NewSolarSystemStore(opts ...Option) *GraphStore {
	s := NewGraphStore(append([]Option{WithGraph(SolarGraph, SolarEdgeCollection)}, opts...)...)
	SeedSolarSystem(s)
	return s
}

// SeedSolarSystem loads the Sun, its eight planets, one dwarf planet and one
// moon into the canonical collections. Only the Sun and planets fall inside
// the default seeding allow-list and depth.
func SeedSolarSystem(s *GraphStore) {
	stars := SolarPrefix + "stars"
	planetColl := SolarPrefix + "planets"
	dwarfs := SolarPrefix + "dwarf_planets"
	moons := SolarPrefix + "moons"

	s.Seed(stars, valueobjects.KindVertex, entities.Document{"_key": "sun", "Body": "Sun", "type": "G2V"})

	edges := make([]entities.Document, 0, len(planets)+2)
	for i, name := range planets {
		key := strings.ToLower(name)
		s.Seed(planetColl, valueobjects.KindVertex, entities.Document{"_key": key, "Body": name, "order": i + 1})
		edges = append(edges, entities.Document{"_from": stars + "/sun", "_to": planetColl + "/" + key, "relation": "orbits"})
	}

	s.Seed(dwarfs, valueobjects.KindVertex, entities.Document{"_key": "pluto", "Body": "Pluto"})
	edges = append(edges, entities.Document{"_from": stars + "/sun", "_to": dwarfs + "/pluto", "relation": "orbits"})

	s.Seed(moons, valueobjects.KindVertex, entities.Document{"_key": "moon", "Body": "Moon"})
	edges = append(edges, entities.Document{"_from": planetColl + "/earth", "_to": moons + "/moon", "relation": "orbits"})

	s.Seed(SolarEdgeCollection, valueobjects.KindEdge, edges...)
}
