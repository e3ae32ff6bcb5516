package services

import (
	"github.com/google/uuid"

	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

// CanonicalSource describes the shared lineage graph sessions are copied from.
type CanonicalSource struct {
	Graph              string
	Prefix             string
	RootCollection     string
	AllowedCollections []string
	MinDepth           int
	MaxDepth           int
}

// DefaultCanonicalSource is the solar-system lineage dataset.
func DefaultCanonicalSource() CanonicalSource {
	return CanonicalSource{
		Graph:              "evstore_test_ss_lineage",
		Prefix:             "evstore_test_",
		RootCollection:     "evstore_test_stars",
		AllowedCollections: []string{"evstore_test_planets", "evstore_test_stars"},
		MinDepth:           0,
		MaxDepth:           1,
	}
}

// copier turns canonical documents into session documents.
type copier struct {
	matcher valueobjects.ObjClassMatcher
	newKey  func() string
}

func newCopier(prefix string) copier {
	return copier{matcher: valueobjects.NewObjClassMatcher(prefix), newKey: uuid.NewString}
}

// copyNode gives doc a fresh key, remembers its canonical id and class, and
// strips store housekeeping.
func (c copier) copyNode(doc entities.Document) (entities.Document, error) {
	class, err := c.matcher.Match(doc.ID())
	if err != nil {
		return nil, err
	}
	out := doc.Without(entities.FieldID, entities.FieldRev, entities.FieldSource, entities.FieldRef)
	out[entities.FieldKey] = c.newKey()
	out[entities.FieldRawID] = doc.ID()
	out[entities.FieldObjClass] = class
	return out, nil
}
