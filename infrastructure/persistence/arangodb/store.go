package arangodb

import (
	"context"
	"fmt"

	driver "github.com/arangodb/go-driver"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

func (s *GraphStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	ok, err := s.db.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	return ok, nil
}

func (s *GraphStore) CreateCollection(ctx context.Context, name string, kind valueobjects.CollectionKind) error {
	opts := &driver.CreateCollectionOptions{Type: driver.CollectionTypeDocument}
	if kind.IsEdge() {
		opts.Type = driver.CollectionTypeEdge
	}
	if _, err := s.db.CreateCollection(ctx, name, opts); err != nil {
		if driver.IsConflict(err) {
			s.logger.Debug("Collection created concurrently", zap.String("collection", name))
			return nil
		}
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

func (s *GraphStore) CountDocuments(ctx context.Context, name string) (int64, error) {
	col, err := s.db.Collection(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("open collection %s: %w", name, err)
	}
	n, err := col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", name, err)
	}
	return n, nil
}

func (s *GraphStore) Traverse(ctx context.Context, spec ports.TraversalSpec) ([]ports.TraversalRow, error) {
	query, bind, err := buildTraversal(spec)
	if err != nil {
		return nil, err
	}

	cursor, err := s.db.Query(ctx, query, bind)
	if err != nil {
		return nil, fmt.Errorf("traversal query: %w", err)
	}
	defer cursor.Close()

	var rows []ports.TraversalRow
	for cursor.HasMore() {
		var row ports.TraversalRow
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, fmt.Errorf("read traversal row: %w", err)
		}
		if row.Vertex == nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *GraphStore) FirstExample(ctx context.Context, name string, example map[string]interface{}) (entities.Document, error) {
	query, bind := buildFirstExample(name, example)
	cursor, err := s.db.Query(ctx, query, bind)
	if err != nil {
		return nil, fmt.Errorf("first example in %s: %w", name, err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, ports.ErrDocumentNotFound
	}
	var doc entities.Document
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("read example match: %w", err)
	}
	return doc, nil
}
