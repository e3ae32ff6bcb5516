package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/domain/events"
)

// DefaultRemoveMaxDepth is how far below the removed node descendants are collected.
const DefaultRemoveMaxDepth = 10

// RemovalService deletes a node together with its descendants.
type RemovalService struct {
	store       ports.GraphStore
	collections *CollectionManager
	maxDepth    int
	metrics     ports.Metrics
	announcer   announcer
	logger      *zap.Logger
}

func NewRemovalService(
	store ports.GraphStore,
	collections *CollectionManager,
	maxDepth int,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	logger *zap.Logger,
) *RemovalService {
	if maxDepth <= 0 {
		maxDepth = DefaultRemoveMaxDepth
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &RemovalService{
		store:       store,
		collections: collections,
		maxDepth:    maxDepth,
		metrics:     metrics,
		announcer:   announcer{publisher: publisher, logger: logger, now: time.Now},
		logger:      logger,
	}
}

// Remove deletes nodeID, every node reachable from it within maxDepth hops,
// the edges between them and the edge pointing at nodeID.
//
// The reads and the two deletes are not atomic: a concurrent insert below
// the subtree can survive as an orphan.
func (s *RemovalService) Remove(ctx context.Context, session valueobjects.SessionID, nodeID string) (bool, error) {
	ref, err := sessionNode(session, nodeID)
	if err != nil {
		return false, err
	}
	vertex, edge, err := s.collections.EnsureSession(ctx, session)
	if err != nil {
		return false, err
	}

	rows, err := s.store.Traverse(ctx, ports.TraversalSpec{
		StartID:        ref.String(),
		MinDepth:       0,
		MaxDepth:       s.maxDepth,
		EdgeCollection: edge.Name,
	})
	if err != nil {
		return false, storeError("traverse_subtree", err)
	}

	nodes := uniqueByKey(len(rows))
	edges := uniqueByKey(len(rows) + 1)
	for _, row := range rows {
		nodes.add(row.Vertex)
		if row.Edge != nil {
			edges.add(row.Edge)
		}
	}

	inbound, err := s.store.FirstExample(ctx, edge.Name, map[string]interface{}{entities.FieldTo: ref.String()})
	if err != nil {
		s.logger.Debug("No inbound edge for removed node",
			zap.String("node_id", ref.String()),
			zap.Error(err),
		)
	} else {
		edges.add(inbound)
	}

	if len(nodes.docs) > 0 {
		if err := s.store.RemoveDocuments(ctx, vertex.Name, nodes.docs); err != nil {
			return false, storeError("remove_nodes", err)
		}
	}
	if len(edges.docs) > 0 {
		if err := s.store.RemoveDocuments(ctx, edge.Name, edges.docs); err != nil {
			return false, storeError("remove_edges", err)
		}
	}

	s.logger.Info("Removed subtree",
		zap.String("session", session.String()),
		zap.String("node_id", ref.String()),
		zap.Int("nodes", len(nodes.docs)),
		zap.Int("edges", len(edges.docs)),
	)
	s.metrics.ObserveNodesRemoved(len(nodes.docs))
	s.announcer.announce(ctx, events.NewSubtreeRemoved(session.String(), ref.String(), len(nodes.docs), len(edges.docs), s.announcer.now()))
	return true, nil
}

type keyedDocs struct {
	seen map[string]bool
	docs []entities.Document
}

func uniqueByKey(capacity int) *keyedDocs {
	return &keyedDocs{seen: make(map[string]bool, capacity), docs: make([]entities.Document, 0, capacity)}
}

func (k *keyedDocs) add(d entities.Document) {
	key := d.Key()
	if k.seen[key] {
		return
	}
	k.seen[key] = true
	k.docs = append(k.docs, d)
}
