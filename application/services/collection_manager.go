package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

// CollectionHandle names an existing session collection.
type CollectionHandle struct {
	Name string
	Kind valueobjects.CollectionKind
}

// CollectionManager resolves and lazily creates session collections.
type CollectionManager struct {
	store  ports.GraphStore
	logger *zap.Logger
	known  sync.Map
}

func NewCollectionManager(store ports.GraphStore, logger *zap.Logger) *CollectionManager {
	return &CollectionManager{store: store, logger: logger}
}

// Collection returns the session's collection of the given kind, creating it
// when absent. Unknown kinds fail before the store is touched.
func (m *CollectionManager) Collection(ctx context.Context, session valueobjects.SessionID, kind valueobjects.CollectionKind) (CollectionHandle, error) {
	kind, err := valueobjects.ParseCollectionKind(string(kind))
	if err != nil {
		return CollectionHandle{}, invalid(err)
	}
	handle := CollectionHandle{Name: valueobjects.CollectionName(session, kind), Kind: kind}
	if _, ok := m.known.Load(handle.Name); ok {
		return handle, nil
	}

	exists, err := m.store.CollectionExists(ctx, handle.Name)
	if err != nil {
		return CollectionHandle{}, storeError("collection_exists", err)
	}
	if !exists {
		if err := m.store.CreateCollection(ctx, handle.Name, kind); err != nil {
			return CollectionHandle{}, storeError("create_collection", err)
		}
		m.logger.Info("Created session collection",
			zap.String("collection", handle.Name),
			zap.String("kind", kind.String()),
		)
	}
	m.known.Store(handle.Name, struct{}{})
	return handle, nil
}

// EnsureSession resolves both collections of a session.
func (m *CollectionManager) EnsureSession(ctx context.Context, session valueobjects.SessionID) (vertex, edge CollectionHandle, err error) {
	if vertex, err = m.Collection(ctx, session, valueobjects.KindVertex); err != nil {
		return
	}
	edge, err = m.Collection(ctx, session, valueobjects.KindEdge)
	return
}
