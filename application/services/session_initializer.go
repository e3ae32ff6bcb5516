package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/domain/events"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// DefaultInitLeaseTTL bounds how long a crashed initializer blocks others.
const DefaultInitLeaseTTL = 30 * time.Second

// Init outcomes reported to metrics.
const (
	InitSeeded   = "seeded"
	InitAdopted  = "adopted"
	InitReady    = "ready"
	InitConflict = "conflict"
	InitFailed   = "failed"
)

// SessionInitializer seeds a session's collections from the canonical graph.
type SessionInitializer struct {
	store       ports.GraphStore
	registry    ports.SessionRegistry
	collections *CollectionManager
	source      CanonicalSource
	leaseTTL    time.Duration
	copier      copier
	metrics     ports.Metrics
	announcer   announcer
	logger      *zap.Logger
	flight      singleflight.Group
}

// InitializerOption customizes a SessionInitializer.
type InitializerOption func(*SessionInitializer)

// WithLeaseTTL overrides DefaultInitLeaseTTL.
func WithLeaseTTL(ttl time.Duration) InitializerOption {
	return func(s *SessionInitializer) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithKeyGenerator replaces uuid.NewString for seeded keys.
func WithKeyGenerator(newKey func() string) InitializerOption {
	return func(s *SessionInitializer) { s.copier.newKey = newKey }
}

// WithInitClock overrides the timestamp put on published events.
func WithInitClock(now func() time.Time) InitializerOption {
	return func(s *SessionInitializer) { s.announcer.now = now }
}

func NewSessionInitializer(
	store ports.GraphStore,
	registry ports.SessionRegistry,
	collections *CollectionManager,
	source CanonicalSource,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	logger *zap.Logger,
	opts ...InitializerOption,
) *SessionInitializer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s := &SessionInitializer{
		store:       store,
		registry:    registry,
		collections: collections,
		source:      source,
		leaseTTL:    DefaultInitLeaseTTL,
		copier:      newCopier(source.Prefix),
		metrics:     metrics,
		announcer:   announcer{publisher: publisher, logger: logger, now: time.Now},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureReady initializes the session unless the registry already marks it ready.
func (s *SessionInitializer) EnsureReady(ctx context.Context, session valueobjects.SessionID) error {
	state, err := s.registry.State(ctx, session)
	if err != nil {
		return registryError("session_state", err)
	}
	if state == ports.SessionReady {
		return nil
	}
	_, err = s.Initialize(ctx, session)
	return err
}

// Initialize makes the session ready. Concurrent calls for one session share
// a single attempt; a caller losing the cross-process lease gets a conflict.
func (s *SessionInitializer) Initialize(ctx context.Context, session valueobjects.SessionID) (bool, error) {
	ch := s.flight.DoChan(session.String(), func() (interface{}, error) {
		outcome, err := s.initialize(context.WithoutCancel(ctx), session)
		if err != nil {
			if apperrors.IsConflict(err) {
				s.metrics.ObserveSessionInit(InitConflict)
			} else {
				s.metrics.ObserveSessionInit(InitFailed)
			}
			return false, err
		}
		s.metrics.ObserveSessionInit(outcome)
		return true, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	}
}

func (s *SessionInitializer) initialize(ctx context.Context, session valueobjects.SessionID) (string, error) {
	vertex, edge, err := s.collections.EnsureSession(ctx, session)
	if err != nil {
		return "", err
	}

	owner := uuid.NewString()
	acquired, err := s.registry.AcquireInitLease(ctx, session, owner, s.leaseTTL)
	if err != nil {
		return "", registryError("acquire_init_lease", err)
	}
	if !acquired {
		return "", apperrors.NewConflictError("session "+session.String()+" is being initialized").
			WithCode(apperrors.CodeInitInProgress)
	}
	defer func() {
		if err := s.registry.ReleaseInitLease(ctx, session, owner); err != nil {
			s.logger.Warn("Failed to release init lease",
				zap.String("session", session.String()),
				zap.Error(err),
			)
		}
	}()

	state, err := s.registry.State(ctx, session)
	if err != nil {
		return "", registryError("session_state", err)
	}

	switch state {
	case ports.SessionReady:
		return InitReady, nil

	case ports.SessionInitializing:
		s.logger.Warn("Rolling forward interrupted initialization", zap.String("session", session.String()))
		if err := s.discardPartialSeed(ctx, session, vertex, edge); err != nil {
			return "", err
		}

	default:
		count, err := s.store.CountDocuments(ctx, vertex.Name)
		if err != nil {
			return "", storeError("count_documents", err)
		}
		if count > 0 {
			if err := s.registry.SetState(ctx, session, ports.SessionReady); err != nil {
				return "", registryError("set_session_state", err)
			}
			s.logger.Info("Adopted existing session",
				zap.String("session", session.String()),
				zap.Int64("nodes", count),
			)
			s.announcer.announce(ctx, events.NewSessionInitialized(session.String(), int(count), 0, true, s.announcer.now()))
			return InitAdopted, nil
		}
		if err := s.registry.SetState(ctx, session, ports.SessionInitializing); err != nil {
			return "", registryError("set_session_state", err)
		}
	}

	nodes, edges, err := s.seed(ctx, vertex, edge)
	if err != nil {
		s.logger.Error("Session seeding failed",
			zap.String("session", session.String()),
			zap.Error(err),
		)
		return "", err
	}
	if err := s.registry.SetState(ctx, session, ports.SessionReady); err != nil {
		return "", registryError("set_session_state", err)
	}

	s.logger.Info("Session initialized",
		zap.String("session", session.String()),
		zap.Int("nodes", nodes),
		zap.Int("edges", edges),
	)
	s.announcer.announce(ctx, events.NewSessionInitialized(session.String(), nodes, edges, false, s.announcer.now()))
	return InitSeeded, nil
}

// seed copies the canonical neighbourhood of the root into the session and
// hangs every copied node off the first one.
// discardPartialSeed deletes whatever a crashed attempt left behind. The
// deletes go through the event log so the history shows them.
func (s *SessionInitializer) discardPartialSeed(ctx context.Context, session valueobjects.SessionID, vertex, edge CollectionHandle) error {
	groups, err := s.store.Show(ctx, valueobjects.WholeSession(session), nil)
	if err != nil {
		return storeError("show", err)
	}
	leftovers := make(map[valueobjects.CollectionKind][]entities.Document, 2)
	for _, g := range groups {
		leftovers[g.Type] = append(leftovers[g.Type], g.Nodes...)
	}

	for _, handle := range []CollectionHandle{edge, vertex} {
		docs := leftovers[handle.Kind]
		if len(docs) == 0 {
			continue
		}
		if err := s.store.RemoveDocuments(ctx, handle.Name, docs); err != nil {
			return storeError("remove_documents", err)
		}
		s.logger.Debug("Discarded partial seed",
			zap.String("collection", handle.Name),
			zap.Int("documents", len(docs)),
		)
	}
	return nil
}

func (s *SessionInitializer) seed(ctx context.Context, vertex, edge CollectionHandle) (int, int, error) {
	rows, err := s.store.Traverse(ctx, ports.TraversalSpec{
		StartCollection:   s.source.RootCollection,
		MinDepth:          s.source.MinDepth,
		MaxDepth:          s.source.MaxDepth,
		Graph:             s.source.Graph,
		VertexCollections: s.source.AllowedCollections,
	})
	if err != nil {
		return 0, 0, storeError("traverse_canonical", err)
	}

	nodes := make([]entities.Document, 0, len(rows))
	edges := make([]entities.Document, 0, len(rows))
	var anchor string
	for _, row := range rows {
		node, err := s.copier.copyNode(row.Vertex)
		if err != nil {
			return 0, 0, apperrors.NewInternalError("canonical graph holds a foreign document").WithCause(err)
		}
		nodes = append(nodes, node)
		if anchor == "" {
			anchor = vertex.Name + "/" + node.Key()
		}
		if row.Edge != nil {
			e := row.Edge.Without(entities.FieldID, entities.FieldRev)
			e[entities.FieldFrom] = anchor
			e[entities.FieldTo] = vertex.Name + "/" + node.Key()
			edges = append(edges, e)
		}
	}

	if len(nodes) > 0 {
		if err := s.store.InsertDocuments(ctx, vertex.Name, nodes); err != nil {
			return 0, 0, storeError("insert_nodes", err)
		}
	}
	if len(edges) > 0 {
		if err := s.store.InsertDocuments(ctx, edge.Name, edges); err != nil {
			return 0, 0, storeError("insert_edges", err)
		}
	}
	return len(nodes), len(edges), nil
}
