package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/domain/events"
	"github.com/CivicGraph/demo-server/infrastructure/persistence/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return p.err
}

func (p *recordingPublisher) ofType(eventType string) []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.DomainEvent
	for _, e := range p.events {
		if e.GetEventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingMetrics struct {
	mu      sync.Mutex
	inits   []string
	removed int
}

func (m *recordingMetrics) ObserveSessionInit(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits = append(m.inits, outcome)
}

func (m *recordingMetrics) ObserveNodesRemoved(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed += n
}

type sequentialKeys struct {
	mu sync.Mutex
	n  int
}

func (k *sequentialKeys) next() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n++
	return fmt.Sprintf("k%d", k.n)
}

type fixture struct {
	ctx         context.Context
	session     valueobjects.SessionID
	store       *memory.GraphStore
	registry    *memory.SessionRegistry
	collections *CollectionManager
	initializer *SessionInitializer
	projection  *ProjectionService
	mutation    *MutationService
	removal     *RemovalService
	history     *HistoryService
	publisher   *recordingPublisher
	metrics     *recordingMetrics
}

func newFixture(t *testing.T, opts ...InitializerOption) *fixture {
	t.Helper()

	clock := time.Unix(1_700_000_000, 0)
	var clockMu sync.Mutex
	tick := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	logger := zap.NewNop()
	store := memory.NewSolarSystemStore(memory.WithClock(tick))
	registry := memory.NewSessionRegistry()
	publisher := &recordingPublisher{}
	metrics := &recordingMetrics{}
	keys := &sequentialKeys{}
	collections := NewCollectionManager(store, logger)
	source := DefaultCanonicalSource()

	initializer := NewSessionInitializer(store, registry, collections, source, publisher, metrics, logger,
		append([]InitializerOption{WithKeyGenerator(keys.next)}, opts...)...)
	mutation := NewMutationService(store, collections, publisher, logger)
	mutation.newKey = keys.next

	return &fixture{
		ctx:         context.Background(),
		session:     valueobjects.MustSessionID("abc"),
		store:       store,
		registry:    registry,
		collections: collections,
		initializer: initializer,
		projection:  NewProjectionService(store, collections, initializer, source, logger),
		mutation:    mutation,
		removal:     NewRemovalService(store, collections, DefaultRemoveMaxDepth, publisher, metrics, logger),
		history:     NewHistoryService(store, logger),
		publisher:   publisher,
		metrics:     metrics,
	}
}

// graph reads the session straight from the store.
func (f *fixture) graph(t *testing.T) entities.ShowResult {
	t.Helper()
	groups, err := f.store.Show(f.ctx, valueobjects.WholeSession(f.session), nil)
	require.NoError(t, err)
	return entities.NormalizeGroups(groups)
}

// vertices reads only the session's vertex collection, which is all a bare
// edit creates.
func (f *fixture) vertices(t *testing.T) []entities.Document {
	t.Helper()
	groups, err := f.store.Show(f.ctx, valueobjects.WholeCollection(f.session, valueobjects.KindVertex), nil)
	require.NoError(t, err)
	return entities.NormalizeGroups(groups).Nodes(valueobjects.KindVertex)
}

func (f *fixture) vertexID(key string) string {
	return valueobjects.NewNodeRef(f.session, valueobjects.KindVertex, key).String()
}

func (f *fixture) mustInit(t *testing.T) {
	t.Helper()
	ok, err := f.initializer.Initialize(f.ctx, f.session)
	require.NoError(t, err)
	require.True(t, ok)
}

func bodies(nodes []entities.Document) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Body())
	}
	return out
}
