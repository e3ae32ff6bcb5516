package decorators

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/infrastructure/observability"
)

// InstrumentedStore records a span and Prometheus metrics for every call.
type InstrumentedStore struct {
	inner   ports.GraphStore
	metrics *observability.Collector
	tracer  trace.Tracer
}

func NewInstrumentedStore(inner ports.GraphStore, metrics *observability.Collector, tracer trace.Tracer) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, metrics: metrics, tracer: tracer}
}

func observe[T any](s *InstrumentedStore, ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "graphstore."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	s.metrics.RecordStoreOperation(op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func observeErr(s *InstrumentedStore, ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	_, err := observe(s, ctx, op, attrs, func(ctx context.Context) (struct{}, error) { return struct{}{}, fn(ctx) })
	return err
}

func collAttr(name string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("db.collection", name)}
}

func pathAttr(sel valueobjects.Selection) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("evstore.path", sel.Path())}
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return observeErr(s, ctx, "ping", nil, s.inner.Ping)
}

func (s *InstrumentedStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return observe(s, ctx, "collection_exists", collAttr(name), func(ctx context.Context) (bool, error) {
		return s.inner.CollectionExists(ctx, name)
	})
}

func (s *InstrumentedStore) CreateCollection(ctx context.Context, name string, kind valueobjects.CollectionKind) error {
	return observeErr(s, ctx, "create_collection", collAttr(name), func(ctx context.Context) error {
		return s.inner.CreateCollection(ctx, name, kind)
	})
}

func (s *InstrumentedStore) CountDocuments(ctx context.Context, name string) (int64, error) {
	return observe(s, ctx, "count", collAttr(name), func(ctx context.Context) (int64, error) {
		return s.inner.CountDocuments(ctx, name)
	})
}

func (s *InstrumentedStore) Traverse(ctx context.Context, spec ports.TraversalSpec) ([]ports.TraversalRow, error) {
	attrs := []attribute.KeyValue{
		attribute.String("traversal.start", spec.StartID+spec.StartCollection),
		attribute.Int("traversal.max_depth", spec.MaxDepth),
	}
	return observe(s, ctx, "traverse", attrs, func(ctx context.Context) ([]ports.TraversalRow, error) {
		return s.inner.Traverse(ctx, spec)
	})
}

func (s *InstrumentedStore) FirstExample(ctx context.Context, name string, example map[string]interface{}) (entities.Document, error) {
	return observe(s, ctx, "first_example", collAttr(name), func(ctx context.Context) (entities.Document, error) {
		return s.inner.FirstExample(ctx, name, example)
	})
}

func (s *InstrumentedStore) Show(ctx context.Context, sel valueobjects.Selection, opts ports.ShowOptions) ([]entities.Group, error) {
	return observe(s, ctx, "show", pathAttr(sel), func(ctx context.Context) ([]entities.Group, error) {
		return s.inner.Show(ctx, sel, opts)
	})
}

func (s *InstrumentedStore) ShowAt(ctx context.Context, sel valueobjects.Selection, ts float64) ([]entities.Document, error) {
	return observe(s, ctx, "show_at", pathAttr(sel), func(ctx context.Context) ([]entities.Document, error) {
		return s.inner.ShowAt(ctx, sel, ts)
	})
}

func (s *InstrumentedStore) InsertDocuments(ctx context.Context, name string, docs []entities.Document) error {
	attrs := append(collAttr(name), attribute.Int("db.documents", len(docs)))
	return observeErr(s, ctx, "insert", attrs, func(ctx context.Context) error {
		return s.inner.InsertDocuments(ctx, name, docs)
	})
}

func (s *InstrumentedStore) ReplaceDocument(ctx context.Context, name string, doc entities.Document) error {
	return observeErr(s, ctx, "replace", collAttr(name), func(ctx context.Context) error {
		return s.inner.ReplaceDocument(ctx, name, doc)
	})
}

func (s *InstrumentedStore) RemoveDocuments(ctx context.Context, name string, docs []entities.Document) error {
	attrs := append(collAttr(name), attribute.Int("db.documents", len(docs)))
	return observeErr(s, ctx, "remove", attrs, func(ctx context.Context) error {
		return s.inner.RemoveDocuments(ctx, name, docs)
	})
}

func (s *InstrumentedStore) GroupedLog(ctx context.Context, sel valueobjects.Selection, opts ports.GroupedLogOptions) ([]entities.EventGroup, error) {
	return observe(s, ctx, "grouped_log", pathAttr(sel), func(ctx context.Context) ([]entities.EventGroup, error) {
		return s.inner.GroupedLog(ctx, sel, opts)
	})
}

func (s *InstrumentedStore) Log(ctx context.Context, sel valueobjects.Selection, opts ports.LogOptions) ([]entities.Event, error) {
	return observe(s, ctx, "log", pathAttr(sel), func(ctx context.Context) ([]entities.Event, error) {
		return s.inner.Log(ctx, sel, opts)
	})
}

var _ ports.GraphStore = (*InstrumentedStore)(nil)
