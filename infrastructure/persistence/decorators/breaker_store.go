// Package decorators wraps a ports.GraphStore with cross-cutting behavior.
package decorators

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/infrastructure/observability"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// BreakerConfig tunes the store circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after 5+ calls with at least 80% failures and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "graph-store",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerStore fails fast with an Unavailable error while the store keeps
// failing. It never retries.
type BreakerStore struct {
	inner ports.GraphStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner. metrics may be nil.
func NewBreakerStore(inner ports.GraphStore, cfg BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: func(err error) bool {
			// Lookups that match nothing and callers giving up say nothing
			// about store health.
			return err == nil ||
				errors.Is(err, ports.ErrDocumentNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

// State reports the breaker state.
func (s *BreakerStore) State() gobreaker.State { return s.cb.State() }

func guard[T any](s *BreakerStore, fn func() (T, error)) (T, error) {
	var zero T
	out, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperrors.NewUnavailableError("graph-store").
				WithCode(apperrors.CodeCircuitOpen).
				WithCause(err)
		}
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func guardErr(s *BreakerStore, fn func() error) error {
	_, err := guard(s, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (s *BreakerStore) Ping(ctx context.Context) error {
	return guardErr(s, func() error { return s.inner.Ping(ctx) })
}

func (s *BreakerStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return guard(s, func() (bool, error) { return s.inner.CollectionExists(ctx, name) })
}

func (s *BreakerStore) CreateCollection(ctx context.Context, name string, kind valueobjects.CollectionKind) error {
	return guardErr(s, func() error { return s.inner.CreateCollection(ctx, name, kind) })
}

func (s *BreakerStore) CountDocuments(ctx context.Context, name string) (int64, error) {
	return guard(s, func() (int64, error) { return s.inner.CountDocuments(ctx, name) })
}

func (s *BreakerStore) Traverse(ctx context.Context, spec ports.TraversalSpec) ([]ports.TraversalRow, error) {
	return guard(s, func() ([]ports.TraversalRow, error) { return s.inner.Traverse(ctx, spec) })
}

func (s *BreakerStore) FirstExample(ctx context.Context, name string, example map[string]interface{}) (entities.Document, error) {
	return guard(s, func() (entities.Document, error) { return s.inner.FirstExample(ctx, name, example) })
}

func (s *BreakerStore) Show(ctx context.Context, sel valueobjects.Selection, opts ports.ShowOptions) ([]entities.Group, error) {
	return guard(s, func() ([]entities.Group, error) { return s.inner.Show(ctx, sel, opts) })
}

func (s *BreakerStore) ShowAt(ctx context.Context, sel valueobjects.Selection, ts float64) ([]entities.Document, error) {
	return guard(s, func() ([]entities.Document, error) { return s.inner.ShowAt(ctx, sel, ts) })
}

func (s *BreakerStore) InsertDocuments(ctx context.Context, name string, docs []entities.Document) error {
	return guardErr(s, func() error { return s.inner.InsertDocuments(ctx, name, docs) })
}

func (s *BreakerStore) ReplaceDocument(ctx context.Context, name string, doc entities.Document) error {
	return guardErr(s, func() error { return s.inner.ReplaceDocument(ctx, name, doc) })
}

func (s *BreakerStore) RemoveDocuments(ctx context.Context, name string, docs []entities.Document) error {
	return guardErr(s, func() error { return s.inner.RemoveDocuments(ctx, name, docs) })
}

func (s *BreakerStore) GroupedLog(ctx context.Context, sel valueobjects.Selection, opts ports.GroupedLogOptions) ([]entities.EventGroup, error) {
	return guard(s, func() ([]entities.EventGroup, error) { return s.inner.GroupedLog(ctx, sel, opts) })
}

func (s *BreakerStore) Log(ctx context.Context, sel valueobjects.Selection, opts ports.LogOptions) ([]entities.Event, error) {
	return guard(s, func() ([]entities.Event, error) { return s.inner.Log(ctx, sel, opts) })
}

var _ ports.GraphStore = (*BreakerStore)(nil)
