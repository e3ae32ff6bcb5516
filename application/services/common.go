// Package services implements the session-scoped graph operations.
package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/domain/events"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// invalid turns a domain parsing error into a client error.
func invalid(err error) error {
	code := ""
	switch {
	case errors.Is(err, valueobjects.ErrEmptySession):
		code = apperrors.CodeMissingSession
	case errors.Is(err, valueobjects.ErrInvalidSession):
		code = apperrors.CodeInvalidSession
	case errors.Is(err, valueobjects.ErrUnsupportedKind):
		code = apperrors.CodeUnsupportedKind
	case errors.Is(err, valueobjects.ErrInvalidNodeRef):
		code = apperrors.CodeInvalidNodeID
	}
	return apperrors.NewValidationError(err.Error()).WithCode(code).WithCause(err)
}

// storeError wraps a store failure unless it already carries an API error
// (e.g. an open circuit).
func storeError(op string, err error) error {
	if apperrors.GetAppError(err) != nil {
		return err
	}
	return apperrors.NewDatabaseError(op, err)
}

// registryError names the registry call that failed. Errors the registry
// already classified keep their type and status.
func registryError(op string, err error) error {
	return apperrors.Wrap(err, "session registry "+op)
}

// sessionNode parses id as a node of the session's vertex collection.
func sessionNode(session valueobjects.SessionID, id string) (valueobjects.NodeRef, error) {
	ref, err := valueobjects.ParseNodeRef(id)
	if err != nil {
		return valueobjects.NodeRef{}, invalid(err)
	}
	if !ref.BelongsTo(session) {
		return valueobjects.NodeRef{}, apperrors.NewValidationError("node "+id+" belongs to another session").
			WithCode(apperrors.CodeForeignSession)
	}
	if ref.Kind != valueobjects.KindVertex {
		return valueobjects.NodeRef{}, apperrors.NewValidationError("node "+id+" is not a vertex").
			WithCode(apperrors.CodeInvalidNodeID)
	}
	return ref, nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveSessionInit(string) {}
func (noopMetrics) ObserveNodesRemoved(int)   {}

// announcer publishes domain events after successful writes. Publishing is
// best effort: failures are logged and never surface to the caller.
type announcer struct {
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func (a announcer) announce(ctx context.Context, evt events.DomainEvent) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, evt); err != nil {
		a.logger.Warn("Failed to publish event",
			zap.String("event_type", evt.GetEventType()),
			zap.String("session", evt.GetAggregateID()),
			zap.Error(err),
		)
	}
}
