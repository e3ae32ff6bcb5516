package handlers

import (
	"context"
	"fmt"

	"github.com/CivicGraph/demo-server/application/queries"
	"github.com/CivicGraph/demo-server/application/queries/bus"
	"github.com/CivicGraph/demo-server/application/services"
)

// ShowHandler answers ShowQuery with an entities.ShowResult.
type ShowHandler struct {
	projection *services.ProjectionService
}

func NewShowHandler(projection *services.ProjectionService) *ShowHandler {
	return &ShowHandler{projection: projection}
}

func (h *ShowHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ShowQuery)
	if !ok {
		return nil, unexpected(query)
	}
	return h.projection.Show(ctx, q.Session, q.NodeIDs, q.Options)
}

// ListChildrenHandler answers ListChildrenQuery with []entities.Document.
type ListChildrenHandler struct {
	projection *services.ProjectionService
}

func NewListChildrenHandler(projection *services.ProjectionService) *ListChildrenHandler {
	return &ListChildrenHandler{projection: projection}
}

func (h *ListChildrenHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListChildrenQuery)
	if !ok {
		return nil, unexpected(query)
	}
	return h.projection.ListChildren(ctx, q.Session, q.RawID)
}

// VersionsHandler answers VersionsQuery with []entities.Document.
type VersionsHandler struct {
	mutations *services.MutationService
}

func NewVersionsHandler(mutations *services.MutationService) *VersionsHandler {
	return &VersionsHandler{mutations: mutations}
}

func (h *VersionsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.VersionsQuery)
	if !ok {
		return nil, unexpected(query)
	}
	return h.mutations.Versions(ctx, q.Session, q.NodeID, q.Timestamps)
}

// LogHandler answers LogQuery with an entities.Timeline.
type LogHandler struct {
	history *services.HistoryService
}

func NewLogHandler(history *services.HistoryService) *LogHandler {
	return &LogHandler{history: history}
}

func (h *LogHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.LogQuery)
	if !ok {
		return nil, unexpected(query)
	}
	return h.history.Log(ctx, q.Session)
}

func unexpected(query bus.Query) error {
	return fmt.Errorf("unexpected query type %T", query)
}

// Register wires every session query to its handler.
func Register(b *bus.QueryBus,
	projection *services.ProjectionService,
	mutations *services.MutationService,
	history *services.HistoryService,
) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{queries.ShowQuery{}, NewShowHandler(projection)},
		{queries.ListChildrenQuery{}, NewListChildrenHandler(projection)},
		{queries.VersionsQuery{}, NewVersionsHandler(mutations)},
		{queries.LogQuery{}, NewLogHandler(history)},
	}
	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	return nil
}
