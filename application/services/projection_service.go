package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// ProjectionService answers read queries against a session and the canonical graph.
type ProjectionService struct {
	store       ports.GraphStore
	collections *CollectionManager
	initializer *SessionInitializer
	source      CanonicalSource
	copier      copier
	logger      *zap.Logger
}

func NewProjectionService(
	store ports.GraphStore,
	collections *CollectionManager,
	initializer *SessionInitializer,
	source CanonicalSource,
	logger *zap.Logger,
) *ProjectionService {
	return &ProjectionService{
		store:       store,
		collections: collections,
		initializer: initializer,
		source:      source,
		copier:      newCopier(source.Prefix),
		logger:      logger,
	}
}

// Show returns the session graph, or only the given nodes and edges, as a
// vertex group followed by an edge group. An unscoped show initializes the
// session first when needed.
func (s *ProjectionService) Show(ctx context.Context, session valueobjects.SessionID, nodeIDs []string, opts ports.ShowOptions) (entities.ShowResult, error) {
	var sel valueobjects.Selection
	if len(nodeIDs) == 0 {
		if err := s.initializer.EnsureReady(ctx, session); err != nil {
			return entities.ShowResult{}, err
		}
		sel = valueobjects.WholeSession(session)
	} else {
		refs := make([]valueobjects.NodeRef, 0, len(nodeIDs))
		for _, id := range nodeIDs {
			ref, err := valueobjects.ParseNodeRef(id)
			if err != nil {
				return entities.ShowResult{}, invalid(err)
			}
			refs = append(refs, ref)
		}
		if _, _, err := s.collections.EnsureSession(ctx, session); err != nil {
			return entities.ShowResult{}, err
		}
		sel = valueobjects.SelectNodes(session, refs...)
	}

	query := make(ports.ShowOptions, len(opts)+1)
	for k, v := range opts {
		query[k] = v
	}
	query["groupBy"] = "type"

	groups, err := s.store.Show(ctx, sel, query)
	if err != nil {
		s.logger.Error("Show query failed",
			zap.String("session", session.String()),
			zap.String("path", sel.Path()),
			zap.Error(err),
		)
		return entities.ShowResult{}, storeError("show", err)
	}
	return entities.NormalizeGroups(groups), nil
}

// ListChildren returns the direct canonical children of a canonical node,
// shaped as they would be seeded into a session. Nothing is written.
func (s *ProjectionService) ListChildren(ctx context.Context, session valueobjects.SessionID, rawID string) ([]entities.Document, error) {
	if !s.copier.matcher.IsCanonical(rawID) {
		return nil, apperrors.NewValidationError("not a canonical node id: " + rawID).
			WithCode(apperrors.CodeInvalidNodeID)
	}

	rows, err := s.store.Traverse(ctx, ports.TraversalSpec{
		StartID:  rawID,
		MinDepth: 1,
		MaxDepth: 1,
		Graph:    s.source.Graph,
	})
	if err != nil {
		return nil, storeError("traverse_canonical", err)
	}

	children := make([]entities.Document, 0, len(rows))
	for _, row := range rows {
		child, err := s.copier.copyNode(row.Vertex)
		if err != nil {
			return nil, apperrors.NewInternalError("canonical graph holds a foreign document").WithCause(err)
		}
		children = append(children, child)
	}

	s.logger.Debug("Listed canonical children",
		zap.String("session", session.String()),
		zap.String("raw_id", rawID),
		zap.Int("count", len(children)),
	)
	return children, nil
}
