package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/domain/events"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// MutationService changes nodes of a session and reads their history.
type MutationService struct {
	store       ports.GraphStore
	collections *CollectionManager
	announcer   announcer
	newKey      func() string
	logger      *zap.Logger
}

func NewMutationService(
	store ports.GraphStore,
	collections *CollectionManager,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *MutationService {
	return &MutationService{
		store:       store,
		collections: collections,
		announcer:   announcer{publisher: publisher, logger: logger, now: time.Now},
		newKey:      uuid.NewString,
		logger:      logger,
	}
}

// AddChildren inserts children and links each of them from parentID.
func (s *MutationService) AddChildren(ctx context.Context, session valueobjects.SessionID, parentID string, children []entities.Document) (bool, error) {
	parent, err := sessionNode(session, parentID)
	if err != nil {
		return false, err
	}
	vertex, edge, err := s.collections.EnsureSession(ctx, session)
	if err != nil {
		return false, err
	}
	if len(children) == 0 {
		return true, nil
	}

	nodes := make([]entities.Document, 0, len(children))
	edges := make([]entities.Document, 0, len(children))
	childIDs := make([]string, 0, len(children))
	for _, child := range children {
		node := child.Clone()
		if node.Key() == "" {
			node[entities.FieldKey] = s.newKey()
		}
		childID := vertex.Name + "/" + node.Key()
		nodes = append(nodes, node)
		edges = append(edges, entities.NewEdge(parent.String(), childID))
		childIDs = append(childIDs, childID)
	}

	if err := s.store.InsertDocuments(ctx, vertex.Name, nodes); err != nil {
		s.logger.Error("Failed to insert children",
			zap.String("session", session.String()),
			zap.String("parent", parent.String()),
			zap.Error(err),
		)
		return false, storeError("insert_nodes", err)
	}
	if err := s.store.InsertDocuments(ctx, edge.Name, edges); err != nil {
		s.logger.Error("Failed to link children",
			zap.String("session", session.String()),
			zap.String("parent", parent.String()),
			zap.Error(err),
		)
		return false, storeError("insert_edges", err)
	}

	s.announcer.announce(ctx, events.NewChildrenAdded(session.String(), parent.String(), childIDs, s.announcer.now()))
	return true, nil
}

// Edit replaces a node, last write wins. The key comes from _key or from the
// projected id.
func (s *MutationService) Edit(ctx context.Context, session valueobjects.SessionID, node entities.Document) (bool, error) {
	key := node.Key()
	if key == "" {
		id := node.Str(entities.FieldPublicID)
		if id == "" {
			return false, apperrors.NewValidationError("node has neither _key nor id").
				WithCode(apperrors.CodeInvalidNodeID)
		}
		ref, err := sessionNode(session, id)
		if err != nil {
			return false, err
		}
		key = ref.Key
	}

	vertex, err := s.collections.Collection(ctx, session, valueobjects.KindVertex)
	if err != nil {
		return false, err
	}

	doc := node.Without(entities.FieldPublicID, entities.FieldID, entities.FieldRev)
	doc[entities.FieldKey] = key
	if err := s.store.ReplaceDocument(ctx, vertex.Name, doc); err != nil {
		s.logger.Error("Failed to edit node",
			zap.String("session", session.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return false, storeError("replace_document", err)
	}

	nodeID := valueobjects.NewNodeRef(session, valueobjects.KindVertex, key).String()
	s.announcer.announce(ctx, events.NewNodeEdited(session.String(), nodeID, s.announcer.now()))
	return true, nil
}

// Versions returns the node as it was at each timestamp, in request order.
func (s *MutationService) Versions(ctx context.Context, session valueobjects.SessionID, nodeID string, timestamps []float64) ([]entities.Document, error) {
	ref, err := valueobjects.ParseNodeRef(nodeID)
	if err != nil {
		return nil, invalid(err)
	}
	if !ref.BelongsTo(session) {
		return nil, apperrors.NewValidationError("node "+nodeID+" belongs to another session").
			WithCode(apperrors.CodeForeignSession)
	}

	sel := valueobjects.SelectNodes(session, ref)
	versions := make([]entities.Document, 0, len(timestamps))
	for _, ts := range timestamps {
		docs, err := s.store.ShowAt(ctx, sel, ts)
		if err != nil {
			return nil, storeError("show_at", err)
		}
		if len(docs) == 0 {
			return nil, apperrors.NewNotFoundError("version").
				WithCode(apperrors.CodeMissingSnapshot).
				WithDetails(map[string]interface{}{"node_id": nodeID, "timestamp": ts})
		}
		versions = append(versions, docs[0].ProjectVertex())
	}
	return versions, nil
}
