package ports

import (
	"context"
	"errors"

	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

// ErrDocumentNotFound is returned by lookups that match nothing.
var ErrDocumentNotFound = errors.New("document not found")

// TraversalSpec describes an outbound traversal. Exactly one of StartID and
// StartCollection is set; with StartCollection the traversal starts at the
// first document of that collection. Exactly one of Graph and EdgeCollection
// is set. An empty VertexCollections allows every collection.
type TraversalSpec struct {
	StartID           string
	StartCollection   string
	MinDepth          int
	MaxDepth          int
	Graph             string
	EdgeCollection    string
	VertexCollections []string
}

// TraversalRow is one visited vertex with the edge that reached it. Edge is
// nil for the start vertex.
type TraversalRow struct {
	Vertex entities.Document `json:"v"`
	Edge   entities.Document `json:"e"`
}

// ShowOptions are passed through to the evstore show endpoint.
type ShowOptions map[string]string

// GroupedLogOptions shape the grouped evstore log query.
type GroupedLogOptions struct {
	GroupBy        string
	GroupSort      string
	Limit          int
	ReturnCommands bool
}

// LogOptions shape the flat evstore log query.
type LogOptions struct {
	Sort string
}

// GraphStore is everything the gateway needs from the graph database and its
// event-sourcing service. Document writes go through the service so that they
// land in the event log.
type GraphStore interface {
	Ping(ctx context.Context) error

	// CollectionExists reports whether a collection is present.
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection creates a document or edge collection. A collection that
	// already exists is not an error.
	CreateCollection(ctx context.Context, name string, kind valueobjects.CollectionKind) error
	CountDocuments(ctx context.Context, collection string) (int64, error)

	Traverse(ctx context.Context, spec TraversalSpec) ([]TraversalRow, error)
	// FirstExample returns the first document matching every field of example,
	// or ErrDocumentNotFound.
	FirstExample(ctx context.Context, collection string, example map[string]interface{}) (entities.Document, error)

	Show(ctx context.Context, sel valueobjects.Selection, opts ShowOptions) ([]entities.Group, error)
	// ShowAt returns the selected documents as they were at timestamp (seconds).
	ShowAt(ctx context.Context, sel valueobjects.Selection, timestamp float64) ([]entities.Document, error)

	InsertDocuments(ctx context.Context, collection string, docs []entities.Document) error
	// ReplaceDocument overwrites a document ignoring revisions.
	ReplaceDocument(ctx context.Context, collection string, doc entities.Document) error
	// RemoveDocuments deletes documents without returning them.
	RemoveDocuments(ctx context.Context, collection string, docs []entities.Document) error

	GroupedLog(ctx context.Context, sel valueobjects.Selection, opts GroupedLogOptions) ([]entities.EventGroup, error)
	Log(ctx context.Context, sel valueobjects.Selection, opts LogOptions) ([]entities.Event, error)
}
