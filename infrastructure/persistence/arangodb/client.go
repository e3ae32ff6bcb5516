// Package arangodb implements the graph store port on ArangoDB and its
// event-sourcing Foxx service (evstore).
package arangodb

import (
	"context"
	"fmt"

	driver "github.com/arangodb/go-driver"
	arangohttp "github.com/arangodb/go-driver/http"
	"go.uber.org/zap"
)

// Config locates the database and the evstore service mount.
type Config struct {
	Endpoints    []string
	Database     string
	ServiceMount string
	BearerToken  string
}

// GraphStore talks to ArangoDB directly for collection management and AQL,
// and to the evstore service for everything that must be event-logged.
type GraphStore struct {
	client driver.Client
	conn   driver.Connection
	db     driver.Database
	cfg    Config
	logger *zap.Logger
}

// NewGraphStore opens one authenticated connection and resolves the database.
// The returned store is safe for concurrent use and meant to live for the
// whole process.
func NewGraphStore(ctx context.Context, cfg Config, logger *zap.Logger) (*GraphStore, error) {
	conn, err := arangohttp.NewConnection(arangohttp.ConnectionConfig{Endpoints: cfg.Endpoints})
	if err != nil {
		return nil, fmt.Errorf("create arangodb connection: %w", err)
	}

	clientCfg := driver.ClientConfig{Connection: conn}
	if cfg.BearerToken != "" {
		clientCfg.Authentication = driver.RawAuthentication("Bearer " + cfg.BearerToken)
	}
	client, err := driver.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create arangodb client: %w", err)
	}

	db, err := client.Database(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database, err)
	}

	logger.Info("Connected to graph store",
		zap.Strings("endpoints", cfg.Endpoints),
		zap.String("database", cfg.Database),
		zap.String("service", cfg.ServiceMount),
	)

	return &GraphStore{
		client: client,
		conn:   client.Connection(),
		db:     db,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (s *GraphStore) Ping(ctx context.Context) error {
	if _, err := s.client.Version(ctx); err != nil {
		return fmt.Errorf("arangodb version: %w", err)
	}
	return nil
}
