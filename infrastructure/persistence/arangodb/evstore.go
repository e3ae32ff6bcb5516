package arangodb

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

type pathBody struct {
	Path string `json:"path"`
}

// call issues one request against the evstore service and decodes the JSON
// answer into out (when non-nil).
func (s *GraphStore) call(ctx context.Context, method, route string, query map[string]string, body, out interface{}) error {
	req, err := s.conn.NewRequest(method, path.Join("_db", s.cfg.Database, s.cfg.ServiceMount, route))
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, route, err)
	}
	for k, v := range query {
		req = req.SetQuery(k, v)
	}
	if body != nil {
		if req, err = req.SetBody(body); err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, route, err)
		}
	}

	resp, err := s.conn.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	if err := resp.CheckStatus(200, 201, 202); err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	if out == nil {
		return nil
	}
	if err := resp.ParseBody("", out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, route, err)
	}
	return nil
}

func (s *GraphStore) Show(ctx context.Context, sel valueobjects.Selection, opts ports.ShowOptions) ([]entities.Group, error) {
	query := make(map[string]string, len(opts)+1)
	for k, v := range opts {
		query[k] = v
	}
	query["groupBy"] = "type"

	var groups []entities.Group
	if err := s.call(ctx, "POST", "event/show", query, pathBody{Path: sel.Path()}, &groups); err != nil {
		return nil, err
	}
	s.logger.Debug("evstore show", zap.String("path", sel.Path()), zap.Int("groups", len(groups)))
	return groups, nil
}

func (s *GraphStore) ShowAt(ctx context.Context, sel valueobjects.Selection, timestamp float64) ([]entities.Document, error) {
	query := map[string]string{
		"timestamp": strconv.FormatFloat(timestamp, 'f', -1, 64),
		"path":      sel.Path(),
	}
	var docs []entities.Document
	if err := s.call(ctx, "GET", "event/show", query, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *GraphStore) InsertDocuments(ctx context.Context, collection string, docs []entities.Document) error {
	return s.call(ctx, "POST", "document/"+collection, nil, docs, nil)
}

func (s *GraphStore) ReplaceDocument(ctx context.Context, collection string, doc entities.Document) error {
	return s.call(ctx, "PUT", "document/"+collection, map[string]string{"ignoreRevs": "true"}, doc, nil)
}

func (s *GraphStore) RemoveDocuments(ctx context.Context, collection string, docs []entities.Document) error {
	return s.call(ctx, "DELETE", "document/"+collection, map[string]string{"silent": "true"}, docs, nil)
}

func (s *GraphStore) GroupedLog(ctx context.Context, sel valueobjects.Selection, opts ports.GroupedLogOptions) ([]entities.EventGroup, error) {
	query := map[string]string{
		"groupBy":        opts.GroupBy,
		"groupSort":      opts.GroupSort,
		"returnCommands": strconv.FormatBool(opts.ReturnCommands),
	}
	if opts.Limit > 0 {
		query["limit"] = strconv.Itoa(opts.Limit)
	}
	var groups []entities.EventGroup
	if err := s.call(ctx, "POST", "event/log", query, pathBody{Path: sel.Path()}, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *GraphStore) Log(ctx context.Context, sel valueobjects.Selection, opts ports.LogOptions) ([]entities.Event, error) {
	query := map[string]string{}
	if opts.Sort != "" {
		query["sort"] = opts.Sort
	}
	var events []entities.Event
	if err := s.call(ctx, "POST", "event/log", query, pathBody{Path: sel.Path()}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

var _ ports.GraphStore = (*GraphStore)(nil)
