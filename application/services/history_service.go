package services

import (
	"context"
	"encoding/json"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// HistoryService renders a session's event log as a timeline.
type HistoryService struct {
	store  ports.GraphStore
	logger *zap.Logger
}

func NewHistoryService(store ports.GraphStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{store: store, logger: logger}
}

var patchOptions = func() *jsonpatch.ApplyOptions {
	opts := jsonpatch.NewApplyOptions()
	opts.AllowMissingPathOnRemove = true
	opts.EnsurePathExistsOnAdd = true
	return opts
}()

// Log groups the session's vertices by object class and body and lists one
// item per event, oldest first.
func (s *HistoryService) Log(ctx context.Context, session valueobjects.SessionID) (entities.Timeline, error) {
	sel := valueobjects.WholeCollection(session, valueobjects.KindVertex)

	grouped, err := s.store.GroupedLog(ctx, sel, ports.GroupedLogOptions{
		GroupBy:        "event",
		GroupSort:      "asc",
		Limit:          1,
		ReturnCommands: true,
	})
	if err != nil {
		return entities.Timeline{}, storeError("grouped_log", err)
	}

	nodes := make(map[string]entities.Document)
	if len(grouped) > 0 {
		for _, evt := range grouped[0].Events {
			node, err := replay(evt.Command)
			if err != nil {
				return entities.Timeline{}, apperrors.NewInternalError("cannot replay event " + evt.ID).WithCause(err)
			}
			nodes[evt.Meta.ID] = node
		}
	}

	timeline := entities.Timeline{
		Groups: buildGroups(nodes),
		Items:  []entities.TimelineItem{},
	}

	log, err := s.store.Log(ctx, sel, ports.LogOptions{Sort: "asc"})
	if err != nil {
		return entities.Timeline{}, storeError("log", err)
	}
	for _, evt := range log {
		node, ok := nodes[evt.Meta.ID]
		if !ok || node.Body() == "" {
			continue
		}
		timeline.Items = append(timeline.Items, entities.TimelineItem{
			ID:        evt.ID,
			Group:     node.Body(),
			Start:     evt.StartMillis(),
			ClassName: evt.Event,
			Subgroup:  evt.Meta.ID,
		})
	}

	s.logger.Debug("Built timeline",
		zap.String("session", session.String()),
		zap.Int("groups", len(timeline.Groups)),
		zap.Int("items", len(timeline.Items)),
	)
	return timeline, nil
}

// replay applies a JSON Patch command to an empty object.
func replay(command json.RawMessage) (entities.Document, error) {
	node := entities.Document{}
	if len(command) == 0 {
		return node, nil
	}
	patch, err := jsonpatch.DecodePatch(command)
	if err != nil {
		return nil, err
	}
	out, err := patch.ApplyWithOptions([]byte("{}"), patchOptions)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(out, &node); err != nil {
		return nil, err
	}
	return node, nil
}

// buildGroups returns one group per object class, ordered by class rank,
// followed by one group per distinct body. A class lists each body once.
func buildGroups(nodes map[string]entities.Document) []entities.TimelineGroup {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var classes, bodies []string
	bodiesByClass := make(map[string][]string)
	seenBody := make(map[string]bool)
	seenInClass := make(map[string]map[string]bool)
	for _, id := range ids {
		node := nodes[id]
		body := node.Body()

		if class := node.ObjClass(); class != "" {
			if _, ok := seenInClass[class]; !ok {
				classes = append(classes, class)
				seenInClass[class] = make(map[string]bool)
			}
			if body != "" && !seenInClass[class][body] {
				seenInClass[class][body] = true
				bodiesByClass[class] = append(bodiesByClass[class], body)
			}
		}

		if body != "" && !seenBody[body] {
			seenBody[body] = true
			bodies = append(bodies, body)
		}
	}

	sort.SliceStable(classes, func(i, j int) bool {
		oi, oj := valueobjects.ClassOrder(classes[i]), valueobjects.ClassOrder(classes[j])
		if oi != oj {
			return oi < oj
		}
		return classes[i] < classes[j]
	})

	groups := make([]entities.TimelineGroup, 0, len(classes)+len(bodies))
	for _, class := range classes {
		order := valueobjects.ClassOrder(class)
		groups = append(groups, entities.TimelineGroup{
			ID:           class,
			Content:      valueobjects.ClassDisplayName(class),
			Order:        &order,
			NestedGroups: bodiesByClass[class],
		})
	}
	for _, body := range bodies {
		groups = append(groups, entities.TimelineGroup{ID: body, Content: body})
	}
	return groups
}
