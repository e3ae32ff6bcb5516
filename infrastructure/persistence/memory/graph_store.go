// Package memory holds process-local implementations of the gateway's ports.
// They back development mode and the service tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

const eventCollection = "_evstore_events"

type collection struct {
	kind  valueobjects.CollectionKind
	docs  map[string]entities.Document
	order []string
}

func (c *collection) put(doc entities.Document) {
	key := doc.Key()
	if _, ok := c.docs[key]; !ok {
		c.order = append(c.order, key)
	}
	c.docs[key] = doc
}

func (c *collection) remove(key string) {
	delete(c.docs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *collection) each(fn func(entities.Document)) {
	for _, k := range c.order {
		fn(c.docs[k])
	}
}

type snapshot struct {
	ctime float64
	doc   entities.Document // nil once deleted
}

// GraphStore is an in-memory graph store with an evstore-style event log.
// Writes through InsertDocuments, ReplaceDocument and RemoveDocuments are
// journaled; Seed writes are not.
type GraphStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	graphs      map[string][]string
	events      []entities.Event
	history     map[string][]snapshot
	seq         int
	now         func() time.Time
}

// Option configures a GraphStore.
type Option func(*GraphStore)

// WithClock overrides the event clock.
func WithClock(now func() time.Time) Option {
	return func(s *GraphStore) { s.now = now }
}

// WithGraph registers a named graph made of the given edge collections.
func WithGraph(name string, edgeCollections ...string) Option {
	return func(s *GraphStore) { s.graphs[name] = edgeCollections }
}

// NewGraphStore creates an empty store.
func NewGraphStore(opts ...Option) *GraphStore {
	s := &GraphStore{
		collections: make(map[string]*collection),
		graphs:      make(map[string][]string),
		history:     make(map[string][]snapshot),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GraphStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *GraphStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *GraphStore) CreateCollection(ctx context.Context, name string, kind valueobjects.CollectionKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(name, kind)
	return nil
}

func (s *GraphStore) ensure(name string, kind valueobjects.CollectionKind) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{kind: kind, docs: make(map[string]entities.Document)}
		s.collections[name] = c
	}
	return c
}

func (s *GraphStore) CountDocuments(ctx context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return int64(len(c.docs)), nil
}

func (s *GraphStore) lookup(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection or view not found: %s", name)
	}
	return c, nil
}

// Seed stores canonical documents without journaling them. Missing keys are
// generated; _id and _rev are assigned.
func (s *GraphStore) Seed(name string, kind valueobjects.CollectionKind, docs ...entities.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ensure(name, kind)
	for _, d := range docs {
		c.put(s.stamp(name, d.Clone()))
	}
}

func (s *GraphStore) stamp(name string, doc entities.Document) entities.Document {
	if doc.Key() == "" {
		doc[entities.FieldKey] = uuid.NewString()
	}
	s.seq++
	doc[entities.FieldID] = name + "/" + doc.Key()
	doc[entities.FieldRev] = "_" + strconv.Itoa(s.seq)
	return doc
}

func (s *GraphStore) document(id string) (entities.Document, bool) {
	slash := strings.LastIndex(id, "/")
	if slash < 0 {
		return nil, false
	}
	c, ok := s.collections[id[:slash]]
	if !ok {
		return nil, false
	}
	d, ok := c.docs[id[slash+1:]]
	return d, ok
}

func (s *GraphStore) Traverse(ctx context.Context, spec ports.TraversalSpec) ([]ports.TraversalRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edgeColls := []string{spec.EdgeCollection}
	if spec.Graph != "" {
		var ok bool
		if edgeColls, ok = s.graphs[spec.Graph]; !ok {
			return nil, fmt.Errorf("graph not found: %s", spec.Graph)
		}
	}

	var start entities.Document
	switch {
	case spec.StartID != "":
		start, _ = s.document(spec.StartID)
	case spec.StartCollection != "":
		c, err := s.lookup(spec.StartCollection)
		if err != nil {
			return nil, err
		}
		if len(c.order) > 0 {
			start = c.docs[c.order[0]]
		}
	}
	if start == nil {
		return nil, nil
	}

	allowed := make(map[string]bool, len(spec.VertexCollections))
	for _, name := range spec.VertexCollections {
		allowed[name] = true
	}

	var rows []ports.TraversalRow
	emit := func(v, e entities.Document, depth int) {
		if depth < spec.MinDepth {
			return
		}
		if len(allowed) > 0 {
			id := v.ID()
			if !allowed[id[:strings.LastIndex(id, "/")]] {
				return
			}
		}
		row := ports.TraversalRow{Vertex: v.Clone()}
		if e != nil {
			row.Edge = e.Clone()
		}
		rows = append(rows, row)
	}

	// Depth-first, edges unique per path.
	var walk func(v entities.Document, depth int, onPath map[string]bool)
	walk = func(v entities.Document, depth int, onPath map[string]bool) {
		if depth >= spec.MaxDepth {
			return
		}
		for _, name := range edgeColls {
			c, ok := s.collections[name]
			if !ok {
				continue
			}
			c.each(func(e entities.Document) {
				if e.From() != v.ID() || onPath[e.ID()] {
					return
				}
				next, ok := s.document(e.To())
				if !ok {
					return
				}
				emit(next, e, depth+1)
				onPath[e.ID()] = true
				walk(next, depth+1, onPath)
				delete(onPath, e.ID())
			})
		}
	}

	emit(start, nil, 0)
	walk(start, 0, make(map[string]bool))
	return rows, nil
}

func (s *GraphStore) FirstExample(ctx context.Context, name string, example map[string]interface{}) (entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	for _, k := range c.order {
		d := c.docs[k]
		if matches(d, example) {
			return d.Clone(), nil
		}
	}
	return nil, ports.ErrDocumentNotFound
}

func matches(d entities.Document, example map[string]interface{}) bool {
	for k, want := range example {
		if got, ok := d[k]; !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func (s *GraphStore) Show(ctx context.Context, sel valueobjects.Selection, opts ports.ShowOptions) ([]entities.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []entities.Group
	for _, kind := range sel.Kinds() {
		name := valueobjects.CollectionName(sel.Session(), kind)
		c, err := s.lookup(name)
		if err != nil {
			return nil, err
		}
		var nodes []entities.Document
		if sel.IsWhole() {
			c.each(func(d entities.Document) { nodes = append(nodes, d.Clone()) })
		} else {
			for _, key := range sel.Keys(kind) {
				if d, ok := c.docs[key]; ok {
					nodes = append(nodes, d.Clone())
				}
			}
		}
		if len(nodes) > 0 {
			groups = append(groups, entities.Group{Type: kind, Nodes: nodes})
		}
	}
	return groups, nil
}

func (s *GraphStore) ShowAt(ctx context.Context, sel valueobjects.Selection, timestamp float64) ([]entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.Document
	for _, id := range s.selectedIDs(sel) {
		var state entities.Document
		for _, snap := range s.history[id] {
			if snap.ctime > timestamp {
				break
			}
			state = snap.doc
		}
		if state != nil {
			out = append(out, state.Clone())
		}
	}
	return out, nil
}

// selectedIDs lists journaled document ids covered by sel, in first-write order.
func (s *GraphStore) selectedIDs(sel valueobjects.Selection) []string {
	if !sel.IsWhole() {
		var ids []string
		for _, kind := range sel.Kinds() {
			name := valueobjects.CollectionName(sel.Session(), kind)
			for _, key := range sel.Keys(kind) {
				ids = append(ids, name+"/"+key)
			}
		}
		return ids
	}

	var ids []string
	seen := make(map[string]bool)
	for _, e := range s.events {
		if !s.covers(sel, e.Meta.ID) || seen[e.Meta.ID] {
			continue
		}
		seen[e.Meta.ID] = true
		ids = append(ids, e.Meta.ID)
	}
	return ids
}

func (s *GraphStore) covers(sel valueobjects.Selection, id string) bool {
	slash := strings.LastIndex(id, "/")
	if slash < 0 {
		return false
	}
	coll, key := id[:slash], id[slash+1:]
	for _, kind := range sel.Kinds() {
		if coll != valueobjects.CollectionName(sel.Session(), kind) {
			continue
		}
		if sel.IsWhole() {
			return true
		}
		for _, k := range sel.Keys(kind) {
			if k == key {
				return true
			}
		}
	}
	return false
}

func (s *GraphStore) InsertDocuments(ctx context.Context, name string, docs []entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if key := d.Key(); key != "" {
			if _, exists := c.docs[key]; exists {
				return fmt.Errorf("unique constraint violated: %s/%s", name, key)
			}
		}
		if c.kind.IsEdge() && (d.From() == "" || d.To() == "") {
			return fmt.Errorf("edge attribute missing or invalid in %s", name)
		}
	}
	for _, d := range docs {
		doc := s.stamp(name, d.Clone())
		c.put(doc)
		s.journal(entities.EventCreated, nil, doc)
	}
	return nil
}

func (s *GraphStore) ReplaceDocument(ctx context.Context, name string, doc entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	if doc.Key() == "" {
		return fmt.Errorf("document key missing for %s", name)
	}
	prev, existed := c.docs[doc.Key()]
	next := s.stamp(name, doc.Without(entities.FieldID, entities.FieldRev))
	c.put(next)
	if existed {
		s.journal(entities.EventUpdated, prev, next)
	} else {
		s.journal(entities.EventCreated, nil, next)
	}
	return nil
}

func (s *GraphStore) RemoveDocuments(ctx context.Context, name string, docs []entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	for _, d := range docs {
		key := d.Key()
		if key == "" {
			if id := d.ID(); strings.HasPrefix(id, name+"/") {
				key = strings.TrimPrefix(id, name+"/")
			}
		}
		prev, ok := c.docs[key]
		if !ok {
			continue
		}
		c.remove(key)
		s.journal(entities.EventDeleted, prev, nil)
	}
	return nil
}

// journal appends an event whose command patches prev into next.
func (s *GraphStore) journal(event string, prev, next entities.Document) {
	s.seq++
	ctime := float64(s.now().UnixNano()) / float64(time.Second)

	subject := next
	if subject == nil {
		subject = prev
	}
	command, _ := json.Marshal(diffPatch(prev, next))
	s.events = append(s.events, entities.Event{
		ID:      eventCollection + "/" + strconv.Itoa(s.seq),
		Event:   event,
		Ctime:   ctime,
		Meta:    entities.EventMeta{ID: subject.ID(), Key: subject.Key(), Rev: subject.Str(entities.FieldRev)},
		Command: command,
	})

	var state entities.Document
	if next != nil {
		state = next.Clone()
	}
	s.history[subject.ID()] = append(s.history[subject.ID()], snapshot{ctime: ctime, doc: state})
}

type patchOp struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// diffPatch builds an RFC 6902 patch turning prev into next. A nil next
// removes every field of prev.
func diffPatch(prev, next entities.Document) []patchOp {
	ops := []patchOp{}
	for _, k := range sortedKeys(prev) {
		if _, ok := next[k]; !ok {
			ops = append(ops, patchOp{Op: "remove", Path: pointer(k)})
		}
	}
	for _, k := range sortedKeys(next) {
		if old, ok := prev[k]; ok && reflect.DeepEqual(old, next[k]) {
			continue
		}
		ops = append(ops, patchOp{Op: "add", Path: pointer(k), Value: next[k]})
	}
	return ops
}

func sortedKeys(d entities.Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pointer(field string) string {
	return "/" + strings.NewReplacer("~", "~0", "/", "~1").Replace(field)
}

func (s *GraphStore) GroupedLog(ctx context.Context, sel valueobjects.Selection, opts ports.GroupedLogOptions) ([]entities.EventGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := make(map[string][]entities.Event)
	for _, e := range s.events {
		if !s.covers(sel, e.Meta.ID) {
			continue
		}
		key := e.Event
		if opts.GroupBy != "event" {
			key = e.Meta.ID
		}
		if !opts.ReturnCommands {
			e.Command = nil
		}
		byKey[key] = append(byKey[key], e)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if opts.GroupSort == "desc" {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}

	groups := make([]entities.EventGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, entities.EventGroup{Event: k, Events: byKey[k]})
	}
	return groups, nil
}

func (s *GraphStore) Log(ctx context.Context, sel valueobjects.Selection, opts ports.LogOptions) ([]entities.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []entities.Event
	for _, e := range s.events {
		if s.covers(sel, e.Meta.ID) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if opts.Sort == "desc" {
			return out[i].Ctime > out[j].Ctime
		}
		return out[i].Ctime < out[j].Ctime
	})
	return out, nil
}
