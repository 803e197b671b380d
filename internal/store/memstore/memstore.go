// Package memstore is an in-process store.Adapter, grounded on the
// teacher's internal/repository/mocks/mock_repository.go map+mutex
// style and extended with a genuine in-process change-feed (no polling
// needed) so the Live-Query Multiplexer can be exercised deterministically
// in tests without wall-clock delays.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
)

const watcherBuffer = 256

// Store is an in-memory, mutex-guarded implementation of store.Adapter.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	watchers    map[string][]*watcher
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]interface{}),
		watchers:    make(map[string][]*watcher),
	}
}

var _ store.Adapter = (*Store)(nil)

func (s *Store) Add(_ context.Context, collection string, doc map[string]interface{}) (string, error) {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	id := uuid.New().String()
	stored := cloneDoc(doc)
	delete(stored, "id")
	s.collections[collection][id] = stored
	full := withID(stored, id)
	s.mu.Unlock()

	s.notify(collection, store.ChangeEvent{Op: store.OpInsert, DocumentID: id, FullDocument: full})
	return id, nil
}

func (s *Store) Get(_ context.Context, collection, id string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	doc, ok := coll[id]
	if !ok {
		return nil, nil
	}
	return withID(doc, id), nil
}

func (s *Store) Update(_ context.Context, collection, id string, patch map[string]interface{}) (bool, error) {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	existing, had := s.collections[collection][id]
	if !had {
		existing = make(map[string]interface{})
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		existing[k] = v
	}
	s.collections[collection][id] = existing
	full := withID(existing, id)
	s.mu.Unlock()

	s.notify(collection, store.ChangeEvent{Op: store.OpUpdate, DocumentID: id, FullDocument: full})
	return true, nil
}

func (s *Store) Delete(_ context.Context, collection, id string) (bool, error) {
	s.mu.Lock()
	coll := s.collections[collection]
	var existed bool
	var old map[string]interface{}
	if coll != nil {
		old, existed = coll[id]
		if existed {
			delete(coll, id)
		}
	}
	s.mu.Unlock()

	if existed {
		s.notify(collection, store.ChangeEvent{Op: store.OpDelete, DocumentID: id, OldDocument: withID(old, id)})
	}
	return existed, nil
}

func (s *Store) Query(_ context.Context, collection string, filter map[string]interface{}, sortBy map[string]int, skip, limit int) ([]map[string]interface{}, error) {
	s.mu.RLock()
	coll := s.collections[collection]
	matched := make([]map[string]interface{}, 0, len(coll))
	for id, doc := range coll {
		if matchFilter(doc, filter) {
			matched = append(matched, withID(doc, id))
		}
	}
	s.mu.RUnlock()

	if len(sortBy) > 0 {
		var field string
		var dir int
		for f, d := range sortBy {
			field, dir = f, d
			break
		}
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := compareValues(matched[i][field], matched[j][field])
			if dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		})
	} else {
		// Deterministic default order: by id, so tests are reproducible.
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i]["id"].(string) < matched[j]["id"].(string)
		})
	}

	if skip > 0 {
		if skip >= len(matched) {
			return []map[string]interface{}{}, nil
		}
		matched = matched[skip:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) Watch(ctx context.Context, collection string, pipeline map[string]interface{}) (store.Feed, error) {
	w := &watcher{
		events: make(chan store.ChangeEvent, watcherBuffer),
		errors: make(chan error, 1),
		filter: pipeline,
	}

	s.mu.Lock()
	s.watchers[collection] = append(s.watchers[collection], w)
	s.mu.Unlock()

	w.closeFn = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[collection]
		for i, candidate := range list {
			if candidate == w {
				s.watchers[collection] = append(list[:i], list[i+1:]...)
				break
			}
		}
		return nil
	}

	go func() {
		<-ctx.Done()
		w.Close()
	}()

	return w, nil
}

func (s *Store) notify(collection string, event store.ChangeEvent) {
	s.mu.RLock()
	watchers := append([]*watcher(nil), s.watchers[collection]...)
	s.mu.RUnlock()

	doc := event.FullDocument
	if doc == nil {
		doc = event.OldDocument
	}
	for _, w := range watchers {
		if !matchFilter(doc, w.filter) {
			continue
		}
		select {
		case w.events <- event:
		default:
			// Bounded queue: a slow watcher is terminated rather than
			// allowed to block the store, mirroring the design's
			// per-channel backpressure contract (spec.md §5).
			w.errSafeClose(apperr.New(apperr.Internal, "watcher buffer overflow"))
		}
	}
}

type watcher struct {
	mu      sync.Mutex
	events  chan store.ChangeEvent
	errors  chan error
	filter  map[string]interface{}
	closed  bool
	closeFn func() error
}

func (w *watcher) Events() <-chan store.ChangeEvent { return w.events }
func (w *watcher) Errors() <-chan error              { return w.errors }

func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.events)
	close(w.errors)
	if w.closeFn != nil {
		return w.closeFn()
	}
	return nil
}

func (w *watcher) errSafeClose(err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	select {
	case w.errors <- err:
	default:
	}
	w.mu.Unlock()
	_ = w.Close()
}

func cloneDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func withID(doc map[string]interface{}, id string) map[string]interface{} {
	out := cloneDoc(doc)
	out["id"] = id
	return out
}
