// Package firestorestore is the Cloud Firestore backed store.Adapter,
// grounded on the teacher's internal/repository.FirestoreRepository
// (client wrapping, RemoveUndefinedValues, QueryOption chaining).
// Firestore has no native change-stream API reachable from this client,
// so Watch falls back to bounded-interval polling, grounded on
// laura-db's change_stream.go watchLoop/pollOplog pattern.
package firestorestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
)

// Store is a Cloud Firestore backed implementation of store.Adapter.
type Store struct {
	client       *firestore.Client
	pollInterval time.Duration
}

// New wraps an already-initialized Firestore client. pollInterval
// governs how often Watch re-scans a collection for changes; callers
// typically pass config.StoreConfig.PollInterval.
func New(client *firestore.Client, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Store{client: client, pollInterval: pollInterval}
}

var _ store.Adapter = (*Store)(nil)

func (s *Store) Add(ctx context.Context, collection string, doc map[string]interface{}) (string, error) {
	id := uuid.New().String()
	clean := removeUndefinedValues(doc)
	cleanMap, _ := clean.(map[string]interface{})
	if cleanMap == nil {
		cleanMap = map[string]interface{}{}
	}
	ref := s.client.Collection(collection).Doc(id)
	if _, err := ref.Set(ctx, cleanMap); err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to create document", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to get document", err)
	}
	return withID(snap.Data(), snap.Ref.ID), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]interface{}) (bool, error) {
	clean := removeUndefinedValues(patch)
	cleanMap, _ := clean.(map[string]interface{})
	data := make(map[string]interface{}, len(cleanMap))
	paths := make([]firestore.FieldPath, 0, len(cleanMap))
	for k, v := range cleanMap {
		if k == "id" {
			continue
		}
		data[k] = v
		paths = append(paths, firestore.FieldPath{k})
	}

	ref := s.client.Collection(collection).Doc(id)
	if len(paths) == 0 {
		return true, nil
	}

	// Update fails on a missing document; Set merged on the patch's
	// top-level field paths creates a missing document and replaces each
	// named field wholesale (nested maps included), so ok never
	// distinguishes "no such id" from "no change" (spec.md §9).
	if _, err := ref.Set(ctx, data, firestore.Merge(paths...)); err != nil {
		return false, apperr.Wrap(apperr.Internal, "failed to update document", err)
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) (bool, error) {
	ref := s.client.Collection(collection).Doc(id)
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, apperr.Wrap(apperr.Internal, "failed to read document before delete", err)
	}
	if !snap.Exists() {
		return false, nil
	}
	if _, err := ref.Delete(ctx); err != nil {
		return false, apperr.Wrap(apperr.Internal, "failed to delete document", err)
	}
	return true, nil
}

func (s *Store) Query(ctx context.Context, collection string, filter map[string]interface{}, sortBy map[string]int, skip, limit int) ([]map[string]interface{}, error) {
	q := s.client.Collection(collection).Query

	clauses, err := flattenFilter(filter)
	if err != nil {
		return nil, err
	}
	for _, c := range clauses {
		q = q.Where(c.field, c.op, c.value)
	}

	for field, dir := range sortBy {
		direction := firestore.Asc
		if dir < 0 {
			direction = firestore.Desc
		}
		q = q.OrderBy(field, direction)
	}
	if skip > 0 {
		q = q.Offset(skip)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query collection", err)
	}
	result := make([]map[string]interface{}, len(docs))
	for i, d := range docs {
		result[i] = withID(d.Data(), d.Ref.ID)
	}
	return result, nil
}

// whereClause is one flattened leg of a Firestore-compatible Where chain.
type whereClause struct {
	field string
	op    string
	value interface{}
}

var nativeToFirestoreOp = map[string]string{
	"eq":  "==",
	"ne":  "!=",
	"lt":  "<",
	"lte": "<=",
	"gt":  ">",
	"gte": ">=",
	"in":  "in",
	"nin": "not-in",
}

// flattenFilter converts the native AND-tree filter (query.Translate's
// output, also consumed by memstore.matchFilter) into a flat chain of
// Firestore Where clauses. Firestore's Go client only supports implicit
// AND across chained Where calls, never nested OR — which is fine, since
// the query model never produces OR.
func flattenFilter(filter map[string]interface{}) ([]whereClause, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	if andList, ok := filter["AND"]; ok {
		return flattenFragmentList(andList)
	}
	var clauses []whereClause
	for field, raw := range filter {
		opMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fieldClauses, err := flattenFieldOps(field, opMap)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, fieldClauses...)
	}
	return clauses, nil
}

func flattenFragmentList(raw interface{}) ([]whereClause, error) {
	var clauses []whereClause
	frags, ok := raw.([]interface{})
	if !ok {
		maps, isMaps := raw.([]map[string]interface{})
		if !isMaps {
			return nil, nil
		}
		for _, m := range maps {
			frags = append(frags, m)
		}
	}
	for _, frag := range frags {
		m, ok := frag.(map[string]interface{})
		if !ok {
			continue
		}
		sub, err := flattenFilter(m)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, sub...)
	}
	return clauses, nil
}

func flattenFieldOps(field string, opMap map[string]interface{}) ([]whereClause, error) {
	if andList, ok := opMap["AND"]; ok {
		frags, ok := andList.([]interface{})
		if !ok {
			maps, isMaps := andList.([]map[string]interface{})
			if !isMaps {
				return nil, nil
			}
			for _, m := range maps {
				frags = append(frags, m)
			}
		}
		var clauses []whereClause
		for _, frag := range frags {
			sub, ok := frag.(map[string]interface{})
			if !ok {
				continue
			}
			c, err := flattenFieldOps(field, sub)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c...)
		}
		return clauses, nil
	}

	var clauses []whereClause
	for op, value := range opMap {
		if op == "elemMatch" {
			sub, ok := value.(map[string]interface{})
			if !ok {
				return nil, apperr.New(apperr.InvalidQuery, "elemMatch requires an operator map")
			}
			eqValue, ok := sub["eq"]
			if !ok {
				return nil, apperr.New(apperr.InvalidQuery, "only equality array-contains is supported")
			}
			clauses = append(clauses, whereClause{field: field, op: "array-contains", value: eqValue})
			continue
		}
		fsOp, ok := nativeToFirestoreOp[op]
		if !ok {
			return nil, apperr.New(apperr.InvalidQuery, fmt.Sprintf("unsupported filter operator %q", op))
		}
		clauses = append(clauses, whereClause{field: field, op: fsOp, value: value})
	}
	return clauses, nil
}

// Watch opens a bounded-interval polling feed. Each tick re-runs the
// collection scan filtered by pipeline and diffs it against the
// previous snapshot to synthesize insert/update/delete events, since
// the Firestore client exposed here has no native oplog/change-stream
// primitive to tail (spec.md §9, "Change-feed variability").
func (s *Store) Watch(ctx context.Context, collection string, pipeline map[string]interface{}) (store.Feed, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	f := &pollFeed{
		events: make(chan store.ChangeEvent, 256),
		errors: make(chan error, 1),
		cancel: cancel,
	}

	go f.run(watchCtx, s, collection, pipeline)
	return f, nil
}

type pollFeed struct {
	mu      sync.Mutex
	events  chan store.ChangeEvent
	errors  chan error
	cancel  context.CancelFunc
	closed  bool
}

func (f *pollFeed) Events() <-chan store.ChangeEvent { return f.events }
func (f *pollFeed) Errors() <-chan error             { return f.errors }

func (f *pollFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.cancel()
	close(f.events)
	close(f.errors)
	return nil
}

func (f *pollFeed) run(ctx context.Context, s *Store, collection string, pipeline map[string]interface{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	seen := make(map[string]map[string]interface{})
	if err := f.scan(ctx, s, collection, pipeline, seen); err != nil {
		f.emitErr(err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.scan(ctx, s, collection, pipeline, seen); err != nil {
				f.emitErr(err)
			}
		}
	}
}

func (f *pollFeed) scan(ctx context.Context, s *Store, collection string, pipeline map[string]interface{}, seen map[string]map[string]interface{}) error {
	docs, err := s.Query(ctx, collection, pipeline, nil, 0, 0)
	if err != nil {
		return err
	}

	current := make(map[string]map[string]interface{}, len(docs))
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		current[id] = doc
		if prev, existed := seen[id]; !existed {
			f.emit(store.ChangeEvent{Op: store.OpInsert, DocumentID: id, FullDocument: doc})
		} else if !docsEqual(prev, doc) {
			f.emit(store.ChangeEvent{Op: store.OpUpdate, DocumentID: id, FullDocument: doc, OldDocument: prev})
		}
	}
	for id, prev := range seen {
		if _, stillThere := current[id]; !stillThere {
			f.emit(store.ChangeEvent{Op: store.OpDelete, DocumentID: id, OldDocument: prev})
		}
	}

	for id := range seen {
		delete(seen, id)
	}
	for id, doc := range current {
		seen[id] = doc
	}
	return nil
}

func (f *pollFeed) emit(event store.ChangeEvent) {
	select {
	case f.events <- event:
	default:
		// Bounded queue: a slow consumer is dropped rather than allowed
		// to block polling for every other watcher (spec.md §5).
		f.emitErr(apperr.New(apperr.Internal, "watcher buffer overflow"))
		_ = f.Close()
	}
}

func (f *pollFeed) emitErr(err error) {
	select {
	case f.errors <- err:
	default:
	}
}

func docsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if fmt.Sprint(b[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func withID(doc map[string]interface{}, id string) map[string]interface{} {
	out := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["id"] = id
	return out
}

// removeUndefinedValues recursively strips nil values from maps/slices,
// matching the teacher's repository.RemoveUndefinedValues.
func removeUndefinedValues(obj interface{}) interface{} {
	switch v := obj.(type) {
	case map[string]interface{}:
		cleaned := make(map[string]interface{})
		for key, value := range v {
			if value == nil {
				continue
			}
			if cv := removeUndefinedValues(value); cv != nil {
				cleaned[key] = cv
			}
		}
		return cleaned
	case []interface{}:
		cleaned := make([]interface{}, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			cleaned = append(cleaned, removeUndefinedValues(item))
		}
		return cleaned
	default:
		return obj
	}
}
