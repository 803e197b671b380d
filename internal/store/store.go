// Package store defines the Store Adapter: an opaque façade over the
// underlying document store (spec.md §4.1), specified only at its
// interface. Two implementations ship alongside it: memstore (an
// in-process adapter used by tests and the live-query multiplexer's
// deterministic test suite) and firestorestore (a Cloud Firestore
// backed adapter used in production).
package store

import "context"

// Op is the change-feed operation type a watch emits.
type Op string

const (
	OpInsert  Op = "insert"
	OpUpdate  Op = "update"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
)

// ChangeEvent is a single change-feed event. FullDocument and
// OldDocument are best-effort: not every backing store supplies them,
// which is why the Live-Query Multiplexer always re-fetches the
// post-change document itself rather than trusting this payload
// (spec.md §9, "Change-feed variability").
type ChangeEvent struct {
	Op           Op
	DocumentID   string
	FullDocument map[string]interface{}
	OldDocument  map[string]interface{}
}

// Feed is a change-feed handle. A subscription owns exactly one Feed
// and must Close it on destruction (spec.md §3, "Ownership").
type Feed interface {
	Events() <-chan ChangeEvent
	Errors() <-chan error
	Close() error
}

// Adapter is the Store Adapter façade (spec.md §4.1). Every method is a
// suspension point and must be treated as blocking.
type Adapter interface {
	// Add generates a new opaque id, stores doc, and returns the id.
	Add(ctx context.Context, collection string, doc map[string]interface{}) (string, error)

	// Get returns the document, or (nil, nil) for both "not found" and
	// "id not in the native format" — callers treat these equivalently.
	Get(ctx context.Context, collection, id string) (map[string]interface{}, error)

	// Update shallow-merges patch at the top level; nested mappings are
	// replaced wholesale. Absent values in patch are ignored, not
	// stored as null. ok reports whether the store acknowledged the
	// write; it does not distinguish "no such id" from "no change".
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) (ok bool, err error)

	// Delete removes a document by id.
	Delete(ctx context.Context, collection, id string) (ok bool, err error)

	// Query executes a native filter/sort/paging triple against a
	// collection, as produced by query.Translate.
	Query(ctx context.Context, collection string, filter map[string]interface{}, sort map[string]int, skip, limit int) ([]map[string]interface{}, error)

	// Watch opens a change-feed scoped to collection, filtered by the
	// native pipeline (the prefixed watch-pipeline shape the
	// Live-Query Multiplexer builds for collection subscriptions, or
	// nil/empty for an unfiltered collection-wide feed).
	Watch(ctx context.Context, collection string, pipeline map[string]interface{}) (Feed, error)
}
