// Package store defines the document-store contract the finance and
// report cores are written against, plus a sqlite-backed implementation
// and an in-memory implementation used by tests.
package store

import (
	"context"
	"errors"
)

// Contractual collection names.
const (
	CollectionTemplateSettings = "template_settings"
	CollectionExpenseSheets    = "expense_sheets"
	CollectionAdvanceRequests  = "advance_requests"
	CollectionCounters         = "counters"
)

var (
	// ErrNoDocuments is returned by FindOne when nothing matched the filter.
	ErrNoDocuments = errors.New("no documents in result")

	// ErrDuplicateKey is returned when an insert or update violates a
	// unique constraint. Callers retry number allocation on this error.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Filter matches documents by equality on top-level fields. The "id" key
// matches the document id.
type Filter map[string]interface{}

// Sort orders results by one top-level field.
type Sort struct {
	Field string
	Desc  bool
}

// FindOptions bound and order a Find.
type FindOptions struct {
	Sort   *Sort
	Limit  int
	Offset int
}

// Collection is a schemaless document collection.
type Collection interface {
	// FindOne decodes the first matching document into out.
	FindOne(ctx context.Context, filter Filter, out interface{}) error

	// Find decodes all matching documents into out, which must be a
	// pointer to a slice.
	Find(ctx context.Context, filter Filter, opts FindOptions, out interface{}) error

	// InsertOne stores doc under the given id.
	InsertOne(ctx context.Context, id string, doc interface{}) error

	// UpdateOne replaces the first document matching filter with doc and
	// reports whether anything matched.
	UpdateOne(ctx context.Context, filter Filter, doc interface{}) (bool, error)

	// DeleteOne removes the first document matching filter and reports
	// whether anything matched.
	DeleteOne(ctx context.Context, filter Filter) (bool, error)

	// CountDocuments counts documents matching filter.
	CountDocuments(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
}
