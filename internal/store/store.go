package store

import "context"

// Document is one stored document with its ID and decoded fields.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter is a single field condition for Query. Op is the comparison
// operator the backend understands ("==", ">=", "<=", ">", "<", "in").
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// WriteOp is one set operation inside a committed batch. Collection is a
// slash-separated path, so nested subcollections address the same way as
// top-level collections.
type WriteOp struct {
	Collection string
	ID         string
	Data       map[string]interface{}
	Merge      bool
}

// Store is the document-store surface the rest of the service depends on.
// The Firestore client stays behind this interface so services take it by
// constructor injection and tests substitute an in-memory fake.
type Store interface {
	// GetDocument returns the fields of collection/id, or a NotFoundError.
	GetDocument(ctx context.Context, collection, id string) (map[string]interface{}, error)

	// GetAll streams every document of a collection.
	GetAll(ctx context.Context, collection string) ([]Document, error)

	// Query returns the documents matching all filters.
	Query(ctx context.Context, collection string, filters []Filter) ([]Document, error)

	// GetExisting resolves which of the given IDs already exist, chunking
	// the lookups to respect the backend's "in"-filter size limit.
	GetExisting(ctx context.Context, collection string, ids []string) (map[string]map[string]interface{}, error)

	// CreateDocument writes a document under a generated ID.
	CreateDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error)

	// SetDocument writes a document under a known ID, merging or overwriting.
	SetDocument(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error

	// DeleteDocument removes one document.
	DeleteDocument(ctx context.Context, collection, id string) error

	// BatchWrite commits all ops as one atomic batch.
	BatchWrite(ctx context.Context, ops []WriteOp) error

	// MergeDocument runs fn inside a transaction: fn receives the current
	// fields (nil when absent) and returns the full replacement document.
	MergeDocument(ctx context.Context, collection, id string, fn func(existing map[string]interface{}) map[string]interface{}) error

	// ListDocumentIDs returns every document ID of a collection without
	// fetching field data.
	ListDocumentIDs(ctx context.Context, collection string) ([]string, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}
