package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"liliapp-bi-service/internal/apperrors"
)

// FirestoreStore implements Store on top of the Firestore SDK.
type FirestoreStore struct {
	client    *firestore.Client
	chunkSize int
}

// NewFirestoreStore wraps an initialized Firestore client. chunkSize caps the
// number of document IDs per "in" filter in GetExisting; Firestore rejects
// disjunctions above 30 values.
func NewFirestoreStore(client *firestore.Client, chunkSize int) *FirestoreStore {
	if chunkSize <= 0 || chunkSize > 30 {
		chunkSize = 30
	}
	return &FirestoreStore{client: client, chunkSize: chunkSize}
}

func (s *FirestoreStore) col(path string) *firestore.CollectionRef {
	return s.client.Collection(path)
}

func (s *FirestoreStore) GetDocument(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	snap, err := s.col(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, &apperrors.NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return snap.Data(), nil
}

func (s *FirestoreStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	return s.drain(collection, s.col(collection).Documents(ctx))
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, filters []Filter) ([]Document, error) {
	q := s.col(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	return s.drain(collection, q.Documents(ctx))
}

func (s *FirestoreStore) drain(collection string, it *firestore.DocumentIterator) ([]Document, error) {
	defer it.Stop()
	var docs []Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate %s: %w", collection, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (s *FirestoreStore) GetExisting(ctx context.Context, collection string, ids []string) (map[string]map[string]interface{}, error) {
	existing := make(map[string]map[string]interface{}, len(ids))
	col := s.col(collection)
	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		refs := make([]*firestore.DocumentRef, 0, end-start)
		for _, id := range ids[start:end] {
			refs = append(refs, col.Doc(id))
		}
		it := col.Query.Where(firestore.DocumentID, "in", refs).Documents(ctx)
		docs, err := s.drain(collection, it)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			existing[d.ID] = d.Data
		}
	}
	return existing, nil
}

func (s *FirestoreStore) CreateDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := s.col(collection).Add(ctx, data)
	if err != nil {
		return "", &apperrors.StoreWriteError{Collection: collection, Err: err}
	}
	return ref.ID, nil
}

func (s *FirestoreStore) SetDocument(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}
	if _, err := s.col(collection).Doc(id).Set(ctx, data, opts...); err != nil {
		return &apperrors.StoreWriteError{Collection: collection, Err: err}
	}
	return nil
}

func (s *FirestoreStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := s.col(collection).Doc(id).Delete(ctx); err != nil {
		return &apperrors.StoreWriteError{Collection: collection, Err: err}
	}
	return nil
}

func (s *FirestoreStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, op := range ops {
		ref := s.col(op.Collection).Doc(op.ID)
		if op.Merge {
			batch.Set(ref, op.Data, firestore.MergeAll)
		} else {
			batch.Set(ref, op.Data)
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return &apperrors.StoreWriteError{Collection: ops[0].Collection, Err: err}
	}
	return nil
}

func (s *FirestoreStore) MergeDocument(ctx context.Context, collection, id string, fn func(existing map[string]interface{}) map[string]interface{}) error {
	ref := s.col(collection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		var existing map[string]interface{}
		switch {
		case status.Code(err) == codes.NotFound:
			existing = nil
		case err != nil:
			return err
		default:
			existing = snap.Data()
		}
		return tx.Set(ref, fn(existing))
	})
	if err != nil {
		return &apperrors.StoreWriteError{Collection: collection, Err: err}
	}
	return nil
}

func (s *FirestoreStore) ListDocumentIDs(ctx context.Context, collection string) ([]string, error) {
	it := s.col(collection).DocumentRefs(ctx)
	var ids []string
	for {
		ref, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list ids %s: %w", collection, err)
		}
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func (s *FirestoreStore) Count(ctx context.Context, collection string) (int, error) {
	ids, err := s.ListDocumentIDs(ctx, collection)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
