package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"liliapp-bi-service/internal/apperrors"
)

// MemoryStore is an in-process Store used by tests and local development.
// It keeps the same path semantics as the Firestore implementation:
// slash-separated collection paths, batch writes, merge sets.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]interface{}

	// BatchSizes records the size of every committed batch, so callers can
	// assert on flush behavior.
	BatchSizes []int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]map[string]interface{})}
}

// Seed places a document directly, bypassing batch accounting.
func (s *MemoryStore) Seed(collection, id string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = cloneDoc(data)
}

func (s *MemoryStore) collection(path string) map[string]map[string]interface{} {
	if s.data[path] == nil {
		s.data[path] = make(map[string]map[string]interface{})
	}
	return s.data[path]
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.data[collection][id]
	if !ok {
		return nil, &apperrors.NotFoundError{Collection: collection, ID: id}
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(collection, nil), nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(collection, filters), nil
}

func (s *MemoryStore) snapshot(collection string, filters []Filter) []Document {
	ids := make([]string, 0, len(s.data[collection]))
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []Document
	for _, id := range ids {
		doc := s.data[collection][id]
		if matchesFilters(doc, filters) {
			docs = append(docs, Document{ID: id, Data: cloneDoc(doc)})
		}
	}
	return docs
}

func (s *MemoryStore) GetExisting(ctx context.Context, collection string, ids []string) (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := make(map[string]map[string]interface{})
	for _, id := range ids {
		if doc, ok := s.data[collection][id]; ok {
			existing[id] = cloneDoc(doc)
		}
	}
	return existing, nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.collection(collection)[id] = cloneDoc(data)
	return id, nil
}

func (s *MemoryStore) SetDocument(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(collection, id, data, merge)
	return nil
}

func (s *MemoryStore) set(collection, id string, data map[string]interface{}, merge bool) {
	col := s.collection(collection)
	if merge {
		if existing, ok := col[id]; ok {
			for k, v := range data {
				existing[k] = v
			}
			return
		}
	}
	col[id] = cloneDoc(data)
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		s.set(op.Collection, op.ID, op.Data, op.Merge)
	}
	s.BatchSizes = append(s.BatchSizes, len(ops))
	return nil
}

func (s *MemoryStore) MergeDocument(ctx context.Context, collection, id string, fn func(existing map[string]interface{}) map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing map[string]interface{}
	if doc, ok := s.data[collection][id]; ok {
		existing = cloneDoc(doc)
	}
	s.collection(collection)[id] = fn(existing)
	return nil
}

func (s *MemoryStore) ListDocumentIDs(ctx context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data[collection]))
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection]), nil
}

// Collections returns every known collection path, nested ones included.
func (s *MemoryStore) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for path, docs := range s.data {
		if len(docs) > 0 {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// SubcollectionsOf lists the subcollection paths directly under the given
// parent document path.
func (s *MemoryStore) SubcollectionsOf(parentPath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := parentPath + "/"
	var paths []string
	for path, docs := range s.data {
		if strings.HasPrefix(path, prefix) && len(docs) > 0 {
			rest := strings.TrimPrefix(path, prefix)
			if !strings.Contains(rest, "/") {
				paths = append(paths, path)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

func (s *MemoryStore) Close() error { return nil }

func matchesFilters(doc map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		if !matchesFilter(doc[f.Field], f) {
			return false
		}
	}
	return true
}

func matchesFilter(value interface{}, f Filter) bool {
	switch f.Op {
	case "==":
		return fmt.Sprint(value) == fmt.Sprint(f.Value)
	case "in":
		if list, ok := f.Value.([]interface{}); ok {
			for _, candidate := range list {
				if fmt.Sprint(value) == fmt.Sprint(candidate) {
					return true
				}
			}
		}
		return false
	case ">=", "<=", ">", "<":
		cmp, ok := compareValues(value, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case ">=":
			return cmp >= 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		default:
			return cmp < 0
		}
	default:
		return false
	}
}

func compareValues(a, b interface{}) (int, bool) {
	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	if af, ok := toNumber(a); ok {
		bf, ok := toNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	return strings.Compare(as, bs), true
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func cloneDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
