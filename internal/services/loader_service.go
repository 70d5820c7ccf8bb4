package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/models"
	"liliapp-bi-service/internal/store"
)

// LoadReport summarizes one upsert run over a collection.
type LoadReport struct {
	Collection string `json:"collection"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Unchanged  int    `json:"unchanged"`
	Skipped    int    `json:"skipped"`
	Batches    int    `json:"batches"`
}

// LoaderService writes mapped documents into the store idempotently:
// absent documents are created, present ones are merge-updated only when a
// field actually changed, and unchanged documents are a no-op.
type LoaderService struct {
	store     store.Store
	batchSize int
	logger    *logrus.Entry
}

// NewLoaderService creates a loader. batchSize caps the operations per
// committed batch; the store rejects batches above 400 ops.
func NewLoaderService(s store.Store, batchSize int, logger *logrus.Logger) *LoaderService {
	if batchSize <= 0 || batchSize > 400 {
		batchSize = 400
	}
	return &LoaderService{
		store:     s,
		batchSize: batchSize,
		logger:    logger.WithField("component", "loader"),
	}
}

// Upsert loads records into a top-level collection. idField names the key
// holding the document ID; it is stripped from the payload before writing.
// With merge=true existing documents are diffed field by field and only
// changed ones rewritten; with merge=false they are always overwritten.
func (l *LoaderService) Upsert(ctx context.Context, collection string, records []map[string]interface{}, idField string, merge bool) (*LoadReport, error) {
	report := &LoadReport{Collection: collection}
	if len(records) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if id := docID(rec, idField); id != "" {
			ids = append(ids, id)
		}
	}

	existing, err := l.store.GetExisting(ctx, collection, ids)
	if err != nil {
		return nil, err
	}

	var pending []store.WriteOp
	for _, rec := range records {
		id := docID(rec, idField)
		if id == "" {
			report.Skipped++
			continue
		}
		payload := stripField(rec, idField)

		stored, found := existing[id]
		switch {
		case !found:
			pending = append(pending, store.WriteOp{Collection: collection, ID: id, Data: payload})
			report.Created++
		case !merge:
			pending = append(pending, store.WriteOp{Collection: collection, ID: id, Data: payload})
			report.Updated++
		case fieldsChanged(payload, stored):
			pending = append(pending, store.WriteOp{Collection: collection, ID: id, Data: payload, Merge: true})
			report.Updated++
		default:
			report.Unchanged++
		}

		if len(pending) >= l.batchSize {
			if err := l.flush(ctx, collection, &pending, report); err != nil {
				return nil, err
			}
		}
	}
	if err := l.flush(ctx, collection, &pending, report); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"collection": collection,
		"created":    report.Created,
		"updated":    report.Updated,
		"unchanged":  report.Unchanged,
		"skipped":    report.Skipped,
		"batches":    report.Batches,
	}).Info("collection load finished")

	return report, nil
}

// UpsertNested loads records into per-parent subcollections. parentField
// names the key carrying the parent document ID; it is stripped from the
// payload and only used to build the collection path from pathTemplate
// (e.g. "users/%s/customer_profiles"). Records without a parent ID count
// as skipped.
func (l *LoaderService) UpsertNested(ctx context.Context, pathTemplate string, records []map[string]interface{}, parentField, idField string, merge bool) (*LoadReport, error) {
	report := &LoadReport{Collection: pathTemplate}
	if len(records) == 0 {
		return report, nil
	}

	// group by parent so existence lookups stay per-subcollection
	groups := make(map[string][]map[string]interface{})
	var order []string
	for _, rec := range records {
		parentID := docID(rec, parentField)
		if parentID == "" {
			report.Skipped++
			continue
		}
		path := fmt.Sprintf(pathTemplate, parentID)
		if _, seen := groups[path]; !seen {
			order = append(order, path)
		}
		groups[path] = append(groups[path], stripField(rec, parentField))
	}

	var pending []store.WriteOp
	for _, path := range order {
		ids := make([]string, 0, len(groups[path]))
		for _, rec := range groups[path] {
			if id := docID(rec, idField); id != "" {
				ids = append(ids, id)
			}
		}
		existing, err := l.store.GetExisting(ctx, path, ids)
		if err != nil {
			return nil, err
		}

		for _, rec := range groups[path] {
			id := docID(rec, idField)
			if id == "" {
				report.Skipped++
				continue
			}
			payload := stripField(rec, idField)

			stored, found := existing[id]
			switch {
			case !found:
				pending = append(pending, store.WriteOp{Collection: path, ID: id, Data: payload})
				report.Created++
			case !merge:
				pending = append(pending, store.WriteOp{Collection: path, ID: id, Data: payload})
				report.Updated++
			case fieldsChanged(payload, stored):
				pending = append(pending, store.WriteOp{Collection: path, ID: id, Data: payload, Merge: true})
				report.Updated++
			default:
				report.Unchanged++
			}

			if len(pending) >= l.batchSize {
				if err := l.flush(ctx, pathTemplate, &pending, report); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := l.flush(ctx, pathTemplate, &pending, report); err != nil {
		return nil, err
	}

	return report, nil
}

// LoadCustomers writes the denormalized customer documents. Each one goes
// through a transactional read-merge-write so a concurrent run cannot drop
// addresses or counters.
func (l *LoaderService) LoadCustomers(ctx context.Context, customers []models.Customer) (*LoadReport, error) {
	report := &LoadReport{Collection: "customers"}
	for i := range customers {
		incoming := customers[i].ToDoc()
		delete(incoming, "id")
		created := false
		err := l.store.MergeDocument(ctx, "customers", customers[i].ID, func(existing map[string]interface{}) map[string]interface{} {
			if existing == nil {
				created = true
				return incoming
			}
			return mergeCustomerDoc(existing, incoming)
		})
		if err != nil {
			return nil, err
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}
	return report, nil
}

func (l *LoaderService) flush(ctx context.Context, collection string, pending *[]store.WriteOp, report *LoadReport) error {
	if len(*pending) == 0 {
		return nil
	}
	if err := l.store.BatchWrite(ctx, *pending); err != nil {
		return &apperrors.StoreWriteError{
			Collection:       collection,
			BatchesCommitted: report.Batches,
			Err:              err,
		}
	}
	report.Batches++
	*pending = (*pending)[:0]
	return nil
}

func docID(rec map[string]interface{}, idField string) string {
	v, ok := rec[idField]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func stripField(rec map[string]interface{}, field string) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		if k != field {
			out[k] = v
		}
	}
	return out
}

// fieldsChanged reports whether any incoming field differs from its stored
// value. Comparison is on printed form, which tolerates the numeric and
// timestamp type drift between mapped documents and decoded store values.
func fieldsChanged(incoming, stored map[string]interface{}) bool {
	for key, value := range incoming {
		if fmt.Sprint(value) != fmt.Sprint(stored[key]) {
			return true
		}
	}
	return false
}

// mergeCustomerDoc folds an incoming denormalized customer into the stored
// one: addresses union by ID, counters add up, earliest createdAt and
// latest lastLoginAt survive. Identity fields take the incoming value.
func mergeCustomerDoc(existing, incoming map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for _, k := range []string{"email", "phone", "firstName", "lastName", "rut"} {
		if v, ok := incoming[k]; ok {
			merged[k] = v
		}
	}

	merged["totalSpending"] = asFloat(existing["totalSpending"]) + asFloat(incoming["totalSpending"])
	merged["serviceHistoryCount"] = asInt(existing["serviceHistoryCount"]) + asInt(incoming["serviceHistoryCount"])

	if earlier := minTime(asTime(existing["createdAt"]), asTime(incoming["createdAt"])); earlier != nil {
		merged["createdAt"] = earlier
	}
	if later := maxTime(asTime(existing["lastLoginAt"]), asTime(incoming["lastLoginAt"])); later != nil {
		merged["lastLoginAt"] = later
	}

	merged["addresses"] = unionAddressDocs(asDocList(existing["addresses"]), asDocList(incoming["addresses"]))
	return merged
}

func unionAddressDocs(existing, incoming []map[string]interface{}) []map[string]interface{} {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[fmt.Sprint(a["id"])] = true
	}
	for _, a := range incoming {
		if id := fmt.Sprint(a["id"]); !seen[id] {
			seen[id] = true
			existing = append(existing, a)
		}
	}
	return existing
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	default:
		return nil
	}
}

func minTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func maxTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}

func asDocList(v interface{}) []map[string]interface{} {
	switch list := v.(type) {
	case []map[string]interface{}:
		return list
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
