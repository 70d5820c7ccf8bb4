package services

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/models"
	"liliapp-bi-service/internal/store"
)

// AuditSource is the slice of the upstream API the auditor consumes.
type AuditSource interface {
	GetOrder(ctx context.Context, id int64) (*models.RawOrder, error)
	GetProduct(ctx context.Context, id int64) (*models.RawProduct, error)
}

// OrderAudit joins the upstream order with every stored document the ETL
// derived from it, for side-by-side comparison.
type OrderAudit struct {
	JumpsellerData *models.RawOrder       `json:"jumpseller_data"`
	FirestoreData  map[string]interface{} `json:"firestore_data"`
}

// ServiceAudit joins the upstream product with the stored catalog documents.
type ServiceAudit struct {
	JumpsellerData *models.RawProduct     `json:"jumpseller_data"`
	FirestoreData  map[string]interface{} `json:"firestore_data"`
}

// UserHealth summarizes the structural completeness of the users tree.
type UserHealth struct {
	TotalUsers                        int     `json:"total_users"`
	WithCustomerProfilePercent        float64 `json:"with_customer_profile_percent"`
	ProfilesWithRUTPercent            float64 `json:"profiles_with_rut_percent"`
	WithAddressesSubcollectionPercent float64 `json:"with_addresses_subcollection_percent"`
	AvgAddressesPerUser               float64 `json:"avg_addresses_per_user"`
	MaxAddressesInOneUser             int     `json:"max_addresses_in_one_user"`
}

// HealthSummary is the store-wide health radiography.
type HealthSummary struct {
	CollectionCounts map[string]int `json:"collection_counts"`
	UserHealth       UserHealth     `json:"user_health"`
}

// topLevelCollections are the collections counted by the health summary.
var topLevelCollections = []string{"users", "orders", "services", "categories", "customers"}

// AuditService joins upstream and stored records for the same logical ID.
type AuditService struct {
	source AuditSource
	store  store.Store
	logger *logrus.Entry
}

// NewAuditService creates an auditor.
func NewAuditService(source AuditSource, s store.Store, logger *logrus.Logger) *AuditService {
	return &AuditService{source: source, store: s, logger: logger.WithField("component", "audit")}
}

// AuditOrder fetches one order from the upstream API and the documents the
// pipeline derived from it: the order, its user, the profile and the
// service address.
func (a *AuditService) AuditOrder(ctx context.Context, orderID int64) (*OrderAudit, error) {
	upstream, err := a.source.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	id := strconv.FormatInt(orderID, 10)
	order, err := a.store.GetDocument(ctx, "orders", id)
	if err != nil {
		return nil, err
	}

	stored := map[string]interface{}{"order": order}

	userID := fmt.Sprint(order["userId"])
	if user, err := a.store.GetDocument(ctx, "users", userID); err == nil {
		stored["user"] = user
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	profilePath := fmt.Sprintf("users/%s/customer_profiles", userID)
	if profile, err := a.store.GetDocument(ctx, profilePath, userID); err == nil {
		stored["profile"] = profile
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	if addressID, ok := order["addressId"].(string); ok && addressID != "" {
		addressPath := fmt.Sprintf("users/%[1]s/customer_profiles/%[1]s/addresses", userID)
		if address, err := a.store.GetDocument(ctx, addressPath, addressID); err == nil {
			stored["address"] = address
		} else if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	return &OrderAudit{JumpsellerData: upstream, FirestoreData: stored}, nil
}

// AuditServiceRecord fetches one product from the upstream API and the
// stored service with its category and children.
func (a *AuditService) AuditServiceRecord(ctx context.Context, serviceID int64) (*ServiceAudit, error) {
	upstream, err := a.source.GetProduct(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	id := strconv.FormatInt(serviceID, 10)
	service, err := a.store.GetDocument(ctx, "services", id)
	if err != nil {
		return nil, err
	}

	stored := map[string]interface{}{"service": service}

	if categoryID, ok := service["categoryId"].(string); ok && categoryID != "" {
		if category, err := a.store.GetDocument(ctx, "categories", categoryID); err == nil {
			stored["category"] = category
		} else if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	variants, err := a.store.GetAll(ctx, fmt.Sprintf("services/%s/variants", id))
	if err != nil {
		return nil, err
	}
	stored["variants"] = documentsData(variants)

	subcategories, err := a.store.GetAll(ctx, fmt.Sprintf("services/%s/subcategories", id))
	if err != nil {
		return nil, err
	}
	stored["subcategories"] = documentsData(subcategories)

	return &ServiceAudit{JumpsellerData: upstream, FirestoreData: stored}, nil
}

// FirestoreHealth walks the main collections and the users tree and
// reports document counts plus structural completeness percentages.
func (a *AuditService) FirestoreHealth(ctx context.Context) (*HealthSummary, error) {
	summary := &HealthSummary{CollectionCounts: make(map[string]int)}

	for _, collection := range topLevelCollections {
		count, err := a.store.Count(ctx, collection)
		if err != nil {
			return nil, err
		}
		summary.CollectionCounts[collection] = count
	}

	users, err := a.store.ListDocumentIDs(ctx, "users")
	if err != nil {
		return nil, err
	}
	summary.UserHealth.TotalUsers = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	withProfile := 0
	withRUT := 0
	withAddresses := 0
	totalAddresses := 0
	maxAddresses := 0
	for _, userID := range users {
		profilePath := fmt.Sprintf("users/%s/customer_profiles", userID)
		profile, err := a.store.GetDocument(ctx, profilePath, userID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		withProfile++
		if rut, ok := profile["rut"].(string); ok && rut != "" {
			withRUT++
		}

		addressPath := fmt.Sprintf("users/%[1]s/customer_profiles/%[1]s/addresses", userID)
		count, err := a.store.Count(ctx, addressPath)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			withAddresses++
		}
		totalAddresses += count
		if count > maxAddresses {
			maxAddresses = count
		}
	}

	total := float64(len(users))
	summary.UserHealth.WithCustomerProfilePercent = round1(float64(withProfile) / total * 100)
	if withProfile > 0 {
		summary.UserHealth.ProfilesWithRUTPercent = round1(float64(withRUT) / float64(withProfile) * 100)
		summary.UserHealth.WithAddressesSubcollectionPercent = round1(float64(withAddresses) / float64(withProfile) * 100)
	}
	summary.UserHealth.AvgAddressesPerUser = round2(float64(totalAddresses) / total)
	summary.UserHealth.MaxAddressesInOneUser = maxAddresses

	return summary, nil
}

func documentsData(docs []store.Document) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		data := d.Data
		data["id"] = d.ID
		out = append(out, data)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
