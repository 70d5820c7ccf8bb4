package services

import (
	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/models"
)

// OrderBatch is the deduplicated output of an order-mapping run, ready for
// the loader. Orders are never collapsed; the identity-side documents are.
type OrderBatch struct {
	Users     []models.User
	Profiles  []models.CustomerProfile
	Addresses []models.Address
	Orders    []models.Order
	Skipped   int
}

// ProductBatch is the deduplicated output of a product-mapping run.
type ProductBatch struct {
	Services      []models.Service
	Categories    []models.Category
	Variants      []models.Variant
	Subcategories []models.Subcategory
}

// Reconciler collapses repeated entities across a mapped batch into unique
// documents before loading.
type Reconciler struct {
	logger *logrus.Entry
}

// NewReconciler creates a reconciler.
func NewReconciler(logger *logrus.Logger) *Reconciler {
	return &Reconciler{logger: logger.WithField("component", "reconciler")}
}

// ReconcileOrders collapses the mapped orders of one run. The same customer
// across multiple orders yields one user and one profile with additive
// spending and history counters. existingEmails holds accounts persisted by
// earlier runs; those users and their profiles are excluded entirely, never
// merged, so the pipeline cannot touch pre-existing accounts. Addresses
// dedup on their derived ID, first occurrence wins and repeats only bump
// timesUsed. Every order is preserved.
func (r *Reconciler) ReconcileOrders(mapped []*MappedOrder, existingEmails map[string]struct{}) OrderBatch {
	var batch OrderBatch
	userIndex := make(map[string]int)
	profileIndex := make(map[string]int)
	addressIndex := make(map[string]int)
	preExisting := make(map[string]bool)

	for _, m := range mapped {
		userID := m.User.ID

		if _, exists := existingEmails[m.User.Email]; exists && m.User.Email != "" {
			preExisting[userID] = true
		}

		if !preExisting[userID] {
			if idx, seen := userIndex[userID]; seen {
				// repeat customer in the same batch: keep the earliest account
				if m.User.CreatedAt != nil && (batch.Users[idx].CreatedAt == nil || m.User.CreatedAt.Before(*batch.Users[idx].CreatedAt)) {
					batch.Users[idx].CreatedAt = m.User.CreatedAt
				}
				if m.User.LastLoginAt != nil && (batch.Users[idx].LastLoginAt == nil || m.User.LastLoginAt.After(*batch.Users[idx].LastLoginAt)) {
					batch.Users[idx].LastLoginAt = m.User.LastLoginAt
				}
			} else {
				userIndex[userID] = len(batch.Users)
				batch.Users = append(batch.Users, m.User)
			}

			if idx, seen := profileIndex[userID]; seen {
				batch.Profiles[idx].TotalSpending += m.Profile.TotalSpending
				batch.Profiles[idx].ServiceHistoryCount += m.Profile.ServiceHistoryCount
				if m.Profile.CreatedAt != nil && (batch.Profiles[idx].CreatedAt == nil || m.Profile.CreatedAt.Before(*batch.Profiles[idx].CreatedAt)) {
					batch.Profiles[idx].CreatedAt = m.Profile.CreatedAt
				}
			} else {
				profileIndex[userID] = len(batch.Profiles)
				batch.Profiles = append(batch.Profiles, m.Profile)
			}
		}

		if idx, seen := addressIndex[m.Address.ID]; seen {
			batch.Addresses[idx].TimesUsed++
		} else {
			addressIndex[m.Address.ID] = len(batch.Addresses)
			batch.Addresses = append(batch.Addresses, m.Address)
		}

		batch.Orders = append(batch.Orders, m.Order)
	}

	r.logger.WithFields(logrus.Fields{
		"orders":    len(batch.Orders),
		"users":     len(batch.Users),
		"addresses": len(batch.Addresses),
		"excluded":  len(preExisting),
	}).Info("order batch reconciled")

	return batch
}

// ReconcileProducts collapses the mapped products of one run. Categories
// dedup globally on upstream ID; the first occurrence's name, description
// and image win regardless of how many products reference the category.
func (r *Reconciler) ReconcileProducts(mapped []MappedProduct) ProductBatch {
	var batch ProductBatch
	seenCategories := make(map[string]bool)

	for _, m := range mapped {
		batch.Services = append(batch.Services, m.Service)
		if m.Category != nil && !seenCategories[m.Category.ID] {
			seenCategories[m.Category.ID] = true
			batch.Categories = append(batch.Categories, *m.Category)
		}
		batch.Variants = append(batch.Variants, m.Variants...)
		batch.Subcategories = append(batch.Subcategories, m.Subcategories...)
	}

	r.logger.WithFields(logrus.Fields{
		"services":   len(batch.Services),
		"categories": len(batch.Categories),
		"variants":   len(batch.Variants),
	}).Info("product batch reconciled")

	return batch
}

// ReconcileCustomers merges the denormalized customer variant across a
// batch: addresses union by ID, spend and history counters add up,
// earliest createdAt and latest lastLoginAt survive.
func (r *Reconciler) ReconcileCustomers(mapped []*models.Customer) []models.Customer {
	var customers []models.Customer
	index := make(map[string]int)

	for _, c := range mapped {
		idx, seen := index[c.ID]
		if !seen {
			index[c.ID] = len(customers)
			customers = append(customers, *c)
			continue
		}
		merged := &customers[idx]
		merged.TotalSpending += c.TotalSpending
		merged.ServiceHistoryCount += c.ServiceHistoryCount
		if c.CreatedAt != nil && (merged.CreatedAt == nil || c.CreatedAt.Before(*merged.CreatedAt)) {
			merged.CreatedAt = c.CreatedAt
		}
		if c.LastLoginAt != nil && (merged.LastLoginAt == nil || c.LastLoginAt.After(*merged.LastLoginAt)) {
			merged.LastLoginAt = c.LastLoginAt
		}
		merged.Addresses = unionAddresses(merged.Addresses, c.Addresses)
	}

	return customers
}

func unionAddresses(existing, incoming []models.Address) []models.Address {
	seen := make(map[string]int, len(existing))
	for i, a := range existing {
		seen[a.ID] = i
	}
	for _, a := range incoming {
		if idx, ok := seen[a.ID]; ok {
			existing[idx].TimesUsed += a.TimesUsed
			continue
		}
		seen[a.ID] = len(existing)
		existing = append(existing, a)
	}
	return existing
}
