package services

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liliapp-bi-service/internal/models"
)

func testReconciler() *Reconciler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewReconciler(logger)
}

func mappedOrderFor(userID, email, orderID string, total float64, created time.Time) *MappedOrder {
	addr := models.Address{
		ID:        AddressID(userID, "Av. Siempre Viva", "Macul"),
		OwnerID:   userID,
		Street:    "Av. Siempre Viva",
		Commune:   "Macul",
		TimesUsed: 1,
	}
	return &MappedOrder{
		User: models.User{ID: userID, Email: email, CreatedAt: &created, LastLoginAt: &created},
		Profile: models.CustomerProfile{
			ID: userID, UserID: userID,
			TotalSpending: total, ServiceHistoryCount: 1, CreatedAt: &created,
		},
		Address: addr,
		Order:   models.Order{ID: orderID, UserID: userID, AddressID: addr.ID, Total: total},
	}
}

func TestReconcileOrdersCollapsesRepeatCustomer(t *testing.T) {
	r := testReconciler()
	early := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)

	batch := r.ReconcileOrders([]*MappedOrder{
		mappedOrderFor("42", "a@b.cl", "900", 10000, late),
		mappedOrderFor("42", "a@b.cl", "901", 25000, early),
	}, nil)

	require.Len(t, batch.Users, 1)
	require.Len(t, batch.Profiles, 1)
	require.Len(t, batch.Addresses, 1)
	require.Len(t, batch.Orders, 2)

	assert.Equal(t, 35000.0, batch.Profiles[0].TotalSpending)
	assert.Equal(t, 2, batch.Profiles[0].ServiceHistoryCount)
	assert.Equal(t, early, *batch.Profiles[0].CreatedAt)
	assert.Equal(t, early, *batch.Users[0].CreatedAt)
	assert.Equal(t, late, *batch.Users[0].LastLoginAt)
	assert.Equal(t, 2, batch.Addresses[0].TimesUsed)
}

func TestReconcileOrdersExcludesPreExistingEmails(t *testing.T) {
	r := testReconciler()
	now := time.Now()

	existing := map[string]struct{}{"old@liliapp.cl": {}}
	batch := r.ReconcileOrders([]*MappedOrder{
		mappedOrderFor("42", "old@liliapp.cl", "900", 10000, now),
		mappedOrderFor("43", "new@liliapp.cl", "901", 5000, now),
	}, existing)

	require.Len(t, batch.Users, 1)
	assert.Equal(t, "43", batch.Users[0].ID)
	require.Len(t, batch.Profiles, 1)
	assert.Equal(t, "43", batch.Profiles[0].UserID)

	// orders and addresses of the pre-existing account still load
	assert.Len(t, batch.Orders, 2)
	assert.Len(t, batch.Addresses, 2)
}

func TestReconcileProductsDedupsCategoriesGlobally(t *testing.T) {
	r := testReconciler()

	hogar := &models.Category{ID: "7", Name: "Hogar", Description: "first wins"}
	hogarLater := &models.Category{ID: "7", Name: "Hogar renombrado"}

	batch := r.ReconcileProducts([]MappedProduct{
		{Service: models.Service{ID: "1"}, Category: hogar, Variants: []models.Variant{{ID: "v1", ServiceID: "1"}}},
		{Service: models.Service{ID: "2"}, Category: hogarLater, Subcategories: []models.Subcategory{{ID: "8", ServiceID: "2"}}},
		{Service: models.Service{ID: "3"}},
	})

	assert.Len(t, batch.Services, 3)
	require.Len(t, batch.Categories, 1)
	assert.Equal(t, "first wins", batch.Categories[0].Description)
	assert.Len(t, batch.Variants, 1)
	assert.Len(t, batch.Subcategories, 1)
}

func TestReconcileCustomersMergesDenormalizedVariant(t *testing.T) {
	r := testReconciler()
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	addrA := models.Address{ID: "addr_a", TimesUsed: 1}
	addrB := models.Address{ID: "addr_b", TimesUsed: 1}

	customers := r.ReconcileCustomers([]*models.Customer{
		{ID: "42", TotalSpending: 10000, ServiceHistoryCount: 1, CreatedAt: &late, LastLoginAt: &early, Addresses: []models.Address{addrA}},
		{ID: "42", TotalSpending: 20000, ServiceHistoryCount: 1, CreatedAt: &early, LastLoginAt: &late, Addresses: []models.Address{addrA, addrB}},
		{ID: "50", TotalSpending: 8000, ServiceHistoryCount: 1},
	})

	require.Len(t, customers, 2)
	merged := customers[0]
	assert.Equal(t, "42", merged.ID)
	assert.Equal(t, 30000.0, merged.TotalSpending)
	assert.Equal(t, 2, merged.ServiceHistoryCount)
	assert.Equal(t, early, *merged.CreatedAt)
	assert.Equal(t, late, *merged.LastLoginAt)
	require.Len(t, merged.Addresses, 2)
	assert.Equal(t, 2, merged.Addresses[0].TimesUsed)
}
