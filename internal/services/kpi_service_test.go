package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liliapp-bi-service/internal/store"
)

func testKPIService() (*KPIService, *store.MemoryStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	mem := store.NewMemoryStore()
	return NewKPIService(mem, logger), mem
}

func seedOrder(mem *store.MemoryStore, id, userID, status string, total float64, created time.Time, extra map[string]interface{}) {
	doc := map[string]interface{}{
		"userId":    userID,
		"status":    status,
		"total":     total,
		"createdAt": created,
	}
	for k, v := range extra {
		doc[k] = v
	}
	mem.Seed("orders", id, doc)
}

var (
	periodStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
)

func TestSummaryAggregatesRange(t *testing.T) {
	kpi, mem := testKPIService()
	ctx := context.Background()

	mem.Seed("users", "42", map[string]interface{}{"createdAt": periodStart.AddDate(0, 0, 3)})
	mem.Seed("users", "43", map[string]interface{}{"createdAt": periodStart.AddDate(0, 0, -60)}) // outside range

	seedOrder(mem, "900", "42", "paid", 10000, periodStart.AddDate(0, 0, 5), nil)
	seedOrder(mem, "901", "42", "completed", 30000, periodStart.AddDate(0, 0, 5), nil)
	seedOrder(mem, "902", "42", "cancelled", 99999, periodStart.AddDate(0, 0, 6), nil)

	mem.Seed("carts", "c1", map[string]interface{}{"createdAt": periodStart.AddDate(0, 0, 1), "status": "completed"})
	mem.Seed("carts", "c2", map[string]interface{}{"createdAt": periodStart.AddDate(0, 0, 2), "status": "abandoned"})
	mem.Seed("carts", "c3", map[string]interface{}{"createdAt": periodStart.AddDate(0, 0, 2), "status": "abandoned"})
	mem.Seed("carts", "c4", map[string]interface{}{"createdAt": periodStart.AddDate(0, 0, 2), "status": "completed"})

	kpis, err := kpi.Summary(ctx, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, 1, kpis.NewUsers)
	assert.Equal(t, 40000.0, kpis.GMVCLP)
	assert.Equal(t, 20000.0, kpis.AOVCLP)
	assert.Equal(t, 50.0, kpis.ConversionRate)
	require.Len(t, kpis.TimeSeries, 1)
	assert.Equal(t, 2, kpis.TimeSeries[0].Orders)
	assert.Equal(t, 40000.0, kpis.TimeSeries[0].Revenue)
}

func TestSummaryConversionCountsCartsNotOrders(t *testing.T) {
	kpi, mem := testKPIService()
	at := periodStart.AddDate(0, 0, 4)

	// Three paid orders but only one cart finished checkout: the rate
	// must follow the carts, not the order count.
	seedOrder(mem, "900", "42", "paid", 10000, at, nil)
	seedOrder(mem, "901", "42", "paid", 15000, at, nil)
	seedOrder(mem, "902", "43", "completed", 20000, at, nil)

	mem.Seed("carts", "c1", map[string]interface{}{"createdAt": at, "status": "completed"})
	mem.Seed("carts", "c2", map[string]interface{}{"createdAt": at, "status": "abandoned"})
	mem.Seed("carts", "c3", map[string]interface{}{"createdAt": at, "status": "abandoned"})
	mem.Seed("carts", "c4", map[string]interface{}{"createdAt": at, "status": "abandoned"})

	kpis, err := kpi.Summary(context.Background(), periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, 25.0, kpis.ConversionRate)
}

func TestSummaryEmptyRangeReturnsZeroShapes(t *testing.T) {
	kpi, _ := testKPIService()

	kpis, err := kpi.Summary(context.Background(), periodStart, periodEnd)
	require.NoError(t, err)
	assert.Zero(t, kpis.NewUsers)
	assert.Zero(t, kpis.AOVCLP)
	assert.NotNil(t, kpis.TimeSeries)
	assert.Empty(t, kpis.TimeSeries)
}

func TestAcquisitionRates(t *testing.T) {
	kpi, mem := testKPIService()
	created := periodStart.AddDate(0, 0, 2)

	mem.Seed("users", "42", map[string]interface{}{"createdAt": created, "accountType": "customer"})
	mem.Seed("users", "43", map[string]interface{}{"createdAt": created, "accountType": "customer"})
	mem.Seed("users", "44", map[string]interface{}{"createdAt": created})

	mem.Seed("users/42/customer_profiles", "42", map[string]interface{}{"rutVerified": true})
	mem.Seed("users/43/customer_profiles", "43", map[string]interface{}{"rutVerified": false})

	kpis, err := kpi.Acquisition(context.Background(), periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, 3, kpis.NewUsers)
	assert.Equal(t, 66.67, kpis.OnboardingRate)
	assert.Equal(t, 33.33, kpis.RUTValidationRate)
	assert.Equal(t, 2, kpis.AcquisitionChannels["customer"])
	assert.Equal(t, 1, kpis.AcquisitionChannels["directo"])
}

func TestEngagementMetrics(t *testing.T) {
	kpi, mem := testKPIService()
	at := periodStart.AddDate(0, 0, 10)

	seedOrder(mem, "900", "42", "paid", 10000, at, map[string]interface{}{
		"paymentDetails": map[string]interface{}{"type": "webpay"},
	})
	seedOrder(mem, "901", "42", "paid", 20000, at, map[string]interface{}{
		"paymentDetails": map[string]interface{}{"type": "webpay"},
	})
	seedOrder(mem, "902", "43", "completed", 30000, at, map[string]interface{}{
		"paymentDetails": map[string]interface{}{"type": "transferencia"},
	})

	mem.Seed("carts", "c1", map[string]interface{}{"createdAt": at, "status": "abandoned"})
	mem.Seed("carts", "c2", map[string]interface{}{"createdAt": at, "status": "completed"})

	kpis, err := kpi.Engagement(context.Background(), periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, 20000.0, kpis.AOVCLP)
	assert.Equal(t, 1.5, kpis.PurchaseFrequency)
	assert.Equal(t, 50.0, kpis.AbandonmentRate)
	assert.Equal(t, 2, kpis.PopularPaymentMethods["webpay"])
	assert.Equal(t, 1, kpis.PopularPaymentMethods["transferencia"])
}

func TestOperationsMetrics(t *testing.T) {
	kpi, mem := testKPIService()
	paidAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	doneAt := paidAt.AddDate(0, 0, 3)

	seedOrder(mem, "900", "42", "paid", 10000, paidAt, map[string]interface{}{
		"serviceAddress": map[string]interface{}{"commune": "Providencia"},
		"statusHistory": []interface{}{
			map[string]interface{}{"status": "paid", "timestamp": paidAt},
			map[string]interface{}{"status": "completed", "timestamp": doneAt},
		},
		"rating": 4.5,
	})
	seedOrder(mem, "901", "43", "cancelled", 5000, paidAt.Add(5*time.Hour), map[string]interface{}{
		"serviceAddress": map[string]interface{}{"commune": "Providencia"},
	})
	seedOrder(mem, "902", "44", "paid", 8000, paidAt, map[string]interface{}{
		"serviceAddress": map[string]interface{}{"commune": "Macul"},
		"rating":         3.5,
	})

	kpis, err := kpi.Operations(context.Background(), periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, 33.33, kpis.CancellationRate)
	assert.Equal(t, 3.0, kpis.AvgCycleTimeDays)
	assert.Equal(t, 4.0, kpis.AvgRating)
	assert.Equal(t, 2, kpis.OrdersByCommune["Providencia"])
	assert.Equal(t, 1, kpis.OrdersByCommune["Macul"])
	assert.Equal(t, 2, kpis.OrdersByHour[9])
	assert.Equal(t, 1, kpis.OrdersByHour[14])
}

func TestRetentionMetrics(t *testing.T) {
	kpi, mem := testKPIService()
	end := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)

	seedOrder(mem, "900", "42", "paid", 10000, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), nil)
	seedOrder(mem, "901", "42", "paid", 20000, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), nil)
	seedOrder(mem, "902", "43", "paid", 30000, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), nil)

	kpis, err := kpi.Retention(context.Background(), end)
	require.NoError(t, err)
	assert.Equal(t, 1, kpis.MAU)
	assert.Equal(t, 30000.0, kpis.LTVCLP)
	assert.Equal(t, 50.0, kpis.RepurchaseRate)

	require.NotNil(t, kpis.CohortData)
	require.Equal(t, []string{"2025-01"}, kpis.CohortData.Index)
	require.Equal(t, []int{0, 1, 2}, kpis.CohortData.Columns)
	assert.Equal(t, 100.0, kpis.CohortData.Data[0][0])
	assert.Equal(t, 0.0, kpis.CohortData.Data[0][1])
	assert.Equal(t, 50.0, kpis.CohortData.Data[0][2])
}
