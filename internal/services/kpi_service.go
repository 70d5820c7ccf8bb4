package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/store"
)

// SummaryKPIs feeds the executive overview page.
type SummaryKPIs struct {
	NewUsers       int          `json:"new_users"`
	GMVCLP         float64      `json:"gmv_clp"`
	AOVCLP         float64      `json:"aov_clp"`
	ConversionRate float64      `json:"conversion_rate"`
	TimeSeries     []DailyPoint `json:"time_series_data"`
}

// DailyPoint is one day of the summary time series.
type DailyPoint struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// AcquisitionKPIs feeds the acquisition page.
type AcquisitionKPIs struct {
	NewUsers            int            `json:"new_users"`
	OnboardingRate      float64        `json:"onboarding_rate"`
	RUTValidationRate   float64        `json:"rut_validation_rate"`
	AcquisitionChannels map[string]int `json:"acquisition_channels"`
}

// EngagementKPIs feeds the engagement and conversion pages.
type EngagementKPIs struct {
	AOVCLP                float64        `json:"aov_clp"`
	PurchaseFrequency     float64        `json:"purchase_frequency"`
	AbandonmentRate       float64        `json:"abandonment_rate"`
	PopularPaymentMethods map[string]int `json:"popular_payment_methods"`
}

// OperationsKPIs feeds the operations page.
type OperationsKPIs struct {
	CancellationRate float64        `json:"cancellation_rate"`
	AvgCycleTimeDays float64        `json:"avg_cycle_time_days"`
	AvgRating        float64        `json:"avg_rating"`
	OrdersByCommune  map[string]int `json:"orders_by_commune"`
	OrdersByHour     []int          `json:"orders_by_hour"`
}

// RetentionKPIs feeds the retention page.
type RetentionKPIs struct {
	MAU            int           `json:"mau"`
	LTVCLP         float64       `json:"ltv_clp"`
	RepurchaseRate float64       `json:"repurchase_rate"`
	CohortData     *CohortMatrix `json:"cohort_data"`
}

// KPIService computes read-side aggregates over the stored collections.
type KPIService struct {
	store  store.Store
	logger *logrus.Entry
}

// NewKPIService creates a KPI aggregator over the given store.
func NewKPIService(s store.Store, logger *logrus.Logger) *KPIService {
	return &KPIService{store: s, logger: logger.WithField("component", "kpi")}
}

func rangeFilters(field string, start, end time.Time) []store.Filter {
	return []store.Filter{
		{Field: field, Op: ">=", Value: start},
		{Field: field, Op: "<=", Value: end},
	}
}

// paidStatuses covers every order state that represents a confirmed sale.
var paidStatuses = []interface{}{"paid", "completed"}

// convertedCartStatus marks a cart that finished checkout. The conversion
// rate is the share of carts in this state, independent of how many paid
// orders the range holds.
const convertedCartStatus = "completed"

// Summary computes the executive overview for a date range.
func (s *KPIService) Summary(ctx context.Context, start, end time.Time) (*SummaryKPIs, error) {
	kpis := &SummaryKPIs{TimeSeries: []DailyPoint{}}

	users, err := s.store.Query(ctx, "users", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}
	kpis.NewUsers = len(users)

	orders, err := s.store.Query(ctx, "orders", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}

	sales := 0
	byDay := make(map[string]*DailyPoint)
	for _, o := range orders {
		if !isPaidStatus(o.Data["status"]) {
			continue
		}
		sales++
		total := asFloat(o.Data["total"])
		kpis.GMVCLP += total

		if created := asTime(o.Data["createdAt"]); created != nil {
			day := created.Format("2006-01-02")
			point, ok := byDay[day]
			if !ok {
				point = &DailyPoint{Date: day}
				byDay[day] = point
			}
			point.Orders++
			point.Revenue += total
		}
	}
	if sales > 0 {
		kpis.AOVCLP = math.Round(kpis.GMVCLP / float64(sales))
	}

	carts, err := s.store.Query(ctx, "carts", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}
	if len(carts) > 0 {
		converted := 0
		for _, c := range carts {
			if status, ok := c.Data["status"].(string); ok && status == convertedCartStatus {
				converted++
			}
		}
		kpis.ConversionRate = round2(float64(converted) / float64(len(carts)) * 100)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		kpis.TimeSeries = append(kpis.TimeSeries, *byDay[day])
	}

	return kpis, nil
}

// Acquisition computes user-growth metrics: how many accounts appeared in
// the range and how complete they arrived.
func (s *KPIService) Acquisition(ctx context.Context, start, end time.Time) (*AcquisitionKPIs, error) {
	kpis := &AcquisitionKPIs{AcquisitionChannels: make(map[string]int)}

	users, err := s.store.Query(ctx, "users", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}
	kpis.NewUsers = len(users)
	if len(users) == 0 {
		return kpis, nil
	}

	onboarded := 0
	rutVerified := 0
	for _, u := range users {
		channel := "directo"
		if t, ok := u.Data["accountType"].(string); ok && t != "" {
			channel = t
		}
		kpis.AcquisitionChannels[channel]++

		profilePath := fmt.Sprintf("users/%s/customer_profiles", u.ID)
		profile, err := s.store.GetDocument(ctx, profilePath, u.ID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		onboarded++
		if verified, ok := profile["rutVerified"].(bool); ok && verified {
			rutVerified++
		}
	}
	kpis.OnboardingRate = round2(float64(onboarded) / float64(len(users)) * 100)
	kpis.RUTValidationRate = round2(float64(rutVerified) / float64(len(users)) * 100)

	return kpis, nil
}

// Engagement computes purchase-behavior metrics for a date range.
func (s *KPIService) Engagement(ctx context.Context, start, end time.Time) (*EngagementKPIs, error) {
	kpis := &EngagementKPIs{PopularPaymentMethods: make(map[string]int)}

	orders, err := s.store.Query(ctx, "orders", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}

	revenue := 0.0
	sales := 0
	buyers := make(map[string]bool)
	for _, o := range orders {
		if !isPaidStatus(o.Data["status"]) {
			continue
		}
		sales++
		revenue += asFloat(o.Data["total"])
		buyers[fmt.Sprint(o.Data["userId"])] = true

		if details, ok := o.Data["paymentDetails"].(map[string]interface{}); ok {
			if method, ok := details["type"].(string); ok && method != "" {
				kpis.PopularPaymentMethods[method]++
			}
		}
	}
	if sales > 0 {
		kpis.AOVCLP = math.Round(revenue / float64(sales))
	}
	if len(buyers) > 0 {
		kpis.PurchaseFrequency = round2(float64(sales) / float64(len(buyers)))
	}

	carts, err := s.store.Query(ctx, "carts", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}
	if len(carts) > 0 {
		abandoned := 0
		for _, c := range carts {
			if status, ok := c.Data["status"].(string); ok && status == "abandoned" {
				abandoned++
			}
		}
		kpis.AbandonmentRate = round2(float64(abandoned) / float64(len(carts)) * 100)
	}

	return kpis, nil
}

// Operations computes fulfillment-quality metrics for a date range.
func (s *KPIService) Operations(ctx context.Context, start, end time.Time) (*OperationsKPIs, error) {
	kpis := &OperationsKPIs{
		OrdersByCommune: make(map[string]int),
		OrdersByHour:    make([]int, 24),
	}

	orders, err := s.store.Query(ctx, "orders", rangeFilters("createdAt", start, end))
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return kpis, nil
	}

	cancelled := 0
	cycleSum := 0.0
	cycleCount := 0
	ratingSum := 0.0
	ratingCount := 0
	for _, o := range orders {
		if status, ok := o.Data["status"].(string); ok && status == "cancelled" {
			cancelled++
		}

		if addr, ok := o.Data["serviceAddress"].(map[string]interface{}); ok {
			if commune, ok := addr["commune"].(string); ok && commune != "" {
				kpis.OrdersByCommune[commune]++
			}
		}

		if created := asTime(o.Data["createdAt"]); created != nil {
			kpis.OrdersByHour[created.Hour()]++
		}

		if days, ok := cycleTimeDays(asDocList(o.Data["statusHistory"])); ok {
			cycleSum += days
			cycleCount++
		}

		if rating := o.Data["rating"]; rating != nil {
			if r, ok := rating.(*float64); ok {
				if r != nil {
					ratingSum += *r
					ratingCount++
				}
			} else {
				ratingSum += asFloat(rating)
				ratingCount++
			}
		}
	}

	kpis.CancellationRate = round2(float64(cancelled) / float64(len(orders)) * 100)
	if cycleCount > 0 {
		kpis.AvgCycleTimeDays = math.Round(cycleSum/float64(cycleCount)*10) / 10
	}
	if ratingCount > 0 {
		kpis.AvgRating = round2(ratingSum / float64(ratingCount))
	}

	return kpis, nil
}

// Retention computes loyalty metrics as of end: monthly active users over
// the trailing 30 days, lifetime value, repurchase rate and the cohort
// retention matrix.
func (s *KPIService) Retention(ctx context.Context, end time.Time) (*RetentionKPIs, error) {
	kpis := &RetentionKPIs{}

	orders, err := s.store.Query(ctx, "orders", []store.Filter{
		{Field: "createdAt", Op: "<=", Value: end},
	})
	if err != nil {
		return nil, err
	}

	monthAgo := end.AddDate(0, 0, -30)
	active := make(map[string]bool)
	spendPerUser := make(map[string]float64)
	ordersPerUser := make(map[string]int)
	var activity []orderActivity
	for _, o := range orders {
		userID := fmt.Sprint(o.Data["userId"])
		created := asTime(o.Data["createdAt"])
		if created == nil {
			continue
		}
		if !created.Before(monthAgo) {
			active[userID] = true
		}
		spendPerUser[userID] += asFloat(o.Data["total"])
		ordersPerUser[userID]++
		activity = append(activity, orderActivity{UserID: userID, At: *created})
	}

	kpis.MAU = len(active)
	if len(spendPerUser) > 0 {
		totalSpend := 0.0
		repeat := 0
		for userID, spend := range spendPerUser {
			totalSpend += spend
			if ordersPerUser[userID] > 1 {
				repeat++
			}
		}
		kpis.LTVCLP = math.Round(totalSpend / float64(len(spendPerUser)))
		kpis.RepurchaseRate = round2(float64(repeat) / float64(len(spendPerUser)) * 100)
	}

	kpis.CohortData = BuildCohortMatrix(activity)
	return kpis, nil
}

func isPaidStatus(v interface{}) bool {
	status, ok := v.(string)
	if !ok {
		return false
	}
	for _, candidate := range paidStatuses {
		if status == candidate {
			return true
		}
	}
	return false
}

// cycleTimeDays measures payment-to-completion from the status history.
func cycleTimeDays(history []map[string]interface{}) (float64, bool) {
	var paidAt, doneAt *time.Time
	for _, event := range history {
		status, _ := event["status"].(string)
		at := asTime(event["timestamp"])
		if at == nil {
			continue
		}
		switch status {
		case "paid":
			paidAt = at
		case "completed":
			doneAt = at
		}
	}
	if paidAt == nil || doneAt == nil || doneAt.Before(*paidAt) {
		return 0, false
	}
	return doneAt.Sub(*paidAt).Hours() / 24, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
