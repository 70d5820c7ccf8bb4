package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"liliapp-bi-service/internal/store"
)

// RFMCustomer is one scored customer of a segmentation snapshot.
type RFMCustomer struct {
	UserID      string  `json:"user_id"`
	RecencyDays int     `json:"recency_days"`
	Frequency   int     `json:"frequency"`
	MonetaryCLP float64 `json:"monetary_clp"`
	Score       string  `json:"rfm_score"`
	Segment     string  `json:"segment"`
}

// SegmentationResult is the RFM answer for the marketing page.
type SegmentationResult struct {
	SnapshotDate        string                   `json:"snapshot_date"`
	TotalCustomers      int                      `json:"total_customers"`
	SegmentDistribution map[string]int           `json:"segment_distribution"`
	SampleCustomers     map[string][]RFMCustomer `json:"sample_customers"`
}

const segmentSampleSize = 5

// segmentRules map the recency-frequency score pair to a named segment.
// Order matters: the first match wins.
var segmentRules = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`^44$`), "Campeones"},
	{regexp.MustCompile(`^[3-4]4$|^43$`), "Clientes Leales"},
	{regexp.MustCompile(`^41$`), "Nuevos Clientes"},
	{regexp.MustCompile(`^4[1-2]$`), "Prometedores"},
	{regexp.MustCompile(`^33$`), "Necesitan Atención"},
	{regexp.MustCompile(`^3[1-2]$`), "A Punto de Dormir"},
	{regexp.MustCompile(`^[1-2][3-4]$`), "En Riesgo"},
	{regexp.MustCompile(`^[1-2][1-2]$`), "Hibernando"},
}

// Segmentation scores every customer with at least one confirmed order up
// to end. The snapshot date is the day after the period end so same-day
// orders score a recency of one. Quartile edges collapse when the
// distribution has ties, so the score range can shrink below four.
func (s *KPIService) Segmentation(ctx context.Context, end time.Time) (*SegmentationResult, error) {
	result := &SegmentationResult{
		SnapshotDate:        end.AddDate(0, 0, 1).Format("2006-01-02"),
		SegmentDistribution: make(map[string]int),
		SampleCustomers:     make(map[string][]RFMCustomer),
	}

	orders, err := s.store.Query(ctx, "orders", []store.Filter{
		{Field: "createdAt", Op: "<=", Value: end},
	})
	if err != nil {
		return nil, err
	}

	// Anchor the snapshot at the midnight after the period end so an order
	// placed on the last day measures one day old whatever reference hour
	// the caller sent.
	y, m, d := end.Date()
	snapshot := time.Date(y, m, d, 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	type aggregate struct {
		lastOrder time.Time
		frequency int
		monetary  float64
	}
	perUser := make(map[string]*aggregate)
	for _, o := range orders {
		if !isPaidStatus(o.Data["status"]) {
			continue
		}
		created := asTime(o.Data["createdAt"])
		if created == nil {
			continue
		}
		userID := fmt.Sprint(o.Data["userId"])
		agg, ok := perUser[userID]
		if !ok {
			agg = &aggregate{}
			perUser[userID] = agg
		}
		agg.frequency++
		agg.monetary += asFloat(o.Data["total"])
		if created.After(agg.lastOrder) {
			agg.lastOrder = *created
		}
	}
	if len(perUser) == 0 {
		return result, nil
	}

	userIDs := make([]string, 0, len(perUser))
	for userID := range perUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	recency := make([]float64, len(userIDs))
	frequency := make([]float64, len(userIDs))
	monetary := make([]float64, len(userIDs))
	for i, userID := range userIDs {
		agg := perUser[userID]
		recency[i] = math.Ceil(snapshot.Sub(agg.lastOrder).Hours() / 24)
		frequency[i] = float64(agg.frequency)
		monetary[i] = agg.monetary
	}

	recencyEdges := quartileEdges(recency)
	frequencyEdges := quartileEdges(frequency)
	monetaryEdges := quartileEdges(monetary)

	result.TotalCustomers = len(userIDs)
	for i, userID := range userIDs {
		r := quartileScore(recency[i], recencyEdges, true)
		f := quartileScore(frequency[i], frequencyEdges, false)
		m := quartileScore(monetary[i], monetaryEdges, false)

		customer := RFMCustomer{
			UserID:      userID,
			RecencyDays: int(recency[i]),
			Frequency:   int(frequency[i]),
			MonetaryCLP: monetary[i],
			Score:       fmt.Sprintf("%d%d%d", r, f, m),
			Segment:     segmentFor(r, f),
		}

		result.SegmentDistribution[customer.Segment]++
		if len(result.SampleCustomers[customer.Segment]) < segmentSampleSize {
			result.SampleCustomers[customer.Segment] = append(result.SampleCustomers[customer.Segment], customer)
		}
	}

	return result, nil
}

// quartileEdges builds the bin edges [min, q1, q2, q3, max] of a
// distribution and drops duplicate edges, mirroring quantile binning with
// duplicates="drop". Heavily tied distributions thus yield fewer bins.
func quartileEdges(values []float64) []float64 {
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	edges := []float64{min}
	if q, err := stats.Quartile(values); err == nil {
		for _, edge := range []float64{q.Q1, q.Q2, q.Q3} {
			if edge > edges[len(edges)-1] {
				edges = append(edges, edge)
			}
		}
	}
	if max > edges[len(edges)-1] {
		edges = append(edges, max)
	}
	return edges
}

// quartileScore places a value into its bin and returns a 1-based score.
// With reverse set, lower values score higher; recency works that way.
func quartileScore(value float64, edges []float64, reverse bool) int {
	buckets := len(edges) - 1
	if buckets < 1 {
		return 1
	}
	idx := 0
	for i := 1; i < len(edges)-1; i++ {
		if value >= edges[i] {
			idx = i
		}
	}
	if reverse {
		return buckets - idx
	}
	return idx + 1
}

func segmentFor(r, f int) string {
	score := fmt.Sprintf("%d%d", r, f)
	for _, rule := range segmentRules {
		if rule.pattern.MatchString(score) {
			return rule.name
		}
	}
	return "Otros"
}
