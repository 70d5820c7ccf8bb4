package services

import (
	"math"
	"sort"
	"time"
)

// orderActivity is one purchase event used to build the cohort matrix.
type orderActivity struct {
	UserID string
	At     time.Time
}

// CohortMatrix is the retention matrix in split-frame shape: Index holds
// the cohort months, Columns the month offsets since first purchase, and
// Data the retained share of each cohort per offset (percent).
type CohortMatrix struct {
	Index   []string    `json:"index"`
	Columns []int       `json:"columns"`
	Data    [][]float64 `json:"data"`
}

// BuildCohortMatrix groups customers by the month of their first purchase
// and measures what share of each cohort purchased again N months later.
// Offset zero is always 100 percent by construction.
func BuildCohortMatrix(activity []orderActivity) *CohortMatrix {
	matrix := &CohortMatrix{Index: []string{}, Columns: []int{}, Data: [][]float64{}}
	if len(activity) == 0 {
		return matrix
	}

	firstMonth := make(map[string]time.Time)
	for _, a := range activity {
		month := monthOf(a.At)
		if current, ok := firstMonth[a.UserID]; !ok || month.Before(current) {
			firstMonth[a.UserID] = month
		}
	}

	// cohort month -> offset -> distinct active users
	activeByOffset := make(map[string]map[int]map[string]bool)
	cohortSize := make(map[string]int)
	maxOffset := 0

	for _, cohort := range firstMonth {
		cohortSize[monthKey(cohort)]++
	}
	for _, a := range activity {
		cohort := firstMonth[a.UserID]
		key := monthKey(cohort)
		offset := monthsBetween(cohort, monthOf(a.At))
		if offset > maxOffset {
			maxOffset = offset
		}
		if activeByOffset[key] == nil {
			activeByOffset[key] = make(map[int]map[string]bool)
		}
		if activeByOffset[key][offset] == nil {
			activeByOffset[key][offset] = make(map[string]bool)
		}
		activeByOffset[key][offset][a.UserID] = true
	}

	cohorts := make([]string, 0, len(cohortSize))
	for key := range cohortSize {
		cohorts = append(cohorts, key)
	}
	sort.Strings(cohorts)

	for offset := 0; offset <= maxOffset; offset++ {
		matrix.Columns = append(matrix.Columns, offset)
	}
	for _, key := range cohorts {
		matrix.Index = append(matrix.Index, key)
		row := make([]float64, maxOffset+1)
		size := cohortSize[key]
		for offset := 0; offset <= maxOffset; offset++ {
			activeUsers := len(activeByOffset[key][offset])
			if size > 0 && activeUsers > 0 {
				row[offset] = math.Round(float64(activeUsers)/float64(size)*1000) / 10
			}
		}
		matrix.Data = append(matrix.Data, row)
	}

	return matrix
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
