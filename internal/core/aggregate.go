package core

import (
	"math"
	"sort"
	"time"
)

// DefaultTopCategories is the ranking size used by reports and dashboards.
const DefaultTopCategories = 3

// RecencyWindowDays is the look-back window for "recent" activity.
const RecencyWindowDays = 30

// TopCategory is one entry of a descending category ranking.
type TopCategory struct {
	Name       string
	Amount     Money
	Percentage float64 // share of the set total, rounded to 2 decimals
}

// Total sums amounts across the set. An empty set totals zero.
func Total(expenses []Expense) Money {
	var sum int64
	for _, e := range expenses {
		sum += e.Amount.Paise
	}
	return Money{Paise: sum}
}

// CategoryTotals maps category name to summed amount. Categories with no
// expenses are absent, not zero.
func CategoryTotals(expenses []Expense) map[string]Money {
	totals := make(map[string]Money)
	for _, e := range expenses {
		totals[e.Category] = Money{Paise: totals[e.Category].Paise + e.Amount.Paise}
	}
	return totals
}

// TopCategories ranks category totals descending by amount. Ties keep the
// order in which categories were first encountered in the input. Percentages
// are 0, not NaN, when the set total is zero.
func TopCategories(expenses []Expense, n int) []TopCategory {
	if n <= 0 {
		n = DefaultTopCategories
	}
	totals := make(map[string]int64)
	var order []string
	for _, e := range expenses {
		if _, seen := totals[e.Category]; !seen {
			order = append(order, e.Category)
		}
		totals[e.Category] += e.Amount.Paise
	}

	total := Total(expenses).Paise
	ranked := make([]TopCategory, 0, len(order))
	for _, name := range order {
		amount := totals[name]
		pct := 0.0
		if total > 0 {
			pct = Round2(float64(amount) / float64(total) * 100)
		}
		ranked = append(ranked, TopCategory{
			Name:       name,
			Amount:     Money{Paise: amount},
			Percentage: pct,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.Paise > ranked[j].Amount.Paise
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// MonthOverMonthChange returns the percentage change between the previous and
// current month totals, rounded to 2 decimals.
//
// previous > 0            -> (current-previous)/previous * 100
// previous == 0, current > 0 -> exactly 100
// both zero               -> 0
func MonthOverMonthChange(current, previous Money) float64 {
	switch {
	case previous.Paise > 0:
		return Round2(float64(current.Paise-previous.Paise) / float64(previous.Paise) * 100)
	case current.Paise > 0:
		return 100
	default:
		return 0
	}
}

// MonthBounds returns the [start, end) UTC instants of the calendar month
// containing ref.
func MonthBounds(ref time.Time) (start, end time.Time) {
	ref = ref.UTC()
	start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// PreviousMonthBounds returns the [start, end) UTC instants of the calendar
// month before the one containing ref, rolling the year under at January.
func PreviousMonthBounds(ref time.Time) (start, end time.Time) {
	curStart, _ := MonthBounds(ref)
	return curStart.AddDate(0, -1, 0), curStart
}

// PartitionByRecency splits the set by whether each record's date falls within
// the last `days` days of ref. The lower boundary is inclusive.
func PartitionByRecency(expenses []Expense, ref time.Time, days int) (recent, older []Expense) {
	cutoff := ref.UTC().AddDate(0, 0, -days)
	for _, e := range expenses {
		if !e.Date.Before(cutoff) {
			recent = append(recent, e)
		} else {
			older = append(older, e)
		}
	}
	return recent, older
}

// MeanAmount returns the mean amount in paise, 0 for an empty set.
func MeanAmount(expenses []Expense) float64 {
	if len(expenses) == 0 {
		return 0
	}
	return float64(Total(expenses).Paise) / float64(len(expenses))
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
