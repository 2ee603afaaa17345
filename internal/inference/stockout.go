// internal/inference/stockout.go
package inference

import (
	"sort"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// StockoutsFromLevels finds runs of non-positive stock in an observed level
// series. A run ends at the first observation back above zero; a run that
// reaches the final observation is reported as ongoing. Runs shorter than
// the configured minimum are noise and dropped.
func (e *Engine) StockoutsFromLevels(points []domain.StockPoint) []domain.StockoutPeriod {
	if len(points) == 0 {
		return nil
	}

	sorted := make([]domain.StockPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var (
		periods  []domain.StockoutPeriod
		runStart *time.Time
		runLast  time.Time
	)
	flush := func(ongoing bool) {
		if runStart == nil {
			return
		}
		days := daysBetween(*runStart, runLast) + 1
		if days >= e.cfg.MinStockoutDays {
			p := domain.StockoutPeriod{Start: *runStart, Days: days, Method: domain.DetectedByStockLevel}
			if !ongoing {
				end := runLast
				p.End = &end
			}
			periods = append(periods, p)
		}
		runStart = nil
	}

	for _, point := range sorted {
		d := day(point.Date)
		if point.Quantity <= 0 {
			if runStart == nil {
				start := d
				runStart = &start
			}
			runLast = d
			continue
		}
		flush(false)
	}
	flush(true)

	return periods
}

// StockoutsFromGaps infers stockouts from silences in the sales record: a
// gap between consecutive sale days far longer than the product's usual
// rhythm. The threshold is max(gapFactor x mean gap, minStockoutDays); at
// least three distinct sale days are needed before a mean gap means
// anything.
func (e *Engine) StockoutsFromGaps(sales []domain.SalePoint) []domain.StockoutPeriod {
	days := distinctSaleDays(sales)
	if len(days) < 3 {
		return nil
	}

	var total int
	for i := 1; i < len(days); i++ {
		total += daysBetween(days[i-1], days[i])
	}
	meanGap := float64(total) / float64(len(days)-1)

	threshold := e.cfg.SalesGapFactor * meanGap
	if min := float64(e.cfg.MinStockoutDays); threshold < min {
		threshold = min
	}

	var periods []domain.StockoutPeriod
	for i := 1; i < len(days); i++ {
		gap := daysBetween(days[i-1], days[i])
		if float64(gap) < threshold || gap < 2 {
			continue
		}
		start := days[i-1].AddDate(0, 0, 1)
		end := days[i].AddDate(0, 0, -1)
		periods = append(periods, domain.StockoutPeriod{
			Start:  start,
			End:    &end,
			Days:   gap - 1,
			Method: domain.DetectedBySalesGap,
		})
	}

	return periods
}

// MergePeriods folds overlapping stockout periods from both detection
// methods into one timeline. An ongoing period swallows everything that
// starts inside it.
func MergePeriods(periods []domain.StockoutPeriod) []domain.StockoutPeriod {
	if len(periods) <= 1 {
		return periods
	}

	sorted := make([]domain.StockoutPeriod, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []domain.StockoutPeriod{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if next.Start.After(effectiveEnd(*cur)) {
			merged = append(merged, next)
			continue
		}

		// Overlap: extend the current period and reconcile the method.
		curEnd := effectiveEnd(*cur)
		nextEnd := effectiveEnd(next)
		if nextEnd.After(curEnd) {
			curEnd = nextEnd
		}
		cur.Days = daysBetween(cur.Start, curEnd) + 1
		if cur.End != nil && next.End != nil {
			end := curEnd
			cur.End = &end
		} else {
			cur.End = nil
		}
		if cur.Method != next.Method {
			cur.Method = domain.DetectedByBoth
		}
	}

	return merged
}

// effectiveEnd is the last day a period is known to cover, even when it has
// no observed end yet.
func effectiveEnd(p domain.StockoutPeriod) time.Time {
	if p.End != nil {
		return *p.End
	}

	return p.Start.AddDate(0, 0, p.Days-1)
}

func distinctSaleDays(sales []domain.SalePoint) []time.Time {
	seen := make(map[time.Time]bool, len(sales))
	for _, s := range sales {
		seen[day(s.Date)] = true
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	return days
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(day(b).Sub(day(a)) / (24 * time.Hour))
}
