// internal/inference/baseline.go
package inference

import (
	"math"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// Baseline computes a product's normal selling rate: mean and population
// standard deviation of per-day totals across the observed span, with the
// given exclusion windows removed. Days without sales count as zero days,
// so sparse sellers are not flattered.
func (e *Engine) Baseline(sales []domain.SalePoint, exclude []domain.StockoutPeriod) domain.BaselineStats {
	if len(sales) == 0 {
		return domain.BaselineStats{}
	}

	perDay := make(map[int64]float64)
	first, last := day(sales[0].Date), day(sales[0].Date)
	for _, s := range sales {
		d := day(s.Date)
		perDay[d.Unix()] += s.Quantity
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var values []float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if insideAny(d, exclude) {
			continue
		}
		values = append(values, perDay[d.Unix()])
	}
	if len(values) == 0 {
		return domain.BaselineStats{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return domain.BaselineStats{
		AvgDailySales: mean,
		StdDev:        math.Sqrt(variance),
		SampleDays:    len(values),
	}
}

func insideAny(d time.Time, periods []domain.StockoutPeriod) bool {
	for _, p := range periods {
		if !d.Before(p.Start) && !d.After(effectiveEnd(p)) {
			return true
		}
	}

	return false
}
