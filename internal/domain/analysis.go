// internal/domain/analysis.go
package domain

import "time"

// DetectionMethod says which signal produced a stockout period.
type DetectionMethod string

const (
	DetectedByStockLevel DetectionMethod = "stock_level"
	DetectedBySalesGap   DetectionMethod = "sales_gap"
	DetectedByBoth       DetectionMethod = "combined"
)

// StockoutPeriod is a span of days a product was unavailable. End is nil
// while the stockout is still ongoing.
type StockoutPeriod struct {
	Start  time.Time       `json:"start"`
	End    *time.Time      `json:"end,omitempty"`
	Days   int             `json:"days"`
	Method DetectionMethod `json:"method"`
}

// Ongoing reports whether the period has no observed end.
func (p StockoutPeriod) Ongoing() bool { return p.End == nil }

// BaselineStats is the mean and population standard deviation of per-day
// sales totals, computed with stockout windows excluded.
type BaselineStats struct {
	AvgDailySales float64 `json:"avg_daily_sales"`
	StdDev        float64 `json:"std_dev"`
	SampleDays    int     `json:"sample_days"`
}

// PeriodExcess compares a substitute's sales during one stockout window
// against its baseline expectation.
type PeriodExcess struct {
	Period        StockoutPeriod `json:"period"`
	ExpectedSales float64        `json:"expected_sales"`
	ActualSales   float64        `json:"actual_sales"`
	ExcessSales   float64        `json:"excess_sales"`
	ExcessPercent float64        `json:"excess_percent"`
	HasEffect     bool           `json:"has_effect"`
}

// SubstitutionAnalysis is the full result of asking whether sales of a
// substitute were inflated by stockouts of the primary product.
type SubstitutionAnalysis struct {
	PrimaryProductID    string           `json:"primary_product_id"`
	SubstituteProductID string           `json:"substitute_product_id"`
	From                time.Time        `json:"from"`
	To                  time.Time        `json:"to"`
	StockoutPeriods     []StockoutPeriod `json:"stockout_periods"`
	Baseline            BaselineStats    `json:"baseline"`
	Periods             []PeriodExcess   `json:"periods"`
	SubstitutionSales   float64          `json:"substitution_sales"`
	HasEffect           bool             `json:"has_effect"`
	PrimaryAdjustment   *Adjustment      `json:"primary_adjustment,omitempty"`
	Recommendation      string           `json:"recommendation"`
}
