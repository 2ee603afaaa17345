// internal/inference/engine.go
package inference

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/pkg/logger"
)

// Config tunes the detection heuristics. The defaults match how the
// purchasing team reads the numbers by hand: three quiet days start to look
// like a stockout, and a 10% lift over baseline is worth acting on.
type Config struct {
	MinStockoutDays       int
	SalesGapFactor        float64
	SubstitutionThreshold float64
}

// DefaultConfig returns the standard heuristic settings.
func DefaultConfig() Config {
	return Config{
		MinStockoutDays:       3,
		SalesGapFactor:        3.0,
		SubstitutionThreshold: 0.10,
	}
}

// Engine answers one question: when a product ran out, did its sales move
// to a substitute? It detects stockouts from two independent signals,
// baselines the substitute's normal rate, and measures excess sales during
// the stockout windows.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// New builds an engine, backfilling unset config fields with defaults.
func New(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.MinStockoutDays <= 0 {
		cfg.MinStockoutDays = defaults.MinStockoutDays
	}
	if cfg.SalesGapFactor <= 0 {
		cfg.SalesGapFactor = defaults.SalesGapFactor
	}
	if cfg.SubstitutionThreshold <= 0 {
		cfg.SubstitutionThreshold = defaults.SubstitutionThreshold
	}

	return &Engine{cfg: cfg, log: logger.Component("inference")}
}

// Input is everything AnalyzeSubstitution needs: the primary's stock and
// sales series to find stockouts, and the substitute's sales to measure
// against. Series may be empty; the analysis degrades gracefully.
type Input struct {
	PrimaryProductID    string
	SubstituteProductID string
	PrimaryStock        []domain.StockPoint
	PrimarySales        []domain.SalePoint
	SubstituteSales     []domain.SalePoint
	From                time.Time
	To                  time.Time
}

// DetectStockouts runs both detection methods over a product's series and
// merges the findings into one timeline.
func (e *Engine) DetectStockouts(stock []domain.StockPoint, sales []domain.SalePoint) []domain.StockoutPeriod {
	periods := e.StockoutsFromLevels(stock)
	periods = append(periods, e.StockoutsFromGaps(sales)...)

	return MergePeriods(periods)
}

// AnalyzeSubstitution measures whether the substitute's sales were inflated
// while the primary was out of stock. The result carries the full reasoning
// chain: detected periods, baseline, per-period excess and the recommended
// demand adjustment for the primary.
func (e *Engine) AnalyzeSubstitution(in Input) *domain.SubstitutionAnalysis {
	analysis := &domain.SubstitutionAnalysis{
		PrimaryProductID:    in.PrimaryProductID,
		SubstituteProductID: in.SubstituteProductID,
		From:                in.From,
		To:                  in.To,
	}

	analysis.StockoutPeriods = e.DetectStockouts(in.PrimaryStock, in.PrimarySales)
	if len(analysis.StockoutPeriods) == 0 {
		analysis.Recommendation = fmt.Sprintf("no stockouts detected for %s; no substitution effect to measure", in.PrimaryProductID)
		return analysis
	}

	analysis.Baseline = e.Baseline(in.SubstituteSales, analysis.StockoutPeriods)

	for _, period := range analysis.StockoutPeriods {
		excess := e.periodExcess(period, in.SubstituteSales, analysis.Baseline)
		analysis.Periods = append(analysis.Periods, excess)
		if excess.HasEffect {
			analysis.HasEffect = true
			analysis.SubstitutionSales += excess.ExcessSales
		}
	}

	if analysis.HasEffect {
		analysis.PrimaryAdjustment = &domain.Adjustment{
			ProductID: in.PrimaryProductID,
			Delta:     analysis.SubstitutionSales,
			Reason:    fmt.Sprintf("estimated sales lost to substitute %s during stockouts", in.SubstituteProductID),
		}
		analysis.Recommendation = fmt.Sprintf(
			"%s absorbed roughly %.0f units of %s demand during stockouts; raise %s's demand estimate accordingly",
			in.SubstituteProductID, analysis.SubstitutionSales, in.PrimaryProductID, in.PrimaryProductID,
		)
	} else {
		analysis.Recommendation = fmt.Sprintf(
			"%s's sales during %s stockouts stayed within baseline; no demand shift detected",
			in.SubstituteProductID, in.PrimaryProductID,
		)
	}

	e.log.Debug().
		Str("primary", in.PrimaryProductID).
		Str("substitute", in.SubstituteProductID).
		Int("stockout_periods", len(analysis.StockoutPeriods)).
		Bool("has_effect", analysis.HasEffect).
		Float64("substitution_sales", analysis.SubstitutionSales).
		Msg("substitution analysis complete")

	return analysis
}

// periodExcess compares the substitute's actual sales inside one stockout
// window against expectation. A window with zero substitute sales can never
// show an effect, and a zero expectation reports 0% rather than dividing by
// zero.
func (e *Engine) periodExcess(period domain.StockoutPeriod, substituteSales []domain.SalePoint, baseline domain.BaselineStats) domain.PeriodExcess {
	end := effectiveEnd(period)

	var actual float64
	for _, s := range substituteSales {
		d := day(s.Date)
		if d.Before(period.Start) || d.After(end) {
			continue
		}
		actual += s.Quantity
	}

	expected := baseline.AvgDailySales * float64(period.Days)
	excess := actual - expected
	if excess < 0 {
		excess = 0
	}

	var excessPct float64
	if expected > 0 {
		excessPct = excess / expected * 100
	}

	return domain.PeriodExcess{
		Period:        period,
		ExpectedSales: expected,
		ActualSales:   actual,
		ExcessSales:   excess,
		ExcessPercent: excessPct,
		HasEffect:     excess > 0 && excess > e.cfg.SubstitutionThreshold*expected,
	}
}
