// internal/service/analysis_service_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/inference"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/repository/memory"
)

// fakeAnalysisCache is an in-process stand-in for the redis cache, keyed the
// same way: per product pair and resolved window.
type fakeAnalysisCache struct {
	entries map[string]*domain.SubstitutionAnalysis
	gets    int
	hits    int
	sets    int
}

func newFakeAnalysisCache() *fakeAnalysisCache {
	return &fakeAnalysisCache{entries: make(map[string]*domain.SubstitutionAnalysis)}
}

func analysisKey(req domain.AnalysisRequest) string {
	from, to := "", ""
	if req.From != nil {
		from = req.From.Format("2006-01-02")
	}
	if req.To != nil {
		to = req.To.Format("2006-01-02")
	}

	return fmt.Sprintf("%s|%s|%s|%s", req.PrimaryProductID, req.SubstituteProductID, from, to)
}

func (f *fakeAnalysisCache) Get(_ context.Context, req domain.AnalysisRequest) (*domain.SubstitutionAnalysis, bool, error) {
	f.gets++
	analysis, ok := f.entries[analysisKey(req)]
	if ok {
		f.hits++
	}

	return analysis, ok, nil
}

func (f *fakeAnalysisCache) Set(_ context.Context, req domain.AnalysisRequest, analysis *domain.SubstitutionAnalysis) error {
	f.sets++
	f.entries[analysisKey(req)] = analysis

	return nil
}

func (f *fakeAnalysisCache) InvalidateProduct(_ context.Context, productID string) error {
	for key := range f.entries {
		if len(key) >= len(productID) && key[:len(productID)] == productID {
			delete(f.entries, key)
		}
	}

	return nil
}

func (f *fakeAnalysisCache) InvalidateAll(_ context.Context) error {
	f.entries = make(map[string]*domain.SubstitutionAnalysis)

	return nil
}

type analysisFixture struct {
	svc     *AnalysisService
	history *memory.HistoryStore
	ledger  *ledger.Ledger
	cache   *fakeAnalysisCache
}

func newAnalysisFixture() *analysisFixture {
	history := memory.NewHistoryStore()
	ledg := ledger.New(memory.NewLedgerStore())
	cache := newFakeAnalysisCache()
	svc := NewAnalysisService(config.PlanningConfig{HistoryDays: 30}, history, ledg, inference.New(inference.Config{}), cache)

	return &analysisFixture{svc: svc, history: history, ledger: ledg, cache: cache}
}

// seedSubstitutionScenario loads the canonical outage: product A dark on
// days 11-15 of January 2026, substitute B selling 20/day instead of 4.
func seedSubstitutionScenario(t *testing.T, fx *analysisFixture) (from, to time.Time) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var stock []domain.StockPoint
	var aSales, bSales []domain.SalePoint
	for i := 0; i < 30; i++ {
		d := start.AddDate(0, 0, i)
		dayNum := i + 1

		level := 10.0
		if dayNum >= 11 && dayNum <= 15 {
			level = 0
		}
		stock = append(stock, domain.StockPoint{Date: d, Quantity: level})

		if dayNum < 11 || dayNum > 15 {
			aSales = append(aSales, domain.SalePoint{Date: d, Quantity: 5})
		}

		bQty := 4.0
		if dayNum >= 11 && dayNum <= 15 {
			bQty = 20
		}
		bSales = append(bSales, domain.SalePoint{Date: d, Quantity: bQty})
	}

	if _, err := fx.history.UpsertStockLevels(ctx, "A", stock); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if _, err := fx.history.UpsertDailySales(ctx, "A", aSales); err != nil {
		t.Fatalf("seed A sales: %v", err)
	}
	if _, err := fx.history.UpsertDailySales(ctx, "B", bSales); err != nil {
		t.Fatalf("seed B sales: %v", err)
	}

	return start, start.AddDate(0, 0, 29)
}

func TestAnalyzeFindsSubstitutionEffect(t *testing.T) {
	fx := newAnalysisFixture()
	from, to := seedSubstitutionScenario(t, fx)

	analysis, err := fx.svc.Analyze(context.Background(), domain.AnalysisRequest{
		PrimaryProductID:    "A",
		SubstituteProductID: "B",
		From:                &from,
		To:                  &to,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(analysis.StockoutPeriods) != 1 {
		t.Fatalf("StockoutPeriods = %d, want 1", len(analysis.StockoutPeriods))
	}
	period := analysis.StockoutPeriods[0]
	if period.Days != 5 || period.Method != domain.DetectedByBoth {
		t.Errorf("period = %+v, want 5 days seen by both signals", period)
	}
	if analysis.Baseline.AvgDailySales != 4 {
		t.Errorf("baseline = %v, want 4/day", analysis.Baseline.AvgDailySales)
	}
	if !analysis.HasEffect || analysis.SubstitutionSales != 80 {
		t.Errorf("effect = %v with %v units, want 80", analysis.HasEffect, analysis.SubstitutionSales)
	}
	if analysis.PrimaryAdjustment == nil || analysis.PrimaryAdjustment.ProductID != "A" || analysis.PrimaryAdjustment.Delta != 80 {
		t.Errorf("PrimaryAdjustment = %+v", analysis.PrimaryAdjustment)
	}
}

func TestAnalyzeServesCachedResult(t *testing.T) {
	fx := newAnalysisFixture()
	from, to := seedSubstitutionScenario(t, fx)

	req := domain.AnalysisRequest{PrimaryProductID: "A", SubstituteProductID: "B", From: &from, To: &to}
	first, err := fx.svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fx.cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", fx.cache.sets)
	}

	second, err := fx.svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze (cached): %v", err)
	}
	if second != first {
		t.Error("second call should return the cached analysis")
	}
	if fx.cache.hits != 1 || fx.cache.sets != 1 {
		t.Errorf("hits/sets = %d/%d, want 1/1", fx.cache.hits, fx.cache.sets)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	fx := newAnalysisFixture()
	ctx := context.Background()
	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  domain.AnalysisRequest
	}{
		{"missing ids", domain.AnalysisRequest{}},
		{"self substitution", domain.AnalysisRequest{PrimaryProductID: "A", SubstituteProductID: "A"}},
		{"inverted window", domain.AnalysisRequest{PrimaryProductID: "A", SubstituteProductID: "B", From: &from, To: &to}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fx.svc.Analyze(ctx, tt.req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestAnalyzeKnownSubstitutes(t *testing.T) {
	fx := newAnalysisFixture()
	from, to := seedSubstitutionScenario(t, fx)
	ctx := context.Background()

	if _, err := fx.ledger.RecordSubstituteRelationship(ctx, domain.RecordSubstituteRelationshipRequest{
		ProductID:           "A",
		SubstituteProductID: "B",
	}); err != nil {
		t.Fatalf("RecordSubstituteRelationship: %v", err)
	}

	analyses, err := fx.svc.AnalyzeKnownSubstitutes(ctx, "A", &from, &to)
	if err != nil {
		t.Fatalf("AnalyzeKnownSubstitutes: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("analyses = %d, want 1", len(analyses))
	}
	if analyses[0].SubstituteProductID != "B" || !analyses[0].HasEffect {
		t.Errorf("analysis = %+v", analyses[0])
	}

	// The relationship was one-way; B has no declared substitutes.
	reverse, err := fx.svc.AnalyzeKnownSubstitutes(ctx, "B", &from, &to)
	if err != nil {
		t.Fatalf("AnalyzeKnownSubstitutes reverse: %v", err)
	}
	if len(reverse) != 0 {
		t.Errorf("reverse analyses = %d, want 0", len(reverse))
	}
}
