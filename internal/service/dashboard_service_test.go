// internal/service/dashboard_service_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
)

type fakeDashboardCache struct {
	entries map[string]*domain.DashboardSummary
	hits    int
	sets    int
	flushes int
}

func newFakeDashboardCache() *fakeDashboardCache {
	return &fakeDashboardCache{entries: make(map[string]*domain.DashboardSummary)}
}

func dashboardKey(filter *domain.DashboardFilter) string {
	return fmt.Sprintf("%s|%s|%s", filter.ReferenceDate, filter.Urgency, strings.Join(filter.ProductIDs, ","))
}

func (f *fakeDashboardCache) GetSummary(_ context.Context, filter *domain.DashboardFilter) (*domain.DashboardSummary, bool, error) {
	summary, ok := f.entries[dashboardKey(filter)]
	if ok {
		f.hits++
	}

	return summary, ok, nil
}

func (f *fakeDashboardCache) SetSummary(_ context.Context, filter *domain.DashboardFilter, summary *domain.DashboardSummary) error {
	f.sets++
	f.entries[dashboardKey(filter)] = summary

	return nil
}

func (f *fakeDashboardCache) InvalidateAll(_ context.Context) error {
	f.flushes++
	f.entries = make(map[string]*domain.DashboardSummary)

	return nil
}

// seedDashboardCatalog loads two products: CRIT-1 selling 10/day with no
// stock on file, OK-1 selling 1/day with 5000 on hand.
func seedDashboardCatalog(t *testing.T, fx *planningFixture, ref time.Time) {
	t.Helper()
	from := ref.AddDate(0, 0, -29)
	seedDailySales(t, fx.history, "CRIT-1", from, 30, 10)
	seedDailySales(t, fx.history, "OK-1", from, 30, 1)

	if _, err := fx.history.UpsertStockLevels(context.Background(), "OK-1", []domain.StockPoint{
		{Date: ref.AddDate(0, 0, -1), Quantity: 5000},
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	fx := newPlanningFixture(config.PlanningConfig{HistoryDays: 30})
	ref := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	seedDashboardCatalog(t, fx, ref)

	finished := ref.Add(2 * time.Hour)
	if err := fx.history.RecordIngestRun(ctx, &domain.IngestRun{
		Source:       "drive",
		FileName:     "retail_sales.csv",
		RowsIngested: 120,
		Status:       domain.IngestStatusOK,
		StartedAt:    finished.Add(-time.Minute),
		FinishedAt:   finished,
	}); err != nil {
		t.Fatalf("RecordIngestRun: %v", err)
	}

	svc := NewDashboardService(fx.svc, fx.history, nil, nil)
	summary, err := svc.Summary(ctx, &domain.DashboardFilter{ReferenceDate: "2026-03-31"})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.Products != 2 {
		t.Fatalf("Products = %d, want 2", summary.Products)
	}
	if !summary.ReferenceDate.Equal(ref) {
		t.Errorf("ReferenceDate = %v, want %v", summary.ReferenceDate, ref)
	}

	if len(summary.Cards) != 4 {
		t.Fatalf("Cards = %d, want one per urgency level", len(summary.Cards))
	}
	critical := summary.Cards[0]
	if critical.Urgency != domain.UrgencyCritical || critical.Label != "Critical" || critical.Count != 1 {
		t.Errorf("critical card = %+v", critical)
	}
	if len(critical.Products) != 1 || critical.Products[0] != "CRIT-1" {
		t.Errorf("critical products = %v", critical.Products)
	}
	quiet := summary.Cards[3]
	if quiet.Urgency != domain.UrgencyNone || quiet.Count != 1 {
		t.Errorf("none card = %+v", quiet)
	}

	// With no stock on file CRIT-1 sits at zero available against a
	// reorder point of 800, so the whole deficit is the recommendation.
	if len(summary.NeedsAttention) != 1 {
		t.Fatalf("NeedsAttention = %+v, want only CRIT-1", summary.NeedsAttention)
	}
	item := summary.NeedsAttention[0]
	if item.ProductID != "CRIT-1" || item.Urgency != domain.UrgencyCritical {
		t.Errorf("attention item = %+v", item)
	}
	if item.Action != domain.ActionOrderImmediately || item.RecommendedQuantity != 800 {
		t.Errorf("action/quantity = %s/%d", item.Action, item.RecommendedQuantity)
	}

	if summary.NextClosure != nil {
		t.Errorf("NextClosure = %+v, want nil without a calendar", summary.NextClosure)
	}
	if len(summary.RecentIngests) != 1 || summary.RecentIngests[0].FileName != "retail_sales.csv" {
		t.Errorf("RecentIngests = %+v", summary.RecentIngests)
	}
}

func TestDashboardSummaryServesCachedResult(t *testing.T) {
	ctx := context.Background()
	fx := newPlanningFixture(config.PlanningConfig{HistoryDays: 30})
	ref := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	seedDashboardCatalog(t, fx, ref)

	cache := newFakeDashboardCache()
	svc := NewDashboardService(fx.svc, fx.history, nil, cache)

	filter := &domain.DashboardFilter{ReferenceDate: "2026-03-31"}
	first, err := svc.Summary(ctx, filter)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	second, err := svc.Summary(ctx, filter)
	if err != nil {
		t.Fatalf("Summary (cached): %v", err)
	}

	if second != first {
		t.Error("second call should return the cached summary")
	}
	if cache.hits != 1 || cache.sets != 1 {
		t.Errorf("hits/sets = %d/%d, want 1/1", cache.hits, cache.sets)
	}
}

func TestDashboardUrgencyFilterNarrowsAttentionOnly(t *testing.T) {
	ctx := context.Background()
	fx := newPlanningFixture(config.PlanningConfig{HistoryDays: 30})
	ref := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	seedDashboardCatalog(t, fx, ref)

	svc := NewDashboardService(fx.svc, fx.history, nil, nil)
	summary, err := svc.Summary(ctx, &domain.DashboardFilter{ReferenceDate: "2026-03-31", Urgency: "high"})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if len(summary.NeedsAttention) != 0 {
		t.Errorf("NeedsAttention = %+v, want none at high", summary.NeedsAttention)
	}
	// Tiles keep counting everything regardless of the filter.
	if summary.Cards[0].Count != 1 {
		t.Errorf("critical card count = %d, want 1", summary.Cards[0].Count)
	}
}

func TestDashboardNarrowsToRequestedProducts(t *testing.T) {
	ctx := context.Background()
	fx := newPlanningFixture(config.PlanningConfig{HistoryDays: 30})
	ref := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	seedDashboardCatalog(t, fx, ref)

	svc := NewDashboardService(fx.svc, fx.history, nil, nil)
	summary, err := svc.Summary(ctx, &domain.DashboardFilter{ReferenceDate: "2026-03-31", ProductIDs: []string{"OK-1"}})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.Products != 1 {
		t.Errorf("Products = %d, want 1", summary.Products)
	}
	if len(summary.NeedsAttention) != 0 {
		t.Errorf("NeedsAttention = %+v, want none", summary.NeedsAttention)
	}
}

func TestDashboardRejectsBadReferenceDate(t *testing.T) {
	fx := newPlanningFixture(config.PlanningConfig{HistoryDays: 30})
	svc := NewDashboardService(fx.svc, fx.history, nil, nil)

	_, err := svc.Summary(context.Background(), &domain.DashboardFilter{ReferenceDate: "31-03-2026"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
