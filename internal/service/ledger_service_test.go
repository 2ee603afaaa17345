// internal/service/ledger_service_test.go
package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/repository/memory"
)

// spyAnalysisCache records which products had their analyses dropped.
type spyAnalysisCache struct {
	invalidated []string
}

func (s *spyAnalysisCache) Get(context.Context, domain.AnalysisRequest) (*domain.SubstitutionAnalysis, bool, error) {
	return nil, false, nil
}

func (s *spyAnalysisCache) Set(context.Context, domain.AnalysisRequest, *domain.SubstitutionAnalysis) error {
	return nil
}

func (s *spyAnalysisCache) InvalidateProduct(_ context.Context, productID string) error {
	s.invalidated = append(s.invalidated, productID)

	return nil
}

func (s *spyAnalysisCache) InvalidateAll(context.Context) error { return nil }

func newLedgerServiceFixture() (*LedgerService, *spyAnalysisCache, *fakeDashboardCache) {
	analysis := &spyAnalysisCache{}
	dashboard := newFakeDashboardCache()
	svc := NewLedgerService(ledger.New(memory.NewLedgerStore()), analysis, dashboard)

	return svc, analysis, dashboard
}

func TestLedgerWritesInvalidateCaches(t *testing.T) {
	svc, analysis, dashboard := newLedgerServiceFixture()
	ctx := context.Background()

	entry, err := svc.RecordSubstitution(ctx, domain.RecordSubstitutionRequest{
		Date:                time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		OriginalProductID:   "A",
		SubstituteProductID: "B",
		Quantity:            40,
		Reason:              "A out of stock",
	})
	if err != nil {
		t.Fatalf("RecordSubstitution: %v", err)
	}
	if entry == nil || entry.ID == "" {
		t.Fatalf("entry = %+v", entry)
	}

	// A substitution touches both products; the dashboard flushes once.
	sort.Strings(analysis.invalidated)
	if len(analysis.invalidated) != 2 || analysis.invalidated[0] != "A" || analysis.invalidated[1] != "B" {
		t.Errorf("invalidated = %v, want [A B]", analysis.invalidated)
	}
	if dashboard.flushes != 1 {
		t.Errorf("dashboard flushes = %d, want 1", dashboard.flushes)
	}
}

func TestLedgerRejectedWriteLeavesCachesAlone(t *testing.T) {
	svc, analysis, dashboard := newLedgerServiceFixture()

	_, err := svc.RecordProductNote(context.Background(), domain.RecordProductNoteRequest{Note: "no product"})
	if err == nil {
		t.Fatal("note without a product should fail")
	}
	if len(analysis.invalidated) != 0 || dashboard.flushes != 0 {
		t.Errorf("caches touched on rejected write: %v / %d", analysis.invalidated, dashboard.flushes)
	}
}

func TestLedgerDeactivateInvalidates(t *testing.T) {
	svc, analysis, dashboard := newLedgerServiceFixture()
	ctx := context.Background()

	entry, err := svc.RecordOneTimeOrder(ctx, domain.RecordOneTimeOrderRequest{
		Date:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		ProductID: "A",
		Quantity:  500,
		Reason:    "trade fair stocking",
	})
	if err != nil {
		t.Fatalf("RecordOneTimeOrder: %v", err)
	}
	analysis.invalidated = nil
	dashboard.flushes = 0

	done, err := svc.Deactivate(ctx, entry.ID)
	if err != nil || !done {
		t.Fatalf("Deactivate = %v, %v", done, err)
	}
	if len(analysis.invalidated) != 1 || analysis.invalidated[0] != "A" {
		t.Errorf("invalidated = %v, want [A]", analysis.invalidated)
	}
	if dashboard.flushes != 1 {
		t.Errorf("dashboard flushes = %d, want 1", dashboard.flushes)
	}

	// Deactivating an unknown entry changes nothing.
	done, err = svc.Deactivate(ctx, "missing")
	if err != nil {
		t.Fatalf("Deactivate missing: %v", err)
	}
	if done {
		t.Error("unknown entry reported as deactivated")
	}
	if dashboard.flushes != 1 {
		t.Errorf("dashboard flushes = %d after no-op, want still 1", dashboard.flushes)
	}
}

func TestLedgerQueriesPassThrough(t *testing.T) {
	svc, _, _ := newLedgerServiceFixture()
	ctx := context.Background()

	if _, err := svc.RecordPromotion(ctx, domain.RecordPromotionRequest{
		ProductID:      "A",
		UpliftQuantity: 90,
		StartDate:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Reason:         "spring campaign",
	}); err != nil {
		t.Fatalf("RecordPromotion: %v", err)
	}

	report, err := svc.Adjustments(ctx, domain.AdjustmentQuery{ProductID: "A"})
	if err != nil {
		t.Fatalf("Adjustments: %v", err)
	}
	if report.NetAdjustment != -90 {
		t.Errorf("NetAdjustment = %v, want -90", report.NetAdjustment)
	}

	summary, err := svc.Summary(ctx, "A")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1", summary.TotalEntries)
	}

	entries, err := svc.Entries(ctx, "A", false)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}
