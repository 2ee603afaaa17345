// internal/service/ledger_service.go
package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mwidjaja/procura/internal/cache"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/ledger"
)

// LedgerService fronts the context ledger for the API. Every write drops
// the cached results it makes stale: the touched products' substitution
// analyses and all dashboard roll-ups.
type LedgerService struct {
	ledger    *ledger.Ledger
	analysis  cache.AnalysisCache
	dashboard cache.DashboardSummaryCache
}

func NewLedgerService(ledg *ledger.Ledger, analysisCache cache.AnalysisCache, dashboardCache cache.DashboardSummaryCache) *LedgerService {
	if analysisCache == nil {
		analysisCache = cache.NewNoopAnalysisCache()
	}
	if dashboardCache == nil {
		dashboardCache = cache.NewNoopDashboardCache()
	}

	return &LedgerService{ledger: ledg, analysis: analysisCache, dashboard: dashboardCache}
}

func (s *LedgerService) RecordSubstitution(ctx context.Context, req domain.RecordSubstitutionRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordSubstitution(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) RecordOneTimeOrder(ctx context.Context, req domain.RecordOneTimeOrderRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordOneTimeOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) RecordPromotion(ctx context.Context, req domain.RecordPromotionRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordPromotion(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) RecordSupplyDisruption(ctx context.Context, req domain.RecordSupplyDisruptionRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordSupplyDisruption(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) RecordProductNote(ctx context.Context, req domain.RecordProductNoteRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordProductNote(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) RecordRecurringOrder(ctx context.Context, req domain.RecordRecurringOrderRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordRecurringOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) RecordSubstituteRelationship(ctx context.Context, req domain.RecordSubstituteRelationshipRequest) (*domain.ContextEntry, error) {
	entry, err := s.ledger.RecordSubstituteRelationship(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, entry)

	return entry, nil
}

func (s *LedgerService) Adjustments(ctx context.Context, q domain.AdjustmentQuery) (*domain.AdjustmentReport, error) {
	return s.ledger.QueryAdjustments(ctx, q)
}

func (s *LedgerService) Summary(ctx context.Context, productID string) (*domain.ContextSummary, error) {
	return s.ledger.QuerySummary(ctx, productID)
}

func (s *LedgerService) Entry(ctx context.Context, entryID string) (*domain.ContextEntry, error) {
	return s.ledger.Entry(ctx, entryID)
}

func (s *LedgerService) Entries(ctx context.Context, productID string, includeInactive bool) ([]domain.ContextEntry, error) {
	return s.ledger.Entries(ctx, productID, includeInactive)
}

// Deactivate soft-deletes an entry and, when that actually changed
// something, drops the caches the entry fed.
func (s *LedgerService) Deactivate(ctx context.Context, entryID string) (bool, error) {
	done, err := s.ledger.Deactivate(ctx, entryID)
	if err != nil || !done {
		return done, err
	}

	if entry, err := s.ledger.Entry(ctx, entryID); err == nil && entry != nil {
		s.invalidate(ctx, entry)
	}

	return true, nil
}

func (s *LedgerService) invalidate(ctx context.Context, entry *domain.ContextEntry) {
	for _, id := range entry.ProductIDs {
		if err := s.analysis.InvalidateProduct(ctx, id); err != nil {
			log.Warn().Err(err).Str("product_id", id).Msg("ledger: analysis cache invalidation failed")
		}
	}
	if err := s.dashboard.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("ledger: dashboard cache invalidation failed")
	}
}
