// internal/service/dashboard_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mwidjaja/procura/internal/cache"
	"github.com/mwidjaja/procura/internal/calendar"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/repository"
)

const recentIngestLimit = 5

// DashboardService renders the catalog-wide replenishment picture: urgency
// tiles, the needs-attention table, the next factory closure and the latest
// ingest runs. A summary replans every product, so results are cached and
// ledger writes invalidate.
type DashboardService struct {
	planning *PlanningService
	history  repository.HistoryRepository
	cal      calendar.Service
	cache    cache.DashboardSummaryCache
}

func NewDashboardService(planning *PlanningService, history repository.HistoryRepository, cal calendar.Service, cacheImpl cache.DashboardSummaryCache) *DashboardService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}

	return &DashboardService{planning: planning, history: history, cal: cal, cache: cacheImpl}
}

// Summary builds the dashboard for the filter's reference date, today when
// unset. An explicit product list narrows the replan; an urgency filter
// narrows only the attention table, the tiles always count everything.
func (s *DashboardService) Summary(ctx context.Context, filter *domain.DashboardFilter) (*domain.DashboardSummary, error) {
	if filter == nil {
		filter = &domain.DashboardFilter{}
	}

	if summary, ok, err := s.cache.GetSummary(ctx, filter); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("dashboard: cache get failed")
	}

	ref := day(time.Now().UTC())
	if filter.ReferenceDate != "" {
		parsed, err := time.Parse("2006-01-02", filter.ReferenceDate)
		if err != nil {
			return nil, fmt.Errorf("%w: reference date must be YYYY-MM-DD", ErrInvalidInput)
		}
		ref = parsed
	}

	var reqs []domain.PlanRequest
	if len(filter.ProductIDs) > 0 {
		reqs = make([]domain.PlanRequest, 0, len(filter.ProductIDs))
		for _, id := range filter.ProductIDs {
			reqs = append(reqs, domain.PlanRequest{ProductID: id, ReferenceDate: &ref})
		}
	} else {
		var err error
		reqs, err = s.planning.CatalogRequests(ctx, ref, false, false)
		if err != nil {
			return nil, err
		}
	}

	batch := s.planning.PlanBatch(ctx, reqs)
	summary := s.build(ctx, ref, filter, batch)

	if err := s.cache.SetSummary(ctx, filter, summary); err != nil {
		log.Warn().Err(err).Msg("dashboard: cache set failed")
	}

	return summary, nil
}

func (s *DashboardService) build(ctx context.Context, ref time.Time, filter *domain.DashboardFilter, batch *domain.BatchPlanResult) *domain.DashboardSummary {
	summary := &domain.DashboardSummary{
		GeneratedAt:   time.Now().UTC(),
		ReferenceDate: ref,
		Products:      len(batch.Plans),
	}

	byUrgency := make(map[domain.ReorderUrgency][]string)
	for _, plan := range batch.Plans {
		byUrgency[plan.Urgency] = append(byUrgency[plan.Urgency], plan.ProductID)
		if plan.CNY != nil && plan.CNY.Urgency.Imminent() {
			summary.ImminentDeadlines++
		}
	}
	for _, u := range []domain.ReorderUrgency{domain.UrgencyCritical, domain.UrgencyHigh, domain.UrgencyModerate, domain.UrgencyNone} {
		products := byUrgency[u]
		sort.Strings(products)
		summary.Cards = append(summary.Cards, domain.UrgencyCard{
			Urgency:  u,
			Label:    domain.UrgencyLabel(u),
			Count:    len(products),
			Products: products,
		})
	}

	for _, plan := range batch.Plans {
		if plan.Urgency == domain.UrgencyNone {
			continue
		}
		if filter.Urgency != "" && string(plan.Urgency) != filter.Urgency {
			continue
		}
		item := domain.AttentionItem{
			ProductID:           plan.ProductID,
			Urgency:             plan.Urgency,
			Action:              plan.Action,
			DaysOfStock:         plan.DaysOfStock,
			Available:           plan.Available,
			ReorderPoint:        plan.ReorderPoint,
			RecommendedQuantity: plan.RecommendedQuantity,
			Notes:               plan.Notes,
		}
		if plan.CNY != nil {
			deadline := plan.CNY.OrderDeadline
			item.ClosureDeadline = &deadline
		}
		summary.NeedsAttention = append(summary.NeedsAttention, item)
	}
	sort.Slice(summary.NeedsAttention, func(i, j int) bool {
		a, b := summary.NeedsAttention[i], summary.NeedsAttention[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() > b.Urgency.Rank()
		}
		if a.DaysOfStock != b.DaysOfStock {
			return a.DaysOfStock < b.DaysOfStock
		}

		return a.ProductID < b.ProductID
	})

	if s.cal != nil {
		if window, ok := s.cal.NextClosure(ref); ok {
			summary.NextClosure = &window
		}
	}

	if runs, err := s.history.RecentIngestRuns(ctx, recentIngestLimit); err != nil {
		log.Warn().Err(err).Msg("dashboard: recent ingest lookup failed")
	} else {
		summary.RecentIngests = runs
	}

	return summary
}
