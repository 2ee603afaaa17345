// internal/service/planning_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/packer"
	"github.com/mwidjaja/procura/internal/planner"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/repository"
)

// ErrInvalidInput marks a request a service rejected before doing any work.
// Handlers translate it to a client error.
var ErrInvalidInput = errors.New("invalid input")

// batchParallelism bounds how many products plan at once in a batch run.
const batchParallelism = 8

// PlanningService assembles everything a replenishment decision needs: the
// demand window from history, the ledger's corrections, the inference
// engine's stockout findings and the registries' supplier terms, handed to
// the planner and optionally sized into containers.
type PlanningService struct {
	cfg      config.PlanningConfig
	history  repository.HistoryRepository
	ledger   *ledger.Ledger
	analysis *AnalysisService
	planner  *planner.Planner
	packer   *packer.Packer
	registry *registry.Registry
}

func NewPlanningService(
	cfg config.PlanningConfig,
	history repository.HistoryRepository,
	ledg *ledger.Ledger,
	analysis *AnalysisService,
	plan *planner.Planner,
	pack *packer.Packer,
	reg *registry.Registry,
) *PlanningService {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}

	return &PlanningService{
		cfg:      cfg,
		history:  history,
		ledger:   ledg,
		analysis: analysis,
		planner:  plan,
		packer:   pack,
		registry: reg,
	}
}

// Plan produces the replenishment plan for one product. The demand window
// is the configured number of days ending on the reference date; days with
// no invoices count as zero-sales days. A zero current stock in the request
// falls back to the latest observed stock level.
func (s *PlanningService) Plan(ctx context.Context, req domain.PlanRequest) (*domain.ReplenishmentPlan, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}

	ref := day(time.Now().UTC())
	if req.ReferenceDate != nil {
		ref = day(*req.ReferenceDate)
	}
	from := ref.AddDate(0, 0, -(s.cfg.HistoryDays - 1))

	sales, err := s.history.SalesHistory(ctx, req.ProductID, from, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history for %s: %w", req.ProductID, err)
	}
	stats := windowStats(req.ProductID, sales, from, ref)

	rawDaily := stats.AvgDaily
	if req.AvgDailyDemand > 0 {
		rawDaily = req.AvgDailyDemand
	}
	stdDev := stats.StdDev
	if req.DemandStdDev > 0 {
		stdDev = req.DemandStdDev
	}

	report, err := s.ledger.QueryAdjustments(ctx, domain.AdjustmentQuery{ProductID: req.ProductID, From: &from, To: &ref})
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments for %s: %w", req.ProductID, err)
	}
	net := report.NetAdjustment

	var inferred float64
	if req.IncludeInference && s.analysis != nil {
		inferred, err = s.inferredLostSales(ctx, req.ProductID, from, ref)
		if err != nil {
			log.Warn().Err(err).Str("product_id", req.ProductID).Msg("planning: substitution inference skipped")
			inferred = 0
		}
	}

	adjustedDaily := rawDaily + (net+inferred)/float64(stats.Days)
	if adjustedDaily < 0 {
		adjustedDaily = 0
	}

	stock := req.CurrentStock
	if stock == 0 {
		stock, err = s.latestStockLevel(ctx, req.ProductID, from, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load stock history for %s: %w", req.ProductID, err)
		}
	}

	reserve, ok := s.registry.ChannelReserve(req.ProductID)
	if !ok {
		reserve = s.cfg.ChannelSafetyReserve
	}

	leadDays := 0
	mode := req.ShippingMode
	unitCost := req.UnitCost
	if sup, ok := s.registry.Supplier(req.ProductID); ok {
		leadDays = sup.LeadTimeDays
		if mode == "" {
			mode = sup.PreferredMode
		}
		if unitCost <= 0 {
			unitCost = sup.UnitCost
		}
	}

	plan := s.planner.Plan(planner.Inputs{
		ProductID:           req.ProductID,
		AvgDailyDemand:      adjustedDaily,
		RawDailyDemand:      rawDaily,
		DemandStdDev:        stdDev,
		NetAdjustment:       net,
		InferenceAdjustment: inferred,
		CurrentStock:        stock,
		PendingOrders:       req.PendingOrders,
		ChannelReserve:      reserve,
		ServiceLevel:        req.ServiceLevel,
		SupplierLeadDays:    leadDays,
		ShippingMode:        mode,
		UnitCost:            unitCost,
		ReferenceDate:       ref,
	})

	s.applySupplierTerms(plan)
	if req.IncludePacking {
		s.attachPacking(plan)
	}

	return plan, nil
}

// PlanBatch plans many products concurrently with bounded parallelism.
// Products are isolated from each other: one failure lands in Failures and
// never voids the rest.
func (s *PlanningService) PlanBatch(ctx context.Context, reqs []domain.PlanRequest) *domain.BatchPlanResult {
	plans := make([]*domain.ReplenishmentPlan, len(reqs))
	errs := make([]error, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchParallelism)
	for i, req := range reqs {
		g.Go(func() error {
			plan, err := s.Plan(ctx, req)
			if err != nil {
				errs[i] = err
				return nil
			}
			plans[i] = plan

			return nil
		})
	}
	_ = g.Wait()

	result := &domain.BatchPlanResult{GeneratedAt: time.Now().UTC()}
	for i := range reqs {
		switch {
		case plans[i] != nil:
			result.Plans = append(result.Plans, plans[i])
		case errs[i] != nil:
			result.Failures = append(result.Failures, domain.PlanFailure{ProductID: reqs[i].ProductID, Error: errs[i].Error()})
		}
	}
	result.Summary = Summarize(result.Plans)

	log.Info().
		Int("planned", len(result.Plans)).
		Int("failed", len(result.Failures)).
		Msg("planning: batch complete")

	return result
}

// CatalogRequests builds one plan request per known product: everything
// with recorded history plus everything registered, whether or not it has
// sold yet.
func (s *PlanningService) CatalogRequests(ctx context.Context, ref time.Time, includeInference, includePacking bool) ([]domain.PlanRequest, error) {
	ids, err := s.history.ProductIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range s.registry.ProductIDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	date := day(ref)
	reqs := make([]domain.PlanRequest, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, domain.PlanRequest{
			ProductID:        id,
			ReferenceDate:    &date,
			IncludeInference: includeInference,
			IncludePacking:   includePacking,
		})
	}

	return reqs, nil
}

// Summarize rolls a set of plans into the by-urgency totals the dashboard
// and the CLI print.
func Summarize(plans []*domain.ReplenishmentPlan) *domain.PlanSummary {
	summary := &domain.PlanSummary{
		GeneratedAt: time.Now().UTC(),
		Products:    len(plans),
		ByUrgency:   make(map[domain.ReorderUrgency]int),
	}

	for _, plan := range plans {
		summary.ByUrgency[plan.Urgency]++
		switch plan.Action {
		case domain.ActionOrderImmediately:
			summary.OrderNow = append(summary.OrderNow, plan.ProductID)
		case domain.ActionOrderSoon:
			summary.OrderSoon = append(summary.OrderSoon, plan.ProductID)
		}
		if plan.CNY != nil {
			if summary.NextCNYWindow == nil || plan.CNY.Window.Start.Before(summary.NextCNYWindow.Start) {
				window := plan.CNY.Window
				summary.NextCNYWindow = &window
			}
		}
	}
	sort.Strings(summary.OrderNow)
	sort.Strings(summary.OrderSoon)

	return summary
}

// inferredLostSales sums the demand the inference engine attributes to
// substitutes selling in this product's place during its stockouts.
func (s *PlanningService) inferredLostSales(ctx context.Context, productID string, from, to time.Time) (float64, error) {
	analyses, err := s.analysis.AnalyzeKnownSubstitutes(ctx, productID, &from, &to)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, analysis := range analyses {
		if analysis.PrimaryAdjustment != nil {
			total += analysis.PrimaryAdjustment.Delta
		}
	}

	return total, nil
}

// applySupplierTerms lifts the economic and recommended quantities to the
// supplier's minimum and order multiple once the planner has sized them.
func (s *PlanningService) applySupplierTerms(plan *domain.ReplenishmentPlan) {
	moq, ok := s.registry.MOQ(plan.ProductID)
	if !ok {
		return
	}

	if plan.EOQ > 0 {
		plan.EOQ = s.packer.ApplyMOQ(plan.EOQ, moq)
	}
	if plan.RecommendedQuantity > 0 {
		if lifted := s.packer.ApplyMOQ(plan.RecommendedQuantity, moq); lifted != plan.RecommendedQuantity {
			plan.Notes = append(plan.Notes, fmt.Sprintf("order lifted from %d to %d units to meet supplier terms", plan.RecommendedQuantity, lifted))
			plan.RecommendedQuantity = lifted
		}
	}
}

// attachPacking sizes the recommended order into containers when dimension
// data exists for the product.
func (s *PlanningService) attachPacking(plan *domain.ReplenishmentPlan) {
	if plan.RecommendedQuantity <= 0 {
		return
	}

	dims, ok := s.registry.Dimensions(plan.ProductID)
	if !ok {
		plan.Notes = append(plan.Notes, "no dimension data on file; container sizing skipped")
		return
	}
	moq, _ := s.registry.MOQ(plan.ProductID)

	plan.Packing = s.packer.OptimizeSingle(packer.SingleInput{
		ProductID:    plan.ProductID,
		DesiredUnits: plan.RecommendedQuantity,
		Dims:         dims,
		MOQ:          moq,
	})
}

// latestStockLevel returns the most recent observed stock level in the
// window, zero when the product has no stock series.
func (s *PlanningService) latestStockLevel(ctx context.Context, productID string, from, to time.Time) (float64, error) {
	points, err := s.history.StockHistory(ctx, productID, from, to)
	if err != nil || len(points) == 0 {
		return 0, err
	}

	return points[len(points)-1].Quantity, nil
}

// windowStats aggregates sales into per-day totals across the whole window.
// Days with no invoices are zero-sales days; the bookkeeping export only
// emits rows for days something sold.
func windowStats(productID string, sales []domain.SalePoint, from, to time.Time) domain.DemandStats {
	days := int(to.Sub(from)/(24*time.Hour)) + 1
	if days < 1 {
		days = 1
	}

	perDay := make(map[int64]float64)
	var total float64
	for _, s := range sales {
		d := day(s.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		perDay[d.Unix()] += s.Quantity
		total += s.Quantity
	}

	mean := total / float64(days)
	var variance float64
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		diff := perDay[d.Unix()] - mean
		variance += diff * diff
	}
	variance /= float64(days)

	return domain.DemandStats{
		ProductID:     productID,
		From:          from,
		To:            to,
		Days:          days,
		TotalQuantity: total,
		AvgDaily:      mean,
		StdDev:        math.Sqrt(variance),
	}
}

// day truncates a timestamp to its UTC calendar date.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
