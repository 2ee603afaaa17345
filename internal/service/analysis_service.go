// internal/service/analysis_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mwidjaja/procura/internal/cache"
	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/inference"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/repository"
)

// AnalysisService runs the substitution inference engine over stored
// history. Results are cached per resolved window; ledger writes that touch
// a product drop its cached analyses.
type AnalysisService struct {
	cfg     config.PlanningConfig
	history repository.HistoryRepository
	ledger  *ledger.Ledger
	engine  *inference.Engine
	cache   cache.AnalysisCache
}

func NewAnalysisService(
	cfg config.PlanningConfig,
	history repository.HistoryRepository,
	ledg *ledger.Ledger,
	engine *inference.Engine,
	cacheImpl cache.AnalysisCache,
) *AnalysisService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAnalysisCache()
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}

	return &AnalysisService{
		cfg:     cfg,
		history: history,
		ledger:  ledg,
		engine:  engine,
		cache:   cacheImpl,
	}
}

// Analyze answers whether stockouts of the primary product pushed sales to
// the substitute. Open window bounds resolve to the configured history
// span ending today, and the cache is keyed on the resolved dates so a
// default-window result never outlives its day.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.SubstitutionAnalysis, error) {
	if req.PrimaryProductID == "" || req.SubstituteProductID == "" {
		return nil, fmt.Errorf("%w: both product ids are required", ErrInvalidInput)
	}
	if req.PrimaryProductID == req.SubstituteProductID {
		return nil, fmt.Errorf("%w: a product cannot substitute itself", ErrInvalidInput)
	}

	to := day(time.Now().UTC())
	if req.To != nil {
		to = day(*req.To)
	}
	from := to.AddDate(0, 0, -(s.cfg.HistoryDays - 1))
	if req.From != nil {
		from = day(*req.From)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: window end precedes start", ErrInvalidInput)
	}

	resolved := domain.AnalysisRequest{
		PrimaryProductID:    req.PrimaryProductID,
		SubstituteProductID: req.SubstituteProductID,
		From:                &from,
		To:                  &to,
	}
	if analysis, ok, err := s.cache.Get(ctx, resolved); err == nil && ok {
		return analysis, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analysis: cache get failed")
	}

	stock, err := s.history.StockHistory(ctx, req.PrimaryProductID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock history for %s: %w", req.PrimaryProductID, err)
	}
	primarySales, err := s.history.SalesHistory(ctx, req.PrimaryProductID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history for %s: %w", req.PrimaryProductID, err)
	}
	substituteSales, err := s.history.SalesHistory(ctx, req.SubstituteProductID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history for %s: %w", req.SubstituteProductID, err)
	}

	analysis := s.engine.AnalyzeSubstitution(inference.Input{
		PrimaryProductID:    req.PrimaryProductID,
		SubstituteProductID: req.SubstituteProductID,
		PrimaryStock:        stock,
		PrimarySales:        primarySales,
		SubstituteSales:     substituteSales,
		From:                from,
		To:                  to,
	})

	if err := s.cache.Set(ctx, resolved, analysis); err != nil {
		log.Warn().Err(err).Msg("analysis: cache set failed")
	}

	return analysis, nil
}

// AnalyzeKnownSubstitutes runs the analysis against every substitute the
// ledger declares for the product, in declaration order. Nil window bounds
// resolve the same way Analyze resolves them.
func (s *AnalysisService) AnalyzeKnownSubstitutes(ctx context.Context, productID string, from, to *time.Time) ([]*domain.SubstitutionAnalysis, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}

	pairs, err := s.ledger.SubstitutePairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load substitute pairs: %w", err)
	}

	var analyses []*domain.SubstitutionAnalysis
	for _, pair := range pairs {
		if pair[0] != productID {
			continue
		}
		analysis, err := s.Analyze(ctx, domain.AnalysisRequest{
			PrimaryProductID:    pair[0],
			SubstituteProductID: pair[1],
			From:                from,
			To:                  to,
		})
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}

	return analyses, nil
}
