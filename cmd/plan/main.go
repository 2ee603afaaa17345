// cmd/plan/main.go
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwidjaja/procura/internal/cache"
	"github.com/mwidjaja/procura/internal/calendar"
	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/inference"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/packer"
	"github.com/mwidjaja/procura/internal/planner"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/repository/postgres"
	"github.com/mwidjaja/procura/internal/service"
	"github.com/mwidjaja/procura/internal/storage"
	"github.com/mwidjaja/procura/pkg/logger"
)

// Batch planning from the command line: plan a product list (or the whole
// catalog) as of a reference date and optionally write the CSV export the
// purchasing team works from.
func main() {
	products := flag.String("products", "", "Comma-separated product ids (default: every product with history)")
	dateStr := flag.String("date", time.Now().UTC().Format("2006-01-02"), "Reference date in YYYY-MM-DD format")
	withInference := flag.Bool("inference", true, "Include substitution-inferred lost sales")
	withPacking := flag.Bool("packing", true, "Attach container packing to each plan")
	export := flag.Bool("export", false, "Write the batch to a CSV export")
	flag.Parse()

	cfg := config.Load()

	ref, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		logger.Log.Fatal().Str("date", *dateStr).Msg("date must be YYYY-MM-DD")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	history := postgres.NewHistoryRepository(db)
	ledg := ledger.New(postgres.NewLedgerStore(db))

	reg := registry.New()
	if err := reg.LoadDir(cfg.App.RegistryDir); err != nil {
		logger.Log.Warn().Err(err).Str("dir", cfg.App.RegistryDir).Msg("failed to load reference data")
	}

	cal := calendar.NewCNY()
	closuresPath := filepath.Join(cfg.App.RegistryDir, "closures.csv")
	if _, err := os.Stat(closuresPath); err == nil {
		if _, err := cal.LoadCSV(closuresPath); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to load closure calendar")
		}
	}

	planEngine := planner.New(plannerConfig(cfg.Planning), cal)
	inferEngine := inference.New(inference.Config{
		MinStockoutDays:       cfg.Planning.MinStockoutDays,
		SalesGapFactor:        cfg.Planning.SalesGapFactor,
		SubstitutionThreshold: cfg.Planning.SubstitutionThreshold,
	})
	packEngine := packer.New(packer.Config{
		MinFillPercent:       cfg.Planning.MinFillPercent,
		MaxContainers:        cfg.Planning.MaxContainers,
		UsableVolumeFraction: cfg.Planning.UsableVolumeFraction,
	})

	analysisService := service.NewAnalysisService(cfg.Planning, history, ledg, inferEngine, cache.NewNoopAnalysisCache())
	planningService := service.NewPlanningService(cfg.Planning, history, ledg, analysisService, planEngine, packEngine, reg)

	ctx := context.Background()

	var reqs []domain.PlanRequest
	if *products == "" {
		reqs, err = planningService.CatalogRequests(ctx, ref, *withInference, *withPacking)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to list catalog products")
		}
	} else {
		for _, id := range strings.Split(*products, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			date := ref
			reqs = append(reqs, domain.PlanRequest{
				ProductID:        id,
				ReferenceDate:    &date,
				IncludeInference: *withInference,
				IncludePacking:   *withPacking,
			})
		}
	}
	if len(reqs) == 0 {
		logger.Log.Fatal().Msg("nothing to plan")
	}

	start := time.Now()
	result := planningService.PlanBatch(ctx, reqs)
	logger.Log.Info().
		Int("planned", len(result.Plans)).
		Int("failed", len(result.Failures)).
		Dur("took", time.Since(start)).
		Msg("batch planning finished")

	for _, plan := range result.Plans {
		logger.Log.Info().
			Str("product", plan.ProductID).
			Str("urgency", string(plan.Urgency)).
			Str("action", string(plan.Action)).
			Int("recommended", plan.RecommendedQuantity).
			Float64("days_of_stock", plan.DaysOfStock).
			Msg("plan")
	}
	for _, failure := range result.Failures {
		logger.Log.Error().
			Str("product", failure.ProductID).
			Str("error", failure.Error).
			Msg("planning failed")
	}

	if *export {
		var objectStore storage.ObjectStorage
		if cfg.Storage.Enabled {
			client, err := storage.NewMinioClient(storage.Config{
				Endpoint:  cfg.Storage.Endpoint,
				AccessKey: cfg.Storage.AccessKey,
				SecretKey: cfg.Storage.SecretKey,
				Bucket:    cfg.Storage.Bucket,
				Region:    cfg.Storage.Region,
				UseSSL:    cfg.Storage.UseSSL,
			})
			if err != nil {
				logger.Log.Warn().Err(err).Msg("object storage unavailable, export stays local")
			} else {
				objectStore = client
			}
		}

		exportService := service.NewExportService(cfg.App.ExportDir, objectStore)
		path, err := exportService.ExportPlans(ctx, result)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to export plans")
		}
		logger.Log.Info().Str("path", path).Msg("export written")
	}
}

func plannerConfig(p config.PlanningConfig) planner.Config {
	return planner.Config{
		ServiceLevel:            p.ServiceLevel,
		HoldingCostRate:         p.HoldingCostRate,
		OrderingCost:            p.OrderingCost,
		OrderProcessingDays:     p.OrderProcessingDays,
		CustomsClearanceDays:    p.CustomsClearanceDays,
		ReceivingDays:           p.ReceivingDays,
		BufferDays:              p.BufferDays,
		DefaultSupplierLeadDays: p.DefaultSupplierLeadDays,
		SeaFreightDays:          p.SeaFreightDays,
		RailFreightDays:         p.RailFreightDays,
		AirFreightDays:          p.AirFreightDays,
		CNYSafetyMultiplier:     p.CNYSafetyMultiplier,
	}
}
