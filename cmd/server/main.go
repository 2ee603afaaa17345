// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/api"
	"github.com/mwidjaja/procura/internal/cache"
	"github.com/mwidjaja/procura/internal/calendar"
	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/inference"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/packer"
	"github.com/mwidjaja/procura/internal/planner"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/repository"
	"github.com/mwidjaja/procura/internal/repository/memory"
	"github.com/mwidjaja/procura/internal/repository/postgres"
	"github.com/mwidjaja/procura/internal/service"
	"github.com/mwidjaja/procura/internal/storage"
	"github.com/mwidjaja/procura/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Persistence falls back to in-memory stores when the database is
	// unreachable, so the service still answers with degraded durability.
	var (
		ledgerStore repository.LedgerStore
		history     repository.HistoryRepository
	)
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("database unavailable, using in-memory stores")
		ledgerStore = memory.NewLedgerStore()
		history = memory.NewHistoryStore()
	} else {
		defer db.Close()
		if err := db.EnsureSchema(context.Background()); err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		ledgerStore = postgres.NewLedgerStore(db)
		history = postgres.NewHistoryRepository(db)
	}

	analysisCache, err := cache.NewAnalysisCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("analysis cache unavailable, caching disabled")
		analysisCache = cache.NewNoopAnalysisCache()
	}
	dashboardCache, err := cache.NewDashboardCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("dashboard cache unavailable, caching disabled")
		dashboardCache = cache.NewNoopDashboardCache()
	}

	reg := registry.New()
	if cfg.App.RegistryDir != "" {
		if err := reg.LoadDir(cfg.App.RegistryDir); err != nil {
			logger.Log.Warn().Err(err).Str("dir", cfg.App.RegistryDir).Msg("failed to load reference data")
		}
	}

	cal := calendar.NewCNY()
	closuresPath := filepath.Join(cfg.App.RegistryDir, "closures.csv")
	if _, err := os.Stat(closuresPath); err == nil {
		if n, err := cal.LoadCSV(closuresPath); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to load closure calendar")
		} else {
			logger.Log.Info().Int("closures", n).Msg("closure calendar loaded")
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

	ledg := ledger.New(ledgerStore)

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
			logger.Log.Warn().Err(err).Msg("object storage unavailable, exports stay local")
		} else {
			objectStore = client
		}
	}

	analysisService := service.NewAnalysisService(cfg.Planning, history, ledg, inferEngine, analysisCache)
	planningService := service.NewPlanningService(cfg.Planning, history, ledg, analysisService, planEngine, packEngine, reg)

	services := &api.Services{
		Ledger:    service.NewLedgerService(ledg, analysisCache, dashboardCache),
		Analysis:  analysisService,
		Planning:  planningService,
		Orders:    service.NewOrderService(reg),
		Export:    service.NewExportService(cfg.App.ExportDir, objectStore),
		Dashboard: service.NewDashboardService(planningService, history, cal, dashboardCache),
		Packer:    packEngine,
		Registry:  reg,
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exited")
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
