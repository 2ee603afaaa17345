// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/api/handlers"
	"github.com/mwidjaja/procura/internal/api/middleware"
	"github.com/mwidjaja/procura/internal/packer"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/service"
)

// Services bundles everything the router can expose. Nil entries disable
// their route group, so a stripped-down deployment mounts a subset.
type Services struct {
	Ledger    *service.LedgerService
	Analysis  *service.AnalysisService
	Planning  *service.PlanningService
	Orders    *service.OrderService
	Export    *service.ExportService
	Dashboard *service.DashboardService
	Packer    *packer.Packer
	Registry  *registry.Registry
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Ledger != nil {
			contextHandler := handlers.NewContextHandler(services.Ledger)
			contextGroup := apiGroup.Group("/context")
			{
				contextGroup.POST("/substitution", contextHandler.RecordSubstitution)
				contextGroup.POST("/one_time_order", contextHandler.RecordOneTimeOrder)
				contextGroup.POST("/promotion", contextHandler.RecordPromotion)
				contextGroup.POST("/supply_disruption", contextHandler.RecordSupplyDisruption)
				contextGroup.POST("/note", contextHandler.RecordNote)
				contextGroup.POST("/recurring_order", contextHandler.RecordRecurringOrder)
				contextGroup.POST("/substitute_relationship", contextHandler.RecordSubstituteRelationship)
				contextGroup.GET("/adjustments", contextHandler.GetAdjustments)
				contextGroup.GET("/summary/:product_id", contextHandler.GetSummary)
				contextGroup.GET("/products/:product_id/entries", contextHandler.GetEntries)
				contextGroup.GET("/entries/:entry_id", contextHandler.GetEntry)
				contextGroup.DELETE("/entries/:entry_id", contextHandler.DeactivateEntry)
			}
		}

		if services.Analysis != nil {
			analysisHandler := handlers.NewAnalysisHandler(services.Analysis)
			analysisGroup := apiGroup.Group("/analysis")
			{
				analysisGroup.POST("/substitution", analysisHandler.AnalyzeSubstitution)
				analysisGroup.GET("/substitutes/:product_id", analysisHandler.AnalyzeKnownSubstitutes)
			}
		}

		if services.Planning != nil {
			planningHandler := handlers.NewPlanningHandler(services.Planning, services.Orders, services.Export)
			planningGroup := apiGroup.Group("/planning")
			{
				planningGroup.POST("/plan", planningHandler.Plan)
				planningGroup.POST("/batch", planningHandler.PlanBatch)
				if services.Orders != nil {
					planningGroup.POST("/orders", planningHandler.BuildOrders)
				}
			}
		}

		if services.Packer != nil && services.Registry != nil {
			packingHandler := handlers.NewPackingHandler(services.Packer, services.Registry)
			packingGroup := apiGroup.Group("/packing")
			{
				packingGroup.POST("/single", packingHandler.PackSingle)
				packingGroup.POST("/multi", packingHandler.PackMulti)
			}
		}

		if services.Dashboard != nil {
			dashboardHandler := handlers.NewDashboardHandler(services.Dashboard)
			apiGroup.GET("/dashboard/summary", dashboardHandler.GetSummary)
		}

		if services.Registry != nil {
			registryHandler := handlers.NewRegistryHandler(services.Registry)
			registryGroup := apiGroup.Group("/registry")
			{
				registryGroup.GET("/products", registryHandler.GetProducts)
				registryGroup.GET("/products/:product_id", registryHandler.GetProduct)
				registryGroup.POST("/moq", registryHandler.SetMOQ)
				registryGroup.POST("/dimensions", registryHandler.SetDimensions)
				registryGroup.POST("/supplier", registryHandler.SetSupplier)
				registryGroup.POST("/channel_reserve", registryHandler.SetChannelReserve)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
