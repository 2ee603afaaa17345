// internal/api/handlers/planning_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/service"
)

type PlanningHandler struct {
	planning *service.PlanningService
	orders   *service.OrderService
	export   *service.ExportService
}

func NewPlanningHandler(planning *service.PlanningService, orders *service.OrderService, export *service.ExportService) *PlanningHandler {
	return &PlanningHandler{planning: planning, orders: orders, export: export}
}

// Plan builds the replenishment plan for a single product.
func (h *PlanningHandler) Plan(c *gin.Context) {
	var req domain.PlanRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.planning.Plan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to build plan")
		return
	}

	c.JSON(http.StatusOK, plan)
}

type batchPlanRequest struct {
	ProductIDs       []string   `json:"product_ids,omitempty"`
	ReferenceDate    *time.Time `json:"reference_date,omitempty"`
	IncludeInference bool       `json:"include_inference,omitempty"`
	IncludePacking   bool       `json:"include_packing,omitempty"`
	Export           bool       `json:"export,omitempty"`
}

type batchPlanResponse struct {
	*domain.BatchPlanResult
	ExportPath  string `json:"export_path,omitempty"`
	ExportError string `json:"export_error,omitempty"`
}

// PlanBatch plans the listed products, or the whole catalog when none are
// named. With export=true the result is also written as CSV; an export
// failure is reported alongside the plans, not instead of them.
func (h *PlanningHandler) PlanBatch(c *gin.Context) {
	var req batchPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	reqs, err := h.planRequests(ctx, req)
	if err != nil {
		respondError(c, err, "failed to enumerate products")
		return
	}

	response := batchPlanResponse{BatchPlanResult: h.planning.PlanBatch(ctx, reqs)}
	if req.Export && h.export != nil {
		if path, err := h.export.ExportPlans(ctx, response.BatchPlanResult); err != nil {
			response.ExportError = err.Error()
		} else {
			response.ExportPath = path
		}
	}

	c.JSON(http.StatusOK, response)
}

// BuildOrders plans like PlanBatch and folds the plans into per-supplier
// purchase order drafts.
func (h *PlanningHandler) BuildOrders(c *gin.Context) {
	var req batchPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	reqs, err := h.planRequests(ctx, req)
	if err != nil {
		respondError(c, err, "failed to enumerate products")
		return
	}

	result := h.planning.PlanBatch(ctx, reqs)
	drafts := h.orders.BuildDrafts(result.Plans)

	c.JSON(http.StatusOK, gin.H{
		"drafts":   drafts,
		"total":    len(drafts),
		"failures": result.Failures,
	})
}

func (h *PlanningHandler) planRequests(ctx context.Context, req batchPlanRequest) ([]domain.PlanRequest, error) {
	ref := time.Now().UTC()
	if req.ReferenceDate != nil {
		ref = *req.ReferenceDate
	}

	if len(req.ProductIDs) == 0 {
		return h.planning.CatalogRequests(ctx, ref, req.IncludeInference, req.IncludePacking)
	}

	date := ref
	reqs := make([]domain.PlanRequest, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		reqs = append(reqs, domain.PlanRequest{
			ProductID:        id,
			ReferenceDate:    &date,
			IncludeInference: req.IncludeInference,
			IncludePacking:   req.IncludePacking,
		})
	}

	return reqs, nil
}
