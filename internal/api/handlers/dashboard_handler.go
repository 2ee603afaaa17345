// internal/api/handlers/dashboard_handler.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/service"
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetSummary renders the replenishment dashboard. Query parameters:
// reference_date (YYYY-MM-DD), urgency (narrows the attention table only)
// and product_ids (comma separated, narrows the replan).
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	filter := &domain.DashboardFilter{
		ReferenceDate: strings.TrimSpace(c.Query("reference_date")),
		Urgency:       strings.ToLower(strings.TrimSpace(c.Query("urgency"))),
	}
	if ids := strings.TrimSpace(c.Query("product_ids")); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.ProductIDs = append(filter.ProductIDs, id)
			}
		}
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to build dashboard")
		return
	}

	c.JSON(http.StatusOK, summary)
}
