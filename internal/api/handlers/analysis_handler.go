// internal/api/handlers/analysis_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/service"
)

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(service *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// AnalyzeSubstitution measures one product pair. Omitted window bounds
// default to the configured history span ending today.
func (h *AnalysisHandler) AnalyzeSubstitution(c *gin.Context) {
	var req domain.AnalysisRequest
	if !bindJSON(c, &req) {
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to analyze substitution")
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// AnalyzeKnownSubstitutes runs the analysis against every substitute the
// ledger declares for the product.
func (h *AnalysisHandler) AnalyzeKnownSubstitutes(c *gin.Context) {
	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	analyses, err := h.service.AnalyzeKnownSubstitutes(c.Request.Context(), c.Param("product_id"), from, to)
	if err != nil {
		respondError(c, err, "failed to analyze substitutes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": analyses, "total": len(analyses)})
}
