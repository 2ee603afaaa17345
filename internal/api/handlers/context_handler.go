// internal/api/handlers/context_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/service"
)

// ContextHandler exposes the demand-context ledger: one record endpoint
// per entry kind plus the adjustment and summary queries.
type ContextHandler struct {
	ledger *service.LedgerService
}

func NewContextHandler(ledger *service.LedgerService) *ContextHandler {
	return &ContextHandler{ledger: ledger}
}

// respondError maps failures to HTTP statuses: validation problems are the
// client's fault, everything else is ours.
func respondError(c *gin.Context, err error, action string) {
	if errors.Is(err, ledger.ErrInvalidRequest) || errors.Is(err, service.ErrInvalidInput) || errors.Is(err, registry.ErrInvalidRecord) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": action, "details": err.Error()})
}

func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}

	return true
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter. It responds
// with a 400 and returns false when the value is present but malformed.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return nil, true
	}

	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
		return nil, false
	}

	return &parsed, true
}

func (h *ContextHandler) RecordSubstitution(c *gin.Context) {
	var req domain.RecordSubstitutionRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordSubstitution(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record substitution")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ContextHandler) RecordOneTimeOrder(c *gin.Context) {
	var req domain.RecordOneTimeOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordOneTimeOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record one-time order")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ContextHandler) RecordPromotion(c *gin.Context) {
	var req domain.RecordPromotionRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordPromotion(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record promotion")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ContextHandler) RecordSupplyDisruption(c *gin.Context) {
	var req domain.RecordSupplyDisruptionRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordSupplyDisruption(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record supply disruption")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ContextHandler) RecordNote(c *gin.Context) {
	var req domain.RecordProductNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordProductNote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record note")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ContextHandler) RecordRecurringOrder(c *gin.Context) {
	var req domain.RecordRecurringOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordRecurringOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record recurring order")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ContextHandler) RecordSubstituteRelationship(c *gin.Context) {
	var req domain.RecordSubstituteRelationshipRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.ledger.RecordSubstituteRelationship(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record substitute relationship")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetAdjustments nets a product's active demand corrections, optionally
// narrowed to ?from and ?to.
func (h *ContextHandler) GetAdjustments(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("product_id"))
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	report, err := h.ledger.Adjustments(c.Request.Context(), domain.AdjustmentQuery{
		ProductID: productID,
		From:      from,
		To:        to,
	})
	if err != nil {
		respondError(c, err, "failed to query adjustments")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ContextHandler) GetSummary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		respondError(c, err, "failed to build summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ContextHandler) GetEntries(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	entries, err := h.ledger.Entries(c.Request.Context(), c.Param("product_id"), includeInactive)
	if err != nil {
		respondError(c, err, "failed to list entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

func (h *ContextHandler) GetEntry(c *gin.Context) {
	entry, err := h.ledger.Entry(c.Request.Context(), c.Param("entry_id"))
	if err != nil {
		respondError(c, err, "failed to load entry")
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeactivateEntry soft-deletes an entry; the record stays queryable with
// include_inactive.
func (h *ContextHandler) DeactivateEntry(c *gin.Context) {
	entryID := c.Param("entry_id")

	done, err := h.ledger.Deactivate(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, err, "failed to deactivate entry")
		return
	}
	if !done {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found or already inactive"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deactivated": true, "entry_id": entryID})
}
