// internal/api/handlers/registry_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/registry"
)

// RegistryHandler maintains the supplier-terms registries: MOQ, dimensions,
// sourcing profiles and channel reserves.
type RegistryHandler struct {
	registry *registry.Registry
}

func NewRegistryHandler(reg *registry.Registry) *RegistryHandler {
	return &RegistryHandler{registry: reg}
}

func (h *RegistryHandler) GetProducts(c *gin.Context) {
	ids := h.registry.ProductIDs()
	c.JSON(http.StatusOK, gin.H{"products": ids, "total": len(ids)})
}

// GetProduct returns every registry record held for one product.
func (h *RegistryHandler) GetProduct(c *gin.Context) {
	productID := c.Param("product_id")
	response := gin.H{"product_id": productID}
	found := false

	if moq, ok := h.registry.MOQ(productID); ok {
		response["moq"] = moq
		found = true
	}
	if dims, ok := h.registry.Dimensions(productID); ok {
		response["dimensions"] = dims
		found = true
	}
	if sup, ok := h.registry.Supplier(productID); ok {
		response["supplier"] = sup
		found = true
	}
	if units, ok := h.registry.ChannelReserve(productID); ok {
		response["channel_reserve"] = units
		found = true
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no registry records for product"})
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *RegistryHandler) SetMOQ(c *gin.Context) {
	var cfg domain.MOQConfig
	if !bindJSON(c, &cfg) {
		return
	}

	if err := h.registry.SetMOQ(cfg); err != nil {
		respondError(c, err, "failed to store moq")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": true, "product_id": cfg.ProductID})
}

func (h *RegistryHandler) SetDimensions(c *gin.Context) {
	var dims domain.ProductDimensions
	if !bindJSON(c, &dims) {
		return
	}

	if err := h.registry.SetDimensions(dims); err != nil {
		respondError(c, err, "failed to store dimensions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": true, "product_id": dims.ProductID})
}

func (h *RegistryHandler) SetSupplier(c *gin.Context) {
	var profile domain.SupplierProfile
	if !bindJSON(c, &profile) {
		return
	}

	if err := h.registry.SetSupplier(profile); err != nil {
		respondError(c, err, "failed to store supplier profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": true, "product_id": profile.ProductID})
}

type channelReserveRequest struct {
	ProductID string  `json:"product_id"`
	Units     float64 `json:"units"`
}

func (h *RegistryHandler) SetChannelReserve(c *gin.Context) {
	var req channelReserveRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.registry.SetChannelReserve(req.ProductID, req.Units); err != nil {
		respondError(c, err, "failed to store channel reserve")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": true, "product_id": req.ProductID})
}
