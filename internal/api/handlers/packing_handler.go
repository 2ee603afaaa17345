// internal/api/handlers/packing_handler.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/packer"
	"github.com/mwidjaja/procura/internal/registry"
)

// PackingHandler answers container sizing questions. Product dimensions and
// MOQ terms come from the registry unless the request inlines its own.
type PackingHandler struct {
	packer   *packer.Packer
	registry *registry.Registry
}

func NewPackingHandler(pk *packer.Packer, reg *registry.Registry) *PackingHandler {
	return &PackingHandler{packer: pk, registry: reg}
}

type singlePackRequest struct {
	ProductID    string                    `json:"product_id"`
	DesiredUnits int                       `json:"desired_units"`
	Dimensions   *domain.ProductDimensions `json:"dimensions,omitempty"`
	MOQ          *domain.MOQConfig         `json:"moq,omitempty"`
	Containers   []domain.ContainerSpec    `json:"containers,omitempty"`
}

func (h *PackingHandler) PackSingle(c *gin.Context) {
	var req singlePackRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}

	in := packer.SingleInput{
		ProductID:    req.ProductID,
		DesiredUnits: req.DesiredUnits,
		Containers:   req.Containers,
	}
	if req.Dimensions != nil {
		in.Dims = *req.Dimensions
	} else if dims, ok := h.registry.Dimensions(req.ProductID); ok {
		in.Dims = dims
	}
	if req.MOQ != nil {
		in.MOQ = *req.MOQ
	} else if moq, ok := h.registry.MOQ(req.ProductID); ok {
		in.MOQ = moq
	}

	c.JSON(http.StatusOK, h.packer.OptimizeSingle(in))
}

type multiPackRequest struct {
	ContainerType string                  `json:"container_type,omitempty"`
	Container     *domain.ContainerSpec   `json:"container,omitempty"`
	Count         int                     `json:"count"`
	Items         []domain.AllocationItem `json:"items"`
}

func (h *PackingHandler) PackMulti(c *gin.Context) {
	var req multiPackRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one item is required"})
		return
	}

	spec, ok := resolveContainer(req)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown container type %q", req.ContainerType)})
		return
	}

	in := packer.MultiInput{Container: spec, Count: req.Count}
	for _, item := range req.Items {
		entry := packer.MultiItem{Item: item}
		if dims, ok := h.registry.Dimensions(item.ProductID); ok {
			entry.Dims = dims
		}
		if moq, ok := h.registry.MOQ(item.ProductID); ok {
			entry.MOQ = moq
		}
		in.Items = append(in.Items, entry)
	}

	c.JSON(http.StatusOK, h.packer.AllocateMulti(in))
}

// resolveContainer picks the container spec: an inline spec wins, otherwise
// the named standard type, defaulting to a 40ft box.
func resolveContainer(req multiPackRequest) (domain.ContainerSpec, bool) {
	if req.Container != nil {
		return *req.Container, true
	}

	name := req.ContainerType
	if name == "" {
		name = "40ft"
	}
	for _, spec := range domain.DefaultContainers() {
		if spec.Type == name {
			return spec, true
		}
	}

	return domain.ContainerSpec{}, false
}
