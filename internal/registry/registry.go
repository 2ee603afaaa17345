// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/pkg/logger"
)

// ErrInvalidRecord marks reference data that fails validation.
var ErrInvalidRecord = errors.New("invalid registry record")

// Registry holds the slow-moving reference data planning reads on every
// request: supplier order terms, product measurements, sourcing profiles
// and per-channel stock reserves. Everything is keyed by product ID.
type Registry struct {
	mu        sync.RWMutex
	moqs      map[string]domain.MOQConfig
	dims      map[string]domain.ProductDimensions
	suppliers map[string]domain.SupplierProfile
	reserves  map[string]float64
	log       zerolog.Logger
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		moqs:      make(map[string]domain.MOQConfig),
		dims:      make(map[string]domain.ProductDimensions),
		suppliers: make(map[string]domain.SupplierProfile),
		reserves:  make(map[string]float64),
		log:       logger.Component("registry"),
	}
}

// SetMOQ stores a supplier's order-quantity terms for a product.
func (r *Registry) SetMOQ(cfg domain.MOQConfig) error {
	if cfg.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidRecord)
	}
	if cfg.MOQ < 0 || cfg.OrderMultiple < 0 {
		return fmt.Errorf("%w: negative quantity terms for %s", ErrInvalidRecord, cfg.ProductID)
	}
	switch cfg.Unit {
	case "", domain.MOQUnits, domain.MOQCartons, domain.MOQPallets:
	default:
		return fmt.Errorf("%w: unknown moq unit %q", ErrInvalidRecord, cfg.Unit)
	}
	if cfg.Unit == "" {
		cfg.Unit = domain.MOQUnits
	}

	r.mu.Lock()
	r.moqs[cfg.ProductID] = cfg
	r.mu.Unlock()
	return nil
}

// MOQ returns a product's order terms. The zero config is a valid "no
// constraints" answer, so the bool tells callers whether terms exist.
func (r *Registry) MOQ(productID string) (domain.MOQConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.moqs[productID]
	return cfg, ok
}

// SetDimensions stores a product's physical measurements.
func (r *Registry) SetDimensions(dims domain.ProductDimensions) error {
	if dims.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidRecord)
	}
	if dims.PerUnitVolumeM3() <= 0 {
		return fmt.Errorf("%w: no usable volume for %s", ErrInvalidRecord, dims.ProductID)
	}

	r.mu.Lock()
	r.dims[dims.ProductID] = dims
	r.mu.Unlock()
	return nil
}

// Dimensions returns a product's measurements.
func (r *Registry) Dimensions(productID string) (domain.ProductDimensions, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dims, ok := r.dims[productID]
	return dims, ok
}

// SetSupplier stores a product's sourcing profile.
func (r *Registry) SetSupplier(profile domain.SupplierProfile) error {
	if profile.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidRecord)
	}
	if profile.LeadTimeDays < 0 || profile.UnitCost < 0 {
		return fmt.Errorf("%w: negative supplier terms for %s", ErrInvalidRecord, profile.ProductID)
	}
	switch profile.PreferredMode {
	case "", domain.ShipSea, domain.ShipRail, domain.ShipAir:
	default:
		return fmt.Errorf("%w: unknown shipping mode %q", ErrInvalidRecord, profile.PreferredMode)
	}

	r.mu.Lock()
	r.suppliers[profile.ProductID] = profile
	r.mu.Unlock()
	return nil
}

// Supplier returns a product's sourcing profile.
func (r *Registry) Supplier(productID string) (domain.SupplierProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.suppliers[productID]
	return profile, ok
}

// SetChannelReserve stores the units held back from general availability
// for a product, typically stock committed to a marketplace channel.
func (r *Registry) SetChannelReserve(productID string, units float64) error {
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidRecord)
	}
	if units < 0 {
		return fmt.Errorf("%w: negative reserve for %s", ErrInvalidRecord, productID)
	}

	r.mu.Lock()
	r.reserves[productID] = units
	r.mu.Unlock()
	return nil
}

// ChannelReserve returns a product's reserved units. The flag distinguishes
// an explicit zero reserve from a product with no reserve on file.
func (r *Registry) ChannelReserve(productID string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	units, ok := r.reserves[productID]
	return units, ok
}

// ProductIDs returns every product mentioned anywhere in the registry.
func (r *Registry) ProductIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for id := range r.moqs {
		seen[id] = struct{}{}
	}
	for id := range r.dims {
		seen[id] = struct{}{}
	}
	for id := range r.suppliers {
		seen[id] = struct{}{}
	}
	for id := range r.reserves {
		seen[id] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
