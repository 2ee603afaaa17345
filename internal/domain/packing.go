// internal/domain/packing.go
package domain

// MOQUnit is the unit a supplier quotes its minimum order quantity in.
type MOQUnit string

const (
	MOQUnits   MOQUnit = "units"
	MOQCartons MOQUnit = "cartons"
	MOQPallets MOQUnit = "pallets"
)

// MOQConfig is a supplier's order-quantity constraint for one product.
type MOQConfig struct {
	ProductID        string  `json:"product_id" db:"product_id"`
	MOQ              int     `json:"moq" db:"moq"`
	Unit             MOQUnit `json:"unit" db:"unit"`
	UnitsPerCarton   int     `json:"units_per_carton" db:"units_per_carton"`
	CartonsPerPallet int     `json:"cartons_per_pallet" db:"cartons_per_pallet"`
	OrderMultiple    int     `json:"order_multiple" db:"order_multiple"`
}

// BaseUnits normalizes the MOQ to sellable units regardless of the unit it
// was quoted in. Unknown carton or pallet factors count as 1.
func (m MOQConfig) BaseUnits() int {
	perCarton := m.UnitsPerCarton
	if perCarton <= 0 {
		perCarton = 1
	}
	perPallet := m.CartonsPerPallet
	if perPallet <= 0 {
		perPallet = 1
	}

	switch m.Unit {
	case MOQCartons:
		return m.MOQ * perCarton
	case MOQPallets:
		return m.MOQ * perPallet * perCarton
	default:
		return m.MOQ
	}
}

// ProductDimensions holds the physical measurements container math needs.
// Carton measurements are optional; when present they win over per-unit
// numbers because goods ship cartonized.
type ProductDimensions struct {
	ProductID      string  `json:"product_id" db:"product_id"`
	UnitLengthCM   float64 `json:"unit_length_cm" db:"unit_length_cm"`
	UnitWidthCM    float64 `json:"unit_width_cm" db:"unit_width_cm"`
	UnitHeightCM   float64 `json:"unit_height_cm" db:"unit_height_cm"`
	UnitWeightKG   float64 `json:"unit_weight_kg" db:"unit_weight_kg"`
	CartonLengthCM float64 `json:"carton_length_cm" db:"carton_length_cm"`
	CartonWidthCM  float64 `json:"carton_width_cm" db:"carton_width_cm"`
	CartonHeightCM float64 `json:"carton_height_cm" db:"carton_height_cm"`
	CartonWeightKG float64 `json:"carton_weight_kg" db:"carton_weight_kg"`
	UnitsPerCarton int     `json:"units_per_carton" db:"units_per_carton"`
}

const cmCubedPerM3 = 1_000_000.0

// UnitVolumeM3 is the volume of a single sellable unit.
func (d ProductDimensions) UnitVolumeM3() float64 {
	return d.UnitLengthCM * d.UnitWidthCM * d.UnitHeightCM / cmCubedPerM3
}

// CartonVolumeM3 is the volume of one shipping carton, 0 if unmeasured.
func (d ProductDimensions) CartonVolumeM3() float64 {
	return d.CartonLengthCM * d.CartonWidthCM * d.CartonHeightCM / cmCubedPerM3
}

// HasCartonData reports whether carton measurements are usable.
func (d ProductDimensions) HasCartonData() bool {
	return d.UnitsPerCarton > 0 && d.CartonVolumeM3() > 0
}

// PerUnitVolumeM3 is the effective volume one unit occupies in a container,
// derived from carton measurements when available.
func (d ProductDimensions) PerUnitVolumeM3() float64 {
	if d.HasCartonData() {
		return d.CartonVolumeM3() / float64(d.UnitsPerCarton)
	}

	return d.UnitVolumeM3()
}

// PerUnitWeightKG is the effective shipping weight of one unit.
func (d ProductDimensions) PerUnitWeightKG() float64 {
	if d.UnitsPerCarton > 0 && d.CartonWeightKG > 0 {
		return d.CartonWeightKG / float64(d.UnitsPerCarton)
	}

	return d.UnitWeightKG
}

// ContainerSpec describes one container type. CostMultiplier is relative to
// a 20ft box and only used for ranking, not for money.
type ContainerSpec struct {
	Type           string  `json:"type"`
	VolumeM3       float64 `json:"volume_m3"`
	MaxWeightKG    float64 `json:"max_weight_kg"`
	CostMultiplier float64 `json:"cost_multiplier"`
}

// DefaultContainers returns the standard dry-container lineup used when the
// caller does not supply its own specs.
func DefaultContainers() []ContainerSpec {
	return []ContainerSpec{
		{Type: "20ft", VolumeM3: 33.2, MaxWeightKG: 28200, CostMultiplier: 1.0},
		{Type: "40ft", VolumeM3: 67.7, MaxWeightKG: 26500, CostMultiplier: 1.6},
		{Type: "40ft_hc", VolumeM3: 76.4, MaxWeightKG: 26500, CostMultiplier: 1.8},
	}
}

// Limiting factors for container capacity.
const (
	LimitedByVolume = "volume"
	LimitedByWeight = "weight"
)

// ContainerCapacity is how many units of one product fit in one container.
// UnitsByWeight is -1 when the product has no weight data, meaning weight
// never constrains the load.
type ContainerCapacity struct {
	Container      ContainerSpec `json:"container"`
	UsableVolumeM3 float64       `json:"usable_volume_m3"`
	UnitsByVolume  int           `json:"units_by_volume"`
	UnitsByWeight  int           `json:"units_by_weight"`
	Units          int           `json:"units"`
	LimitingFactor string        `json:"limiting_factor"`
}

// Packing strategies for single-product optimization.
const (
	StrategyExactFit     = "exact_fit"
	StrategyFillCapacity = "fill_capacity"
)

// PackOption is one candidate loading plan for a single product.
type PackOption struct {
	ContainerType  string  `json:"container_type"`
	ContainerCount int     `json:"container_count"`
	Units          int     `json:"units"`
	FillPercent    float64 `json:"fill_percent"`
	CostPerUnit    float64 `json:"cost_per_unit"`
	MeetsDesired   bool    `json:"meets_desired"`
	Strategy       string  `json:"strategy"`
	LimitingFactor string  `json:"limiting_factor"`
}

// PackRequest asks for the best container plan for one product.
type PackRequest struct {
	ProductID    string `json:"product_id"`
	DesiredUnits int    `json:"desired_units"`
}

// PackResult is the ranked outcome of single-product optimization.
type PackResult struct {
	ProductID      string       `json:"product_id"`
	DesiredUnits   int          `json:"desired_units"`
	MOQUnits       int          `json:"moq_units"`
	Best           *PackOption  `json:"best,omitempty"`
	Options        []PackOption `json:"options"`
	Recommendation string       `json:"recommendation"`
}

// AllocationItem is one product's claim on shared container space.
type AllocationItem struct {
	ProductID    string `json:"product_id"`
	DesiredUnits int    `json:"desired_units"`
	Priority     int    `json:"priority"`
}

// MultiPackRequest asks for an allocation of several products across a fixed
// fleet of identical containers.
type MultiPackRequest struct {
	ContainerType  string           `json:"container_type"`
	ContainerCount int              `json:"container_count"`
	Items          []AllocationItem `json:"items"`
}

// ProductAllocation is one product's share of a multi-product load.
type ProductAllocation struct {
	ProductID          string  `json:"product_id"`
	DesiredUnits       int     `json:"desired_units"`
	AllocatedUnits     int     `json:"allocated_units"`
	FulfillmentPercent float64 `json:"fulfillment_percent"`
	VolumeM3           float64 `json:"volume_m3"`
	WeightKG           float64 `json:"weight_kg"`
	Note               string  `json:"note,omitempty"`
}

// MultiPackResult is the outcome of a multi-product allocation.
type MultiPackResult struct {
	ContainerType      string              `json:"container_type"`
	ContainerCount     int                 `json:"container_count"`
	UsableVolumeM3     float64             `json:"usable_volume_m3"`
	MaxWeightKG        float64             `json:"max_weight_kg"`
	UsedVolumeM3       float64             `json:"used_volume_m3"`
	UsedWeightKG       float64             `json:"used_weight_kg"`
	VolumeUtilization  float64             `json:"volume_utilization"`
	Allocations        []ProductAllocation `json:"allocations"`
	FullyAllocated     int                 `json:"fully_allocated"`
	PartiallyAllocated int                 `json:"partially_allocated"`
	NotAllocated       int                 `json:"not_allocated"`
}
