// internal/packer/packer.go
package packer

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/pkg/logger"
)

// Config tunes container optimization. UsableVolumeFraction accounts for
// the air an imperfect stack always contains.
type Config struct {
	MinFillPercent       float64
	MaxContainers        int
	UsableVolumeFraction float64
}

// DefaultConfig returns the standard packing assumptions.
func DefaultConfig() Config {
	return Config{
		MinFillPercent:       0.5,
		MaxContainers:        5,
		UsableVolumeFraction: 0.85,
	}
}

// Packer sizes orders against supplier minimums and container space.
type Packer struct {
	cfg Config
	log zerolog.Logger
}

// New builds a packer, backfilling unset config fields with defaults.
func New(cfg Config) *Packer {
	defaults := DefaultConfig()
	if cfg.MinFillPercent <= 0 {
		cfg.MinFillPercent = defaults.MinFillPercent
	}
	if cfg.MaxContainers <= 0 {
		cfg.MaxContainers = defaults.MaxContainers
	}
	if cfg.UsableVolumeFraction <= 0 || cfg.UsableVolumeFraction > 1 {
		cfg.UsableVolumeFraction = defaults.UsableVolumeFraction
	}

	return &Packer{cfg: cfg, log: logger.Component("packer")}
}

// Capacity computes how many units of a product one container holds. Volume
// and weight are independent ceilings; the lower one is the limiting
// factor. Products without weight data are never weight-constrained and
// report UnitsByWeight as -1.
func (p *Packer) Capacity(spec domain.ContainerSpec, dims domain.ProductDimensions) domain.ContainerCapacity {
	cap := domain.ContainerCapacity{
		Container:      spec,
		UsableVolumeM3: spec.VolumeM3 * p.cfg.UsableVolumeFraction,
		UnitsByWeight:  -1,
		LimitingFactor: domain.LimitedByVolume,
	}

	unitVol := dims.PerUnitVolumeM3()
	if unitVol <= 0 {
		return cap
	}
	cap.UnitsByVolume = int(math.Floor(cap.UsableVolumeM3 / unitVol))
	cap.Units = cap.UnitsByVolume

	if unitWt := dims.PerUnitWeightKG(); unitWt > 0 && spec.MaxWeightKG > 0 {
		cap.UnitsByWeight = int(math.Floor(spec.MaxWeightKG / unitWt))
		if cap.UnitsByWeight < cap.UnitsByVolume {
			cap.Units = cap.UnitsByWeight
			cap.LimitingFactor = domain.LimitedByWeight
		}
	}

	return cap
}

// ApplyMOQ lifts a desired quantity onto the supplier's terms: at least the
// unit-normalized minimum, then rounded up to the order multiple. Zero or
// negative desire stays zero; not ordering is always allowed.
func (p *Packer) ApplyMOQ(desired int, moq domain.MOQConfig) int {
	if desired <= 0 {
		return 0
	}

	qty := desired
	if base := moq.BaseUnits(); qty < base {
		qty = base
	}
	if moq.OrderMultiple > 1 {
		if rem := qty % moq.OrderMultiple; rem != 0 {
			qty += moq.OrderMultiple - rem
		}
	}

	return qty
}

// roundDownToMultiple floors qty to the order multiple, 0 when the floor
// falls below the normalized minimum.
func roundDownToMultiple(qty int, moq domain.MOQConfig) int {
	if moq.OrderMultiple > 1 {
		qty -= qty % moq.OrderMultiple
	}
	if qty < moq.BaseUnits() {
		return 0
	}

	return qty
}
