// internal/packer/allocate.go
package packer

import (
	"math"
	"sort"

	"github.com/mwidjaja/procura/internal/domain"
)

// MultiItem pairs one product's space claim with its physical and supplier
// constraints.
type MultiItem struct {
	Item domain.AllocationItem
	Dims domain.ProductDimensions
	MOQ  domain.MOQConfig
}

// MultiInput describes a fixed fleet of identical containers and the
// products competing for its space.
type MultiInput struct {
	Container domain.ContainerSpec
	Count     int
	Items     []MultiItem
}

// AllocateMulti splits shared container space across products, highest
// priority first. Each product takes the smaller of its MOQ-normalized
// desire and what the remaining volume and weight budgets hold, stepped
// down to its order multiple. A product whose minimum no longer fits gets
// nothing; the space passes to the next one.
func (p *Packer) AllocateMulti(in MultiInput) *domain.MultiPackResult {
	count := in.Count
	if count <= 0 {
		count = 1
	}

	res := &domain.MultiPackResult{
		ContainerType:  in.Container.Type,
		ContainerCount: count,
		UsableVolumeM3: in.Container.VolumeM3 * p.cfg.UsableVolumeFraction * float64(count),
		MaxWeightKG:    in.Container.MaxWeightKG * float64(count),
		Allocations:    make([]domain.ProductAllocation, 0, len(in.Items)),
	}

	items := make([]MultiItem, len(in.Items))
	copy(items, in.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Item.Priority > items[j].Item.Priority
	})

	remVol := res.UsableVolumeM3
	remWt := res.MaxWeightKG

	for _, it := range items {
		alloc := domain.ProductAllocation{
			ProductID:    it.Item.ProductID,
			DesiredUnits: it.Item.DesiredUnits,
		}

		desired := it.Item.DesiredUnits
		vol := it.Dims.PerUnitVolumeM3()
		switch {
		case desired <= 0:
			alloc.Note = "nothing requested"
			res.NotAllocated++
		case vol <= 0:
			alloc.Note = "no dimension data"
			res.NotAllocated++
		default:
			wt := it.Dims.PerUnitWeightKG()

			limit := int(math.Floor(remVol / vol))
			if wt > 0 && res.MaxWeightKG > 0 {
				if byWt := int(math.Floor(remWt / wt)); byWt < limit {
					limit = byWt
				}
			}

			units := p.ApplyMOQ(desired, it.MOQ)
			if units > limit {
				units = roundDownToMultiple(limit, it.MOQ)
			}

			switch {
			case units <= 0 && limit <= 0:
				alloc.Note = "no remaining space"
				res.NotAllocated++
			case units <= 0:
				alloc.Note = "minimum order quantity does not fit in remaining space"
				res.NotAllocated++
			case units >= desired:
				res.FullyAllocated++
			default:
				alloc.Note = "space-limited"
				res.PartiallyAllocated++
			}

			if units > 0 {
				alloc.AllocatedUnits = units
				alloc.FulfillmentPercent = float64(units) / float64(desired) * 100
				alloc.VolumeM3 = float64(units) * vol
				alloc.WeightKG = float64(units) * wt
				remVol -= alloc.VolumeM3
				remWt -= alloc.WeightKG
				res.UsedVolumeM3 += alloc.VolumeM3
				res.UsedWeightKG += alloc.WeightKG
			}
		}

		res.Allocations = append(res.Allocations, alloc)
	}

	if res.UsableVolumeM3 > 0 {
		res.VolumeUtilization = res.UsedVolumeM3 / res.UsableVolumeM3 * 100
	}

	p.log.Debug().
		Str("container", res.ContainerType).
		Int("count", count).
		Int("products", len(items)).
		Float64("utilization", res.VolumeUtilization).
		Msg("multi-product allocation done")

	return res
}
