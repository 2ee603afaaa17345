// internal/packer/optimize.go
package packer

import (
	"fmt"
	"sort"

	"github.com/mwidjaja/procura/internal/domain"
)

// SingleInput carries everything single-product optimization needs. The
// caller resolves dimensions and MOQ terms; nil Containers means the
// standard lineup.
type SingleInput struct {
	ProductID    string
	DesiredUnits int
	Dims         domain.ProductDimensions
	MOQ          domain.MOQConfig
	Containers   []domain.ContainerSpec
}

// OptimizeSingle ranks container loading plans for one product. Candidates
// come in two flavors per container type and count: load exactly the
// MOQ-normalized desired quantity, or fill the containers to capacity.
// Every candidate honors the supplier's minimum and order multiple, so the
// winner needs no further validation.
func (p *Packer) OptimizeSingle(in SingleInput) *domain.PackResult {
	res := &domain.PackResult{
		ProductID:    in.ProductID,
		DesiredUnits: in.DesiredUnits,
		MOQUnits:     in.MOQ.BaseUnits(),
		Options:      []domain.PackOption{},
	}

	if in.DesiredUnits <= 0 {
		res.Recommendation = "nothing to pack"
		return res
	}

	unitVol := in.Dims.PerUnitVolumeM3()
	if unitVol <= 0 {
		res.Recommendation = "no dimension data; cannot size containers"
		return res
	}

	target := p.ApplyMOQ(in.DesiredUnits, in.MOQ)
	containers := in.Containers
	if len(containers) == 0 {
		containers = domain.DefaultContainers()
	}

	for _, spec := range containers {
		cap1 := p.Capacity(spec, in.Dims)
		if cap1.Units <= 0 {
			continue
		}

		exactFitted := false
		for n := 1; n <= p.cfg.MaxContainers; n++ {
			capN := cap1.Units * n
			usable := cap1.UsableVolumeM3 * float64(n)

			// Exact fit: the smallest compliant load covering the desire.
			// Once it fits at count n, larger counts only add empty space.
			if !exactFitted && target <= capN {
				exactFitted = true
				fill := float64(target) * unitVol / usable * 100
				if n == 1 || fill >= p.cfg.MinFillPercent*100 {
					res.Options = append(res.Options, domain.PackOption{
						ContainerType:  spec.Type,
						ContainerCount: n,
						Units:          target,
						FillPercent:    fill,
						CostPerUnit:    spec.CostMultiplier * float64(n) / float64(target),
						MeetsDesired:   true,
						Strategy:       domain.StrategyExactFit,
						LimitingFactor: cap1.LimitingFactor,
					})
				}
			}

			// Fill to capacity, then step back to the order multiple.
			units := roundDownToMultiple(capN, in.MOQ)
			if units <= 0 {
				continue
			}
			res.Options = append(res.Options, domain.PackOption{
				ContainerType:  spec.Type,
				ContainerCount: n,
				Units:          units,
				FillPercent:    float64(units) * unitVol / usable * 100,
				CostPerUnit:    spec.CostMultiplier * float64(n) / float64(units),
				MeetsDesired:   units >= in.DesiredUnits,
				Strategy:       domain.StrategyFillCapacity,
				LimitingFactor: cap1.LimitingFactor,
			})
		}
	}

	if len(res.Options) == 0 {
		res.Recommendation = "no container option satisfies the minimum order quantity"
		return res
	}

	sort.SliceStable(res.Options, func(i, j int) bool {
		a, b := res.Options[i], res.Options[j]
		if a.MeetsDesired != b.MeetsDesired {
			return a.MeetsDesired
		}
		if a.CostPerUnit != b.CostPerUnit {
			return a.CostPerUnit < b.CostPerUnit
		}
		if a.ContainerCount != b.ContainerCount {
			return a.ContainerCount < b.ContainerCount
		}
		return a.Units > b.Units
	})

	best := res.Options[0]
	res.Best = &best
	if best.MeetsDesired {
		res.Recommendation = fmt.Sprintf("load %d x %s with %d units (%.0f%% full)",
			best.ContainerCount, best.ContainerType, best.Units, best.FillPercent)
	} else {
		res.Recommendation = fmt.Sprintf("best load covers %d of %d units; increase container count",
			best.Units, in.DesiredUnits)
	}

	p.log.Debug().
		Str("product_id", in.ProductID).
		Int("desired", in.DesiredUnits).
		Int("options", len(res.Options)).
		Str("best", best.ContainerType).
		Msg("single-product optimization done")

	return res
}
