package packer

import (
	"strings"
	"testing"

	"github.com/mwidjaja/procura/internal/domain"
)

// exactCfg uses a binary-exact usable fraction so capacity assertions are
// immune to float rounding.
func exactCfg() Config {
	return Config{MinFillPercent: 0.5, MaxContainers: 5, UsableVolumeFraction: 0.75}
}

func unitDims(l, w, h, kg float64) domain.ProductDimensions {
	return domain.ProductDimensions{UnitLengthCM: l, UnitWidthCM: w, UnitHeightCM: h, UnitWeightKG: kg}
}

func TestCapacityVolumeLimited(t *testing.T) {
	p := New(DefaultConfig())
	spec := domain.ContainerSpec{Type: "40ft", VolumeM3: 67.5, MaxWeightKG: 28000}
	dims := unitDims(20, 25, 20, 0) // 0.01 m3, no weight data

	cap := p.Capacity(spec, dims)

	// 67.5 * 0.85 = 57.375 usable, 57.375 / 0.01 = 5737.5, floored.
	if cap.Units != 5737 {
		t.Fatalf("Units = %d, want 5737", cap.Units)
	}
	if cap.UnitsByVolume != 5737 {
		t.Errorf("UnitsByVolume = %d, want 5737", cap.UnitsByVolume)
	}
	if cap.UnitsByWeight != -1 {
		t.Errorf("UnitsByWeight = %d, want -1 for weightless product", cap.UnitsByWeight)
	}
	if cap.LimitingFactor != domain.LimitedByVolume {
		t.Errorf("LimitingFactor = %q, want %q", cap.LimitingFactor, domain.LimitedByVolume)
	}
}

func TestCapacityWeightLimited(t *testing.T) {
	p := New(DefaultConfig())
	spec := domain.ContainerSpec{Type: "20ft", VolumeM3: 33.2, MaxWeightKG: 28200}
	dims := unitDims(20, 25, 20, 10) // dense: 10 kg per 0.01 m3

	cap := p.Capacity(spec, dims)

	if cap.UnitsByWeight != 2820 {
		t.Fatalf("UnitsByWeight = %d, want 2820", cap.UnitsByWeight)
	}
	if cap.Units != 2820 {
		t.Errorf("Units = %d, want weight ceiling 2820", cap.Units)
	}
	if cap.UnitsByVolume <= cap.UnitsByWeight {
		t.Errorf("UnitsByVolume = %d, expected above weight ceiling %d", cap.UnitsByVolume, cap.UnitsByWeight)
	}
	if cap.LimitingFactor != domain.LimitedByWeight {
		t.Errorf("LimitingFactor = %q, want %q", cap.LimitingFactor, domain.LimitedByWeight)
	}
}

func TestCapacityPrefersCartonData(t *testing.T) {
	p := New(exactCfg())
	spec := domain.ContainerSpec{Type: "box", VolumeM3: 64, MaxWeightKG: 28200}
	dims := domain.ProductDimensions{
		// Unit numbers say 0.001 m3 but goods ship two to a 0.06 m3 carton.
		UnitLengthCM: 10, UnitWidthCM: 10, UnitHeightCM: 10,
		CartonLengthCM: 50, CartonWidthCM: 40, CartonHeightCM: 30,
		CartonWeightKG: 30, UnitsPerCarton: 2,
	}

	cap := p.Capacity(spec, dims)

	// 64 * 0.75 = 48 usable, per unit 0.03 m3 -> 1600 by volume.
	if cap.UnitsByVolume != 1600 {
		t.Fatalf("UnitsByVolume = %d, want carton-based 1600", cap.UnitsByVolume)
	}
	// 28200 / 15 kg per unit = 1880 by weight.
	if cap.UnitsByWeight != 1880 {
		t.Errorf("UnitsByWeight = %d, want 1880", cap.UnitsByWeight)
	}
	if cap.Units != 1600 || cap.LimitingFactor != domain.LimitedByVolume {
		t.Errorf("Units = %d (%s), want 1600 limited by volume", cap.Units, cap.LimitingFactor)
	}
}

func TestCapacityWithoutDimensions(t *testing.T) {
	p := New(DefaultConfig())
	cap := p.Capacity(domain.DefaultContainers()[0], domain.ProductDimensions{})

	if cap.Units != 0 || cap.UnitsByVolume != 0 {
		t.Errorf("capacity without dimensions = %d/%d, want 0", cap.Units, cap.UnitsByVolume)
	}
}

func TestApplyMOQ(t *testing.T) {
	p := New(DefaultConfig())

	tests := []struct {
		name    string
		desired int
		moq     domain.MOQConfig
		want    int
	}{
		{"zero desired stays zero", 0, domain.MOQConfig{MOQ: 500}, 0},
		{"negative desired stays zero", -5, domain.MOQConfig{MOQ: 500}, 0},
		{"lifted to unit minimum", 100, domain.MOQConfig{MOQ: 500, Unit: domain.MOQUnits}, 500},
		{"above minimum unchanged", 700, domain.MOQConfig{MOQ: 500, Unit: domain.MOQUnits}, 700},
		{"carton minimum normalized", 100, domain.MOQConfig{MOQ: 10, Unit: domain.MOQCartons, UnitsPerCarton: 24}, 240},
		{"pallet minimum normalized", 100, domain.MOQConfig{MOQ: 2, Unit: domain.MOQPallets, CartonsPerPallet: 10, UnitsPerCarton: 12}, 240},
		{"rounded up to order multiple", 600, domain.MOQConfig{MOQ: 500, Unit: domain.MOQUnits, OrderMultiple: 48}, 624},
		{"aligned quantity untouched", 960, domain.MOQConfig{MOQ: 240, Unit: domain.MOQUnits, OrderMultiple: 48}, 960},
		{"no constraints passes through", 137, domain.MOQConfig{}, 137},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.ApplyMOQ(tc.desired, tc.moq); got != tc.want {
				t.Errorf("ApplyMOQ(%d) = %d, want %d", tc.desired, got, tc.want)
			}
		})
	}
}

func TestOptimizeSinglePrefersCheapestFullLoad(t *testing.T) {
	p := New(exactCfg())
	in := SingleInput{
		ProductID:    "SKU-1",
		DesiredUnits: 150,
		Dims:         unitDims(50, 50, 100, 0), // 0.25 m3
		MOQ:          domain.MOQConfig{MOQ: 40, Unit: domain.MOQUnits},
		Containers: []domain.ContainerSpec{
			{Type: "boxS", VolumeM3: 32, MaxWeightKG: 20000, CostMultiplier: 1.0},
			{Type: "boxL", VolumeM3: 64, MaxWeightKG: 30000, CostMultiplier: 1.6},
		},
	}

	res := p.OptimizeSingle(in)

	if res.Best == nil {
		t.Fatalf("no best option, recommendation %q", res.Recommendation)
	}
	// Filling one boxL (192 units at 1.6) beats every other candidate per unit.
	best := res.Best
	if best.ContainerType != "boxL" || best.ContainerCount != 1 {
		t.Fatalf("best = %d x %s, want 1 x boxL", best.ContainerCount, best.ContainerType)
	}
	if best.Units != 192 || best.Strategy != domain.StrategyFillCapacity {
		t.Errorf("best load = %d units via %s, want 192 via %s", best.Units, best.Strategy, domain.StrategyFillCapacity)
	}
	if !best.MeetsDesired {
		t.Error("best load should cover the desired quantity")
	}
	if best.FillPercent != 100 {
		t.Errorf("FillPercent = %v, want 100", best.FillPercent)
	}
	if !strings.Contains(res.Recommendation, "load 1 x boxL with 192 units") {
		t.Errorf("recommendation = %q", res.Recommendation)
	}

	var exact *domain.PackOption
	for i := range res.Options {
		if res.Options[i].Strategy == domain.StrategyExactFit && res.Options[i].ContainerType == "boxL" {
			exact = &res.Options[i]
			break
		}
	}
	if exact == nil {
		t.Fatal("expected an exact-fit candidate for boxL")
	}
	if exact.Units != 150 || exact.FillPercent != 78.125 {
		t.Errorf("exact fit = %d units at %v%%, want 150 at 78.125%%", exact.Units, exact.FillPercent)
	}
}

func TestOptimizeSingleHonorsOrderMultiple(t *testing.T) {
	p := New(exactCfg())
	in := SingleInput{
		ProductID:    "SKU-2",
		DesiredUnits: 100,
		Dims:         unitDims(50, 50, 100, 0),
		MOQ:          domain.MOQConfig{MOQ: 90, Unit: domain.MOQUnits, OrderMultiple: 90},
		Containers: []domain.ContainerSpec{
			{Type: "boxL", VolumeM3: 64, MaxWeightKG: 30000, CostMultiplier: 1.6},
		},
	}

	res := p.OptimizeSingle(in)

	if res.Best == nil {
		t.Fatal("expected a best option")
	}
	if res.Best.Units%90 != 0 {
		t.Errorf("best load %d not aligned to order multiple 90", res.Best.Units)
	}
	// Desire of 100 rounds up to 180; capacity 192 rounds down to the same.
	if res.Best.Units != 180 {
		t.Errorf("best load = %d, want 180", res.Best.Units)
	}
	for _, opt := range res.Options {
		if opt.Units%90 != 0 {
			t.Errorf("option %s x%d carries %d units, not multiple-aligned", opt.ContainerType, opt.ContainerCount, opt.Units)
		}
	}
}

func TestOptimizeSingleMOQTooLargeForFleet(t *testing.T) {
	p := New(exactCfg())
	in := SingleInput{
		ProductID:    "SKU-3",
		DesiredUnits: 100,
		Dims:         unitDims(50, 50, 100, 0), // 96 units per boxS, 480 across 5
		MOQ:          domain.MOQConfig{MOQ: 500, Unit: domain.MOQUnits},
		Containers: []domain.ContainerSpec{
			{Type: "boxS", VolumeM3: 32, MaxWeightKG: 20000, CostMultiplier: 1.0},
		},
	}

	res := p.OptimizeSingle(in)

	if res.Best != nil {
		t.Fatalf("best = %+v, want none when the minimum cannot ship", res.Best)
	}
	if len(res.Options) != 0 {
		t.Errorf("got %d options, want 0", len(res.Options))
	}
	if res.Recommendation != "no container option satisfies the minimum order quantity" {
		t.Errorf("recommendation = %q", res.Recommendation)
	}
	if res.MOQUnits != 500 {
		t.Errorf("MOQUnits = %d, want 500", res.MOQUnits)
	}
}

func TestOptimizeSingleDesireBeyondFleet(t *testing.T) {
	p := New(exactCfg())
	in := SingleInput{
		ProductID:    "SKU-4",
		DesiredUnits: 10000,
		Dims:         unitDims(50, 50, 100, 0),
		MOQ:          domain.MOQConfig{},
		Containers: []domain.ContainerSpec{
			{Type: "boxS", VolumeM3: 32, MaxWeightKG: 20000, CostMultiplier: 1.0},
		},
	}

	res := p.OptimizeSingle(in)

	if res.Best == nil {
		t.Fatal("expected a best partial option")
	}
	if res.Best.MeetsDesired {
		t.Error("no candidate can meet 10000 units")
	}
	if !strings.Contains(res.Recommendation, "increase container count") {
		t.Errorf("recommendation = %q", res.Recommendation)
	}
}

func TestOptimizeSingleWithoutDimensions(t *testing.T) {
	p := New(DefaultConfig())
	res := p.OptimizeSingle(SingleInput{ProductID: "SKU-5", DesiredUnits: 100})

	if res.Best != nil || len(res.Options) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if !strings.Contains(res.Recommendation, "no dimension data") {
		t.Errorf("recommendation = %q", res.Recommendation)
	}
}

func TestAllocateMultiSplitsByPriority(t *testing.T) {
	p := New(exactCfg())
	in := MultiInput{
		Container: domain.ContainerSpec{Type: "boxL", VolumeM3: 64, MaxWeightKG: 1000},
		Count:     1, // 48 m3 usable, 1000 kg
		Items: []MultiItem{
			{
				Item: domain.AllocationItem{ProductID: "A", DesiredUnits: 100, Priority: 10},
				Dims: unitDims(50, 50, 100, 2),
				MOQ:  domain.MOQConfig{MOQ: 10, Unit: domain.MOQUnits},
			},
			{
				Item: domain.AllocationItem{ProductID: "B", DesiredUnits: 100, Priority: 5},
				Dims: unitDims(50, 50, 100, 5),
				MOQ:  domain.MOQConfig{MOQ: 50, Unit: domain.MOQUnits, OrderMultiple: 50},
			},
			{
				Item: domain.AllocationItem{ProductID: "C", DesiredUnits: 40, Priority: 1},
				Dims: unitDims(50, 100, 100, 0),
				MOQ:  domain.MOQConfig{MOQ: 30, Unit: domain.MOQUnits},
			},
		},
	}

	res := p.AllocateMulti(in)

	if len(res.Allocations) != 3 {
		t.Fatalf("got %d allocations, want 3", len(res.Allocations))
	}

	a, b, c := res.Allocations[0], res.Allocations[1], res.Allocations[2]

	// A fits whole: 100 units, 25 m3, 200 kg.
	if a.ProductID != "A" || a.AllocatedUnits != 100 {
		t.Errorf("A allocated %d, want 100", a.AllocatedUnits)
	}
	if a.FulfillmentPercent != 100 {
		t.Errorf("A fulfillment = %v, want 100", a.FulfillmentPercent)
	}

	// B wants 100 but 23 m3 remain (92 units); multiple of 50 steps down to 50.
	if b.ProductID != "B" || b.AllocatedUnits != 50 {
		t.Errorf("B allocated %d, want 50", b.AllocatedUnits)
	}
	if b.Note != "space-limited" {
		t.Errorf("B note = %q", b.Note)
	}

	// C needs 30 minimum but only 21 units of space remain.
	if c.ProductID != "C" || c.AllocatedUnits != 0 {
		t.Errorf("C allocated %d, want 0", c.AllocatedUnits)
	}
	if c.Note != "minimum order quantity does not fit in remaining space" {
		t.Errorf("C note = %q", c.Note)
	}

	if res.FullyAllocated != 1 || res.PartiallyAllocated != 1 || res.NotAllocated != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", res.FullyAllocated, res.PartiallyAllocated, res.NotAllocated)
	}
	if res.UsedVolumeM3 != 37.5 {
		t.Errorf("UsedVolumeM3 = %v, want 37.5", res.UsedVolumeM3)
	}
	if res.UsedWeightKG != 450 {
		t.Errorf("UsedWeightKG = %v, want 450", res.UsedWeightKG)
	}
	if res.VolumeUtilization != 78.125 {
		t.Errorf("VolumeUtilization = %v, want 78.125", res.VolumeUtilization)
	}
}

func TestAllocateMultiHigherPriorityWinsRegardlessOfOrder(t *testing.T) {
	p := New(exactCfg())
	in := MultiInput{
		Container: domain.ContainerSpec{Type: "boxS", VolumeM3: 16},
		Count:     1, // 12 m3 usable, room for 48 units of 0.25 m3
		Items: []MultiItem{
			{Item: domain.AllocationItem{ProductID: "X", DesiredUnits: 48, Priority: 1}, Dims: unitDims(50, 50, 100, 0)},
			{Item: domain.AllocationItem{ProductID: "Y", DesiredUnits: 48, Priority: 9}, Dims: unitDims(50, 50, 100, 0)},
		},
	}

	res := p.AllocateMulti(in)

	if res.Allocations[0].ProductID != "Y" || res.Allocations[0].AllocatedUnits != 48 {
		t.Errorf("first allocation = %s/%d, want Y/48", res.Allocations[0].ProductID, res.Allocations[0].AllocatedUnits)
	}
	if res.Allocations[1].ProductID != "X" || res.Allocations[1].AllocatedUnits != 0 {
		t.Errorf("second allocation = %s/%d, want X/0", res.Allocations[1].ProductID, res.Allocations[1].AllocatedUnits)
	}
	if res.Allocations[1].Note != "no remaining space" {
		t.Errorf("X note = %q", res.Allocations[1].Note)
	}
}

func TestAllocateMultiNeverExceedsBudgets(t *testing.T) {
	p := New(DefaultConfig())

	dims := []domain.ProductDimensions{
		unitDims(50, 50, 100, 3),
		unitDims(30, 40, 50, 12),
		unitDims(20, 25, 20, 0),
		{CartonLengthCM: 60, CartonWidthCM: 40, CartonHeightCM: 40, CartonWeightKG: 18, UnitsPerCarton: 6},
	}
	moqs := []domain.MOQConfig{
		{},
		{MOQ: 200, Unit: domain.MOQUnits},
		{MOQ: 5, Unit: domain.MOQCartons, UnitsPerCarton: 6, OrderMultiple: 6},
		{MOQ: 100, Unit: domain.MOQUnits, OrderMultiple: 24},
	}

	for count := 1; count <= 3; count++ {
		for _, spec := range domain.DefaultContainers() {
			var items []MultiItem
			for i := 0; i < 8; i++ {
				items = append(items, MultiItem{
					Item: domain.AllocationItem{
						ProductID:    string(rune('a' + i)),
						DesiredUnits: 150 * (i + 1),
						Priority:     (i * 3) % 7,
					},
					Dims: dims[i%len(dims)],
					MOQ:  moqs[i%len(moqs)],
				})
			}

			res := p.AllocateMulti(MultiInput{Container: spec, Count: count, Items: items})

			const slack = 1e-9
			if res.UsedVolumeM3 > res.UsableVolumeM3+slack {
				t.Fatalf("%s x%d: used %v m3 over budget %v", spec.Type, count, res.UsedVolumeM3, res.UsableVolumeM3)
			}
			if res.UsedWeightKG > res.MaxWeightKG+slack {
				t.Fatalf("%s x%d: used %v kg over budget %v", spec.Type, count, res.UsedWeightKG, res.MaxWeightKG)
			}
			byID := map[string]domain.ProductAllocation{}
			for _, alloc := range res.Allocations {
				byID[alloc.ProductID] = alloc
			}
			for i := 0; i < 8; i++ {
				alloc := byID[string(rune('a'+i))]
				moq := moqs[i%len(moqs)]
				if alloc.AllocatedUnits == 0 {
					continue
				}
				if base := moq.BaseUnits(); alloc.AllocatedUnits < base {
					t.Errorf("%s x%d: product %s got %d, below minimum %d", spec.Type, count, alloc.ProductID, alloc.AllocatedUnits, base)
				}
				if moq.OrderMultiple > 1 && alloc.AllocatedUnits%moq.OrderMultiple != 0 {
					t.Errorf("%s x%d: product %s got %d, not a multiple of %d", spec.Type, count, alloc.ProductID, alloc.AllocatedUnits, moq.OrderMultiple)
				}
			}
		}
	}
}
