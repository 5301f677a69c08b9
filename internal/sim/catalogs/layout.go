package catalogs

import (
	"math/rand"
	"sort"

	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/mode"
	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/tuning"
)

// Pool and zone ids shared with tuning.yaml.
const (
	PoolRock    = "rock"
	PoolCoin    = "coin"
	PoolFindGem = "find:gem"

	ZonePile      = "pile"
	ZoneCoinPile  = "coin_pile"
	ZoneFind      = "find"
	ZoneInventory = "inventory"
	ZoneGrowBed   = "grow_bed"
	ZoneAltar     = "altar"
	ZoneVault     = "vault"

	FaucetCoins = "coins"
	FaucetFinds = "finds"
)

type LayoutInput struct {
	Mode    mode.State
	Economy economy.State
	Pools   tuning.Pools
	Gems    *GemCatalog
}

// GeneratePoolDescriptors derives the pools of a mode from the economy
// state. The result is sorted by descriptor id and every entity list is
// sorted, so index-to-entity mapping is stable across calls.
func GeneratePoolDescriptors(in LayoutInput) []pool.Descriptor {
	var out []pool.Descriptor
	st := in.Mode.Normalize()
	switch st.Scene {
	case mode.SceneGarden:
		out = gardenPools(st.Action, in)
	default:
		out = scroungePools(in)
	}
	kept := out[:0]
	for _, d := range out {
		if d.Capacity > 0 {
			kept = append(kept, d)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	return kept
}

func scroungePools(in LayoutInput) []pool.Descriptor {
	p := in.Pools
	return []pool.Descriptor{
		{
			ID:             PoolRock,
			Capacity:       p.Rocks,
			Collider:       pool.Collider{Shape: pool.ColliderBall, Radius: 0.5},
			BaseSize:       p.RockSize,
			Mass:           2,
			Material:       pool.MaterialRock,
			Color:          "#7f8c8d",
			Scale:          pool.ScalePerInstance,
			InstanceScales: rockScales(p.Rocks),
			SpawnZone:      ZonePile,
		},
		{
			ID:        PoolCoin,
			Capacity:  p.Coins,
			Collider:  pool.Collider{Shape: pool.ColliderCylinder, Radius: 0.5},
			BaseSize:  p.CoinSize,
			Mass:      0.5,
			Material:  pool.MaterialCoin,
			Color:     "#f1c40f",
			SpawnZone: ZoneCoinPile,
			FaucetID:  FaucetCoins,
			Special:   true,
		},
		{
			ID:        PoolFindGem,
			Capacity:  p.FindGems,
			Collider:  pool.Collider{Shape: pool.ColliderConvex, Radius: 0.5},
			BaseSize:  p.GemSize,
			Mass:      1,
			Material:  pool.MaterialGem,
			Color:     "#ffffff",
			SpawnZone: ZoneFind,
			FaucetID:  FaucetFinds,
			Special:   true,
		},
	}
}

// rockScales is a fixed-seed spread of debris sizes.
func rockScales(n int) []float64 {
	r := rand.New(rand.NewSource(1))
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.7 + 0.6*r.Float64()
	}
	return out
}

func gardenPools(action mode.Action, in LayoutInput) []pool.Descriptor {
	p := in.Pools
	coins := in.Economy.Coins()
	if coins > int64(p.GardenCoinCap) {
		coins = int64(p.GardenCoinCap)
	}
	if coins < 0 {
		coins = 0
	}
	out := []pool.Descriptor{{
		ID:        PoolCoin,
		Capacity:  int(coins),
		Collider:  pool.Collider{Shape: pool.ColliderCylinder, Radius: 0.5},
		BaseSize:  p.CoinSize,
		Mass:      0.5,
		Material:  pool.MaterialCoin,
		Color:     "#f1c40f",
		SpawnZone: ZoneVault,
	}}

	groups := map[string][]economy.Gem{}
	for _, g := range in.Economy.Gems {
		if !visibleIn(action, g.Placement) {
			continue
		}
		k := g.GroupKey()
		groups[k] = append(groups[k], g)
	}
	for _, key := range sortedKeys(groups) {
		gems := groups[key]
		sort.Slice(gems, func(i, j int) bool { return gems[i].ID < gems[j].ID })
		d := pool.Descriptor{
			ID:             key,
			Capacity:       len(gems),
			Collider:       pool.Collider{Shape: pool.ColliderConvex, Radius: 0.5},
			BaseSize:       p.GemSize,
			Mass:           1,
			Material:       pool.MaterialGem,
			Scale:          pool.ScalePerInstance,
			SpawnZone:      ZoneInventory,
			InstanceScales: make([]float64, len(gems)),
			InstanceZones:  make([]string, len(gems)),
			EntityIDs:      make([]string, len(gems)),
		}
		if in.Gems != nil {
			if td, ok := in.Gems.Types[gems[0].Type]; ok {
				d.Color = td.Color
			}
			if sd, ok := in.Gems.Shapes[gems[0].Shape]; ok {
				shape, _ := parseCollider(sd.Collider)
				d.Collider = pool.Collider{Shape: shape, Radius: sd.Radius}
			}
		}
		for i, g := range gems {
			d.EntityIDs[i] = g.ID
			d.InstanceScales[i] = 1
			if p.GemSize > 0 && g.Size > 0 {
				d.InstanceScales[i] = g.Size / p.GemSize
			}
			d.InstanceZones[i] = placementZone(g.Placement)
		}
		out = append(out, d)
	}
	return out
}

// visibleIn filters gems by the action they can take part in.
func visibleIn(action mode.Action, pl economy.Placement) bool {
	switch pl {
	case economy.PlacementGrowing:
		return action == mode.ActionGrow
	case economy.PlacementOffering:
		return action == mode.ActionOffer
	default:
		return true
	}
}

func placementZone(pl economy.Placement) string {
	switch pl {
	case economy.PlacementGrowing:
		return ZoneGrowBed
	case economy.PlacementOffering:
		return ZoneAltar
	default:
		return ZoneInventory
	}
}
