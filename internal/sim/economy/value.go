package economy

import (
	"math"
	"sort"
)

// ReferenceSize is the gem size worth one unit of the size factor.
const ReferenceSize = 0.1

// Table holds the value multipliers. Unknown keys multiply by 1.
type Table struct {
	Types    map[string]float64
	Shapes   map[string]float64
	Rarities map[string]float64
	// LevelStep is the per-level increment: levelMult(l) = 1 + l*LevelStep.
	LevelStep float64
}

func lookup(m map[string]float64, k string) float64 {
	if v, ok := m[k]; ok && v > 0 {
		return v
	}
	return 1
}

func (t Table) LevelMult(level int) float64 {
	if level <= 0 {
		return 1
	}
	return 1 + float64(level)*t.LevelStep
}

// Value is floor(10 * type * shape * rarity * levelMult * size/0.1).
func (t Table) Value(g Gem) int64 {
	v := 10 * lookup(t.Types, g.Type) * lookup(t.Shapes, g.Shape) * lookup(t.Rarities, g.Rarity) *
		t.LevelMult(g.Level) * (g.Size / ReferenceSize)
	if v <= 0 {
		return 0
	}
	// Absorb representation error so exact products do not round down.
	return int64(math.Floor(v + 1e-9))
}

type Growth struct {
	// Rate is growth points per second while Growing.
	Rate float64
	// SizeGain is added to Size on every level up.
	SizeGain float64
	MaxLevel int
}

// Grow advances g by dt seconds and returns the levels gained. Only
// Growing gems change.
func (gr Growth) Grow(g *Gem, dt float64) int {
	if g.Placement != PlacementGrowing || dt <= 0 || gr.Rate <= 0 {
		return 0
	}
	if gr.MaxLevel > 0 && g.Level >= gr.MaxLevel {
		g.Growth = 100
		return 0
	}
	g.Growth += gr.Rate * dt
	gained := 0
	for g.Growth >= 100 {
		if gr.MaxLevel > 0 && g.Level >= gr.MaxLevel {
			g.Growth = 100
			break
		}
		g.Growth -= 100
		g.Level++
		g.Size += gr.SizeGain
		gained++
	}
	return gained
}

// OfferYield is the currency an offered gem converts into.
func (t Table) OfferYield(g Gem, yield float64) int64 {
	if yield <= 0 {
		return 0
	}
	return int64(math.Floor(float64(t.Value(g))*yield + 1e-9))
}

// Partition splits gems by placement, each slice sorted by id.
func Partition(gems []Gem) (inventory, growing, offering []Gem) {
	for _, g := range gems {
		switch g.Placement {
		case PlacementGrowing:
			growing = append(growing, g)
		case PlacementOffering:
			offering = append(offering, g)
		default:
			inventory = append(inventory, g)
		}
	}
	for _, s := range [][]Gem{inventory, growing, offering} {
		sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
	}
	return inventory, growing, offering
}
