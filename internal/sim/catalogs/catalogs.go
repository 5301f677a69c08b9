package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/pool"
)

type Catalogs struct {
	Gems GemCatalog
}

type GemCatalog struct {
	Types    map[string]TypeDef
	Shapes   map[string]ShapeDef
	Rarities map[string]RarityDef

	TypePalette   []string
	ShapePalette  []string
	RarityPalette []string

	LevelStep float64
	SizeMin   float64
	SizeMax   float64

	Digest        string
	PaletteDigest string
}

type TypeDef struct {
	ID    string  `json:"id"`
	Mult  float64 `json:"mult"`
	Color string  `json:"color"`
}

type ShapeDef struct {
	ID       string  `json:"id"`
	Mult     float64 `json:"mult"`
	Collider string  `json:"collider"`
	Radius   float64 `json:"radius"`
}

type RarityDef struct {
	ID     string  `json:"id"`
	Mult   float64 `json:"mult"`
	Weight float64 `json:"weight"`
}

type gemsFile struct {
	LevelStep float64     `json:"level_step"`
	SizeMin   float64     `json:"size_min"`
	SizeMax   float64     `json:"size_max"`
	Types     []TypeDef   `json:"types"`
	Shapes    []ShapeDef  `json:"shapes"`
	Rarities  []RarityDef `json:"rarities"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadGems(filepath.Join(configDir, "gems.json"), &c.Gems); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadGems(path string, out *GemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var f gemsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("gems.json: %w", err)
	}
	out.LevelStep = f.LevelStep
	out.SizeMin, out.SizeMax = f.SizeMin, f.SizeMax
	if out.SizeMin <= 0 || out.SizeMax < out.SizeMin {
		return fmt.Errorf("gems.json: bad size range [%v,%v]", f.SizeMin, f.SizeMax)
	}

	out.Types = map[string]TypeDef{}
	for _, d := range f.Types {
		if d.ID == "" {
			return fmt.Errorf("gems.json: empty type id")
		}
		out.Types[d.ID] = d
	}
	out.Shapes = map[string]ShapeDef{}
	for _, d := range f.Shapes {
		if d.ID == "" {
			return fmt.Errorf("gems.json: empty shape id")
		}
		if _, err := parseCollider(d.Collider); err != nil {
			return fmt.Errorf("gems.json: shape %s: %w", d.ID, err)
		}
		out.Shapes[d.ID] = d
	}
	out.Rarities = map[string]RarityDef{}
	for _, d := range f.Rarities {
		if d.ID == "" {
			return fmt.Errorf("gems.json: empty rarity id")
		}
		if d.Weight < 0 {
			return fmt.Errorf("gems.json: rarity %s: negative weight", d.ID)
		}
		out.Rarities[d.ID] = d
	}
	if len(out.Types) == 0 || len(out.Shapes) == 0 || len(out.Rarities) == 0 {
		return fmt.Errorf("gems.json: types, shapes and rarities must be non-empty")
	}

	out.TypePalette = sortedKeys(out.Types)
	out.ShapePalette = sortedKeys(out.Shapes)
	out.RarityPalette = sortedKeys(out.Rarities)
	palJSON, _ := json.Marshal([][]string{out.TypePalette, out.ShapePalette, out.RarityPalette})
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parseCollider(s string) (pool.ColliderShape, error) {
	switch s {
	case "", "convex":
		return pool.ColliderConvex, nil
	case "ball":
		return pool.ColliderBall, nil
	case "cylinder":
		return pool.ColliderCylinder, nil
	}
	return 0, fmt.Errorf("unknown collider %q", s)
}

// Table returns the value multipliers.
func (g *GemCatalog) Table() economy.Table {
	t := economy.Table{
		Types:     make(map[string]float64, len(g.Types)),
		Shapes:    make(map[string]float64, len(g.Shapes)),
		Rarities:  make(map[string]float64, len(g.Rarities)),
		LevelStep: g.LevelStep,
	}
	for id, d := range g.Types {
		t.Types[id] = d.Mult
	}
	for id, d := range g.Shapes {
		t.Shapes[id] = d.Mult
	}
	for id, d := range g.Rarities {
		t.Rarities[id] = d.Mult
	}
	return t
}

// Roll draws a new gem: uniform type and shape, weighted rarity, uniform
// size. The id is left empty for the caller.
func (g *GemCatalog) Roll(r *rand.Rand) economy.Gem {
	gem := economy.Gem{
		Type:  g.TypePalette[r.Intn(len(g.TypePalette))],
		Shape: g.ShapePalette[r.Intn(len(g.ShapePalette))],
		Size:  g.SizeMin + r.Float64()*(g.SizeMax-g.SizeMin),
	}
	total := 0.0
	for _, id := range g.RarityPalette {
		total += g.Rarities[id].Weight
	}
	gem.Rarity = g.RarityPalette[0]
	if total > 0 {
		x := r.Float64() * total
		for _, id := range g.RarityPalette {
			x -= g.Rarities[id].Weight
			if x < 0 {
				gem.Rarity = id
				break
			}
		}
	}
	return gem
}
