package economy

import (
	"encoding/json"
	"fmt"
)

type Placement int

const (
	PlacementInventory Placement = iota
	PlacementGrowing
	PlacementOffering
)

func (p Placement) String() string {
	switch p {
	case PlacementInventory:
		return "inventory"
	case PlacementGrowing:
		return "growing"
	case PlacementOffering:
		return "offering"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// PlacementFromFlags normalizes the persisted flag pair. Growing wins
// when both are set.
func PlacementFromFlags(growing, offering bool) Placement {
	switch {
	case growing:
		return PlacementGrowing
	case offering:
		return PlacementOffering
	default:
		return PlacementInventory
	}
}

func (p Placement) Flags() (growing, offering bool) {
	return p == PlacementGrowing, p == PlacementOffering
}

type Gem struct {
	ID     string
	Type   string
	Rarity string
	Shape  string
	// Growth accumulates toward the next level, 0..100.
	Growth    float64
	Size      float64
	Level     int
	Placement Placement
}

type gemJSON struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Rarity     string  `json:"rarity"`
	Shape      string  `json:"shape"`
	Growth     float64 `json:"growth"`
	Size       float64 `json:"size"`
	Level      int     `json:"level"`
	IsGrowing  bool    `json:"is_growing"`
	IsOffering bool    `json:"is_offering"`
}

// MarshalJSON writes the flag form kept by existing saves.
func (g Gem) MarshalJSON() ([]byte, error) {
	growing, offering := g.Placement.Flags()
	return json.Marshal(gemJSON{
		ID: g.ID, Type: g.Type, Rarity: g.Rarity, Shape: g.Shape,
		Growth: g.Growth, Size: g.Size, Level: g.Level,
		IsGrowing: growing, IsOffering: offering,
	})
}

func (g *Gem) UnmarshalJSON(b []byte) error {
	var j gemJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*g = Gem{
		ID: j.ID, Type: j.Type, Rarity: j.Rarity, Shape: j.Shape,
		Growth: j.Growth, Size: j.Size, Level: j.Level,
		Placement: PlacementFromFlags(j.IsGrowing, j.IsOffering),
	}
	return nil
}

// GroupKey is the pool a gem is rendered in.
func (g Gem) GroupKey() string { return "gem:" + g.Type + ":" + g.Shape }
