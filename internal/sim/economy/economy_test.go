package economy

import (
	"encoding/json"
	"testing"
)

func TestValueReferenceGem(t *testing.T) {
	tab := Table{
		Types:    map[string]float64{"emerald": 1.0, "ruby": 1.5},
		Shapes:   map[string]float64{"tetrahedron": 1.0},
		Rarities: map[string]float64{"common": 1.0},
	}
	g := Gem{Type: "emerald", Shape: "tetrahedron", Rarity: "common", Level: 0, Size: 0.063}
	if v := tab.Value(g); v != 6 {
		t.Fatalf("value=%d want 6", v)
	}
	g.Size = 0.07
	if v := tab.Value(g); v != 7 {
		t.Fatalf("value(0.07)=%d want 7", v)
	}
	g.Type = "ruby"
	g.Size = 0.1
	if v := tab.Value(g); v != 15 {
		t.Fatalf("ruby value=%d want 15", v)
	}
	if tab.LevelMult(0) != 1 {
		t.Fatalf("levelMult(0)=%v", tab.LevelMult(0))
	}
}

func TestPlacementFlags(t *testing.T) {
	cases := []struct {
		growing, offering bool
		want              Placement
	}{
		{false, false, PlacementInventory},
		{true, false, PlacementGrowing},
		{false, true, PlacementOffering},
		{true, true, PlacementGrowing},
	}
	for _, c := range cases {
		if got := PlacementFromFlags(c.growing, c.offering); got != c.want {
			t.Fatalf("flags(%v,%v)=%v want %v", c.growing, c.offering, got, c.want)
		}
	}
	var g Gem
	if err := json.Unmarshal([]byte(`{"id":"a","is_growing":true,"is_offering":true}`), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Placement != PlacementGrowing {
		t.Fatalf("placement=%v", g.Placement)
	}
	b, _ := json.Marshal(g)
	var back map[string]any
	_ = json.Unmarshal(b, &back)
	if back["is_growing"] != true || back["is_offering"] != false {
		t.Fatalf("persisted flags not normalized: %s", b)
	}
}

func TestGrowLevelsUp(t *testing.T) {
	gr := Growth{Rate: 10, SizeGain: 0.01, MaxLevel: 3}
	g := Gem{Placement: PlacementGrowing, Size: 0.05}
	if n := gr.Grow(&g, 25); n != 2 || g.Level != 2 || g.Growth != 50 {
		t.Fatalf("grow: n=%d level=%d growth=%v", n, g.Level, g.Growth)
	}
	if g.Size < 0.0699 || g.Size > 0.0701 {
		t.Fatalf("size=%v", g.Size)
	}
	gr.Grow(&g, 100)
	if g.Level != 3 || g.Growth != 100 {
		t.Fatalf("max level: level=%d growth=%v", g.Level, g.Growth)
	}
	inv := Gem{Placement: PlacementInventory}
	if gr.Grow(&inv, 100) != 0 || inv.Growth != 0 {
		t.Fatalf("inventory gem grew")
	}
}

func TestPartitionAndYield(t *testing.T) {
	gems := []Gem{
		{ID: "c", Placement: PlacementOffering, Size: 0.1},
		{ID: "b", Placement: PlacementGrowing},
		{ID: "a"},
		{ID: "d", Placement: PlacementOffering, Size: 0.2},
	}
	inv, grow, off := Partition(gems)
	if len(inv) != 1 || len(grow) != 1 || len(off) != 2 || off[0].ID != "c" {
		t.Fatalf("partition inv=%v grow=%v off=%v", inv, grow, off)
	}
	if y := (Table{}).OfferYield(off[1], 0.5); y != 10 {
		t.Fatalf("yield=%d want 10", y)
	}
}

func TestStateNormalizeAndClone(t *testing.T) {
	s := State{Gems: []Gem{{ID: "z", Growth: 140}, {ID: "a", Growth: -3}}}
	s.Normalize()
	if s.Gems[0].ID != "a" || s.Gems[0].Growth != 0 || s.Gems[1].Growth != 100 {
		t.Fatalf("normalize: %+v", s.Gems)
	}
	s.Credit(CurrencyCoins, 5)
	c := s.Clone()
	c.Credit(CurrencyCoins, 1)
	c.Gems[0].ID = "q"
	if s.Coins() != 5 || s.Gems[0].ID != "a" {
		t.Fatalf("clone aliased original")
	}
	if s.GemIndex("z") != 1 || s.GemIndex("nope") != -1 {
		t.Fatalf("GemIndex")
	}
}
