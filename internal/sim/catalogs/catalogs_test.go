package catalogs

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/mode"
	"scrounge.ai/internal/sim/tuning"
)

func loadRepoCatalogs(t *testing.T) *Catalogs {
	t.Helper()
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func TestLoadGems(t *testing.T) {
	c := loadRepoCatalogs(t)
	g := c.Gems
	if !sort.StringsAreSorted(g.TypePalette) || len(g.TypePalette) == 0 {
		t.Fatalf("type palette=%v", g.TypePalette)
	}
	if g.Digest == "" || g.PaletteDigest == "" {
		t.Fatalf("missing digests")
	}
	tab := g.Table()
	if tab.Types["emerald"] != 1 || tab.Shapes["tetrahedron"] != 1 || tab.Rarities["common"] != 1 {
		t.Fatalf("reference multipliers not 1: %+v", tab)
	}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		gem := g.Roll(r)
		if _, ok := g.Types[gem.Type]; !ok {
			t.Fatalf("rolled unknown type %q", gem.Type)
		}
		if _, ok := g.Rarities[gem.Rarity]; !ok {
			t.Fatalf("rolled unknown rarity %q", gem.Rarity)
		}
		if gem.Size < g.SizeMin || gem.Size > g.SizeMax {
			t.Fatalf("rolled size %v", gem.Size)
		}
	}
}

func TestLoadRejectsBadCatalog(t *testing.T) {
	dir := t.TempDir()
	bad := `{"size_min":0.05,"size_max":0.1,"types":[{"id":"x"}],"shapes":[{"id":"s","collider":"blob"}],"rarities":[{"id":"c"}]}`
	if err := os.WriteFile(filepath.Join(dir, "gems.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unknown collider")
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func counts() tuning.Pools {
	p := tuning.Defaults().Pools
	p.Rocks, p.Coins, p.FindGems, p.GardenCoinCap = 10, 5, 2, 3
	return p
}

func TestScroungeLayout(t *testing.T) {
	ds := GeneratePoolDescriptors(LayoutInput{Mode: mode.State{Scene: mode.SceneScrounge}, Pools: counts()})
	var ids []string
	for _, d := range ds {
		ids = append(ids, d.ID)
		if err := d.Validate(); err != nil {
			t.Fatalf("invalid descriptor: %v", err)
		}
	}
	if !reflect.DeepEqual(ids, []string{PoolCoin, PoolFindGem, PoolRock}) {
		t.Fatalf("ids=%v", ids)
	}
	if ds[0].FaucetID != FaucetCoins || !ds[0].Special || ds[2].Special {
		t.Fatalf("bindings: %+v", ds)
	}
}

func gardenState() economy.State {
	return economy.State{
		Currency: map[string]int64{economy.CurrencyCoins: 10},
		Gems: []economy.Gem{
			{ID: "g3", Type: "ruby", Shape: "cube", Size: 0.1},
			{ID: "g1", Type: "ruby", Shape: "cube", Size: 0.05, Placement: economy.PlacementGrowing},
			{ID: "g2", Type: "emerald", Shape: "tetrahedron", Size: 0.1, Placement: economy.PlacementOffering},
		},
	}
}

func TestGardenLayoutFiltersByAction(t *testing.T) {
	c := loadRepoCatalogs(t)
	in := LayoutInput{Mode: mode.State{Scene: mode.SceneGarden, Action: mode.ActionGrow}, Economy: gardenState(), Pools: counts(), Gems: &c.Gems}
	ds := GeneratePoolDescriptors(in)
	if len(ds) != 2 || ds[0].ID != PoolCoin || ds[1].ID != "gem:ruby:cube" {
		t.Fatalf("grow pools=%v", ds)
	}
	if ds[0].Capacity != 3 {
		t.Fatalf("coin pool not capped: %d", ds[0].Capacity)
	}
	gems := ds[1]
	if !reflect.DeepEqual(gems.EntityIDs, []string{"g1", "g3"}) {
		t.Fatalf("entity ids=%v", gems.EntityIDs)
	}
	if gems.ZoneFor(0) != ZoneGrowBed || gems.ZoneFor(1) != ZoneInventory {
		t.Fatalf("zones=%v", gems.InstanceZones)
	}
	if gems.InstanceScales[0] != 0.5 || gems.Color != c.Gems.Types["ruby"].Color {
		t.Fatalf("scale=%v color=%q", gems.InstanceScales, gems.Color)
	}

	in.Mode.Action = mode.ActionOffer
	ds = GeneratePoolDescriptors(in)
	var ids []string
	for _, d := range ds {
		ids = append(ids, d.ID)
	}
	if !reflect.DeepEqual(ids, []string{PoolCoin, "gem:emerald:tetrahedron", "gem:ruby:cube"}) {
		t.Fatalf("offer pools=%v", ids)
	}
	if ds[2].Capacity != 1 || ds[2].EntityIDs[0] != "g3" {
		t.Fatalf("growing gem shown while offering: %v", ds[2].EntityIDs)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	in := LayoutInput{Mode: mode.State{Scene: mode.SceneGarden, Action: mode.ActionOffer}, Economy: gardenState(), Pools: counts()}
	a := GeneratePoolDescriptors(in)
	st := in.Economy
	st.Gems = []economy.Gem{st.Gems[2], st.Gems[0], st.Gems[1]}
	in.Economy = st
	b := GeneratePoolDescriptors(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("layout depends on input order")
	}
}
