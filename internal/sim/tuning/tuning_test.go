package tuning

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRepoTuning(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 60 || tu.TickDuration() <= 0 {
		t.Fatalf("tick rate=%d", tu.TickRateHz)
	}
	zones := tu.Zones()
	for _, id := range []string{"pile", "coin_pile", "find", "inventory", "grow_bed", "altar", "vault"} {
		if _, ok := zones[id]; !ok {
			t.Fatalf("missing zone %q", id)
		}
	}
	for _, f := range tu.Faucets {
		if !f.RunsIn("scrounge") || f.RunsIn("garden") {
			t.Fatalf("faucet %s scenes=%v", f.ID, f.Scenes)
		}
		if c := f.Config(); c.ID != f.ID || c.Rate != f.Rate {
			t.Fatalf("faucet config=%+v", c)
		}
	}
	dz, ok := tu.DragZone("offer")
	if !ok || math.Abs(dz.Yaw-math.Pi/4) > 1e-9 {
		t.Fatalf("offer zone=%+v ok=%v", dz, ok)
	}
	if g := tu.PhysicsConfig().Gravity; g.Y() != -9.81 {
		t.Fatalf("gravity=%v", g)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 120\npools:\n  rocks: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 120 || tu.Pools.Rocks != 5 {
		t.Fatalf("overrides not applied: %+v", tu.Pools)
	}
	if tu.Pools.Coins != Defaults().Pools.Coins || len(tu.SpawnZones) == 0 {
		t.Fatalf("defaults lost")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Tuning)
	}{
		{"bad zone kind", func(t *Tuning) { t.SpawnZones[0].Kind = "hexagon" }},
		{"dup zone", func(t *Tuning) { t.SpawnZones[1].ID = t.SpawnZones[0].ID }},
		{"faucet too fast", func(t *Tuning) { t.Faucets[0].Rate = 500 }},
		{"drag zone action", func(t *Tuning) { t.DragZones["sell"] = DragZone{Width: 1, Depth: 1} }},
		{"flat drag zone", func(t *Tuning) { t.DragZones["grow"] = DragZone{} }},
		{"yield", func(t *Tuning) { t.Economy.OfferYield = 2 }},
	}
	for _, c := range cases {
		tu := Defaults()
		tu.Normalize()
		c.mut(&tu)
		if err := tu.Validate(); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
	tu := Defaults()
	tu.Normalize()
	if err := tu.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadEmptyPathIsDefaults(t *testing.T) {
	tu, err := Load("")
	if err != nil || tu.Pools.Rocks != Defaults().Pools.Rocks {
		t.Fatalf("empty path: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file should error")
	}
}

func TestDigestTracksValues(t *testing.T) {
	a := Defaults()
	b := Defaults()
	if a.Digest() == "" || a.Digest() != b.Digest() {
		t.Fatalf("digest not stable: %q %q", a.Digest(), b.Digest())
	}
	b.TickRateHz = 30
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignores tick rate")
	}
}
