package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scrounge.ai/internal/sim/economy"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "econ", "economy.snap.zst")
	s := NewFileStore(path)
	ctx := context.Background()

	st, err := s.Load(ctx)
	if err != nil || len(st.Gems) != 0 || st.Coins() != 0 {
		t.Fatalf("empty load: %+v %v", st, err)
	}

	in := economy.State{
		Currency: map[string]int64{economy.CurrencyCoins: 42},
		Gems: []economy.Gem{
			{ID: "b", Type: "ruby", Shape: "cube", Rarity: "rare", Size: 0.08, Level: 2, Growth: 40, Placement: economy.PlacementGrowing},
			{ID: "a", Type: "emerald", Shape: "tetrahedron", Rarity: "common", Size: 0.1, Placement: economy.PlacementOffering},
		},
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Coins() != 42 || len(out.Gems) != 2 {
		t.Fatalf("loaded=%+v", out)
	}
	if out.Gems[0].ID != "a" || out.Gems[0].Placement != economy.PlacementOffering {
		t.Fatalf("gem a=%+v", out.Gems[0])
	}
	if g := out.Gems[1]; g.Level != 2 || g.Growth != 40 || g.Placement != economy.PlacementGrowing {
		t.Fatalf("gem b=%+v", g)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected error for corrupt snapshot")
	}
}
