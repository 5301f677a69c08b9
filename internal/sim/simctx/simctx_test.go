package simctx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
)

func TestClearPoolsEmptiesArrays(t *testing.T) {
	w := physics.NewWorld(physics.DefaultConfig())
	c := New()
	p := pool.New(pool.Descriptor{ID: "rock", Capacity: 3}, c.BumpGeneration())
	p.Mount(w, func(int) (mgl64.Vec3, mgl64.Quat) { return mgl64.Vec3{}, mgl64.QuatIdent() })
	c.SetPools([]*pool.Pool{p})
	if got, ok := c.Pool("rock"); !ok || got != p {
		t.Fatalf("lookup failed")
	}
	c.ClearPools(w)
	if p.Len() != 0 || w.Len() != 0 || len(c.Pools()) != 0 {
		t.Fatalf("pools not cleared: len=%d world=%d", p.Len(), w.Len())
	}
	if _, ok := c.Pool("rock"); ok {
		t.Fatalf("cleared pool still resolvable")
	}
}

func TestMembershipSorted(t *testing.T) {
	c := New()
	c.SetMembership([]pool.Ref{{Pool: "b", Index: 0}, {Pool: "a", Index: 2}, {Pool: "a", Index: 1}})
	got := c.Membership()
	want := []pool.Ref{{Pool: "a", Index: 1}, {Pool: "a", Index: 2}, {Pool: "b", Index: 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("membership=%v", got)
		}
	}
	if !c.InZone(pool.Ref{Pool: "b"}) || c.MembershipCount() != 3 {
		t.Fatalf("membership lookup failed")
	}
	c.ClearMembership()
	if c.MembershipCount() != 0 {
		t.Fatalf("membership not cleared")
	}
}

func TestGenerationMonotonic(t *testing.T) {
	c := New()
	a := c.BumpGeneration()
	b := c.BumpGeneration()
	if b != a+1 || c.Generation() != b {
		t.Fatalf("generation a=%d b=%d cur=%d", a, b, c.Generation())
	}
}
