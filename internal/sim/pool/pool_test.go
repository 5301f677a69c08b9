package pool

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/sim/physics"
)

func mounted(t *testing.T, desc Descriptor, gen uint64) (*physics.World, *Pool) {
	t.Helper()
	w := physics.NewWorld(physics.DefaultConfig())
	p := New(desc, gen)
	p.Mount(w, func(i int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{float64(i), 1, 0}, mgl64.QuatIdent()
	})
	return w, p
}

func TestMountAndClear(t *testing.T) {
	w, p := mounted(t, Descriptor{ID: "rock", Capacity: 4, BaseSize: 0.5}, 1)
	if p.Len() != 4 || w.Len() != 4 || p.Live() != 4 || !p.Dirty() {
		t.Fatalf("mount: len=%d world=%d live=%d", p.Len(), w.Len(), p.Live())
	}
	m, _ := p.Matrix(2)
	if got := physics.TranslationOf(m); got != (mgl64.Vec3{2, 1, 0}) {
		t.Fatalf("matrix translation=%v", got)
	}
	b, _ := p.Body(2)
	p.Clear(w)
	if p.Len() != 0 || w.Len() != 0 || b.Valid() {
		t.Fatalf("clear left references: len=%d world=%d", p.Len(), w.Len())
	}
	if _, ok := p.Body(2); ok {
		t.Fatalf("cleared pool returned a body")
	}
	if _, ok := p.Matrix(2); ok {
		t.Fatalf("cleared pool returned a matrix")
	}
	// Accessors on a cleared pool are misses, not panics.
	p.SetTag(0, TagSelected, true)
	p.SetHighlight(0, 1)
	if p.Retire(0, -10) || p.Sync(0, b) {
		t.Fatalf("cleared pool accepted writes")
	}
}

func TestSyncKeepsScale(t *testing.T) {
	_, p := mounted(t, Descriptor{
		ID: "gem", Capacity: 2, BaseSize: 0.1,
		Scale: ScalePerInstance, InstanceScales: []float64{1, 2.5},
	}, 1)
	b, _ := p.Body(1)
	b.SetTranslation(mgl64.Vec3{3, 4, 5}, false)
	if !p.Sync(1, b) {
		t.Fatalf("sync failed")
	}
	m, _ := p.Matrix(1)
	if s := physics.ScaleOf(m); math.Abs(s-0.25) > 1e-9 {
		t.Fatalf("scale=%v want 0.25", s)
	}
	if got := physics.TranslationOf(m); got != (mgl64.Vec3{3, 4, 5}) {
		t.Fatalf("translation=%v", got)
	}
}

func TestRetireParksSleeping(t *testing.T) {
	_, p := mounted(t, Descriptor{ID: "coin", Capacity: 1, BaseSize: 0.1}, 1)
	b, _ := p.Body(0)
	b.SetKinematic(true)
	p.SetTag(0, TagCollecting|TagSelected, true)
	p.SetHighlight(0, 1)
	if !p.Retire(0, -100) {
		t.Fatalf("retire failed")
	}
	if b.IsKinematic() || !b.IsSleeping() || b.Position().Y() != -100 {
		t.Fatalf("retired body kin=%v sleep=%v pos=%v", b.IsKinematic(), b.IsSleeping(), b.Position())
	}
	if p.HasTag(0, TagCollecting|TagSelected|TagDragging) || p.Highlight(0) != 0 {
		t.Fatalf("retire kept tags or highlight")
	}
	if p.Capacity() != 1 || p.Len() != 1 {
		t.Fatalf("retire changed capacity")
	}
}

func TestGenerationMismatchIsStale(t *testing.T) {
	_, p := mounted(t, Descriptor{ID: "coin", Capacity: 1}, 1)
	p.handles[0].Gen = 0
	if _, ok := p.Body(0); ok {
		t.Fatalf("old-generation handle accepted")
	}
}

func TestEntityMapping(t *testing.T) {
	_, p := mounted(t, Descriptor{ID: "gem:ruby:cube", Capacity: 2, EntityIDs: []string{"a", "b"}}, 1)
	if i, ok := p.IndexOf("b"); !ok || i != 1 {
		t.Fatalf("IndexOf(b)=%d,%v", i, ok)
	}
	if id, ok := p.EntityID(0); !ok || id != "a" {
		t.Fatalf("EntityID(0)=%q,%v", id, ok)
	}
	if _, ok := p.IndexOf("zz"); ok {
		t.Fatalf("unknown entity resolved")
	}
}

func TestDescriptorValidate(t *testing.T) {
	cases := []struct {
		d  Descriptor
		ok bool
	}{
		{Descriptor{ID: "a", Capacity: 2}, true},
		{Descriptor{Capacity: 2}, false},
		{Descriptor{ID: "a", Capacity: -1}, false},
		{Descriptor{ID: "a", Capacity: 2, EntityIDs: []string{"x"}}, false},
		{Descriptor{ID: "a", Capacity: 1, Scale: ScalePerInstance}, false},
	}
	for i, c := range cases {
		if err := c.d.Validate(); (err == nil) != c.ok {
			t.Fatalf("case %d: err=%v", i, err)
		}
	}
}
