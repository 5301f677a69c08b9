package collect

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
)

func TestScaleMultiplierCurve(t *testing.T) {
	for _, tc := range []struct {
		p, want float64
	}{
		{0, 1},
		{0.15, 2},
		{0.3, 3},
		{0.65, 1.5},
		{1, 0},
	} {
		if got := ScaleMultiplier(tc.p); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("mult(%v)=%v want %v", tc.p, got, tc.want)
		}
	}
	prev := ScaleMultiplier(0)
	for p := 0.01; p <= PeakAt+1e-9; p += 0.01 {
		m := ScaleMultiplier(p)
		if m < prev {
			t.Fatalf("not rising at p=%v", p)
		}
		prev = m
	}
	for p := PeakAt + 0.01; p <= 1; p += 0.01 {
		m := ScaleMultiplier(p)
		if m > prev {
			t.Fatalf("not falling at p=%v", p)
		}
		prev = m
	}
}

func TestAdvanceAnimatesAndFinishes(t *testing.T) {
	w := physics.NewWorld(physics.DefaultConfig())
	p := pool.New(pool.Descriptor{ID: "gem", Capacity: 2, BaseSize: 0.2}, 3)
	p.Mount(w, func(i int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{float64(i), 1, 0}, mgl64.QuatIdent()
	})
	lookup := func(id string) (*pool.Pool, bool) { return p, id == p.ID() }

	s := New(Config{Duration: time.Second, RiseRate: 0.01})
	t0 := time.Unix(100, 0)
	if !s.Start(t0, p, 1) {
		t.Fatalf("start failed")
	}
	if s.Start(t0, p, 1) {
		t.Fatalf("duplicate start accepted")
	}
	if !p.HasTag(1, pool.TagCollecting) {
		t.Fatalf("instance not tagged collecting")
	}
	b, _ := p.Body(1)
	if !b.IsKinematic() {
		t.Fatalf("collecting body should be kinematic")
	}

	if done := s.Advance(t0.Add(300*time.Millisecond), lookup); len(done) != 0 {
		t.Fatalf("finished early: %v", done)
	}
	m, _ := p.Matrix(1)
	if got := physics.ScaleOf(m); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("peak scale=%v want 0.6", got)
	}
	w.Step(1.0 / 60)
	if y := b.Position().Y(); math.Abs(y-1.01) > 1e-9 {
		t.Fatalf("body y=%v want nudged to 1.01", y)
	}

	done := s.Advance(t0.Add(time.Second), lookup)
	if len(done) != 1 || done[0].Ref != (pool.Ref{Pool: "gem", Index: 1}) {
		t.Fatalf("done=%v", done)
	}
	if s.Len() != 0 {
		t.Fatalf("record not removed")
	}
}

func TestAdvanceDropsStaleGeneration(t *testing.T) {
	w := physics.NewWorld(physics.DefaultConfig())
	p := pool.New(pool.Descriptor{ID: "gem", Capacity: 1}, 1)
	p.Mount(w, func(int) (mgl64.Vec3, mgl64.Quat) { return mgl64.Vec3{0, 1, 0}, mgl64.QuatIdent() })
	s := New(Config{Duration: time.Second})
	s.Start(time.Unix(0, 0), p, 0)

	p.Clear(w)
	next := pool.New(pool.Descriptor{ID: "gem", Capacity: 1}, 2)
	next.Mount(w, func(int) (mgl64.Vec3, mgl64.Quat) { return mgl64.Vec3{}, mgl64.QuatIdent() })
	done := s.Advance(time.Unix(5, 0), func(string) (*pool.Pool, bool) { return next, true })
	if len(done) != 0 || s.Len() != 0 {
		t.Fatalf("stale record survived: done=%v len=%d", done, s.Len())
	}
}
