package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/mode"
	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/zone"
)

// Mode returns the current scene and action.
func (w *World) Mode() mode.State { return w.modes.Current() }

// setMode requests a scene/action change. Re-entering the current state is
// a no-op.
func (w *World) setMode(next mode.State) bool {
	prev, ok := w.modes.Request(next)
	if !ok {
		return false
	}
	w.logf("mode %s -> %s", prev, w.modes.Current())
	w.beginTransition("mode")
	return true
}

// RequestReconfigure rebuilds the active pools on the next tick without a
// mode change. Safe from any goroutine.
func (w *World) RequestReconfigure() { w.reconfigure.Store(true) }

// beginTransition tears the active pools down. The flag is raised first
// and cleared by finishTransition once the next generation is mounted.
func (w *World) beginTransition(reason string) {
	w.ctx.SetTransitioning(true)
	w.input.Reset()
	w.seq.Reset()
	w.ctx.ClearMembership()
	w.lastZone = nil
	w.ctx.ClearPools(w.phys)
	gen := w.ctx.BumpGeneration()
	w.remount = true
	w.emit(protocol.EventMsg{Kind: protocol.EventTransition, Data: map[string]any{
		"reason":     reason,
		"mode":       w.modes.Current().String(),
		"generation": gen,
	}})
}

func (w *World) finishTransition() {
	w.mount()
	w.remount = false
	w.ctx.SetTransitioning(false)
}

// mount builds the pools of the current mode at the current generation.
func (w *World) mount() {
	st := w.modes.Current()
	gen := w.ctx.Generation()
	descs := w.domain.Descriptors(st)
	pools := make([]*pool.Pool, 0, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			w.logf("mount: skip pool: %v", err)
			continue
		}
		p := pool.New(d, gen)
		p.Mount(w.phys, w.placer(d))
		if d.FaucetID != "" {
			for i := 0; i < p.Len(); i++ {
				p.Retire(i, w.cfg.Tuning.RetireDepth-float64(i%8))
			}
		}
		pools = append(pools, p)
		if w.metrics != nil {
			w.metrics.SetLiveBodies(p.ID(), p.Live())
		}
	}
	w.ctx.SetPools(pools)
	scene := st.Scene.String()
	for _, id := range w.faucetOrder {
		spec := w.faucetSpec[id]
		w.faucets[id].SetEnabled(spec.Enabled && spec.RunsIn(scene))
	}
	if w.metrics != nil {
		w.metrics.SetGeneration(gen)
	}
	w.logf("mounted %s gen=%d pools=%d bodies=%d", st, gen, len(pools), w.phys.Len())
}

// placer samples each instance's spawn zone with a random yaw.
func (w *World) placer(d pool.Descriptor) func(i int) (mgl64.Vec3, mgl64.Quat) {
	return func(i int) (mgl64.Vec3, mgl64.Quat) {
		z, ok := w.zones[d.ZoneFor(i)]
		if !ok {
			z = zone.Spawn{Kind: zone.KindCircle, Radius: 1, Center: mgl64.Vec3{0, 1, 0}}
		}
		yaw := w.rng.Float64() * 2 * math.Pi
		return z.Sample(w.rng), mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})
	}
}

func (w *World) zoneOf(p *pool.Pool) func(i int) (zone.Spawn, bool) {
	d := p.Descriptor()
	return func(i int) (zone.Spawn, bool) {
		z, ok := w.zones[d.ZoneFor(i)]
		return z, ok
	}
}

// resetScene discards drag, selection and collection records and
// re-scatters the active pools. Faucet pools are parked for refilling.
func (w *World) resetScene() {
	if w.ctx.Transitioning() {
		return
	}
	w.input.Reset()
	w.seq.Reset()
	w.ctx.ClearMembership()
	w.lastZone = nil
	for _, p := range w.ctx.Pools() {
		d := p.Descriptor()
		place := w.placer(d)
		p.ClearTags(pool.TagSelected | pool.TagDragging | pool.TagCollecting)
		for i := 0; i < p.Len(); i++ {
			b, ok := p.Body(i)
			if !ok {
				continue
			}
			if d.FaucetID != "" {
				p.Retire(i, w.cfg.Tuning.RetireDepth-float64(i%8))
				continue
			}
			pos, rot := place(i)
			b.SetKinematic(false)
			b.SetTranslation(pos, true)
			b.SetLinearVelocity(mgl64.Vec3{}, false)
			b.SetAngularVelocity(mgl64.Vec3{}, false)
			p.SetHighlight(i, 0)
			p.SetMatrix(i, physics.Compose(pos, rot, p.BaseScale(i)))
		}
		p.MarkDirty()
	}
	w.emit(protocol.EventMsg{Kind: protocol.EventTransition, Data: map[string]any{"reason": "reset", "mode": w.modes.Current().String()}})
}
