package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/pool"
)

func (w *World) step(joins []JoinRequest, leaves []string, inputs []Input) {
	start := time.Now()
	tick := w.tick.Load()
	w.now = w.cfg.Epoch.Add(time.Duration(tick) * w.tickDt)

	w.handleLeaves(leaves)
	w.handleJoins(joins)

	if w.remount {
		// The tick after teardown only mounts; nothing is stepped on it.
		w.finishTransition()
		for _, in := range inputs {
			w.sendError(in.ClientID, protocol.ErrTransitioning, "transition in progress")
		}
		if w.metrics != nil {
			w.metrics.TickSkipped()
		}
		w.broadcast(w.buildFrame(tick))
		w.endTick(tick, start)
		return
	}

	for _, in := range inputs {
		w.applyInput(in)
	}
	if !w.ctx.Transitioning() && w.reconfigure.Swap(false) {
		w.beginTransition("reconfigure")
		if w.metrics != nil {
			w.metrics.TickSkipped()
		}
	}
	if w.ctx.Transitioning() {
		w.endTick(tick, start)
		return
	}

	w.input.Tick(w.dt)
	w.runFaucets(tick)
	w.phys.Step(w.dt)
	w.syncMatrices(tick)
	for _, r := range w.seq.Advance(w.now, w.ctx.Pool) {
		if p, ok := w.ctx.Pool(r.Ref.Pool); ok {
			p.Retire(r.Ref.Index, w.cfg.Tuning.RetireDepth)
		}
	}
	w.zonePass()
	w.domain.Tick(w.now)

	if every := uint64(w.cfg.Tuning.FrameEveryTicks); every <= 1 || tick%every == 0 {
		w.broadcast(w.buildFrame(tick))
	}
	w.endTick(tick, start)
}

func (w *World) endTick(tick uint64, start time.Time) {
	for _, ev := range w.pending {
		ev.Tick = tick
		w.broadcast(ev)
	}
	w.pending = w.pending[:0]
	if w.metrics != nil {
		w.metrics.ObserveTick(time.Since(start))
	}
	w.tick.Store(tick + 1)
	w.publishStatus(tick + 1)
}

func (w *World) applyInput(in Input) {
	c := w.clients[in.ClientID]
	if in.ClientID != "" && (c == nil || !c.controller) {
		w.sendError(in.ClientID, protocol.ErrBadRequest, "observer clients cannot send input")
		return
	}
	switch {
	case in.Pointer != nil:
		w.input.Handle(*in.Pointer)
	case in.Mode != nil:
		w.setMode(*in.Mode)
	case in.InteractMode != nil:
		w.input.SetMode(*in.InteractMode)
	case in.Camera != nil:
		w.input.SetCamera(in.Camera.Camera)
		w.input.SetCanvas(in.Camera.Canvas)
	case in.Reset:
		if w.ctx.Transitioning() {
			w.sendError(in.ClientID, protocol.ErrTransitioning, "transition in progress")
			return
		}
		w.resetScene()
	}
}

// ApplyInput runs one input immediately on the caller's goroutine. Only
// for use when the loop is not running.
func (w *World) ApplyInput(in Input) { w.applyInput(in) }

func (w *World) runFaucets(tick uint64) {
	for _, id := range w.faucetOrder {
		f := w.faucets[id]
		if !f.Enabled() {
			continue
		}
		for _, p := range w.ctx.Pools() {
			if p.Descriptor().FaucetID != id {
				continue
			}
			tp, ok := f.Tick(w.now, p, w.zoneOf(p))
			if !ok {
				continue
			}
			if w.metrics != nil {
				w.metrics.FaucetTeleport(id)
			}
			w.emitAt(protocol.EventMsg{Kind: protocol.EventFaucet, Pool: tp.Pool, Index: tp.Index, Data: map[string]any{"faucet": id}},
				[]float64{tp.Target.X(), tp.Target.Y(), tp.Target.Z()})
		}
	}
}

// syncMatrices copies body poses into render matrices. Collecting
// instances are owned by the sequencer; sleeping bodies are refreshed only
// every SleepSyncStride ticks.
func (w *World) syncMatrices(tick uint64) {
	stride := uint64(w.cfg.Tuning.SleepSyncStride)
	sleepPass := stride <= 1 || tick%stride == 0
	gen := w.ctx.Generation()
	for _, p := range w.ctx.Pools() {
		if p.Generation() != gen {
			continue
		}
		synced := false
		for i := 0; i < p.Len(); i++ {
			if p.HasTag(i, pool.TagCollecting) {
				continue
			}
			b, ok := p.Body(i)
			if !ok {
				continue
			}
			if b.IsSleeping() && !sleepPass {
				continue
			}
			if p.Sync(i, b) {
				synced = true
			}
		}
		if synced {
			p.MarkDirty()
		}
	}
}

// zonePass recomputes which gem instances rest inside the drag zone of
// the current action.
func (w *World) zonePass() {
	st := w.modes.Current()
	if !st.TracksZone() {
		return
	}
	dz, ok := w.cfg.Tuning.DragZone(st.Action.String())
	if !ok {
		return
	}
	var members []pool.Ref
	for _, p := range w.ctx.Pools() {
		if p.Descriptor().Material != pool.MaterialGem {
			continue
		}
		for i := 0; i < p.Len(); i++ {
			if p.HasTag(i, pool.TagDragging|pool.TagCollecting) {
				continue
			}
			b, ok := p.Body(i)
			if !ok {
				continue
			}
			pos := b.Position()
			if pos.Y() < w.cfg.Tuning.ZoneFloorY || !dz.Classify(pos.X(), pos.Y(), pos.Z()) {
				continue
			}
			members = append(members, pool.Ref{Pool: p.ID(), Index: i})
		}
	}
	w.ctx.SetMembership(members)
	w.lastZone = w.ctx.Membership()
	w.domain.OnZoneMembership(len(w.lastZone), w.lastZone)
}

// ZoneMembers returns the last computed zone membership.
func (w *World) ZoneMembers() []pool.Ref { return append([]pool.Ref(nil), w.lastZone...) }

func (w *World) onPickupCollect(p *pool.Pool, idx int) {
	if !w.seq.Start(w.now, p, idx) {
		return
	}
	if w.metrics != nil {
		w.metrics.Collected(p.ID())
	}
	w.domain.OnCollect(p.ID(), idx)
	ent, _ := p.EntityID(idx)
	w.emit(protocol.EventMsg{Kind: protocol.EventCollect, Pool: p.ID(), Index: idx, EntityID: ent})
}

// onPickupDrop reports where a released gem landed relative to the drag
// zone of the current action.
func (w *World) onPickupDrop(p *pool.Pool, idx int, pos mgl64.Vec3) {
	st := w.modes.Current()
	if !st.TracksZone() || p.Descriptor().Material != pool.MaterialGem {
		return
	}
	dz, ok := w.cfg.Tuning.DragZone(st.Action.String())
	if !ok {
		return
	}
	in := pos.Y() >= w.cfg.Tuning.ZoneFloorY && dz.Classify(pos.X(), pos.Y(), pos.Z())
	w.domain.OnZoneDrop(p.ID(), idx, in)
	ent, _ := p.EntityID(idx)
	w.emitAt(protocol.EventMsg{Kind: protocol.EventZoneDrop, Pool: p.ID(), Index: idx, EntityID: ent, InZone: in, Data: map[string]any{"action": st.Action.String()}},
		[]float64{pos.X(), pos.Y(), pos.Z()})
}

// Emit queues a domain event for the current tick.
func (w *World) Emit(ev protocol.EventMsg) { w.emit(ev) }

func (w *World) emit(ev protocol.EventMsg) { w.emitAt(ev, nil) }

func (w *World) emitAt(ev protocol.EventMsg, pos []float64) {
	ev.Type = protocol.TypeEvent
	ev.ProtocolVersion = protocol.Version
	ev.Tick = w.tick.Load()
	w.pending = append(w.pending, ev)
	if w.eventLogger == nil {
		return
	}
	err := w.eventLogger.WriteEvent(EventLogEntry{
		Tick:       ev.Tick,
		Kind:       ev.Kind,
		Generation: w.ctx.Generation(),
		Mode:       w.modes.Current().String(),
		Pool:       ev.Pool,
		Index:      ev.Index,
		EntityID:   ev.EntityID,
		InZone:     ev.InZone,
		Pos:        pos,
		Data:       ev.Data,
	})
	if err != nil {
		w.logf("event log: %v", err)
	}
}
