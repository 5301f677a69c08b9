package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/physics"
)

// CurrencySource is implemented by domains that expose balances in frames.
type CurrencySource interface {
	Currency() map[string]int64
}

func (w *World) buildFrame(tick uint64) protocol.FrameMsg {
	st := w.modes.Current()
	f := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Generation:      w.ctx.Generation(),
		Mode:            modeStateMsg(st),
		InteractMode:    w.input.Mode().String(),
		Pools:           []protocol.FramePool{},
		ZoneCount:       w.ctx.MembershipCount(),
		Collecting:      w.seq.Len(),
	}
	for _, p := range w.ctx.Pools() {
		d := p.Descriptor()
		n := p.Len()
		fp := protocol.FramePool{
			ID:         d.ID,
			Material:   d.Material.String(),
			Color:      d.Color,
			Count:      n,
			Positions:  make([]float64, 0, 3*n),
			Rotations:  make([]float64, 0, 4*n),
			Scales:     make([]float64, 0, n),
			Highlights: make([]float64, 0, n),
		}
		for i := 0; i < n; i++ {
			m, _ := p.Matrix(i)
			pos, rot, s := decompose(m)
			fp.Positions = append(fp.Positions, pos.X(), pos.Y(), pos.Z())
			fp.Rotations = append(fp.Rotations, rot.V.X(), rot.V.Y(), rot.V.Z(), rot.W)
			fp.Scales = append(fp.Scales, s)
			fp.Highlights = append(fp.Highlights, p.Highlight(i))
		}
		f.Pools = append(f.Pools, fp)
		p.ClearDirty()
	}
	for _, r := range w.input.Selected() {
		f.Selected = append(f.Selected, protocol.InstanceRef{Pool: r.Pool, Index: r.Index})
	}
	if r, ok := w.input.Dragging(); ok {
		f.Dragging = &protocol.InstanceRef{Pool: r.Pool, Index: r.Index}
	}
	if cs, ok := w.domain.(CurrencySource); ok {
		f.Currency = cs.Currency()
	}
	return f
}

// Frame builds the current frame without broadcasting it.
func (w *World) Frame() protocol.FrameMsg { return w.buildFrame(w.tick.Load()) }

// decompose splits a uniform-scale TRS matrix.
func decompose(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, float64) {
	s := physics.ScaleOf(m)
	pos := physics.TranslationOf(m)
	if s == 0 {
		return pos, mgl64.QuatIdent(), 0
	}
	r := m.Mat3().Mul(1 / s)
	return pos, mgl64.Mat4ToQuat(r.Mat4()).Normalize(), s
}

func (w *World) welcome(clientID string) protocol.WelcomeMsg {
	msg := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       clientID,
		TickRateHz:      w.cfg.Tuning.TickRateHz,
		Mode:            modeStateMsg(w.modes.Current()),
		InteractMode:    w.input.Mode().String(),
		Generation:      w.ctx.Generation(),
	}
	msg.Catalogs.TuningDigest = w.cfg.TuningDigest
	if w.cfg.Catalogs != nil {
		msg.Catalogs.GemsDigest = w.cfg.Catalogs.Gems.Digest
		msg.Catalogs.PaletteDigest = w.cfg.Catalogs.Gems.PaletteDigest
	}
	return msg
}
