package pool

import (
	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/sim/physics"
)

// Ref addresses one instance by pool id and index.
type Ref struct {
	Pool  string `json:"pool"`
	Index int    `json:"index"`
}

type Tag uint8

const (
	TagSelected Tag = 1 << iota
	TagDragging
	TagCollecting
)

// Handle pairs a body with the pool generation that created it.
type Handle struct {
	Body physics.Body
	Gen  uint64
}

// Pool is a fixed-capacity set of bodies and render instances of one
// Descriptor. Index i addresses the body, matrix, highlight and tags of
// the same instance. Clear empties every array; accessors then report
// misses instead of panicking.
type Pool struct {
	desc Descriptor
	gen  uint64

	handles   []Handle
	matrices  []mgl64.Mat4
	highlight []float64
	tags      []Tag
	entity    map[string]int

	dirty bool
}

func New(desc Descriptor, gen uint64) *Pool {
	p := &Pool{
		desc:   desc,
		gen:    gen,
		entity: make(map[string]int, len(desc.EntityIDs)),
	}
	for i, id := range desc.EntityIDs {
		p.entity[id] = i
	}
	return p
}

// Mount creates Capacity bodies in w; place returns the initial pose of
// instance i.
func (p *Pool) Mount(w *physics.World, place func(i int) (mgl64.Vec3, mgl64.Quat)) {
	n := p.desc.Capacity
	p.handles = make([]Handle, n)
	p.matrices = make([]mgl64.Mat4, n)
	p.highlight = make([]float64, n)
	p.tags = make([]Tag, n)
	for i := 0; i < n; i++ {
		pos, rot := place(i)
		b := w.AddBody(physics.BodyDesc{
			Position: pos,
			Rotation: rot,
			Radius:   p.desc.ColliderRadius(i),
			Mass:     p.desc.Mass,
		})
		p.handles[i] = Handle{Body: b, Gen: p.gen}
		p.matrices[i] = physics.Compose(pos, rot, p.desc.InstanceScale(i))
	}
	p.dirty = true
}

// Clear removes the pool's bodies from w (w may be nil when the world was
// already cleared) and empties every live-reference array.
func (p *Pool) Clear(w *physics.World) {
	if w != nil {
		for _, h := range p.handles {
			if h.Body != nil {
				w.Remove(h.Body)
			}
		}
	}
	p.handles = p.handles[:0]
	p.matrices = p.matrices[:0]
	p.highlight = p.highlight[:0]
	p.tags = p.tags[:0]
	p.dirty = false
}

func (p *Pool) ID() string             { return p.desc.ID }
func (p *Pool) Descriptor() Descriptor { return p.desc }
func (p *Pool) Generation() uint64     { return p.gen }
func (p *Pool) Len() int               { return len(p.handles) }
func (p *Pool) Capacity() int          { return p.desc.Capacity }

// Body returns the body of instance i when the reference is live: in
// range, of the pool's generation, and not removed from the world.
func (p *Pool) Body(i int) (physics.Body, bool) {
	if i < 0 || i >= len(p.handles) {
		return nil, false
	}
	h := p.handles[i]
	if h.Body == nil || h.Gen != p.gen || !h.Body.Valid() {
		return nil, false
	}
	return h.Body, true
}

func (p *Pool) Matrix(i int) (mgl64.Mat4, bool) {
	if i < 0 || i >= len(p.matrices) {
		return mgl64.Mat4{}, false
	}
	return p.matrices[i], true
}

func (p *Pool) SetMatrix(i int, m mgl64.Mat4) bool {
	if i < 0 || i >= len(p.matrices) {
		return false
	}
	p.matrices[i] = m
	return true
}

// BaseScale is the render scale an instance has outside animations.
func (p *Pool) BaseScale(i int) float64 { return p.desc.InstanceScale(i) }

// Sync recomposes instance i from body b keeping its current render scale.
func (p *Pool) Sync(i int, b physics.Body) bool {
	m, ok := p.Matrix(i)
	if !ok || b == nil || !b.Valid() {
		return false
	}
	s := physics.ScaleOf(m)
	if s == 0 {
		s = p.BaseScale(i)
	}
	p.matrices[i] = physics.Compose(b.Position(), b.Rotation(), s)
	return true
}

func (p *Pool) MarkDirty()  { p.dirty = true }
func (p *Pool) Dirty() bool { return p.dirty }
func (p *Pool) ClearDirty() { p.dirty = false }

func (p *Pool) HasTag(i int, t Tag) bool {
	if i < 0 || i >= len(p.tags) {
		return false
	}
	return p.tags[i]&t != 0
}

func (p *Pool) SetTag(i int, t Tag, on bool) {
	if i < 0 || i >= len(p.tags) {
		return
	}
	if on {
		p.tags[i] |= t
	} else {
		p.tags[i] &^= t
	}
}

// ClearTags removes t from every instance.
func (p *Pool) ClearTags(t Tag) {
	for i := range p.tags {
		p.tags[i] &^= t
	}
}

func (p *Pool) Highlight(i int) float64 {
	if i < 0 || i >= len(p.highlight) {
		return 0
	}
	return p.highlight[i]
}

func (p *Pool) SetHighlight(i int, v float64) {
	if i < 0 || i >= len(p.highlight) {
		return
	}
	p.highlight[i] = v
	p.dirty = true
}

func (p *Pool) IndexOf(entityID string) (int, bool) {
	i, ok := p.entity[entityID]
	if !ok || i >= len(p.handles) {
		return 0, false
	}
	return i, true
}

func (p *Pool) EntityID(i int) (string, bool) {
	if i < 0 || i >= len(p.desc.EntityIDs) || i >= len(p.handles) {
		return "", false
	}
	return p.desc.EntityIDs[i], true
}

// Retire parks instance i at depth y below the world as a sleeping dynamic
// body. The slot stays in the pool for a faucet to recycle.
func (p *Pool) Retire(i int, y float64) bool {
	b, ok := p.Body(i)
	if !ok {
		return false
	}
	pos := b.Position()
	b.SetKinematic(false)
	b.SetTranslation(mgl64.Vec3{pos.X(), y, pos.Z()}, false)
	b.Sleep()
	p.SetTag(i, TagCollecting|TagDragging|TagSelected, false)
	p.highlight[i] = 0
	p.matrices[i] = physics.Compose(b.Position(), b.Rotation(), p.BaseScale(i))
	p.dirty = true
	return true
}

// Live counts instances with a live body.
func (p *Pool) Live() int {
	n := 0
	for i := range p.handles {
		if _, ok := p.Body(i); ok {
			n++
		}
	}
	return n
}
