package interact

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/simctx"
)

type Mode int

const (
	ModePush Mode = iota
	ModePickup
	ModeSelect
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModePickup:
		return "pickup"
	case ModeSelect:
		return "select"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "push":
		return ModePush, nil
	case "pickup":
		return ModePickup, nil
	case "select":
		return ModeSelect, nil
	}
	return 0, fmt.Errorf("unknown interaction mode %q", s)
}

type Config struct {
	// PickRadius is the uniform sphere radius used for ray tests.
	PickRadius float64
	// PickCutoff bounds the camera distance of pickable bodies.
	PickCutoff  float64
	DragDamping float64
	DragLift    float64

	PushRadius       float64
	PushStrength     float64
	PushVelocityGain float64
	PushMax          float64

	// GroundY is the plane the pointer is projected onto for push.
	GroundY float64
}

func DefaultConfig() Config {
	return Config{
		PickRadius:       0.12,
		PickCutoff:       40,
		DragDamping:      8,
		DragLift:         0.3,
		PushRadius:       1.2,
		PushStrength:     6,
		PushVelocityGain: 0.4,
		PushMax:          10,
	}
}

// Hooks are invoked on the world goroutine. Nil hooks are skipped.
type Hooks struct {
	// Collect fires on release of a special instance; the body is left
	// kinematic for the collection animation.
	Collect func(p *pool.Pool, idx int)
	// Drop fires on release of any other picked instance.
	Drop func(p *pool.Pool, idx int, pos mgl64.Vec3)
	// Select fires when selection membership of ref changes.
	Select func(ref pool.Ref, selected bool)
}

type grab struct {
	ref         pool.Ref
	gen         uint64
	offset      mgl64.Vec3
	pinnedY     float64
	prevDamping float64
}

// Controller turns pointer input into picks, drags, pushes and selection
// changes. It must only be used from the world goroutine.
type Controller struct {
	cfg   Config
	ctx   *simctx.Context
	hooks Hooks

	cam    Camera
	canvas Canvas

	mode       Mode
	pending    Mode
	hasPending bool

	down       bool
	hasPointer bool
	ray        Ray
	ground     mgl64.Vec3
	lastGround mgl64.Vec3
	groundVel  mgl64.Vec3

	grab     *grab
	selected map[pool.Ref]bool
	hover    pool.Ref
	hovering bool
}

func NewController(cfg Config, ctx *simctx.Context, hooks Hooks) *Controller {
	return &Controller{
		cfg:      cfg,
		ctx:      ctx,
		hooks:    hooks,
		cam:      DefaultCamera(),
		canvas:   Canvas{Width: 1, Height: 1},
		selected: map[pool.Ref]bool{},
	}
}

func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches the interaction mode. During a gesture the switch is
// deferred until release; the return value reports whether it applied now.
func (c *Controller) SetMode(m Mode) bool {
	if c.down {
		c.pending, c.hasPending = m, true
		return false
	}
	c.mode = m
	c.hasPending = false
	return true
}

func (c *Controller) SetCamera(cam Camera) { c.cam = cam }
func (c *Controller) Camera() Camera       { return c.cam }

func (c *Controller) SetCanvas(cv Canvas) {
	c.canvas = cv
	if a := cv.Aspect(); a > 0 {
		c.cam.Aspect = a
	}
}

// RayAt builds the camera ray through a client point.
func (c *Controller) RayAt(clientX, clientY float64) Ray {
	x, y := c.canvas.NDC(clientX, clientY)
	return c.cam.Ray(x, y)
}

// Handle processes one pointer event.
func (c *Controller) Handle(ev PointerEvent) Disposition {
	disp := Disposition{PreventDefault: !ev.NonCapturing}
	if c.ctx.Transitioning() {
		return disp
	}
	cx, cy := ev.Position()
	c.ray = c.RayAt(cx, cy)
	if g, ok := c.ray.PlaneY(c.cfg.GroundY); ok {
		if !c.hasPointer {
			c.lastGround = g
		}
		c.ground = g
		c.hasPointer = true
	}

	switch ev.Type {
	case PointerDown:
		// A second down (multi-touch or a lost up) ends the current grab
		// before anything new is picked.
		c.release()
		c.down = true
		disp.Handled = true
		switch c.mode {
		case ModePickup:
			c.beginGrab(c.ray)
		case ModeSelect:
			c.toggle(c.ray)
		}
	case PointerMove:
		if c.mode == ModeSelect && !c.down {
			c.hover, c.hovering = c.Pick(c.ray)
		}
	case PointerUp, PointerCancel:
		disp.Handled = c.down
		c.release()
		c.down = false
		c.hasPointer = false
		if c.hasPending {
			c.mode = c.pending
			c.hasPending = false
		}
	}
	return disp
}

// Pick returns the nearest live body hit by r within the camera cutoff,
// skipping collecting and dragged bodies. Ties keep the first hit in pool
// order.
func (c *Controller) Pick(r Ray) (pool.Ref, bool) {
	best := pool.Ref{}
	bestT := math.Inf(1)
	found := false
	for _, p := range c.ctx.Pools() {
		for i := 0; i < p.Len(); i++ {
			if p.HasTag(i, pool.TagCollecting|pool.TagDragging) {
				continue
			}
			b, ok := p.Body(i)
			if !ok {
				continue
			}
			center := b.Position()
			if c.cfg.PickCutoff > 0 && center.Sub(r.Origin).Len() > c.cfg.PickCutoff {
				continue
			}
			t, hit := raySphere(r, center, c.cfg.PickRadius)
			if hit && t < bestT {
				best, bestT, found = pool.Ref{Pool: p.ID(), Index: i}, t, true
			}
		}
	}
	return best, found
}

func raySphere(r Ray, center mgl64.Vec3, radius float64) (float64, bool) {
	return physics.RaySphere(r.Origin, r.Dir, center, radius)
}

func (c *Controller) beginGrab(r Ray) {
	ref, ok := c.Pick(r)
	if !ok {
		return
	}
	p, ok := c.ctx.Pool(ref.Pool)
	if !ok {
		return
	}
	b, ok := p.Body(ref.Index)
	if !ok {
		return
	}
	pos := b.Position()
	pinned := pos.Y() + c.cfg.DragLift
	var offset mgl64.Vec3
	if pt, ok := r.PlaneY(pinned); ok {
		offset = mgl64.Vec3{pos.X() - pt.X(), 0, pos.Z() - pt.Z()}
	}
	c.grab = &grab{
		ref:         ref,
		gen:         p.Generation(),
		offset:      offset,
		pinnedY:     pinned,
		prevDamping: b.LinearDamping(),
	}
	b.SetKinematic(true)
	b.SetLinearDamping(c.cfg.DragDamping)
	b.WakeUp()
	p.SetTag(ref.Index, pool.TagDragging, true)
	p.SetHighlight(ref.Index, 1)
}

// grabbed resolves the current grab, dropping it when the pool was
// rebuilt underneath it.
func (c *Controller) grabbed() (*pool.Pool, bool) {
	if c.grab == nil {
		return nil, false
	}
	p, ok := c.ctx.Pool(c.grab.ref.Pool)
	if !ok || p.Generation() != c.grab.gen {
		c.grab = nil
		return nil, false
	}
	if _, ok := p.Body(c.grab.ref.Index); !ok {
		c.grab = nil
		return nil, false
	}
	return p, true
}

func (c *Controller) release() {
	p, ok := c.grabbed()
	if !ok {
		return
	}
	g := c.grab
	c.grab = nil
	b, _ := p.Body(g.ref.Index)
	b.SetLinearDamping(g.prevDamping)
	p.SetTag(g.ref.Index, pool.TagDragging, false)
	if !c.selected[g.ref] {
		p.SetHighlight(g.ref.Index, 0)
	}
	if p.Descriptor().Special {
		if c.hooks.Collect != nil {
			c.hooks.Collect(p, g.ref.Index)
		}
		return
	}
	b.SetKinematic(false)
	b.WakeUp()
	if c.hooks.Drop != nil {
		c.hooks.Drop(p, g.ref.Index, b.Position())
	}
}

func (c *Controller) toggle(r Ray) {
	ref, ok := c.Pick(r)
	if !ok {
		return
	}
	on := !c.selected[ref]
	if on {
		c.selected[ref] = true
	} else {
		delete(c.selected, ref)
	}
	if p, ok := c.ctx.Pool(ref.Pool); ok {
		p.SetTag(ref.Index, pool.TagSelected, on)
		if on {
			p.SetHighlight(ref.Index, 1)
		} else {
			p.SetHighlight(ref.Index, 0)
		}
	}
	if c.hooks.Select != nil {
		c.hooks.Select(ref, on)
	}
}

// Tick advances drag-follow and push forces by dt seconds.
func (c *Controller) Tick(dt float64) {
	if c.ctx.Transitioning() || dt <= 0 {
		return
	}
	if c.hasPointer {
		c.groundVel = c.ground.Sub(c.lastGround).Mul(1 / dt)
		c.lastGround = c.ground
	}
	if p, ok := c.grabbed(); ok {
		if pt, ok := c.ray.PlaneY(c.grab.pinnedY); ok {
			b, _ := p.Body(c.grab.ref.Index)
			b.SetNextKinematicTranslation(mgl64.Vec3{pt.X() + c.grab.offset.X(), c.grab.pinnedY, pt.Z() + c.grab.offset.Z()})
		}
	}
	if c.mode == ModePush && c.down && c.hasPointer {
		c.push()
	}
}

func (c *Controller) push() {
	r := c.cfg.PushRadius
	if r <= 0 {
		return
	}
	for _, p := range c.ctx.Pools() {
		for i := 0; i < p.Len(); i++ {
			if p.HasTag(i, pool.TagCollecting|pool.TagDragging) {
				continue
			}
			b, ok := p.Body(i)
			if !ok {
				continue
			}
			f, ok := PushForce(c.cfg, b.Position(), c.ground, c.groundVel)
			if ok {
				b.AddForce(f, true)
			}
		}
	}
}

// PushForce is the force on a body at pos from a pointer at point moving
// with vel: radially away plus a velocity term, both with linear falloff,
// clamped to PushMax.
func PushForce(cfg Config, pos, point, vel mgl64.Vec3) (mgl64.Vec3, bool) {
	d := mgl64.Vec3{pos.X() - point.X(), 0, pos.Z() - point.Z()}
	dist := d.Len()
	if dist >= cfg.PushRadius {
		return mgl64.Vec3{}, false
	}
	fall := 1 - dist/cfg.PushRadius
	var dir mgl64.Vec3
	if dist > 1e-9 {
		dir = d.Mul(1 / dist)
	}
	f := dir.Mul(cfg.PushStrength * fall).Add(mgl64.Vec3{vel.X(), 0, vel.Z()}.Mul(cfg.PushVelocityGain * fall))
	if n := f.Len(); cfg.PushMax > 0 && n > cfg.PushMax {
		f = f.Mul(cfg.PushMax / n)
	}
	return f, f.Len() > 0
}

// Dragging returns the grabbed instance.
func (c *Controller) Dragging() (pool.Ref, bool) {
	if c.grab == nil {
		return pool.Ref{}, false
	}
	return c.grab.ref, true
}

func (c *Controller) Hover() (pool.Ref, bool) { return c.hover, c.hovering }

// Selected returns the selection sorted by pool then index.
func (c *Controller) Selected() []pool.Ref {
	out := make([]pool.Ref, 0, len(c.selected))
	for r := range c.selected {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pool != out[j].Pool {
			return out[i].Pool < out[j].Pool
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Reset discards drag, selection, hover and gesture state without touching
// bodies. Used when pools are about to be torn down.
func (c *Controller) Reset() {
	c.grab = nil
	c.selected = map[pool.Ref]bool{}
	c.hovering = false
	c.down = false
	c.hasPointer = false
	if c.hasPending {
		c.mode = c.pending
		c.hasPending = false
	}
}
