package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Config struct {
	Gravity        mgl64.Vec3
	LinearDamping  float64
	AngularDamping float64
	Restitution    float64
	Friction       float64

	// Ground is an infinite plane at GroundY limited to |x|,|z| <= GroundHalfExtent.
	// Bodies deeper than GroundCatchDepth below the plane are never pushed back up.
	GroundY          float64
	GroundHalfExtent float64
	GroundCatchDepth float64

	SleepSpeed float64
	SleepSteps int

	CellSize float64
}

func DefaultConfig() Config {
	return Config{
		Gravity:          mgl64.Vec3{0, -9.81, 0},
		LinearDamping:    0.05,
		AngularDamping:   0.3,
		Restitution:      0.2,
		Friction:         0.6,
		GroundY:          0,
		GroundHalfExtent: 40,
		GroundCatchDepth: 1,
		SleepSpeed:       0.05,
		SleepSteps:       30,
		CellSize:         0.5,
	}
}

// World is a sphere-approximated rigid-body world. It is not safe for
// concurrent use; the owner steps it from one goroutine.
type World struct {
	cfg    Config
	bodies []*rigidBody
	nextID uint64

	grid  map[cellKey][]int
	pairs int
}

type cellKey struct{ x, y, z int32 }

func NewWorld(cfg Config) *World {
	if cfg.CellSize <= 0 {
		cfg.CellSize = 0.5
	}
	if cfg.SleepSteps <= 0 {
		cfg.SleepSteps = 30
	}
	return &World{
		cfg:  cfg,
		grid: map[cellKey][]int{},
	}
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Len() int { return len(w.bodies) }

// LastPairs is the number of overlapping pairs resolved in the last step.
func (w *World) LastPairs() int { return w.pairs }

func (w *World) AddBody(d BodyDesc) Body {
	w.nextID++
	rot := d.Rotation
	if rot.Len() == 0 {
		rot = mgl64.QuatIdent()
	}
	radius := d.Radius
	if radius <= 0 {
		radius = 0.05
	}
	invMass := 1.0
	if d.Mass > 0 {
		invMass = 1 / d.Mass
	}
	b := &rigidBody{
		w:         w,
		id:        w.nextID,
		index:     len(w.bodies),
		alive:     true,
		pos:       d.Position,
		rot:       rot.Normalize(),
		vel:       d.Velocity,
		radius:    radius,
		invMass:   invMass,
		linDamp:   w.cfg.LinearDamping,
		kinematic: d.Kinematic,
		sleeping:  d.Sleeping,
	}
	w.bodies = append(w.bodies, b)
	return b
}

// Remove detaches a body; the handle becomes stale. It reports false for
// bodies that are already gone or belong to another world.
func (w *World) Remove(h Body) bool {
	b, ok := h.(*rigidBody)
	if !ok || !b.Valid() || b.w != w {
		return false
	}
	last := len(w.bodies) - 1
	i := b.index
	w.bodies[i] = w.bodies[last]
	w.bodies[i].index = i
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]
	b.alive = false
	b.w = nil
	return true
}

// Clear removes every body, invalidating all handles.
func (w *World) Clear() {
	for _, b := range w.bodies {
		b.alive = false
		b.w = nil
	}
	w.bodies = w.bodies[:0]
}

// Awake returns the number of dynamic bodies that are not sleeping.
func (w *World) Awake() int {
	n := 0
	for _, b := range w.bodies {
		if !b.sleeping && !b.kinematic {
			n++
		}
	}
	return n
}

func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	w.integrate(dt)
	w.collide()
	w.ground(dt)
	w.settle()
}

func (w *World) integrate(dt float64) {
	g := w.cfg.Gravity
	linDampAng := 1 / (1 + dt*w.cfg.AngularDamping)
	for _, b := range w.bodies {
		if b.kinematic {
			if b.hasKinTarget {
				b.vel = b.kinTarget.Sub(b.pos).Mul(1 / dt)
				b.pos = b.kinTarget
				b.hasKinTarget = false
			} else {
				b.vel = mgl64.Vec3{}
			}
			continue
		}
		if b.sleeping {
			b.force = mgl64.Vec3{}
			continue
		}
		acc := g.Add(b.force.Mul(b.invMass))
		b.force = mgl64.Vec3{}
		b.vel = b.vel.Add(acc.Mul(dt)).Mul(1 / (1 + dt*b.linDamp))
		b.pos = b.pos.Add(b.vel.Mul(dt))

		b.angVel = b.angVel.Mul(linDampAng)
		if b.angVel.Len() > 0 {
			spin := mgl64.Quat{W: 0, V: b.angVel}
			b.rot = b.rot.Add(spin.Mul(b.rot).Scale(0.5 * dt)).Normalize()
		}
	}
}

func (w *World) cellOf(p mgl64.Vec3) cellKey {
	s := w.cfg.CellSize
	return cellKey{
		x: int32(math.Floor(p.X() / s)),
		y: int32(math.Floor(p.Y() / s)),
		z: int32(math.Floor(p.Z() / s)),
	}
}

// collide resolves sphere overlaps. Pairs are visited in body order so a
// step is deterministic for a given insertion order.
func (w *World) collide() {
	if len(w.grid) > 4*len(w.bodies)+64 {
		w.grid = map[cellKey][]int{}
	}
	for k, v := range w.grid {
		w.grid[k] = v[:0]
	}
	for i, b := range w.bodies {
		c := w.cellOf(b.pos)
		w.grid[c] = append(w.grid[c], i)
	}
	w.pairs = 0
	restitution := w.cfg.Restitution
	for i, a := range w.bodies {
		if a.sleeping && !a.kinematic {
			continue
		}
		c := w.cellOf(a.pos)
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					for _, j := range w.grid[cellKey{c.x + dx, c.y + dy, c.z + dz}] {
						if j == i {
							continue
						}
						b := w.bodies[j]
						// Each awake pair once; awake-vs-sleeping pairs from the awake side.
						if j < i && !(b.sleeping && !b.kinematic) {
							continue
						}
						if w.resolve(a, b, restitution) {
							w.pairs++
						}
					}
				}
			}
		}
	}
}

func (w *World) resolve(a, b *rigidBody, restitution float64) bool {
	d := b.pos.Sub(a.pos)
	minDist := a.radius + b.radius
	distSq := d.Dot(d)
	if distSq >= minDist*minDist {
		return false
	}
	ia, ib := a.effectiveInvMass(), b.effectiveInvMass()
	sum := ia + ib
	if sum == 0 {
		return false
	}
	dist := math.Sqrt(distSq)
	var n mgl64.Vec3
	if dist < 1e-9 {
		n = mgl64.Vec3{0, 1, 0}
		dist = 0
	} else {
		n = d.Mul(1 / dist)
	}
	pen := minDist - dist
	a.pos = a.pos.Sub(n.Mul(pen * ia / sum))
	b.pos = b.pos.Add(n.Mul(pen * ib / sum))

	rel := a.vel.Sub(b.vel).Dot(n)
	if rel <= 0 {
		return true
	}
	j := (1 + restitution) * rel / sum
	if ia > 0 {
		a.vel = a.vel.Sub(n.Mul(j * ia))
	}
	if ib > 0 {
		b.vel = b.vel.Add(n.Mul(j * ib))
		if b.sleeping && rel > w.cfg.SleepSpeed {
			b.WakeUp()
		}
	}
	return true
}

func (w *World) ground(dt float64) {
	gy := w.cfg.GroundY
	ext := w.cfg.GroundHalfExtent
	friction := 1 - w.cfg.Friction*dt
	if friction < 0 {
		friction = 0
	}
	for _, b := range w.bodies {
		if b.kinematic || b.sleeping {
			continue
		}
		if ext > 0 && (math.Abs(b.pos.X()) > ext || math.Abs(b.pos.Z()) > ext) {
			continue
		}
		bottom := b.pos.Y() - b.radius
		if bottom >= gy || bottom < gy-w.cfg.GroundCatchDepth-b.radius {
			continue
		}
		b.pos[1] = gy + b.radius
		if b.vel.Y() < 0 {
			b.vel[1] = -b.vel.Y() * w.cfg.Restitution
		}
		b.vel[0] *= friction
		b.vel[2] *= friction
		// Roll without slipping.
		b.angVel = mgl64.Vec3{b.vel.Z(), 0, -b.vel.X()}.Mul(1 / b.radius)
	}
}

func (w *World) settle() {
	limit := w.cfg.SleepSpeed
	for _, b := range w.bodies {
		if b.kinematic || b.sleeping {
			continue
		}
		if b.vel.Len() < limit {
			b.quiet++
			if b.quiet >= w.cfg.SleepSteps {
				b.Sleep()
			}
			continue
		}
		b.quiet = 0
	}
}
