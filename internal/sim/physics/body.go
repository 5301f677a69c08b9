package physics

import "github.com/go-gl/mathgl/mgl64"

// Body is the backend-neutral view of one rigid body. A body removed from
// its world stays addressable but reports Valid() == false and ignores writes.
type Body interface {
	ID() uint64
	Valid() bool

	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	LinearVelocity() mgl64.Vec3
	Radius() float64

	SetTranslation(p mgl64.Vec3, wake bool)
	SetLinearVelocity(v mgl64.Vec3, wake bool)
	SetAngularVelocity(v mgl64.Vec3, wake bool)
	// SetNextKinematicTranslation moves a kinematic body on the next step;
	// the step derives its velocity from the displacement.
	SetNextKinematicTranslation(p mgl64.Vec3)
	AddForce(f mgl64.Vec3, wake bool)
	ApplyImpulse(j mgl64.Vec3, wake bool)

	IsSleeping() bool
	WakeUp()
	Sleep()

	IsKinematic() bool
	SetKinematic(kinematic bool)

	LinearDamping() float64
	SetLinearDamping(d float64)
}

type BodyDesc struct {
	Position  mgl64.Vec3
	Rotation  mgl64.Quat
	Velocity  mgl64.Vec3
	Radius    float64
	Mass      float64
	Kinematic bool
	Sleeping  bool
}

type rigidBody struct {
	w     *World
	id    uint64
	index int
	alive bool

	pos    mgl64.Vec3
	rot    mgl64.Quat
	vel    mgl64.Vec3
	angVel mgl64.Vec3
	force  mgl64.Vec3

	radius  float64
	invMass float64
	linDamp float64

	kinematic    bool
	kinTarget    mgl64.Vec3
	hasKinTarget bool

	sleeping bool
	quiet    int
}

func (b *rigidBody) ID() uint64  { return b.id }
func (b *rigidBody) Valid() bool { return b != nil && b.alive }

func (b *rigidBody) Position() mgl64.Vec3 {
	if !b.Valid() {
		return mgl64.Vec3{}
	}
	return b.pos
}

func (b *rigidBody) Rotation() mgl64.Quat {
	if !b.Valid() {
		return mgl64.QuatIdent()
	}
	return b.rot
}

func (b *rigidBody) LinearVelocity() mgl64.Vec3 {
	if !b.Valid() {
		return mgl64.Vec3{}
	}
	return b.vel
}

func (b *rigidBody) Radius() float64 {
	if !b.Valid() {
		return 0
	}
	return b.radius
}

func (b *rigidBody) SetTranslation(p mgl64.Vec3, wake bool) {
	if !b.Valid() {
		return
	}
	b.pos = p
	b.hasKinTarget = false
	if wake {
		b.WakeUp()
	}
}

func (b *rigidBody) SetLinearVelocity(v mgl64.Vec3, wake bool) {
	if !b.Valid() {
		return
	}
	b.vel = v
	if wake {
		b.WakeUp()
	}
}

func (b *rigidBody) SetAngularVelocity(v mgl64.Vec3, wake bool) {
	if !b.Valid() {
		return
	}
	b.angVel = v
	if wake {
		b.WakeUp()
	}
}

func (b *rigidBody) SetNextKinematicTranslation(p mgl64.Vec3) {
	if !b.Valid() || !b.kinematic {
		return
	}
	b.kinTarget = p
	b.hasKinTarget = true
}

func (b *rigidBody) AddForce(f mgl64.Vec3, wake bool) {
	if !b.Valid() || b.kinematic {
		return
	}
	b.force = b.force.Add(f)
	if wake {
		b.WakeUp()
	}
}

func (b *rigidBody) ApplyImpulse(j mgl64.Vec3, wake bool) {
	if !b.Valid() || b.kinematic {
		return
	}
	b.vel = b.vel.Add(j.Mul(b.invMass))
	if wake {
		b.WakeUp()
	}
}

func (b *rigidBody) IsSleeping() bool { return b.Valid() && b.sleeping }

func (b *rigidBody) WakeUp() {
	if !b.Valid() {
		return
	}
	b.sleeping = false
	b.quiet = 0
}

func (b *rigidBody) Sleep() {
	if !b.Valid() {
		return
	}
	b.sleeping = true
	b.vel = mgl64.Vec3{}
	b.angVel = mgl64.Vec3{}
	b.force = mgl64.Vec3{}
}

func (b *rigidBody) IsKinematic() bool { return b.Valid() && b.kinematic }

func (b *rigidBody) SetKinematic(kinematic bool) {
	if !b.Valid() || b.kinematic == kinematic {
		return
	}
	b.kinematic = kinematic
	b.hasKinTarget = false
	b.force = mgl64.Vec3{}
	if !kinematic {
		b.vel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
	}
	b.WakeUp()
}

func (b *rigidBody) LinearDamping() float64 {
	if !b.Valid() {
		return 0
	}
	return b.linDamp
}

func (b *rigidBody) SetLinearDamping(d float64) {
	if !b.Valid() {
		return
	}
	if d < 0 {
		d = 0
	}
	b.linDamp = d
}

func (b *rigidBody) effectiveInvMass() float64 {
	if b.kinematic {
		return 0
	}
	return b.invMass
}
