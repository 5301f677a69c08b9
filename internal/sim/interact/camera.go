package interact

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera. FovY is in degrees.
type Camera struct {
	Eye    mgl64.Vec3 `json:"eye"`
	Target mgl64.Vec3 `json:"target"`
	Up     mgl64.Vec3 `json:"up"`
	FovY   float64    `json:"fov_y"`
	Near   float64    `json:"near"`
	Far    float64    `json:"far"`
	Aspect float64    `json:"aspect"`
}

func DefaultCamera() Camera {
	return Camera{
		Eye:    mgl64.Vec3{0, 8, 8},
		Target: mgl64.Vec3{0, 0, 0},
		Up:     mgl64.Vec3{0, 1, 0},
		FovY:   50,
		Near:   0.1,
		Far:    200,
		Aspect: 16.0 / 9.0,
	}
}

type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

func (r Ray) At(t float64) mgl64.Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

// PlaneY intersects the ray with the horizontal plane at height y.
func (r Ray) PlaneY(y float64) (mgl64.Vec3, bool) {
	if math.Abs(r.Dir.Y()) < 1e-12 {
		return mgl64.Vec3{}, false
	}
	t := (y - r.Origin.Y()) / r.Dir.Y()
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}

func (c Camera) normalized() Camera {
	d := DefaultCamera()
	if c.FovY <= 0 || c.FovY >= 180 {
		c.FovY = d.FovY
	}
	if c.Near <= 0 {
		c.Near = d.Near
	}
	if c.Far <= c.Near {
		c.Far = c.Near * 1000
	}
	if c.Aspect <= 0 {
		c.Aspect = d.Aspect
	}
	if c.Up.Len() == 0 {
		c.Up = d.Up
	}
	return c
}

// Ray unprojects normalized device coordinates (x right, y up, both in
// [-1,1]) into a world ray leaving the near plane.
func (c Camera) Ray(ndcX, ndcY float64) Ray {
	c = c.normalized()
	inv := c.viewProj().Inv()
	near := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, 1}, inv)
	dir := far.Sub(near)
	if dir.Len() == 0 {
		dir = c.Target.Sub(c.Eye)
	}
	return Ray{Origin: near, Dir: dir.Normalize()}
}

// Project maps a world point to normalized device coordinates. ok is false
// for points behind the eye.
func (c Camera) Project(p mgl64.Vec3) (ndcX, ndcY float64, ok bool) {
	c = c.normalized()
	clip := c.viewProj().Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-12 {
		return 0, 0, false
	}
	return clip.X() / clip.W(), clip.Y() / clip.W(), true
}

func (c Camera) viewProj() mgl64.Mat4 {
	proj := mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
	view := mgl64.LookAtV(c.Eye, c.Target, c.Up)
	return proj.Mul4(view)
}
