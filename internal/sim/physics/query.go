package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RaySphere returns the smallest non-negative ray parameter at which the ray
// (origin + t*dir, dir normalized) enters the sphere.
func RaySphere(origin, dir, center mgl64.Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Compose builds a render matrix from a body pose and a uniform scale.
func Compose(pos mgl64.Vec3, rot mgl64.Quat, scale float64) mgl64.Mat4 {
	return mgl64.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(scale, scale, scale))
}

// ScaleOf extracts the uniform scale of a matrix built by Compose.
func ScaleOf(m mgl64.Mat4) float64 {
	return m.Col(0).Vec3().Len()
}

// TranslationOf extracts the translation column of m.
func TranslationOf(m mgl64.Mat4) mgl64.Vec3 {
	return m.Col(3).Vec3()
}
