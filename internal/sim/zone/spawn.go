package zone

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

type Kind int

const (
	KindPile Kind = iota
	KindDiamond
	KindCircle
)

func (k Kind) String() string {
	switch k {
	case KindPile:
		return "pile"
	case KindDiamond:
		return "diamond"
	case KindCircle:
		return "circle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "pile":
		return KindPile, nil
	case "diamond":
		return KindDiamond, nil
	case "circle":
		return KindCircle, nil
	}
	return 0, fmt.Errorf("unknown zone kind %q", s)
}

// MaxRejections bounds diamond rejection sampling.
const MaxRejections = 64

// Spawn is a region that new or recycled instances are placed in.
// Pile: box of half extents A, B over [Y, Y+Height]. Diamond: |x|/A+|z|/B <= 1.
// Circle: disc of Radius. Y spans [Center.Y, Center.Y+Height] for every kind.
type Spawn struct {
	ID     string
	Kind   Kind
	Center mgl64.Vec3
	A, B   float64
	Radius float64
	Height float64
}

func (s Spawn) Sample(r *rand.Rand) mgl64.Vec3 {
	y := s.Center.Y() + r.Float64()*math.Max(s.Height, 0)
	var x, z float64
	switch s.Kind {
	case KindDiamond:
		x, z = s.sampleDiamond(r)
	case KindCircle:
		rad := math.Sqrt(r.Float64()) * s.Radius
		theta := r.Float64() * 2 * math.Pi
		x, z = rad*math.Cos(theta), rad*math.Sin(theta)
	default:
		x = (r.Float64()*2 - 1) * s.A
		z = (r.Float64()*2 - 1) * s.B
	}
	return mgl64.Vec3{s.Center.X() + x, y, s.Center.Z() + z}
}

func (s Spawn) sampleDiamond(r *rand.Rand) (float64, float64) {
	a, b := s.A, s.B
	if a <= 0 || b <= 0 {
		return 0, 0
	}
	for i := 0; i < MaxRejections; i++ {
		x := (r.Float64()*2 - 1) * a
		z := (r.Float64()*2 - 1) * b
		if math.Abs(x)/a+math.Abs(z)/b <= 1 {
			return x, z
		}
	}
	return 0, 0
}

// Contains tests the horizontal footprint of the zone.
func (s Spawn) Contains(p mgl64.Vec3) bool {
	x := p.X() - s.Center.X()
	z := p.Z() - s.Center.Z()
	const eps = 1e-9
	switch s.Kind {
	case KindDiamond:
		if s.A <= 0 || s.B <= 0 {
			return math.Abs(x) <= eps && math.Abs(z) <= eps
		}
		return math.Abs(x)/s.A+math.Abs(z)/s.B <= 1+eps
	case KindCircle:
		return x*x+z*z <= s.Radius*s.Radius+eps
	default:
		return math.Abs(x) <= s.A+eps && math.Abs(z) <= s.B+eps
	}
}
