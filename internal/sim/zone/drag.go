package zone

import "math"

// DragZone is a static rotated rectangle on the X-Z plane.
type DragZone struct {
	X, Z  float64
	Yaw   float64
	Width float64
	Depth float64
}

// Classify reports whether (x, z) lies inside the rectangle. y is ignored;
// callers that care about height apply their own floor check.
func (d DragZone) Classify(x, y, z float64) bool {
	_ = y
	lx, lz := d.Local(x, z)
	return math.Abs(lx) <= d.Width/2 && math.Abs(lz) <= d.Depth/2
}

// Local maps a world point into the zone frame.
func (d DragZone) Local(x, z float64) (float64, float64) {
	dx := x - d.X
	dz := z - d.Z
	c := math.Cos(-d.Yaw)
	s := math.Sin(-d.Yaw)
	return dx*c - dz*s, dx*s + dz*c
}

// World maps a zone-frame point back to world X-Z.
func (d DragZone) World(lx, lz float64) (float64, float64) {
	c := math.Cos(d.Yaw)
	s := math.Sin(d.Yaw)
	return d.X + lx*c - lz*s, d.Z + lx*s + lz*c
}
