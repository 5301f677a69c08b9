package pool

import "fmt"

type Material int

const (
	MaterialRock Material = iota
	MaterialCoin
	MaterialGem
)

func (m Material) String() string {
	switch m {
	case MaterialRock:
		return "rock"
	case MaterialCoin:
		return "coin"
	case MaterialGem:
		return "gem"
	default:
		return fmt.Sprintf("material(%d)", int(m))
	}
}

func ParseMaterial(s string) (Material, error) {
	switch s {
	case "rock":
		return MaterialRock, nil
	case "coin":
		return MaterialCoin, nil
	case "gem":
		return MaterialGem, nil
	}
	return 0, fmt.Errorf("unknown material %q", s)
}

type ColliderShape int

const (
	ColliderBall ColliderShape = iota
	ColliderCylinder
	ColliderConvex
)

func (c ColliderShape) String() string {
	switch c {
	case ColliderBall:
		return "ball"
	case ColliderCylinder:
		return "cylinder"
	case ColliderConvex:
		return "convex"
	default:
		return fmt.Sprintf("collider(%d)", int(c))
	}
}

// Collider is approximated by a sphere of Radius (in units of BaseSize)
// in the physics backend; Shape is kept for the presentation layer.
type Collider struct {
	Shape  ColliderShape
	Radius float64
}

type ScalePolicy int

const (
	ScaleUniform ScalePolicy = iota
	ScalePerInstance
)

// Descriptor describes one object category. It is produced at mode load
// and replaced wholesale on reconfiguration.
type Descriptor struct {
	ID       string
	Capacity int
	Collider Collider
	BaseSize float64
	Mass     float64
	Material Material
	Color    string

	Scale          ScalePolicy
	InstanceScales []float64

	// SpawnZone is the zone for every instance unless InstanceZones names one.
	SpawnZone     string
	InstanceZones []string

	FaucetID string

	// Special instances fire the collect callback when a pickup is released.
	Special bool

	// EntityIDs maps instance index to a stable domain id (sorted).
	EntityIDs []string
}

func (d Descriptor) InstanceScale(i int) float64 {
	s := d.BaseSize
	if s <= 0 {
		s = 1
	}
	if d.Scale == ScalePerInstance && i >= 0 && i < len(d.InstanceScales) && d.InstanceScales[i] > 0 {
		s *= d.InstanceScales[i]
	}
	return s
}

func (d Descriptor) ZoneFor(i int) string {
	if i >= 0 && i < len(d.InstanceZones) && d.InstanceZones[i] != "" {
		return d.InstanceZones[i]
	}
	return d.SpawnZone
}

func (d Descriptor) ColliderRadius(i int) float64 {
	r := d.Collider.Radius
	if r <= 0 {
		r = 0.5
	}
	return r * d.InstanceScale(i)
}

func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("descriptor: empty id")
	}
	if d.Capacity < 0 {
		return fmt.Errorf("descriptor %s: capacity must be >= 0", d.ID)
	}
	if len(d.EntityIDs) > 0 && len(d.EntityIDs) != d.Capacity {
		return fmt.Errorf("descriptor %s: %d entity ids for capacity %d", d.ID, len(d.EntityIDs), d.Capacity)
	}
	if d.Scale == ScalePerInstance && len(d.InstanceScales) != d.Capacity {
		return fmt.Errorf("descriptor %s: %d instance scales for capacity %d", d.ID, len(d.InstanceScales), d.Capacity)
	}
	return nil
}
