package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"scrounge.ai/internal/sim/collect"
	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/faucet"
	"scrounge.ai/internal/sim/interact"
	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/zone"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz      int `yaml:"tick_rate_hz"`
	FrameEveryTicks int `yaml:"frame_every_ticks"`
	// Sleeping bodies are matrix-synced only every SleepSyncStride ticks.
	SleepSyncStride int `yaml:"sleep_sync_stride"`

	// RetireDepth is where collected instances are parked.
	RetireDepth float64 `yaml:"retire_depth"`
	// ZoneFloorY excludes bodies below it from zone membership.
	ZoneFloorY float64 `yaml:"zone_floor_y"`

	Physics     Physics             `yaml:"physics"`
	Pools       Pools               `yaml:"pools"`
	SpawnZones  []SpawnZone         `yaml:"spawn_zones"`
	Faucets     []Faucet            `yaml:"faucets"`
	DragZones   map[string]DragZone `yaml:"drag_zones"`
	Interaction Interaction         `yaml:"interaction"`
	Collection  Collection          `yaml:"collection"`
	Economy     Economy             `yaml:"economy"`
	Persistence Persistence         `yaml:"persistence"`
}

type Physics struct {
	Gravity          float64 `yaml:"gravity"`
	LinearDamping    float64 `yaml:"linear_damping"`
	AngularDamping   float64 `yaml:"angular_damping"`
	Restitution      float64 `yaml:"restitution"`
	Friction         float64 `yaml:"friction"`
	GroundY          float64 `yaml:"ground_y"`
	GroundHalfExtent float64 `yaml:"ground_half_extent"`
	GroundCatchDepth float64 `yaml:"ground_catch_depth"`
	SleepSpeed       float64 `yaml:"sleep_speed"`
	SleepSteps       int     `yaml:"sleep_steps"`
	CellSize         float64 `yaml:"cell_size"`
}

type Pools struct {
	Rocks         int     `yaml:"rocks"`
	Coins         int     `yaml:"coins"`
	FindGems      int     `yaml:"find_gems"`
	GardenCoinCap int     `yaml:"garden_coin_cap"`
	RockSize      float64 `yaml:"rock_size"`
	CoinSize      float64 `yaml:"coin_size"`
	GemSize       float64 `yaml:"gem_size"`
}

type SpawnZone struct {
	ID     string  `yaml:"id"`
	Kind   string  `yaml:"kind"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Z      float64 `yaml:"z"`
	A      float64 `yaml:"a"`
	B      float64 `yaml:"b"`
	Radius float64 `yaml:"radius"`
	Height float64 `yaml:"height"`
}

type Faucet struct {
	ID              string     `yaml:"id"`
	X               float64    `yaml:"x"`
	Y               float64    `yaml:"y"`
	Z               float64    `yaml:"z"`
	Spread          float64    `yaml:"spread"`
	Rate            float64    `yaml:"rate"`
	Velocity        [3]float64 `yaml:"velocity"`
	Enabled         bool       `yaml:"enabled"`
	GroundThreshold float64    `yaml:"ground_threshold"`
	// Scenes lists the scenes the faucet runs in.
	Scenes []string `yaml:"scenes"`
}

type DragZone struct {
	X     float64 `yaml:"x"`
	Z     float64 `yaml:"z"`
	Yaw   float64 `yaml:"yaw_deg"`
	Width float64 `yaml:"width"`
	Depth float64 `yaml:"depth"`
}

type Interaction struct {
	PickRadius       float64 `yaml:"pick_radius"`
	PickCutoff       float64 `yaml:"pick_cutoff"`
	DragDamping      float64 `yaml:"drag_damping"`
	DragLift         float64 `yaml:"drag_lift"`
	PushRadius       float64 `yaml:"push_radius"`
	PushStrength     float64 `yaml:"push_strength"`
	PushVelocityGain float64 `yaml:"push_velocity_gain"`
	PushMax          float64 `yaml:"push_max"`
}

type Collection struct {
	DurationMs int     `yaml:"duration_ms"`
	RiseRate   float64 `yaml:"rise_rate"`
}

type Economy struct {
	GrowthRate      float64 `yaml:"growth_rate"`
	SizeGain        float64 `yaml:"size_gain"`
	MaxLevel        int     `yaml:"max_level"`
	OfferYield      float64 `yaml:"offer_yield"`
	OfferIntervalMs int     `yaml:"offer_interval_ms"`
	CoinValue       int64   `yaml:"coin_value"`
}

type Persistence struct {
	SaveDebounceMs int `yaml:"save_debounce_ms"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      60,
		FrameEveryTicks: 2,
		SleepSyncStride: 30,
		RetireDepth:     -50,
		ZoneFloorY:      -0.5,
		Physics: Physics{
			Gravity:          9.81,
			LinearDamping:    0.05,
			AngularDamping:   0.3,
			Restitution:      0.2,
			Friction:         0.6,
			GroundHalfExtent: 12,
			GroundCatchDepth: 1,
			SleepSpeed:       0.05,
			SleepSteps:       30,
			CellSize:         0.5,
		},
		Pools: Pools{
			Rocks:         600,
			Coins:         240,
			FindGems:      12,
			GardenCoinCap: 400,
			RockSize:      0.12,
			CoinSize:      0.08,
			GemSize:       0.1,
		},
		SpawnZones: []SpawnZone{
			{ID: "pile", Kind: "pile", A: 4, B: 4, Y: 0.2, Height: 2},
			{ID: "coin_pile", Kind: "diamond", A: 3, B: 2, Y: 1.5, Height: 1},
			{ID: "find", Kind: "circle", Radius: 2.5, Y: 2, Height: 0.5},
			{ID: "inventory", Kind: "pile", X: -3, A: 1.5, B: 1.5, Y: 0.5, Height: 1},
			{ID: "grow_bed", Kind: "circle", X: 3, Radius: 1.2, Y: 0.5, Height: 0.5},
			{ID: "altar", Kind: "diamond", X: 3, A: 1, B: 1, Y: 0.5, Height: 0.5},
			{ID: "vault", Kind: "pile", Z: -3, A: 2, B: 1, Y: 0.5, Height: 1},
		},
		Faucets: []Faucet{
			{ID: "coins", Y: 3, Spread: 1.5, Rate: 6, Velocity: [3]float64{0, -1, 0}, Enabled: true, GroundThreshold: -2, Scenes: []string{"scrounge"}},
			{ID: "finds", Y: 3, Spread: 1, Rate: 0.5, Enabled: true, GroundThreshold: -2, Scenes: []string{"scrounge"}},
		},
		DragZones: map[string]DragZone{
			"grow":  {X: 3, Width: 2.5, Depth: 2.5},
			"offer": {X: 3, Yaw: 45, Width: 2, Depth: 2},
		},
		Interaction: Interaction{
			PickRadius:       0.12,
			PickCutoff:       40,
			DragDamping:      8,
			DragLift:         0.3,
			PushRadius:       1.2,
			PushStrength:     6,
			PushVelocityGain: 0.4,
			PushMax:          10,
		},
		Collection: Collection{DurationMs: 600, RiseRate: 0.02},
		Economy: Economy{
			GrowthRate:      2,
			SizeGain:        0.01,
			MaxLevel:        10,
			OfferYield:      0.5,
			OfferIntervalMs: 3000,
			CoinValue:       1,
		},
		Persistence: Persistence{SaveDebounceMs: 1500},
	}
}

// Load reads a tuning file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Digest hashes the effective (normalized) tuning so clients and indexes
// can tell which parameters produced a log.
func (t Tuning) Digest() string {
	b, err := yaml.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.FrameEveryTicks <= 0 {
		t.FrameEveryTicks = 1
	}
	if t.SleepSyncStride <= 0 {
		t.SleepSyncStride = d.SleepSyncStride
	}
	if t.RetireDepth >= 0 {
		t.RetireDepth = d.RetireDepth
	}
	if t.Physics.SleepSteps <= 0 {
		t.Physics.SleepSteps = d.Physics.SleepSteps
	}
	if t.Physics.CellSize <= 0 {
		t.Physics.CellSize = d.Physics.CellSize
	}
	if t.Collection.DurationMs <= 0 {
		t.Collection.DurationMs = d.Collection.DurationMs
	}
	if t.Persistence.SaveDebounceMs < 0 {
		t.Persistence.SaveDebounceMs = 0
	}
	for i := range t.SpawnZones {
		t.SpawnZones[i].ID = strings.TrimSpace(t.SpawnZones[i].ID)
		t.SpawnZones[i].Kind = strings.ToLower(strings.TrimSpace(t.SpawnZones[i].Kind))
	}
	for i := range t.Faucets {
		f := &t.Faucets[i]
		f.ID = strings.TrimSpace(f.ID)
		for j := range f.Scenes {
			f.Scenes[j] = strings.ToLower(strings.TrimSpace(f.Scenes[j]))
		}
		sort.Strings(f.Scenes)
	}
	if t.DragZones == nil {
		t.DragZones = map[string]DragZone{}
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz %d out of range", t.TickRateHz)
	}
	if t.Pools.Rocks < 0 || t.Pools.Coins < 0 || t.Pools.FindGems < 0 || t.Pools.GardenCoinCap < 0 {
		return fmt.Errorf("pools: counts must be >= 0")
	}
	seen := map[string]bool{}
	for _, z := range t.SpawnZones {
		if z.ID == "" {
			return fmt.Errorf("spawn_zones: empty id")
		}
		if seen[z.ID] {
			return fmt.Errorf("spawn_zones: duplicate id %q", z.ID)
		}
		seen[z.ID] = true
		if _, err := zone.ParseKind(z.Kind); err != nil {
			return fmt.Errorf("spawn_zones %s: %w", z.ID, err)
		}
		if z.A < 0 || z.B < 0 || z.Radius < 0 || z.Height < 0 {
			return fmt.Errorf("spawn_zones %s: negative extent", z.ID)
		}
	}
	ids := map[string]bool{}
	for _, f := range t.Faucets {
		if f.ID == "" {
			return fmt.Errorf("faucets: empty id")
		}
		if ids[f.ID] {
			return fmt.Errorf("faucets: duplicate id %q", f.ID)
		}
		ids[f.ID] = true
		if f.Rate < 0 {
			return fmt.Errorf("faucets %s: rate must be >= 0", f.ID)
		}
		if t.TickRateHz > 0 && f.Rate > float64(t.TickRateHz) {
			return fmt.Errorf("faucets %s: rate %v exceeds tick rate %d", f.ID, f.Rate, t.TickRateHz)
		}
	}
	for k, d := range t.DragZones {
		if k != "grow" && k != "offer" {
			return fmt.Errorf("drag_zones: unknown action %q", k)
		}
		if d.Width <= 0 || d.Depth <= 0 {
			return fmt.Errorf("drag_zones %s: width and depth must be > 0", k)
		}
	}
	if t.Economy.OfferYield < 0 || t.Economy.OfferYield > 1 {
		return fmt.Errorf("economy: offer_yield must be in [0,1]")
	}
	return nil
}

func (t Tuning) TickDuration() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

func (t Tuning) PhysicsConfig() physics.Config {
	p := t.Physics
	return physics.Config{
		Gravity:          mgl64.Vec3{0, -p.Gravity, 0},
		LinearDamping:    p.LinearDamping,
		AngularDamping:   p.AngularDamping,
		Restitution:      p.Restitution,
		Friction:         p.Friction,
		GroundY:          p.GroundY,
		GroundHalfExtent: p.GroundHalfExtent,
		GroundCatchDepth: p.GroundCatchDepth,
		SleepSpeed:       p.SleepSpeed,
		SleepSteps:       p.SleepSteps,
		CellSize:         p.CellSize,
	}
}

func (t Tuning) InteractConfig() interact.Config {
	i := t.Interaction
	return interact.Config{
		PickRadius:       i.PickRadius,
		PickCutoff:       i.PickCutoff,
		DragDamping:      i.DragDamping,
		DragLift:         i.DragLift,
		PushRadius:       i.PushRadius,
		PushStrength:     i.PushStrength,
		PushVelocityGain: i.PushVelocityGain,
		PushMax:          i.PushMax,
		GroundY:          t.Physics.GroundY,
	}
}

func (t Tuning) CollectConfig() collect.Config {
	return collect.Config{
		Duration: time.Duration(t.Collection.DurationMs) * time.Millisecond,
		RiseRate: t.Collection.RiseRate,
	}
}

func (t Tuning) Growth() economy.Growth {
	return economy.Growth{Rate: t.Economy.GrowthRate, SizeGain: t.Economy.SizeGain, MaxLevel: t.Economy.MaxLevel}
}

// Zones returns the spawn zones keyed by id. Validate has checked kinds.
func (t Tuning) Zones() map[string]zone.Spawn {
	out := make(map[string]zone.Spawn, len(t.SpawnZones))
	for _, z := range t.SpawnZones {
		k, _ := zone.ParseKind(z.Kind)
		out[z.ID] = zone.Spawn{
			ID:     z.ID,
			Kind:   k,
			Center: mgl64.Vec3{z.X, z.Y, z.Z},
			A:      z.A,
			B:      z.B,
			Radius: z.Radius,
			Height: z.Height,
		}
	}
	return out
}

func (f Faucet) Config() faucet.Config {
	return faucet.Config{
		ID:              f.ID,
		Position:        mgl64.Vec3{f.X, f.Y, f.Z},
		Spread:          f.Spread,
		Rate:            f.Rate,
		InitialVelocity: mgl64.Vec3{f.Velocity[0], f.Velocity[1], f.Velocity[2]},
		Enabled:         f.Enabled,
		GroundThreshold: f.GroundThreshold,
	}
}

// RunsIn reports whether the faucet is active in scene. An empty scene
// list means every scene. Scenes are sorted by Normalize.
func (f Faucet) RunsIn(scene string) bool {
	if len(f.Scenes) == 0 {
		return true
	}
	i := sort.SearchStrings(f.Scenes, scene)
	return i < len(f.Scenes) && f.Scenes[i] == scene
}

// DragZone returns the drop zone of a Garden action.
func (t Tuning) DragZone(action string) (zone.DragZone, bool) {
	d, ok := t.DragZones[action]
	if !ok {
		return zone.DragZone{}, false
	}
	return zone.DragZone{X: d.X, Z: d.Z, Yaw: mgl64.DegToRad(d.Yaw), Width: d.Width, Depth: d.Depth}, true
}
