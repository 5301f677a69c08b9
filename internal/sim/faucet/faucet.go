package faucet

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/zone"
)

type Config struct {
	ID              string
	Position        mgl64.Vec3
	Spread          float64
	Rate            float64
	InitialVelocity mgl64.Vec3
	Enabled         bool
	// Only members below GroundThreshold are recycled.
	GroundThreshold float64
}

// Teleport is one recycled instance.
type Teleport struct {
	Pool   string
	Index  int
	Target mgl64.Vec3
}

// Faucet re-emits parked pool members into their spawn zone at a fixed
// rate. Time is supplied by the caller so the emitter follows the
// simulation clock.
type Faucet struct {
	cfg    Config
	lim    *rate.Limiter
	primed bool
	rng    *rand.Rand

	teleports uint64
}

func New(cfg Config, seed int64) *Faucet {
	return &Faucet{
		cfg: cfg,
		lim: rate.NewLimiter(limitFor(cfg.Rate), 2),
		rng: rand.New(rand.NewSource(seed)),
	}
}

func limitFor(r float64) rate.Limit {
	if r <= 0 {
		return 0
	}
	return rate.Limit(r)
}

func (f *Faucet) ID() string        { return f.cfg.ID }
func (f *Faucet) Config() Config    { return f.cfg }
func (f *Faucet) Enabled() bool     { return f.cfg.Enabled && f.cfg.Rate > 0 }
func (f *Faucet) Teleports() uint64 { return f.teleports }

// Interval is the fixed emission period, 1000/rate ms.
func (f *Faucet) Interval() time.Duration {
	if f.cfg.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / f.cfg.Rate)
}

func (f *Faucet) SetEnabled(on bool) { f.cfg.Enabled = on }

func (f *Faucet) SetRate(r float64, now time.Time) {
	f.cfg.Rate = r
	f.lim.SetLimitAt(now, limitFor(r))
}

// Tick emits at most one teleport when the interval has elapsed. zoneOf
// resolves the spawn zone of an instance; a nil or missing zone falls back
// to a disc of Spread around the faucet position.
func (f *Faucet) Tick(now time.Time, p *pool.Pool, zoneOf func(i int) (zone.Spawn, bool)) (Teleport, bool) {
	if !f.Enabled() || p == nil || p.Len() == 0 {
		return Teleport{}, false
	}
	i, ok := f.pick(p)
	if !ok {
		return Teleport{}, false
	}
	if !f.primed {
		// Burst 2 keeps the sub-tick remainder between emissions; start
		// with one token so the first second holds rate emissions.
		f.lim.AllowN(now, 1)
		f.primed = true
	}
	if !f.lim.AllowN(now, 1) {
		return Teleport{}, false
	}
	b, ok := p.Body(i)
	if !ok {
		return Teleport{}, false
	}
	var target mgl64.Vec3
	z, ok := zone.Spawn{}, false
	if zoneOf != nil {
		z, ok = zoneOf(i)
	}
	if ok {
		target = z.Sample(f.rng)
	} else {
		target = zone.Spawn{Kind: zone.KindCircle, Center: f.cfg.Position, Radius: f.cfg.Spread}.Sample(f.rng)
	}
	b.SetKinematic(false)
	b.SetTranslation(target, true)
	b.SetLinearVelocity(f.cfg.InitialVelocity, true)
	b.SetAngularVelocity(mgl64.Vec3{}, false)
	// Recompose now so the instance does not render one frame at its old spot.
	p.Sync(i, b)
	p.MarkDirty()
	f.teleports++
	return Teleport{Pool: p.ID(), Index: i, Target: target}, true
}

// pick returns the parked member farthest from the faucet:
// argmax(horizontalDistance - height) among members below the threshold.
func (f *Faucet) pick(p *pool.Pool) (int, bool) {
	best := -1
	bestScore := math.Inf(-1)
	c := f.cfg.Position
	for i := 0; i < p.Len(); i++ {
		if p.HasTag(i, pool.TagDragging|pool.TagCollecting) {
			continue
		}
		b, ok := p.Body(i)
		if !ok {
			continue
		}
		pos := b.Position()
		if pos.Y() >= f.cfg.GroundThreshold {
			continue
		}
		score := math.Hypot(pos.X()-c.X(), pos.Z()-c.Z()) - pos.Y()
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}
