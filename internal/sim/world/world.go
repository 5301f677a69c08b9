package world

import (
	"log"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/catalogs"
	"scrounge.ai/internal/sim/collect"
	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/faucet"
	"scrounge.ai/internal/sim/interact"
	"scrounge.ai/internal/sim/mode"
	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/simctx"
	"scrounge.ai/internal/sim/tuning"
	"scrounge.ai/internal/sim/zone"
)

type WorldConfig struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Seed     int64
	// Epoch is the simulated time of tick 0.
	Epoch time.Time
	// TuningDigest is advertised in WELCOME.
	TuningDigest string
}

// Callbacks are fire-and-forget notifications into the game layer.
type Callbacks interface {
	OnCollect(poolID string, index int)
	OnZoneDrop(poolID string, index int, inZone bool)
	OnZoneMembership(count int, members []pool.Ref)
}

// Domain is the game layer driving the engine. Every method is called on
// the world goroutine.
type Domain interface {
	Callbacks
	// Descriptors returns the pools of st, sorted by id.
	Descriptors(st mode.State) []pool.Descriptor
	// Tick runs once per simulated tick outside transitions.
	Tick(now time.Time)
}

type EventLogger interface {
	WriteEvent(entry EventLogEntry) error
}

type EventLogEntry struct {
	Tick       uint64         `json:"tick"`
	Kind       string         `json:"kind"`
	Generation uint64         `json:"generation"`
	Mode       string         `json:"mode"`
	Pool       string         `json:"pool,omitempty"`
	Index      int            `json:"index,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	InZone     bool           `json:"in_zone,omitempty"`
	Pos        []float64      `json:"pos,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Metrics receives runtime signals. Implemented in internal/telemetry.
type Metrics interface {
	ObserveTick(d time.Duration)
	TickSkipped()
	SetLiveBodies(poolID string, n int)
	FaucetTeleport(faucetID string)
	Collected(poolID string)
	SetGeneration(gen uint64)
}

type JoinRequest struct {
	Name       string
	Controller bool
	Out        chan []byte
	Resp       chan JoinResponse
}

type JoinResponse struct {
	ClientID string
	Welcome  protocol.WelcomeMsg
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg    WorldConfig
	log    *log.Logger
	domain Domain

	ctx    *simctx.Context
	phys   *physics.World
	modes  *mode.Controller
	input  *interact.Controller
	seq    *collect.Sequencer
	zones  map[string]zone.Spawn
	rng    *rand.Rand
	dt     float64
	tickDt time.Duration

	faucets     map[string]*faucet.Faucet
	faucetOrder []string
	faucetSpec  map[string]tuning.Faucet

	tick atomic.Uint64
	now  time.Time

	// remount is set between teardown and the next tick's mount.
	remount     bool
	reconfigure atomic.Bool
	lastZone    []pool.Ref

	inbox   chan Input
	join    chan JoinRequest
	leave   chan string
	stop    chan struct{}
	clients map[string]*client
	nextCID uint64
	pending []protocol.EventMsg

	eventLogger EventLogger
	metrics     Metrics

	status atomic.Value
}

type client struct {
	id         string
	name       string
	controller bool
	out        chan []byte
}

// New builds the world and mounts the initial Scrounge pools. domain may
// be nil, in which case pools are laid out from an empty economy.
func New(cfg WorldConfig, domain Domain, logger *log.Logger) *World {
	t := cfg.Tuning
	t.Normalize()
	cfg.Tuning = t
	if cfg.Epoch.IsZero() {
		cfg.Epoch = time.Unix(0, 0).UTC()
	}
	w := &World{
		cfg:        cfg,
		log:        logger,
		ctx:        simctx.New(),
		phys:       physics.NewWorld(t.PhysicsConfig()),
		modes:      mode.NewController(),
		seq:        collect.New(t.CollectConfig()),
		zones:      t.Zones(),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		tickDt:     t.TickDuration(),
		faucets:    map[string]*faucet.Faucet{},
		faucetSpec: map[string]tuning.Faucet{},
		inbox:      make(chan Input, 1024),
		join:       make(chan JoinRequest, 64),
		leave:      make(chan string, 64),
		stop:       make(chan struct{}),
		clients:    map[string]*client{},
		now:        cfg.Epoch,
	}
	w.dt = w.tickDt.Seconds()
	if domain == nil {
		domain = NewStaticDomain(cfg.Catalogs, t.Pools, economy.State{})
	}
	w.domain = domain
	w.input = interact.NewController(t.InteractConfig(), w.ctx, interact.Hooks{
		Collect: w.onPickupCollect,
		Drop:    w.onPickupDrop,
	})
	for i, f := range t.Faucets {
		w.faucets[f.ID] = faucet.New(f.Config(), cfg.Seed+int64(i)+1)
		w.faucetOrder = append(w.faucetOrder, f.ID)
		w.faucetSpec[f.ID] = f
	}
	sort.Strings(w.faucetOrder)

	w.ctx.BumpGeneration()
	w.mount()
	w.publishStatus(0)
	return w
}

func (w *World) SetEventLogger(l EventLogger) { w.eventLogger = l }
func (w *World) SetMetrics(m Metrics)         { w.metrics = m }

func (w *World) Config() WorldConfig { return w.cfg }
func (w *World) TickRateHz() int     { return w.cfg.Tuning.TickRateHz }

// Transitioning may be read from any goroutine.
func (w *World) Transitioning() bool { return w.ctx.Transitioning() }

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}

// StaticDomain lays pools out from a fixed economy and ignores callbacks.
type StaticDomain struct {
	cats  *catalogs.Catalogs
	pools tuning.Pools
	state economy.State
}

func NewStaticDomain(cats *catalogs.Catalogs, pools tuning.Pools, st economy.State) *StaticDomain {
	return &StaticDomain{cats: cats, pools: pools, state: st}
}

func (d *StaticDomain) Descriptors(st mode.State) []pool.Descriptor {
	in := catalogs.LayoutInput{Mode: st, Economy: d.state, Pools: d.pools}
	if d.cats != nil {
		in.Gems = &d.cats.Gems
	}
	return catalogs.GeneratePoolDescriptors(in)
}

func (d *StaticDomain) OnCollect(string, int)            {}
func (d *StaticDomain) OnZoneDrop(string, int, bool)     {}
func (d *StaticDomain) OnZoneMembership(int, []pool.Ref) {}
func (d *StaticDomain) Tick(time.Time)                   {}
