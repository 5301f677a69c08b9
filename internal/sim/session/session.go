// Package session owns the persisted economy and drives it from engine
// callbacks. Engine callbacks arrive on the world goroutine; Snapshot and
// the save loop may run elsewhere, so state is guarded by a mutex.
package session

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/catalogs"
	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/mode"
	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/tuning"
)

// Sink receives requests back into the engine. Implemented by *world.World.
type Sink interface {
	RequestReconfigure()
	Emit(ev protocol.EventMsg)
}

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Seed     int64
	// NewID mints gem ids; defaults to random UUIDs.
	NewID func() string
}

type Session struct {
	cfg   Config
	log   *log.Logger
	store economy.Store
	table economy.Table
	grow  economy.Growth

	mu        sync.Mutex
	state     economy.State
	mode      mode.State
	descs     map[string]pool.Descriptor
	zoneCount int
	rng       *rand.Rand
	lastTick  time.Time
	lastOffer time.Time
	sink      Sink

	saveReq chan struct{}
	saves   uint64
}

// New loads the economy from store. A nil store keeps state in memory.
func New(ctx context.Context, cfg Config, store economy.Store, logger *log.Logger) (*Session, error) {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	s := &Session{
		cfg:     cfg,
		log:     logger,
		store:   store,
		grow:    cfg.Tuning.Growth(),
		descs:   map[string]pool.Descriptor{},
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		saveReq: make(chan struct{}, 1),
	}
	if cfg.Catalogs != nil {
		s.table = cfg.Catalogs.Gems.Table()
	}
	if store != nil {
		st, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.state = st
	}
	s.state.Normalize()
	return s, nil
}

func (s *Session) SetSink(k Sink) {
	s.mu.Lock()
	s.sink = k
	s.mu.Unlock()
}

func (s *Session) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// Snapshot returns a copy of the economy.
func (s *Session) Snapshot() economy.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Currency() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.state.Currency))
	for k, v := range s.state.Currency {
		out[k] = v
	}
	return out
}

func (s *Session) ZoneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoneCount
}

// Descriptors lays out the pools of st and remembers them for mapping
// instance indices back to gems.
func (s *Session) Descriptors(st mode.State) []pool.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := catalogs.LayoutInput{Mode: st, Economy: s.state, Pools: s.cfg.Tuning.Pools}
	if s.cfg.Catalogs != nil {
		in.Gems = &s.cfg.Catalogs.Gems
	}
	out := catalogs.GeneratePoolDescriptors(in)
	s.mode = st.Normalize()
	s.descs = make(map[string]pool.Descriptor, len(out))
	for _, d := range out {
		s.descs[d.ID] = d
	}
	s.zoneCount = 0
	return out
}

// gemAt resolves a pool instance to its index in state.Gems.
func (s *Session) gemAt(poolID string, index int) int {
	d, ok := s.descs[poolID]
	if !ok || index < 0 || index >= len(d.EntityIDs) {
		return -1
	}
	return s.state.GemIndex(d.EntityIDs[index])
}

func (s *Session) OnCollect(poolID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch poolID {
	case catalogs.PoolCoin:
		s.state.Credit(economy.CurrencyCoins, s.cfg.Tuning.Economy.CoinValue)
		s.requestSave()
	case catalogs.PoolFindGem:
		if s.cfg.Catalogs == nil {
			return
		}
		g := s.cfg.Catalogs.Gems.Roll(s.rng)
		g.ID = s.cfg.NewID()
		g.Placement = economy.PlacementInventory
		s.state.Gems = append(s.state.Gems, g)
		s.state.Normalize()
		s.requestSave()
		s.logf("minted gem %s %s/%s/%s size=%.3f", g.ID, g.Type, g.Shape, g.Rarity, g.Size)
		s.emit(protocol.EventMsg{Kind: protocol.EventGemMinted, EntityID: g.ID, Data: map[string]any{
			"type":   g.Type,
			"shape":  g.Shape,
			"rarity": g.Rarity,
			"size":   g.Size,
			"value":  s.table.Value(g),
		}})
	}
}

// OnZoneDrop moves a dropped gem into the current action's placement, or
// back to the inventory when it landed outside the zone.
func (s *Session) OnZoneDrop(poolID string, index int, inZone bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.gemAt(poolID, index)
	if i < 0 {
		return
	}
	next := economy.PlacementInventory
	if inZone {
		switch s.mode.Action {
		case mode.ActionGrow:
			next = economy.PlacementGrowing
		case mode.ActionOffer:
			next = economy.PlacementOffering
		}
	}
	if s.state.Gems[i].Placement == next {
		return
	}
	s.state.Gems[i].Placement = next
	if next == economy.PlacementOffering && s.lastOffer.IsZero() {
		s.lastOffer = s.lastTick
	}
	s.requestSave()
}

func (s *Session) OnZoneMembership(count int, _ []pool.Ref) {
	s.mu.Lock()
	s.zoneCount = count
	s.mu.Unlock()
}

// Tick grows Growing gems and converts Offering gems on the offer
// interval.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTick.IsZero() {
		s.lastTick = now
		s.lastOffer = now
		return
	}
	dt := now.Sub(s.lastTick).Seconds()
	s.lastTick = now

	changed := false
	for i := range s.state.Gems {
		g := &s.state.Gems[i]
		if g.Placement != economy.PlacementGrowing {
			continue
		}
		if n := s.grow.Grow(g, dt); n > 0 {
			changed = true
			s.emit(protocol.EventMsg{Kind: protocol.EventLevelUp, EntityID: g.ID, Data: map[string]any{
				"level": g.Level,
				"size":  g.Size,
				"value": s.table.Value(*g),
			}})
		}
	}

	interval := time.Duration(s.cfg.Tuning.Economy.OfferIntervalMs) * time.Millisecond
	if interval > 0 && now.Sub(s.lastOffer) >= interval {
		s.lastOffer = now
		if s.offer() {
			changed = true
			if s.mode.Action == mode.ActionOffer && s.sink != nil {
				s.sink.RequestReconfigure()
			}
		}
	}
	if changed {
		s.requestSave()
	}
}

// offer converts every Offering gem into coins and removes it.
func (s *Session) offer() bool {
	kept := s.state.Gems[:0]
	offered := 0
	for _, g := range s.state.Gems {
		if g.Placement != economy.PlacementOffering {
			kept = append(kept, g)
			continue
		}
		coins := s.table.OfferYield(g, s.cfg.Tuning.Economy.OfferYield)
		s.state.Credit(economy.CurrencyCoins, coins)
		offered++
		s.emit(protocol.EventMsg{Kind: protocol.EventOffered, EntityID: g.ID, Data: map[string]any{"coins": coins}})
	}
	s.state.Gems = kept
	return offered > 0
}

func (s *Session) emit(ev protocol.EventMsg) {
	if s.sink != nil {
		s.sink.Emit(ev)
	}
}
