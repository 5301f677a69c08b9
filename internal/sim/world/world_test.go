package world

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/economy"
	"scrounge.ai/internal/sim/interact"
	"scrounge.ai/internal/sim/mode"
	"scrounge.ai/internal/sim/pool"
	"scrounge.ai/internal/sim/tuning"
)

type recordingDomain struct {
	*StaticDomain
	collects   []pool.Ref
	drops      map[pool.Ref]bool
	zoneCounts []int
}

func (d *recordingDomain) OnCollect(id string, i int) {
	d.collects = append(d.collects, pool.Ref{Pool: id, Index: i})
}

func (d *recordingDomain) OnZoneDrop(id string, i int, in bool) {
	d.drops[pool.Ref{Pool: id, Index: i}] = in
}

func (d *recordingDomain) OnZoneMembership(n int, _ []pool.Ref) {
	d.zoneCounts = append(d.zoneCounts, n)
}

type memLogger struct{ entries []EventLogEntry }

func (l *memLogger) WriteEvent(e EventLogEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

func (l *memLogger) kind(k string) []EventLogEntry {
	var out []EventLogEntry
	for _, e := range l.entries {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func testTuning() tuning.Tuning {
	t := tuning.Defaults()
	t.Pools.Rocks = 0
	t.Pools.Coins = 100
	t.Pools.FindGems = 4
	t.Faucets = nil
	return t
}

func testEconomy() economy.State {
	return economy.State{
		Currency: map[string]int64{economy.CurrencyCoins: 5},
		Gems: []economy.Gem{
			{ID: "g1", Type: "emerald", Shape: "cube", Rarity: "common", Size: 0.1, Placement: economy.PlacementInventory},
			{ID: "g2", Type: "emerald", Shape: "cube", Rarity: "common", Size: 0.1, Placement: economy.PlacementGrowing},
			{ID: "g3", Type: "ruby", Shape: "tetrahedron", Rarity: "rare", Size: 0.08, Placement: economy.PlacementOffering},
		},
	}
}

func newTestWorld(t *testing.T, tu tuning.Tuning) (*World, *recordingDomain) {
	t.Helper()
	d := &recordingDomain{StaticDomain: NewStaticDomain(nil, tu.Pools, testEconomy()), drops: map[pool.Ref]bool{}}
	w := New(WorldConfig{Tuning: tu, Seed: 7}, d, nil)
	return w, d
}

func modeInput(sc mode.Scene, ac mode.Action) Input {
	st := mode.State{Scene: sc, Action: ac}
	return Input{Mode: &st}
}

func TestMountParksFaucetPools(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	if got := w.Status().Pools; got != 2 {
		t.Fatalf("pools=%d want 2 (coin, find:gem)", got)
	}
	p, ok := w.ctx.Pool("coin")
	if !ok || p.Len() != 100 {
		t.Fatalf("coin pool missing or wrong size")
	}
	for i := 0; i < p.Len(); i++ {
		b, _ := p.Body(i)
		if b.Position().Y() > -40 || !b.IsSleeping() {
			t.Fatalf("coin %d not parked: %v sleeping=%v", i, b.Position(), b.IsSleeping())
		}
	}
}

func TestModeTransitionTearsDownBeforeRemount(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	gen0 := w.ctx.Generation()
	old, _ := w.ctx.Pool("coin")
	b, _ := old.Body(0)

	w.StepOnce([]Input{modeInput(mode.SceneGarden, mode.ActionOffer)})
	if !w.Transitioning() {
		t.Fatalf("expected transitioning after mode change")
	}
	if old.Len() != 0 || b.Valid() || w.phys.Len() != 0 {
		t.Fatalf("old pool not torn down: len=%d valid=%v bodies=%d", old.Len(), b.Valid(), w.phys.Len())
	}
	if _, ok := old.Body(0); ok {
		t.Fatalf("stale handle still resolves")
	}
	if w.ctx.Generation() != gen0+1 {
		t.Fatalf("generation=%d want %d", w.ctx.Generation(), gen0+1)
	}

	w.StepOnce(nil)
	if w.Transitioning() {
		t.Fatalf("transition not finished after mount")
	}
	if w.Mode().String() != "garden/offer" {
		t.Fatalf("mode=%s", w.Mode())
	}
	ids := map[string]int{}
	for _, p := range w.ctx.Pools() {
		ids[p.ID()] = p.Len()
		if p.Generation() != gen0+1 {
			t.Fatalf("pool %s generation=%d", p.ID(), p.Generation())
		}
	}
	want := map[string]int{"coin": 5, "gem:emerald:cube": 1, "gem:ruby:tetrahedron": 1}
	if len(ids) != len(want) {
		t.Fatalf("pools=%v want %v", ids, want)
	}
	for k, n := range want {
		if ids[k] != n {
			t.Fatalf("pools=%v want %v", ids, want)
		}
	}
	if f := w.Frame(); f.Generation != gen0+1 || f.Mode.Action != "offer" {
		t.Fatalf("frame gen=%d mode=%+v", f.Generation, f.Mode)
	}
}

func TestSameModeIsNoop(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	gen := w.ctx.Generation()
	w.StepOnce([]Input{modeInput(mode.SceneScrounge, mode.ActionNone)})
	if w.Transitioning() || w.ctx.Generation() != gen {
		t.Fatalf("re-entering current mode started a transition")
	}
}

func drain(out chan []byte) []protocol.ErrorMsg {
	var errs []protocol.ErrorMsg
	for {
		select {
		case b := <-out:
			base, _ := protocol.DecodeBase(b)
			if base.Type != protocol.TypeError {
				continue
			}
			var e protocol.ErrorMsg
			_ = json.Unmarshal(b, &e)
			errs = append(errs, e)
		default:
			return errs
		}
	}
}

func join(t *testing.T, w *World, controller bool) (string, chan []byte) {
	t.Helper()
	out := make(chan []byte, 64)
	resp := make(chan JoinResponse, 1)
	w.step([]JoinRequest{{Name: "t", Controller: controller, Out: out, Resp: resp}}, nil, nil)
	r := <-resp
	if r.ClientID == "" || r.Welcome.TickRateHz != 60 || r.Welcome.Type != protocol.TypeWelcome {
		t.Fatalf("welcome=%+v", r.Welcome)
	}
	return r.ClientID, out
}

func TestInputGatedDuringTransition(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	id, out := join(t, w, true)
	drain(out)

	in := modeInput(mode.SceneGarden, mode.ActionGrow)
	in.ClientID = id
	w.StepOnce([]Input{in, {ClientID: id, Reset: true}})
	errs := drain(out)
	if len(errs) != 1 || errs[0].Code != protocol.ErrTransitioning {
		t.Fatalf("errors=%+v want one E_TRANSITIONING", errs)
	}

	w.ApplyInput(Input{Pointer: &interact.PointerEvent{Type: interact.PointerDown, ClientX: 0.5, ClientY: 0.5}})
	if _, ok := w.input.Dragging(); ok {
		t.Fatalf("pointer handled during transition")
	}
}

func TestObserverCannotSendInput(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	id, out := join(t, w, false)
	drain(out)
	w.StepOnce([]Input{{ClientID: id, Reset: true}})
	errs := drain(out)
	if len(errs) != 1 || errs[0].Code != protocol.ErrBadRequest {
		t.Fatalf("errors=%+v", errs)
	}
}

func TestFaucetEmitsAtRateInsideZone(t *testing.T) {
	tu := testTuning()
	tu.Faucets = []tuning.Faucet{{ID: "coins", Y: 3, Spread: 1.5, Rate: 60, Enabled: true, GroundThreshold: -2, Scenes: []string{"scrounge"}}}
	w, _ := newTestWorld(t, tu)
	lg := &memLogger{}
	w.SetEventLogger(lg)

	for i := 0; i < 60; i++ {
		w.StepOnce(nil)
	}
	evs := lg.kind(protocol.EventFaucet)
	if len(evs) < 59 || len(evs) > 60 {
		t.Fatalf("faucet events over 60 ticks=%d want 59-60", len(evs))
	}
	z := w.zones["coin_pile"]
	for _, e := range evs {
		if e.Pool != "coin" || len(e.Pos) != 3 {
			t.Fatalf("bad entry %+v", e)
		}
		if !z.Contains(mgl64.Vec3{e.Pos[0], e.Pos[1], e.Pos[2]}) {
			t.Fatalf("teleport outside zone: %v", e.Pos)
		}
	}
}

func TestFaucetIdleOutsideItsScene(t *testing.T) {
	tu := testTuning()
	tu.Faucets = []tuning.Faucet{{ID: "coins", Rate: 30, Enabled: true, GroundThreshold: -2, Scenes: []string{"scrounge"}}}
	w, _ := newTestWorld(t, tu)
	w.StepOnce([]Input{modeInput(mode.SceneGarden, mode.ActionGrow)})
	w.StepOnce(nil)
	lg := &memLogger{}
	w.SetEventLogger(lg)
	for i := 0; i < 30; i++ {
		w.StepOnce(nil)
	}
	if n := len(lg.kind(protocol.EventFaucet)); n != 0 {
		t.Fatalf("faucet ran in garden: %d events", n)
	}
}

func TestPickupReleaseCollectsSpecial(t *testing.T) {
	w, d := newTestWorld(t, testTuning())
	lg := &memLogger{}
	w.SetEventLogger(lg)
	p, _ := w.ctx.Pool("find:gem")
	b, _ := p.Body(0)
	b.SetTranslation(mgl64.Vec3{0, 0.5, 0}, false)

	pickup := interact.ModePickup
	cam := interact.DefaultCamera()
	cam.Target = mgl64.Vec3{0, 0.5, 0}
	w.StepOnce([]Input{
		{InteractMode: &pickup},
		{Camera: &CameraInput{Camera: cam, Canvas: interact.Canvas{Width: 100, Height: 100}}},
		{Pointer: &interact.PointerEvent{Type: interact.PointerDown, ClientX: 50, ClientY: 50}},
	})
	if r, ok := w.input.Dragging(); !ok || r != (pool.Ref{Pool: "find:gem", Index: 0}) {
		t.Fatalf("dragging=%v %v", r, ok)
	}
	w.StepOnce([]Input{{Pointer: &interact.PointerEvent{Type: interact.PointerUp, ClientX: 50, ClientY: 50}}})
	if len(d.collects) != 1 || d.collects[0].Pool != "find:gem" {
		t.Fatalf("collects=%v", d.collects)
	}
	if !p.HasTag(0, pool.TagCollecting) || w.seq.Len() != 1 {
		t.Fatalf("collection not started")
	}
	if n := len(lg.kind(protocol.EventCollect)); n != 1 {
		t.Fatalf("collect events=%d", n)
	}
	// 600ms at 60Hz.
	for i := 0; i < 40; i++ {
		w.StepOnce(nil)
	}
	if w.seq.Len() != 0 || p.HasTag(0, pool.TagCollecting) {
		t.Fatalf("collection did not finish")
	}
	if y := b.Position().Y(); y != w.cfg.Tuning.RetireDepth {
		t.Fatalf("collected body y=%v want parked at %v", y, w.cfg.Tuning.RetireDepth)
	}
}

func gardenGrow(t *testing.T) (*World, *recordingDomain, *pool.Pool) {
	t.Helper()
	w, d := newTestWorld(t, testTuning())
	w.StepOnce([]Input{modeInput(mode.SceneGarden, mode.ActionGrow)})
	w.StepOnce(nil)
	p, ok := w.ctx.Pool("gem:emerald:cube")
	if !ok || p.Len() != 2 {
		t.Fatalf("emerald pool missing in grow")
	}
	return w, d, p
}

func TestZoneMembershipCountsRestingGems(t *testing.T) {
	w, d, p := gardenGrow(t)
	in, _ := p.Body(0)
	in.SetTranslation(mgl64.Vec3{3, 0.3, 0.2}, true)
	low, _ := p.Body(1)
	low.SetTranslation(mgl64.Vec3{3, -5, 0}, true)

	w.StepOnce(nil)
	members := w.ZoneMembers()
	if len(members) != 1 || members[0] != (pool.Ref{Pool: p.ID(), Index: 0}) {
		t.Fatalf("members=%v", members)
	}
	if len(d.zoneCounts) == 0 || d.zoneCounts[len(d.zoneCounts)-1] != 1 {
		t.Fatalf("membership callback counts=%v", d.zoneCounts)
	}
	if !w.ctx.InZone(pool.Ref{Pool: p.ID(), Index: 0}) {
		t.Fatalf("context membership not updated")
	}

	p.SetTag(0, pool.TagDragging, true)
	w.StepOnce(nil)
	if len(w.ZoneMembers()) != 0 {
		t.Fatalf("dragged gem still counted")
	}
}

func TestZoneDropReportsClassification(t *testing.T) {
	w, d, p := gardenGrow(t)
	lg := &memLogger{}
	w.SetEventLogger(lg)
	w.onPickupDrop(p, 0, mgl64.Vec3{3, 0.5, 0})
	w.onPickupDrop(p, 1, mgl64.Vec3{-3, 0.5, 0})
	if !d.drops[pool.Ref{Pool: p.ID(), Index: 0}] || d.drops[pool.Ref{Pool: p.ID(), Index: 1}] {
		t.Fatalf("drops=%v", d.drops)
	}
	evs := lg.kind(protocol.EventZoneDrop)
	if len(evs) != 2 || !evs[0].InZone || evs[1].InZone || evs[0].EntityID == "" {
		t.Fatalf("zone drop events=%+v", evs)
	}
}

func TestResetRescattersAndClearsDrag(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	p, _ := w.ctx.Pool("find:gem")
	b, _ := p.Body(0)
	b.SetTranslation(mgl64.Vec3{0, 0.5, 0}, false)
	p.SetTag(0, pool.TagSelected, true)
	w.StepOnce([]Input{{Reset: true}})
	if p.HasTag(0, pool.TagSelected) {
		t.Fatalf("tags not cleared")
	}
	if y := b.Position().Y(); y > -40 {
		t.Fatalf("faucet pool member not re-parked: y=%v", y)
	}
}

func TestReconfigureRebuildsWithoutModeChange(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	gen := w.ctx.Generation()
	w.RequestReconfigure()
	w.StepOnce(nil)
	if !w.Transitioning() || w.ctx.Generation() != gen+1 {
		t.Fatalf("reconfigure did not start a transition")
	}
	if n := len(w.ctx.Pools()); n != 0 || w.phys.Len() != 0 {
		t.Fatalf("teardown tick mounted pools=%d bodies=%d", n, w.phys.Len())
	}
	w.StepOnce(nil)
	if w.Transitioning() || w.Mode().String() != "scrounge" {
		t.Fatalf("reconfigure changed mode or did not finish")
	}
	for _, p := range w.ctx.Pools() {
		if p.Generation() != gen+1 {
			t.Fatalf("pool %s generation=%d want %d", p.ID(), p.Generation(), gen+1)
		}
	}
}

func TestStaleGenerationPoolNeverSynced(t *testing.T) {
	w, _ := newTestWorld(t, testTuning())
	gen0 := w.ctx.Generation()
	w.StepOnce([]Input{modeInput(mode.SceneGarden, mode.ActionOffer)})
	w.StepOnce(nil)
	if w.Transitioning() || w.ctx.Generation() != gen0+1 {
		t.Fatalf("transition did not complete")
	}

	stale := pool.New(pool.Descriptor{ID: "stale", Capacity: 3, BaseSize: 0.1}, gen0)
	stale.Mount(w.phys, func(i int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{20 + float64(i), 2, 20}, mgl64.QuatIdent()
	})
	w.ctx.SetPools(append(w.ctx.Pools(), stale))
	before := make([]mgl64.Mat4, stale.Len())
	for i := range before {
		before[i], _ = stale.Matrix(i)
	}
	b, _ := stale.Body(0)
	y0 := b.Position().Y()

	for i := 0; i < 30; i++ {
		w.StepOnce(nil)
	}
	if b.Position().Y() >= y0 {
		t.Fatalf("stale body did not move: y=%v", b.Position().Y())
	}
	for i, m := range before {
		if got, _ := stale.Matrix(i); got != m {
			t.Fatalf("stale instance %d matrix rewritten", i)
		}
	}
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput("C1", []byte(`{"type":"MODE","protocol_version":"1.0","scene":"garden","action":"offer"}`))
	if err != nil || in.Mode == nil || in.Mode.Action != mode.ActionOffer {
		t.Fatalf("mode decode: %+v %v", in, err)
	}
	in, err = DecodeInput("C1", []byte(`{"type":"POINTER","protocol_version":"1.0","event":"up","changed_touches":[{"client_x":3,"client_y":4}]}`))
	if err != nil || in.Pointer == nil {
		t.Fatalf("pointer decode: %v", err)
	}
	if x, y := in.Pointer.Position(); x != 3 || y != 4 {
		t.Fatalf("position=(%v,%v)", x, y)
	}
	cases := []struct{ raw, code string }{
		{`{"type":"MODE","protocol_version":"0.9","scene":"garden"}`, protocol.ErrProtoVersion},
		{`{"type":"MODE","protocol_version":"1.0","scene":"scrounge","action":"grow"}`, protocol.ErrBadRequest},
		{`{"type":"POINTER","protocol_version":"1.0","event":"wiggle"}`, protocol.ErrBadRequest},
		{`{"type":"HELLO","protocol_version":"1.0"}`, protocol.ErrProtoBadRequest},
		{`not json`, protocol.ErrProtoBadRequest},
	}
	for _, c := range cases {
		_, err := DecodeInput("C1", []byte(c.raw))
		ie, ok := err.(*InputError)
		if !ok || ie.Code != c.code {
			t.Fatalf("%s: err=%v want %s", c.raw, err, c.code)
		}
	}
}
