package mode

import "testing"

func TestInitialAndNoop(t *testing.T) {
	c := NewController()
	if c.Current() != (State{Scene: SceneScrounge}) {
		t.Fatalf("initial=%v", c.Current())
	}
	if _, ok := c.Request(State{Scene: SceneScrounge, Action: ActionOffer}); ok {
		t.Fatalf("re-entering scrounge should be a no-op")
	}
	if _, ok := c.Request(State{Scene: SceneGarden}); !ok {
		t.Fatalf("scrounge -> garden rejected")
	}
	if c.Current().Action != ActionGrow {
		t.Fatalf("garden default action=%v", c.Current().Action)
	}
	if _, ok := c.Request(State{Scene: SceneGarden, Action: ActionGrow}); ok {
		t.Fatalf("re-entering garden/grow should be a no-op")
	}
	prev, ok := c.Request(State{Scene: SceneGarden, Action: ActionOffer})
	if !ok || prev.Action != ActionGrow || c.Current().String() != "garden/offer" {
		t.Fatalf("grow -> offer: prev=%v cur=%v", prev, c.Current())
	}
}

func TestParse(t *testing.T) {
	for _, s := range []string{"scrounge", "garden"} {
		sc, err := ParseScene(s)
		if err != nil || sc.String() != s {
			t.Fatalf("scene %q: %v %v", s, sc, err)
		}
	}
	for _, s := range []string{"", "grow", "offer"} {
		a, err := ParseAction(s)
		if err != nil || a.String() != s {
			t.Fatalf("action %q: %v %v", s, a, err)
		}
	}
	if _, err := ParseScene("lobby"); err == nil {
		t.Fatalf("expected error")
	}
	if !(State{Scene: SceneGarden, Action: ActionOffer}).TracksZone() || (State{}).TracksZone() {
		t.Fatalf("TracksZone")
	}
}
