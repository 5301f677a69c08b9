package main

import (
	"bytes"
	"strings"
	"testing"

	"scrounge.ai/internal/sim/world"
)

func TestSummaryCountsFilteredEvents(t *testing.T) {
	entries := []world.EventLogEntry{
		{Tick: 5, Kind: "FAUCET", Pool: "coin", Generation: 1},
		{Tick: 9, Kind: "COLLECT", Pool: "coin", Generation: 1},
		{Tick: 12, Kind: "ZONE_DROP", Pool: "gem:ruby:cube", InZone: true, Generation: 2},
		{Tick: 14, Kind: "ZONE_DROP", Pool: "gem:ruby:cube", Generation: 2},
		{Tick: 40, Kind: "FAUCET", Pool: "coin", Generation: 2},
	}
	f := filter{from: 6, to: 20}
	var s summary
	for _, e := range entries {
		if f.match(e) {
			s.add(e)
		}
	}
	if s.total != 3 || s.first != 9 || s.last != 14 {
		t.Fatalf("summary=%+v", s)
	}
	var buf bytes.Buffer
	s.print(&buf)
	out := buf.String()
	for _, want := range []string{"events=3 ticks=9..14 generations=2", "zone drops: in=1 out=1", "ZONE_DROP gem:ruby:cube"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFilterKind(t *testing.T) {
	f := filter{kind: "COLLECT"}
	if f.match(world.EventLogEntry{Kind: "FAUCET"}) || !f.match(world.EventLogEntry{Kind: "COLLECT", Tick: 1}) {
		t.Fatalf("kind filter mismatch")
	}
}
