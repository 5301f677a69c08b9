package main

import (
	"testing"

	"scrounge.ai/internal/protocol"
)

func TestLayoutCentersTarget(t *testing.T) {
	f := protocol.FrameMsg{Pools: []protocol.FramePool{{
		ID:         "coin",
		Material:   "coin",
		Count:      3,
		Positions:  []float64{0, 0, 0, 0, -50, 0, 500, 0, 0},
		Highlights: []float64{1, 0, 0},
	}}}
	cells := layout(f, viewCamera(), 80, 24)
	if len(cells) != 1 {
		t.Fatalf("cells=%+v want only the visible instance", cells)
	}
	c := cells[0]
	if c.X < 39 || c.X > 40 || c.Y < 11 || c.Y > 12 || c.Rune != 'o' || !c.Highlight {
		t.Fatalf("cell=%+v", c)
	}
}

func TestPointerMatchesCanvas(t *testing.T) {
	cv := canvasFor(80, 24)
	if cv.Width != 80 || cv.Height != 48 {
		t.Fatalf("canvas=%+v", cv)
	}
	x, y := pointerAt(40, 12)
	if x != 40.5 || y != 25 {
		t.Fatalf("pointer=%v,%v", x, y)
	}
}
