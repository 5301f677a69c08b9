package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/interact"
)

// Terminal cells are about twice as tall as wide, so the canvas sent to
// the server counts each row as two pixels.
const rowPixels = 2

type cell struct {
	X, Y      int
	Rune      rune
	Color     string
	Highlight bool
}

func viewCamera() interact.Camera {
	cam := interact.DefaultCamera()
	cam.Eye = mgl64.Vec3{0, 12, 6}
	cam.Target = mgl64.Vec3{0, 0, 0}
	return cam
}

func canvasFor(cols, rows int) protocol.CanvasRect {
	return protocol.CanvasRect{Width: float64(cols), Height: float64(rows * rowPixels)}
}

// pointerAt converts a cell to client coordinates aimed at its center.
func pointerAt(col, row int) (float64, float64) {
	return float64(col) + 0.5, (float64(row) + 0.5) * rowPixels
}

func glyph(material string) rune {
	switch material {
	case "rock":
		return '.'
	case "coin":
		return 'o'
	case "gem":
		return '*'
	default:
		return '?'
	}
}

// layout projects frame instances to terminal cells. Rows 0 and 1 hold the
// status lines; instances below ground level are skipped.
func layout(f protocol.FrameMsg, cam interact.Camera, cols, rows int) []cell {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	cam.Aspect = float64(cols) / float64(rows*rowPixels)
	var out []cell
	for _, p := range f.Pools {
		for i := 0; i < p.Count && 3*i+2 < len(p.Positions); i++ {
			pos := mgl64.Vec3{p.Positions[3*i], p.Positions[3*i+1], p.Positions[3*i+2]}
			if pos.Y() < -1 {
				continue
			}
			x, y, ok := cam.Project(pos)
			if !ok || x < -1 || x > 1 || y < -1 || y > 1 {
				continue
			}
			col := int((x + 1) / 2 * float64(cols))
			row := int((1 - y) / 2 * float64(rows))
			if col >= cols {
				col = cols - 1
			}
			if row >= rows {
				row = rows - 1
			}
			if row < 2 {
				continue
			}
			c := cell{X: col, Y: row, Rune: glyph(p.Material), Color: p.Color}
			if i < len(p.Highlights) && p.Highlights[i] > 0 {
				c.Highlight = true
			}
			out = append(out, c)
		}
	}
	return out
}

func statusLine(f protocol.FrameMsg) string {
	md := f.Mode.Scene
	if f.Mode.Action != "" {
		md += "/" + f.Mode.Action
	}
	return fmt.Sprintf("tick=%d gen=%d mode=%s interact=%s zone=%d collecting=%d coins=%d",
		f.Tick, f.Generation, md, f.InteractMode, f.ZoneCount, f.Collecting, f.Currency["coins"])
}

const helpLine = "1 scrounge  2 grow  3 offer  p push  g pickup  s select  r reset  q quit"
