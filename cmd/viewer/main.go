package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"scrounge.ai/internal/protocol"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "viewer", "client name")
		controller = flag.Bool("controller", true, "send pointer and mode input")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[viewer] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities: protocol.HelloCapabilities{
			Controller: *controller,
			MaxQueue:   8,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		logger.Fatalf("screen init: %v", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	v := &viewer{screen: screen, conn: conn, controller: *controller}

	frames := make(chan protocol.FrameMsg, 1)
	lastErr := make(chan string, 1)
	go v.readLoop(frames, lastErr)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	v.sendCamera()
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			v.frame = f
			v.draw()
		case msg := <-lastErr:
			v.errLine = msg
			v.draw()
		case ev, ok := <-events:
			if !ok || !v.handle(ev) {
				return
			}
		}
	}
}

type viewer struct {
	screen     tcell.Screen
	conn       *websocket.Conn
	controller bool

	writeMu sync.Mutex
	frame   protocol.FrameMsg
	errLine string
	pressed bool
}

func (v *viewer) readLoop(frames chan protocol.FrameMsg, lastErr chan string) {
	defer close(frames)
	for {
		_, msg, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			// Keep only the newest frame.
			select {
			case <-frames:
			default:
			}
			frames <- f
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			select {
			case lastErr <- e.Code + " " + e.Message:
			default:
			}
		}
	}
}

func (v *viewer) send(msg any) {
	if !v.controller {
		return
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	_ = v.conn.WriteJSON(msg)
}

func (v *viewer) sendCamera() {
	cols, rows := v.screen.Size()
	cam := viewCamera()
	v.send(protocol.CameraMsg{
		Type:            protocol.TypeCamera,
		ProtocolVersion: protocol.Version,
		Eye:             [3]float64(cam.Eye),
		Target:          [3]float64(cam.Target),
		FovY:            cam.FovY,
		Canvas:          canvasFor(cols, rows),
	})
}

func (v *viewer) pointer(event string, col, row int) {
	x, y := pointerAt(col, row)
	v.send(protocol.PointerMsg{
		Type:            protocol.TypePointer,
		ProtocolVersion: protocol.Version,
		Event:           event,
		ClientX:         x,
		ClientY:         y,
	})
}

func (v *viewer) mode(scene, action string) {
	v.send(protocol.ModeMsg{Type: protocol.TypeMode, ProtocolVersion: protocol.Version, Scene: scene, Action: action})
}

func (v *viewer) interact(mode string) {
	v.send(protocol.InteractModeMsg{Type: protocol.TypeInteractMode, ProtocolVersion: protocol.Version, Mode: mode})
}

// handle returns false when the viewer should exit.
func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.sendCamera()
		v.draw()
	case *tcell.EventMouse:
		col, row := ev.Position()
		down := ev.Buttons()&tcell.Button1 != 0
		switch {
		case down && !v.pressed:
			v.pointer("down", col, row)
		case down:
			v.pointer("move", col, row)
		case v.pressed:
			v.pointer("up", col, row)
		default:
			v.pointer("move", col, row)
		}
		v.pressed = down
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case '1':
				v.mode("scrounge", "")
			case '2':
				v.mode("garden", "grow")
			case '3':
				v.mode("garden", "offer")
			case 'p':
				v.interact("push")
			case 'g':
				v.interact("pickup")
			case 's':
				v.interact("select")
			case 'r':
				v.send(protocol.ResetMsg{Type: protocol.TypeReset, ProtocolVersion: protocol.Version})
			}
		}
	}
	return true
}

func (v *viewer) draw() {
	s := v.screen
	s.Clear()
	cols, rows := s.Size()
	line := func(y int, text string, style tcell.Style) {
		for x, r := range []rune(text) {
			if x >= cols {
				break
			}
			s.SetContent(x, y, r, nil, style)
		}
	}
	line(0, statusLine(v.frame), tcell.StyleDefault.Bold(true))
	if v.errLine != "" {
		line(1, v.errLine, tcell.StyleDefault.Foreground(tcell.ColorRed))
	} else {
		line(1, helpLine, tcell.StyleDefault.Foreground(tcell.ColorGray))
	}
	for _, c := range layout(v.frame, viewCamera(), cols, rows) {
		style := tcell.StyleDefault
		if c.Color != "" {
			style = style.Foreground(tcell.GetColor(c.Color))
		}
		if c.Highlight {
			style = style.Reverse(true)
		}
		s.SetContent(c.X, c.Y, c.Rune, nil, style)
	}
	s.Show()
}
