package world

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/interact"
	"scrounge.ai/internal/sim/mode"
)

// Input is one decoded client message queued for the next tick. Exactly
// one of the payload fields is set.
type Input struct {
	ClientID string

	Pointer      *interact.PointerEvent
	Mode         *mode.State
	InteractMode *interact.Mode
	Camera       *CameraInput
	Reset        bool
}

type CameraInput struct {
	Camera interact.Camera
	Canvas interact.Canvas
}

// InputError carries the protocol code sent back to the client.
type InputError struct {
	Code    string
	Message string
}

func (e *InputError) Error() string { return e.Code + ": " + e.Message }

func badRequest(format string, args ...any) *InputError {
	return &InputError{Code: protocol.ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

// DecodeInput parses a client message. HELLO and unknown types are
// rejected; the version must match protocol.Version.
func DecodeInput(clientID string, b []byte) (Input, error) {
	base, err := protocol.DecodeBase(b)
	if err != nil {
		return Input{}, &InputError{Code: protocol.ErrProtoBadRequest, Message: "malformed json"}
	}
	if base.ProtocolVersion != protocol.Version {
		return Input{}, &InputError{Code: protocol.ErrProtoVersion, Message: fmt.Sprintf("protocol_version %q", base.ProtocolVersion)}
	}
	in := Input{ClientID: clientID}
	switch base.Type {
	case protocol.TypePointer:
		var m protocol.PointerMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return Input{}, badRequest("pointer: %v", err)
		}
		ev, err := pointerFromMsg(m)
		if err != nil {
			return Input{}, badRequest("pointer: %v", err)
		}
		in.Pointer = &ev
	case protocol.TypeMode:
		var m protocol.ModeMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return Input{}, badRequest("mode: %v", err)
		}
		st, err := ParseModeState(protocol.ModeState{Scene: m.Scene, Action: m.Action})
		if err != nil {
			return Input{}, badRequest("mode: %v", err)
		}
		in.Mode = &st
	case protocol.TypeInteractMode:
		var m protocol.InteractModeMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return Input{}, badRequest("interact_mode: %v", err)
		}
		im, err := interact.ParseMode(m.Mode)
		if err != nil {
			return Input{}, badRequest("interact_mode: %v", err)
		}
		in.InteractMode = &im
	case protocol.TypeCamera:
		var m protocol.CameraMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return Input{}, badRequest("camera: %v", err)
		}
		if m.Canvas.Width <= 0 || m.Canvas.Height <= 0 {
			return Input{}, badRequest("camera: canvas must have positive size")
		}
		cam := interact.DefaultCamera()
		cam.Eye = mgl64.Vec3(m.Eye)
		cam.Target = mgl64.Vec3(m.Target)
		if m.FovY > 0 {
			cam.FovY = m.FovY
		}
		if m.Near > 0 {
			cam.Near = m.Near
		}
		if m.Far > 0 {
			cam.Far = m.Far
		}
		in.Camera = &CameraInput{
			Camera: cam,
			Canvas: interact.Canvas{Left: m.Canvas.Left, Top: m.Canvas.Top, Width: m.Canvas.Width, Height: m.Canvas.Height},
		}
	case protocol.TypeReset:
		in.Reset = true
	default:
		return Input{}, &InputError{Code: protocol.ErrProtoBadRequest, Message: fmt.Sprintf("unexpected type %q", base.Type)}
	}
	return in, nil
}

func pointerFromMsg(m protocol.PointerMsg) (interact.PointerEvent, error) {
	ev := interact.PointerEvent{
		Type:         interact.EventType(m.Event),
		ClientX:      m.ClientX,
		ClientY:      m.ClientY,
		NonCapturing: m.NonCapturing,
	}
	switch ev.Type {
	case interact.PointerDown, interact.PointerMove, interact.PointerUp, interact.PointerCancel:
	default:
		return interact.PointerEvent{}, fmt.Errorf("unknown event %q", m.Event)
	}
	for _, t := range m.Touches {
		ev.Touches = append(ev.Touches, interact.Touch{ClientX: t.ClientX, ClientY: t.ClientY})
	}
	for _, t := range m.ChangedTouches {
		ev.ChangedTouches = append(ev.ChangedTouches, interact.Touch{ClientX: t.ClientX, ClientY: t.ClientY})
	}
	return ev, nil
}

func ParseModeState(m protocol.ModeState) (mode.State, error) {
	sc, err := mode.ParseScene(m.Scene)
	if err != nil {
		return mode.State{}, err
	}
	ac, err := mode.ParseAction(m.Action)
	if err != nil {
		return mode.State{}, err
	}
	if sc == mode.SceneScrounge && ac != mode.ActionNone {
		return mode.State{}, fmt.Errorf("scrounge has no action %q", m.Action)
	}
	return mode.State{Scene: sc, Action: ac}.Normalize(), nil
}

func modeStateMsg(st mode.State) protocol.ModeState {
	return protocol.ModeState{Scene: st.Scene.String(), Action: st.Action.String()}
}
