package mode

import "fmt"

type Scene int

const (
	SceneScrounge Scene = iota
	SceneGarden
)

func (s Scene) String() string {
	switch s {
	case SceneScrounge:
		return "scrounge"
	case SceneGarden:
		return "garden"
	default:
		return fmt.Sprintf("scene(%d)", int(s))
	}
}

func ParseScene(s string) (Scene, error) {
	switch s {
	case "scrounge":
		return SceneScrounge, nil
	case "garden":
		return SceneGarden, nil
	}
	return 0, fmt.Errorf("unknown scene %q", s)
}

// Action is the Garden sub-mode. Scrounge has no action.
type Action int

const (
	ActionNone Action = iota
	ActionGrow
	ActionOffer
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return ""
	case ActionGrow:
		return "grow"
	case ActionOffer:
		return "offer"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

func ParseAction(s string) (Action, error) {
	switch s {
	case "":
		return ActionNone, nil
	case "grow":
		return ActionGrow, nil
	case "offer":
		return ActionOffer, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

type State struct {
	Scene  Scene
	Action Action
}

func (s State) String() string {
	if s.Action == ActionNone {
		return s.Scene.String()
	}
	return s.Scene.String() + "/" + s.Action.String()
}

// Normalize drops the action outside Garden and defaults Garden to Grow.
func (s State) Normalize() State {
	switch s.Scene {
	case SceneGarden:
		if s.Action == ActionNone {
			s.Action = ActionGrow
		}
	default:
		s.Scene = SceneScrounge
		s.Action = ActionNone
	}
	return s
}

// TracksZone reports whether zone membership is computed in this state.
func (s State) TracksZone() bool {
	return s.Scene == SceneGarden && s.Action != ActionNone
}

// Controller is the Scene x Action state machine. Pool teardown and
// remount are driven by the owner on every accepted transition.
type Controller struct {
	cur State
}

func NewController() *Controller {
	return &Controller{cur: State{Scene: SceneScrounge}}
}

func (c *Controller) Current() State { return c.cur }

// Request moves to next. It returns the previous state and false when
// next equals the current state.
func (c *Controller) Request(next State) (State, bool) {
	next = next.Normalize()
	prev := c.cur
	if next == prev {
		return prev, false
	}
	c.cur = next
	return prev, true
}
