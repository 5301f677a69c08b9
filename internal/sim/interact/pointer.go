package interact

type EventType string

const (
	PointerDown   EventType = "down"
	PointerMove   EventType = "move"
	PointerUp     EventType = "up"
	PointerCancel EventType = "cancel"
)

type Touch struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
}

// PointerEvent is a device event in client (page) coordinates. Touch
// events carry Touches; end events usually only carry ChangedTouches.
type PointerEvent struct {
	Type           EventType `json:"type"`
	ClientX        float64   `json:"client_x"`
	ClientY        float64   `json:"client_y"`
	Touches        []Touch   `json:"touches,omitempty"`
	ChangedTouches []Touch   `json:"changed_touches,omitempty"`
	// NonCapturing marks a target region that keeps default handling.
	NonCapturing bool `json:"non_capturing,omitempty"`
}

// Position resolves the client point: touches[0], then changedTouches[0],
// then the pointer fields.
func (e PointerEvent) Position() (float64, float64) {
	if len(e.Touches) > 0 {
		return e.Touches[0].ClientX, e.Touches[0].ClientY
	}
	if len(e.ChangedTouches) > 0 {
		return e.ChangedTouches[0].ClientX, e.ChangedTouches[0].ClientY
	}
	return e.ClientX, e.ClientY
}

// Canvas is the drawing surface rectangle in client coordinates.
type Canvas struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NDC maps a client point to normalized device coordinates with the
// canvas offset removed.
func (c Canvas) NDC(clientX, clientY float64) (float64, float64) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	x := (clientX-c.Left)/w*2 - 1
	y := -((clientY-c.Top)/h*2 - 1)
	return x, y
}

func (c Canvas) Aspect() float64 {
	if c.Width <= 0 || c.Height <= 0 {
		return 0
	}
	return c.Width / c.Height
}

// Disposition tells the event source how to treat the native event.
type Disposition struct {
	PreventDefault bool
	Handled        bool
}
