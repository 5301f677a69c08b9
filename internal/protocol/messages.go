package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string            `json:"type"`
	ProtocolVersion   string            `json:"protocol_version"`
	SupportedVersions []string          `json:"supported_versions,omitempty"`
	ClientName        string            `json:"client_name"`
	Capabilities      HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// Controller clients may send input; observers only receive frames.
	Controller bool `json:"controller,omitempty"`
	MaxQueue   int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Mode            ModeState      `json:"mode"`
	InteractMode    string         `json:"interact_mode"`
	Generation      uint64         `json:"generation"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type ModeState struct {
	Scene  string `json:"scene"`
	Action string `json:"action,omitempty"`
}

type CatalogDigests struct {
	GemsDigest    string `json:"gems_digest"`
	PaletteDigest string `json:"palette_digest"`
	TuningDigest  string `json:"tuning_digest,omitempty"`
}

// POINTER (client -> server)
type PointerMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Event           string  `json:"event"`
	ClientX         float64 `json:"client_x"`
	ClientY         float64 `json:"client_y"`
	Touches         []Touch `json:"touches,omitempty"`
	ChangedTouches  []Touch `json:"changed_touches,omitempty"`
	NonCapturing    bool    `json:"non_capturing,omitempty"`
}

type Touch struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
}

// MODE (client -> server)
type ModeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Scene           string `json:"scene"`
	Action          string `json:"action,omitempty"`
}

// INTERACT_MODE (client -> server)
type InteractModeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Mode            string `json:"mode"`
}

// CAMERA (client -> server)
type CameraMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Eye             [3]float64 `json:"eye"`
	Target          [3]float64 `json:"target"`
	FovY            float64    `json:"fov_y"`
	Near            float64    `json:"near,omitempty"`
	Far             float64    `json:"far,omitempty"`
	Canvas          CanvasRect `json:"canvas"`
}

type CanvasRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RESET (client -> server)
type ResetMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// FRAME (server -> client)
type FrameMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Tick            uint64           `json:"tick"`
	Generation      uint64           `json:"generation"`
	Mode            ModeState        `json:"mode"`
	InteractMode    string           `json:"interact_mode"`
	Pools           []FramePool      `json:"pools"`
	ZoneCount       int              `json:"zone_count"`
	Selected        []InstanceRef    `json:"selected,omitempty"`
	Dragging        *InstanceRef     `json:"dragging,omitempty"`
	Collecting      int              `json:"collecting"`
	Currency        map[string]int64 `json:"currency,omitempty"`
}

// FramePool carries one pool's render instances. Positions and Rotations
// are flattened (x,y,z) and (x,y,z,w) per instance.
type FramePool struct {
	ID         string    `json:"id"`
	Material   string    `json:"material"`
	Color      string    `json:"color,omitempty"`
	Count      int       `json:"count"`
	Positions  []float64 `json:"positions"`
	Rotations  []float64 `json:"rotations"`
	Scales     []float64 `json:"scales"`
	Highlights []float64 `json:"highlights"`
}

type InstanceRef struct {
	Pool  string `json:"pool"`
	Index int    `json:"index"`
}

// Event kinds.
const (
	EventCollect    = "COLLECT"
	EventZoneDrop   = "ZONE_DROP"
	EventFaucet     = "FAUCET"
	EventTransition = "TRANSITION"
	EventGemMinted  = "GEM_MINTED"
	EventLevelUp    = "LEVEL_UP"
	EventOffered    = "OFFERED"
)

// EVENT (server -> client)
type EventMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Kind            string         `json:"kind"`
	Pool            string         `json:"pool,omitempty"`
	Index           int            `json:"index,omitempty"`
	InZone          bool           `json:"in_zone,omitempty"`
	EntityID        string         `json:"entity_id,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
