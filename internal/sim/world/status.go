package world

// Status is a snapshot readable from any goroutine.
type Status struct {
	Tick          uint64 `json:"tick"`
	Generation    uint64 `json:"generation"`
	Mode          string `json:"mode"`
	InteractMode  string `json:"interact_mode"`
	Transitioning bool   `json:"transitioning"`
	Bodies        int    `json:"bodies"`
	Awake         int    `json:"awake"`
	Pools         int    `json:"pools"`
	ZoneCount     int    `json:"zone_count"`
	Collecting    int    `json:"collecting"`
	Clients       int    `json:"clients"`
}

func (w *World) publishStatus(tick uint64) {
	st := Status{
		Tick:          tick,
		Generation:    w.ctx.Generation(),
		Mode:          w.modes.Current().String(),
		InteractMode:  w.input.Mode().String(),
		Transitioning: w.ctx.Transitioning(),
		Bodies:        w.phys.Len(),
		Awake:         w.phys.Awake(),
		Pools:         len(w.ctx.Pools()),
		ZoneCount:     w.ctx.MembershipCount(),
		Collecting:    w.seq.Len(),
		Clients:       len(w.clients),
	}
	w.status.Store(st)
	if w.metrics != nil {
		for _, p := range w.ctx.Pools() {
			w.metrics.SetLiveBodies(p.ID(), p.Live())
		}
	}
}

func (w *World) Status() Status {
	st, _ := w.status.Load().(Status)
	return st
}
