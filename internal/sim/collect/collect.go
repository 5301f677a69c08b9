package collect

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
)

const (
	// PeakAt is the progress at which the scale multiplier tops out.
	PeakAt   = 0.3
	PeakMult = 3.0
)

// ScaleMultiplier maps progress p in [0,1] to the render scale factor:
// 1 to 3 linearly over [0, 0.3], then 3 to 0 over [0.3, 1].
func ScaleMultiplier(p float64) float64 {
	switch {
	case p <= 0:
		return 1
	case p >= 1:
		return 0
	case p <= PeakAt:
		return 1 + (PeakMult-1)*(p/PeakAt)
	default:
		return PeakMult * (1 - (p-PeakAt)/(1-PeakAt))
	}
}

// Record is one in-flight collection.
type Record struct {
	Start time.Time
	Ref   pool.Ref
	Gen   uint64
}

type Config struct {
	Duration time.Duration
	// RiseRate is the upward nudge per tick in world units.
	RiseRate float64
}

// Sequencer animates picked instances out of the simulation. Records are
// advanced by the world loop; bodies stay kinematic until retired.
type Sequencer struct {
	cfg     Config
	records []Record
}

func New(cfg Config) *Sequencer {
	if cfg.Duration <= 0 {
		cfg.Duration = 600 * time.Millisecond
	}
	return &Sequencer{cfg: cfg}
}

func (s *Sequencer) Config() Config { return s.cfg }
func (s *Sequencer) Len() int       { return len(s.records) }

func (s *Sequencer) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Active reports whether ref is being animated.
func (s *Sequencer) Active(ref pool.Ref) bool {
	for _, r := range s.records {
		if r.Ref == ref {
			return true
		}
	}
	return false
}

// Start begins animating ref. The caller's pool tags the instance
// collecting; a second Start for the same ref is ignored.
func (s *Sequencer) Start(now time.Time, p *pool.Pool, idx int) bool {
	ref := pool.Ref{Pool: p.ID(), Index: idx}
	if s.Active(ref) {
		return false
	}
	b, ok := p.Body(idx)
	if !ok {
		return false
	}
	b.SetKinematic(true)
	p.SetTag(idx, pool.TagCollecting, true)
	p.SetTag(idx, pool.TagDragging|pool.TagSelected, false)
	s.records = append(s.records, Record{Start: now, Ref: ref, Gen: p.Generation()})
	return true
}

// Advance moves every record forward and returns the ones that finished.
// lookup resolves a pool by id; records whose pool or body went stale are
// dropped without being reported.
func (s *Sequencer) Advance(now time.Time, lookup func(id string) (*pool.Pool, bool)) []Record {
	var done []Record
	kept := s.records[:0]
	for _, r := range s.records {
		p, ok := lookup(r.Ref.Pool)
		if !ok || p.Generation() != r.Gen {
			continue
		}
		b, ok := p.Body(r.Ref.Index)
		if !ok {
			continue
		}
		prog := float64(now.Sub(r.Start)) / float64(s.cfg.Duration)
		if prog >= 1 {
			done = append(done, r)
			continue
		}
		pos := b.Position().Add(mgl64.Vec3{0, s.cfg.RiseRate, 0})
		b.SetNextKinematicTranslation(pos)
		scale := p.BaseScale(r.Ref.Index) * ScaleMultiplier(prog)
		p.SetMatrix(r.Ref.Index, physics.Compose(pos, b.Rotation(), scale))
		p.MarkDirty()
		kept = append(kept, r)
	}
	s.records = kept
	return done
}

// Reset discards every record.
func (s *Sequencer) Reset() {
	s.records = s.records[:0]
}
