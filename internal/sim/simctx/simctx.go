// Package simctx holds the state shared by the world loop, the mode
// controller and the pointer controller.
//
// Write ownership:
//
//	transitioning  mode controller only (begin and finish of a transition)
//	generation     mode controller only
//	pools          mode controller only (mount and teardown)
//	membership     tick loop zone pass; cleared by the mode controller
//
// Every other component borrows pools and revalidates handles on each
// access. Only the transition flag and generation may be read off the
// world goroutine.
package simctx

import (
	"sort"
	"sync/atomic"

	"scrounge.ai/internal/sim/physics"
	"scrounge.ai/internal/sim/pool"
)

type Context struct {
	transitioning atomic.Bool
	generation    atomic.Uint64

	pools []*pool.Pool
	byID  map[string]*pool.Pool

	membership map[pool.Ref]struct{}
}

func New() *Context {
	return &Context{
		byID:       map[string]*pool.Pool{},
		membership: map[pool.Ref]struct{}{},
	}
}

func (c *Context) Transitioning() bool      { return c.transitioning.Load() }
func (c *Context) SetTransitioning(on bool) { c.transitioning.Store(on) }
func (c *Context) Generation() uint64       { return c.generation.Load() }

// BumpGeneration returns the new generation.
func (c *Context) BumpGeneration() uint64 { return c.generation.Add(1) }

// Pools returns the active pools in mount order. The slice must not be
// retained across a transition.
func (c *Context) Pools() []*pool.Pool { return c.pools }

func (c *Context) Pool(id string) (*pool.Pool, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Context) SetPools(ps []*pool.Pool) {
	c.pools = ps
	c.byID = make(map[string]*pool.Pool, len(ps))
	for _, p := range ps {
		c.byID[p.ID()] = p
	}
}

// ClearPools empties every pool's live-reference arrays, removing their
// bodies from w, and drops the pool set.
func (c *Context) ClearPools(w *physics.World) {
	for _, p := range c.pools {
		p.Clear(w)
	}
	c.pools = nil
	c.byID = map[string]*pool.Pool{}
}

func (c *Context) InZone(r pool.Ref) bool {
	_, ok := c.membership[r]
	return ok
}

func (c *Context) MembershipCount() int { return len(c.membership) }

// Membership returns the in-zone set sorted by pool then index.
func (c *Context) Membership() []pool.Ref {
	out := make([]pool.Ref, 0, len(c.membership))
	for r := range c.membership {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pool != out[j].Pool {
			return out[i].Pool < out[j].Pool
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func (c *Context) SetMembership(refs []pool.Ref) {
	m := make(map[pool.Ref]struct{}, len(refs))
	for _, r := range refs {
		m[r] = struct{}{}
	}
	c.membership = m
}

func (c *Context) ClearMembership() { c.membership = map[pool.Ref]struct{}{} }
