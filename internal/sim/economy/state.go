package economy

import (
	"context"
	"sort"
)

const CurrencyCoins = "coins"

// State is the persisted economy: currency totals and the gem list.
type State struct {
	Currency map[string]int64 `json:"currency"`
	Gems     []Gem            `json:"gems"`
}

// Store loads and saves economy state. Load on an empty store returns a
// zero State and no error.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

func (s State) Clone() State {
	out := State{Currency: make(map[string]int64, len(s.Currency))}
	for k, v := range s.Currency {
		out.Currency[k] = v
	}
	out.Gems = append([]Gem(nil), s.Gems...)
	return out
}

// Normalize fills nil maps, clamps growth and sorts gems by id.
func (s *State) Normalize() {
	if s.Currency == nil {
		s.Currency = map[string]int64{}
	}
	for i := range s.Gems {
		g := &s.Gems[i]
		if g.Growth < 0 {
			g.Growth = 0
		}
		if g.Growth > 100 {
			g.Growth = 100
		}
		if g.Level < 0 {
			g.Level = 0
		}
	}
	sort.Slice(s.Gems, func(i, j int) bool { return s.Gems[i].ID < s.Gems[j].ID })
}

func (s State) Coins() int64 { return s.Currency[CurrencyCoins] }

func (s *State) Credit(currency string, n int64) {
	if s.Currency == nil {
		s.Currency = map[string]int64{}
	}
	s.Currency[currency] += n
}

func (s State) GemIndex(id string) int {
	for i := range s.Gems {
		if s.Gems[i].ID == id {
			return i
		}
	}
	return -1
}
