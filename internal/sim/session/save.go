package session

import (
	"context"
	"time"
)

// requestSave is called with mu held.
func (s *Session) requestSave() {
	select {
	case s.saveReq <- struct{}{}:
	default:
	}
}

// Run saves the economy after changes, at most once per debounce window,
// and once more on shutdown.
func (s *Session) Run(ctx context.Context) error {
	debounce := time.Duration(s.cfg.Tuning.Persistence.SaveDebounceMs) * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := s.Flush(flushCtx)
			cancel()
			return err
		case <-s.saveReq:
			if debounce <= 0 {
				if err := s.Flush(ctx); err != nil {
					s.logf("save: %v", err)
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			}
		case <-fire:
			timer, fire = nil, nil
			if err := s.Flush(ctx); err != nil {
				s.logf("save: %v", err)
			}
		}
	}
}

// Flush writes the current economy to the store.
func (s *Session) Flush(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	st := s.Snapshot()
	if err := s.store.Save(ctx, st); err != nil {
		return err
	}
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return nil
}

// Saves counts successful writes.
func (s *Session) Saves() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
