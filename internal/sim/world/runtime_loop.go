package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scrounge.ai/internal/protocol"
)

func (w *World) Inbox() chan<- Input      { return w.inbox }
func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- string     { return w.leave }
func (w *World) Tick() uint64             { return w.tick.Load() }
func (w *World) Stop()                    { close(w.stop) }

func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tickDt)
	defer ticker.Stop()

	var pendingInputs []Input
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case in := <-w.inbox:
			pendingInputs = append(pendingInputs, in)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingInputs)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingInputs = pendingInputs[:0]
		}
	}
}

// StepOnce advances the world by a single tick using the same ordering as
// the server loop. It is intended for replays and tests.
func (w *World) StepOnce(inputs []Input) uint64 {
	tick := w.tick.Load()
	w.step(nil, nil, inputs)
	return tick
}

func (w *World) handleJoins(joins []JoinRequest) {
	for _, req := range joins {
		w.nextCID++
		id := fmt.Sprintf("C%d", w.nextCID)
		name := req.Name
		if name == "" {
			name = "client"
		}
		w.clients[id] = &client{id: id, name: name, controller: req.Controller, out: req.Out}
		w.logf("client %s (%s) joined controller=%v", id, name, req.Controller)
		if req.Resp != nil {
			req.Resp <- JoinResponse{ClientID: id, Welcome: w.welcome(id)}
		}
	}
}

func (w *World) handleLeaves(ids []string) {
	for _, id := range ids {
		if _, ok := w.clients[id]; ok {
			delete(w.clients, id)
			w.logf("client %s left", id)
		}
	}
}

func (w *World) sendError(clientID, code, msg string) {
	c := w.clients[clientID]
	if c == nil || c.out == nil {
		return
	}
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         msg,
	})
	if err != nil {
		return
	}
	sendLatest(c.out, b)
}

func (w *World) broadcast(v any) {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.logf("broadcast: %v", err)
		return
	}
	for _, c := range w.clients {
		if c.out != nil {
			sendLatest(c.out, b)
		}
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
