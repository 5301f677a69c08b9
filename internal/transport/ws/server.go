package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"scrounge.ai/internal/protocol"
	"scrounge.ai/internal/sim/world"
)

type Options struct {
	// InputRate and InputBurst bound client messages per second. Zero
	// disables the limit.
	InputRate  float64
	InputBurst int
	// HubTimeout bounds sends to the world's join, leave and input
	// channels. Defaults to one second.
	HubTimeout time.Duration
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger, opts Options) *Server {
	if opts.InputRate > 0 && opts.InputBurst <= 0 {
		opts.InputBurst = int(opts.InputRate)
		if opts.InputBurst < 1 {
			opts.InputBurst = 1
		}
	}
	if opts.HubTimeout <= 0 {
		opts.HubTimeout = time.Second
	}
	s := &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, controller, out := s.handshake(conn)
		if clientID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Replies from the reader share the writer with world output.
		direct := make(chan []byte, 4)

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				var ok bool
				select {
				case <-ctx.Done():
					return
				case b, ok = <-direct:
				case b, ok = <-out:
				}
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		var lim *rate.Limiter
		if s.opts.InputRate > 0 {
			lim = rate.NewLimiter(rate.Limit(s.opts.InputRate), s.opts.InputBurst)
		}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if !controller {
				reply(direct, protocol.ErrBadRequest, "observer connections are read-only")
				continue
			}
			if lim != nil && !lim.Allow() {
				reply(direct, protocol.ErrRateLimit, "input rate exceeded")
				continue
			}
			in, err := world.DecodeInput(clientID, msg)
			if err != nil {
				var ie *world.InputError
				if errors.As(err, &ie) {
					reply(direct, ie.Code, ie.Message)
				} else {
					reply(direct, protocol.ErrBadRequest, err.Error())
				}
				continue
			}
			select {
			case s.world.Inbox() <- in:
			case <-time.After(s.opts.HubTimeout):
				reply(direct, protocol.ErrWorldBusy, "world inbox full")
			}
		}

		// Cleanup.
		s.leave(clientID)
	}
}

// leave gives up when the world loop has stopped draining its leave queue.
func (s *Server) leave(clientID string) {
	select {
	case s.world.Leave() <- clientID:
	case <-time.After(s.opts.HubTimeout):
		s.logf("ws: leave %s dropped: world not responding", clientID)
	}
}

func (s *Server) join(req world.JoinRequest) (world.JoinResponse, bool) {
	timeout := time.NewTimer(s.opts.HubTimeout)
	defer timeout.Stop()
	select {
	case s.world.Join() <- req:
	case <-timeout.C:
		return world.JoinResponse{}, false
	}
	select {
	case resp := <-req.Resp:
		return resp, true
	case <-timeout.C:
		return world.JoinResponse{}, false
	}
}

func (s *Server) handshake(conn *websocket.Conn) (clientID string, controller bool, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false, nil
	}
	if !supports(hello) {
		_ = writeJSON(conn, errorMsg(protocol.ErrProtoVersion, "unsupported protocol_version"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false, nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	resp, ok := s.join(world.JoinRequest{
		Name:       hello.ClientName,
		Controller: hello.Capabilities.Controller,
		Out:        out,
		Resp:       make(chan world.JoinResponse, 1),
	})
	if !ok {
		_ = writeJSON(conn, errorMsg(protocol.ErrWorldBusy, "world not accepting joins"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "world busy"), time.Now().Add(time.Second))
		return "", false, nil
	}

	// Send welcome immediately.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.leave(resp.ClientID)
		return "", false, nil
	}
	s.logf("ws: %s connected as %s controller=%v", hello.ClientName, resp.ClientID, hello.Capabilities.Controller)
	return resp.ClientID, hello.Capabilities.Controller, out
}

func supports(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	}
}

func reply(ch chan []byte, code, message string) {
	b, err := json.Marshal(errorMsg(code, message))
	if err != nil {
		return
	}
	select {
	case ch <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
