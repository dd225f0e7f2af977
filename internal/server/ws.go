package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/voiceorder/internal/orchestrator"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Command is an inbound websocket message.
type Command struct {
	Type    string `json:"type"`
	TraceID string `json:"trace_id,omitempty"`
}

// StatusMessage greets a new websocket client with the current snapshot.
type StatusMessage struct {
	Type string `json:"type"`
	orchestrator.Status
}

type VolumeMessage struct {
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
}

type RejectedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
	now        func() time.Time
}

func newRateLimiter() *rateLimiter { return &rateLimiter{now: time.Now} }

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// client is one websocket connection with its own writer.
type client struct {
	conn    *websocket.Conn
	out     chan any
	limiter *rateLimiter
}

// send queues msg; a client that cannot keep up loses messages.
func (c *client) send(msg any) {
	select {
	case c.out <- msg:
	default:
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
			err := wsjson.Write(wctx, c.conn, msg)
			cancel()
			if err != nil {
				trace.Logger(ctx).Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{conn: conn, out: make(chan any, ClientBuffer), limiter: newRateLimiter()}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)
	go c.writeLoop(ctx)
	c.send(StatusMessage{Type: "status", Status: s.sess.Status()})

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			log.Debug("websocket closed", "error", err)
			return
		}
		if !c.limiter.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			c.send(RejectedMessage{Type: "rejected", Message: "rate limit exceeded"})
			continue
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.send(RejectedMessage{Type: "rejected", Message: "malformed command"})
			continue
		}
		cmdCtx := ctx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			cmdCtx = trace.WithContext(ctx, tc)
		}
		s.handleCommand(cmdCtx, c, cmd)
	}
}

func (s *Server) handleCommand(ctx context.Context, c *client, cmd Command) {
	log := trace.Logger(ctx)
	switch cmd.Type {
	case "connect":
		// Connect blocks until the session is up; keep reading meanwhile so
		// a disconnect can abort it. Failures reach clients as error events.
		go func() {
			if err := s.sess.Connect(ctx); err != nil {
				log.Warn("connect command failed", "error", err)
			}
		}()
	case "disconnect":
		s.sess.Disconnect()
	case "status":
		c.send(StatusMessage{Type: "status", Status: s.sess.Status()})
	default:
		c.send(RejectedMessage{Type: "rejected", Message: "unknown command " + cmd.Type})
	}
}
