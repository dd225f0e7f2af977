// Package liveclient owns the bidirectional session with the speech
// service: it serializes outbound audio, text and tool responses, and turns
// inbound server messages into typed events.
package liveclient

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/GriffinCanCode/voiceorder/internal/broker"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Options tune a client.
type Options struct {
	WireRate    int // PCM rate of outbound audio
	EventBuffer int
	Logger      *slog.Logger
}

// Client is one open live session.
type Client struct {
	conn     Conn
	mimeType string
	log      *slog.Logger

	writeMu sync.Mutex // the websocket allows one writer
	events  chan Event
	done    chan struct{}
	closing atomic.Bool
	once    sync.Once
}

// Open dials a session with cred before its new-session deadline. An
// expired or late credential fails with CredentialDenied and is never
// retried.
func Open(ctx context.Context, d Dialer, cred broker.Credential, cfg *genai.LiveConnectConfig, opts Options) (*Client, error) {
	if opts.WireRate <= 0 {
		opts.WireRate = DefaultWireRate
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = trace.Logger(ctx)
	}
	if cred.Expired(time.Now()) {
		return nil, apperrors.New(apperrors.CredentialDenied, "live credential expired before use")
	}

	dialCtx := ctx
	if !cred.NewSessionDeadline.IsZero() {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithDeadline(ctx, cred.NewSessionDeadline)
		defer cancel()
	}

	conn, err := d.Dial(dialCtx, cred, cfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, apperrors.Wrap(err, apperrors.CredentialDenied, "live credential expired before the session opened")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kind, _ := apperrors.Classify(err.Error())
		return nil, apperrors.Wrap(err, kind, "open live session")
	}

	c := &Client{
		conn:     conn,
		mimeType: "audio/pcm;rate=" + strconv.Itoa(opts.WireRate),
		log:      opts.Logger,
		events:   make(chan Event, opts.EventBuffer),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers inbound events. It is closed after the Closed event.
func (c *Client) Events() <-chan Event { return c.events }

// SendAudio streams one PCM16 frame.
func (c *Client) SendAudio(pcm []byte) error {
	return c.write(func() error {
		return c.conn.SendRealtimeInput(genai.LiveRealtimeInput{
			Audio: &genai.Blob{Data: pcm, MIMEType: c.mimeType},
		})
	})
}

// SendText sends a realtime text event, such as the opening greeting.
func (c *Client) SendText(text string) error {
	return c.write(func() error {
		return c.conn.SendRealtimeInput(genai.LiveRealtimeInput{Text: text})
	})
}

// SendToolResponses answers function calls.
func (c *Client) SendToolResponses(responses ...tools.Response) error {
	if len(responses) == 0 {
		return nil
	}
	fr := make([]*genai.FunctionResponse, len(responses))
	for i, r := range responses {
		fr[i] = &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: map[string]any{resultKey: r.Result},
		}
	}
	return c.write(func() error {
		return c.conn.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: fr})
	})
}

func (c *Client) write(fn func() error) error {
	if c.closing.Load() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closing.Load() {
		return ErrClosed
	}
	return fn()
}

// Close ends the session. Safe to call repeatedly.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.closing.Store(true)
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		msg, err := c.conn.Receive()
		if err != nil {
			c.emit(c.closedEvent(err))
			return
		}
		for _, ev := range c.translate(msg) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

func (c *Client) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// translate splits one server message into events, in the order the
// session consumes them.
func (c *Client) translate(msg *genai.LiveServerMessage) []Event {
	var out []Event
	if msg.SetupComplete != nil {
		c.log.Debug("live session setup complete")
	}
	if msg.GoAway != nil {
		c.log.Warn("live session going away", "time_left", msg.GoAway.TimeLeft)
	}
	if sc := msg.ServerContent; sc != nil {
		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			out = append(out, TranscriptFragment{Who: Output, Text: t.Text})
		}
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			out = append(out, TranscriptFragment{Who: Input, Text: t.Text})
		}
		if sc.TurnComplete {
			out = append(out, TurnComplete{})
		}
	}
	if tc := msg.ToolCall; tc != nil && len(tc.FunctionCalls) > 0 {
		batch := ToolCallBatch{Calls: make([]tools.Request, 0, len(tc.FunctionCalls))}
		for _, fc := range tc.FunctionCalls {
			if fc == nil {
				continue
			}
			batch.Calls = append(batch.Calls, tools.Request{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
		out = append(out, batch)
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				switch {
				case part == nil:
				case part.InlineData != nil && len(part.InlineData.Data) > 0:
					out = append(out, AudioChunk{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType})
				case part.Text != "":
					c.log.Debug("model text response", "text", part.Text)
				}
			}
		}
		if sc.Interrupted {
			out = append(out, Interrupted{})
		}
	}
	return out
}

// closedEvent maps a receive error to the session's final event.
func (c *Client) closedEvent(err error) Closed {
	if c.closing.Load() {
		return Closed{}
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if strings.TrimSpace(ce.Text) == "" {
			return Closed{}
		}
		kind, _ := apperrors.Classify(ce.Text)
		return Closed{Reason: ce.Text, Kind: kind}
	}
	reason := err.Error()
	if strings.Contains(strings.ToLower(reason), invalidFormatError) {
		return Closed{Reason: reason, Kind: apperrors.ProtocolError}
	}
	kind, _ := apperrors.Classify(reason)
	return Closed{Reason: reason, Kind: kind}
}
