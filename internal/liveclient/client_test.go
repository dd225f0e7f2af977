package liveclient

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/GriffinCanCode/voiceorder/internal/broker"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
)

type recv struct {
	msg *genai.LiveServerMessage
	err error
}

type fakeConn struct {
	inbox chan recv

	mu        sync.Mutex
	realtime  []genai.LiveRealtimeInput
	responses []genai.LiveToolResponseInput
	closed    bool
	closeOnce sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{inbox: make(chan recv, 16)} }

func (f *fakeConn) SendRealtimeInput(in genai.LiveRealtimeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.realtime = append(f.realtime, in)
	return nil
}

func (f *fakeConn) SendToolResponse(in genai.LiveToolResponseInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, in)
	return nil
}

func (f *fakeConn) Receive() (*genai.LiveServerMessage, error) {
	r, ok := <-f.inbox
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return r.msg, r.err
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.inbox)
	})
	return nil
}

type fakeDialer struct {
	conn  Conn
	err   error
	block bool
	calls int
}

func (d *fakeDialer) Dial(ctx context.Context, _ broker.Credential, _ *genai.LiveConnectConfig) (Conn, error) {
	d.calls++
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return d.conn, d.err
}

func validCred() broker.Credential {
	return broker.Credential{Token: "t", Model: "m", NewSessionDeadline: time.Now().Add(time.Minute)}
}

func open(t *testing.T) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	c, err := Open(context.Background(), &fakeDialer{conn: conn}, validCred(), &genai.LiveConnectConfig{}, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, conn
}

func next(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return nil
	}
}

func TestTranslateOrder(t *testing.T) {
	c, conn := open(t)
	conn.inbox <- recv{msg: &genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{
			OutputTranscription: &genai.Transcription{Text: "Hello"},
			InputTranscription:  &genai.Transcription{Text: "Hi"},
			TurnComplete:        true,
			Interrupted:         true,
			ModelTurn: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: []byte{1, 0}, MIMEType: "audio/pcm;rate=24000"}},
				{Text: "thinking"},
				{InlineData: &genai.Blob{Data: []byte{2, 0}}},
			}},
		},
		ToolCall: &genai.LiveServerToolCall{FunctionCalls: []*genai.FunctionCall{
			{ID: "c1", Name: tools.AddToOrder, Args: map[string]any{"itemName": "Fri"}},
		}},
	}}

	assert.Equal(t, TranscriptFragment{Who: Output, Text: "Hello"}, next(t, c))
	assert.Equal(t, TranscriptFragment{Who: Input, Text: "Hi"}, next(t, c))
	assert.Equal(t, TurnComplete{}, next(t, c))

	batch, ok := next(t, c).(ToolCallBatch)
	require.True(t, ok)
	require.Len(t, batch.Calls, 1)
	assert.Equal(t, "c1", batch.Calls[0].ID)
	assert.Equal(t, "Fri", batch.Calls[0].Args["itemName"])

	a1, ok := next(t, c).(AudioChunk)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 0}, a1.Data)
	a2 := next(t, c).(AudioChunk)
	assert.Equal(t, []byte{2, 0}, a2.Data)
	assert.Equal(t, Interrupted{}, next(t, c))
}

func TestClosedEvents(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
		kind   apperrors.Kind
	}{
		{"clean close", &websocket.CloseError{Code: websocket.CloseNormalClosure}, "", apperrors.Unclassified},
		{"quota", &websocket.CloseError{Code: 1011, Text: "You exceeded your current quota"}, "You exceeded your current quota", apperrors.CredentialDenied},
		{"bad frame", errors.New("invalid message format: unexpected end of JSON input"), "invalid message format: unexpected end of JSON input", apperrors.ProtocolError},
		{"server error", errors.New("received error in response: RESOURCE_EXHAUSTED"), "received error in response: RESOURCE_EXHAUSTED", apperrors.RateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, conn := open(t)
			conn.inbox <- recv{err: tt.err}

			closed, ok := next(t, c).(Closed)
			require.True(t, ok)
			assert.Equal(t, tt.reason, closed.Reason)
			assert.Equal(t, tt.kind, closed.Kind)

			_, more := <-c.Events()
			assert.False(t, more, "events should close after Closed")
		})
	}
}

func TestLocalCloseIsClean(t *testing.T) {
	c, conn := open(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	for range c.Events() {
	}
	assert.True(t, conn.closed)
	assert.ErrorIs(t, c.SendAudio([]byte{0, 0}), ErrClosed)
	assert.ErrorIs(t, c.SendText("hi"), ErrClosed)
}

func TestSends(t *testing.T) {
	c, conn := open(t)

	require.NoError(t, c.SendAudio([]byte{1, 2, 3, 4}))
	require.NoError(t, c.SendText("Salom"))
	require.NoError(t, c.SendToolResponses(
		tools.Response{ID: "c1", Name: tools.ClearOrder, Result: "Cart cleared."},
		tools.Response{ID: "c2", Name: tools.GetCartStatus, Result: "The cart is empty."},
	))
	require.NoError(t, c.SendToolResponses())

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.realtime, 2)
	assert.Equal(t, "audio/pcm;rate=16000", conn.realtime[0].Audio.MIMEType)
	assert.Equal(t, "Salom", conn.realtime[1].Text)

	require.Len(t, conn.responses, 1)
	fr := conn.responses[0].FunctionResponses
	require.Len(t, fr, 2)
	assert.Equal(t, "c2", fr[1].ID)
	assert.Equal(t, "Cart cleared.", fr[0].Response["result"])
}

func TestOpenRejectsExpiredCredential(t *testing.T) {
	d := &fakeDialer{conn: newFakeConn()}
	cred := broker.Credential{Token: "t", NewSessionDeadline: time.Now().Add(-time.Second)}

	_, err := Open(context.Background(), d, cred, nil, Options{})
	assert.True(t, apperrors.IsKind(err, apperrors.CredentialDenied))
	assert.Zero(t, d.calls)
}

func TestOpenFailsWhenDeadlinePasses(t *testing.T) {
	d := &fakeDialer{block: true}
	cred := broker.Credential{Token: "t", NewSessionDeadline: time.Now().Add(50 * time.Millisecond)}

	_, err := Open(context.Background(), d, cred, nil, Options{})
	assert.True(t, apperrors.IsKind(err, apperrors.CredentialDenied))
	assert.Equal(t, 1, d.calls)
}

func TestOpenClassifiesDialErrors(t *testing.T) {
	d := &fakeDialer{err: errors.New("websocket: bad handshake: API key not valid")}

	_, err := Open(context.Background(), d, validCred(), nil, Options{})
	assert.True(t, apperrors.IsKind(err, apperrors.CredentialDenied))
}
