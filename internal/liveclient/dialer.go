package liveclient

import (
	"context"

	"google.golang.org/genai"

	"github.com/GriffinCanCode/voiceorder/internal/broker"
)

// Conn is a live session as exposed by *genai.Session.
type Conn interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	SendToolResponse(input genai.LiveToolResponseInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// Dialer opens a live session with a credential.
type Dialer interface {
	Dial(ctx context.Context, cred broker.Credential, cfg *genai.LiveConnectConfig) (Conn, error)
}

// GenAIDialer connects through the genai SDK, one client per credential.
type GenAIDialer struct{}

// Dial opens the websocket and sends the setup message. The SDK dial does
// not observe ctx, so a session that opens after ctx is done is closed
// and discarded.
func (GenAIDialer) Dial(ctx context.Context, cred broker.Credential, cfg *genai.LiveConnectConfig) (Conn, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cred.Token,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: APIVersion},
	})
	if err != nil {
		return nil, err
	}

	type result struct {
		session *genai.Session
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := client.Live.Connect(ctx, cred.Model, cfg)
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.session, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.session != nil {
				_ = r.session.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
