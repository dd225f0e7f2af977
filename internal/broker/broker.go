// Package broker obtains ephemeral credentials for the speech service.
// A credential authorizes exactly one session and must be used before its
// new-session deadline.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/voiceorder/internal/backend"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/resilience"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Credential is a single-use token for one live session.
type Credential struct {
	Token              string
	Model              string
	NewSessionDeadline time.Time
}

// Expired reports whether a new session can no longer be opened.
func (c Credential) Expired(now time.Time) bool {
	return !c.NewSessionDeadline.IsZero() && !now.Before(c.NewSessionDeadline)
}

// Broker issues credentials.
type Broker interface {
	Credential(ctx context.Context) (Credential, error)
}

// TokenFetcher is the backend endpoint that mints live tokens.
type TokenFetcher interface {
	LiveToken(ctx context.Context) (backend.LiveToken, error)
}

// HTTPBroker asks the ordering backend for a token, keeping the API key
// server-side.
type HTTPBroker struct {
	api          TokenFetcher
	defaultModel string
	window       time.Duration
	breaker      *resilience.Breaker
	retry        resilience.RetryConfig
	now          func() time.Time
}

// NewHTTPBroker creates a backend broker. window bounds how long after
// issue a session may be opened.
func NewHTTPBroker(api TokenFetcher, defaultModel string, window time.Duration, breaker *resilience.Breaker) *HTTPBroker {
	if window <= 0 {
		window = DefaultSessionWindow
	}
	if breaker == nil {
		breaker = resilience.New(breakerName, resilience.BrokerConfig())
	}
	retry := resilience.ConnectRetryConfig()
	// A throttled user must see the rate limit, not wait through backoff.
	retry.IsRetryable = func(err error) bool {
		return !apperrors.IsKind(err, apperrors.RateLimited) && resilience.IsRetryable(err)
	}
	return &HTTPBroker{
		api:          api,
		defaultModel: defaultModel,
		window:       window,
		breaker:      breaker,
		retry:        retry,
		now:          time.Now,
	}
}

func (b *HTTPBroker) Credential(ctx context.Context) (Credential, error) {
	ctx, span := trace.StartSpan(ctx, "broker.credential")
	defer span.End()

	tok, err := resilience.Call(ctx, b.breaker, b.retry, b.api.LiveToken)
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return Credential{}, apperrors.Wrap(err, apperrors.Unavailable, "live token service unavailable")
		}
		return Credential{}, err
	}

	issued := b.now()
	cred := Credential{
		Token:              tok.Token,
		Model:              tok.Model,
		NewSessionDeadline: issued.Add(b.window),
	}
	if cred.Model == "" {
		cred.Model = b.defaultModel
	}
	if tok.ExpireTime != "" {
		if exp, perr := time.Parse(time.RFC3339, tok.ExpireTime); perr == nil && exp.Before(cred.NewSessionDeadline) {
			cred.NewSessionDeadline = exp
		}
	}
	trace.Logger(ctx).Debug("live credential issued", "model", cred.Model, "deadline", cred.NewSessionDeadline)
	return cred, nil
}
