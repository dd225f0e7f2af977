package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/GriffinCanCode/voiceorder/internal/backend"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

type fakeFetcher struct {
	tokens []backend.LiveToken
	errs   []error
	calls  int
}

func (f *fakeFetcher) LiveToken(context.Context) (backend.LiveToken, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return backend.LiveToken{}, f.errs[i]
	}
	return f.tokens[i], nil
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHTTPBrokerCredential(t *testing.T) {
	api := &fakeFetcher{tokens: []backend.LiveToken{{Token: "auth_tokens/abc"}}}
	b := NewHTTPBroker(api, "default-model", time.Minute, nil)
	b.now = func() time.Time { return epoch }

	cred, err := b.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "auth_tokens/abc", cred.Token)
	assert.Equal(t, "default-model", cred.Model)
	assert.Equal(t, epoch.Add(time.Minute), cred.NewSessionDeadline)
	assert.False(t, cred.Expired(epoch))
	assert.True(t, cred.Expired(epoch.Add(time.Minute)))
}

func TestHTTPBrokerHonorsEarlierExpiry(t *testing.T) {
	exp := epoch.Add(20 * time.Second)
	api := &fakeFetcher{tokens: []backend.LiveToken{{Token: "t", Model: "m", ExpireTime: exp.Format(time.RFC3339)}}}
	b := NewHTTPBroker(api, "default-model", time.Minute, nil)
	b.now = func() time.Time { return epoch }

	cred, err := b.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m", cred.Model)
	assert.True(t, cred.NewSessionDeadline.Equal(exp))
}

func TestHTTPBrokerDoesNotRetryRateLimit(t *testing.T) {
	api := &fakeFetcher{errs: []error{apperrors.New(apperrors.RateLimited, "AI so'rovlari juda ko'p")}}
	b := NewHTTPBroker(api, "m", 0, nil)

	_, err := b.Credential(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.RateLimited))
	assert.Equal(t, 1, api.calls)
}

func TestHTTPBrokerRetriesUnavailable(t *testing.T) {
	api := &fakeFetcher{
		errs:   []error{apperrors.New(apperrors.Unavailable, "502"), nil},
		tokens: []backend.LiveToken{{}, {Token: "t"}},
	}
	b := NewHTTPBroker(api, "m", 0, nil)

	cred, err := b.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t", cred.Token)
	assert.Equal(t, 2, api.calls)
}

func TestHTTPBrokerPassesCredentialDenied(t *testing.T) {
	api := &fakeFetcher{errs: []error{apperrors.New(apperrors.CredentialDenied, "unauthorized")}}
	b := NewHTTPBroker(api, "m", 0, nil)

	_, err := b.Credential(context.Background())
	assert.True(t, apperrors.IsKind(err, apperrors.CredentialDenied))
	assert.Equal(t, 1, api.calls)
}

func TestGenAIBrokerRequestsSingleUseToken(t *testing.T) {
	var got *genai.CreateAuthTokenConfig
	b := newGenAIBroker(func(_ context.Context, cfg *genai.CreateAuthTokenConfig) (*genai.AuthToken, error) {
		got = cfg
		return &genai.AuthToken{Name: "auth_tokens/xyz"}, nil
	}, "live-model", 30*time.Second)
	b.now = func() time.Time { return epoch }

	cred, err := b.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "auth_tokens/xyz", cred.Token)
	assert.Equal(t, "live-model", cred.Model)
	assert.Equal(t, epoch.Add(30*time.Second), cred.NewSessionDeadline)

	require.NotNil(t, got.Uses)
	assert.Equal(t, int32(1), *got.Uses)
	assert.Equal(t, epoch.Add(TokenExpiry), got.ExpireTime)
	assert.Equal(t, "live-model", got.LiveConnectConstraints.Model)
}

func TestGenAIBrokerClassifiesFailures(t *testing.T) {
	b := newGenAIBroker(func(context.Context, *genai.CreateAuthTokenConfig) (*genai.AuthToken, error) {
		return nil, errors.New("Error 429: You exceeded your current quota")
	}, "m", 0)

	_, err := b.Credential(context.Background())
	assert.True(t, apperrors.IsKind(err, apperrors.RateLimited))

	b.create = func(context.Context, *genai.CreateAuthTokenConfig) (*genai.AuthToken, error) {
		return &genai.AuthToken{}, nil
	}
	_, err = b.Credential(context.Background())
	assert.True(t, apperrors.IsKind(err, apperrors.CredentialDenied))
}

func TestNewGenAIBrokerRequiresKey(t *testing.T) {
	_, err := NewGenAIBroker(context.Background(), "", "m", 0)
	assert.True(t, apperrors.IsKind(err, apperrors.CredentialDenied))
}
