package broker

import (
	"context"
	"time"

	"google.golang.org/genai"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

type createFunc func(ctx context.Context, cfg *genai.CreateAuthTokenConfig) (*genai.AuthToken, error)

// GenAIBroker mints ephemeral tokens directly with an API key. It is meant
// for local runs where no ordering backend holds the key.
type GenAIBroker struct {
	create createFunc
	model  string
	window time.Duration
	expiry time.Duration
	now    func() time.Time
}

// NewGenAIBroker creates a broker backed by the Gemini token endpoint.
func NewGenAIBroker(ctx context.Context, apiKey, model string, window time.Duration) (*GenAIBroker, error) {
	if apiKey == "" {
		return nil, apperrors.New(apperrors.CredentialDenied, "GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: APIVersion},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CredentialDenied, "create genai client")
	}
	return newGenAIBroker(client.AuthTokens.Create, model, window), nil
}

func newGenAIBroker(create createFunc, model string, window time.Duration) *GenAIBroker {
	if window <= 0 {
		window = DefaultSessionWindow
	}
	return &GenAIBroker{create: create, model: model, window: window, expiry: TokenExpiry, now: time.Now}
}

func (b *GenAIBroker) Credential(ctx context.Context) (Credential, error) {
	now := b.now()
	uses := int32(1)
	tok, err := b.create(ctx, &genai.CreateAuthTokenConfig{
		Uses:                   &uses,
		ExpireTime:             now.Add(b.expiry),
		NewSessionExpireTime:   now.Add(b.window),
		LiveConnectConstraints: &genai.LiveConnectConstraints{Model: b.model},
	})
	if err != nil {
		kind, _ := apperrors.Classify(err.Error())
		if kind == apperrors.Unclassified {
			kind = apperrors.Unavailable
		}
		return Credential{}, apperrors.Wrap(err, kind, "mint live token")
	}
	if tok == nil || tok.Name == "" {
		return Credential{}, apperrors.New(apperrors.CredentialDenied, "token endpoint returned no token")
	}
	return Credential{Token: tok.Name, Model: b.model, NewSessionDeadline: now.Add(b.window)}, nil
}
