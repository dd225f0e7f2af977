package broker

import "time"

const (
	// DefaultSessionWindow is how long a fresh token may open a session.
	DefaultSessionWindow = 60 * time.Second
	// TokenExpiry bounds messages on a session opened with the token.
	TokenExpiry = 10 * time.Minute
	// APIVersion is required for ephemeral tokens.
	APIVersion = "v1alpha"

	breakerName = "broker"
)
