package errors

import (
	stderrors "errors"
	"strings"
)

// User-facing messages per kind.
const (
	MsgPermission  = "Microphone access was denied. Allow microphone access in your settings and try again."
	MsgQuota       = "The voice assistant limit has been reached. Please check the billing settings of the API key."
	MsgCredential  = "The voice assistant key is invalid or has expired. Please contact the administrator."
	MsgRateLimited = "Too many requests right now. Please wait a minute and try again."
	MsgProtocol    = "The voice service sent an unexpected response. Please reconnect."
	MsgGeneric     = "Connection error. Please try again."
	connPrefix     = "Connection error: "
)

type rule struct {
	keywords []string
	kind     Kind
	message  string
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{[]string{"notallowederror", "microphone", "permission denied"}, PermissionDenied, MsgPermission},
	{[]string{"rate limit", "too many requests", "juda ko", "429"}, RateLimited, MsgRateLimited},
	{[]string{"quota", "billing"}, CredentialDenied, MsgQuota},
	{[]string{"resource_exhausted"}, RateLimited, MsgRateLimited},
	{[]string{"api key", "api_key", "unauthorized", "permission", "expired", "unauthenticated"}, CredentialDenied, MsgCredential},
	{[]string{"protocol", "malformed", "unexpected message", "invalid message format"}, ProtocolError, MsgProtocol},
}

// Classify maps a raw error description to a kind and a user message.
func Classify(raw string) (Kind, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Unclassified, MsgGeneric
	}
	lower := strings.ToLower(trimmed)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.kind, r.message
			}
		}
	}
	return Unclassified, connPrefix + trimmed
}

// Describe classifies err, preferring the kind carried by an AppError.
// Timeouts carry no kind of their own and go through Classify.
func Describe(err error) (Kind, string) {
	if err == nil {
		return Unclassified, MsgGeneric
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case PermissionDenied:
			return PermissionDenied, MsgPermission
		case RateLimited:
			return RateLimited, MsgRateLimited
		case ProtocolError:
			return ProtocolError, MsgProtocol
		case CredentialDenied:
			kind, msg := Classify(reason(appErr))
			if kind == CredentialDenied {
				return kind, msg
			}
			return CredentialDenied, MsgCredential
		}
		return Classify(reason(appErr))
	}
	return Classify(err.Error())
}

// reason renders an AppError without its kind tag so keywords in the tag
// do not steer classification.
func reason(e *AppError) string {
	if e.Cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message + ": " + e.Cause.Error()
}
