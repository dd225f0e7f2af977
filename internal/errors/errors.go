// Package errors provides unified error handling with a small kind taxonomy
// shared by the session manager, its collaborators and the UI surface.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies a failure by what the user can do about it.
type Kind int

const (
	Unclassified Kind = iota
	CredentialDenied
	PermissionDenied
	RateLimited
	ProtocolError
	DecodeError
	Unavailable
	InvalidArgument
)

var kindNames = [...]string{
	Unclassified:     "UNCLASSIFIED",
	CredentialDenied: "CREDENTIAL_DENIED",
	PermissionDenied: "PERMISSION_DENIED",
	RateLimited:      "RATE_LIMITED",
	ProtocolError:    "PROTOCOL_ERROR",
	DecodeError:      "DECODE_ERROR",
	Unavailable:      "UNAVAILABLE",
	InvalidArgument:  "INVALID_ARGUMENT",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Unclassified]
}

// grpcCodeMap maps kinds to gRPC status codes for the health surface.
var grpcCodeMap = map[Kind]codes.Code{
	Unclassified:     codes.Unknown,
	CredentialDenied: codes.Unauthenticated,
	PermissionDenied: codes.PermissionDenied,
	RateLimited:      codes.ResourceExhausted,
	ProtocolError:    codes.Internal,
	DecodeError:      codes.DataLoss,
	Unavailable:      codes.Unavailable,
	InvalidArgument:  codes.InvalidArgument,
}

// AppError is the base error type with structured kind and metadata.
type AppError struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Kind]; ok {
		return c
	}
	return codes.Unknown
}

// New creates a new AppError with the given kind and message.
func New(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromHTTPStatus maps a collaborator's HTTP status to an AppError.
func FromHTTPStatus(code int, body string) *AppError {
	var kind Kind
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = CredentialDenied
	case code == http.StatusTooManyRequests:
		kind = RateLimited
	case code == http.StatusBadRequest || code == http.StatusNotFound:
		kind = InvalidArgument
	case code >= 500:
		kind = Unavailable
	default:
		kind = Unclassified
	}
	return Newf(kind, "http %d: %s", code, body).WithMetadata("status", fmt.Sprint(code))
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unclassified
}

// IsKind checks if an error has a specific kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Kind {
	case Unavailable, RateLimited:
		return true
	default:
		return false
	}
}
