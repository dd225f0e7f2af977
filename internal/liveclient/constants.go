package liveclient

import "errors"

const (
	DefaultWireRate    = 16000
	DefaultEventBuffer = 64
	APIVersion         = "v1alpha"

	resultKey          = "result"
	invalidFormatError = "invalid message format"
)

// ErrClosed is returned by sends after Close.
var ErrClosed = errors.New("live session closed")
