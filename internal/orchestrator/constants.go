package orchestrator

import "time"

// Session defaults
const (
	EventBuffer      = 64
	NavigateCheckout = "/cart"

	// Bound on collaborator calls made while connecting
	ConnectTimeout = 30 * time.Second
	// Bound on tool calls; the assistant is waiting on them
	ToolCallTimeout = 15 * time.Second
)
