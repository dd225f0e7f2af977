// Package server exposes the session manager to the UI over HTTP and a
// WebSocket, plus a gRPC health service.
package server

import "time"

const (
	// Per-connection sliding window on inbound websocket commands
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	VolumeInterval = 100 * time.Millisecond
	WriteTimeout   = 5 * time.Second
	ClientBuffer   = 64

	// HealthService is the gRPC health service name tracking the session
	HealthService = "voiceorder.Session"
)
