package backend

import "time"

// Client configuration defaults
const (
	DefaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20

	pathMenu      = "/api/menu"
	pathKnowledge = "/api/knowledge"
	pathLiveToken = "/api/ai/live-token"
	pathCart      = "/api/cart"
	pathCartItems = "/api/cart/items"
)
