// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern. It carries the
// preload readiness events the presentation layer subscribes to.
package hub

import "encoding/json"

// Event kinds broadcast to presentation-layer clients.
const (
	EventBatchStarted = "batch_started"
	EventUnitUpdated  = "unit_updated"
	EventAllReady     = "all_ready"
	EventCacheCleared = "cache_cleared"
)

// Event is the JSON envelope sent over the websocket.
type Event struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

// Encode marshals the event for broadcast.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
