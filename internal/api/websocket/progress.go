package websocket

import "github.com/ramonehamilton/deck-engine/internal/recommendations"

// Event types for optimization progress.
const (
	EventOptimizationStarted  = "optimization:started"
	EventOptimizationChange   = "optimization:change"
	EventOptimizationFinished = "optimization:finished"
)

// ProgressForwarder returns an optimizer progress callback that broadcasts
// every event through the hub.
func ProgressForwarder(h *Hub) func(recommendations.Progress) {
	return func(p recommendations.Progress) {
		if h == nil {
			return
		}
		h.BroadcastEvent(Event{Type: "optimization:" + p.Kind, Data: p})
	}
}
