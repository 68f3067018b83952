package models

import "encoding/json"

// FrameType classifies a realtime envelope.
type FrameType string

const (
	// FrameEvent is a fire-and-forget notification in either direction.
	FrameEvent FrameType = "event"

	// FrameRequest expects a correlated FrameResponse with the same
	// RequestID.
	FrameRequest FrameType = "request"

	// FrameResponse answers a FrameRequest.
	FrameResponse FrameType = "response"
)

// Realtime event names carried in Envelope.Event.
const (
	EventNewMessage  = "new-message"
	EventMessageRead = "message-read"
	EventUserStatus  = "user-status"
	EventTyping      = "typing"
	EventHeartbeat   = "heartbeat"
	EventError       = "error"
)

// Envelope is the single frame format of the realtime channel. Every frame
// in both directions is one JSON-encoded Envelope.
type Envelope struct {
	// Type classifies the frame: event, request, or response.
	Type FrameType `json:"type"`

	// Event is the application-level event name for event frames and the
	// operation name for request frames.
	Event string `json:"event"`

	// Data is the opaque JSON body of the frame.
	Data json.RawMessage `json:"data,omitempty"`

	// RequestID correlates request and response frames. Empty on plain
	// event frames.
	RequestID string `json:"requestId,omitempty"`
}
