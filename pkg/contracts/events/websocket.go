// Package events defines the wire contract for registry change
// notifications pushed to WebSocket clients. Type names the entity an
// event concerns, Action the lifecycle step it reports.
package events

import "time"

// Entity types.
const (
	TypeFile = "file"
	TypeJob  = "job"
)

// Lifecycle actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionRemoved   = "removed"
	ActionProgress  = "progress"
	ActionCompleted = "completed"
	ActionFailed    = "failed"
	ActionCancelled = "cancelled"
)

// Envelope is the frame every broadcast travels in.
type Envelope struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewEnvelope stamps an envelope with the current UTC time.
func NewEnvelope(eventType, action string, data any) Envelope {
	return Envelope{
		Type:      eventType,
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
