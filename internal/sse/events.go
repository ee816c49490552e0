// Package sse implements Server-Sent Events so clients can follow changes to
// the campaign document as they are saved.
package sse

import (
	"time"

	"github.com/mediatree/mediatree-server/internal/store"
)

// EventType represents the type of SSE Event.
// Document changes use the store's change kinds verbatim.
type EventType string

const (
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ChangeEventData is the payload of a document change event.
type ChangeEventData struct {
	AdSet   string `json:"ad_set,omitempty"`
	AdID    string `json:"ad_id,omitempty"`
	ToAdSet string `json:"to_ad_set,omitempty"`
}

// NewChangeEvent converts a saved store change into an event.
func NewChangeEvent(c store.Change) Event {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		Type:      EventType(c.Kind),
		Timestamp: ts,
		Data: ChangeEventData{
			AdSet:   c.AdSet,
			AdID:    c.AdID,
			ToAdSet: c.ToAdSet,
		},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      map[string]any{},
	}
}
