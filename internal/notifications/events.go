package notifications

import (
	"encoding/json"
	"fmt"
)

// Event types pushed to websocket clients.
const (
	EventNewFollower   = "new_follower"
	EventMessagePosted = "message_posted"
	EventMessageLiked  = "message_liked"
	// EventMessagesDropped tells a slow client that its buffer overflowed.
	EventMessagesDropped = "messages_dropped"
)

// Event is the envelope written to clients as one JSON text frame.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Encode renders the event as the wire payload.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return string(b), nil
}
