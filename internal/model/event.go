package model

import (
	"time"
)

// EventName identifies a realtime channel event.
type EventName string

const (
	EventNewMessage EventName = "new_message"
	EventPresence   EventName = "presence"
)

// NewMessageEvent is pushed to a receiver when a message addressed to them is stored.
// InteractionID and Timestamp may be absent when the server did not echo them.
type NewMessageEvent struct {
	SenderID      string     `json:"senderId"`
	Message       string     `json:"message"`
	InteractionID string     `json:"interactionId,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

// Interaction converts the event into an incoming message addressed to receiverID.
// The event must already carry an id and timestamp.
func (e *NewMessageEvent) Interaction(receiverID string) Interaction {
	var at time.Time
	if e.Timestamp != nil {
		at = *e.Timestamp
	}
	return Interaction{
		ID:         e.InteractionID,
		Type:       TypeMessage,
		SenderID:   e.SenderID,
		ReceiverID: receiverID,
		Content:    e.Message,
		Status:     StatusUnread,
		CreatedAt:  at,
	}
}

// PresenceEvent is an optional liveness ping emitted by a session.
type PresenceEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
