package model

import (
	"time"
)

// UnknownUserName is shown when a counterpart's profile cannot be resolved.
const UnknownUserName = "Unknown User"

// Conversation summarizes all messages exchanged with one counterpart.
// It is derived from interactions and never persisted.
type Conversation struct {
	CounterpartID    string    `json:"counterpartId"`
	CounterpartName  string    `json:"counterpartName"`
	CounterpartImage string    `json:"counterpartImage,omitempty"`
	LastMessage      string    `json:"lastMessage"`
	LastMessageID    string    `json:"lastMessageId"`
	LastAt           time.Time `json:"lastAt"`
	UnreadCount      int       `json:"unreadCount"`
}

// Profile is the display information for a user.
type Profile struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// UnknownProfile is the placeholder used when profile lookup fails.
func UnknownProfile() Profile {
	return Profile{Name: UnknownUserName}
}
