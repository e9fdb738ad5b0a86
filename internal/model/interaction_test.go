package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		typ      InteractionType
		from, to Status
		want     bool
	}{
		{"message read", TypeMessage, StatusUnread, StatusRead, true},
		{"message absent status counts as unread", TypeMessage, StatusNone, StatusRead, true},
		{"message read again", TypeMessage, StatusRead, StatusRead, true},
		{"message back to unread", TypeMessage, StatusRead, StatusUnread, false},
		{"message accepted", TypeMessage, StatusUnread, StatusAccepted, false},
		{"invitation accepted", TypeInvitation, StatusPending, StatusAccepted, true},
		{"invitation declined", TypeInvitation, StatusNone, StatusDeclined, true},
		{"invitation decision is final", TypeInvitation, StatusAccepted, StatusDeclined, false},
		{"invitation read", TypeInvitation, StatusPending, StatusRead, false},
		{"review has no status", TypeReview, StatusNone, StatusRead, false},
		{"review same status", TypeReview, StatusNone, StatusNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.typ, tt.from, tt.to))
		})
	}
}

func TestProvisionalIDs(t *testing.T) {
	assert.True(t, IsProvisionalID(NewTempID()))
	assert.True(t, IsProvisionalID(NewLiveID()))
	assert.True(t, IsProvisionalID(""))
	assert.False(t, IsProvisionalID("0190a5c4-5a4e-7000-8000-000000000000"))
	assert.NotEqual(t, NewTempID(), NewTempID())
}

func TestLess(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Interaction{ID: "b", CreatedAt: base}
	b := &Interaction{ID: "a", CreatedAt: base.Add(time.Second)}
	c := &Interaction{ID: "a", CreatedAt: base}

	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
	assert.True(t, Less(c, a))
	assert.False(t, Less(a, a))
}

func TestInteractionViews(t *testing.T) {
	in := Interaction{SenderID: "alice", ReceiverID: "bob", Status: StatusNone}
	assert.Equal(t, "bob", in.Counterpart("alice"))
	assert.Equal(t, "alice", in.Counterpart("bob"))
	assert.True(t, in.IsIncomingUnread("bob"))
	assert.False(t, in.IsIncomingUnread("alice"))

	in.Status = StatusRead
	assert.False(t, in.IsIncomingUnread("bob"))
}

func TestNewMessageEventInteraction(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := NewMessageEvent{SenderID: "alice", Message: "hello", InteractionID: "m1", Timestamp: &at}

	in := evt.Interaction("bob")
	assert.Equal(t, Interaction{
		ID:         "m1",
		Type:       TypeMessage,
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hello",
		Status:     StatusUnread,
		CreatedAt:  at,
	}, in)

	evt.Timestamp = nil
	assert.True(t, evt.Interaction("bob").CreatedAt.IsZero())
}
