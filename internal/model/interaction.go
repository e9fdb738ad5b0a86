// Package model defines data structures for the interaction platform.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InteractionType is the kind of cross-user interaction.
type InteractionType string

const (
	TypeMessage    InteractionType = "message"
	TypeInvitation InteractionType = "invitation"
	TypeReview     InteractionType = "review"
)

// IsValid reports whether t is a known interaction type.
func (t InteractionType) IsValid() bool {
	switch t {
	case TypeMessage, TypeInvitation, TypeReview:
		return true
	}
	return false
}

// Status is the read/decision state of a message or invitation.
// Reviews carry no status.
type Status string

const (
	StatusNone     Status = ""
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// IsValid reports whether s is a status a caller may request.
func (s Status) IsValid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// IsUnread treats an absent status the same as unread.
func (s Status) IsUnread() bool {
	return s == StatusUnread || s == StatusNone
}

// Provisional id prefixes. Server ids are bare UUIDs and never carry either prefix.
const (
	TempIDPrefix = "temp-"
	LiveIDPrefix = "live-"
)

// NewTempID returns an id for an optimistically appended message.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// NewLiveID returns an id for a live event that arrived without a server id.
func NewLiveID() string {
	return LiveIDPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was generated client-side.
func IsProvisionalID(id string) bool {
	return id == "" || strings.HasPrefix(id, TempIDPrefix) || strings.HasPrefix(id, LiveIDPrefix)
}

// Interaction is the single entity behind messages, invitations and reviews.
type Interaction struct {
	ID          string          `json:"interactionId" dynamodbav:"interactionId"`
	Type        InteractionType `json:"type" dynamodbav:"type"`
	SenderID    string          `json:"senderId" dynamodbav:"senderId"`
	ReceiverID  string          `json:"receiverId,omitempty" dynamodbav:"receiverId,omitempty"`
	TargetID    string          `json:"targetId,omitempty" dynamodbav:"targetId,omitempty"`
	ProjectID   string          `json:"projectId,omitempty" dynamodbav:"projectId,omitempty"`
	Content     string          `json:"content" dynamodbav:"content"`
	Status      Status          `json:"status,omitempty" dynamodbav:"status,omitempty"`
	Rating      int             `json:"rating,omitempty" dynamodbav:"rating,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" dynamodbav:"createdAt"`
	SenderName  string          `json:"senderName,omitempty" dynamodbav:"senderName,omitempty"`
	SenderImage string          `json:"senderImage,omitempty" dynamodbav:"senderImage,omitempty"`
}

// Counterpart returns the other participant of a message or invitation from selfID's view.
func (i *Interaction) Counterpart(selfID string) string {
	if i.SenderID == selfID {
		return i.ReceiverID
	}
	return i.SenderID
}

// IsIncomingUnread reports whether the interaction counts toward selfID's unread total.
func (i *Interaction) IsIncomingUnread(selfID string) bool {
	return i.ReceiverID == selfID && i.Status.IsUnread()
}

// InitialStatus returns the status a freshly created interaction starts in.
func InitialStatus(t InteractionType) Status {
	switch t {
	case TypeMessage:
		return StatusUnread
	case TypeInvitation:
		return StatusPending
	default:
		return StatusNone
	}
}

// CanTransition reports whether an interaction of type t may move from one status to another.
// Re-applying the current status is allowed so that repeated mark-read calls are harmless.
func CanTransition(t InteractionType, from, to Status) bool {
	if from == StatusNone {
		from = InitialStatus(t)
	}
	if from == to {
		return t != TypeReview
	}
	switch t {
	case TypeMessage:
		return from == StatusUnread && to == StatusRead
	case TypeInvitation:
		return from == StatusPending && (to == StatusAccepted || to == StatusDeclined)
	default:
		return false
	}
}

// Less orders interactions by creation time, falling back to id for equal timestamps.
func Less(a, b *Interaction) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SendMessageRequest is the request to send a direct message.
type SendMessageRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// SendInvitationRequest is the request to invite a user to bid on a project.
type SendInvitationRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	ProjectID  string `json:"projectId"`
	Content    string `json:"content"`
}

// AddReviewRequest is the request to review a user.
type AddReviewRequest struct {
	ReviewerID   string `json:"reviewerId"`
	ReviewerName string `json:"reviewerName"`
	TargetID     string `json:"targetId"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}

// SetStatusRequest is the request to move an interaction to a new status.
type SetStatusRequest struct {
	Status Status `json:"status"`
}

// CreatedResponse is returned by every create operation.
type CreatedResponse struct {
	InteractionID string `json:"interactionId"`
}

// ListInteractionsResponse is the response for listing received or sent interactions.
type ListInteractionsResponse struct {
	Interactions []Interaction `json:"interactions"`
}

// ThreadResponse is the response for fetching a thread.
type ThreadResponse struct {
	Messages []Interaction `json:"messages"`
}

// ReviewSummary is the response for fetching a user's reviews.
type ReviewSummary struct {
	Reviews       []Interaction `json:"reviews"`
	Count         int           `json:"count"`
	AverageRating float64       `json:"averageRating"`
}
