// Package store persists interactions for the API server.
package store

import (
	"context"
	"errors"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

var (
	// ErrNotFound is returned when no interaction has the requested id.
	ErrNotFound = errors.New("interaction not found")
	// ErrConflict is returned when a conditional status update finds a different current status.
	ErrConflict = errors.New("interaction status changed concurrently")
	// ErrDuplicate is returned when creating an interaction whose id already exists.
	ErrDuplicate = errors.New("interaction already exists")
)

// Store is the durable record of every interaction.
type Store interface {
	// Create stores a new interaction. The id must be unique across all types.
	Create(ctx context.Context, in *model.Interaction) error

	// Get returns the interaction with the given id.
	Get(ctx context.Context, id string) (*model.Interaction, error)

	// ListByReceiver returns interactions addressed to userID, including reviews targeting them.
	ListByReceiver(ctx context.Context, userID string) ([]model.Interaction, error)

	// ListBySender returns interactions created by userID.
	ListBySender(ctx context.Context, userID string) ([]model.Interaction, error)

	// ListReviews returns reviews targeting userID.
	ListReviews(ctx context.Context, userID string) ([]model.Interaction, error)

	// UpdateStatus moves an interaction from one status to another.
	// It fails with ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to model.Status) error
}
