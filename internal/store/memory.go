package store

import (
	"context"
	"sync"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// MemoryStore keeps interactions in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*model.Interaction
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*model.Interaction),
	}
}

// Create stores a copy of in.
func (s *MemoryStore) Create(ctx context.Context, in *model.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[in.ID]; exists {
		return ErrDuplicate
	}

	stored := *in
	s.byID[in.ID] = &stored
	s.order = append(s.order, in.ID)
	return nil
}

// Get returns a copy of the interaction with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, exists := s.byID[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := *in
	return &out, nil
}

// ListByReceiver returns interactions addressed to or reviewing userID.
func (s *MemoryStore) ListByReceiver(ctx context.Context, userID string) ([]model.Interaction, error) {
	return s.filter(func(in *model.Interaction) bool {
		return in.ReceiverID == userID || (in.Type == model.TypeReview && in.TargetID == userID)
	}), nil
}

// ListBySender returns interactions created by userID.
func (s *MemoryStore) ListBySender(ctx context.Context, userID string) ([]model.Interaction, error) {
	return s.filter(func(in *model.Interaction) bool {
		return in.SenderID == userID
	}), nil
}

// ListReviews returns reviews targeting userID.
func (s *MemoryStore) ListReviews(ctx context.Context, userID string) ([]model.Interaction, error) {
	return s.filter(func(in *model.Interaction) bool {
		return in.Type == model.TypeReview && in.TargetID == userID
	}), nil
}

// UpdateStatus performs a compare-and-set on the interaction's status.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, from, to model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, exists := s.byID[id]
	if !exists {
		return ErrNotFound
	}
	if in.Status != from {
		return ErrConflict
	}
	in.Status = to
	return nil
}

func (s *MemoryStore) filter(match func(*model.Interaction) bool) []model.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Interaction, 0)
	for _, id := range s.order {
		if in := s.byID[id]; match(in) {
			out = append(out, *in)
		}
	}
	return out
}
