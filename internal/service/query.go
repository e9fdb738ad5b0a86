package service

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// ListReceived returns interactions addressed to userID, including reviews of them, oldest first.
func (s *InteractionService) ListReceived(ctx context.Context, actorID, userID string) ([]model.Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.ListReceived")
	defer span.End()

	if actorID != userID {
		return nil, spanError(span, ErrForbidden)
	}
	items, err := s.store.ListByReceiver(ctx, userID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to list received interactions: %w", err))
	}
	sortAscending(items)
	span.SetAttributes(attribute.Int("interactions.count", len(items)))
	return items, nil
}

// ListSent returns interactions created by userID, oldest first.
func (s *InteractionService) ListSent(ctx context.Context, actorID, userID string) ([]model.Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.ListSent")
	defer span.End()

	if actorID != userID {
		return nil, spanError(span, ErrForbidden)
	}
	items, err := s.store.ListBySender(ctx, userID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to list sent interactions: %w", err))
	}
	sortAscending(items)
	span.SetAttributes(attribute.Int("interactions.count", len(items)))
	return items, nil
}

// Thread returns the messages exchanged between userID and counterpartID, oldest first.
func (s *InteractionService) Thread(ctx context.Context, actorID, userID, counterpartID string) ([]model.Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.Thread")
	defer span.End()

	if actorID != userID {
		return nil, spanError(span, ErrForbidden)
	}
	if counterpartID == "" || counterpartID == userID {
		return nil, spanError(span, fmt.Errorf("%w: invalid counterpart", ErrInvalidInput))
	}

	var sent, received []model.Interaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = s.store.ListBySender(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.store.ListByReceiver(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to load thread: %w", err))
	}

	messages := make([]model.Interaction, 0)
	for _, in := range sent {
		if in.Type == model.TypeMessage && in.ReceiverID == counterpartID {
			messages = append(messages, in)
		}
	}
	for _, in := range received {
		if in.Type == model.TypeMessage && in.SenderID == counterpartID {
			messages = append(messages, in)
		}
	}
	sortAscending(messages)
	span.SetAttributes(attribute.Int("messages.count", len(messages)))
	return messages, nil
}

// Reviews returns the reviews of targetID, newest first, with their count and average rating.
// The average is 0 when there are no reviews.
func (s *InteractionService) Reviews(ctx context.Context, targetID string) (*model.ReviewSummary, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.Reviews")
	defer span.End()

	if targetID == "" {
		return nil, spanError(span, fmt.Errorf("%w: targetId is required", ErrInvalidInput))
	}
	reviews, err := s.store.ListReviews(ctx, targetID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to list reviews: %w", err))
	}

	if reviews == nil {
		reviews = []model.Interaction{}
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return model.Less(&reviews[j], &reviews[i])
	})

	summary := &model.ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if summary.Count > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		summary.AverageRating = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

func sortAscending(items []model.Interaction) {
	sort.SliceStable(items, func(i, j int) bool {
		return model.Less(&items[i], &items[j])
	})
}
