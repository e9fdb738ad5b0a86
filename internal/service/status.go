package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/store"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// SetStatus moves an interaction addressed to actorID to a new status. Re-applying the current
// status succeeds without writing.
func (s *InteractionService) SetStatus(ctx context.Context, actorID, id string, to model.Status) error {
	ctx, span := s.tracer.Start(ctx, "InteractionService.SetStatus")
	defer span.End()
	span.SetAttributes(attribute.String("interaction.id", id), attribute.String("status.to", string(to)))

	if !to.IsValid() {
		return spanError(span, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to))
	}

	in, err := s.store.Get(ctx, id)
	if err != nil {
		return spanError(span, fmt.Errorf("failed to load interaction: %w", err))
	}
	recipient := in.ReceiverID
	if in.Type == model.TypeReview {
		recipient = in.TargetID
	}
	if recipient != actorID {
		return spanError(span, ErrForbidden)
	}

	outcome, err := s.transition(ctx, in, to)
	metrics.RecordTransition(string(to), outcome)
	if err != nil {
		return spanError(span, err)
	}
	return nil
}

func (s *InteractionService) transition(ctx context.Context, in *model.Interaction, to model.Status) (string, error) {
	current := in.Status
	if current == model.StatusNone {
		current = model.InitialStatus(in.Type)
	}
	if !model.CanTransition(in.Type, current, to) {
		return metrics.TransitionRejected, fmt.Errorf("%w: %s cannot move from %q to %q", ErrIllegalTransition, in.Type, current, to)
	}
	if current == to {
		return metrics.TransitionNoop, nil
	}

	err := s.store.UpdateStatus(ctx, in.ID, in.Status, to)
	if errors.Is(err, store.ErrConflict) {
		// A concurrent writer may already have applied the same status.
		latest, getErr := s.store.Get(ctx, in.ID)
		if getErr == nil && latest.Status == to {
			return metrics.TransitionNoop, nil
		}
		return metrics.TransitionRejected, fmt.Errorf("%w: status changed concurrently", ErrIllegalTransition)
	}
	if err != nil {
		return metrics.TransitionRejected, fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.Info("Interaction status changed",
		zap.String("interaction_id", in.ID),
		zap.String("from", string(current)),
		zap.String("to", string(to)),
	)
	return metrics.TransitionApplied, nil
}
