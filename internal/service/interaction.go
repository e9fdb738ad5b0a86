// Package service provides business logic for the interaction store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/store"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/tracing"
)

var (
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller acts on behalf of another user.
	ErrForbidden = errors.New("forbidden")
	// ErrIllegalTransition is returned for status changes the interaction type does not allow.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// DefaultMaxContentLength bounds message and review text when no limit is configured.
const DefaultMaxContentLength = 10000

// Publisher delivers live events to connected users.
type Publisher interface {
	PublishNewMessage(ctx context.Context, receiverID string, evt *model.NewMessageEvent) error
}

// InteractionService creates interactions and enforces their status rules.
type InteractionService struct {
	store            store.Store
	publisher        Publisher
	logger           *logger.Logger
	tracer           trace.Tracer
	maxContentLength int
	now              func() time.Time
}

// NewInteractionService creates a new interaction service. publisher may be nil, in which
// case no live events are sent.
func NewInteractionService(st store.Store, publisher Publisher, maxContentLength int, log *logger.Logger) *InteractionService {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &InteractionService{
		store:            st,
		publisher:        publisher,
		logger:           log,
		tracer:           tracing.Tracer("interaction-service"),
		maxContentLength: maxContentLength,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage stores a direct message from actorID and notifies the receiver.
func (s *InteractionService) SendMessage(ctx context.Context, actorID string, req *model.SendMessageRequest) (*model.Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.SendMessage")
	defer span.End()

	if err := s.checkParticipants(actorID, req.SenderID, req.ReceiverID); err != nil {
		return nil, spanError(span, err)
	}
	if err := s.checkContent(req.Content, true); err != nil {
		return nil, spanError(span, err)
	}

	in := s.newInteraction(model.TypeMessage, req.SenderID)
	in.ReceiverID = req.ReceiverID
	in.Content = req.Content
	if err := s.create(ctx, in); err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("interaction.id", in.ID))

	s.publishNewMessage(ctx, in)
	return in, nil
}

// SendInvitation stores an invitation to bid on a project.
func (s *InteractionService) SendInvitation(ctx context.Context, actorID string, req *model.SendInvitationRequest) (*model.Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.SendInvitation")
	defer span.End()

	if err := s.checkParticipants(actorID, req.SenderID, req.ReceiverID); err != nil {
		return nil, spanError(span, err)
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, spanError(span, fmt.Errorf("%w: projectId is required", ErrInvalidInput))
	}
	if err := s.checkContent(req.Content, false); err != nil {
		return nil, spanError(span, err)
	}

	in := s.newInteraction(model.TypeInvitation, req.SenderID)
	in.ReceiverID = req.ReceiverID
	in.ProjectID = req.ProjectID
	in.Content = req.Content
	if err := s.create(ctx, in); err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("interaction.id", in.ID))
	return in, nil
}

// AddReview stores a review of targetID by actorID.
func (s *InteractionService) AddReview(ctx context.Context, actorID string, req *model.AddReviewRequest) (*model.Interaction, error) {
	ctx, span := s.tracer.Start(ctx, "InteractionService.AddReview")
	defer span.End()

	if err := s.checkParticipants(actorID, req.ReviewerID, req.TargetID); err != nil {
		return nil, spanError(span, err)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, spanError(span, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput))
	}
	if err := s.checkContent(req.Comment, false); err != nil {
		return nil, spanError(span, err)
	}

	in := s.newInteraction(model.TypeReview, req.ReviewerID)
	in.TargetID = req.TargetID
	in.Rating = req.Rating
	in.Content = req.Comment
	in.SenderName = req.ReviewerName
	if err := s.create(ctx, in); err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("interaction.id", in.ID))
	return in, nil
}

func (s *InteractionService) newInteraction(t model.InteractionType, senderID string) *model.Interaction {
	return &model.Interaction{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      t,
		SenderID:  senderID,
		Status:    model.InitialStatus(t),
		CreatedAt: s.now(),
	}
}

func (s *InteractionService) create(ctx context.Context, in *model.Interaction) error {
	if err := s.store.Create(ctx, in); err != nil {
		s.logger.Error("Failed to store interaction",
			zap.String("interaction_id", in.ID),
			zap.String("type", string(in.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to store interaction: %w", err)
	}

	metrics.InteractionsTotal.WithLabelValues(string(in.Type)).Inc()
	s.logger.Info("Interaction created",
		zap.String("interaction_id", in.ID),
		zap.String("type", string(in.Type)),
		zap.String("sender_id", in.SenderID),
	)
	return nil
}

// publishNewMessage is best effort: the message is already stored and the receiver will see
// it on the next fetch.
func (s *InteractionService) publishNewMessage(ctx context.Context, in *model.Interaction) {
	if s.publisher == nil {
		return
	}
	at := in.CreatedAt
	evt := &model.NewMessageEvent{
		SenderID:      in.SenderID,
		Message:       in.Content,
		InteractionID: in.ID,
		Timestamp:     &at,
	}
	if err := s.publisher.PublishNewMessage(ctx, in.ReceiverID, evt); err != nil {
		s.logger.Warn("Failed to publish new_message",
			zap.String("interaction_id", in.ID),
			zap.String("receiver_id", in.ReceiverID),
			zap.Error(err),
		)
	}
}

func (s *InteractionService) checkParticipants(actorID, fromID, toID string) error {
	if strings.TrimSpace(fromID) == "" || strings.TrimSpace(toID) == "" {
		return fmt.Errorf("%w: both participants are required", ErrInvalidInput)
	}
	if fromID == toID {
		return fmt.Errorf("%w: cannot interact with yourself", ErrInvalidInput)
	}
	if actorID != fromID {
		return ErrForbidden
	}
	return nil
}

func (s *InteractionService) checkContent(content string, required bool) error {
	if required && strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(content) > s.maxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, s.maxContentLength)
	}
	return nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
