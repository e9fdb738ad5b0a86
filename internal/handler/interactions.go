// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/middleware"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/service"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
)

// InteractionHandler handles message, invitation and review endpoints.
type InteractionHandler struct {
	service          *service.InteractionService
	logger           *logger.Logger
	maxContentLength int
}

// NewInteractionHandler creates a new interaction handler.
func NewInteractionHandler(svc *service.InteractionService, maxContentLength int, log *logger.Logger) *InteractionHandler {
	return &InteractionHandler{
		service:          svc,
		logger:           log,
		maxContentLength: maxContentLength,
	}
}

// ListReceived handles GET /api/v1/users/{userId}/interactions/received
func (h *InteractionHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r, "userId")
	if !ok {
		return
	}

	items, err := h.service.ListReceived(r.Context(), middleware.GetUserID(r.Context()), userID)
	if err != nil {
		writeServiceError(w, h.logger, "list received interactions", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListInteractionsResponse{Interactions: nonNil(items)})
}

// ListSent handles GET /api/v1/users/{userId}/interactions/sent
func (h *InteractionHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r, "userId")
	if !ok {
		return
	}

	items, err := h.service.ListSent(r.Context(), middleware.GetUserID(r.Context()), userID)
	if err != nil {
		writeServiceError(w, h.logger, "list sent interactions", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListInteractionsResponse{Interactions: nonNil(items)})
}

// Thread handles GET /api/v1/users/{userId}/threads/{counterpartId}
func (h *InteractionHandler) Thread(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r, "userId")
	if !ok {
		return
	}
	counterpartID, ok := userParam(w, r, "counterpartId")
	if !ok {
		return
	}

	msgs, err := h.service.Thread(r.Context(), middleware.GetUserID(r.Context()), userID, counterpartID)
	if err != nil {
		writeServiceError(w, h.logger, "load thread", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ThreadResponse{Messages: nonNil(msgs)})
}

// SendMessage handles POST /api/v1/messages
func (h *InteractionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.validContent(w, req.Content) {
		return
	}

	in, err := h.service.SendMessage(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, h.logger, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.CreatedResponse{InteractionID: in.ID})
}

// SendInvitation handles POST /api/v1/invitations
func (h *InteractionHandler) SendInvitation(w http.ResponseWriter, r *http.Request) {
	var req model.SendInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.validContent(w, req.Content) {
		return
	}

	in, err := h.service.SendInvitation(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, h.logger, "send invitation", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.CreatedResponse{InteractionID: in.ID})
}

// AddReview handles POST /api/v1/reviews
func (h *InteractionHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req model.AddReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.validContent(w, req.Comment) {
		return
	}
	if req.ReviewerName == "" {
		req.ReviewerName = middleware.GetUserName(r.Context())
	}

	in, err := h.service.AddReview(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, h.logger, "add review", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.CreatedResponse{InteractionID: in.ID})
}

// Reviews handles GET /api/v1/users/{userId}/reviews
func (h *InteractionHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	targetID, ok := userParam(w, r, "userId")
	if !ok {
		return
	}

	summary, err := h.service.Reviews(r.Context(), targetID)
	if err != nil {
		writeServiceError(w, h.logger, "get reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// SetStatus handles PUT /api/v1/interactions/{interactionId}/status
func (h *InteractionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interactionId")
	if err := middleware.ValidateInteractionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SetStatus(r.Context(), middleware.GetUserID(r.Context()), id, req.Status); err != nil {
		writeServiceError(w, h.logger, "set status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InteractionHandler) validContent(w http.ResponseWriter, content string) bool {
	if err := middleware.ValidateContent(content, h.maxContentLength); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func userParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if err := middleware.ValidateUserID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func nonNil(items []model.Interaction) []model.Interaction {
	if items == nil {
		return []model.Interaction{}
	}
	return items
}
