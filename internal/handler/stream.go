package handler

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/middleware"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// streamBuffer is how many live events may queue for a slow SSE client before events are dropped.
const streamBuffer = 64

// EventSource subscribes to the live events of a user.
type EventSource interface {
	SubscribeUser(userID string, deliver func(event string, payload []byte)) (unsubscribe func(), err error)
}

// StreamHandler relays live events to clients that cannot hold a NATS connection.
type StreamHandler struct {
	events    EventSource
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(events EventSource, heartbeat time.Duration, log *logger.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &StreamHandler{
		events:    events,
		logger:    log,
		heartbeat: heartbeat,
	}
}

type liveEvent struct {
	name    string
	payload []byte
}

// Stream handles GET /api/v1/users/{userId}/events
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := userParam(w, r, "userId")
	if !ok {
		return
	}
	if userID != middleware.GetUserID(ctx) {
		writeError(w, http.StatusForbidden, "cannot act on behalf of another user")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	queue := make(chan liveEvent, streamBuffer)
	unsubscribe, err := h.events.SubscribeUser(userID, func(event string, payload []byte) {
		select {
		case queue <- liveEvent{name: event, payload: payload}:
		default:
			h.logger.Warn("SSE client too slow, dropping event", zap.String("user_id", userID), zap.String("event", event))
		}
	})
	if err != nil {
		h.logger.Error("Failed to subscribe to live events", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "live events unavailable")
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", []byte(fmt.Sprintf(`{"userId":%q}`, userID)))

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", zap.String("user_id", userID))
			return
		case evt := <-queue:
			sendSSEEvent(w, flusher, evt.name, evt.payload)
		case now := <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", []byte(fmt.Sprintf(`{"timestamp":%q}`, now.UTC().Format(time.RFC3339))))
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
