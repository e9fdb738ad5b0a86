package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/service"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/store"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "cannot act on behalf of another user")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "interaction not found")
	case errors.Is(err, service.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error("Request failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
