/**
 * @description
 * This file contains the shared plumbing for the HTTP handlers: the handler
 * struct, JSON response helpers, and the mapping from the domain error
 * taxonomy onto HTTP status codes. The endpoint handlers live in the
 * handlers_*.go files alongside this one.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 * - go.uber.org/zap: structured logging.
 *
 * @notes
 * - Unmapped errors surface as a generic 500 with no detail leaked; the full
 *   error goes to the log only.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/app"
	"github.com/mobipay/account-service/internal/domain"
)

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service *app.Service
	logger  *zap.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{service: service, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.logger.Error("response encode failed", zap.Error(err))
		}
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps the service error taxonomy onto HTTP statuses.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrDuplicate):
		// ConflictError carries a caller-facing explanation; the bare
		// sentinel gets the generic message.
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			h.writeError(w, http.StatusConflict, conflict.Message)
		} else {
			h.writeError(w, http.StatusConflict, err.Error())
		}
	case errors.Is(err, domain.ErrBalanceUpdate):
		h.writeError(w, http.StatusUnprocessableEntity, "balance update failed")
	case errors.Is(err, domain.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
	default:
		h.logger.Error("unhandled service error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathInt64 parses a numeric URL parameter; a malformed value is reported as
// not found rather than a parse error, since no resource can have that ID.
func (h *Handlers) pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		h.writeError(w, http.StatusNotFound, "resource not found")
		return 0, false
	}
	return value, true
}

func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
