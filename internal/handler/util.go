package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helpassistant/assistant-platform/internal/middleware"
	"github.com/helpassistant/assistant-platform/internal/model"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/pkg/logger"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error          string `json:"error"`
	Detail         string `json:"detail"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamBody   string `json:"upstream_body,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, category, detail string) {
	writeJSON(w, status, errorResponse{Error: category, Detail: detail})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// writeServiceError maps a service error onto its HTTP status. Unexpected
// errors are logged and answered with a generic detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var (
		verr   *service.ValidationError
		perr   *provider.Error
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "validation_error", "request body too large")
	case errors.Is(err, service.ErrIncompleteUpload):
		writeError(w, http.StatusBadRequest, "bad_request", "upload stream ended unexpectedly")
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", verr.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you do not own this resource")
	case errors.Is(err, provider.ErrTimeout):
		requestLogger(log, r).Warn("provider timed out", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", "the AI provider did not answer in time, retry later")
	case errors.As(err, &perr):
		requestLogger(log, r).Error("provider call failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:          "upstream_error",
			Detail:         "the AI provider rejected the request",
			UpstreamStatus: perr.StatusCode,
			UpstreamBody:   perr.Body,
		})
	default:
		requestLogger(log, r).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func requestLogger(log *logger.Logger, r *http.Request) *logger.Logger {
	return log.WithRequest(middleware.GetCorrelationID(r.Context()), middleware.GetUserID(r.Context()))
}

// currentUser returns the authenticated caller.
func currentUser(r *http.Request) *model.User {
	ctx := r.Context()
	return &model.User{
		ID:       middleware.GetUserID(ctx),
		Email:    middleware.GetEmail(ctx),
		FullName: middleware.GetName(ctx),
	}
}

// pathID reads a UUID path parameter. It writes a 404 and returns false when
// the value cannot name an existing resource.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", name+" not found")
		return "", false
	}
	return id, true
}
