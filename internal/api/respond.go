package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tasker/internal/backend"
	"tasker/internal/domain"
	"tasker/internal/lifecycle"
)

const (
	codeInvalidRequest = "invalid_request"
	codeValidation     = "validation_failed"
	codeInvalid        = "invalid_selection"
	codeMissingPricing = "missing_pricing_data"
	codeUnknownService = "unknown_service"
	codeGuard          = "guard_violation"
	codeAlreadyRated   = "already_rated"
	codeNotFound       = "not_found"
	codeRateLimited    = "rate_limited"
	codeUnauthorized   = "unauthorized"
	codeForbidden      = "forbidden"
	codeBackend        = "backend_error"
	codePastSchedule   = "past_schedule"
	codeDateTooFar     = "date_too_far"
	codeInternal       = "internal_error"
)

type errorBody struct {
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	Details      map[string]string `json:"details,omitempty"`
	NeedsRefresh bool              `json:"needs_refresh,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]errorBody{"error": {Code: code, Message: message}})
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]errorBody{"error": {
		Code:    codeValidation,
		Message: "request validation failed",
		Details: details,
	}})
}

// classify maps a service error to status, code and a user-facing message.
// Guard messages and backend messages are kept apart.
func classify(err error) (int, errorBody) {
	var gv *lifecycle.GuardViolation
	if errors.As(err, &gv) {
		return http.StatusConflict, errorBody{Code: codeGuard, Message: gv.Message}
	}

	var be *backend.Error
	if errors.As(err, &be) {
		switch be.HTTPStatus() {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, errorBody{Code: codeUnauthorized, Message: be.UserMessage()}
		case http.StatusForbidden:
			return http.StatusForbidden, errorBody{Code: codeForbidden, Message: be.UserMessage()}
		}
		return http.StatusBadGateway, errorBody{Code: codeBackend, Message: be.UserMessage()}
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyRated):
		return http.StatusConflict, errorBody{Code: codeAlreadyRated, Message: "this job has already been rated"}
	case errors.Is(err, domain.ErrInvalidSelection):
		return http.StatusUnprocessableEntity, errorBody{Code: codeInvalid, Message: err.Error()}
	case errors.Is(err, domain.ErrMissingPricingData):
		return http.StatusUnprocessableEntity, errorBody{Code: codeMissingPricing, Message: err.Error()}
	case errors.Is(err, domain.ErrUnknownService):
		return http.StatusUnprocessableEntity, errorBody{Code: codeUnknownService, Message: err.Error()}
	case errors.Is(err, domain.ErrPastSchedule):
		return http.StatusUnprocessableEntity, errorBody{Code: codePastSchedule, Message: err.Error()}
	case errors.Is(err, domain.ErrDateTooFar):
		return http.StatusUnprocessableEntity, errorBody{Code: codeDateTooFar, Message: err.Error()}
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, errorBody{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, errorBody{Code: codeRateLimited, Message: err.Error()}
	case errors.Is(err, domain.ErrBackend):
		return http.StatusBadGateway, errorBody{Code: codeBackend, Message: "backend request failed"}
	}
	return http.StatusInternalServerError, errorBody{Code: codeInternal, Message: "internal error"}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.log(r).Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		s.log(r).Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}
