package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/query"
	"github.com/vidtube/backend/internal/repositories"
)

// apiResponse is the envelope wrapping every successful response body.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError is the envelope wrapping every error response body. Errors is
// always present, empty when there are no field-level details.
type apiError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSON decodes and validates a JSON request body into dst. The body is
// expected to already be capped by http.MaxBytesReader upstream.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeJSON(ctx, w, status, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	writeJSON(ctx, w, status, apiError{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

// respondFromError translates a service error into the matching status code.
// Unrecognized errors become an opaque 500; the detail stays in the log.
func respondFromError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	var vErrs validator.ValidationErrors

	switch {
	case errors.As(err, &vErrs):
		details := make([]string, 0, len(vErrs))
		for _, fe := range vErrs {
			details = append(details, fe.Field()+" failed on "+fe.Tag())
		}
		respondError(ctx, w, http.StatusBadRequest, "validation failed", details...)
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, fallback)
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, fallback)
	case errors.Is(err, query.ErrUnknownField), errors.Is(err, query.ErrUnknownCollection):
		respondError(ctx, w, http.StatusBadRequest, fallback)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
		respondError(ctx, w, http.StatusUnauthorized, fallback)
	default:
		logging.FromContext(ctx).Error("request failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status)
	}
}
