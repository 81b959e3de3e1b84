package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"storybook-platform/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors onto HTTP codes. Anything unknown is a 500
// and its message is not exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrContentRejected),
		errors.Is(err, domain.ErrNoPages):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrAlreadyNarrated),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, domain.ErrQueueFull):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway, "generation providers unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}
