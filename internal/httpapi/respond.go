package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carlamarinaap/go-shop/internal/apperr"
	"github.com/carlamarinaap/go-shop/internal/checkout"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the error taxonomy to HTTP statuses.
func handleServiceError(w http.ResponseWriter, err error) {
	var partial *checkout.PartialCheckoutError
	if errors.As(err, &partial) {
		respondError(w, http.StatusInternalServerError, "partial_checkout", partial.Error())
		return
	}

	// A duplicate business key is a conflict on the wire even though the
	// services classify it as a validation failure.
	if errors.Is(err, repository.ErrDuplicateCode) {
		respondError(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case apperr.KindValidation:
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	case apperr.KindConflict:
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
