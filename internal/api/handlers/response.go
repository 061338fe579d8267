package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError writes the error kind and its caller-safe message.
// Wrapped causes are logged, never sent.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.TypeOf(err)
	status := statusForError(kind)

	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(kind)).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("kind", string(kind)).Str("path", r.URL.Path).Msg("request rejected")
	}

	respondWithJSON(w, status, map[string]string{
		"error": apperrors.MessageOf(err),
		"kind":  string(kind),
	})
}

func statusForError(kind apperrors.ErrorType) int {
	switch kind {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeInvalidTransition, apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeComplianceRejected:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeAssemblyFailure:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeModelInvocation, apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptionalJSON decodes r's body into v, treating an empty body as valid.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
