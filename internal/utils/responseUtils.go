package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/apperrors"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// SendJSONError writes {success:false, message}. detail is only included when
// non-empty; callers pass it in development builds only.
func SendJSONError(w http.ResponseWriter, message string, code int, detail string) {
	RespondWithJSON(w, code, ErrorResponse{Success: false, Message: message, Error: detail})
}

// SendAppError maps err through apperrors. The raw error text is only
// attached to 5xx responses, and only when exposeDetail is set.
func SendAppError(w http.ResponseWriter, err error, exposeDetail bool) {
	status := apperrors.Status(err)
	detail := ""
	if exposeDetail && status >= http.StatusInternalServerError {
		detail = err.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	SendJSONError(w, apperrors.Message(err), status, detail)
}
