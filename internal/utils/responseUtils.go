package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Extra   map[string]any `json:"-"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(e.Extra)+3)
	for k, v := range e.Extra {
		body[k] = v
	}
	body["success"] = e.Success
	if e.Message != "" {
		body["message"] = e.Message
	}
	if e.Data != nil {
		body["data"] = e.Data
	}
	return json.Marshal(body)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func RespondWithSuccess(w http.ResponseWriter, code int, message string, data any) {
	RespondWithJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{Success: false, Message: message})
}

// RespondWithErrorDetails adds extra top-level fields such as waitSeconds.
func RespondWithErrorDetails(w http.ResponseWriter, code int, message string, extra map[string]any) {
	RespondWithJSON(w, code, Envelope{Success: false, Message: message, Extra: extra})
}
