package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/CesValde/MongoCart/internal/service"
)

// Envelope is the canonical response shape: status plus either a payload or
// an error message.
type Envelope struct {
	Status  string      `json:"status"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, payload interface{}) {
	respondJSON(w, status, Envelope{Status: "success", Payload: payload})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Envelope{Status: "error", Error: message})
}

// respondServiceError maps the service error kinds onto HTTP statuses. An
// unclassified error is a store failure: it is logged here and collapsed into
// a generic message so persistence details never reach the caller.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		logrus.WithError(err).Error("internal error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
