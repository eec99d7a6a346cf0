package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CreativeUnicorns/cinehub"
	"github.com/CreativeUnicorns/cinehub/stream"
)

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cinehub.ErrInvalidInput),
		errors.Is(err, cinehub.ErrInvalidDataType),
		errors.Is(err, stream.ErrRangeNotSatisfiable):
		return http.StatusBadRequest
	case errors.Is(err, cinehub.ErrTypeConflict):
		return http.StatusConflict
	case errors.Is(err, cinehub.ErrNotFound),
		errors.Is(err, cinehub.ErrTypeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondWithMappedError sends err with the status statusFor picks. Details of
// server-side failures are logged but not returned.
func (s *Server) respondWithMappedError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Internal error", "path", r.URL.Path, "error", err)
		s.respondWithError(w, r, status, message, nil)
		return
	}
	s.respondWithError(w, r, status, message, err)
}

// respondWithError is a helper to send JSON error responses.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := map[string]string{"message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	}
	s.respondWithJSON(w, r, status, map[string]any{"error": body})
}

// respondWithJSON is a helper to send JSON responses.
func (s *Server) respondWithJSON(w http.ResponseWriter, _ *http.Request, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Failed to marshal response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
