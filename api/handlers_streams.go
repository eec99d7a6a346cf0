package api

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/CreativeUnicorns/cinehub/stream"
)

// handleStream serves the configured media file with range support.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	err := s.streams.Serve(w, r)
	if err == nil {
		return
	}

	var rangeErr *stream.RangeError
	switch {
	case errors.Is(err, stream.ErrInterrupted):
		s.logger.Warn("Stream interrupted", "error", err, "request_id", middleware.GetReqID(r.Context()))
	case errors.As(err, &rangeErr):
		s.respondWithError(w, r, http.StatusBadRequest, rangeErr.Message, nil)
	case errors.Is(err, fs.ErrNotExist):
		s.respondWithError(w, r, http.StatusNotFound, "Stream not found", nil)
	default:
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to stream resource", err)
	}
}
