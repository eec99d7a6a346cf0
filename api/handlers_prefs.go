package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/CreativeUnicorns/cinehub"
	"github.com/CreativeUnicorns/cinehub/auth"
	"github.com/CreativeUnicorns/cinehub/metrics"
)

const maxBodyBytes = 1024 * 1024

var validate = validator.New()

type addPrefTypeRequest struct {
	PrefName string `json:"prefName" validate:"required,max=64"`
	DataType string `json:"dataType" validate:"required,oneof=string number boolean enum"`
}

type putPrefsRequest struct {
	Prefs []cinehub.Entry `json:"prefs" validate:"required"`
}

type prefsResponse struct {
	Prefs cinehub.Profiles `json:"prefs"`
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// handleAddPrefType registers a new preference type. Administrators only.
func (s *Server) handleAddPrefType(w http.ResponseWriter, r *http.Request) {
	var req addPrefTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	pt, err := s.manager.AddPrefType(r.Context(), req.PrefName, cinehub.DataType(req.DataType))
	if err != nil {
		if errors.Is(err, cinehub.ErrEnumNotConfigured) {
			s.respondWithError(w, r, http.StatusBadRequest, "Invalid preference type", err)
			return
		}
		s.respondWithMappedError(w, r, "Failed to add preference type", err)
		return
	}

	s.respondWithJSON(w, r, http.StatusCreated, pt)
}

// handleListPrefTypes lists the registered preference types.
func (s *Server) handleListPrefTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.manager.PrefTypes(r.Context())
	if err != nil {
		s.respondWithMappedError(w, r, "Failed to list preference types", err)
		return
	}
	if types == nil {
		types = []*cinehub.PreferenceType{}
	}
	s.respondWithJSON(w, r, http.StatusOK, types)
}

// handleGetMyPrefs returns the caller's preferences grouped by profile.
func (s *Server) handleGetMyPrefs(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	profiles, err := s.manager.Profiles(r.Context(), claims.UserID)
	if err != nil {
		s.respondWithMappedError(w, r, "Failed to load preferences", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, prefsResponse{Prefs: profiles})
}

// handlePutMyPrefs merges a batch of preferences into the caller's profiles.
// Rejected entries are reported in the errors list of a 200 response.
func (s *Server) handlePutMyPrefs(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req putPrefsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	result, err := s.manager.Upsert(r.Context(), claims.UserID, req.Prefs)
	if err != nil {
		s.respondWithMappedError(w, r, "Failed to save preferences", err)
		return
	}

	metrics.RecordUpsert(len(result.Persisted), len(result.Errors))
	s.respondWithJSON(w, r, http.StatusOK, result)
}
