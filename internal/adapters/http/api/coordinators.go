package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/roster"
)

type addCoordinatorRequest struct {
	Name      string `json:"name"`
	Stars     *int   `json:"stars"`
	Available *bool  `json:"available"`
	Phone     string `json:"phone"`
}

type patchCoordinatorRequest struct {
	Name      *string `json:"name"`
	Stars     *int    `json:"stars"`
	Available *bool   `json:"available"`
	Phone     *string `json:"phone"`
}

// handleListCoordinators serves GET /api/coordinators.
func (s *Server) handleListCoordinators(w http.ResponseWriter, r *http.Request) {
	coords, err := s.deps.Coordinators(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(coords))
}

// handleReplaceCoordinators serves PUT /api/coordinators. The body is either
// a bare array or {"coordinators": [...]}.
func (s *Server) handleReplaceCoordinators(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	coords, err := decodeList[model.Coordinator](raw, "coordinators")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	saved, err := s.deps.ReplaceCoordinators(r.Context(), coords)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(saved))
}

// handleAddCoordinator serves POST /api/coordinators.
func (s *Server) handleAddCoordinator(w http.ResponseWriter, r *http.Request) {
	var req addCoordinatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	created, err := s.deps.AddCoordinator(r.Context(), roster.NewCoordinator{
		Name:      req.Name,
		Stars:     req.Stars,
		Available: req.Available,
		Phone:     req.Phone,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateCoordinator serves PATCH /api/coordinators/{id}.
func (s *Server) handleUpdateCoordinator(w http.ResponseWriter, r *http.Request) {
	var req patchCoordinatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	updated, err := s.deps.UpdateCoordinator(r.Context(), chi.URLParam(r, "id"), roster.Patch{
		Name:      req.Name,
		Stars:     req.Stars,
		Available: req.Available,
		Phone:     req.Phone,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleRemoveCoordinator serves DELETE /api/coordinators/{id}.
func (s *Server) handleRemoveCoordinator(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.RemoveCoordinator(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeList accepts either a bare JSON array or an object holding the
// array under key.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	var out []T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		return out, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	inner, ok := env[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrBadRequest, key)
	}
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return out, nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
