package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/starboard/internal/app"
	"github.com/okian/starboard/internal/domain/conflict"
	"github.com/okian/starboard/internal/domain/model"
)

type assignRequest struct {
	CoordinatorID string `json:"coordinatorId"`
}

type toggleRequest struct {
	Value bool `json:"value"`
}

type manualRequest struct {
	Name string `json:"name"`
}

type conflictResponse struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Conflict *conflict.Conflict `json:"conflict"`
	Board    model.MonthlyBoard `json:"board"`
}

// slotParams reads {month}, {date} and {type} from the route.
func slotParams(r *http.Request) (month, date string, typ model.MeetingType, err error) {
	typ, err = model.ParseMeetingType(chi.URLParam(r, "type"))
	return chi.URLParam(r, "month"), chi.URLParam(r, "date"), typ, err
}

// writeSlotResult answers 409 with the pending conflict, 200 otherwise.
func writeSlotResult(w http.ResponseWriter, res service.SlotResult) {
	if res.Conflict != nil {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Code:     "duplicate",
			Message:  res.Conflict.Name + " is already assigned to another " + string(res.Conflict.Type) + " this month",
			Conflict: res.Conflict,
			Board:    res.Board,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAssignSlot serves PUT /api/boards/{month}/slots/{date}/{type}.
func (s *Server) handleAssignSlot(w http.ResponseWriter, r *http.Request) {
	month, date, typ, err := slotParams(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.deps.AssignSlot(r.Context(), month, date, typ, req.CoordinatorID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSlotResult(w, res)
}

// handleToggleJoined serves PUT /api/boards/{month}/slots/{date}/{type}/joined.
func (s *Server) handleToggleJoined(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, s.deps.ToggleJoined)
}

// handleToggleYouth serves PUT /api/boards/{month}/slots/{date}/{type}/youth.
func (s *Server) handleToggleYouth(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, s.deps.ToggleYouth)
}

type toggleFunc func(ctx context.Context, month, date string, typ model.MeetingType, on bool) (service.SlotResult, error)

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, fn toggleFunc) {
	month, date, typ, err := slotParams(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := fn(r.Context(), month, date, typ, req.Value)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSlotResult(w, res)
}

// handleListConflicts serves GET /api/conflicts.
func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.deps.Conflicts(r.Context())))
}

// handleResolveAuto serves POST /api/conflicts/{id}/auto.
func (s *Server) handleResolveAuto(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ResolveConflictAuto(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleResolveManual serves POST /api/conflicts/{id}/manual.
func (s *Server) handleResolveManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.deps.ResolveConflictManual(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDismissConflict serves DELETE /api/conflicts/{id}.
func (s *Server) handleDismissConflict(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DismissConflict(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
