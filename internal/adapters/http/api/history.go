package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// handleListAudit serves GET /api/audit?limit=N, newest first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeDomainError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", ErrBadRequest))
			return
		}
		limit = n
	}
	events, err := s.deps.AuditEvents(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// handleListLeads serves GET /api/leads.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	logs, err := s.deps.LeadLogs(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(logs))
}
