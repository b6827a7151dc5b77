package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/schedule"
)

type scheduleRequest struct {
	Start  string `json:"start"`
	Months int    `json:"months"`
}

type regenerateRequest struct {
	Months []string `json:"months"`
}

type generationResponse struct {
	Boards      []model.MonthlyBoard `json:"boards"`
	Assigned    int                  `json:"assigned"`
	Unassigned  int                  `json:"unassigned"`
	StarsSpent  int                  `json:"starsSpent"`
	Regenerated []string             `json:"regenerated,omitempty"`
	Skipped     []string             `json:"skipped,omitempty"`
}

func generation(res schedule.Result) generationResponse {
	return generationResponse{
		Boards:     nonNil(res.Boards),
		Assigned:   res.Assigned,
		Unassigned: res.Unassigned,
		StarsSpent: res.StarsSpent,
	}
}

// handleListBoards serves GET /api/boards.
func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.deps.Boards(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(boards))
}

// handleGetBoard serves GET /api/boards/{month}.
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.deps.Board(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// handleReplaceBoards serves PUT /api/boards. The body is either a bare
// array or {"boards": [...]}.
func (s *Server) handleReplaceBoards(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	boards, err := decodeList[model.MonthlyBoard](raw, "boards")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	saved, err := s.deps.ReplaceBoards(r.Context(), boards)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(saved))
}

// handleGenerateHorizon serves POST /api/schedule. It replaces every board.
func (s *Server) handleGenerateHorizon(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	start := model.MonthOf(s.now())
	if strings.TrimSpace(req.Start) != "" {
		m, err := model.ParseMonth(req.Start)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		start = m
	}
	res, err := s.deps.GenerateHorizon(r.Context(), start, req.Months)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generation(res))
}

// handleGenerateMonth serves POST /api/boards/{month}/generate.
func (s *Server) handleGenerateMonth(w http.ResponseWriter, r *http.Request) {
	m, err := model.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	board, err := s.deps.GenerateMonth(r.Context(), m)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// handleRegenerateMonth serves POST /api/boards/{month}/regenerate.
func (s *Server) handleRegenerateMonth(w http.ResponseWriter, r *http.Request) {
	m, err := model.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.deps.RegenerateMonth(r.Context(), m)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := generation(res.Result)
	out.Regenerated = res.Regenerated
	writeJSON(w, http.StatusOK, out)
}

// handleRegenerateMonths serves POST /api/boards/regenerate.
func (s *Server) handleRegenerateMonths(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	months := make([]model.Month, 0, len(req.Months))
	for _, raw := range req.Months {
		m, err := model.ParseMonth(raw)
		if err != nil {
			s.writeDomainError(w, r, fmt.Errorf("months: %w", err))
			return
		}
		months = append(months, m)
	}
	res, err := s.deps.RegenerateMonths(r.Context(), months)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := generation(res.Result)
	out.Regenerated = res.Regenerated
	out.Skipped = res.Skipped
	writeJSON(w, http.StatusOK, out)
}
