package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/okian/starboard/internal/auth"
)

type healthResponse struct {
	Status           string    `json:"status"`
	Time             time.Time `json:"time"`
	Backend          string    `json:"backend"`
	DBConfigured     bool      `json:"db_configured"`
	AuthConfigured   bool      `json:"auth_configured"`
	Env              string    `json:"env"`
	PendingConflicts int       `json:"pendingConflicts"`
}

// handleHealth serves GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.deps.Health(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           h.Status,
		Time:             h.Time,
		Backend:          h.Backend,
		DBConfigured:     h.DBConfigured,
		AuthConfigured:   s.auth != nil && s.auth.Configured(),
		Env:              h.Env,
		PendingConflicts: h.PendingConflicts,
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleLogin serves POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if s.auth == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	token, expires, err := s.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) || errors.Is(err, auth.ErrNotConfigured) {
			writeError(w, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, ExpiresAt: expires})
}
