// Package api exposes the scheduling service over REST.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/starboard/internal/adapters/http/site"
	"github.com/okian/starboard/internal/adapters/http/swagger"
	service "github.com/okian/starboard/internal/app"
	"github.com/okian/starboard/internal/domain/conflict"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/roster"
	"github.com/okian/starboard/internal/domain/schedule"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Health(ctx context.Context) service.Health

	Coordinators(ctx context.Context) ([]model.Coordinator, error)
	AddCoordinator(ctx context.Context, in roster.NewCoordinator) (model.Coordinator, error)
	UpdateCoordinator(ctx context.Context, id string, p roster.Patch) (model.Coordinator, error)
	RemoveCoordinator(ctx context.Context, id string) error
	ReplaceCoordinators(ctx context.Context, coords []model.Coordinator) ([]model.Coordinator, error)

	Boards(ctx context.Context) ([]model.MonthlyBoard, error)
	Board(ctx context.Context, month string) (model.MonthlyBoard, error)
	ReplaceBoards(ctx context.Context, boards []model.MonthlyBoard) ([]model.MonthlyBoard, error)
	GenerateHorizon(ctx context.Context, start model.Month, months int) (schedule.Result, error)
	GenerateMonth(ctx context.Context, month model.Month) (model.MonthlyBoard, error)
	RegenerateMonth(ctx context.Context, month model.Month) (schedule.RegenerateResult, error)
	RegenerateMonths(ctx context.Context, months []model.Month) (schedule.RegenerateResult, error)

	AssignSlot(ctx context.Context, month, date string, typ model.MeetingType, coordinatorID string) (service.SlotResult, error)
	ToggleJoined(ctx context.Context, month, date string, typ model.MeetingType, on bool) (service.SlotResult, error)
	ToggleYouth(ctx context.Context, month, date string, typ model.MeetingType, on bool) (service.SlotResult, error)

	Conflicts(ctx context.Context) []conflict.Conflict
	ResolveConflictAuto(ctx context.Context, id string) (service.SlotResult, error)
	ResolveConflictManual(ctx context.Context, id, name string) (service.SlotResult, error)
	DismissConflict(ctx context.Context, id string) error

	AuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error)
	LeadLogs(ctx context.Context) ([]model.LeadLog, error)
}

// Authorizer guards mutating routes.
type Authorizer interface {
	Authorize(credential string) bool
	Login(password string) (string, time.Time, error)
	Configured() bool
}

// Server wires HTTP routes for the scheduling API.
type Server struct {
	deps   Dependencies
	auth   Authorizer
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithNow sets the time source used to default the schedule start month.
func WithNow(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for request logging.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, auth Authorizer, opts ...Option) *Server {
	s := &Server{deps: deps, auth: auth, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	return s
}

// Routes builds the root router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger(s.logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(r)
	site.Register(r)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Post("/login", s.handleLogin)

		api.Get("/coordinators", s.handleListCoordinators)
		api.Get("/boards", s.handleListBoards)
		api.Get("/boards/{month}", s.handleGetBoard)
		api.Get("/conflicts", s.handleListConflicts)
		api.Get("/audit", s.handleListAudit)
		api.Get("/leads", s.handleListLeads)

		api.Group(func(admin chi.Router) {
			admin.Use(s.requireAdmin)

			admin.Put("/coordinators", s.handleReplaceCoordinators)
			admin.Post("/coordinators", s.handleAddCoordinator)
			admin.Patch("/coordinators/{id}", s.handleUpdateCoordinator)
			admin.Delete("/coordinators/{id}", s.handleRemoveCoordinator)

			admin.Put("/boards", s.handleReplaceBoards)
			admin.Post("/schedule", s.handleGenerateHorizon)
			admin.Post("/boards/regenerate", s.handleRegenerateMonths)
			admin.Post("/boards/{month}/generate", s.handleGenerateMonth)
			admin.Post("/boards/{month}/regenerate", s.handleRegenerateMonth)

			admin.Put("/boards/{month}/slots/{date}/{type}", s.handleAssignSlot)
			admin.Put("/boards/{month}/slots/{date}/{type}/joined", s.handleToggleJoined)
			admin.Put("/boards/{month}/slots/{date}/{type}/youth", s.handleToggleYouth)

			admin.Post("/conflicts/{id}/auto", s.handleResolveAuto)
			admin.Post("/conflicts/{id}/manual", s.handleResolveManual)
			admin.Delete("/conflicts/{id}", s.handleDismissConflict)
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps an error kind to its status code.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInput), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, model.ErrRule):
		return http.StatusConflict, "rule_violation"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
