package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/starboard/internal/adapters/http/api"
	"github.com/okian/starboard/internal/adapters/repository"
	service "github.com/okian/starboard/internal/app"
	"github.com/okian/starboard/internal/auth"
	"github.com/okian/starboard/internal/config"
	"github.com/okian/starboard/internal/domain/clock"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "starboard exited", logger.Error(err))
		os.Exit(1)
	}
}

// app bundles what run starts and stops.
type app struct {
	cfg    *config.Config
	svc    *service.Service
	server *http.Server
}

// build opens storage and wires the service behind the HTTP server.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.Get()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.System{Location: loc}

	if err := metrics.RegisterRuntimeCollectors(); err != nil {
		log.Warn(ctx, "runtime collectors not registered", logger.Error(err))
	}

	store, err := repository.Open(ctx, repository.Settings{
		Backend:       cfg.Backend,
		DataDir:       cfg.DataDir,
		LockTimeout:   cfg.LockTimeout,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		MongoTimeout:  cfg.MongoTimeout,
	})
	if err != nil {
		return nil, err
	}

	authz, err := auth.New(
		auth.WithPasswordHash(cfg.AdminPasswordHash),
		auth.WithPassword(cfg.AdminPassword),
		auth.WithSigningKey(cfg.JWTSigningKey),
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithClock(clk),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !authz.Configured() {
		log.Warn(ctx, "no admin password configured; mutating routes will refuse every request")
	}

	svc := service.New(
		service.WithStore(store),
		service.WithClock(clk),
		service.WithHorizon(cfg.Horizon),
		service.WithAuditQueueSize(cfg.AuditQueueSize),
		service.WithEnvironment(cfg.Env),
		service.WithLogger(log.Named("service")),
	)

	routes := api.NewServer(svc, authz,
		api.WithNow(clk.Now),
		api.WithLogger(log.Named("http")),
	).Routes()

	return &app{
		cfg: cfg,
		svc: svc,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           routes,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.svc.Start(ctx); err != nil {
		return err
	}

	go autoGenerate(ctx, a.svc, cfg.AutoGenerateInterval)

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.Backend),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = a.svc.Stop(context.Background())
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := a.svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// autoGenerate checks once at startup and then every interval whether next
// month's board is due.
func autoGenerate(ctx context.Context, svc *service.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := logger.Get().Named("auto-generate")
	check := func() {
		month, generated, err := svc.AutoGenerateNextMonth(ctx)
		switch {
		case err != nil:
			log.Error(ctx, "auto-generation failed", logger.Error(err))
		case generated:
			log.Info(ctx, "next month generated", logger.String("month", month))
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
