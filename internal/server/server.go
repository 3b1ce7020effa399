// Package server hosts the webhook endpoints, health and metrics routes and
// the optional MCP operator surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ajanottaja/identity-bridge/internal/auth/middleware"
	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/server/handler"
	"github.com/ajanottaja/identity-bridge/internal/telemetry"
	"github.com/ajanottaja/identity-bridge/internal/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// defaultShutdownTimeout is used when server.shutdown_timeout is unset
	defaultShutdownTimeout = 5 * time.Second

	MCPPath = "/mcp"
)

// Server serves the relay's HTTP surface.
type Server struct {
	config    *config.Config
	hooks     *handler.Handler
	validator *handler.Validator
	mcp       *MCPServer
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
	http      *http.Server
	addr      string
}

// Params are the dependencies of NewServer.
type Params struct {
	fx.In

	Config  *config.Config
	Bridge  *bridge.Service
	Metrics *telemetry.Metrics `optional:"true"`
	Tracer  *telemetry.Tracer  `optional:"true"`
}

// NewServer creates the HTTP server. It does not start listening.
func NewServer(p Params) (*Server, error) {
	if p.Config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if p.Bridge == nil {
		return nil, errors.New("bridge service cannot be nil")
	}

	srv := &Server{
		config:  p.Config,
		hooks:   handler.NewHandler(p.Bridge, p.Metrics, p.Config.Registration.SuppressErrors),
		metrics: p.Metrics,
		tracer:  p.Tracer,
	}

	if p.Config.Server.ValidateHooks {
		v, err := handler.NewValidator()
		if err != nil {
			return nil, err
		}
		srv.validator = v
	}
	if p.Config.Server.MCPEnabled {
		srv.mcp = NewMCPServer(p.Bridge)
	}

	srv.http = &http.Server{
		Addr:              p.Config.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: p.Config.Server.ReadTimeout,
		ReadTimeout:       p.Config.Server.ReadTimeout,
	}
	return srv, nil
}

// Handler builds the router with routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, LoggingMiddleware, chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "version": config.Version()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	secret := middleware.HookSecret(s.config.Server.HookSecret)
	r.Group(func(hr chi.Router) {
		hr.Use(secret)
		if s.validator != nil {
			hr.Use(s.validator.Middleware)
		}
		s.hooks.RegisterRoutes(hr)
	})

	if s.mcp != nil {
		r.With(secret).Handle(MCPPath, s.mcp.HTTPHandler())
	}

	return s.tracer.Middleware("identity-bridge")(r)
}

// Start begins listening and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	s.addr = ln.Addr().String()

	logger.Info("Starting server",
		zap.String("address", s.addr),
		zap.String("version", config.Version()),
		zap.Bool("mcp", s.mcp != nil),
		zap.Bool("validate_hooks", s.validator != nil),
	)

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) listenAddr() string {
	return s.addr
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	logger.Info("Shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func register(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}

// Module provides the HTTP server and ties it to the application lifecycle
var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(register),
)
