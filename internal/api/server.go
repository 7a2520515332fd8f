package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the router reads from.
type Deps struct {
	Launch      launchStatus
	Registry    capabilityRegistry
	Maps        health.Prober
	Metrics     http.Handler
	ServiceName string
}

// Router wraps a configured Gin engine and exposes it as an http.Handler.
type Router struct {
	engine *gin.Engine
}

// NewRouter constructs a Router with the middleware chain and all routes
// registered. Middleware order:
//  1. Recovery: panic → 500
//  2. Tracing: OTEL span per request
//  3. RequestLogger: structured request logging
func NewRouter(d Deps) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(Recovery(slog.Default()))
	engine.Use(Tracing(d.ServiceName))
	engine.Use(RequestLogger(slog.Default(), "/health", "/metrics"))

	h := &Handler{launch: d.Launch, registry: d.Registry, maps: d.Maps}

	v1 := engine.Group("/api/v1")
	v1.GET("/launch", h.LaunchReport)
	v1.GET("/plugins", h.Plugins)

	engine.GET("/health", h.Health)
	engine.GET("/health/deep", h.DeepHealth)
	engine.GET("/ready", h.Ready)

	if d.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return &Router{engine: engine}
}

// Handler returns the underlying http.Handler for use with net/http servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Server is the HTTP host brought up as the base launch handler.
type Server struct {
	srv    *http.Server
	listen func(network, addr string) (net.Listener, error)
	ln     net.Listener
	errCh  chan error
}

// NewServer prepares a server for addr. Nothing is bound until OnLaunch.
func NewServer(addr string, h http.Handler, cfg config.ServerConfig) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      h,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		listen: net.Listen,
		errCh:  make(chan error, 1),
	}
}

// OnLaunch binds the listener and starts serving in the background. It
// returns false when the address cannot be bound, which refuses the launch.
func (s *Server) OnLaunch(ctx context.Context, _ launch.Options) bool {
	ln, err := s.listen("tcp", s.srv.Addr)
	if err != nil {
		slog.ErrorContext(ctx, "http listener bind failed", "addr", s.srv.Addr, "error", err)
		return false
	}
	s.ln = ln

	go func() {
		slog.Info("launchpad server listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- fmt.Errorf("server error: %w", err)
		}
	}()
	return true
}

// Addr returns the bound address, or the configured one before launch.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Err delivers a fatal serve error, if one occurs.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown gracefully stops the server. ctx should have a deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
