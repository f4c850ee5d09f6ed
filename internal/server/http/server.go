// Package http exposes the matting service over a huma API served by gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humagin"
	"github.com/gin-gonic/gin"

	"github.com/ekisa-team/bgblast/internal/config"
	"github.com/ekisa-team/bgblast/internal/env"
)

const (
	apiTitle   = "bgblast"
	apiVersion = "1.0.0"
)

// Server is the HTTP server.
type Server struct {
	engine *gin.Engine
	api    huma.API
	srv    *http.Server
}

// NewServer builds the gin engine, the huma API and registers every handler.
func NewServer(environment env.Environment, cfg config.ServerConfig, svc MattingService) *Server {
	if environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), AccessLog())

	api := humagin.New(engine, huma.DefaultConfig(apiTitle, apiVersion))
	Register(api, svc, cfg.MaxUploadBytes)

	return &Server{
		engine: engine,
		api:    api,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Register registers all operations on api.
func Register(api huma.API, svc MattingService, maxUploadBytes int64) {
	NewModelHandler(api, svc)
	NewImageHandler(api, svc, maxUploadBytes)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	slog.Info("HTTP server listening", "addr", l.Addr().String())

	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured port.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
