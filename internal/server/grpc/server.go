// Package grpc serves the standard gRPC health service.
package grpc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall status.
const ServiceName = "bgblast.v1.Matting"

// Server is the gRPC server. It reports NOT_SERVING until SetReady is called.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

// NewServer creates a new gRPC server with the health service registered.
func NewServer(opts ...grpc.ServerOption) *Server {
	s := &Server{
		srv:    grpc.NewServer(opts...),
		health: health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)

	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// SetReady marks the service as serving. modelID is only logged.
func (s *Server) SetReady(modelID string) {
	slog.Info("gRPC health serving", "model", modelID)
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on l until GracefulStop.
func (s *Server) Serve(l net.Listener) error {
	slog.Info("gRPC server listening", "addr", l.Addr().String())

	if err := s.srv.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// GracefulStop marks every service NOT_SERVING and waits for pending RPCs.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
