// AngelaMos | 2026
// grpc.go

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

type GRPCServer struct {
	server *grpc.Server
	addr   string
	logger *slog.Logger
}

func NewGRPC(srv *grpc.Server, addr string, enableReflection bool, logger *slog.Logger) *GRPCServer {
	if enableReflection {
		reflection.Register(srv)
	}
	return &GRPCServer{server: srv, addr: addr, logger: logger}
}

func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	s.logger.Info("grpc server listening", "addr", s.addr)
	if err := s.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight RPCs and forces a stop once ctx expires.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("grpc server stopped")
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warn("grpc server forced to stop")
	}
}
