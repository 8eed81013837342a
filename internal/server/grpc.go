package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// #region health-server
// healthServer serves grpc.health.v1 for the whole process ("" service)
// and for the answer service by name.
type healthServer struct {
	addr     string
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	log      *zap.Logger
}

// ServiceName is the health service name reported alongside "".
const ServiceName = "nova.Answer"

func newHealthServer(addr string, log *zap.Logger) *healthServer {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	h := &healthServer{addr: addr, server: gs, health: hs, log: log}
	h.setServing(false)
	return h
}

func (h *healthServer) start(errCh chan<- error) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", h.addr, err)
	}
	h.listener = lis
	go func() {
		if err := h.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	return nil
}

func (h *healthServer) setServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	h.log.Debug("health status", zap.String("status", status.String()))
}

// stop drains in-flight RPCs, forcing a stop when ctx ends first.
func (h *healthServer) stop(ctx context.Context) error {
	h.health.Shutdown()
	done := make(chan struct{})
	go func() {
		h.server.GracefulStop()
		close(done)
	}()
	select {
	case <-ctx.Done():
		h.server.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}

// #endregion health-server
