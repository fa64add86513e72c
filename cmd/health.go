package main

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// voterService is the health service reporting whether the voted
// temperature can be trusted.
const voterService = "tec.Voter"

type healthServer struct {
	grpcServer *grpc.Server
	status     *health.Server
}

// startHealth serves the gRPC health protocol on l.
func startHealth(l net.Listener, logger *slog.Logger) *healthServer {
	h := &healthServer{
		grpcServer: grpc.NewServer(),
		status:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.grpcServer, h.status)
	h.status.SetServingStatus(voterService, healthpb.HealthCheckResponse_NOT_SERVING)
	go func() {
		if err := h.grpcServer.Serve(l); err != nil {
			logger.Error("health server stopped", "error", err)
		}
	}()
	return h
}

// setVoter records whether the node currently has a trusted voted value.
func (h *healthServer) setVoter(trusted bool) {
	if h == nil {
		return
	}
	status := healthpb.HealthCheckResponse_SERVING
	if !trusted {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.status.SetServingStatus(voterService, status)
}

func (h *healthServer) stop() {
	if h == nil {
		return
	}
	h.status.Shutdown()
	h.grpcServer.GracefulStop()
}
