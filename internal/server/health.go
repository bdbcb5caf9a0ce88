package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service alongside the overall "" status.
const ServiceName = "invoiceentities.Extractor"

// HealthServer is a gRPC server carrying only the standard health service
// (plus reflection for grpcurl).
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{grpc: gs, health: hs, logger: logger}
}

// SetServing flips both statuses.
func (h *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
	h.logger.Info("grpc.health.status", "status", st.String())
}

// Serve blocks until Shutdown.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc.health.serving", "addr", lis.Addr().String())
	return h.grpc.Serve(lis)
}

// Shutdown reports NOT_SERVING to watchers, then stops gracefully.
func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
