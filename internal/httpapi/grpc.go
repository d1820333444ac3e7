package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/trongquochuydinh/semester-project/internal/obs"
)

// GRPCHealth exposes the standard gRPC health service backed by the same
// readiness probe as /readyz. Orchestrators that speak grpc.health.v1 can
// probe the service without going through HTTP.
type GRPCHealth struct {
	server *grpc.Server
	status *health.Server
	probe  ReadyProbe
}

func NewGRPCHealth(rp ReadyProbe) *GRPCHealth {
	g := &GRPCHealth{
		server: grpc.NewServer(),
		status: health.NewServer(),
		probe:  rp,
	}
	healthpb.RegisterHealthServer(g.server, g.status)
	g.status.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return g
}

// Serve blocks serving gRPC on the listener until Stop is called.
func (g *GRPCHealth) Serve(lis net.Listener) error {
	return g.server.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (g *GRPCHealth) Stop() {
	g.server.GracefulStop()
}

// WatchReadiness re-evaluates the probe on the given interval and updates the
// advertised health status until the context is cancelled.
func (g *GRPCHealth) WatchReadiness(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	g.refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.refresh(ctx)
		}
	}
}

func (g *GRPCHealth) refresh(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	ready := true
	if err := g.probe.Check(checkCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		ready = false
	}
	obs.SetReady(ready)
	g.status.SetServingStatus(serviceName, status)
	g.status.SetServingStatus("", status)
}
