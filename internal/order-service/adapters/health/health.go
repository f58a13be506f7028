// Package health reports storage reachability through grpc.health.v1.
package health

import (
	"context"
	"log/slog"
	"time"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Watch pings storage every interval and flips service between SERVING and
// NOT_SERVING accordingly, until ctx ends. The overall ("") status follows
// service.
func Watch(ctx context.Context, srv *grpchealth.Server, service string, p Pinger, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err := p.Ping(pingCtx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "storage ping failed", "service", service, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		srv.SetServingStatus(service, status)
		srv.SetServingStatus("", status)
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
