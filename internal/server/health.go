package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const probeTimeout = 3 * time.Second

// HealthReport is the result of probing every collaborator.
type HealthReport struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	CheckedAt time.Time         `json:"checked_at"`
}

func (r HealthReport) Healthy() bool { return r.Status == "ok" }

// Probe pings the database, the search backend and the object store.
func (s *Server) Probe(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	rep := HealthReport{Status: "ok", Service: serviceName, Version: s.cfg.Version, Checks: map[string]string{}, CheckedAt: s.now().UTC()}
	check := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			rep.Checks[name] = "error: " + err.Error()
			rep.Status = "degraded"
			return
		}
		rep.Checks[name] = "ok"
	}
	if s.deps.DB != nil {
		check("database", func(ctx context.Context) error { return s.deps.DB.HealthCheck(ctx, 0) })
	}
	if s.deps.Search != nil {
		check("search", s.deps.Search.Health)
	}
	if s.deps.Store != nil {
		check("storage", s.deps.Store.Ping)
	}
	return rep
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": s.cfg.Version,
		"docs": gin.H{
			"documents": "/api/documents",
			"auth":      "/api/auth",
			"audit":     "/api/audit",
			"health":    "/health",
		},
	})
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	rep := s.Probe(c.Request.Context())
	status := http.StatusOK
	if !rep.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, rep)
}

// GRPCHealth serves the standard gRPC health service next to the HTTP API.
type GRPCHealth struct {
	srv    *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewGRPCHealth(logger *slog.Logger) *GRPCHealth {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	// empty service name means overall server health
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return &GRPCHealth{srv: srv, health: hs, logger: logger}
}

func (g *GRPCHealth) SetServing(ok bool) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if !ok {
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", st)
}

// Serve blocks on lis until ctx is cancelled.
func (g *GRPCHealth) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- g.srv.Serve(lis) }()
	g.logger.Info("grpc health listening", "addr", lis.Addr().String())
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		g.health.Shutdown()
		g.srv.GracefulStop()
		return nil
	}
}

// WatchHealth re-probes every interval and mirrors the result into g.
func (s *Server) WatchHealth(ctx context.Context, g *GRPCHealth, interval time.Duration) {
	update := func() {
		rep := s.Probe(ctx)
		g.SetServing(rep.Healthy())
		if !rep.Healthy() {
			s.logger.Warn("health.probe.degraded", "checks", rep.Checks)
		}
	}
	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			update()
		}
	}
}
