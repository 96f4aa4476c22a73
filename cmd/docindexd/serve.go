package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/server"
)

const healthInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the REST API together with the optional gRPC health endpoint and,
when WATCH_DIR is set, a drop folder watcher feeding the ingestion pipeline.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newFull(ctx, common.LoadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	a.trail.Initialize(ctx)
	a.trail.LogSystemEvent(ctx, constants.EventSystemStartup, map[string]any{
		"version":        version,
		"env":            a.cfg.AppEnv,
		"storage":        a.cfg.Storage.Backend,
		"search":         a.cfg.Search.Backend,
		"oracle":         a.cfg.Oracle.Provider,
		"database":       a.cfg.Database.Driver,
		"max_upload":     a.cfg.Ingest.MaxUploadBytes,
		"watch_dir":      a.cfg.Ingest.WatchDir,
		"grpc_health_at": a.cfg.Server.GRPCHealthAddr,
	}, constants.SeverityInfo)

	srv := server.NewServer(server.Config{
		Addr:            a.cfg.Server.HTTPAddr,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		Production:      a.cfg.IsProduction(),
		Version:         version,
	}, server.Deps{
		Pipeline:  a.pipeline,
		Search:    a.search,
		Store:     a.store,
		Documents: a.docs,
		Audit:     a.trail,
		Identity:  a.identity,
		DB:        a.db,
	}, a.logger)

	var lis net.Listener
	if addr := a.cfg.Server.GRPCHealthAddr; addr != "" {
		lis, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen grpc health on %s: %w", addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })

	if lis != nil {
		gh := server.NewGRPCHealth(a.logger)
		g.Go(func() error { return gh.Serve(gctx, lis) })
		g.Go(func() error {
			srv.WatchHealth(gctx, gh, healthInterval)
			return nil
		})
	}

	if dir := a.cfg.Ingest.WatchDir; dir != "" {
		g.Go(func() error { return a.watch(gctx, dir) })
	}

	err = g.Wait()
	// ctx is already cancelled here
	a.trail.LogSystemEvent(context.WithoutCancel(ctx), constants.EventSystemShutdown, map[string]any{
		"version": version,
		"clean":   err == nil,
	}, constants.SeverityInfo)
	return err
}
