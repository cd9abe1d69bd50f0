package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/a2abridge/internal/config"
	"github.com/dusk-indust/a2abridge/internal/httpapi"
	"github.com/dusk-indust/a2abridge/internal/mcptools"
)

const shutdownTimeout = 10 * time.Second

func runServe(flags cliFlags) error {
	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	if flags.Addr != "" {
		cfg.HTTPAddr = flags.Addr
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting a2abridge",
		zap.String("build", version),
		zap.String("env_file", cfg.EnvFile),
		zap.String("agent", cfg.A2AClient),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, resolver, err := newRelay(cfg, logger, reg)
	if err != nil {
		return err
	}
	mcpServer := mcptools.NewBridgeMCPServer(mcptools.NewBridgeService(r, resolver), version)

	if flags.ServeMCP {
		logger.Info("serving MCP on stdio")
		return mcptools.RunStdio(ctx, mcpServer)
	}

	apiCfg := httpapi.Config{
		Version:     cfg.AppVersion,
		Environment: string(cfg.Environment),
		Logger:      logger,
	}
	if cfg.MetricsEnabled {
		apiCfg.Gatherer = reg
	}
	srv := httpapi.New(r, apiCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx, cfg.HTTPAddr)
	})
	if flags.MCPAddr != "" {
		g.Go(func() error {
			logger.Info("serving MCP over HTTP", zap.String("addr", flags.MCPAddr))
			return mcptools.RunHTTP(gctx, mcpServer, flags.MCPAddr)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
