package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/core"
	"github.com/joseph-ayodele/invoice-entities/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: core.ParseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	// Refuse to start without model or sink credentials.
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		logger.Warn("gops agent not started", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Google clients keep this context for token refresh, so it must outlive startup.
	stack, err := core.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err, "code", common.ErrorCode(err))
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("close stack", "error", err)
		}
	}()

	api := server.NewExtractServer(stack.Orchestrator, server.Config{
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		ReportFailures: cfg.Batch.ReportFailures,
	}, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := server.NewHealthServer(logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http.serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return health.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		health.SetServing(false)

		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutCtx)
		health.Shutdown()
		return err
	})
	health.SetServing(true)

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
