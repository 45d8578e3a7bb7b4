package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"visit-dashboard-service/internal/config"
	"visit-dashboard-service/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the change feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	s, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	a := newApplication(cfg, s, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx, a.feed)
	})

	g.Go(func() error {
		logger.Info("server started", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Store.Driver))
		return a.app.Listen(cfg.HTTP.Addr)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		// closes open streams so the server can drain
		a.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("fiber shutdown error", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server exiting")
	return err
}
