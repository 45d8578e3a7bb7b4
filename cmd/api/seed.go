package main

import (
	"visit-dashboard-service/internal/config"
	"visit-dashboard-service/internal/logging"

	docsUsecase "visit-dashboard-service/internal/documents/core/usecase"
	"visit-dashboard-service/internal/documents/seed"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write sample wishlist, packing and contact documents into empty collections",
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

			s, err := buildStores(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			fixtures, err := seed.Load()
			if err != nil {
				return err
			}

			written, err := seed.Apply(cmd.Context(), docsUsecase.NewCollectionUseCase(s.docs), fixtures, logger)
			if err != nil {
				return err
			}

			total := 0
			for _, n := range written {
				total += n
			}
			logger.Info("seed finished",
				zap.String("documents", humanize.Comma(int64(total))),
				zap.Int("collections", len(written)))
			return nil
		},
	}
}
