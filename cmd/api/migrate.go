package main

import (
	"visit-dashboard-service/internal/config"
	"visit-dashboard-service/internal/logging"

	docsRepoPg "visit-dashboard-service/internal/documents/adapters/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the documents table and its change trigger",
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

			db, err := openPostgres(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := docsRepoPg.Migrate(cmd.Context(), docsRepoPg.NewSQLDB(db)); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		},
	}
}
