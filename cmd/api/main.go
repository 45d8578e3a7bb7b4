package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "visit-dashboard-service/docs"
)

// @title Visit Dashboard API
// @version 1.0
// @description Real-time document collections, media and progress summaries for the family visit dashboard.
// @BasePath /
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "visit-dashboard",
		Short:         "Backend for the family visit dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newSeedCmd(&configPath),
	)
	return root
}
