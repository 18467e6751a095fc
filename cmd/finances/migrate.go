package main

import (
	"os"

	"github.com/spf13/cobra"

	"finances/internal/cli"
	"finances/internal/log"
	"finances/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := cli.LoadAndValidateConfig(envFile)
		if err != nil {
			return err
		}
		logger, err := cli.SetupLogger(cfg, os.Stdout)
		if err != nil {
			return err
		}

		if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
			return err
		}
		version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		logger.WithComponent(log.ComponentCLI).InfoContext(cmd.Context(), "Schema up to date",
			log.FieldOperation, log.OpMigrate,
			"path", cfg.SQLiteDBPath,
			"version", version,
			"dirty", dirty)
		return nil
	},
}
