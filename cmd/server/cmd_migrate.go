package main

import (
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/app"
	"github.com/Freeeeeet/interview_scheduler/internal/config"
	"github.com/Freeeeeet/interview_scheduler/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "status"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.StorageDriver != config.StorageDriverPostgres {
		return fmt.Errorf("migrations require STORAGE_DRIVER=postgres, got %q", cfg.StorageDriver)
	}

	ctx := cmd.Context()

	pool, err := openPool(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, migrations.FS, logger.Named("migrations"))
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch args[0] {
	case "up":
		return migrator.Up(ctx)
	case "status":
		return migrator.Status(ctx)
	default:
		return fmt.Errorf("unknown migrate action %q (up or status)", args[0])
	}
}
