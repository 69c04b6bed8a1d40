package cmd

import (
	"fmt"
	"strconv"

	"stickybot/config"
	"stickybot/database"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	migrateCommand := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema used by the postgres storage backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			cfg.ConfigureLogging()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}
			return nil
		},
	}
	rootCommand.AddCommand(migrateCommand)

	migrateCommand.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.MigrateUp(config.Get().GetDatabaseURL())
		},
	})

	migrateCommand.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q: %w", args[0], err)
				}
				steps = parsed
			}
			return database.MigrateDown(config.Get().GetDatabaseURL(), steps)
		},
	})

	migrateCommand.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := database.GetMigrationStatus(config.Get().GetDatabaseURL())
			if err != nil {
				return err
			}
			if !status.Applied {
				log.Info("No migrations applied")
				return nil
			}
			log.WithFields(log.Fields{
				"version": status.Version,
				"dirty":   status.Dirty,
			}).Info("Migration status")
			return nil
		},
	})
}
