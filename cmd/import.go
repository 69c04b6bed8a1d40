package cmd

import (
	"fmt"

	"stickybot/config"
	"stickybot/database"
	"stickybot/repository"
	"stickybot/storage"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	var dataDir string

	importCommand := &cobra.Command{
		Use:   "import",
		Short: "Copy stickies from file storage into Postgres",
		Long:  "Copy every sticky stored by the file backend into Postgres in a single transaction. Existing Postgres records for the same channels are replaced.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Get()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for import")
			}
			if dataDir == "" {
				dataDir = cfg.DataDir
			}

			source, err := repository.NewChannelSettingsRepository(ctx, storage.NewStore(storage.NewFileBackend(dataDir)))
			if err != nil {
				return err
			}
			stickies, err := source.GetAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to read file storage: %w", err)
			}

			databaseURL := cfg.GetDatabaseURL()
			if err := database.MigrateUp(databaseURL); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			db, err := database.NewConnection(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			err = db.WithTransaction(ctx, func(tx pgx.Tx) error {
				target, err := repository.NewChannelSettingsRepository(ctx, storage.NewStore(storage.NewPostgresBackend(tx)))
				if err != nil {
					return err
				}
				for _, settings := range stickies {
					if err := target.Write(ctx, settings); err != nil {
						return fmt.Errorf("failed to import channel %s: %w", settings.ChannelID, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"count": len(stickies),
				"from":  dataDir,
			}).Info("Imported stickies")
			return nil
		},
	}
	importCommand.Flags().StringVar(&dataDir, "data-dir", "", "file storage directory (default DATA_DIR)")
	rootCommand.AddCommand(importCommand)
}
