package cmd

import (
	"encoding/json"
	"fmt"

	"stickybot/config"
	"stickybot/repository"

	"github.com/spf13/cobra"
)

func init() {
	rootCommand.AddCommand(&cobra.Command{
		Use:   "check <channel id>",
		Short: "Print the stored sticky settings of a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openStore(ctx, config.Get())
			if err != nil {
				return err
			}
			defer closeStore()

			repo, err := repository.NewChannelSettingsRepository(ctx, store)
			if err != nil {
				return err
			}

			settings, err := repo.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if settings == nil {
				return fmt.Errorf("no sticky exists in channel %s", args[0])
			}

			out, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
}
