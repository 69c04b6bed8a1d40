package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stickybot/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCommand = &cobra.Command{
	Use:   "stickybot",
	Short: "Keep a sticky message at the bottom of Discord channels",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Get().ConfigureLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCommand.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context())
		},
	})
}

// Execute runs the command tree until completion or a shutdown signal
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
