package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"DigestFeed/internal/app"
	"DigestFeed/internal/config"
	"DigestFeed/internal/logging"
	"DigestFeed/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "digestfeed",
		Short:        "Archive and inspect daily article digests",
		Long:         "digestfeed checks digest documents produced by the ranking pipeline and keeps one per date.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: $DIGEST_FEED_CONFIG)")

	cmd.AddCommand(
		newImportCmd(opts),
		newCheckCmd(opts),
		newExportCmd(opts),
		newListCmd(opts),
		newRemoveCmd(opts),
		newShowCmd(opts),
		newCategoriesCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "digestfeed %s (commit: %s)\n", version, commit)
		},
	}
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadRequired(o.configPath)
	}
	return config.Load(), nil
}

// withArchive builds the application for one command run and closes it afterwards.
func (o *rootOptions) withArchive(cmd *cobra.Command, fn func(*usecase.Archive) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level)

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close application", "error", err)
		}
	}()

	return fn(application.Archive())
}
