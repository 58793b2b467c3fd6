package main

import (
	"github.com/spf13/cobra"

	"scantocookbook/internal/config"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "scantocookbook",
		Short:         "Turn recipe scans into structured recipe folders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Mode == config.ModeLocal {
				return runLocal(cmd, ctx, localOptions{
					input:    cfg.Local.InputDir,
					output:   cfg.Local.OutputDir,
					progress: cfg.Local.Progress,
				})
			}
			return runRemote(cmd, ctx, remoteOptions{
				sourceDir: cfg.Remote.SourceDir,
				destDir:   cfg.Remote.DestDir,
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (TOML, YAML, or .env)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format override (console or json)")

	rootCmd.AddCommand(newRemoteCommand(ctx))
	rootCmd.AddCommand(newLocalCommand(ctx))
	rootCmd.AddCommand(newTestCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
