package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"scantocookbook/internal/logging"
	"scantocookbook/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var image string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			match := runID
			if image != "" {
				match = image
			}

			out := cmd.OutOrStdout()
			recent, offset, err := logs.Last(path, logs.Options{Lines: lines, Match: match})
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(recent) == 0 {
					fmt.Fprintf(out, "No log lines in %s\n", path)
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, match, logs.DefaultPollInterval, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines containing this run id")
	cmd.Flags().StringVar(&image, "image", "", "Only show lines containing this image path")
	cmd.MarkFlagsMutuallyExclusive("run", "image")
	return cmd
}
