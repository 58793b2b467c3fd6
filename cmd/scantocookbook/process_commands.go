package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scantocookbook/internal/config"
	"scantocookbook/internal/notifications"
	"scantocookbook/internal/pipeline"
)

// errNothingProcessed makes the process exit 1 when a run produced no recipe.
var errNothingProcessed = errors.New("no images processed")

type remoteOptions struct {
	sourceDir string
	destDir   string
	single    string
}

type localOptions struct {
	input    string
	output   string
	progress bool
}

func newRemoteCommand(ctx *commandContext) *cobra.Command {
	var opts remoteOptions

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Process scans from the source store into the destination store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("source-dir") {
				opts.sourceDir = cfg.Remote.SourceDir
			}
			if !cmd.Flags().Changed("dest-dir") {
				opts.destDir = cfg.Remote.DestDir
			}
			return runRemote(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sourceDir, "source-dir", "/", "Source directory to scan for images")
	cmd.Flags().StringVar(&opts.destDir, "dest-dir", "/Rezepte", "Destination directory for recipe folders")
	cmd.Flags().StringVar(&opts.single, "single", "", "Process only this source image path")
	return cmd
}

func newLocalCommand(ctx *commandContext) *cobra.Command {
	var opts localOptions

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Process scans from a local file or directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("input") {
				opts.input = cfg.Local.InputDir
			}
			if !cmd.Flags().Changed("output") {
				opts.output = cfg.Local.OutputDir
			}
			if !cmd.Flags().Changed("progress") {
				opts.progress = cfg.Local.Progress
			}
			return runLocal(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input image file or directory")
	cmd.Flags().StringVar(&opts.output, "output", "./output", "Output directory")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "Show a progress bar for directory runs")
	return cmd
}

func runRemote(cmd *cobra.Command, ctx *commandContext, opts remoteOptions) error {
	return runMode(cmd, ctx, config.ModeRemote, func(p *pipeline.Pipeline) pipeline.Counts {
		if single := strings.TrimSpace(opts.single); single != "" {
			return countOne(p.ProcessImage(cmd.Context(), single, opts.destDir))
		}
		return p.ProcessDirectory(cmd.Context(), opts.sourceDir, opts.destDir)
	})
}

func runLocal(cmd *cobra.Command, ctx *commandContext, opts localOptions) error {
	return runMode(cmd, ctx, config.ModeLocal, func(p *pipeline.Pipeline) pipeline.Counts {
		if info, err := os.Stat(opts.input); err == nil && !info.IsDir() {
			return countOne(p.ProcessLocalImage(cmd.Context(), opts.input, opts.output))
		}
		return p.ProcessLocalDirectory(cmd.Context(), opts.input, opts.output, opts.progress)
	})
}

// runMode wires a session for mode, runs process, then reports and notifies.
func runMode(cmd *cobra.Command, ctx *commandContext, mode string, process func(*pipeline.Pipeline) pipeline.Counts) error {
	started := time.Now()
	s, err := ctx.openSession(cmd, mode)
	if err != nil {
		ctx.notify(cmd, func(svc notifications.Service) error {
			return svc.NotifyError(cmd.Context(), err, mode+" run setup")
		})
		return err
	}
	defer s.Close()

	counts := process(s.pipeline)
	if cmd.Context().Err() == nil {
		ctx.notify(cmd, func(svc notifications.Service) error {
			return svc.NotifyRunCompleted(cmd.Context(), notifications.RunSummary{
				Mode:      mode,
				RunID:     s.pipeline.RunID(),
				Processed: counts.Processed,
				Failed:    counts.Failed,
				Duration:  time.Since(started),
			})
		})
	}
	return finishRun(cmd, s.pipeline.RunID(), counts)
}

func countOne(_ pipeline.Outcome, err error) pipeline.Counts {
	if err != nil {
		return pipeline.Counts{Failed: 1}
	}
	return pipeline.Counts{Processed: 1}
}

// finishRun prints the batch summary and maps counts to the exit status.
func finishRun(cmd *cobra.Command, runID string, counts pipeline.Counts) error {
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(runID, counts))
	if cmd.Context().Err() != nil {
		return cmd.Context().Err()
	}
	if !counts.Success() {
		return fmt.Errorf("%w (%d failed)", errNothingProcessed, counts.Failed)
	}
	return nil
}

func renderSummary(runID string, counts pipeline.Counts) string {
	return renderTable(
		[]string{"Run", "Processed", "Failed", "Total"},
		[][]string{{
			runID,
			strconv.Itoa(counts.Processed),
			strconv.Itoa(counts.Failed),
			strconv.Itoa(counts.Total()),
		}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
}
