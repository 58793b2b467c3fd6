package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"scantocookbook/internal/config"
	"scantocookbook/internal/notifications"
	"scantocookbook/internal/preflight"
)

var errChecksFailed = errors.New("connection test failed")

func newTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check stores, directories, and the vision model without processing images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateMode(cfg.Mode); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			model, err := ctx.visionClient(cfg, logger)
			if err != nil {
				return err
			}
			checks := preflight.Checks{
				TempDir:   cfg.Paths.TempDir,
				Model:     model,
				ModelName: model.Model(),
			}
			if svc, err := ctx.notifier(); err == nil && notifications.Enabled(svc) {
				checks.Notifier = svc
			}
			if cfg.Mode == config.ModeRemote {
				source, dest, err := ctx.stores(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				checks.Source = source
				checks.SourceDir = cfg.Remote.SourceDir
				checks.Extensions = cfg.Images.SupportedFormats
				checks.Destination = dest
				checks.DestDir = cfg.Remote.DestDir
			} else {
				checks.InputDir = cfg.Local.InputDir
				checks.OutputDir = cfg.Local.OutputDir
			}

			results := preflight.Run(cmd.Context(), checks)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChecks(results, shouldColorize(out)))
			if !preflight.AllPassed(results) {
				return errChecksFailed
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func renderChecks(results []preflight.Result, color bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		label := "FAIL"
		if r.Passed {
			label = "OK"
		}
		rows = append(rows, []string{r.Name, statusLabel(label, r.Passed, color), r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}

func statusLabel(label string, ok, color bool) string {
	if !color {
		return label
	}
	if ok {
		return text.Colors{text.FgGreen}.Sprint(label)
	}
	return text.Colors{text.FgRed, text.Bold}.Sprint(label)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
