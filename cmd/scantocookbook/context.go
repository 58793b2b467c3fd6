package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"scantocookbook/internal/config"
	"scantocookbook/internal/history"
	"scantocookbook/internal/imageutil"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/notifications"
	"scantocookbook/internal/pipeline"
	"scantocookbook/internal/retry"
	"scantocookbook/internal/transfer"
	"scantocookbook/internal/vision"
	"scantocookbook/internal/workspace"
)

// staleTempAge is how old a leftover temp file must be before a remote run
// removes it.
const staleTempAge = 24 * time.Hour

type globalFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.verbose {
			cfg.Logging.Level = "debug"
		}
		if format := strings.TrimSpace(c.flags.logFormat); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) retryPolicy(cfg *config.Config, logger *slog.Logger) retry.Policy {
	return retry.New(cfg.Transfer.MaxRetries, cfg.RetryDelay(), retry.WithLogger(logger))
}

func (c *commandContext) visionClient(cfg *config.Config, logger *slog.Logger) (*vision.Client, error) {
	return vision.NewClient(vision.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		MaxTokens:      cfg.LLM.MaxTokens,
	}, vision.WithLogger(logger))
}

func (c *commandContext) notifier() (notifications.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return notifications.NewService(cfg), nil
}

// notify delivers one message best-effort. Failures are logged, never returned.
func (c *commandContext) notify(cmd *cobra.Command, send func(notifications.Service) error) {
	svc, err := c.notifier()
	if err != nil || !notifications.Enabled(svc) {
		return
	}
	if err := send(svc); err != nil {
		logger, logErr := c.ensureLogger()
		if logErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", err)
			return
		}
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic (NTFY_TOPIC)"),
			logging.String(logging.FieldImpact, "run result not announced"),
			logging.Error(err),
		)
	}
}

func (c *commandContext) stores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transfer.Client, *transfer.Client, error) {
	policy := c.retryPolicy(cfg, logger)
	source, err := transfer.Open(ctx, "source", cfg.Source, policy, logger)
	if err != nil {
		return nil, nil, err
	}
	dest, err := transfer.Open(ctx, "destination", cfg.Destination, policy, logger)
	if err != nil {
		return nil, nil, err
	}
	return source, dest, nil
}

// session bundles everything one processing run holds open.
type session struct {
	pipeline *pipeline.Pipeline
	closers  []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSession validates cfg for mode and wires the pipeline. Any failure here
// happens before an image is touched.
func (c *commandContext) openSession(cmd *cobra.Command, mode string) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateMode(mode); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	analyzer, err := c.visionClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &session{}
	opts := pipeline.Options{
		Analyzer:       analyzer,
		Validator:      imageutil.NewValidator(logger),
		Logger:         logger,
		Settings:       pipeline.SettingsFromConfig(cfg, mode, ""),
		ProgressOutput: cmd.ErrOrStderr(),
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.String(logging.FieldErrorHint, "check state_dir permissions or delete history.db after an upgrade"),
			logging.String(logging.FieldImpact, "this run will not be recorded"),
			logging.Error(err),
		)
	} else {
		opts.History = store
		s.closers = append(s.closers, func() { _ = store.Close() })
	}

	if mode == config.ModeRemote {
		source, dest, err := c.stores(ctx, cfg, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		ws, err := workspace.Acquire(cfg.Paths.TempDir, logger)
		if err != nil {
			s.Close()
			if errors.Is(err, workspace.ErrLocked) {
				return nil, fmt.Errorf("another remote run is using %s; wait for it to finish or set TEMP_DIR: %w", cfg.Paths.TempDir, err)
			}
			return nil, fmt.Errorf("acquire workspace: %w", err)
		}
		s.closers = append(s.closers, func() { _ = ws.Release() })
		if removed := ws.Sweep(staleTempAge); removed > 0 {
			logger.Info("removed stale temp files", logging.Int("count", removed))
		}
		opts.Source = source
		opts.Destination = dest
		opts.Workspace = ws
	}

	p, err := pipeline.New(opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.pipeline = p
	return s, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
