package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"scantocookbook/internal/config"
	"scantocookbook/internal/history"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/recipe"
	"scantocookbook/internal/services"
)

// Options wires the pipeline's collaborators.
type Options struct {
	Source      Store
	Destination Store
	Analyzer    Analyzer
	Validator   ImageValidator
	History     HistoryRecorder
	Workspace   Workspace
	Logger      *slog.Logger
	Settings    Settings
	// ProgressOutput receives the local batch progress bar. Defaults to stderr.
	ProgressOutput io.Writer
}

// Pipeline processes images in remote or local mode.
type Pipeline struct {
	source      Store
	destination Store
	analyzer    Analyzer
	validator   ImageValidator
	history     HistoryRecorder
	workspace   Workspace
	logger      *slog.Logger
	settings    Settings
	progressOut io.Writer
}

// New validates opts and builds a Pipeline. Remote mode additionally needs
// both stores and a workspace.
func New(opts Options) (*Pipeline, error) {
	var missing []string
	if opts.Analyzer == nil {
		missing = append(missing, "analyzer")
	}
	if opts.Validator == nil {
		missing = append(missing, "image validator")
	}
	if opts.Settings.Mode != config.ModeLocal {
		if opts.Source == nil {
			missing = append(missing, "source store")
		}
		if opts.Destination == nil {
			missing = append(missing, "destination store")
		}
		if opts.Workspace == nil {
			missing = append(missing, "workspace")
		}
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			"missing "+strings.Join(missing, ", "), nil)
	}

	settings := opts.Settings
	if settings.Mode == "" {
		settings.Mode = config.ModeRemote
	}
	if settings.RunID == "" {
		settings.RunID = uuid.NewString()
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.Clean == nil {
		settings.Clean = recipe.Clean
	}
	progressOut := opts.ProgressOutput
	if progressOut == nil {
		progressOut = os.Stderr
	}

	logger := logging.NewComponentLogger(opts.Logger, "pipeline").With(
		logging.String(logging.FieldRunID, settings.RunID),
	)
	return &Pipeline{
		source:      opts.Source,
		destination: opts.Destination,
		analyzer:    opts.Analyzer,
		validator:   opts.Validator,
		history:     opts.History,
		workspace:   opts.Workspace,
		logger:      logger,
		settings:    settings,
		progressOut: progressOut,
	}, nil
}

// RunID identifies this pipeline's invocation in logs and history.
func (p *Pipeline) RunID() string {
	return p.settings.RunID
}

// imageRun tracks one image through the pipeline.
type imageRun struct {
	p       *Pipeline
	ctx     context.Context
	logger  *slog.Logger
	mode    string
	started time.Time
	outcome Outcome
	temps   []string
}

func (p *Pipeline) startImage(ctx context.Context, mode, sourcePath string) *imageRun {
	ctx = services.WithImage(ctx, sourcePath)
	ctx = services.WithMode(ctx, mode)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	return &imageRun{
		p:       p,
		ctx:     ctx,
		logger:  logging.WithContext(ctx, p.logger),
		mode:    mode,
		started: p.settings.Now(),
		outcome: Outcome{SourcePath: sourcePath},
	}
}

// enter marks the start of stage.
func (r *imageRun) enter(stage string) {
	r.outcome.Stage = stage
	r.logger.Debug("stage started", logging.String(logging.FieldStage, stage))
}

func (r *imageRun) track(path string) {
	r.temps = append(r.temps, path)
}

// warn records a non-fatal problem and keeps going.
func (r *imageRun) warn(msg, eventType, hint, impact string, err error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldStage, r.outcome.Stage),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, impact),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(r.logger, msg, eventType, attrs...)
	r.outcome.Warnings = append(r.outcome.Warnings, msg)
}

// fail ends the image in the current stage.
func (r *imageRun) fail(err error) (Outcome, error) {
	stage := r.outcome.Stage
	logging.ErrorWithContext(r.logger, "image processing failed", "image_failed",
		logging.String(logging.FieldStage, stage),
		logging.String("failure_kind", services.FailureKind(err)),
		logging.Error(err),
	)
	r.cleanup()
	r.record(history.StatusFailed, err)
	return r.outcome, err
}

// succeed finishes a processed image.
func (r *imageRun) succeed() (Outcome, error) {
	r.outcome.Processed = true
	r.logger.Info("image processed",
		logging.String("recipe", r.outcome.RecipeName),
		logging.String("destination", r.outcome.RecipeDir),
		logging.Duration("elapsed", r.p.settings.Now().Sub(r.started)),
	)
	r.record(history.StatusProcessed, nil)
	return r.outcome, nil
}

func (r *imageRun) cleanup() {
	if r.p.workspace != nil && len(r.temps) > 0 {
		r.p.workspace.Cleanup(r.temps...)
		r.temps = nil
	}
}

func (r *imageRun) record(status string, err error) {
	if r.p.history == nil {
		return
	}
	rec := history.Record{
		RunID:       r.p.settings.RunID,
		Mode:        r.mode,
		SourcePath:  r.outcome.SourcePath,
		RecipeName:  r.outcome.RecipeName,
		Destination: r.outcome.RecipeDir,
		Status:      status,
		StartedAt:   r.started,
		FinishedAt:  r.p.settings.Now(),
	}
	if err != nil {
		rec.FailureStage = r.outcome.Stage
		rec.FailureKind = services.FailureKind(err)
		rec.Error = err.Error()
	}
	// History is best-effort and must not be cut short by a cancelled run.
	ctx := context.WithoutCancel(r.ctx)
	if _, recErr := r.p.history.Record(ctx, rec); recErr != nil {
		logging.WarnWithContext(r.logger, "failed to record history", "history_record_failed",
			logging.String(logging.FieldErrorHint, "check the state directory and history.db permissions"),
			logging.String(logging.FieldImpact, "image missing from history output"),
			logging.Error(recErr),
		)
	}
}
