package pipeline

import (
	"context"
	"time"

	"scantocookbook/internal/config"
	"scantocookbook/internal/history"
	"scantocookbook/internal/recipe"
)

// Stages an image passes through. A failure is reported with the stage it
// happened in.
const (
	StageFetch        = "fetch"
	StageValidate     = "validate"
	StageResize       = "resize"
	StageAnalyze      = "analyze"
	StageClean        = "clean"
	StageName         = "name"
	StagePersist      = "persist"
	StageUpload       = "upload"
	StageCleanup      = "cleanup"
	StageDeleteSource = "delete_source"
)

// Store is the transfer capability used for source and destination.
type Store interface {
	List(ctx context.Context, dir string, extensions []string) ([]string, error)
	Download(ctx context.Context, remotePath, localPath string) error
	Upload(ctx context.Context, localPath, remotePath string) error
	CreateDirectory(ctx context.Context, dir string) error
	Delete(ctx context.Context, remotePath string) error
}

// Analyzer turns an image into model text.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// ImageValidator checks and shrinks local image files.
type ImageValidator interface {
	IsValidImage(path string) bool
	ResizeIfNeeded(path string, maxBytes int64) (string, error)
	ResizeInPlace(path string) error
}

// HistoryRecorder persists per-image outcomes.
type HistoryRecorder interface {
	Record(ctx context.Context, r history.Record) (int64, error)
}

// Workspace hands out temp paths and removes them.
type Workspace interface {
	Path(name string) string
	Cleanup(paths ...string)
}

// Settings carries the per-run knobs.
type Settings struct {
	Mode         string
	RunID        string
	MaxImageSize int64
	Extensions   []string
	SystemPrompt string
	VisionPrompt string
	DeleteSource bool
	UploadImage  bool
	// HoldingDir, when set, makes source deletion target
	// <HoldingDir>/<basename> on the destination store instead of the source
	// path on the source store.
	HoldingDir string
	// Clean extracts the recipe JSON from a model answer. Defaults to
	// recipe.Clean.
	Clean func(string) string
	Now   func() time.Time
}

// SettingsFromConfig derives run settings for mode.
func SettingsFromConfig(cfg *config.Config, mode, runID string) Settings {
	return Settings{
		Mode:         mode,
		RunID:        runID,
		MaxImageSize: cfg.Images.MaxSize,
		Extensions:   cfg.Images.SupportedFormats,
		SystemPrompt: cfg.Prompts.System,
		VisionPrompt: cfg.Prompts.Vision,
		DeleteSource: cfg.Remote.DeleteSource,
		UploadImage:  cfg.Remote.UploadImage,
		HoldingDir:   cfg.Remote.HoldingDir,
		Clean:        cleanerFor(cfg.LLM.JSONExtraction),
	}
}

func cleanerFor(strategy string) func(string) string {
	if strategy == config.JSONExtractFirstSpan {
		return recipe.CleanFirstSpan
	}
	return recipe.Clean
}

// Outcome describes what happened to one image.
type Outcome struct {
	SourcePath    string
	RecipeName    string
	RecipeDir     string
	Stage         string
	Processed     bool
	Resized       bool
	SourceDeleted bool
	Warnings      []string
}

// Counts tallies a batch.
type Counts struct {
	Processed int
	Failed    int
}

// Total is the number of images attempted.
func (c Counts) Total() int {
	return c.Processed + c.Failed
}

// Success reports whether at least one image was processed.
func (c Counts) Success() bool {
	return c.Processed > 0
}
