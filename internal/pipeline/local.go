package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"

	"scantocookbook/internal/config"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/recipe"
	"scantocookbook/internal/services"
	"scantocookbook/internal/transfer"
)

// ProcessLocalImage analyzes the image at inputPath and writes
// <base>_analysis.json into outputDir and recipe.json into
// outputDir/<recipe name>/. Oversized images are shrunk in place.
func (p *Pipeline) ProcessLocalImage(ctx context.Context, inputPath, outputDir string) (Outcome, error) {
	r := p.startImage(ctx, config.ModeLocal, inputPath)
	ctx = r.ctx
	r.logger.Info("processing image")

	r.enter(StageValidate)
	info, err := os.Stat(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r.fail(services.Wrap(services.ErrNotFound, StageValidate, "stat", "input file does not exist", err))
		}
		return r.fail(services.Wrap(services.ErrValidation, StageValidate, "stat", inputPath, err))
	}
	if info.IsDir() {
		return r.fail(services.Wrap(services.ErrValidation, StageValidate, "stat", "input is a directory", nil))
	}
	if err := unix.Access(inputPath, unix.R_OK); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StageValidate, "access", "input file is not readable", err))
	}
	if !p.validator.IsValidImage(inputPath) {
		return r.fail(services.Wrap(services.ErrValidation, StageValidate, "decode", "invalid image file "+inputPath, nil))
	}

	if info.Size() > p.settings.MaxImageSize {
		r.enter(StageResize)
		r.logger.Info("image too large, resizing in place",
			logging.Int64("size_bytes", info.Size()),
			logging.Int64("max_bytes", p.settings.MaxImageSize),
		)
		if err := p.validator.ResizeInPlace(inputPath); err != nil {
			r.warn("failed to resize image, proceeding with original", "image_resize_failed",
				"check the image file; very large images may be rejected by the model",
				"original image sent to the model", err)
		} else {
			r.outcome.Resized = true
		}
	}

	r.enter(StageAnalyze)
	analysis, err := p.analyzer.Analyze(ctx, inputPath, p.settings.SystemPrompt, p.settings.VisionPrompt)
	if err != nil {
		return r.fail(err)
	}

	r.enter(StageClean)
	cleaned := p.settings.Clean(analysis)
	if cleaned == "" {
		r.warn("model response contains no JSON object", "recipe_clean_empty",
			"adjust VISION_PROMPT so the model answers with a JSON object",
			"recipe.json will be empty", nil)
	}

	r.enter(StageName)
	name := recipe.NameFor(cleaned, p.settings.Now)
	loc := recipe.Location{Root: outputDir, Name: name}
	r.outcome.RecipeName = name
	r.outcome.RecipeDir = loc.Dir()

	r.enter(StagePersist)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StagePersist, "mkdir", outputDir, err))
	}
	if err := unix.Access(outputDir, unix.W_OK); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StagePersist, "access", "cannot write to output directory "+outputDir, err))
	}
	record := recipe.NewAnalysisRecord(inputPath, analysis, p.analyzer.Model(), p.settings.VisionPrompt, p.settings.Now())
	analysisPath := loc.AnalysisPath(recipe.BaseName(inputPath))
	if err := record.WriteFile(analysisPath); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StagePersist, "write analysis", analysisPath, err))
	}
	r.logger.Info("saved analysis record", logging.String("path", analysisPath))
	if err := recipe.WriteRecipe(loc.RecipePath(), cleaned); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StagePersist, "write recipe", loc.RecipePath(), err))
	}
	r.logger.Info("saved recipe document", logging.String("path", loc.RecipePath()))
	return r.succeed()
}

// ProcessLocalDirectory walks inputDir recursively and processes every
// supported image in sorted order. Output mirrors the input's subdirectories.
// A missing input directory yields zero counts.
func (p *Pipeline) ProcessLocalDirectory(ctx context.Context, inputDir, outputDir string, showProgress bool) Counts {
	logger := p.logger.With(logging.String(logging.FieldMode, config.ModeLocal))

	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		logging.WarnWithContext(logger, "input directory not found", "input_dir_missing",
			logging.String("input_dir", inputDir),
			logging.String(logging.FieldErrorHint, "set LOCAL_INPUT_DIR or pass --input"),
			logging.String(logging.FieldImpact, "nothing processed"),
		)
		return Counts{}
	}

	files, err := p.collectImages(inputDir)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to scan input directory", "input_scan_failed",
			logging.String("input_dir", inputDir),
			logging.Error(err),
		)
		return Counts{}
	}
	if len(files) == 0 {
		logger.Info("no image files found", logging.String("input_dir", inputDir))
		return Counts{}
	}
	logger.Info("found image files", logging.Int("count", len(files)), logging.String("input_dir", inputDir))

	bar := p.progressBar(len(files), showProgress)
	var counts Counts
	for _, file := range files {
		if ctx.Err() != nil {
			logger.Info("batch cancelled", logging.Int("remaining", len(files)-counts.Total()))
			break
		}
		target := outputDir
		if rel, err := filepath.Rel(inputDir, filepath.Dir(file)); err == nil && rel != "." {
			target = filepath.Join(outputDir, rel)
		}
		if bar != nil {
			bar.Describe(filepath.Base(file))
		}
		if _, err := p.ProcessLocalImage(ctx, file, target); err != nil {
			counts.Failed++
		} else {
			counts.Processed++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	logger.Info("directory processed",
		logging.Int("processed", counts.Processed),
		logging.Int("failed", counts.Failed),
	)
	return counts
}

func (p *Pipeline) collectImages(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if transfer.MatchesExtension(d.Name(), p.settings.Extensions) {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

func (p *Pipeline) progressBar(total int, enabled bool) *progressbar.ProgressBar {
	if !enabled || !isTerminal(p.progressOut) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.progressOut),
		progressbar.OptionSetDescription("Processing images"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
