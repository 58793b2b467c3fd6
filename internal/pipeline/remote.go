package pipeline

import (
	"context"
	"path"
	"path/filepath"

	"scantocookbook/internal/config"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/recipe"
	"scantocookbook/internal/services"
	"scantocookbook/internal/transfer"
)

// ProcessImage runs one remote image through the pipeline and uploads its
// artifacts below destDir. The error is nil exactly when the outcome is
// processed.
func (p *Pipeline) ProcessImage(ctx context.Context, sourcePath, destDir string) (Outcome, error) {
	r := p.startImage(ctx, config.ModeRemote, sourcePath)
	ctx = r.ctx
	r.logger.Info("processing image")

	r.enter(StageFetch)
	localPath := p.workspace.Path(sourcePath)
	r.track(localPath)
	if err := p.source.Download(ctx, sourcePath, localPath); err != nil {
		return r.fail(err)
	}

	r.enter(StageValidate)
	if !p.validator.IsValidImage(localPath) {
		return r.fail(services.Wrap(services.ErrValidation, StageValidate, "decode", "invalid image file "+localPath, nil))
	}

	r.enter(StageResize)
	working := localPath
	if resized, err := p.validator.ResizeIfNeeded(localPath, p.settings.MaxImageSize); err != nil {
		r.warn("failed to resize image, proceeding with original", "image_resize_failed",
			"check the image file; very large images may be rejected by the model",
			"original image sent to the model", err)
	} else if resized != localPath {
		r.track(resized)
		working = resized
		r.outcome.Resized = true
	}

	r.enter(StageAnalyze)
	analysis, err := p.analyzer.Analyze(ctx, working, p.settings.SystemPrompt, p.settings.VisionPrompt)
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
	loc := recipe.Location{Root: transfer.CleanPath(destDir), Name: name, Remote: true}
	r.outcome.RecipeName = name
	r.outcome.RecipeDir = loc.Dir()
	r.logger.Info("recipe folder resolved", logging.String("recipe_dir", loc.Dir()))

	r.enter(StagePersist)
	base := recipe.BaseName(sourcePath)
	analysisRemote := loc.AnalysisPath(base)
	analysisLocal := p.workspace.Path(analysisRemote)
	recipeLocal := p.workspace.Path(recipe.RecipeFileName)
	r.track(analysisLocal)
	r.track(recipeLocal)
	record := recipe.NewAnalysisRecord(sourcePath, analysis, p.analyzer.Model(), p.settings.VisionPrompt, p.settings.Now())
	if err := record.WriteFile(analysisLocal); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StagePersist, "write analysis", analysisLocal, err))
	}
	if err := recipe.WriteRecipe(recipeLocal, cleaned); err != nil {
		return r.fail(services.Wrap(services.ErrValidation, StagePersist, "write recipe", recipeLocal, err))
	}

	r.enter(StageUpload)
	if err := p.destination.Upload(ctx, analysisLocal, analysisRemote); err != nil {
		return r.fail(err)
	}
	r.logger.Info("uploaded analysis result", logging.String("remote", analysisRemote))

	if p.settings.UploadImage {
		imageRemote := loc.ImagePath(filepath.Base(working))
		if err := p.destination.Upload(ctx, working, imageRemote); err != nil {
			r.warn("failed to upload processed image", "image_upload_failed",
				"check destination store permissions",
				"recipe folder has no copy of the scan", err)
		}
	}
	if err := p.destination.Upload(ctx, recipeLocal, loc.RecipePath()); err != nil {
		r.warn("failed to upload recipe document", "recipe_upload_failed",
			"rerun the image or copy recipe.json from the analysis record",
			"recipe folder has no recipe.json", err)
	} else {
		r.logger.Info("uploaded recipe document", logging.String("remote", loc.RecipePath()))
	}

	r.enter(StageCleanup)
	r.cleanup()

	if p.settings.DeleteSource {
		r.enter(StageDeleteSource)
		p.deleteSource(r, sourcePath)
	}
	return r.succeed()
}

func (p *Pipeline) deleteSource(r *imageRun, sourcePath string) {
	store, target := p.source, sourcePath
	if p.settings.HoldingDir != "" {
		store = p.destination
		target = path.Join(p.settings.HoldingDir, path.Base(transfer.CleanPath(sourcePath)))
	}
	if err := store.Delete(r.ctx, target); err != nil {
		r.warn("failed to delete original image", "source_delete_failed",
			"delete the original manually to avoid processing it again",
			"image will be picked up by the next run", err)
		return
	}
	r.outcome.SourceDeleted = true
	r.logger.Info("deleted original image", logging.String("path", target))
}

// ProcessDirectory processes every supported image in sourceDir. Listing
// failures yield zero counts.
func (p *Pipeline) ProcessDirectory(ctx context.Context, sourceDir, destDir string) Counts {
	logger := p.logger.With(logging.String(logging.FieldMode, config.ModeRemote))
	logger.Info("processing directory", logging.String("source_dir", sourceDir), logging.String("dest_dir", destDir))

	names, err := p.source.List(ctx, sourceDir, p.settings.Extensions)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to list source directory", "source_list_failed",
			logging.String("source_dir", sourceDir),
			logging.String(logging.FieldErrorHint, "check WEBDAV_SOURCE_HOST and credentials"),
			logging.Error(err),
		)
		return Counts{}
	}
	if len(names) == 0 {
		logger.Info("no image files found", logging.String("source_dir", sourceDir))
		return Counts{}
	}
	logger.Info("found image files", logging.Int("count", len(names)))

	if err := p.destination.CreateDirectory(ctx, destDir); err != nil {
		logging.WarnWithContext(logger, "failed to create destination directory", "dest_mkdir_failed",
			logging.String("dest_dir", destDir),
			logging.String(logging.FieldErrorHint, "check destination store permissions"),
			logging.String(logging.FieldImpact, "uploads will try to create it per recipe"),
			logging.Error(err),
		)
	}

	sourceRoot := transfer.CleanPath(sourceDir)
	var counts Counts
	for _, name := range names {
		if ctx.Err() != nil {
			logger.Info("batch cancelled", logging.Int("remaining", len(names)-counts.Total()))
			break
		}
		full := path.Join(sourceRoot, name)
		if full == sourceRoot {
			continue
		}
		if _, err := p.ProcessImage(ctx, full, destDir); err != nil {
			counts.Failed++
			continue
		}
		counts.Processed++
	}
	logger.Info("directory processed",
		logging.Int("processed", counts.Processed),
		logging.Int("failed", counts.Failed),
	)
	return counts
}
