package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantocookbook/internal/config"
	"scantocookbook/internal/imageutil"
	"scantocookbook/internal/recipe"
	"scantocookbook/internal/services"
	"scantocookbook/internal/testsupport"
)

func TestProcessLocalImage(t *testing.T) {
	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{fallback: `Result: {"name": "Käsespätzle"} done`})
	input := filepath.Join(h.cfg.Local.InputDir, "scan.jpg")
	testsupport.WriteJPEG(t, input, 20, 20, 90)
	out := h.cfg.Local.OutputDir

	outcome, err := h.pipeline.ProcessLocalImage(context.Background(), input, out)
	require.NoError(t, err)
	assert.True(t, outcome.Processed)
	assert.Equal(t, "Käsespätzle", outcome.RecipeName)

	record := string(testsupport.ReadFile(t, filepath.Join(out, "scan_analysis.json")))
	assert.Contains(t, record, "Käsespätzle")
	assert.Equal(t, `{"name": "Käsespätzle"}`, string(testsupport.ReadFile(t, filepath.Join(out, "Käsespätzle", "recipe.json"))))
	assert.FileExists(t, input)
}

func TestProcessLocalImageMissingFile(t *testing.T) {
	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{})
	outcome, err := h.pipeline.ProcessLocalImage(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, StageValidate, outcome.Stage)
}

func TestProcessLocalImageResizesInPlace(t *testing.T) {
	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{fallback: `{"name":"Brot"}`}, func(o *Options) {
		o.Settings.MaxImageSize = 1
	})
	input := filepath.Join(h.cfg.Local.InputDir, "wide.jpg")
	testsupport.WriteJPEG(t, input, 3000, 100, 100)

	outcome, err := h.pipeline.ProcessLocalImage(context.Background(), input, h.cfg.Local.OutputDir)
	require.NoError(t, err)
	assert.True(t, outcome.Resized)
	w, _, err := imageutil.Dimensions(input)
	require.NoError(t, err)
	assert.Equal(t, 2048, w)
}

func TestProcessLocalImageAtSizeLimitIsNotResized(t *testing.T) {
	input := filepath.Join(t.TempDir(), "wide.jpg")
	testsupport.WriteJPEG(t, input, 3000, 100, 100)
	original := testsupport.ReadFile(t, input)

	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{fallback: `{"name":"Brot"}`}, func(o *Options) {
		o.Settings.MaxImageSize = int64(len(original))
	})

	outcome, err := h.pipeline.ProcessLocalImage(context.Background(), input, h.cfg.Local.OutputDir)
	require.NoError(t, err)
	assert.False(t, outcome.Resized)
	assert.Equal(t, original, testsupport.ReadFile(t, input))
	w, _, err := imageutil.Dimensions(input)
	require.NoError(t, err)
	assert.Equal(t, 3000, w)
}

func TestProcessLocalImageFirstSpanExtraction(t *testing.T) {
	answer := `Outer { "name": "Eintopf", "extra": {"x": 1} } done`
	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{fallback: answer}, func(o *Options) {
		o.Settings.Clean = cleanerFor(config.JSONExtractFirstSpan)
	})
	input := filepath.Join(h.cfg.Local.InputDir, "stew.jpg")
	testsupport.WriteJPEG(t, input, 20, 20, 90)

	outcome, err := h.pipeline.ProcessLocalImage(context.Background(), input, h.cfg.Local.OutputDir)
	require.NoError(t, err)
	assert.True(t, outcome.Processed)
	// The truncated span is not valid JSON, so the name falls back to the clock.
	assert.Equal(t, recipe.FallbackName(fixedTime), outcome.RecipeName)
	assert.Equal(t, `{ "name": "Eintopf", "extra": {"x": 1}`,
		string(testsupport.ReadFile(t, filepath.Join(h.cfg.Local.OutputDir, outcome.RecipeName, "recipe.json"))))
}

func TestSettingsFromConfigPicksCleaner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	answer := `x {"a": {"b": 1}} y`

	assert.Equal(t, `{"a": {"b": 1}}`, SettingsFromConfig(cfg, config.ModeLocal, "").Clean(answer))
	cfg.LLM.JSONExtraction = config.JSONExtractFirstSpan
	assert.Equal(t, `{"a": {"b": 1}`, SettingsFromConfig(cfg, config.ModeLocal, "").Clean(answer))
}

func TestProcessLocalDirectoryMirrorsLayout(t *testing.T) {
	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{
		responses: map[string]string{
			"a.jpg": `{"name":"Suppe"}`,
			"b.png": `{"name":"Kuchen"}`,
		},
	})
	in := h.cfg.Local.InputDir
	out := h.cfg.Local.OutputDir
	testsupport.WriteJPEG(t, filepath.Join(in, "a.jpg"), 10, 10, 90)
	testsupport.WritePNG(t, filepath.Join(in, "sub", "b.png"), 10, 10)
	testsupport.WriteGarbage(t, filepath.Join(in, "sub", "bad.jpg"), 32)
	testsupport.WriteGarbage(t, filepath.Join(in, "sub", "readme.txt"), 32)

	counts := h.pipeline.ProcessLocalDirectory(context.Background(), in, out, true)
	assert.Equal(t, Counts{Processed: 2, Failed: 1}, counts)

	assert.FileExists(t, filepath.Join(out, "a_analysis.json"))
	assert.FileExists(t, filepath.Join(out, "Suppe", "recipe.json"))
	assert.FileExists(t, filepath.Join(out, "sub", "b_analysis.json"))
	assert.FileExists(t, filepath.Join(out, "sub", "Kuchen", "recipe.json"))

	require.Len(t, h.analyzer.calls, 2)
	assert.Equal(t, filepath.Join(in, "a.jpg"), h.analyzer.calls[0])
}

func TestProcessLocalDirectoryMissing(t *testing.T) {
	h := newHarness(t, config.ModeLocal, &fakeAnalyzer{})
	counts := h.pipeline.ProcessLocalDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"), t.TempDir(), false)
	assert.Equal(t, Counts{}, counts)
}
