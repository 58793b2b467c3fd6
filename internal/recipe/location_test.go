package recipe

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteLocation(t *testing.T) {
	loc := Location{Root: "/Rezepte", Name: "Soup", Remote: true}
	assert.Equal(t, "/Rezepte/Soup", loc.Dir())
	assert.Equal(t, "/Rezepte/Soup/img_analysis.json.txt", loc.AnalysisPath("img"))
	assert.Equal(t, "/Rezepte/Soup/recipe.json", loc.RecipePath())
	assert.Equal(t, "/Rezepte/Soup/img.jpg", loc.ImagePath("img.jpg"))
}

func TestLocalLocation(t *testing.T) {
	root := filepath.Join("out", "sub")
	loc := Location{Root: root, Name: "Soup"}
	assert.Equal(t, filepath.Join(root, "img_analysis.json"), loc.AnalysisPath("img"))
	assert.Equal(t, filepath.Join(root, "Soup", "recipe.json"), loc.RecipePath())
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "img", BaseName("/a/b/img.jpg"))
	assert.Equal(t, "scan.2024", BaseName("scan.2024.png"))
	assert.Equal(t, "noext", BaseName("noext"))
}

func TestAnalysisRecordMarshal(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	rec := NewAnalysisRecord("/scans/img.jpg", `{"name":"Käse & <Brot>"}`, "gpt", "prompt", at)

	data, err := rec.Marshal()
	require.NoError(t, err)
	text := string(data)
	assert.Equal(t, "{\n  \"source_path\": \"/scans/img.jpg\",\n  \"processed_at\": \"2025-01-02T03:04:05+01:00\",", text[:strings.Index(text, "\n  \"analysis\"")])
	assert.Contains(t, text, "Käse & <Brot>")
	assert.False(t, strings.HasSuffix(text, "\n"))
	assert.True(t, strings.HasPrefix(text, "{\n  \"source_path\""))
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	loc := Location{Root: dir, Name: "Soup"}
	rec := NewAnalysisRecord("img.jpg", "raw", "m", "p", time.Now())

	require.NoError(t, rec.WriteFile(loc.AnalysisPath("img")))
	require.NoError(t, WriteRecipe(loc.RecipePath(), `{"name":"Soup"}`))

	assert.FileExists(t, filepath.Join(dir, "img_analysis.json"))
	assert.FileExists(t, filepath.Join(dir, "Soup", "recipe.json"))
}
