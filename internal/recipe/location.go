package recipe

import (
	"path"
	"path/filepath"
)

// RecipeFileName is the name of the cleaned recipe document.
const RecipeFileName = "recipe.json"

// Location describes where the artifacts of one recipe are written. Remote
// locations use forward-slash store paths; local ones use the OS separator.
type Location struct {
	Root   string
	Name   string
	Remote bool
}

// Dir is the per-recipe folder.
func (l Location) Dir() string {
	return l.join(l.Root, l.Name)
}

// AnalysisPath is where the analysis record for base is written. Remote runs
// put it inside the recipe folder with a .json.txt suffix; local runs put it
// in Root as <base>_analysis.json.
func (l Location) AnalysisPath(base string) string {
	if l.Remote {
		return l.join(l.Dir(), base+"_analysis.json.txt")
	}
	return l.join(l.Root, base+"_analysis.json")
}

// RecipePath is where recipe.json is written.
func (l Location) RecipePath() string {
	return l.join(l.Dir(), RecipeFileName)
}

// ImagePath is where a copy of the processed image is uploaded.
func (l Location) ImagePath(fileName string) string {
	return l.join(l.Dir(), fileName)
}

func (l Location) join(elem ...string) string {
	if l.Remote {
		return path.Join(elem...)
	}
	return filepath.Join(elem...)
}

// BaseName strips directory and extension from a file name.
func BaseName(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return base[:len(base)-len(path.Ext(base))]
}
