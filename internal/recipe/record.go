package recipe

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AnalysisRecord is the metadata document stored next to every recipe.
type AnalysisRecord struct {
	SourcePath  string `json:"source_path"`
	ProcessedAt string `json:"processed_at"`
	Analysis    string `json:"analysis"`
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
}

// NewAnalysisRecord stamps a record with the processing time.
func NewAnalysisRecord(sourcePath, analysis, model, prompt string, at time.Time) AnalysisRecord {
	return AnalysisRecord{
		SourcePath:  sourcePath,
		ProcessedAt: at.Format(time.RFC3339),
		Analysis:    analysis,
		Model:       model,
		Prompt:      prompt,
	}
}

// Marshal renders the record with two-space indentation. Non-ASCII text and
// HTML characters are written verbatim.
func (r AnalysisRecord) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteFile writes the record to path, creating parent directories.
func (r AnalysisRecord) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteRecipe writes the cleaned recipe text to path verbatim.
func WriteRecipe(path, cleaned string) error {
	return writeFile(path, []byte(cleaned))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
