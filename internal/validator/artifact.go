package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-structural-validator/internal/signal"
)

// ArtifactVersion marks the debug artifact format. The file layout is a
// stable contract consumed by offline debugging tooling; bump this marker
// with any layout change.
const ArtifactVersion = 1

// Artifact is the JSON debug record written for risky validation runs
type Artifact struct {
	Version  int                    `json:"version"`
	Params   Params                 `json:"params"`
	Triggers []signal.Trigger       `json:"triggers"`
	Metrics  map[string]float64     `json:"metrics"`
	Debug    map[string]interface{} `json:"debug"`
	Risk     bool                   `json:"risk"`
	Passed   bool                   `json:"passed"`
	Score    *float64               `json:"score"`
}

// ArtifactWriter persists risky validation summaries as JSON files named by
// job id under a configurable directory.
type ArtifactWriter struct {
	dir     string
	enabled bool
}

// NewArtifactWriter creates an artifact writer. When disabled, Write is a
// no-op.
func NewArtifactWriter(dir string, enabled bool) *ArtifactWriter {
	return &ArtifactWriter{dir: dir, enabled: enabled}
}

// Write persists the artifact for a risky run. Returns the written path, or
// empty when artifact logging is disabled or the run carried no risk.
func (w *ArtifactWriter) Write(params Params, summary *Summary) (string, error) {
	if !w.enabled || !summary.Risk {
		return "", nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	name := params.JobID
	if name == "" {
		name = fmt.Sprintf("adhoc-%d", time.Now().UnixNano())
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.json", name, params.Stage))

	artifact := Artifact{
		Version:  ArtifactVersion,
		Params:   params,
		Triggers: summary.Triggers,
		Metrics:  summary.Metrics,
		Debug:    summary.Debug,
		Risk:     summary.Risk,
		Passed:   summary.Passed,
		Score:    summary.Score,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
