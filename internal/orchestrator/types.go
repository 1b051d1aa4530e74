package orchestrator

import (
	"context"
	"time"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/validator"
)

// State is an enhance job's position in the pipeline state machine:
// queued → scene-detect → stage1A → stage1B? → stage2? → validated →
// complete | error.
type State string

const (
	StateQueued      State = "queued"
	StateSceneDetect State = "scene-detect"
	StateStage1A     State = "stage1A"
	StateStage1B     State = "stage1B"
	StateStage2      State = "stage2"
	StateValidated   State = "validated"
	StateComplete    State = "complete"
	StateError       State = "error"
)

// Options selects the optional pipeline stages for a job
type Options struct {
	Declutter    bool `json:"declutter"`
	VirtualStage bool `json:"virtual_stage"`
}

// Job is one enhance job's record, including the per-stage validation
// summaries kept for audit.
type Job struct {
	ID           string                  `json:"id"`
	OriginalPath string                  `json:"original_path"`
	Options      Options                 `json:"options"`
	SceneType    string                  `json:"scene_type,omitempty"`
	State        State                   `json:"state"`
	StageOutputs map[config.Stage]string `json:"stage_outputs,omitempty"`
	Summaries    []*validator.Summary    `json:"summaries,omitempty"`
	FinalPath    string                  `json:"final_path,omitempty"`
	Error        string                  `json:"error,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Enhancer is the external generative collaborator that produces stage
// candidates. Implementations call out to the image generation backend.
type Enhancer interface {
	Enhance(ctx context.Context, stage config.Stage, inputPath string, opts Options) (string, error)
}

// PassthroughEnhancer returns its input unchanged. Used when no generation
// backend is configured, which still exercises the full validation path.
type PassthroughEnhancer struct{}

// Enhance returns the input path as the stage output
func (PassthroughEnhancer) Enhance(ctx context.Context, stage config.Stage, inputPath string, opts Options) (string, error) {
	return inputPath, nil
}
