package validator

import (
	"go-structural-validator/internal/config"
	"go-structural-validator/internal/signal"
)

// Params describes one validation run
type Params struct {
	Stage         config.Stage `json:"stage"`
	BaselinePath  string       `json:"baseline_path"`
	CandidatePath string       `json:"candidate_path"`
	// Mode overrides the environment-resolved log/block mode when set
	Mode      config.Mode `json:"mode,omitempty"`
	SceneType string      `json:"scene_type,omitempty"`
	// JobID keys the mask cache and names debug artifacts. Without it,
	// masks are recomputed per call.
	JobID string `json:"job_id,omitempty"`
	// Config overrides the validator's configuration for this call
	Config *config.Config `json:"-"`
}

// Summary is the immutable outcome of one validation run. Risk is true iff
// any trigger is fatal or the trigger count meets the minimum-signals gate;
// Passed is true when not risky or when running in log mode.
type Summary struct {
	Stage    string                 `json:"stage"`
	Mode     string                 `json:"mode"`
	Passed   bool                   `json:"passed"`
	Risk     bool                   `json:"risk"`
	Score    *float64               `json:"score"`
	Triggers []signal.Trigger       `json:"triggers"`
	Metrics  map[string]float64     `json:"metrics"`
	Debug    map[string]interface{} `json:"debug"`
}

// Metric keys present in Summary.Metrics when computable
const (
	MetricStructuralMaskIoU = "structural_mask_iou"
	MetricEdgeIoUGlobal     = "edge_iou_global"
	MetricEdgeIoURegion     = "edge_iou_region"
	MetricLineStability     = "line_stability"
)

// Trigger ids emitted by the validator itself (producers add their own)
const (
	TriggerStructuralMaskIoU = "structural_mask_iou"
	TriggerEdgeIoU           = "edge_iou"
	TriggerLineEdgeShift     = "line_edge_shift"
	TriggerDimensionMismatch = "dimension_mismatch"
	TriggerMetadataError     = "metadata_error"
	TriggerMaskFailure       = "mask_computation_failed"
)
