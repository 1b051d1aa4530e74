package signal

import (
	"context"
	"fmt"
	"image"
)

// WindowAnalysis is the black-box window detector's verdict on a pair
type WindowAnalysis struct {
	BaselineCount  int
	CandidateCount int
	// PositionShift is the normalized displacement of matched windows,
	// 0 meaning no movement.
	PositionShift float64
}

// WindowDetector is the external window count/position analyzer
type WindowDetector interface {
	AnalyzeWindows(ctx context.Context, baseline, candidate image.Image) (*WindowAnalysis, error)
}

// maxWindowPositionShift is the normalized displacement above which a
// window is considered moved rather than jittered by re-rendering.
const maxWindowPositionShift = 0.05

// WindowProducer turns window detector output into triggers. Count and
// position changes become fatal when the corresponding hard-fail switch
// is enabled.
type WindowProducer struct {
	detector WindowDetector
}

// NewWindowProducer wraps a window detector
func NewWindowProducer(detector WindowDetector) *WindowProducer {
	return &WindowProducer{detector: detector}
}

func (p *WindowProducer) Name() string { return "window_detector" }

func (p *WindowProducer) Detect(ctx context.Context, pair Pair) ([]Trigger, error) {
	analysis, err := p.detector.AnalyzeWindows(ctx, pair.Baseline, pair.Candidate)
	if err != nil {
		return nil, err
	}

	var triggers []Trigger
	if analysis.BaselineCount != analysis.CandidateCount {
		triggers = append(triggers, Trigger{
			ID: "window_count_change",
			Message: fmt.Sprintf("window count changed from %d to %d",
				analysis.BaselineCount, analysis.CandidateCount),
			Value:     float64(analysis.CandidateCount),
			Threshold: float64(analysis.BaselineCount),
			Stage:     string(pair.Stage),
			Fatal:     pair.HardFail.BlockOnWindowCountChange,
		})
	}
	if analysis.PositionShift > maxWindowPositionShift {
		triggers = append(triggers, Trigger{
			ID:        "window_position_change",
			Message:   fmt.Sprintf("window position shifted by %.3f", analysis.PositionShift),
			Value:     analysis.PositionShift,
			Threshold: maxWindowPositionShift,
			Stage:     string(pair.Stage),
			Fatal:     pair.HardFail.BlockOnWindowPositionChange,
		})
	}
	return triggers, nil
}
