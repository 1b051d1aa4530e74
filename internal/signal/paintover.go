package signal

import (
	"context"
	"fmt"
	"image"
)

// PaintOverAnalysis reports how much fixed structure the candidate appears
// to have painted over (e.g. a wall texture rendered across a doorway).
type PaintOverAnalysis struct {
	// CoveredFraction is the fraction of baseline structural area that the
	// candidate replaced with flat fill.
	CoveredFraction float64
}

// PaintOverDetector is the external paint-over analyzer
type PaintOverDetector interface {
	AnalyzePaintOver(ctx context.Context, baseline, candidate image.Image) (*PaintOverAnalysis, error)
}

// maxPaintOverFraction is the tolerated covered fraction; small values are
// indistinguishable from compression artifacts.
const maxPaintOverFraction = 0.10

// PaintOverProducer turns paint-over detector output into a soft trigger.
// Paint-over has no hard-fail switch: the structural IoU checks corroborate
// it, so it participates in the multi-signal gate instead.
type PaintOverProducer struct {
	detector PaintOverDetector
}

// NewPaintOverProducer wraps a paint-over detector
func NewPaintOverProducer(detector PaintOverDetector) *PaintOverProducer {
	return &PaintOverProducer{detector: detector}
}

func (p *PaintOverProducer) Name() string { return "paint_over_detector" }

func (p *PaintOverProducer) Detect(ctx context.Context, pair Pair) ([]Trigger, error) {
	analysis, err := p.detector.AnalyzePaintOver(ctx, pair.Baseline, pair.Candidate)
	if err != nil {
		return nil, err
	}
	if analysis.CoveredFraction <= maxPaintOverFraction {
		return nil, nil
	}
	return []Trigger{{
		ID:        "paint_over",
		Message:   fmt.Sprintf("%.1f%% of structural area painted over", analysis.CoveredFraction*100),
		Value:     analysis.CoveredFraction,
		Threshold: maxPaintOverFraction,
		Stage:     string(pair.Stage),
	}}, nil
}
