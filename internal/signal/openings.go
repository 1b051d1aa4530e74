package signal

import (
	"context"
	"fmt"
	"image"
)

// OpeningsAnalysis is the black-box opening detector's verdict on a pair
type OpeningsAnalysis struct {
	// Created counts openings (doors, passages, archways) present in the
	// candidate but not the baseline; Closed counts the reverse.
	Created int
	Closed  int
}

// OpeningsDetector is the external opening creation/closure analyzer
type OpeningsDetector interface {
	AnalyzeOpenings(ctx context.Context, baseline, candidate image.Image) (*OpeningsAnalysis, error)
}

// OpeningsProducer turns opening detector output into triggers
type OpeningsProducer struct {
	detector OpeningsDetector
}

// NewOpeningsProducer wraps an openings detector
func NewOpeningsProducer(detector OpeningsDetector) *OpeningsProducer {
	return &OpeningsProducer{detector: detector}
}

func (p *OpeningsProducer) Name() string { return "openings_detector" }

func (p *OpeningsProducer) Detect(ctx context.Context, pair Pair) ([]Trigger, error) {
	analysis, err := p.detector.AnalyzeOpenings(ctx, pair.Baseline, pair.Candidate)
	if err != nil {
		return nil, err
	}

	delta := analysis.Created + analysis.Closed
	if delta == 0 {
		return nil, nil
	}
	return []Trigger{{
		ID: "openings_delta",
		Message: fmt.Sprintf("openings changed: %d created, %d closed",
			analysis.Created, analysis.Closed),
		Value:     float64(delta),
		Threshold: 0,
		Stage:     string(pair.Stage),
		Fatal:     pair.HardFail.BlockOnOpeningsDelta,
	}}, nil
}
