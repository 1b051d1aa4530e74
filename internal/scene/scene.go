// Package scene exposes the scene classifier as a black-box collaborator:
// the orchestrator only consumes a label and a confidence.
package scene

import (
	"context"
	"image"
)

// Classification is the classifier's verdict for one image
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels a property photo (kitchen, bedroom, exterior, ...)
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (*Classification, error)
}

// StaticClassifier answers with a fixed label. Deployments without a
// classifier service run with this; validation treats the scene type as
// advisory.
type StaticClassifier struct {
	Label      string
	Confidence float64
}

// Classify returns the fixed classification
func (s *StaticClassifier) Classify(ctx context.Context, img image.Image) (*Classification, error) {
	return &Classification{Label: s.Label, Confidence: s.Confidence}, nil
}
