// Package signal defines the polymorphic signal producers that feed the
// risk gate. Core pixel metrics are computed by the validator itself;
// producers wrap the optional semantic detectors (window count/position,
// opening creation, paint-over) that are consumed as black-box services.
package signal

import (
	"context"
	"fmt"
	"image"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/logger"

	"github.com/sirupsen/logrus"
)

// Trigger records one failed check. Fatal triggers bypass the multi-signal
// gate entirely.
type Trigger struct {
	ID        string  `json:"id"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Stage     string  `json:"stage"`
	Fatal     bool    `json:"fatal,omitempty"`
}

// Pair is the baseline/candidate context handed to every producer
type Pair struct {
	Stage         config.Stage
	JobID         string
	SceneType     string
	BaselinePath  string
	CandidatePath string
	Baseline      image.Image
	Candidate     image.Image
	Thresholds    config.Thresholds
	HardFail      config.HardFailSwitches
}

// Producer detects one class of structural change
type Producer interface {
	Name() string
	Detect(ctx context.Context, pair Pair) ([]Trigger, error)
}

// Registry composes producers and shields the validation run from their
// failures: a secondary signal's unavailability must never block a job, so
// errors and panics are logged and dropped.
type Registry struct {
	producers []Producer
}

// NewRegistry creates an empty producer registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a producer
func (r *Registry) Register(p Producer) {
	r.producers = append(r.producers, p)
}

// DetectAll runs every producer and collects their triggers
func (r *Registry) DetectAll(ctx context.Context, pair Pair) []Trigger {
	var triggers []Trigger
	for _, producer := range r.producers {
		found, err := runProducer(ctx, producer, pair)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"producer": producer.Name(),
				"stage":    string(pair.Stage),
				"job_id":   pair.JobID,
			}).Warn("Signal producer failed; continuing without it")
			continue
		}
		triggers = append(triggers, found...)
	}
	return triggers
}

func runProducer(ctx context.Context, p Producer, pair Pair) (triggers []Trigger, err error) {
	defer func() {
		if r := recover(); r != nil {
			triggers = nil
			err = fmt.Errorf("producer %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Detect(ctx, pair)
}
