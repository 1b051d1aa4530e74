package validator

import (
	"go-structural-validator/internal/config"
	"go-structural-validator/internal/signal"
)

// Verdict is the risk gate's decision for one validation run
type Verdict struct {
	Risk     bool
	Passed   bool
	HasFatal bool
}

// EvaluateGate applies the two-tier gating decision:
//
//  1. any fatal trigger risks the run outright — a named invariant was
//     violated and needs no corroboration;
//  2. otherwise, soft disagreement needs at least minSignals independent
//     triggers, so a single borderline metric never blocks a job.
//
// Log mode never blocks: Passed stays true regardless of risk.
func EvaluateGate(triggers []signal.Trigger, minSignals int, mode config.Mode) Verdict {
	hasFatal := false
	for _, t := range triggers {
		if t.Fatal {
			hasFatal = true
			break
		}
	}

	risk := hasFatal || len(triggers) >= minSignals
	return Verdict{
		Risk:     risk,
		Passed:   !risk || mode == config.ModeLog,
		HasFatal: hasFatal,
	}
}
