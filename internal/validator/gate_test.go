package validator

import (
	"testing"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/signal"
)

func TestEvaluateGate_NoTriggers(t *testing.T) {
	verdict := EvaluateGate(nil, 2, config.ModeBlock)
	if verdict.Risk || !verdict.Passed || verdict.HasFatal {
		t.Errorf("Expected clean pass, got %+v", verdict)
	}
}

func TestEvaluateGate_SingleSoftTriggerBelowMinimum(t *testing.T) {
	triggers := []signal.Trigger{{ID: "edge_iou"}}
	verdict := EvaluateGate(triggers, 2, config.ModeBlock)
	if verdict.Risk {
		t.Error("A single soft trigger must not meet the two-signal gate")
	}
	if !verdict.Passed {
		t.Error("Expected pass when not risky")
	}
}

func TestEvaluateGate_TwoSoftTriggersMeetGate(t *testing.T) {
	triggers := []signal.Trigger{{ID: "edge_iou"}, {ID: "line_edge_shift"}}
	verdict := EvaluateGate(triggers, 2, config.ModeBlock)
	if !verdict.Risk {
		t.Error("Two corroborating soft triggers must be risky")
	}
	if verdict.Passed {
		t.Error("Block mode must fail a risky run")
	}
	if verdict.HasFatal {
		t.Error("Soft triggers must not register as fatal")
	}
}

func TestEvaluateGate_FatalBypassesMinimum(t *testing.T) {
	triggers := []signal.Trigger{{ID: "window_count_change", Fatal: true}}
	verdict := EvaluateGate(triggers, 5, config.ModeBlock)
	if !verdict.Risk || !verdict.HasFatal {
		t.Errorf("A single fatal trigger must bypass the gate, got %+v", verdict)
	}
	if verdict.Passed {
		t.Error("Block mode must fail on a fatal trigger")
	}
}

func TestEvaluateGate_LogModeNeverBlocks(t *testing.T) {
	triggers := []signal.Trigger{
		{ID: "window_count_change", Fatal: true},
		{ID: "edge_iou"},
		{ID: "line_edge_shift"},
	}
	verdict := EvaluateGate(triggers, 2, config.ModeLog)
	if !verdict.Risk {
		t.Error("Log mode must still report risk")
	}
	if !verdict.Passed {
		t.Error("Log mode must never block")
	}
}

func TestEvaluateGate_HigherMinimum(t *testing.T) {
	triggers := []signal.Trigger{{ID: "a"}, {ID: "b"}}
	if verdict := EvaluateGate(triggers, 3, config.ModeBlock); verdict.Risk {
		t.Error("Two triggers must not meet a three-signal gate")
	}
	triggers = append(triggers, signal.Trigger{ID: "c"})
	if verdict := EvaluateGate(triggers, 3, config.ModeBlock); !verdict.Risk {
		t.Error("Three triggers must meet a three-signal gate")
	}
}
