package config

import (
	"os"
	"strings"
	"sync"

	"go-structural-validator/internal/logger"

	"github.com/sirupsen/logrus"
)

// legacyModeVar is the old catch-all switch that predates per-stage modes.
// Stage-specific variables always take priority over it.
const legacyModeVar = "STRUCT_VALIDATION_MODE"

var (
	modeOnce     sync.Once
	resolvedMode map[Stage]Mode
)

// ResolveMode returns the log/block mode for a stage. Resolution order:
// VALIDATION_MODE_<STAGE> > VALIDATION_MODE > STRUCT_VALIDATION_MODE
// (legacy) > "log". The environment is read once per process and the
// outcome, including any legacy names honored, is logged exactly once.
func ResolveMode(stage Stage) Mode {
	modeOnce.Do(func() {
		var legacyHonored []string
		resolvedMode, legacyHonored = resolveModes(os.Getenv)

		fields := logrus.Fields{}
		for s, m := range resolvedMode {
			fields[string(s)] = string(m)
		}
		if len(legacyHonored) > 0 {
			fields["legacy_vars"] = legacyHonored
		}
		logger.WithFields(fields).Info("Structural validation modes resolved")
	})
	if m, ok := resolvedMode[stage]; ok {
		return m
	}
	return ModeLog
}

// resolveModes is the pure resolution step, split out so precedence is
// testable without process-global state.
func resolveModes(getenv func(string) string) (map[Stage]Mode, []string) {
	var legacyHonored []string
	modes := make(map[Stage]Mode, len(Stages()))

	for _, stage := range Stages() {
		stageVar := "VALIDATION_MODE" + stageEnvSuffix(stage)
		candidates := []string{stageVar, "VALIDATION_MODE", legacyModeVar}

		mode := ModeLog
		for _, name := range candidates {
			if m, ok := parseMode(getenv(name)); ok {
				mode = m
				if name == legacyModeVar {
					legacyHonored = appendUnique(legacyHonored, name)
				}
				break
			}
		}
		modes[stage] = mode
	}
	return modes, legacyHonored
}

func parseMode(raw string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLog:
		return ModeLog, true
	case ModeBlock:
		return ModeBlock, true
	}
	return "", false
}
