package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go-structural-validator/internal/logger"

	"github.com/sirupsen/logrus"
)

// Stage identifies one step of the enhancement pipeline. The stage decides
// which baseline a candidate is compared against and which threshold set
// applies.
type Stage string

const (
	// Stage1A is the quality lift, validated against the original upload.
	Stage1A Stage = "stage1A"
	// Stage1B is the declutter pass, validated against the Stage 1A output.
	Stage1B Stage = "stage1B"
	// Stage2 is virtual staging, also validated against the Stage 1A output.
	Stage2 Stage = "stage2"
)

// Stages lists all pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{Stage1A, Stage1B, Stage2}
}

// ParseStage converts a string to a Stage
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case Stage1A, Stage1B, Stage2:
		return Stage(s), nil
	}
	return "", fmt.Errorf("unknown stage: %q", s)
}

// Mode controls whether a risky validation annotates or blocks
type Mode string

const (
	ModeLog   Mode = "log"
	ModeBlock Mode = "block"
)

// Thresholds is the immutable per-stage numeric policy. Stage 1A compares
// against the original so its tolerances are tight; Stage 1B/2 compare
// against an already-enhanced baseline where some pixel drift is legitimate.
type Thresholds struct {
	StructIoUMin float64
	EdgeIoUMin   float64
	LineEdgeMin  float64
	UnifiedMin   float64
}

// HardFailSwitches turn specific detector findings into fatal triggers that
// bypass the multi-signal gate.
type HardFailSwitches struct {
	BlockOnWindowCountChange    bool
	BlockOnWindowPositionChange bool
	BlockOnOpeningsDelta        bool
}

// Config holds all resolved validation and server settings. Built once at
// startup; never mutated afterwards.
type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	Workers    int
	JobTimeout time.Duration

	GateMinSignals   int
	SobelThreshold   float64
	ExcludeLowerPct  float64
	MinMaskFraction  float64
	MaxLineDimension int

	Stages   map[Stage]Thresholds
	HardFail HardFailSwitches

	ArtifactsEnabled bool
	ArtifactDir      string

	MaskCacheTTL   time.Duration
	MaskCacheSweep time.Duration

	AzureAccountName string
	AzureAccountKey  string
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// ThresholdsFor returns the threshold set for a stage, falling back to the
// Stage 1A (tightest) set for unknown values.
func (c *Config) ThresholdsFor(stage Stage) Thresholds {
	if t, ok := c.Stages[stage]; ok {
		return t
	}
	return c.Stages[Stage1A]
}

// defaultThresholds returns the hard-coded per-stage policy. Stage 1B and
// Stage 2 tolerate more drift because declutter and staging legitimately
// move non-structural pixels.
func defaultThresholds() map[Stage]Thresholds {
	return map[Stage]Thresholds{
		Stage1A: {StructIoUMin: 0.80, EdgeIoUMin: 0.60, LineEdgeMin: 0.75, UnifiedMin: 0.70},
		Stage1B: {StructIoUMin: 0.60, EdgeIoUMin: 0.45, LineEdgeMin: 0.65, UnifiedMin: 0.55},
		Stage2:  {StructIoUMin: 0.55, EdgeIoUMin: 0.40, LineEdgeMin: 0.60, UnifiedMin: 0.50},
	}
}

// thresholdEnvKeys maps a threshold field to its canonical env prefix and
// any legacy name still honored for existing deployments.
var thresholdEnvKeys = []struct {
	canonical string
	legacy    string
	get       func(*Thresholds) *float64
}{
	{"STRUCT_IOU_MIN", "MIN_STRUCT_IOU", func(t *Thresholds) *float64 { return &t.StructIoUMin }},
	{"EDGE_IOU_MIN", "MIN_EDGE_IOU", func(t *Thresholds) *float64 { return &t.EdgeIoUMin }},
	{"LINE_EDGE_MIN", "LINE_EDGE_SENSITIVITY", func(t *Thresholds) *float64 { return &t.LineEdgeMin }},
	{"UNIFIED_MIN", "MIN_UNIFIED_SCORE", func(t *Thresholds) *float64 { return &t.UnifiedMin }},
}

// stageEnvSuffix maps a stage to its env-variable suffix
func stageEnvSuffix(stage Stage) string {
	return "_" + strings.ToUpper(string(stage))
}

// LoadFromEnv builds the configuration. Precedence per setting:
// stage-specific env var > global env var > legacy env var > default.
// Malformed numeric values fall back to the next candidate rather than
// erroring. Legacy names that were honored are reported so migrations
// stay visible.
func LoadFromEnv() (*Config, error) {
	return loadFromLookup(os.Getenv)
}

func loadFromLookup(getenv func(string) string) (*Config, error) {
	var legacyHonored []string

	cfg := &Config{
		Host:             envOrDefault(getenv, "HOST", "0.0.0.0"),
		Port:             envOrDefault(getenv, "PORT", "8080"),
		RequestTimeout:   durationOrDefault(getenv, "REQUEST_TIMEOUT", 30*time.Second),
		Workers:          intOrDefault(getenv, "VALIDATION_WORKERS", 2),
		JobTimeout:       durationOrDefault(getenv, "JOB_TIMEOUT", 5*time.Minute),
		GateMinSignals:   intOrDefault(getenv, "GATE_MIN_SIGNALS", 2),
		SobelThreshold:   floatOrDefault(getenv, "SOBEL_THRESHOLD", 100.0),
		ExcludeLowerPct:  floatOrDefault(getenv, "EXCLUDE_LOWER_PCT", 0.30),
		MinMaskFraction:  floatOrDefault(getenv, "MIN_MASK_FRACTION", 0.01),
		MaxLineDimension: intOrDefault(getenv, "MAX_LINE_DIMENSION", 1920),
		Stages:           defaultThresholds(),
		HardFail: HardFailSwitches{
			BlockOnWindowCountChange:    boolOrDefault(getenv, "BLOCK_ON_WINDOW_COUNT_CHANGE", true),
			BlockOnWindowPositionChange: boolOrDefault(getenv, "BLOCK_ON_WINDOW_POSITION_CHANGE", true),
			BlockOnOpeningsDelta:        boolOrDefault(getenv, "BLOCK_ON_OPENINGS_DELTA", true),
		},
		ArtifactsEnabled: boolOrDefault(getenv, "VALIDATION_ARTIFACTS", false),
		ArtifactDir:      envOrDefault(getenv, "VALIDATION_ARTIFACT_DIR", "/tmp/validation-artifacts"),
		MaskCacheTTL:     durationOrDefault(getenv, "MASK_CACHE_TTL", 15*time.Minute),
		MaskCacheSweep:   durationOrDefault(getenv, "MASK_CACHE_SWEEP", 5*time.Minute),
		AzureAccountName: getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:  getenv("AZURE_STORAGE_KEY"),
	}

	// Per-stage threshold overrides: STRUCT_IOU_MIN_STAGE1A beats
	// STRUCT_IOU_MIN, which beats the legacy MIN_STRUCT_IOU.
	for stage, thresholds := range cfg.Stages {
		t := thresholds
		for _, key := range thresholdEnvKeys {
			candidates := []string{
				key.canonical + stageEnvSuffix(stage),
				key.canonical,
				key.legacy,
			}
			if v, name, ok := firstFloat(getenv, candidates); ok {
				*key.get(&t) = v
				if name == key.legacy {
					legacyHonored = appendUnique(legacyHonored, name)
				}
			}
		}
		cfg.Stages[stage] = t
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("VALIDATION_WORKERS must be >= 1 (got %d)", cfg.Workers)
	}
	if cfg.GateMinSignals < 1 {
		return nil, fmt.Errorf("GATE_MIN_SIGNALS must be >= 1 (got %d)", cfg.GateMinSignals)
	}
	if cfg.ExcludeLowerPct < 0 || cfg.ExcludeLowerPct >= 1 {
		return nil, fmt.Errorf("EXCLUDE_LOWER_PCT must be in [0,1) (got %f)", cfg.ExcludeLowerPct)
	}

	if len(legacyHonored) > 0 {
		logger.WithFields(logrus.Fields{
			"legacy_vars": legacyHonored,
		}).Warn("Deprecated configuration variable names honored; migrate to canonical names")
	}

	return cfg, nil
}

func envOrDefault(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationOrDefault(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func intOrDefault(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func floatOrDefault(getenv func(string) string, key string, defaultValue float64) float64 {
	if value := getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func boolOrDefault(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// firstFloat returns the first candidate that parses as a float, along with
// the name that supplied it. Malformed values are skipped, not fatal.
func firstFloat(getenv func(string) string, candidates []string) (float64, string, bool) {
	for _, name := range candidates {
		if name == "" {
			continue
		}
		if value := getenv(name); value != "" {
			if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				return f, name, true
			}
		}
	}
	return 0, "", false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
