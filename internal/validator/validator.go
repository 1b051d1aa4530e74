// Package validator implements the stage-aware structural validation
// engine: given a baseline and a candidate image it computes edge and IoU
// metrics, collects triggers from the semantic signal producers, and runs
// the multi-signal risk gate with its fatal-trigger bypass.
package validator

import (
	"context"
	"fmt"
	"image"
	"time"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/imaging"
	"go-structural-validator/internal/iou"
	"go-structural-validator/internal/lines"
	"go-structural-validator/internal/logger"
	"go-structural-validator/internal/mask"
	"go-structural-validator/internal/signal"
	"go-structural-validator/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Aggregate score weights per metric. Weights are renormalized over
// whichever metrics were actually computable, which makes the score
// diagnostic-only: two runs that computed different metric subsets are not
// comparable on it.
var scoreWeights = map[string]float64{
	MetricStructuralMaskIoU: 0.4,
	MetricEdgeIoURegion:     0.3,
	MetricEdgeIoUGlobal:     0.3,
}

// Validator runs structural validation for one baseline/candidate pair at
// a time. Safe for concurrent use across jobs; the mask cache is the only
// shared state.
type Validator struct {
	cfg       *config.Config
	source    storage.ImageSource
	masks     *mask.Cache
	extractor mask.Extractor
	registry  *signal.Registry
	artifacts *ArtifactWriter
}

// New creates a validator
func New(
	cfg *config.Config,
	source storage.ImageSource,
	masks *mask.Cache,
	extractor mask.Extractor,
	registry *signal.Registry,
	artifacts *ArtifactWriter,
) *Validator {
	return &Validator{
		cfg:       cfg,
		source:    source,
		masks:     masks,
		extractor: extractor,
		registry:  registry,
		artifacts: artifacts,
	}
}

// Validate runs one validation pass. It never returns an error: every
// internal failure degrades into the summary per the error taxonomy, so
// callers always get a gate verdict to act on.
func (v *Validator) Validate(ctx context.Context, p Params) *Summary {
	start := time.Now()

	cfg := v.cfg
	if p.Config != nil {
		cfg = p.Config
	}
	mode := p.Mode
	if mode == "" {
		mode = config.ResolveMode(p.Stage)
	}
	thresholds := cfg.ThresholdsFor(p.Stage)

	summary := &Summary{
		Stage: string(p.Stage),
		Mode:  string(mode),
		// Triggers starts non-nil so a clean run serializes as an empty
		// array, not null
		Triggers: []signal.Trigger{},
		Metrics:  map[string]float64{},
		Debug:    map[string]interface{}{},
	}

	// Metadata reads for both sides are independent; join before deciding
	// anything.
	var baseMeta, candMeta *storage.Metadata
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := v.source.Metadata(gctx, p.BaselinePath)
		baseMeta = m
		return err
	})
	g.Go(func() error {
		m, err := v.source.Metadata(gctx, p.CandidatePath)
		candMeta = m
		return err
	})
	if err := g.Wait(); err != nil {
		// Taxonomy (a): unreadable image bypasses all metric computation
		summary.Triggers = append(summary.Triggers, signal.Trigger{
			ID:      TriggerMetadataError,
			Message: fmt.Sprintf("image metadata unavailable: %v", err),
			Stage:   string(p.Stage),
			Fatal:   true,
		})
		return v.finish(p, summary, mode, cfg, thresholds, start)
	}
	summary.Debug["baseline_dimensions"] = fmt.Sprintf("%dx%d", baseMeta.Width, baseMeta.Height)
	summary.Debug["candidate_dimensions"] = fmt.Sprintf("%dx%d", candMeta.Width, candMeta.Height)

	dimensionMismatch := baseMeta.Width != candMeta.Width || baseMeta.Height != candMeta.Height
	if dimensionMismatch {
		// Never auto-resize: metrics computed against distorted proxies
		// would be meaningless. Record the mismatch and skip them.
		summary.Triggers = append(summary.Triggers, signal.Trigger{
			ID: TriggerDimensionMismatch,
			Message: fmt.Sprintf("baseline %dx%d vs candidate %dx%d",
				baseMeta.Width, baseMeta.Height, candMeta.Width, candMeta.Height),
			Value:     float64(candMeta.Width * candMeta.Height),
			Threshold: float64(baseMeta.Width * baseMeta.Height),
			Stage:     string(p.Stage),
		})
		summary.Debug["skip_pixel_metrics"] = "dimension mismatch"
	}

	var baseImg, candImg image.Image
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := v.source.Fetch(gctx, p.BaselinePath)
		baseImg = img
		return err
	})
	g.Go(func() error {
		img, err := v.source.Fetch(gctx, p.CandidatePath)
		candImg = img
		return err
	})
	if err := g.Wait(); err != nil {
		summary.Triggers = append(summary.Triggers, signal.Trigger{
			ID:      TriggerMetadataError,
			Message: fmt.Sprintf("image unreadable: %v", err),
			Stage:   string(p.Stage),
			Fatal:   true,
		})
		return v.finish(p, summary, mode, cfg, thresholds, start)
	}

	if !dimensionMismatch {
		v.computePixelMetrics(ctx, p, cfg, thresholds, summary, baseImg, candImg)
	}

	// Semantic detectors compare content, not pixels, so they run even on
	// mismatched dimensions.
	pair := signal.Pair{
		Stage:         p.Stage,
		JobID:         p.JobID,
		SceneType:     p.SceneType,
		BaselinePath:  p.BaselinePath,
		CandidatePath: p.CandidatePath,
		Baseline:      baseImg,
		Candidate:     candImg,
		Thresholds:    thresholds,
		HardFail:      cfg.HardFail,
	}
	summary.Triggers = append(summary.Triggers, v.registry.DetectAll(ctx, pair)...)

	return v.finish(p, summary, mode, cfg, thresholds, start)
}

// computePixelMetrics fills in the IoU and line metrics plus their
// triggers. Both images are known to share dimensions here.
func (v *Validator) computePixelMetrics(
	ctx context.Context,
	p Params,
	cfg *config.Config,
	thresholds config.Thresholds,
	summary *Summary,
	baseImg, candImg image.Image,
) {
	// The two mask computations are independent; dispatch them together
	// and join before gating.
	var baseMask, candMask *mask.StructuralMask
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := v.loadMask(gctx, p.JobID, mask.SideBaseline, p.BaselinePath, baseImg)
		baseMask = m
		return err
	})
	g.Go(func() error {
		m, err := v.loadMask(gctx, p.JobID, mask.SideCandidate, p.CandidatePath, candImg)
		candMask = m
		return err
	})
	maskErr := g.Wait()
	if maskErr != nil {
		// Taxonomy (b): distinguishable from a genuine structural violation
		summary.Triggers = append(summary.Triggers, signal.Trigger{
			ID:      TriggerMaskFailure,
			Message: fmt.Sprintf("structural mask computation failed: %v", maskErr),
			Stage:   string(p.Stage),
			Fatal:   true,
		})
	}
	_ = candMask // candidate mask is cached for retries; scoring masks by the baseline

	grayBase := imaging.ToGray(baseImg)
	grayCand := imaging.ToGray(candImg)
	baseEdges := imaging.SobelBinary(grayBase, cfg.SobelThreshold)
	candEdges := imaging.SobelBinary(grayCand, cfg.SobelThreshold)

	// Structural IoU against the baseline's fixed structure
	if maskErr == nil {
		switch {
		case baseMask.Coverage() < cfg.MinMaskFraction:
			// Taxonomy (c): skip, never coerce to a number
			summary.Debug["skip_structural_mask_iou"] = fmt.Sprintf(
				"structural mask covers %.4f of image, below minimum %.4f",
				baseMask.Coverage(), cfg.MinMaskFraction)
		default:
			res := iou.StructureOnly(baseEdges, candEdges, baseMask.Data)
			summary.Debug["structural_mask_pixels"] = res.MaskPixels
			if res.Value == nil {
				summary.Debug["skip_structural_mask_iou"] = "no edges within structural mask on either side"
			} else {
				summary.Metrics[MetricStructuralMaskIoU] = *res.Value
				if *res.Value < thresholds.StructIoUMin {
					summary.Triggers = append(summary.Triggers, signal.Trigger{
						ID: TriggerStructuralMaskIoU,
						Message: fmt.Sprintf("structural IoU %.3f below minimum %.3f",
							*res.Value, thresholds.StructIoUMin),
						Value:     *res.Value,
						Threshold: thresholds.StructIoUMin,
						Stage:     string(p.Stage),
					})
				}
			}
		}
	}

	global := iou.Global(baseEdges, candEdges)
	if global.Value == nil {
		summary.Debug["skip_edge_iou_global"] = "both edge maps empty"
	} else {
		summary.Metrics[MetricEdgeIoUGlobal] = *global.Value
	}

	region := iou.ExcludeLowerRegion(baseEdges, candEdges, cfg.ExcludeLowerPct)
	if region.Value == nil {
		summary.Debug["skip_edge_iou_region"] = "both edge maps empty above excluded region"
	} else {
		summary.Metrics[MetricEdgeIoURegion] = *region.Value
	}

	// Stage 1A compares full frame; the staging stages ignore the
	// furniture-heavy lower region for the threshold check.
	stageEdge := global
	stageMetric := MetricEdgeIoUGlobal
	if p.Stage != config.Stage1A {
		stageEdge = region
		stageMetric = MetricEdgeIoURegion
	}
	if stageEdge.Value != nil && *stageEdge.Value < thresholds.EdgeIoUMin {
		summary.Triggers = append(summary.Triggers, signal.Trigger{
			ID: TriggerEdgeIoU,
			Message: fmt.Sprintf("%s %.3f below minimum %.3f",
				stageMetric, *stageEdge.Value, thresholds.EdgeIoUMin),
			Value:     *stageEdge.Value,
			Threshold: thresholds.EdgeIoUMin,
			Stage:     string(p.Stage),
		})
	}

	// Line-edge drift per the Hough analysis
	lineOpts := lines.DefaultOptions()
	lineOpts.SobelThreshold = cfg.SobelThreshold
	lineOpts.MaxDimension = cfg.MaxLineDimension

	baseLines := lines.Analyze(grayBase, lineOpts)
	candLines := lines.Analyze(grayCand, lineOpts)
	drift := lines.CompareDrift(baseLines, candLines)
	stability := drift.StabilityScore()
	summary.Metrics[MetricLineStability] = stability
	summary.Debug["line_drift"] = drift
	summary.Debug["line_counts"] = map[string]int{
		"baseline_vertical":    baseLines.VerticalCount,
		"baseline_horizontal":  baseLines.HorizontalCount,
		"candidate_vertical":   candLines.VerticalCount,
		"candidate_horizontal": candLines.HorizontalCount,
	}
	if stability < thresholds.LineEdgeMin {
		summary.Triggers = append(summary.Triggers, signal.Trigger{
			ID: TriggerLineEdgeShift,
			Message: fmt.Sprintf("line stability %.3f below minimum %.3f (%.2f deg deviation)",
				stability, thresholds.LineEdgeMin, drift.DeviationScore),
			Value:     stability,
			Threshold: thresholds.LineEdgeMin,
			Stage:     string(p.Stage),
		})
	}
}

// loadMask resolves a structural mask through the cache when a job id is
// available, or computes it directly otherwise.
func (v *Validator) loadMask(ctx context.Context, jobID string, side mask.Side, path string, img image.Image) (*mask.StructuralMask, error) {
	if jobID == "" {
		return v.extractor.Extract(ctx, img)
	}
	return v.masks.LoadOrCompute(ctx, mask.Key{JobID: jobID, Side: side}, path, img)
}

// finish runs the gate, computes the diagnostic score, writes the debug
// artifact for risky runs, and logs the outcome.
func (v *Validator) finish(
	p Params,
	summary *Summary,
	mode config.Mode,
	cfg *config.Config,
	thresholds config.Thresholds,
	start time.Time,
) *Summary {
	verdict := EvaluateGate(summary.Triggers, cfg.GateMinSignals, mode)
	summary.Risk = verdict.Risk
	summary.Passed = verdict.Passed
	summary.Score = computeScore(summary.Metrics)

	if summary.Score != nil && *summary.Score < thresholds.UnifiedMin {
		// Diagnostic only: the score is not comparable across runs that
		// computed different metric subsets, so it never gates.
		summary.Debug["unified_score_below_min"] = true
	}
	summary.Debug["elapsed_ms"] = time.Since(start).Milliseconds()

	if path, err := v.artifacts.Write(p, summary); err != nil {
		logger.WithError(err).WithField("job_id", p.JobID).Warn("Failed to write validation artifact")
	} else if path != "" {
		summary.Debug["artifact_path"] = path
	}

	entry := logger.WithFields(logrus.Fields{
		"stage":    summary.Stage,
		"mode":     summary.Mode,
		"job_id":   p.JobID,
		"risk":     summary.Risk,
		"passed":   summary.Passed,
		"triggers": len(summary.Triggers),
	})
	if summary.Risk {
		entry.Warn("Structural validation flagged risk")
	} else {
		entry.Info("Structural validation completed")
	}

	return summary
}

// computeScore averages the computed metrics under the fixed weights,
// renormalized over whichever metrics are present. Nil when none of the
// weighted metrics were computable.
func computeScore(metrics map[string]float64) *float64 {
	var weighted, totalWeight float64
	for key, weight := range scoreWeights {
		if value, ok := metrics[key]; ok {
			weighted += value * weight
			totalWeight += weight
		}
	}
	if totalWeight == 0 {
		return nil
	}
	score := weighted / totalWeight
	return &score
}
