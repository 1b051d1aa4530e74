package lines

import (
	"image"
	"math"
	"testing"

	"go-structural-validator/internal/imaging"
)

func TestHoughLines_DetectsVerticalLine(t *testing.T) {
	edges := imaging.NewBitmap(64, 64)
	for y := 5; y < 59; y++ {
		edges.Set(30, y)
	}

	detected := HoughLines(edges, 40, 10)
	if len(detected) == 0 {
		t.Fatal("Expected at least one line")
	}

	// A column of pixels has a horizontal normal: theta 0, rho = x
	best := detected[0]
	if thetaDistance(best.ThetaDeg, 0) > 2 {
		t.Errorf("Expected theta near 0, got %d", best.ThetaDeg)
	}
	if absInt(best.Rho-30) > 2 {
		t.Errorf("Expected rho near 30, got %d", best.Rho)
	}
}

func TestHoughLines_DetectsHorizontalLine(t *testing.T) {
	edges := imaging.NewBitmap(64, 64)
	for x := 5; x < 59; x++ {
		edges.Set(x, 30)
	}

	detected := HoughLines(edges, 40, 10)
	if len(detected) == 0 {
		t.Fatal("Expected at least one line")
	}

	best := detected[0]
	if thetaDistance(best.ThetaDeg, 90) > 2 {
		t.Errorf("Expected theta near 90, got %d", best.ThetaDeg)
	}
	if absInt(best.Rho-30) > 2 {
		t.Errorf("Expected rho near 30, got %d", best.Rho)
	}
}

func TestHoughLines_SuppressesDuplicatePeaks(t *testing.T) {
	edges := imaging.NewBitmap(64, 64)
	for y := 0; y < 64; y++ {
		edges.Set(30, y)
	}

	detected := HoughLines(edges, 30, 50)
	// The single physical line leaks votes into neighboring cells; suppression
	// must keep reports for nearby (rho, theta) cells from piling up.
	count := 0
	for _, line := range detected {
		if thetaDistance(line.ThetaDeg, 0) < 5 && absInt(line.Rho-30) < 10 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected one report near the physical line, got %d", count)
	}
}

func TestHoughLines_EmptyMap(t *testing.T) {
	if detected := HoughLines(imaging.NewBitmap(32, 32), 10, 10); len(detected) != 0 {
		t.Errorf("Expected no lines in empty edge map, got %d", len(detected))
	}
}

func TestClassify_Buckets(t *testing.T) {
	detected := []Line{
		{ThetaDeg: 0},   // direction 90: vertical
		{ThetaDeg: 5},   // direction 95: vertical
		{ThetaDeg: 90},  // direction 0: horizontal
		{ThetaDeg: 95},  // direction 5: horizontal
		{ThetaDeg: 45},  // direction 135: oblique
		{ThetaDeg: 178}, // direction 88: vertical
	}

	summary := Classify(detected)
	if summary.Count != 6 {
		t.Errorf("Expected total count 6, got %d", summary.Count)
	}
	if summary.VerticalCount != 3 {
		t.Errorf("Expected 3 vertical lines, got %d", summary.VerticalCount)
	}
	if summary.HorizontalCount != 2 {
		t.Errorf("Expected 2 horizontal lines, got %d", summary.HorizontalCount)
	}

	expectedVertical := (90.0 + 95.0 + 88.0) / 3.0
	if math.Abs(summary.AvgVerticalAngle-expectedVertical) > 1e-9 {
		t.Errorf("Expected avg vertical angle %f, got %f", expectedVertical, summary.AvgVerticalAngle)
	}
	expectedHorizontal := (0.0 + 5.0) / 2.0
	if math.Abs(summary.AvgHorizontalAngle-expectedHorizontal) > 1e-9 {
		t.Errorf("Expected avg horizontal angle %f, got %f", expectedHorizontal, summary.AvgHorizontalAngle)
	}
}

func TestClassify_FoldsWraparoundHorizontals(t *testing.T) {
	// Direction angles 5 and 175 are both nearly horizontal; the naive mean
	// of 90 would be nonsense.
	detected := []Line{
		{ThetaDeg: 95}, // direction 5
		{ThetaDeg: 85}, // direction 175
	}

	summary := Classify(detected)
	if summary.HorizontalCount != 2 {
		t.Fatalf("Expected 2 horizontal lines, got %d", summary.HorizontalCount)
	}
	// 175 folds to -5; mean of 5 and -5 is 0
	if math.Abs(summary.AvgHorizontalAngle) > 1e-9 {
		t.Errorf("Expected folded average near 0, got %f", summary.AvgHorizontalAngle)
	}
}

func TestCompareDrift(t *testing.T) {
	baseline := Summary{VerticalCount: 2, AvgVerticalAngle: 90, HorizontalCount: 1, AvgHorizontalAngle: 1}
	candidate := Summary{VerticalCount: 3, AvgVerticalAngle: 93, HorizontalCount: 2, AvgHorizontalAngle: 2.5}

	d := CompareDrift(baseline, candidate)
	if math.Abs(d.VerticalShift-3) > 1e-9 {
		t.Errorf("Expected vertical shift 3, got %f", d.VerticalShift)
	}
	if math.Abs(d.HorizontalShift-1.5) > 1e-9 {
		t.Errorf("Expected horizontal shift 1.5, got %f", d.HorizontalShift)
	}
	if math.Abs(d.DeviationScore-4.5) > 1e-9 {
		t.Errorf("Expected deviation score 4.5, got %f", d.DeviationScore)
	}
}

func TestCompareDrift_EmptyBucketContributesNothing(t *testing.T) {
	baseline := Summary{VerticalCount: 2, AvgVerticalAngle: 90}
	candidate := Summary{VerticalCount: 0, HorizontalCount: 3, AvgHorizontalAngle: 5}

	d := CompareDrift(baseline, candidate)
	if d.DeviationScore != 0 {
		t.Errorf("Expected zero deviation when no bucket has lines on both sides, got %f", d.DeviationScore)
	}
}

func TestStabilityScore(t *testing.T) {
	cases := []struct {
		deviation float64
		expected  float64
	}{
		{0, 1.0},
		{5, 0.75},
		{20, 0},
		{40, 0},
	}
	for _, tc := range cases {
		score := Drift{DeviationScore: tc.deviation}.StabilityScore()
		if math.Abs(score-tc.expected) > 1e-9 {
			t.Errorf("Deviation %f: expected score %f, got %f", tc.deviation, tc.expected, score)
		}
	}
}

func TestAnalyze_FindsStructuralLines(t *testing.T) {
	// Bright vertical stripe on dark background produces two vertical edges
	gray := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 40; x < 60; x++ {
			gray.Pix[y*gray.Stride+x] = 255
		}
	}

	opts := DefaultOptions()
	opts.VoteThreshold = 60
	summary := Analyze(gray, opts)
	if summary.VerticalCount == 0 {
		t.Error("Expected vertical lines from the stripe edges")
	}
	if summary.HorizontalCount != 0 {
		t.Errorf("Expected no horizontal lines, got %d", summary.HorizontalCount)
	}
}

func TestDownscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 400, 200))
	scaled := downscale(gray, 100)
	if scaled.Bounds().Dx() != 100 || scaled.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %dx%d", scaled.Bounds().Dx(), scaled.Bounds().Dy())
	}

	small := downscale(gray, 1000)
	if small != gray {
		t.Error("Expected image at or below the limit to pass through unchanged")
	}
}
