// Package lines detects dominant straight lines in an edge map and compares
// their orientation between a baseline and a candidate image. Architectural
// features photograph as long vertical lines (walls, window and door frames)
// and horizontal lines (ceiling, floor, sills); a generative edit that bends
// or re-hangs those lines shifts the average angles.
package lines

import (
	"image"
	"math"
	"sort"

	"go-structural-validator/internal/imaging"

	"gonum.org/v1/gonum/stat"
)

// Line is one detected line in Hesse normal form plus its accumulator votes
type Line struct {
	Rho      int
	ThetaDeg int
	Votes    int
}

// Summary classifies the detected lines of one image
type Summary struct {
	Count              int       `json:"count"`
	VerticalCount      int       `json:"vertical_count"`
	HorizontalCount    int       `json:"horizontal_count"`
	VerticalAngles     []float64 `json:"vertical_angles"`
	HorizontalAngles   []float64 `json:"horizontal_angles"`
	AvgVerticalAngle   float64   `json:"avg_vertical_angle"`
	AvgHorizontalAngle float64   `json:"avg_horizontal_angle"`
}

// Drift is the angle shift between two summaries
type Drift struct {
	VerticalShift   float64 `json:"vertical_shift"`
	HorizontalShift float64 `json:"horizontal_shift"`
	DeviationScore  float64 `json:"deviation_score"`
}

// maxDeviationDeg caps the drift that maps to a zero stability score. A 20
// degree combined shift means the dominant line structure no longer
// resembles the baseline at all.
const maxDeviationDeg = 20.0

// StabilityScore maps the deviation onto [0,1], 1 meaning no drift. The
// per-stage LineEdgeMin threshold is compared against this value.
func (d Drift) StabilityScore() float64 {
	score := 1.0 - d.DeviationScore/maxDeviationDeg
	if score < 0 {
		return 0
	}
	return score
}

// Options tunes line detection
type Options struct {
	SobelThreshold float64
	// VoteThreshold is the minimum accumulator votes for a line; roughly
	// the line length in pixels that must agree on one (rho, theta).
	VoteThreshold int
	// MaxDimension downscales larger images before detection to bound the
	// accumulator size. Zero disables downscaling.
	MaxDimension int
	// MaxLines caps the number of peaks extracted from the accumulator
	MaxLines int
}

// DefaultOptions mirrors the parameters tuned for real estate photography
func DefaultOptions() Options {
	return Options{
		SobelThreshold: 100.0,
		VoteThreshold:  80,
		MaxDimension:   1920,
		MaxLines:       200,
	}
}

// Analyze detects and classifies lines in a grayscale image
func Analyze(gray *image.Gray, opts Options) Summary {
	scaled := downscale(gray, opts.MaxDimension)
	edges := imaging.SobelBinary(scaled, opts.SobelThreshold)
	detected := HoughLines(edges, opts.VoteThreshold, opts.MaxLines)
	return Classify(detected)
}

// downscale subsamples a grayscale image so its longest side is at most
// maxDim pixels. Line angles are scale-invariant so subsampling is safe
// here; the IoU paths never resize.
func downscale(gray *image.Gray, maxDim int) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if maxDim <= 0 || longest <= maxDim {
		return gray
	}

	scale := float64(maxDim) / float64(longest)
	newW := int(float64(width) * scale)
	newH := int(float64(height) * scale)
	out := image.NewGray(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + int(float64(y)/scale)
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + int(float64(x)/scale)
			out.SetGray(x, y, gray.GrayAt(srcX, srcY))
		}
	}
	return out
}

// HoughLines runs a standard Hough transform over an edge map and extracts
// up to maxLines peaks with at least voteThreshold votes. Neighboring cells
// of an accepted peak are suppressed so one physical line is not reported
// many times.
func HoughLines(edges *imaging.Bitmap, voteThreshold, maxLines int) []Line {
	width, height := edges.Width, edges.Height
	if width == 0 || height == 0 {
		return nil
	}

	rhoMax := int(math.Ceil(math.Sqrt(float64(width*width + height*height))))
	rhoBins := 2*rhoMax + 1
	accumulator := make([]int, 180*rhoBins)

	sinTable := make([]float64, 180)
	cosTable := make([]float64, 180)
	for t := 0; t < 180; t++ {
		rad := float64(t) * math.Pi / 180.0
		sinTable[t] = math.Sin(rad)
		cosTable[t] = math.Cos(rad)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges.Get(x, y) {
				continue
			}
			for t := 0; t < 180; t++ {
				rho := int(math.Round(float64(x)*cosTable[t] + float64(y)*sinTable[t]))
				accumulator[t*rhoBins+rho+rhoMax]++
			}
		}
	}

	var candidates []Line
	for t := 0; t < 180; t++ {
		for r := 0; r < rhoBins; r++ {
			votes := accumulator[t*rhoBins+r]
			if votes >= voteThreshold {
				candidates = append(candidates, Line{Rho: r - rhoMax, ThetaDeg: t, Votes: votes})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Votes > candidates[j].Votes })

	var lines []Line
	for _, c := range candidates {
		if maxLines > 0 && len(lines) >= maxLines {
			break
		}
		suppressed := false
		for _, accepted := range lines {
			if thetaDistance(c.ThetaDeg, accepted.ThetaDeg) < 5 && absInt(c.Rho-accepted.Rho) < 10 {
				suppressed = true
				break
			}
		}
		if !suppressed {
			lines = append(lines, c)
		}
	}
	return lines
}

// Classify splits lines into vertical and horizontal buckets by their
// direction angle. Vertical: 80-100 degrees. Horizontal: <=10 or >=170.
// Oblique lines are counted but not bucketed.
func Classify(detected []Line) Summary {
	summary := Summary{
		Count:            len(detected),
		VerticalAngles:   []float64{},
		HorizontalAngles: []float64{},
	}

	for _, line := range detected {
		// The line direction is perpendicular to its normal angle theta
		angle := math.Mod(float64(line.ThetaDeg)+90.0, 180.0)
		switch {
		case angle >= 80 && angle <= 100:
			summary.VerticalAngles = append(summary.VerticalAngles, angle)
		case angle <= 10 || angle >= 170:
			summary.HorizontalAngles = append(summary.HorizontalAngles, angle)
		}
	}

	summary.VerticalCount = len(summary.VerticalAngles)
	summary.HorizontalCount = len(summary.HorizontalAngles)
	if summary.VerticalCount > 0 {
		summary.AvgVerticalAngle = stat.Mean(summary.VerticalAngles, nil)
	}
	if summary.HorizontalCount > 0 {
		// Fold near-180 angles onto the 0 side so the mean is not pulled
		// across the wraparound.
		folded := make([]float64, len(summary.HorizontalAngles))
		for i, a := range summary.HorizontalAngles {
			if a >= 170 {
				a -= 180
			}
			folded[i] = a
		}
		summary.AvgHorizontalAngle = stat.Mean(folded, nil)
	}
	return summary
}

// CompareDrift measures the average-angle shift between a baseline and a
// candidate summary. A bucket contributes only when both sides detected
// lines in it; a bucket emptying out entirely is a different failure and
// reads as zero shift here.
func CompareDrift(baseline, candidate Summary) Drift {
	var d Drift
	if baseline.VerticalCount > 0 && candidate.VerticalCount > 0 {
		d.VerticalShift = math.Abs(candidate.AvgVerticalAngle - baseline.AvgVerticalAngle)
	}
	if baseline.HorizontalCount > 0 && candidate.HorizontalCount > 0 {
		d.HorizontalShift = math.Abs(candidate.AvgHorizontalAngle - baseline.AvgHorizontalAngle)
	}
	d.DeviationScore = d.VerticalShift + d.HorizontalShift
	return d
}

func thetaDistance(a, b int) int {
	d := absInt(a - b)
	if d > 90 {
		d = 180 - d
	}
	return d
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
