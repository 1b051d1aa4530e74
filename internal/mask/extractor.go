// Package mask produces and caches binary masks marking structurally fixed
// pixels: walls, window and door frames, and other openings. Extraction is
// a pluggable strategy; the default is a run-length heuristic over the edge
// map, but a learned segmentation service can be dropped in behind the same
// interface.
package mask

import (
	"context"
	"image"

	"go-structural-validator/internal/imaging"
)

// StructuralMask marks fixed-architecture pixels for one image. Dimensions
// always match the source image; a mismatch invalidates any cache entry.
type StructuralMask struct {
	Width  int
	Height int
	Data   *imaging.Bitmap
}

// Coverage returns the fraction of image area the mask covers
func (m *StructuralMask) Coverage() float64 {
	area := m.Width * m.Height
	if area == 0 {
		return 0
	}
	return float64(m.Data.Count()) / float64(area)
}

// Extractor computes a structural mask for an image
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (*StructuralMask, error)
}

// HeuristicExtractor approximates fixed structure by keeping edge pixels
// that belong to long, gap-tolerant horizontal or vertical runs. Furniture
// and decor edges are short and oblique; wall corners, frames and sills
// produce the long axis-aligned runs this keeps.
type HeuristicExtractor struct {
	SobelThreshold float64
	// MinRunFraction is the minimum run length as a fraction of the image
	// dimension the run spans.
	MinRunFraction float64
	// MaxGap is the number of unset pixels a run may bridge
	MaxGap int
}

// NewHeuristicExtractor returns an extractor with tuned defaults
func NewHeuristicExtractor(sobelThreshold float64) *HeuristicExtractor {
	return &HeuristicExtractor{
		SobelThreshold: sobelThreshold,
		MinRunFraction: 0.05,
		MaxGap:         4,
	}
}

// Extract computes the structural mask for an image
func (e *HeuristicExtractor) Extract(ctx context.Context, img image.Image) (*StructuralMask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := imaging.ToGray(img)
	edges := imaging.SobelBinary(gray, e.SobelThreshold)
	width, height := edges.Width, edges.Height

	structural := imaging.NewBitmap(width, height)

	minHorizontal := int(float64(width) * e.MinRunFraction)
	for y := 0; y < height; y++ {
		markRuns(structural, edges, y, width, minHorizontal, e.MaxGap, true)
	}

	minVertical := int(float64(height) * e.MinRunFraction)
	for x := 0; x < width; x++ {
		markRuns(structural, edges, x, height, minVertical, e.MaxGap, false)
	}

	return &StructuralMask{
		Width:  width,
		Height: height,
		Data:   imaging.Dilate3x3(structural),
	}, nil
}

// markRuns scans one row (horizontal=true, fixed=y) or column (fixed=x) for
// gap-tolerant runs of set edge pixels and marks runs of at least minLen.
func markRuns(dst, edges *imaging.Bitmap, fixed, length, minLen, maxGap int, horizontal bool) {
	get := func(i int) bool {
		if horizontal {
			return edges.Get(i, fixed)
		}
		return edges.Get(fixed, i)
	}
	set := func(i int) {
		if horizontal {
			dst.Set(i, fixed)
		} else {
			dst.Set(fixed, i)
		}
	}

	runStart := -1
	gap := 0
	lastSet := -1
	for i := 0; i <= length; i++ {
		on := i < length && get(i)
		switch {
		case on:
			if runStart < 0 {
				runStart = i
			}
			lastSet = i
			gap = 0
		case runStart >= 0:
			gap++
			if gap > maxGap || i == length {
				if lastSet-runStart+1 >= minLen {
					for j := runStart; j <= lastSet; j++ {
						set(j)
					}
				}
				runStart = -1
				gap = 0
			}
		}
	}
}
