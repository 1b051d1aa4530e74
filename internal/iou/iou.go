// Package iou computes intersection-over-union between binary edge maps
// under several masking strategies. All strategies share one contract:
// Value is nil when the union is empty, never coerced to 0 — an IoU of 0
// would wrongly signal total disagreement between two blank maps.
package iou

import "go-structural-validator/internal/imaging"

// Result holds one IoU computation. MaskPixels is populated only by the
// masked strategies so callers can detect a mask too small to be
// statistically meaningful.
type Result struct {
	Value        *float64 `json:"value"`
	Intersection int      `json:"intersection"`
	Union        int      `json:"union"`
	MaskPixels   int      `json:"mask_pixels,omitempty"`
}

func ratio(intersection, union int) *float64 {
	if union == 0 {
		return nil
	}
	v := float64(intersection) / float64(union)
	return &v
}

// Global computes IoU over the full bitmap
func Global(a, b *imaging.Bitmap) Result {
	var intersection, union int
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			av, bv := a.Get(x, y), b.Get(x, y)
			if av && bv {
				intersection++
			}
			if av || bv {
				union++
			}
		}
	}
	return Result{Value: ratio(intersection, union), Intersection: intersection, Union: union}
}

// Masked computes IoU restricted to pixels where mask is set
func Masked(a, b, mask *imaging.Bitmap) Result {
	var intersection, union, maskPixels int
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			if !mask.Get(x, y) {
				continue
			}
			maskPixels++
			av, bv := a.Get(x, y), b.Get(x, y)
			if av && bv {
				intersection++
			}
			if av || bv {
				union++
			}
		}
	}
	return Result{Value: ratio(intersection, union), Intersection: intersection, Union: union, MaskPixels: maskPixels}
}

// ExcludeLowerRegion computes global IoU while ignoring the bottom
// excludePct fraction of rows. Staging comparisons use this to skip
// furniture-heavy floor regions.
func ExcludeLowerRegion(a, b *imaging.Bitmap, excludePct float64) Result {
	if excludePct < 0 {
		excludePct = 0
	}
	if excludePct > 1 {
		excludePct = 1
	}
	cutoff := a.Height - int(float64(a.Height)*excludePct)

	var intersection, union int
	for y := 0; y < cutoff; y++ {
		for x := 0; x < a.Width; x++ {
			av, bv := a.Get(x, y), b.Get(x, y)
			if av && bv {
				intersection++
			}
			if av || bv {
				union++
			}
		}
	}
	return Result{Value: ratio(intersection, union), Intersection: intersection, Union: union}
}

// StructureOnly computes masked IoU against a dilated copy of the
// structural mask, so edges immediately adjacent to structural elements
// count as well.
func StructureOnly(a, b, mask *imaging.Bitmap) Result {
	return Masked(a, b, imaging.Dilate3x3(mask))
}
