package imaging

import (
	"image"
	"math"
)

// SobelBinary computes a binary edge map from a grayscale image. For each
// interior pixel it applies the 3x3 Sobel kernels, takes the gradient
// magnitude sqrt(gx^2+gy^2), and sets the output bit when the magnitude
// exceeds threshold.
//
// The 1-pixel border is always unset. Downstream comparisons depend on
// that exact behavior; do not special-case border pixels.
func SobelBinary(gray *image.Gray, threshold float64) *Bitmap {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := NewBitmap(width, height)

	if width < 3 || height < 3 {
		return out
	}

	at := func(x, y int) int {
		return int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
	}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := -1*at(x-1, y-1) + 1*at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-1*at(x-1, y+1) + 1*at(x+1, y+1)

			gy := -1*at(x-1, y-1) - 2*at(x, y-1) - 1*at(x+1, y-1) +
				1*at(x-1, y+1) + 2*at(x, y+1) + 1*at(x+1, y+1)

			magnitude := math.Sqrt(float64(gx*gx + gy*gy))
			if magnitude > threshold {
				out.Set(x, y)
			}
		}
	}

	return out
}
