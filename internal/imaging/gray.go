package imaging

import (
	"image"
	"image/draw"
)

// ToGray converts any image to 8-bit grayscale using the standard library's
// luminance conversion.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
