package imaging

// Dilate3x3 performs a single-pass 3x3 morphological dilation: a pixel is
// set in the output when any pixel in its 3x3 neighborhood is set in the
// input. The input is not modified.
func Dilate3x3(src *Bitmap) *Bitmap {
	out := NewBitmap(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if !src.Get(x, y) {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					out.Set(x+dx, y+dy)
				}
			}
		}
	}
	return out
}
