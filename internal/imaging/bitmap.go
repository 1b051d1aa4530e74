package imaging

import "math/bits"

// Bitmap is a packed binary pixel map. Edge maps and structural masks are
// both represented this way so the IoU strategies can operate on either.
type Bitmap struct {
	Width  int
	Height int
	words  []uint64
}

// NewBitmap creates an all-zero bitmap of the given dimensions
func NewBitmap(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Bitmap{
		Width:  width,
		Height: height,
		words:  make([]uint64, (width*height+63)/64),
	}
}

// Get reports whether the pixel at (x, y) is set. Out-of-range coordinates
// read as unset.
func (b *Bitmap) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	idx := y*b.Width + x
	return b.words[idx>>6]&(1<<(uint(idx)&63)) != 0
}

// Set marks the pixel at (x, y). Out-of-range coordinates are ignored.
func (b *Bitmap) Set(x, y int) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	idx := y*b.Width + x
	b.words[idx>>6] |= 1 << (uint(idx) & 63)
}

// Count returns the number of set pixels
func (b *Bitmap) Count() int {
	total := 0
	for _, w := range b.words {
		total += bits.OnesCount64(w)
	}
	return total
}

// SameSize reports whether two bitmaps have identical dimensions
func (b *Bitmap) SameSize(other *Bitmap) bool {
	return other != nil && b.Width == other.Width && b.Height == other.Height
}

// Clone returns an independent copy of the bitmap
func (b *Bitmap) Clone() *Bitmap {
	out := &Bitmap{
		Width:  b.Width,
		Height: b.Height,
		words:  make([]uint64, len(b.words)),
	}
	copy(out.words, b.words)
	return out
}
