package imaging

import (
	"image"
	"testing"
)

// grayWithVerticalEdge returns a gray image that is dark on the left half
// and bright on the right half.
func grayWithVerticalEdge(width, height int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			value := uint8(20)
			if x >= width/2 {
				value = 230
			}
			gray.Pix[y*gray.Stride+x] = value
		}
	}
	return gray
}

func TestSobelBinary_UniformImageHasNoEdges(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}

	edges := SobelBinary(gray, 100)
	if count := edges.Count(); count != 0 {
		t.Errorf("Expected no edges in uniform image, got %d", count)
	}
}

func TestSobelBinary_DetectsVerticalEdge(t *testing.T) {
	edges := SobelBinary(grayWithVerticalEdge(32, 32), 100)
	if edges.Count() == 0 {
		t.Fatal("Expected edges at the brightness step")
	}

	// The step sits at x = width/2; edge pixels should cluster there
	found := false
	for y := 1; y < 31; y++ {
		if edges.Get(15, y) || edges.Get(16, y) {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected edge pixels adjacent to the brightness step")
	}
}

func TestSobelBinary_BorderAlwaysUnset(t *testing.T) {
	// A hard step right at the border must still leave border pixels unset
	edges := SobelBinary(grayWithVerticalEdge(32, 32), 1)

	for x := 0; x < 32; x++ {
		if edges.Get(x, 0) || edges.Get(x, 31) {
			t.Fatalf("Expected top/bottom border unset, found edge at x=%d", x)
		}
	}
	for y := 0; y < 32; y++ {
		if edges.Get(0, y) || edges.Get(31, y) {
			t.Fatalf("Expected left/right border unset, found edge at y=%d", y)
		}
	}
}

func TestSobelBinary_TinyImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	edges := SobelBinary(gray, 10)
	if edges.Count() != 0 {
		t.Error("Expected no edges for image smaller than the kernel")
	}
}

func TestDilate3x3_GrowsSinglePixel(t *testing.T) {
	src := NewBitmap(5, 5)
	src.Set(2, 2)

	dilated := Dilate3x3(src)
	if dilated.Count() != 9 {
		t.Errorf("Expected 3x3 block after dilation, got %d pixels", dilated.Count())
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if !dilated.Get(2+dx, 2+dy) {
				t.Errorf("Expected pixel (%d,%d) set after dilation", 2+dx, 2+dy)
			}
		}
	}
}

func TestDilate3x3_IsSuperset(t *testing.T) {
	src := NewBitmap(8, 8)
	src.Set(0, 0)
	src.Set(3, 4)
	src.Set(7, 7)

	dilated := Dilate3x3(src)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if src.Get(x, y) && !dilated.Get(x, y) {
				t.Errorf("Dilation dropped set pixel (%d,%d)", x, y)
			}
		}
	}
}

func TestBitmap_OutOfRange(t *testing.T) {
	b := NewBitmap(4, 4)
	b.Set(-1, 0)
	b.Set(0, -1)
	b.Set(4, 0)
	b.Set(0, 4)
	if b.Count() != 0 {
		t.Error("Out-of-range Set must be ignored")
	}
	if b.Get(-1, -1) || b.Get(4, 4) {
		t.Error("Out-of-range Get must read as unset")
	}
}

func TestBitmap_Clone(t *testing.T) {
	b := NewBitmap(4, 4)
	b.Set(1, 1)

	clone := b.Clone()
	clone.Set(2, 2)

	if b.Get(2, 2) {
		t.Error("Clone must not share storage with the original")
	}
	if !clone.Get(1, 1) {
		t.Error("Clone must copy existing pixels")
	}
}
