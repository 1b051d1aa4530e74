package mask

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"go-structural-validator/internal/imaging"
)

// roomImage draws a bright frame of long wall-like lines plus a small
// furniture-sized square on a dark background.
func roomImage(width, height int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, width, height))
	drawHLine := func(y, x0, x1 int) {
		for x := x0; x <= x1; x++ {
			gray.Pix[y*gray.Stride+x] = 255
		}
	}
	drawVLine := func(x, y0, y1 int) {
		for y := y0; y <= y1; y++ {
			gray.Pix[y*gray.Stride+x] = 255
		}
	}
	drawHLine(10, 5, width-6)
	drawHLine(height-10, 5, width-6)
	drawVLine(10, 5, height-6)
	drawVLine(width-10, 5, height-6)
	// Small square, too short to qualify as structure
	for y := height / 2; y < height/2+3; y++ {
		for x := width / 2; x < width/2+3; x++ {
			gray.Pix[y*gray.Stride+x] = 255
		}
	}
	return gray
}

func TestHeuristicExtractor_KeepsLongRuns(t *testing.T) {
	extractor := NewHeuristicExtractor(100)
	m, err := extractor.Extract(context.Background(), roomImage(100, 100))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if m.Width != 100 || m.Height != 100 {
		t.Errorf("Expected 100x100 mask, got %dx%d", m.Width, m.Height)
	}
	if m.Data.Count() == 0 {
		t.Fatal("Expected the wall lines to be kept")
	}
	// The long horizontal line at y=10 produces edges at y=9 and y=11;
	// dilation widens them to cover y=10 as well.
	if !m.Data.Get(50, 10) {
		t.Error("Expected the wall line at y=10 covered by the mask")
	}
	if m.Coverage() <= 0 || m.Coverage() >= 0.5 {
		t.Errorf("Expected sparse coverage, got %f", m.Coverage())
	}
}

func TestHeuristicExtractor_DropsShortRuns(t *testing.T) {
	// Only the furniture-sized square, no long runs
	gray := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 50; y < 53; y++ {
		for x := 50; x < 53; x++ {
			gray.Pix[y*gray.Stride+x] = 255
		}
	}

	extractor := NewHeuristicExtractor(100)
	m, err := extractor.Extract(context.Background(), gray)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if m.Data.Count() != 0 {
		t.Errorf("Expected short runs rejected, got %d mask pixels", m.Data.Count())
	}
}

func TestHeuristicExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := NewHeuristicExtractor(100)
	if _, err := extractor.Extract(ctx, roomImage(50, 50)); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestMarkRuns_BridgesSmallGaps(t *testing.T) {
	edges := imaging.NewBitmap(40, 1)
	for x := 0; x < 40; x++ {
		if x != 20 && x != 21 {
			edges.Set(x, 0)
		}
	}

	dst := imaging.NewBitmap(40, 1)
	markRuns(dst, edges, 0, 40, 10, 4, true)
	if !dst.Get(0, 0) || !dst.Get(39, 0) {
		t.Error("Expected the gap-bridged run marked end to end")
	}
	if !dst.Get(20, 0) {
		t.Error("Expected the bridged gap itself marked")
	}
}

func TestMarkRuns_SplitsOnLargeGaps(t *testing.T) {
	edges := imaging.NewBitmap(40, 1)
	for x := 0; x < 8; x++ {
		edges.Set(x, 0)
	}
	for x := 25; x < 40; x++ {
		edges.Set(x, 0)
	}

	dst := imaging.NewBitmap(40, 1)
	markRuns(dst, edges, 0, 40, 10, 4, true)
	if dst.Get(0, 0) {
		t.Error("Expected the 8-pixel run rejected as too short")
	}
	if !dst.Get(30, 0) {
		t.Error("Expected the 15-pixel run kept")
	}
}

// stubExtractor counts calls and returns a fixed-size mask
type stubExtractor struct {
	calls int
	fail  bool
	size  int
}

func (s *stubExtractor) Extract(ctx context.Context, img image.Image) (*StructuralMask, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("segmentation backend unavailable")
	}
	size := s.size
	if size == 0 {
		bounds := img.Bounds()
		return &StructuralMask{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Data:   imaging.NewBitmap(bounds.Dx(), bounds.Dy()),
		}, nil
	}
	return &StructuralMask{Width: size, Height: size, Data: imaging.NewBitmap(size, size)}, nil
}

func testImage(size int) image.Image {
	return image.NewGray(image.Rect(0, 0, size, size))
}

func TestCache_HitSkipsRecomputation(t *testing.T) {
	extractor := &stubExtractor{}
	cache := NewCache(extractor, time.Minute, time.Minute)
	key := Key{JobID: "job-1", Side: SideBaseline}

	if _, err := cache.LoadOrCompute(context.Background(), key, "/a.jpg", testImage(32)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := cache.LoadOrCompute(context.Background(), key, "/a.jpg", testImage(32)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if extractor.calls != 1 {
		t.Errorf("Expected one extraction, got %d", extractor.calls)
	}
}

func TestCache_PathChangeEvicts(t *testing.T) {
	extractor := &stubExtractor{}
	cache := NewCache(extractor, time.Minute, time.Minute)
	key := Key{JobID: "job-1", Side: SideCandidate}

	cache.LoadOrCompute(context.Background(), key, "/a.jpg", testImage(32))
	cache.LoadOrCompute(context.Background(), key, "/b.jpg", testImage(32))
	if extractor.calls != 2 {
		t.Errorf("Expected recomputation after path change, got %d calls", extractor.calls)
	}
}

func TestCache_DimensionChangeEvicts(t *testing.T) {
	extractor := &stubExtractor{}
	cache := NewCache(extractor, time.Minute, time.Minute)
	key := Key{JobID: "job-1", Side: SideBaseline}

	cache.LoadOrCompute(context.Background(), key, "/a.jpg", testImage(32))
	cache.LoadOrCompute(context.Background(), key, "/a.jpg", testImage(64))
	if extractor.calls != 2 {
		t.Errorf("Expected recomputation after dimension change, got %d calls", extractor.calls)
	}
}

func TestCache_SidesAreIndependent(t *testing.T) {
	extractor := &stubExtractor{}
	cache := NewCache(extractor, time.Minute, time.Minute)

	cache.LoadOrCompute(context.Background(), Key{JobID: "job-1", Side: SideBaseline}, "/a.jpg", testImage(32))
	cache.LoadOrCompute(context.Background(), Key{JobID: "job-1", Side: SideCandidate}, "/a.jpg", testImage(32))
	if extractor.calls != 2 {
		t.Errorf("Expected separate entries per side, got %d calls", extractor.calls)
	}
}

func TestCache_ExtractionErrorPropagates(t *testing.T) {
	cache := NewCache(&stubExtractor{fail: true}, time.Minute, time.Minute)
	if _, err := cache.LoadOrCompute(context.Background(), Key{JobID: "job-1", Side: SideBaseline}, "/a.jpg", testImage(32)); err == nil {
		t.Error("Expected extraction error to propagate")
	}
}

func TestCache_RejectsDimensionMismatchFromExtractor(t *testing.T) {
	cache := NewCache(&stubExtractor{size: 16}, time.Minute, time.Minute)
	if _, err := cache.LoadOrCompute(context.Background(), Key{JobID: "job-1", Side: SideBaseline}, "/a.jpg", testImage(32)); err == nil {
		t.Error("Expected error when mask dimensions disagree with the image")
	}
}

func TestStructuralMask_Coverage(t *testing.T) {
	data := imaging.NewBitmap(10, 10)
	data.Set(0, 0)
	data.Set(1, 1)
	m := &StructuralMask{Width: 10, Height: 10, Data: data}
	if got := m.Coverage(); got != 0.02 {
		t.Errorf("Expected coverage 0.02, got %f", got)
	}

	empty := &StructuralMask{Data: imaging.NewBitmap(0, 0)}
	if empty.Coverage() != 0 {
		t.Error("Expected zero coverage for zero-area mask")
	}
}
