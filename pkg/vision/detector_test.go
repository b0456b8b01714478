package vision

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/better-cover/pkg/types"
)

// createCheckerImage creates a flat gray image with a 1px checkerboard patch
func createCheckerImage(width, height int, patch image.Rectangle) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{128, 128, 128, 255}
			if (image.Point{X: x, Y: y}).In(patch) {
				if (x+y)%2 == 0 {
					c = color.NRGBA{0, 0, 0, 255}
				} else {
					c = color.NRGBA{255, 255, 255, 255}
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}

	if detector.config.MaxDim != 256 {
		t.Errorf("Expected max dim 256, got %d", detector.config.MaxDim)
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	detector := NewWithConfig(DetectionConfig{MinSubjectRatio: 0.1})

	if detector.config.MinSubjectRatio != 0.1 {
		t.Errorf("Expected min subject ratio 0.1, got %f", detector.config.MinSubjectRatio)
	}
	if detector.config.TopRegions != 3 {
		t.Errorf("Expected default top regions 3, got %d", detector.config.TopRegions)
	}
	if len(detector.config.WindowFractions) != 3 {
		t.Errorf("Expected default window fractions, got %v", detector.config.WindowFractions)
	}
}

func TestNewWithConfigFillsZeroFields(t *testing.T) {
	def := DefaultConfig()

	detector := NewWithConfig(DetectionConfig{})
	if detector.config.Padding != def.Padding {
		t.Errorf("Expected default padding %f, got %f", def.Padding, detector.config.Padding)
	}
	if detector.config.MinSubjectRatio != def.MinSubjectRatio {
		t.Errorf("Expected default min subject ratio %f, got %f", def.MinSubjectRatio, detector.config.MinSubjectRatio)
	}
	if detector.config.EdgeWeight != def.EdgeWeight || detector.config.ContrastWeight != def.ContrastWeight {
		t.Errorf("Expected default weights, got %f/%f", detector.config.EdgeWeight, detector.config.ContrastWeight)
	}

	detector = NewWithConfig(DetectionConfig{Padding: -1})
	if detector.config.Padding != 0 {
		t.Errorf("Expected negative padding to disable padding, got %f", detector.config.Padding)
	}

	detector = NewWithConfig(DetectionConfig{Padding: 0.2})
	if detector.config.Padding != 0.2 {
		t.Errorf("Expected padding 0.2, got %f", detector.config.Padding)
	}
}

func TestRegionGeometry(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}

	centerX, centerY := region.Center()
	if centerX != 60 || centerY != 60 {
		t.Errorf("Expected center (60, 60), got (%d, %d)", centerX, centerY)
	}
	if region.Area() != 8000 {
		t.Errorf("Expected area 8000, got %d", region.Area())
	}

	other := Region{X: 100, Y: 90, Width: 20, Height: 20}
	if !region.Overlaps(other) {
		t.Error("Expected regions to overlap")
	}
	if region.Overlaps(Region{X: 110, Y: 20, Width: 5, Height: 5}) {
		t.Error("Touching regions should not overlap")
	}

	union := region.Union(other)
	want := Region{X: 10, Y: 20, Width: 110, Height: 90}
	if union != want {
		t.Errorf("Expected union %+v, got %+v", want, union)
	}
}

func TestDetectFocusZoneFindsPatch(t *testing.T) {
	patch := image.Rect(120, 60, 180, 100)
	img := createCheckerImage(200, 120, patch)

	tests := []struct {
		name  string
		size  types.Size
		scale float64
	}{
		{"1x", types.Size{Width: 200, Height: 120}, 1},
		{"image is 2x asset", types.Size{Width: 100, Height: 60}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, err := New().DetectFocusZone(context.Background(), img, tt.size)
			if err != nil {
				t.Fatalf("DetectFocusZone failed: %v", err)
			}

			cx, cy := zone.Center()
			minX, maxX := float64(patch.Min.X)*tt.scale, float64(patch.Max.X)*tt.scale
			minY, maxY := float64(patch.Min.Y)*tt.scale, float64(patch.Max.Y)*tt.scale
			if cx < minX || cx > maxX || cy < minY || cy > maxY {
				t.Errorf("Zone center (%.1f, %.1f) outside patch, zone %+v", cx, cy, zone)
			}
			if zone.X < 0 || zone.Y < 0 ||
				zone.X+zone.Width > tt.size.Width+1e-9 || zone.Y+zone.Height > tt.size.Height+1e-9 {
				t.Errorf("Zone %+v extends outside image %+v", zone, tt.size)
			}
		})
	}
}

func TestDetectFocusZoneDownsamples(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1000, 600))
	square := image.Rect(600, 150, 900, 450)
	for y := 0; y < 600; y++ {
		for x := 0; x < 1000; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if (image.Point{X: x, Y: y}).In(square) {
				c = color.NRGBA{0, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	zone, err := New().DetectFocusZone(context.Background(), img, types.Size{Width: 1000, Height: 600})
	if err != nil {
		t.Fatalf("DetectFocusZone failed: %v", err)
	}

	cx, cy := zone.Center()
	if cx < 600 || cx > 900 || cy < 150 || cy > 450 {
		t.Errorf("Zone center (%.1f, %.1f) outside square, zone %+v", cx, cy, zone)
	}
}

func TestDetectFocusZoneErrors(t *testing.T) {
	detector := New()
	size := types.Size{Width: 100, Height: 100}

	flat := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	if _, err := detector.DetectFocusZone(context.Background(), flat, size); !errors.Is(err, ErrFlatImage) {
		t.Errorf("Expected ErrFlatImage, got %v", err)
	}

	tiny := createCheckerImage(6, 6, image.Rect(0, 0, 3, 3))
	if _, err := detector.DetectFocusZone(context.Background(), tiny, size); !errors.Is(err, ErrImageTooSmall) {
		t.Errorf("Expected ErrImageTooSmall, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := detector.DetectFocusZone(ctx, flat, size); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDetectSubjectsSorted(t *testing.T) {
	img := createCheckerImage(200, 120, image.Rect(20, 20, 60, 60))

	regions, err := New().DetectSubjects(img)
	if err != nil {
		t.Fatalf("DetectSubjects failed: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("Expected to detect at least one region")
	}

	for i, region := range regions {
		if region.Width <= 0 || region.Height <= 0 {
			t.Errorf("Region %d has invalid dimensions: %dx%d", i, region.Width, region.Height)
		}
		if i > 0 && regions[i-1].Score < region.Score {
			t.Fatalf("Regions not sorted at %d: %f < %f", i, regions[i-1].Score, region.Score)
		}
	}
}

func TestCalculateSaliencyMap(t *testing.T) {
	detector := New()
	gray := detector.prepare(createCheckerImage(10, 10, image.Rect(4, 4, 6, 6)))

	saliency := detector.calculateSaliencyMap(gray)
	if len(saliency) != 100 {
		t.Fatalf("Expected 100 saliency values, got %d", len(saliency))
	}
	if saliency[0] != saliency[9] {
		t.Errorf("Expected equal background corners, got %f and %f", saliency[0], saliency[9])
	}
	if saliency[4*10+4] <= saliency[0] {
		t.Errorf("Expected patch to be more salient than background")
	}
}

func BenchmarkDetectFocusZone(b *testing.B) {
	detector := New()
	img := createCheckerImage(800, 600, image.Rect(300, 200, 500, 400))
	size := types.Size{Width: 800, Height: 600}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = detector.DetectFocusZone(context.Background(), img, size)
	}
}
