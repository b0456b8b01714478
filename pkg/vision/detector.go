package vision

import (
	"context"
	"errors"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/better-cover/pkg/types"
)

var (
	// ErrImageTooSmall is returned when no analysis window fits the image
	ErrImageTooSmall = errors.New("image too small for saliency detection")
	// ErrFlatImage is returned when nothing stands out of the image
	ErrFlatImage = errors.New("image has no salient region")
)

// SubjectDetector finds the visually dominant region of an image without a
// model, from local edge strength and contrast against the mean brightness
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	// MaxDim is the longest side the image is reduced to before analysis.
	MaxDim          int
	EdgeWeight      float64
	ContrastWeight  float64
	MinSubjectRatio float64
	// WindowFractions are square window sides relative to the shorter side.
	WindowFractions []float64
	// TopRegions overlapping the best one are merged into the focus zone.
	TopRegions int
	// Padding grows the merged zone by this fraction of its size on each side.
	// A negative value disables padding.
	Padding float64
}

// DefaultConfig returns the configuration used by New
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		MaxDim:          256,
		EdgeWeight:      0.7,
		ContrastWeight:  0.3,
		MinSubjectRatio: 0.02,
		WindowFractions: []float64{1.0 / 4, 1.0 / 3, 1.0 / 2},
		TopRegions:      3,
		Padding:         0.05,
	}
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new SubjectDetector with custom configuration.
// Zero fields take their default values.
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	def := DefaultConfig()
	if config.MaxDim <= 0 {
		config.MaxDim = def.MaxDim
	}
	if config.EdgeWeight == 0 && config.ContrastWeight == 0 {
		config.EdgeWeight, config.ContrastWeight = def.EdgeWeight, def.ContrastWeight
	}
	if len(config.WindowFractions) == 0 {
		config.WindowFractions = def.WindowFractions
	}
	if config.TopRegions <= 0 {
		config.TopRegions = def.TopRegions
	}
	if config.MinSubjectRatio <= 0 {
		config.MinSubjectRatio = def.MinSubjectRatio
	}
	switch {
	case config.Padding == 0:
		config.Padding = def.Padding
	case config.Padding < 0:
		config.Padding = 0
	}
	return &SubjectDetector{config: config}
}

// Region represents a rectangular region of interest in analysis pixels
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Overlaps reports whether r and o share any pixel
func (r Region) Overlaps(o Region) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Union returns the smallest region containing r and o
func (r Region) Union(o Region) Region {
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1 := max(r.X+r.Width, o.X+o.Width)
	y1 := max(r.Y+r.Height, o.Y+o.Height)
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: max(r.Score, o.Score)}
}

// DetectFocusZone returns the salient zone of img in the coordinate space of
// size. The context is accepted for parity with model based detectors.
func (d *SubjectDetector) DetectFocusZone(ctx context.Context, img image.Image, size types.Size) (types.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return types.Rectangle{}, err
	}

	gray := d.prepare(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	regions, err := d.detectRegions(gray)
	if err != nil {
		return types.Rectangle{}, err
	}
	zone := d.merge(regions, w, h)

	sx := size.Width / float64(w)
	sy := size.Height / float64(h)
	return types.Rectangle{
		X:      float64(zone.X) * sx,
		Y:      float64(zone.Y) * sy,
		Width:  float64(zone.Width) * sx,
		Height: float64(zone.Height) * sy,
	}, nil
}

// DetectSubjects returns candidate regions sorted by descending score, in the
// pixel space of the analysed (possibly downsampled) image
func (d *SubjectDetector) DetectSubjects(img image.Image) ([]Region, error) {
	return d.detectRegions(d.prepare(img))
}

// prepare downsamples img to MaxDim and converts it to grayscale
func (d *SubjectDetector) prepare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); longest > d.config.MaxDim {
		if w >= h {
			img = imaging.Resize(img, d.config.MaxDim, 0, imaging.Box)
		} else {
			img = imaging.Resize(img, 0, d.config.MaxDim, imaging.Box)
		}
	}
	return imaging.Grayscale(img)
}

func (d *SubjectDetector) detectRegions(gray *image.NRGBA) ([]Region, error) {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, ErrImageTooSmall
	}

	saliency := d.calculateSaliencyMap(gray)
	integral := buildIntegral(saliency, w, h)

	regions := d.findImportantRegions(integral, w, h)
	if len(regions) == 0 {
		return nil, ErrImageTooSmall
	}
	regions = d.filterAndScoreRegions(regions, w, h)
	if len(regions) == 0 {
		return nil, ErrImageTooSmall
	}
	if regions[0].Score <= 0 {
		return nil, ErrFlatImage
	}
	return regions, nil
}

func (d *SubjectDetector) calculateSaliencyMap(gray *image.NRGBA) []float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	value := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	var mean float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mean += value(x, y)
		}
	}
	mean /= float64(w * h)

	neighbors := [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	saliency := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := value(x, y)

			var edge float64
			n := 0
			for _, off := range neighbors {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				edge += math.Abs(g - value(nx, ny))
				n++
			}
			if n > 0 {
				edge /= float64(n) * 255
			}

			contrast := math.Abs(g-mean) / 255
			saliency[y*w+x] = d.config.EdgeWeight*edge + d.config.ContrastWeight*contrast
		}
	}
	return saliency
}

// buildIntegral returns the summed-area table of m with a zero first row and column
func buildIntegral(m []float64, w, h int) []float64 {
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += m[y*w+x]
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + row
		}
	}
	return sum
}

func (d *SubjectDetector) findImportantRegions(integral []float64, width, height int) []Region {
	var regions []Region
	stride := width + 1
	shorter := min(width, height)

	for _, frac := range d.config.WindowFractions {
		ws := int(frac * float64(shorter))
		if ws < 4 {
			continue
		}
		step := max(1, ws/8)
		area := float64(ws * ws)

		for y := 0; y+ws <= height; y += step {
			for x := 0; x+ws <= width; x += step {
				total := integral[(y+ws)*stride+x+ws] - integral[y*stride+x+ws] -
					integral[(y+ws)*stride+x] + integral[y*stride+x]
				regions = append(regions, Region{X: x, Y: y, Width: ws, Height: ws, Score: total / area})
			}
		}
	}
	return regions
}

func (d *SubjectDetector) filterAndScoreRegions(regions []Region, imageWidth, imageHeight int) []Region {
	minArea := int(float64(imageWidth*imageHeight) * d.config.MinSubjectRatio)

	filtered := regions[:0]
	for _, region := range regions {
		if region.Area() >= minArea {
			filtered = append(filtered, region)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered
}

// merge unions the best region with the next best ones that overlap it,
// then pads the result inside the image bounds
func (d *SubjectDetector) merge(regions []Region, width, height int) Region {
	zone := regions[0]
	taken := 1
	for _, r := range regions[1:] {
		if taken >= d.config.TopRegions {
			break
		}
		if r.Overlaps(zone) {
			zone = zone.Union(r)
			taken++
		}
	}

	padX := int(math.Round(float64(zone.Width) * d.config.Padding))
	padY := int(math.Round(float64(zone.Height) * d.config.Padding))
	x0 := max(0, zone.X-padX)
	y0 := max(0, zone.Y-padY)
	x1 := min(width, zone.X+zone.Width+padX)
	y1 := min(height, zone.Y+zone.Height+padY)
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: zone.Score}
}
