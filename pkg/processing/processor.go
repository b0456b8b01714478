package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/better-cover/pkg/cover"
	"github.com/menta2k/better-cover/pkg/types"
)

// Processor handles image loading, rendering and encoding
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "better-cover/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return p.decodeImageFromBytes(imageData)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// VisibleRegion returns the part of an image of 1x size `size` that ends up
// inside coverZone once tr is applied, in 1x image coordinates.
func VisibleRegion(size types.Size, tr types.Transform, coverZone types.Rectangle) types.Rectangle {
	if tr.Scale <= 0 {
		return types.Rectangle{}
	}
	x0 := cover.Clamp((coverZone.X-tr.X)/tr.Scale, 0, size.Width)
	y0 := cover.Clamp((coverZone.Y-tr.Y)/tr.Scale, 0, size.Height)
	x1 := cover.Clamp((coverZone.X+coverZone.Width-tr.X)/tr.Scale, 0, size.Width)
	y1 := cover.Clamp((coverZone.Y+coverZone.Height-tr.Y)/tr.Scale, 0, size.Height)
	return types.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Render applies tr to img and returns the cover zone as an image of
// coverZone's size multiplied by density. size is the image's 1x size; img
// itself may be any resolution of the same aspect ratio.
func (p *Processor) Render(img image.Image, size types.Size, tr types.Transform, coverZone types.Rectangle, density float64) (image.Image, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %gx%g", size.Width, size.Height)
	}
	if density <= 0 {
		density = 1
	}
	outW := int(math.Round(coverZone.Width * density))
	outH := int(math.Round(coverZone.Height * density))
	if outW <= 0 || outH <= 0 {
		return nil, fmt.Errorf("invalid cover zone %gx%g", coverZone.Width, coverZone.Height)
	}

	bounds := img.Bounds()
	px := float64(bounds.Dx()) / size.Width
	py := float64(bounds.Dy()) / size.Height

	visible := VisibleRegion(size, tr, coverZone)
	rect := image.Rect(
		bounds.Min.X+int(math.Floor(visible.X*px)),
		bounds.Min.Y+int(math.Floor(visible.Y*py)),
		bounds.Min.X+int(math.Ceil((visible.X+visible.Width)*px)),
		bounds.Min.Y+int(math.Ceil((visible.Y+visible.Height)*py)),
	).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("transform leaves no visible region")
	}

	cropped := imaging.Crop(img, rect)
	return imaging.Resize(cropped, outW, outH, imaging.Lanczos), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// Overlay colors
var (
	TargetColor = color.NRGBA{255, 204, 0, 255}
	FocusColor  = color.NRGBA{0, 255, 0, 255}
	CenterColor = color.NRGBA{255, 0, 0, 255}
)

// CreateDebugOverlay draws the target zone and the transformed focus zone
// over a rendered cover image. Both rectangles are in cover zone coordinates;
// density maps them to pixels.
func (p *Processor) CreateDebugOverlay(img image.Image, targetZone, focusZone types.Rectangle, density float64) image.Image {
	if density <= 0 {
		density = 1
	}
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	stroke := int(math.Max(2, 0.004*float64(min(w, h)))) // ~0.4% of min side
	cross := int(math.Max(4, 0.01*float64(min(w, h))))   // ~1% of min side

	drawBox(nrgba, scaleRect(targetZone, density), TargetColor, stroke)
	drawBox(nrgba, scaleRect(focusZone, density), FocusColor, stroke)

	// Target zone midpoint
	cx, cy := targetZone.Center()
	ix, iy := int(cx*density+0.5), int(cy*density+0.5)
	drawHLine(nrgba, iy, ix-cross, ix+cross, CenterColor)
	drawVLine(nrgba, ix, iy-cross, iy+cross, CenterColor)

	return nrgba
}

func scaleRect(r types.Rectangle, f float64) image.Rectangle {
	x0 := int(math.Round(r.X * f))
	y0 := int(math.Round(r.Y * f))
	x1 := int(math.Round((r.X + r.Width) * f))
	y1 := int(math.Round((r.Y + r.Height) * f))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1)
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
