package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/menta2k/better-cover/pkg/client"
	"github.com/menta2k/better-cover/pkg/cover"
	"github.com/menta2k/better-cover/pkg/processing"
	"github.com/menta2k/better-cover/pkg/types"
)

// DefaultPrompt asks the model for the box of the dominant subject
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels), origin top-left.
- The box must tightly include everything that has to stay visible when the image is cropped: the visually dominant subject (prefer people/vehicles/animals; else the most salient object), including heads and faces completely.
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {
    "primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},
    "description":"no distinct subject",
    "tags":["scene"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrNoSubject is returned when the model found nothing worth focusing on
var ErrNoSubject = errors.New("no subject detected")

// FocusDetector finds the focus zone of an image. The zone is returned in
// the coordinate space of size, the image's 1x dimensions.
type FocusDetector interface {
	DetectFocusZone(ctx context.Context, img image.Image, size types.Size) (types.Rectangle, error)
}

// Options configure how images are sent to the model
type Options struct {
	Model       string
	Prompt      string
	SendFormat  string
	SendSize    int
	SendQuality int
	// MinConfidence below which a detection is treated as no subject.
	// Zero uses the default.
	MinConfidence float64
}

// DefaultOptions returns the options used by NewDetector
func DefaultOptions() Options {
	return Options{
		Model:         "openbmb/minicpm-v4.5",
		Prompt:        DefaultPrompt,
		SendFormat:    "jpg",
		SendSize:      1536,
		SendQuality:   85,
		MinConfidence: 0.2,
	}
}

// Detector locates focus zones with a vision model
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	opts      Options
	logger    *log.Logger
}

// NewDetector creates a new detector with a vision client. Zero options
// take their values from DefaultOptions, except SendSize where zero sends
// the image at full size.
func NewDetector(c client.VisionClient, opts Options, logger *log.Logger) *Detector {
	def := DefaultOptions()
	if opts.Model == "" {
		opts.Model = def.Model
	}
	if opts.Prompt == "" {
		opts.Prompt = def.Prompt
	}
	if opts.SendFormat == "" {
		opts.SendFormat = def.SendFormat
	}
	if opts.SendQuality <= 0 {
		opts.SendQuality = def.SendQuality
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = def.MinConfidence
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{
		client:    c,
		processor: processing.NewProcessor(),
		opts:      opts,
		logger:    logger,
	}
}

// DetectSubject sends img to the model and returns its cleaned-up answer
func (d *Detector) DetectSubject(ctx context.Context, img image.Image) (*types.AnalysisResult, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.opts.SendFormat, d.opts.SendSize, d.opts.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for model: %w", err)
	}

	result, err := d.client.AnalyzeImage(ctx, d.opts.Model, d.opts.Prompt, imgB64)
	if err != nil {
		return nil, err
	}

	result.Primary.Box = normalizeBox(result.Primary.Box)
	result.Tags = normalizeTags(result.Tags)
	return markFallback(result), nil
}

// DetectFocusZone returns the model's subject box scaled to size
func (d *Detector) DetectFocusZone(ctx context.Context, img image.Image, size types.Size) (types.Rectangle, error) {
	result, err := d.DetectSubject(ctx, img)
	if err != nil {
		return types.Rectangle{}, err
	}

	d.logger.Debug("subject detected",
		"label", result.Primary.Label,
		"confidence", result.Primary.Confidence,
		"box", result.Primary.Box,
		"description", result.Description,
		"tags", result.Tags)

	if result.Primary.Label == "none" || result.Primary.Confidence < d.opts.MinConfidence {
		return types.Rectangle{}, ErrNoSubject
	}
	box := result.Primary.Box
	if box.W <= 0 || box.H <= 0 {
		return types.Rectangle{}, fmt.Errorf("%w: empty box", ErrNoSubject)
	}
	return box.ToRectangle(size.Width, size.Height), nil
}

// markFallback relabels results the model or the client flagged as guesses
func markFallback(result *types.AnalysisResult) *types.AnalysisResult {
	if strings.ToLower(result.Primary.Label) == "none" {
		result.Primary.Label = "none"
		return result
	}

	fallbackIndicators := []string{"unclear", "empty", "parse", "error", "fallback", "no json"}
	label := strings.ToLower(result.Primary.Label)
	for _, indicator := range fallbackIndicators {
		if strings.Contains(label, indicator) || containsTag(result.Tags, indicator) {
			result.Primary.Label = "none"
			result.Primary.Confidence = 0.0
			break
		}
	}
	return result
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// normalizeBox keeps the box inside the unit square
func normalizeBox(b types.Box) types.Box {
	x := cover.Clamp(b.X, 0, 1)
	y := cover.Clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: cover.Clamp(b.W, 0, 1-x),
		H: cover.Clamp(b.H, 0, 1-y),
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
