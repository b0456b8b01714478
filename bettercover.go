// Package bettercover lays out responsive pictures so that the important
// part of each image stays visible.
//
// A Picture is a list of candidate sources, each with its 1x size and a focus
// zone, displayed inside a cover zone. The Engine picks the source that
// applies to the current screen and computes the transform that covers the
// cover zone while keeping the focus zone inside the target zone.
//
// Basic usage:
//
//	engine := bettercover.New()
//	screen := types.NewScreen(390, 844, 3)
//	layout, err := engine.Layout(bettercover.Picture{
//		Sources: []source.Source{
//			{
//				Src:       "portrait.jpg",
//				Media:     "(orientation: portrait)",
//				Size:      types.Size{Width: 1000, Height: 1500},
//				FocusZone: &types.Rectangle{X: 300, Y: 200, Width: 400, Height: 500},
//			},
//			{
//				Src:       "wide.jpg",
//				Size:      types.Size{Width: 1600, Height: 900},
//				FocusZone: &types.Rectangle{X: 700, Y: 200, Width: 300, Height: 400},
//			},
//		},
//		CoverZone:  types.Rectangle{Width: 390, Height: 300},
//		TargetZone: types.Rectangle{X: 20, Y: 20, Width: 350, Height: 260},
//	}, &screen)
//
// Sources without a focus zone can be completed with a detection.FocusDetector
// (a vision model through pkg/ollama or pkg/llamacpp, or the local saliency
// detector in pkg/vision) and rendered with Engine.Render.
package bettercover

import (
	"context"
	"fmt"
	"image"

	"github.com/charmbracelet/log"

	"github.com/menta2k/better-cover/pkg/cover"
	"github.com/menta2k/better-cover/pkg/detection"
	"github.com/menta2k/better-cover/pkg/processing"
	"github.com/menta2k/better-cover/pkg/source"
	"github.com/menta2k/better-cover/pkg/types"
)

// Version of the better-cover library
const Version = "1.0.0"

// Picture is a set of candidate sources shown inside CoverZone
type Picture struct {
	Sources []source.Source `json:"sources" toml:"sources"`
	// Src is used when no source is valid.
	Src string `json:"src,omitempty" toml:"src"`
	Alt string `json:"alt,omitempty" toml:"alt"`
	// CoverZone is the container the image must always fill.
	CoverZone types.Rectangle `json:"coverZone" toml:"cover_zone"`
	// TargetZone is where the focus zone should land, in the same space.
	TargetZone types.Rectangle `json:"targetZone" toml:"target_zone"`
}

// Layout is the outcome of laying out a Picture on a screen
type Layout struct {
	// Index of the active source in Picture.Sources, -1 for the fallback.
	Index     int            `json:"index"`
	Source    *source.Source `json:"source,omitempty"`
	Src       string         `json:"src"`
	Alt       string         `json:"alt,omitempty"`
	Transform *cover.Result  `json:"transform,omitempty"`
}

// Engine computes layouts and renders cover images
type Engine struct {
	search    cover.SearchOptions
	logger    *log.Logger
	detector  detection.FocusDetector
	processor *processing.Processor
}

// Option configures an Engine
type Option func(*Engine)

// WithSearchOptions sets the scale search parameters of the solver
func WithSearchOptions(opts cover.SearchOptions) Option {
	return func(e *Engine) { e.search = opts }
}

// WithLogger sets the logger that receives source diagnostics
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDetector sets the detector used for sources without a focus zone
func WithDetector(d detection.FocusDetector) Option {
	return func(e *Engine) { e.detector = d }
}

// New creates an Engine with default search options
func New(opts ...Option) *Engine {
	e := &Engine{
		search:    cover.DefaultSearchOptions(),
		logger:    log.Default(),
		processor: processing.NewProcessor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Solve computes the transform for one image
func (e *Engine) Solve(coverZone, targetZone types.Rectangle, size types.Size, focusZone types.Rectangle) cover.Result {
	return cover.SolveWithOptions(e.search, coverZone, targetZone, size.Width, size.Height, focusZone)
}

// Layout selects the active source of p for screen and solves its transform.
// A nil screen selects the first valid source. When no source is valid the
// layout falls back to p.Src, or fails with source.ErrNoValidSources if p
// has none.
func (e *Engine) Layout(p Picture, screen *types.Screen) (Layout, error) {
	valid := source.Filter(e.logger, p.Sources)

	active, ok := source.Active(valid, screen)
	if !ok {
		if p.Src == "" {
			return Layout{Index: -1}, source.ErrNoValidSources
		}
		return Layout{Index: -1, Src: p.Src, Alt: p.Alt}, nil
	}

	s := valid[active]
	res := e.Solve(p.CoverZone, p.TargetZone, s.Size, *s.FocusZone)

	alt := p.Alt
	if s.Alt != "" {
		alt = s.Alt
	}
	src := s.Src
	if src == "" {
		src = p.Src
	}

	return Layout{
		Index:     originalIndex(p.Sources, active),
		Source:    &s,
		Src:       src,
		Alt:       alt,
		Transform: &res,
	}, nil
}

// originalIndex maps the nth valid source back to its position in sources
func originalIndex(sources []source.Source, nth int) int {
	for i, s := range sources {
		if s.Validate() != nil {
			continue
		}
		if nth == 0 {
			return i
		}
		nth--
	}
	return -1
}

// FocusZone returns the focus zone of src, asking the detector when src has
// none. size is the 1x size img corresponds to.
func (e *Engine) FocusZone(ctx context.Context, img image.Image, size types.Size, src source.Source) (types.Rectangle, error) {
	if src.FocusZone != nil {
		return *src.FocusZone, nil
	}
	if e.detector == nil {
		return types.Rectangle{}, source.ErrMissingFocusZone
	}

	zone, err := e.detector.DetectFocusZone(ctx, img, size)
	if err != nil {
		return types.Rectangle{}, fmt.Errorf("focus detection failed: %w", err)
	}
	e.logger.Debug("focus zone detected", "src", src.Src, "zone", zone)
	return zone, nil
}

// RenderOptions control Engine.Render
type RenderOptions struct {
	// Density multiplies the output size, 2 renders a 2x image.
	Density float64
	// Debug draws the target zone and the placed focus zone on the output.
	Debug bool
}

// Rendered is a cover image with the values that produced it
type Rendered struct {
	Image     image.Image
	Size      types.Size
	FocusZone types.Rectangle
	Result    cover.Result
}

// Render places img inside coverZone and returns the visible part. A zero
// src.Size is taken from the image bounds.
func (e *Engine) Render(ctx context.Context, img image.Image, src source.Source, coverZone, targetZone types.Rectangle, opts RenderOptions) (Rendered, error) {
	size := src.Size
	if size == (types.Size{}) {
		b := img.Bounds()
		size = types.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}

	focus, err := e.FocusZone(ctx, img, size, src)
	if err != nil {
		return Rendered{}, err
	}

	src.Size = size
	src.FocusZone = &focus
	if err := src.Validate(); err != nil {
		return Rendered{}, fmt.Errorf("invalid source: %w", err)
	}

	res := e.Solve(coverZone, targetZone, size, focus)
	out, err := e.processor.Render(img, size, res.Transform, coverZone, opts.Density)
	if err != nil {
		return Rendered{}, fmt.Errorf("render failed: %w", err)
	}

	if opts.Debug {
		placed := res.Apply(focus)
		placed.X -= coverZone.X
		placed.Y -= coverZone.Y
		target := targetZone
		target.X -= coverZone.X
		target.Y -= coverZone.Y
		out = e.processor.CreateDebugOverlay(out, target, placed, opts.Density)
	}

	return Rendered{Image: out, Size: size, FocusZone: focus, Result: res}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
