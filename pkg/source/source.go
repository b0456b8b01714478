// Package source describes the candidate images of a picture and picks the
// one that applies to the current screen.
package source

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/menta2k/better-cover/pkg/types"
)

// Validation errors
var (
	ErrMissingSize      = errors.New("missing size")
	ErrMissingFocusZone = errors.New("missing focus zone")
	ErrInvalidSize      = errors.New("size must have positive width and height")
	ErrNegativePosition = errors.New("focus zone position must not be negative")
	ErrInvalidFocusSize = errors.New("focus zone width and height must be positive")
	ErrFocusOutOfBounds = errors.New("focus zone exceeds size boundaries")
	ErrWidthDescriptor  = errors.New("srcset must not contain width descriptors")
	ErrNoValidSources   = errors.New("no valid sources")
)

// widthDescriptor matches srcset width descriptors such as "img.jpg 800w"
var widthDescriptor = regexp.MustCompile(`\s\d+w(,|\s|$)`)

// Source is one candidate image of a picture. Every image in SrcSet must
// share the aspect ratio of Size.
type Source struct {
	Src    string `json:"src,omitempty" toml:"src"`
	SrcSet string `json:"srcSet,omitempty" toml:"srcset"`
	Type   string `json:"type,omitempty" toml:"type"`
	// Media is the condition under which the source applies. Empty always
	// applies.
	Media string `json:"media,omitempty" toml:"media"`
	// Size of the image at 1x resolution.
	Size types.Size `json:"size" toml:"size"`
	// FocusZone in the image's 1x pixel space.
	FocusZone *types.Rectangle `json:"focusZone,omitempty" toml:"focus_zone"`
	// Alt overrides the picture's alternative text while this source is active.
	Alt string `json:"alt,omitempty" toml:"alt"`
}

// Validate checks that the source can be handed to the solver
func (s Source) Validate() error {
	if s.Size == (types.Size{}) {
		return ErrMissingSize
	}
	if s.FocusZone == nil {
		return ErrMissingFocusZone
	}
	if s.Size.Width <= 0 || s.Size.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrInvalidSize, s.Size.Width, s.Size.Height)
	}
	fz := *s.FocusZone
	if fz.X < 0 || fz.Y < 0 {
		return fmt.Errorf("%w: (%g, %g)", ErrNegativePosition, fz.X, fz.Y)
	}
	if fz.Width <= 0 || fz.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrInvalidFocusSize, fz.Width, fz.Height)
	}
	if fz.X+fz.Width > s.Size.Width || fz.Y+fz.Height > s.Size.Height {
		return fmt.Errorf("%w: focus %+v, size %gx%g", ErrFocusOutOfBounds, fz, s.Size.Width, s.Size.Height)
	}
	if widthDescriptor.MatchString(s.SrcSet) {
		return fmt.Errorf("%w: %q", ErrWidthDescriptor, s.SrcSet)
	}
	return nil
}

// Filter returns the valid sources in their original order. Each rejected
// source is reported to logger; a nil logger uses log.Default().
func Filter(logger *log.Logger, sources []Source) []Source {
	if logger == nil {
		logger = log.Default()
	}
	valid := make([]Source, 0, len(sources))
	for i, s := range sources {
		if err := s.Validate(); err != nil {
			logger.Warn("source rejected", "index", i, "src", s.Src, "err", err)
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 && len(sources) > 0 {
		logger.Error("no valid sources provided", "count", len(sources))
	}
	return valid
}

// Active returns the index of the first source whose media condition
// matches screen, or 0 when none does. A nil screen selects the first
// source. ok is false only when sources is empty.
//
// A media condition that cannot be parsed never matches.
func Active(sources []Source, screen *types.Screen) (index int, ok bool) {
	if len(sources) == 0 {
		return 0, false
	}
	if screen == nil {
		return 0, true
	}
	for i, s := range sources {
		mq, err := ParseMedia(s.Media)
		if err != nil {
			continue
		}
		if mq.Matches(*screen) {
			return i, true
		}
	}
	return 0, true
}
