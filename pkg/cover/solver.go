// Package cover computes the scale and translation that make an image cover
// a container while keeping a focus zone of the image inside a target zone.
//
// It is object-fit: cover with a content-aware constraint. The image must
// always cover the cover zone. Within that, the solver looks for the smallest
// scale at which the focus zone, scaled, can be placed inside the target zone,
// and picks the translation closest to a centered placement.
//
// On an axis where the scaled focus zone is larger than the target zone, the
// two midpoints are aligned instead, so the focus zone overflows the target
// zone evenly on both sides. When no scale satisfies every axis, the result
// is the plain centered cover fit.
//
// All functions are pure and safe for concurrent use.
package cover

import (
	"math"

	"github.com/menta2k/better-cover/pkg/types"
)

// Result is a Transform together with how it was reached
type Result struct {
	types.Transform
	// MinCoverScale is the smallest scale at which the image covers the
	// cover zone.
	MinCoverScale float64 `json:"minCoverScale"`
	// Feasible is false when containment was abandoned and the centered
	// cover fit was returned.
	Feasible bool `json:"feasible"`
}

// MinCoverScale returns the smallest uniform scale at which an image of
// size imageW x imageH covers a zone of size coverW x coverH.
func MinCoverScale(coverW, coverH, imageW, imageH float64) float64 {
	return math.Max(coverW/imageW, coverH/imageH)
}

// axis holds one dimension of the problem
type axis struct {
	coverPos, coverLen   float64
	targetPos, targetLen float64
	focusPos, focusLen   float64
	imageLen             float64
}

// bounds returns the translations at scale s for which the image still
// spans the cover zone on this axis
func (a axis) bounds(s float64) Interval {
	// s never drops below the minimum cover scale, so Min only exceeds Max
	// through rounding.
	return Interval{Min: math.Min(a.coverPos+a.coverLen-a.imageLen*s, a.coverPos), Max: a.coverPos}
}

// centered is the translation that centers the scaled image on the cover zone
func (a axis) centered(s float64) float64 {
	return a.coverPos + (a.coverLen-a.imageLen*s)/2
}

// resolve returns the translation on this axis at scale s, or false if no
// translation keeps the cover zone covered.
func (a axis) resolve(s float64) (float64, bool) {
	cover := a.bounds(s)

	if a.focusLen*s <= a.targetLen {
		focus := Interval{
			Min: a.targetPos - a.focusPos*s,
			Max: a.targetPos + a.targetLen - (a.focusPos+a.focusLen)*s,
		}
		return Intersect(cover, focus, a.centered(s))
	}

	t := a.targetPos + a.targetLen/2 - (a.focusPos+a.focusLen/2)*s
	if !cover.Contains(t) {
		return 0, false
	}
	return t, true
}

// Solve returns the transform for the given zones using the default search
// bounds. See SolveWithOptions.
func Solve(coverZone, targetZone types.Rectangle, imageW, imageH float64, focusZone types.Rectangle) types.Transform {
	return SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, imageW, imageH, focusZone).Transform
}

// SolveWithOptions computes the transform of an imageW x imageH image so that
// it covers coverZone and, where possible, places focusZone (in image
// coordinates) inside targetZone (in cover zone coordinates).
//
// Image and cover zone dimensions must be positive. For any other input the
// result is the identity placement at the cover zone origin.
func SolveWithOptions(opts SearchOptions, coverZone, targetZone types.Rectangle, imageW, imageH float64, focusZone types.Rectangle) Result {
	if !positive(imageW) || !positive(imageH) || !positive(coverZone.Width) || !positive(coverZone.Height) {
		return Result{Transform: types.Transform{X: coverZone.X, Y: coverZone.Y, Scale: 1}}
	}

	x, y := splitAxes(coverZone, targetZone, imageW, imageH, focusZone)
	minScale := MinCoverScale(coverZone.Width, coverZone.Height, imageW, imageH)
	feasible := func(s float64) bool {
		_, okX := x.resolve(s)
		_, okY := y.resolve(s)
		return okX && okY
	}

	scale, found := MinimalScale(minScale, feasible, opts)
	if found {
		tx, okX := x.resolve(scale)
		ty, okY := y.resolve(scale)
		if okX && okY {
			return Result{
				Transform:     types.Transform{X: tx, Y: ty, Scale: scale},
				MinCoverScale: minScale,
				Feasible:      true,
			}
		}
	}

	bx, by := x.bounds(minScale), y.bounds(minScale)
	return Result{
		Transform: types.Transform{
			X:     Clamp(x.centered(minScale), bx.Min, bx.Max),
			Y:     Clamp(y.centered(minScale), by.Min, by.Max),
			Scale: minScale,
		},
		MinCoverScale: minScale,
	}
}

// splitAxes separates the problem into its horizontal and vertical parts
func splitAxes(coverZone, targetZone types.Rectangle, imageW, imageH float64, focusZone types.Rectangle) (x, y axis) {
	x = axis{
		coverPos: coverZone.X, coverLen: coverZone.Width,
		targetPos: targetZone.X, targetLen: targetZone.Width,
		focusPos: focusZone.X, focusLen: focusZone.Width,
		imageLen: imageW,
	}
	y = axis{
		coverPos: coverZone.Y, coverLen: coverZone.Height,
		targetPos: targetZone.Y, targetLen: targetZone.Height,
		focusPos: focusZone.Y, focusLen: focusZone.Height,
		imageLen: imageH,
	}
	return x, y
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
