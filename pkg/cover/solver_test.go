package cover

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/better-cover/pkg/types"
)

const eps = 1e-6

func rect(x, y, w, h float64) types.Rectangle {
	return types.Rectangle{X: x, Y: y, Width: w, Height: h}
}

// assertCovers checks that the transformed image spans the whole cover zone
func assertCovers(t *testing.T, coverZone types.Rectangle, imageW, imageH float64, tr types.Transform) {
	t.Helper()
	img := tr.Apply(rect(0, 0, imageW, imageH))
	tol := eps * (1 + img.Width + img.Height)
	assert.True(t, img.Contains(coverZone, tol), "image %+v does not cover %+v", img, coverZone)
}

func TestSolveWholeImageFocus(t *testing.T) {
	coverZone := rect(0, 0, 1000, 1000)
	tr := Solve(coverZone, coverZone, 500, 500, rect(0, 0, 500, 500))

	assert.Equal(t, types.Transform{X: 0, Y: 0, Scale: 2}, tr)
}

func TestSolveFocusFitsAtMinimumScale(t *testing.T) {
	coverZone := rect(0, 0, 800, 600)
	targetZone := rect(300, 200, 200, 200)
	focusZone := rect(700, 500, 200, 200)

	res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, 1600, 1200, focusZone)

	assert.True(t, res.Feasible)
	assert.Equal(t, 0.5, res.MinCoverScale)
	assert.Equal(t, 0.5, res.Scale)
	assert.True(t, targetZone.Contains(res.Apply(focusZone), eps))
	assertCovers(t, coverZone, 1600, 1200, res.Transform)
}

func TestSolvePrefersCenteredPlacement(t *testing.T) {
	coverZone := rect(0, 0, 400, 300)
	// Same aspect as the cover zone, centered in the image.
	focusZone := rect(400, 150, 800, 600)

	tr := Solve(coverZone, coverZone, 1600, 900, focusZone)

	minScale := MinCoverScale(400, 300, 1600, 900)
	assert.InDelta(t, minScale, tr.Scale, eps)
	assert.InDelta(t, (400-1600*minScale)/2, tr.X, eps)
	assert.InDelta(t, (300-900*minScale)/2, tr.Y, eps)
}

func TestSolveGrowsScaleForContainment(t *testing.T) {
	coverZone := rect(0, 0, 100, 100)
	// Focus sits in the middle of the image, target is the top-left corner.
	targetZone := rect(0, 0, 30, 30)
	focusZone := rect(40, 40, 10, 10)

	res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, 100, 100, focusZone)

	require.True(t, res.Feasible)
	assert.Equal(t, 1.0, res.MinCoverScale)
	assert.InDelta(t, 1.4, res.Scale, eps)
	assert.InDelta(t, -40, res.X, 1e-4)
	assert.InDelta(t, -40, res.Y, 1e-4)
	assert.True(t, targetZone.Contains(res.Apply(focusZone), 1e-4))
	assertCovers(t, coverZone, 100, 100, res.Transform)
}

func TestSolveMidpointAlignment(t *testing.T) {
	coverZone := rect(0, 0, 100, 100)
	targetZone := rect(50, 50, 50, 50)
	focusZone := rect(0, 0, 10, 10)

	res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, 100, 100, focusZone)

	require.True(t, res.Feasible)
	// Containment is impossible while the focus zone fits, and once it
	// overflows the midpoint alignment only lands inside the cover bounds
	// from scale 15 on.
	assert.InDelta(t, 15, res.Scale, eps)

	focus := res.Apply(focusZone)
	fx, fy := focus.Center()
	tx, ty := targetZone.Center()
	assert.InDelta(t, tx, fx, 1e-4)
	assert.InDelta(t, ty, fy, 1e-4)
	assertCovers(t, coverZone, 100, 100, res.Transform)
}

func TestSolveOversizedFocusAtMinimumScale(t *testing.T) {
	coverZone := rect(0, 0, 1000, 500)
	targetZone := rect(250, 0, 500, 500)
	// Focus spans the full image width; scaled it is twice as wide as the
	// target, so X is midpoint aligned while Y is contained.
	focusZone := rect(0, 100, 2000, 100)

	res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, 2000, 1000, focusZone)

	require.True(t, res.Feasible)
	assert.Equal(t, 0.5, res.Scale)
	assert.InDelta(t, 0, res.X, eps)
	assert.InDelta(t, 0, res.Y, eps)

	focus := res.Apply(focusZone)
	leftOverflow := targetZone.X - focus.X
	rightOverflow := focus.X + focus.Width - (targetZone.X + targetZone.Width)
	assert.InDelta(t, 250, leftOverflow, eps)
	assert.InDelta(t, leftOverflow, rightOverflow, eps)
	assert.GreaterOrEqual(t, focus.Y, targetZone.Y)
	assert.LessOrEqual(t, focus.Y+focus.Height, targetZone.Y+targetZone.Height)
}

func TestSolveFallsBackToCenteredCover(t *testing.T) {
	coverZone := rect(0, 0, 100, 100)
	// The target starts right of the cover zone, so a fitting focus zone
	// can never be moved into it without uncovering the left edge.
	targetZone := rect(10, 0, 1e12, 100)
	focusZone := rect(0, 0, 10, 100)

	res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, 100, 100, focusZone)

	assert.False(t, res.Feasible)
	assert.Equal(t, types.Transform{X: 0, Y: 0, Scale: 1}, res.Transform)
}

func TestSolveFallbackKeepsCover(t *testing.T) {
	coverZone := rect(0, 0, 300, 100)
	targetZone := rect(500, 0, 1e12, 100)
	focusZone := rect(0, 0, 10, 50)

	res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, 200, 200, focusZone)

	assert.False(t, res.Feasible)
	assert.Equal(t, 1.5, res.Scale)
	assert.Equal(t, 0.0, res.X)
	assert.Equal(t, -100.0, res.Y)
	assertCovers(t, coverZone, 200, 200, res.Transform)
}

func TestSolveOffsetCoverZone(t *testing.T) {
	coverZone := rect(20, 40, 200, 100)
	tr := Solve(coverZone, coverZone, 400, 400, rect(150, 150, 100, 100))

	assert.Equal(t, 0.5, tr.Scale)
	assert.InDelta(t, 20, tr.X, eps)
	assert.InDelta(t, 40-50, tr.Y, eps)
	assertCovers(t, coverZone, 400, 400, tr)
}

func TestSolveInvalidInput(t *testing.T) {
	focus := rect(0, 0, 10, 10)
	tests := []struct {
		name           string
		coverZone      types.Rectangle
		imageW, imageH float64
	}{
		{"zero image width", rect(0, 0, 100, 100), 0, 100},
		{"negative image height", rect(0, 0, 100, 100), 100, -1},
		{"zero cover width", rect(5, 6, 0, 100), 100, 100},
		{"NaN image width", rect(0, 0, 100, 100), math.NaN(), 100},
		{"infinite cover height", rect(0, 0, 100, math.Inf(1)), 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Solve(tt.coverZone, tt.coverZone, tt.imageW, tt.imageH, focus)
			assert.Equal(t, types.Transform{X: tt.coverZone.X, Y: tt.coverZone.Y, Scale: 1}, tr)
		})
	}
}

func TestSolveDegenerateZonesDoNotPanic(t *testing.T) {
	coverZone := rect(0, 0, 100, 100)
	zones := []types.Rectangle{
		rect(0, 0, 0, 0),
		rect(10, 10, -5, -5),
		rect(math.NaN(), 0, 10, 10),
		rect(-1e9, 1e9, 1, 1),
	}

	for _, target := range zones {
		for _, focus := range zones {
			tr := Solve(coverZone, target, 100, 100, focus)
			assert.False(t, math.IsNaN(tr.X) || math.IsNaN(tr.Y) || math.IsNaN(tr.Scale))
			assert.GreaterOrEqual(t, tr.Scale, 1.0)
			assertCovers(t, coverZone, 100, 100, tr)
		}
	}
}

func TestSolveRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	for i := 0; i < 500; i++ {
		coverW, coverH := between(10, 2000), between(10, 2000)
		coverZone := rect(0, 0, coverW, coverH)

		tw, th := between(1, coverW), between(1, coverH)
		targetZone := rect(between(0, coverW-tw), between(0, coverH-th), tw, th)

		imageW, imageH := between(10, 4000), between(10, 4000)
		fw, fh := between(1, imageW), between(1, imageH)
		focusZone := rect(between(0, imageW-fw), between(0, imageH-fh), fw, fh)

		res := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, imageW, imageH, focusZone)

		assert.GreaterOrEqual(t, res.Scale, res.MinCoverScale)
		assertCovers(t, coverZone, imageW, imageH, res.Transform)

		again := SolveWithOptions(DefaultSearchOptions(), coverZone, targetZone, imageW, imageH, focusZone)
		assert.Equal(t, res, again)

		if !res.Feasible {
			continue
		}
		if below := res.Scale - 10*DefaultSearchOptions().Tolerance; res.Scale > res.MinCoverScale && below >= res.MinCoverScale {
			x, y := splitAxes(coverZone, targetZone, imageW, imageH, focusZone)
			_, okX := x.resolve(below)
			_, okY := y.resolve(below)
			assert.False(t, okX && okY, "case %d: scale %g is feasible below %g", i, below, res.Scale)
		}
		focus := res.Apply(focusZone)
		if focus.Width <= targetZone.Width && focus.Height <= targetZone.Height {
			assert.True(t, targetZone.Contains(focus, eps*(1+focus.Width+focus.Height+math.Abs(res.X)+math.Abs(res.Y))),
				"case %d: focus %+v outside target %+v", i, focus, targetZone)
		}
		if focus.Width > targetZone.Width {
			fx, _ := focus.Center()
			tx, _ := targetZone.Center()
			assert.InDelta(t, tx, fx, eps*(1+math.Abs(tx)+focus.Width))
		}
	}
}
