package types

// Size is the width and height of an image or zone
type Size struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Rectangle is a positioned Size. Coordinates are relative to the zone
// the rectangle lives in.
type Rectangle struct {
	X      float64 `json:"x" toml:"x"`
	Y      float64 `json:"y" toml:"y"`
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Size returns the rectangle's dimensions
func (r Rectangle) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Contains reports whether o lies inside r, allowing eps of slack on every edge
func (r Rectangle) Contains(o Rectangle, eps float64) bool {
	return o.X >= r.X-eps &&
		o.Y >= r.Y-eps &&
		o.X+o.Width <= r.X+r.Width+eps &&
		o.Y+o.Height <= r.Y+r.Height+eps
}

// Center returns the midpoint of the rectangle
func (r Rectangle) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Transform scales an image uniformly by Scale and moves its top-left
// corner to (X, Y) in the cover zone's coordinate space.
type Transform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Apply maps a rectangle in image space into cover zone space
func (t Transform) Apply(r Rectangle) Rectangle {
	return Rectangle{
		X:      t.X + r.X*t.Scale,
		Y:      t.Y + r.Y*t.Scale,
		Width:  r.Width * t.Scale,
		Height: r.Height * t.Scale,
	}
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ToRectangle converts a normalized box into a rectangle in a w x h space
func (b Box) ToRectangle(w, h float64) Rectangle {
	return Rectangle{X: b.X * w, Y: b.Y * h, Width: b.W * w, Height: b.H * h}
}

// Primary represents the primary subject detected in an image
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult contains the complete analysis result from the vision model
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Orientation of a screen. Square screens are portrait.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Screen describes the viewport a picture is displayed in
type Screen struct {
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	DPR    float64     `json:"dpr"`
	Orient Orientation `json:"orientation"`
}

// NewScreen builds a Screen and derives its orientation. A zero dpr is
// treated as 1.
func NewScreen(width, height, dpr float64) Screen {
	if dpr <= 0 {
		dpr = 1
	}
	orient := Landscape
	if height >= width {
		orient = Portrait
	}
	return Screen{Width: width, Height: height, DPR: dpr, Orient: orient}
}
