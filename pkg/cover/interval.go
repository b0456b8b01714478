package cover

import "math"

// Interval is a closed range [Min, Max]. An interval with Min > Max (or a
// NaN bound) is empty.
type Interval struct {
	Min float64
	Max float64
}

// Empty reports whether the interval contains no values
func (i Interval) Empty() bool {
	return !(i.Min <= i.Max)
}

// Intersect returns the overlap of two intervals, which may be empty
func (i Interval) Intersect(o Interval) Interval {
	return Interval{Min: math.Max(i.Min, o.Min), Max: math.Min(i.Max, o.Max)}
}

// Contains reports whether v lies inside the interval
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// Clamp limits value to [lo, hi]. When lo > hi the result is hi.
func Clamp(value, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, value))
}

// Intersect overlaps a and b and returns the value of the overlap nearest
// to preferred. ok is false when the intervals do not overlap.
func Intersect(a, b Interval, preferred float64) (value float64, ok bool) {
	in := a.Intersect(b)
	if in.Empty() {
		return 0, false
	}
	return Clamp(preferred, in.Min, in.Max), true
}
