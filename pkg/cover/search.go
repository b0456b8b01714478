package cover

// SearchOptions bound the scale search
type SearchOptions struct {
	// Growth is the multiplicative step used to bracket a feasible scale.
	Growth float64 `json:"growth" toml:"growth"`
	// GrowthRounds caps the number of bracketing steps.
	GrowthRounds int `json:"growth_rounds" toml:"growth_rounds"`
	// Tolerance is the bracket width at which bisection stops.
	Tolerance float64 `json:"tolerance" toml:"tolerance"`
	// MaxBisections caps the number of bisection steps.
	MaxBisections int `json:"max_bisections" toml:"max_bisections"`
}

// DefaultSearchOptions returns the standard search bounds
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Growth:        1.25,
		GrowthRounds:  80,
		Tolerance:     1e-7,
		MaxBisections: 90,
	}
}

// normalized replaces unusable fields with their defaults
func (o SearchOptions) normalized() SearchOptions {
	def := DefaultSearchOptions()
	if !(o.Growth > 1) {
		o.Growth = def.Growth
	}
	if o.GrowthRounds <= 0 {
		o.GrowthRounds = def.GrowthRounds
	}
	if !(o.Tolerance > 0) {
		o.Tolerance = def.Tolerance
	}
	if o.MaxBisections <= 0 {
		o.MaxBisections = def.MaxBisections
	}
	return o
}

// MinimalScale finds the smallest value at or above lo for which feasible
// holds. It first grows lo geometrically until a feasible value is
// bracketed, then bisects between the last infeasible and first feasible
// value. found is false when no feasible value was bracketed; the returned
// scale is then lo.
//
// lo must be positive and finite. feasible is called a bounded number of
// times and must be deterministic.
func MinimalScale(lo float64, feasible func(float64) bool, opts SearchOptions) (scale float64, found bool) {
	opts = opts.normalized()

	if feasible(lo) {
		return lo, true
	}

	bad, good := lo, lo
	for i := 0; i < opts.GrowthRounds; i++ {
		candidate := bad * opts.Growth
		if feasible(candidate) {
			good = candidate
			found = true
			break
		}
		bad = candidate
	}
	if !found {
		return lo, false
	}

	for i := 0; i < opts.MaxBisections && good-bad > opts.Tolerance; i++ {
		mid := bad + (good-bad)/2
		if feasible(mid) {
			good = mid
		} else {
			bad = mid
		}
	}
	return good, true
}
