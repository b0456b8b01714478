package cover

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		expected  float64
	}{
		{"inside", 5, 0, 10, 5},
		{"below", -3, 0, 10, 0},
		{"above", 12, 0, 10, 10},
		{"degenerate range", 4, 2, 2, 2},
		{"inverted range prefers max", 4, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clamp(tt.v, tt.lo, tt.hi))
		})
	}
}

func TestIntervalEmpty(t *testing.T) {
	assert.False(t, Interval{Min: 0, Max: 0}.Empty())
	assert.False(t, Interval{Min: -1, Max: 1}.Empty())
	assert.True(t, Interval{Min: 1, Max: -1}.Empty())
	assert.True(t, Interval{Min: math.NaN(), Max: 1}.Empty())
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Interval
		preferred float64
		expected  float64
		ok        bool
	}{
		{"preferred inside overlap", Interval{0, 10}, Interval{5, 15}, 7, 7, true},
		{"preferred left of overlap", Interval{0, 10}, Interval{5, 15}, 1, 5, true},
		{"preferred right of overlap", Interval{0, 10}, Interval{5, 15}, 20, 10, true},
		{"touching bounds", Interval{0, 5}, Interval{5, 15}, 0, 5, true},
		{"disjoint", Interval{0, 4}, Interval{5, 15}, 0, 0, false},
		{"nested", Interval{-100, 100}, Interval{-1, 1}, 50, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Intersect(tt.a, tt.b, tt.preferred)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}
