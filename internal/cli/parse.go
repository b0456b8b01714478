package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menta2k/better-cover/pkg/types"
)

// parseNumbers splits s on commas or an "x" and parses each part
func parseNumbers(s string) ([]float64, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ',' || r == 'x'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in %q", f, s)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseSize parses "W,H" or "WxH"
func parseSize(s string) (types.Size, error) {
	n, err := parseNumbers(s)
	if err != nil {
		return types.Size{}, err
	}
	if len(n) != 2 {
		return types.Size{}, fmt.Errorf("size %q: want W,H", s)
	}
	return types.Size{Width: n[0], Height: n[1]}, nil
}

// parseRect parses "X,Y,W,H", or "W,H" for a rectangle at the origin
func parseRect(s string) (types.Rectangle, error) {
	n, err := parseNumbers(s)
	if err != nil {
		return types.Rectangle{}, err
	}
	switch len(n) {
	case 2:
		return types.Rectangle{Width: n[0], Height: n[1]}, nil
	case 4:
		return types.Rectangle{X: n[0], Y: n[1], Width: n[2], Height: n[3]}, nil
	default:
		return types.Rectangle{}, fmt.Errorf("rectangle %q: want X,Y,W,H or W,H", s)
	}
}

// optionalRect parses s unless it is empty
func optionalRect(s string) (*types.Rectangle, error) {
	if s == "" {
		return nil, nil
	}
	r, err := parseRect(s)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
