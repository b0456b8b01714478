package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menta2k/better-cover/pkg/types"
)

// remPx is the pixel size of 1em/1rem in media queries
const remPx = 16

// MediaQuery is a parsed media query list. The list matches when any of its
// queries matches.
type MediaQuery struct {
	queries []query
}

type query struct {
	never    bool
	features []feature
}

type feature struct {
	name  string
	value float64
	text  string
	bare  bool
}

// ParseMedia parses a subset of CSS media queries:
//
//	(min-width: 600px) and (orientation: landscape), (min-resolution: 2dppx)
//
// Supported features are width, height, resolution (each with min-/max-
// prefixes) and orientation. Media types "all" and "screen" match, any other
// media type never does. An empty string matches every screen.
func ParseMedia(media string) (MediaQuery, error) {
	var mq MediaQuery
	if strings.TrimSpace(media) == "" {
		return mq, nil
	}
	for _, part := range strings.Split(media, ",") {
		q, err := parseQuery(strings.ToLower(strings.TrimSpace(part)))
		if err != nil {
			return MediaQuery{}, fmt.Errorf("media %q: %w", media, err)
		}
		mq.queries = append(mq.queries, q)
	}
	return mq, nil
}

func parseQuery(s string) (query, error) {
	var q query
	if s == "" {
		return q, fmt.Errorf("empty query")
	}
	for i, term := range strings.Split(s, " and ") {
		term = strings.TrimSpace(term)
		if !strings.HasPrefix(term, "(") {
			if i != 0 {
				return q, fmt.Errorf("unexpected term %q", term)
			}
			switch strings.TrimPrefix(term, "only ") {
			case "all", "screen":
			default:
				q.never = true
			}
			continue
		}
		if !strings.HasSuffix(term, ")") {
			return q, fmt.Errorf("unterminated feature %q", term)
		}
		f, err := parseFeature(strings.TrimSpace(term[1 : len(term)-1]))
		if err != nil {
			return q, err
		}
		q.features = append(q.features, f)
	}
	return q, nil
}

var numericFeatures = map[string]bool{
	"width": true, "min-width": true, "max-width": true,
	"height": true, "min-height": true, "max-height": true,
	"resolution": true, "min-resolution": true, "max-resolution": true,
}

func parseFeature(s string) (feature, error) {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok {
		return feature{name: name, bare: true}, nil
	}
	value = strings.TrimSpace(value)
	if !numericFeatures[name] {
		return feature{name: name, text: value}, nil
	}
	v, err := parseLength(value)
	if err != nil {
		return feature{}, fmt.Errorf("feature %q: %w", name, err)
	}
	return feature{name: name, value: v}, nil
}

// parseLength converts px, em, rem, dppx, x and dpi values into px (lengths)
// or dppx (resolutions). A bare number is taken as px.
func parseLength(s string) (float64, error) {
	units := []struct {
		suffix string
		factor float64
	}{
		{"dppx", 1},
		{"dpi", 1.0 / 96},
		{"rem", remPx},
		{"em", remPx},
		{"px", 1},
		{"x", 1},
	}
	factor := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSuffix(s, u.suffix)
			factor = u.factor
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v * factor, nil
}

// Matches reports whether the query list applies to screen
func (m MediaQuery) Matches(screen types.Screen) bool {
	if len(m.queries) == 0 {
		return true
	}
	for _, q := range m.queries {
		if q.matches(screen) {
			return true
		}
	}
	return false
}

func (q query) matches(screen types.Screen) bool {
	if q.never {
		return false
	}
	s := types.NewScreen(screen.Width, screen.Height, screen.DPR)
	for _, f := range q.features {
		if !f.matches(s) {
			return false
		}
	}
	return true
}

func (f feature) matches(s types.Screen) bool {
	if f.bare {
		switch f.name {
		case "width":
			return s.Width != 0
		case "height":
			return s.Height != 0
		case "resolution":
			return s.DPR != 0
		case "orientation":
			return true
		}
		return false
	}

	switch f.name {
	case "width":
		return s.Width == f.value
	case "min-width":
		return s.Width >= f.value
	case "max-width":
		return s.Width <= f.value
	case "height":
		return s.Height == f.value
	case "min-height":
		return s.Height >= f.value
	case "max-height":
		return s.Height <= f.value
	case "resolution":
		return s.DPR == f.value
	case "min-resolution":
		return s.DPR >= f.value
	case "max-resolution":
		return s.DPR <= f.value
	case "orientation":
		return types.Orientation(f.text) == s.Orient
	}
	return false
}
