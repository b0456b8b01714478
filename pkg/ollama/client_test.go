package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResult(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		label string
		boxW  float64
	}{
		{
			name:  "plain json",
			raw:   `{"primary":{"label":"dog","confidence":0.9,"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4}}}`,
			label: "dog",
			boxW:  0.3,
		},
		{
			name: "fenced with comments and trailing comma",
			raw: "```json\n" + `{
  // the subject
  "primary": {"label": "cat", "box": {"x": 0.5, "y": 0.5, "w": 0.2, "h": 0.2,},}, /* done */
  "tags": ["pet",],
}` + "\n```",
			label: "cat",
			boxW:  0.2,
		},
		{
			name:  "prose around json",
			raw:   `Sure! Here you go: {"primary":{"label":"car","box":{"x":0,"y":0,"w":1,"h":1}}} Hope that helps.`,
			label: "car",
			boxW:  1,
		},
		{
			name:  "no json",
			raw:   "I cannot see an image.",
			label: "no json found",
			boxW:  0.5,
		},
		{
			name:  "broken json",
			raw:   `{"primary": {"label": "tree", "box": }`,
			label: "parse error",
			boxW:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseAnalysisResult(tt.raw)
			require.NotNil(t, res)
			assert.Equal(t, tt.label, res.Primary.Label)
			assert.Equal(t, tt.boxW, res.Primary.Box.W)
		})
	}
}

func TestSanitizeKeepsURLs(t *testing.T) {
	raw := `{"description":"see http://example.com/x"}`
	assert.Equal(t, raw, sanitizeModelJSON(raw))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://localhost:11434/api/chat")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)

	_, err = NewClient("localhost")
	assert.Error(t, err)
}
