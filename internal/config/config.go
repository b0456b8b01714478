package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/menta2k/better-cover/pkg/cover"
)

// Config holds the application configuration
type Config struct {
	Solver cover.SearchOptions `json:"solver" toml:"solver"`
	Output OutputConfig        `json:"output" toml:"output"`
	Vision VisionConfig        `json:"vision" toml:"vision"`
	Server ServerConfig        `json:"server" toml:"server"`
}

// OutputConfig holds configuration for rendered images
type OutputConfig struct {
	Format   string  `json:"format" toml:"format"`
	Quality  int     `json:"quality" toml:"quality"`
	Lossless bool    `json:"lossless" toml:"lossless"`
	Density  float64 `json:"density" toml:"density"`
	Dir      string  `json:"dir" toml:"dir"`
	Suffix   string  `json:"suffix" toml:"suffix"`
}

// VisionConfig holds configuration for focus zone detection
type VisionConfig struct {
	// Backend is one of saliency, ollama or llamacpp.
	Backend     string `json:"backend" toml:"backend"`
	URL         string `json:"url" toml:"url"`
	Model       string `json:"model" toml:"model"`
	SendFormat  string `json:"send_format" toml:"send_format"`
	SendSize    int    `json:"send_size" toml:"send_size"`
	SendQuality int    `json:"send_quality" toml:"send_quality"`
	// MinConfidence is the model confidence below which no subject is
	// reported. Zero uses the detector default.
	MinConfidence float64 `json:"min_confidence" toml:"min_confidence"`
	// MinSubjectRatio is the smallest saliency window, as a share of the image
	// area. Zero uses the detector default.
	MinSubjectRatio float64 `json:"min_subject_ratio" toml:"min_subject_ratio"`
}

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	Addr string `json:"addr" toml:"addr"`
}

// Backends that can detect focus zones
var Backends = []string{"saliency", "ollama", "llamacpp"}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Solver: cover.DefaultSearchOptions(),
		Output: OutputConfig{
			Format:  "jpg",
			Quality: 85,
			Density: 1,
			Dir:     "./output",
			Suffix:  "_cover",
		},
		Vision: VisionConfig{
			Backend:         "saliency",
			URL:             "http://localhost:11434",
			Model:           "openbmb/minicpm-v4.5",
			SendFormat:      "jpg",
			SendSize:        1536,
			SendQuality:     85,
			MinConfidence:   0.2,
			MinSubjectRatio: 0.02,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadFromFile loads configuration from a TOML file, or a JSON file when the
// extension is .json. Missing keys keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isJSON(filename) {
		err = json.Unmarshal(data, config)
	} else {
		_, err = toml.Decode(string(data), config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration in the format implied by the file extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isJSON(filename) {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	} else {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Solver.Growth <= 1 {
		return fmt.Errorf("solver.growth must be greater than 1")
	}
	if c.Solver.GrowthRounds < 1 {
		return fmt.Errorf("solver.growth_rounds must be positive")
	}
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("solver.tolerance must be positive")
	}
	if c.Solver.MaxBisections < 1 {
		return fmt.Errorf("solver.max_bisections must be positive")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be one of jpg, png, webp")
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}
	if c.Output.Density <= 0 {
		return fmt.Errorf("output.density must be positive")
	}

	if !isBackend(c.Vision.Backend) {
		return fmt.Errorf("vision.backend must be one of %s", strings.Join(Backends, ", "))
	}
	if c.Vision.SendSize < 0 {
		return fmt.Errorf("vision.send_size must not be negative")
	}
	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}
	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		return fmt.Errorf("vision.min_confidence must be between 0 and 1")
	}
	if c.Vision.MinSubjectRatio < 0 || c.Vision.MinSubjectRatio > 1 {
		return fmt.Errorf("vision.min_subject_ratio must be between 0 and 1")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	return nil
}

func isBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "better-cover", "config.toml")
}
