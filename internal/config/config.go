package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/pano-twist/pkg/equirect"
)

// Config holds the application configuration
type Config struct {
	Nadir  PatchConfig  `json:"nadir"`
	Zenith PatchConfig  `json:"zenith"`
	Resize ResizeConfig `json:"resize"`
	Output OutputConfig `json:"output"`
	Log    LogConfig    `json:"log"`
}

// PatchConfig holds the settings for one pole patch
type PatchConfig struct {
	Enabled     bool   `json:"enabled"`
	AngleDeg    int    `json:"angle_deg"`
	Fill        string `json:"fill"`
	Color       string `json:"color"`
	SourceImage string `json:"source_image,omitempty"`
}

// ResizeConfig holds the maximum output size
type ResizeConfig struct {
	Enabled   bool `json:"enabled"`
	MaxWidth  int  `json:"max_width"`
	MaxHeight int  `json:"max_height"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Subfolder string `json:"subfolder"`
	Quality   int    `json:"quality"`
	Lossless  bool   `json:"lossless"`
	Sidecar   bool   `json:"sidecar"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Nadir: PatchConfig{
			Enabled:  false,
			AngleDeg: 30,
			Fill:     "average",
			Color:    equirect.DefaultNadirColor.Hex(),
		},
		Zenith: PatchConfig{
			Enabled:  false,
			AngleDeg: 30,
			Fill:     "average",
			Color:    equirect.DefaultZenithColor.Hex(),
		},
		Resize: ResizeConfig{
			Enabled:   false,
			MaxWidth:  6000,
			MaxHeight: 3000,
		},
		Output: OutputConfig{
			Subfolder: "Panotwist output",
			Quality:   95,
			Lossless:  false,
			Sidecar:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A height given without a width must not be overridden by the
	// default width.
	var limits struct {
		Resize struct {
			MaxWidth  *int `json:"max_width"`
			MaxHeight *int `json:"max_height"`
		} `json:"resize"`
	}
	if err := json.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if limits.Resize.MaxHeight != nil && limits.Resize.MaxWidth == nil {
		config.Resize.MaxWidth = 0
	}
	config.Resize.Normalize()

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for name, p := range map[string]PatchConfig{"nadir": c.Nadir, "zenith": c.Zenith} {
		if p.AngleDeg < 0 || p.AngleDeg > equirect.MaxPatchAngle {
			return fmt.Errorf("%s.angle_deg must be between 0 and %d", name, equirect.MaxPatchAngle)
		}
		if _, err := equirect.ParseFillMode(p.Fill); err != nil {
			return fmt.Errorf("%s.fill: %w", name, err)
		}
		if _, err := equirect.ParseColor(p.Color); err != nil {
			return fmt.Errorf("%s.color: %w", name, err)
		}
	}

	if c.Resize.Enabled && c.Resize.MaxHeight < 1 {
		return fmt.Errorf("resize.max_height must be positive")
	}

	if c.Output.Subfolder == "" {
		return fmt.Errorf("output.subfolder cannot be empty")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// Normalize keeps the limits equirectangular: the width is rounded up to an
// even number and the height follows it. A lone height sets the width.
func (r *ResizeConfig) Normalize() {
	switch {
	case r.MaxWidth > 0:
		if r.MaxWidth%2 != 0 {
			r.MaxWidth++
		}
		r.MaxHeight = r.MaxWidth / 2
	case r.MaxHeight > 0:
		r.MaxWidth = r.MaxHeight * 2
	}
}

// Limit returns the maximum height, or 0 when resizing is disabled.
func (r ResizeConfig) Limit() int {
	if !r.Enabled {
		return 0
	}
	return r.MaxHeight
}

// Spec converts the patch settings into an engine spec. The source picture
// is loaded separately; the returned spec has no Source.
func (p PatchConfig) Spec(side equirect.Side) (equirect.PatchSpec, error) {
	spec := equirect.DefaultPatch(side)
	spec.Enabled = p.Enabled
	spec.AngleDeg = p.AngleDeg

	fill, err := equirect.ParseFillMode(p.Fill)
	if err != nil {
		return spec, err
	}
	spec.Fill = fill

	if p.Color != "" {
		// A malformed colour keeps the default.
		_ = spec.SetColor(p.Color)
	}
	return spec, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "pano-twist", "config.json")
}
