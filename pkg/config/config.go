// Package config provides configuration loading and management for declump.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultMaxNumRegions bounds the number of concave regions examined per clump.
// The pairwise cut search grows quadratically with it.
const DefaultMaxNumRegions = 30

// Config represents the module parameters bound by the host pipeline
type Config struct {
	// Cutting parameters
	Cutting struct {
		// Passes is the number of cutting passes; each pass removes at most one fragment per clump
		Passes int `yaml:"cutting_passes"`

		// MinCutArea is the minimal area of a fragment produced by a cut
		MinCutArea int `yaml:"min_cut_area"`

		// FilterSize is the radius of the disk used for opening, clamped to at least 1
		FilterSize int `yaml:"filter_size"`

		// SlidingWindowSize is the contour window used for curvature estimation
		SlidingWindowSize int `yaml:"sliding_window_size"`

		// MinAngle is the minimal turning angle of a concave region, in degrees
		MinAngle float64 `yaml:"min_angle"`

		// MaxRadius bounds the radius of the circle fitting a concave region
		MaxRadius float64 `yaml:"max_radius"`

		// MaxNumRegions caps the number of concave regions considered per clump
		MaxNumRegions int `yaml:"max_num_regions"`

		// IntensitySmoothing is the sigma of the Gaussian low-pass applied to the intensity image, 0 disables it
		IntensitySmoothing float64 `yaml:"intensity_smoothing"`
	} `yaml:"cutting"`

	// Selection parameters for the clump classifier
	Selection struct {
		// MaxSolidity is the maximal solidity of a clump
		MaxSolidity float64 `yaml:"max_solidity"`

		// MinFormFactor is the minimal form factor of a clump
		MinFormFactor float64 `yaml:"min_formfactor"`

		// MinArea is the minimal area of a clump; it is also the small-object threshold after opening
		MinArea int `yaml:"min_area"`

		// MaxArea is the maximal area of a clump
		MaxArea int `yaml:"max_area"`
	} `yaml:"selection"`

	// Modes controls calibration halts and figure generation
	Modes struct {
		SelectionTestMode bool `yaml:"selection_test_mode"`
		PerimeterTestMode bool `yaml:"perimeter_test_mode"`
		Plot              bool `yaml:"plot"`
	} `yaml:"modes"`

	// Diagnostics controls the figure layout
	Diagnostics Diagnostics `yaml:"diagnostics"`
}

// Diagnostics holds the figure layout passed to the diagnostics emitter
type Diagnostics struct {
	// PanelSize is the edge length of one panel in pixels
	PanelSize int `yaml:"panel_size"`

	// Downsample scales input images before they are drawn, in (0, 1]
	Downsample float64 `yaml:"downsample"`

	// Gap is the spacing between panels in pixels
	Gap int `yaml:"gap"`

	// TitleHeight is the space reserved above each panel for its caption
	TitleHeight int `yaml:"title_height"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default cutting parameters
	cfg.Cutting.Passes = 2
	cfg.Cutting.MinCutArea = 2000
	cfg.Cutting.FilterSize = 2
	cfg.Cutting.SlidingWindowSize = 9
	cfg.Cutting.MinAngle = 6
	cfg.Cutting.MaxRadius = 30
	cfg.Cutting.MaxNumRegions = DefaultMaxNumRegions
	cfg.Cutting.IntensitySmoothing = 1.0

	// Set default selection parameters
	cfg.Selection.MaxSolidity = 0.92
	cfg.Selection.MinFormFactor = 0.30
	cfg.Selection.MinArea = 5000
	cfg.Selection.MaxArea = 50000

	// Test modes and plotting are off by default
	cfg.Modes.SelectionTestMode = false
	cfg.Modes.PerimeterTestMode = false
	cfg.Modes.Plot = false

	cfg.Diagnostics = Diagnostics{
		PanelSize:   256,
		Downsample:  1.0,
		Gap:         8,
		TitleHeight: 18,
	}

	return cfg
}

// FilterRadius returns the opening radius, clamped to at least 1
func (c *Config) FilterRadius() int {
	if c.Cutting.FilterSize < 1 {
		return 1
	}
	return c.Cutting.FilterSize
}

// MinAngleRadians converts the configured minimal angle from degrees
func (c *Config) MinAngleRadians() float64 {
	return c.Cutting.MinAngle * math.Pi / 180
}

// Validate checks parameter ranges and reports every violation at once
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, errors.Errorf(format, args...))
		}
	}

	check(c.Cutting.Passes >= 0, "cutting_passes must be >= 0, got %d", c.Cutting.Passes)
	check(c.Cutting.MinCutArea >= 0, "min_cut_area must be >= 0, got %d", c.Cutting.MinCutArea)
	check(c.Cutting.SlidingWindowSize >= 3, "sliding_window_size must be >= 3, got %d", c.Cutting.SlidingWindowSize)
	check(c.Cutting.MinAngle >= 0 && c.Cutting.MinAngle <= 180, "min_angle must be within [0, 180] degrees, got %g", c.Cutting.MinAngle)
	check(c.Cutting.MaxRadius > 0, "max_radius must be > 0, got %g", c.Cutting.MaxRadius)
	check(c.Cutting.MaxNumRegions >= 2, "max_num_regions must be >= 2, got %d", c.Cutting.MaxNumRegions)
	check(c.Cutting.IntensitySmoothing >= 0, "intensity_smoothing must be >= 0, got %g", c.Cutting.IntensitySmoothing)

	check(c.Selection.MaxSolidity > 0 && c.Selection.MaxSolidity <= 1, "max_solidity must be within (0, 1], got %g", c.Selection.MaxSolidity)
	check(c.Selection.MinFormFactor >= 0, "min_formfactor must be >= 0, got %g", c.Selection.MinFormFactor)
	check(c.Selection.MinArea >= 0, "min_area must be >= 0, got %d", c.Selection.MinArea)
	check(c.Selection.MaxArea >= c.Selection.MinArea, "max_area (%d) must be >= min_area (%d)", c.Selection.MaxArea, c.Selection.MinArea)

	check(c.Diagnostics.Downsample > 0 && c.Diagnostics.Downsample <= 1, "diagnostics.downsample must be within (0, 1], got %g", c.Diagnostics.Downsample)
	check(c.Diagnostics.PanelSize >= 16, "diagnostics.panel_size must be >= 16, got %d", c.Diagnostics.PanelSize)

	return multierr.Combine(errs...)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping the values of keys that are absent.
// The legacy key cutting.min_radius is accepted as an alias of cutting.max_radius.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "error parsing config file")
	}

	var legacy struct {
		Cutting map[string]interface{} `yaml:"cutting"`
	}
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return errors.Wrap(err, "error parsing config file")
	}
	raw, ok := legacy.Cutting["min_radius"]
	if !ok {
		return nil
	}
	minRadius, ok := toFloat(raw)
	if !ok {
		return errors.Errorf("cutting.min_radius must be a number, got %v", raw)
	}
	if _, both := legacy.Cutting["max_radius"]; both && minRadius != cfg.Cutting.MaxRadius {
		return errors.Errorf("cutting.min_radius (%g) conflicts with cutting.max_radius (%g)", minRadius, cfg.Cutting.MaxRadius)
	}
	cfg.Cutting.MaxRadius = minRadius
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
