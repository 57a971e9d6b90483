package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/format"
)

// Config is the daemon's YAML configuration: the output stream to render,
// the input files to composite and where to serve HTTP from.
type Config struct {
	Output  OutputConfig   `yaml:"output"`
	Streams []StreamConfig `yaml:"streams"`
	HTTP    HTTPConfig     `yaml:"http"`
	Log     LogConfig      `yaml:"log"`
}

// VideoConfigYAML is the raw-frame geometry shared by inputs and the
// output.
type VideoConfigYAML struct {
	Width       uint32 `yaml:"width"`
	Height      uint32 `yaml:"height"`
	PixelFormat string `yaml:"pixel_format"`
	Framerate   string `yaml:"framerate"`
}

// OutputConfig describes the composed stream and the file it is appended
// to.
type OutputConfig struct {
	VideoConfigYAML `yaml:",inline"`
	Path            string `yaml:"path"`
}

// StreamConfig describes one raw planar input file and its place in the
// scene.
type StreamConfig struct {
	ID              uint32 `yaml:"id"`
	Path            string `yaml:"path"`
	VideoConfigYAML `yaml:",inline"`
	Placement       PlacementConfig        `yaml:"placement"`
	Transformations []TransformationConfig `yaml:"transformations"`
}

// PlacementConfig mirrors compositor.Placement.
type PlacementConfig struct {
	X     int32   `yaml:"x"`
	Y     int32   `yaml:"y"`
	Z     float32 `yaml:"z"`
	Scale float64 `yaml:"scale"`
}

// TransformationConfig names a registered transformation and its
// arguments.
type TransformationConfig struct {
	Key  string         `yaml:"key"`
	Args map[string]any `yaml:"args"`
}

// HTTPConfig is the observability endpoint.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// ${VAR} references in the file resolve against the environment, so
	// paths and addresses can differ per deployment.
	expanded := os.ExpandEnv(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Output.Path == "" {
		return fmt.Errorf("config: output.path is required")
	}
	if _, err := c.Output.videoFormat(); err != nil {
		return fmt.Errorf("config: output: %w", err)
	}
	if len(c.Streams) == 0 {
		return fmt.Errorf("config: at least one stream is required")
	}
	seen := make(map[uint32]bool)
	for i, s := range c.Streams {
		if s.Path == "" {
			return fmt.Errorf("config: streams[%d].path is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("config: duplicate stream id %d", s.ID)
		}
		seen[s.ID] = true
		if _, err := s.videoFormat(); err != nil {
			return fmt.Errorf("config: streams[%d]: %w", i, err)
		}
		if s.Placement.Scale <= 0 {
			return fmt.Errorf("config: streams[%d]: placement.scale must be positive", i)
		}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9090"
	}
	return nil
}

// videoFormat converts the YAML fields into a compositor.VideoFormat.
func (v VideoConfigYAML) videoFormat() (compositor.VideoFormat, error) {
	pf, err := format.Parse(v.PixelFormat)
	if err != nil {
		return compositor.VideoFormat{}, err
	}
	fr, err := parseFramerate(v.Framerate)
	if err != nil {
		return compositor.VideoFormat{}, err
	}
	return compositor.VideoFormat{
		Width:       v.Width,
		Height:      v.Height,
		PixelFormat: pf,
		Framerate:   fr,
	}, nil
}

// placement converts the YAML fields into a compositor.Placement.
func (p PlacementConfig) placement() compositor.Placement {
	return compositor.Placement{X: p.X, Y: p.Y, Z: p.Z, Scale: p.Scale}
}

// parseFramerate accepts "30", "30/1" or "30000/1001".
func parseFramerate(s string) (compositor.Framerate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return compositor.Framerate{}, fmt.Errorf("framerate is required")
	}
	num, den := s, "1"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, den = s[:i], s[i+1:]
	}
	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return compositor.Framerate{}, fmt.Errorf("bad framerate %q", s)
	}
	d, err := strconv.ParseUint(den, 10, 64)
	if err != nil || d == 0 || n == 0 {
		return compositor.Framerate{}, fmt.Errorf("bad framerate %q", s)
	}
	return compositor.Framerate{Num: n, Den: d}, nil
}
