package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/format"
)

const sampleConfig = `
output:
  width: 1280
  height: 720
  pixel_format: I420
  framerate: 30/1
  path: out.yuv
http:
  addr: ":9191"
log:
  level: debug
  format: json
streams:
  - id: 0
    path: a.yuv
    width: 640
    height: 480
    pixel_format: I420
    framerate: 30/1
    placement: {x: 0, y: 0, z: 0, scale: 1}
  - id: 1
    path: b.yuv
    width: 640
    height: 480
    pixel_format: I422
    framerate: 25/1
    placement: {x: 100, y: 100, z: 1, scale: 0.5}
    transformations:
      - key: corners_rounding
        args: {radius: 16}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compositord.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	out, err := cfg.Output.videoFormat()
	if err != nil {
		t.Fatalf("output videoFormat: %v", err)
	}
	if out.Width != 1280 || out.Height != 720 || out.PixelFormat != format.I420 {
		t.Errorf("output format = %+v", out)
	}
	if cfg.HTTP.Addr != ":9191" {
		t.Errorf("http addr = %q, want :9191", cfg.HTTP.Addr)
	}
	if len(cfg.Streams) != 2 {
		t.Fatalf("streams = %d, want 2", len(cfg.Streams))
	}

	s1, err := cfg.Streams[1].videoFormat()
	if err != nil {
		t.Fatalf("stream videoFormat: %v", err)
	}
	if s1.PixelFormat != format.I422 || s1.Framerate.Num != 25 {
		t.Errorf("stream 1 format = %+v", s1)
	}
	p := cfg.Streams[1].Placement.placement()
	if p.X != 100 || p.Z != 1 || p.Scale != 0.5 {
		t.Errorf("stream 1 placement = %+v", p)
	}
	if len(cfg.Streams[1].Transformations) != 1 ||
		cfg.Streams[1].Transformations[0].Key != "corners_rounding" {
		t.Errorf("stream 1 transformations = %+v", cfg.Streams[1].Transformations)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	body := strings.Replace(sampleConfig, "addr: \":9191\"", "addr: \"\"", 1)
	cfg, err := LoadConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("default http addr = %q, want :9090", cfg.HTTP.Addr)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantSub string
	}{
		{
			"missing output path",
			func(s string) string { return strings.Replace(s, "path: out.yuv", "path: \"\"", 1) },
			"output.path",
		},
		{
			"duplicate stream id",
			func(s string) string { return strings.Replace(s, "id: 1", "id: 0", 1) },
			"duplicate",
		},
		{
			"bad pixel format",
			func(s string) string { return strings.Replace(s, "pixel_format: I422", "pixel_format: NV12", 1) },
			"pixel format",
		},
		{
			"bad framerate",
			func(s string) string { return strings.Replace(s, "framerate: 25/1", "framerate: 0/1", 1) },
			"framerate",
		},
		{
			"zero scale",
			func(s string) string { return strings.Replace(s, "scale: 0.5", "scale: 0", 1) },
			"scale",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.mutate(sampleConfig)))
			if err == nil {
				t.Fatal("LoadConfig succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestParseFramerate(t *testing.T) {
	tests := []struct {
		in      string
		want    compositor.Framerate
		wantErr bool
	}{
		{"30", compositor.Framerate{Num: 30, Den: 1}, false},
		{"30/1", compositor.Framerate{Num: 30, Den: 1}, false},
		{"30000/1001", compositor.Framerate{Num: 30000, Den: 1001}, false},
		{"", compositor.Framerate{}, true},
		{"0/1", compositor.Framerate{}, true},
		{"30/0", compositor.Framerate{}, true},
		{"abc", compositor.Framerate{}, true},
	}
	for _, tt := range tests {
		got, err := parseFramerate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFramerate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFramerate(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestBuildTransformations(t *testing.T) {
	reg := compositor.DefaultRegistry()
	chain, err := buildTransformations(reg, []TransformationConfig{
		{Key: "cropping", Args: map[string]any{"left": 0.1, "top": 0.1, "width": 0.5, "height": 0.5}},
		{Key: "corners_rounding", Args: map[string]any{"radius": 8}},
	})
	if err != nil {
		t.Fatalf("buildTransformations: %v", err)
	}
	if len(chain) != 2 || chain[0].Name() != "cropping" || chain[1].Name() != "corners_rounding" {
		t.Errorf("chain = %v", chain)
	}

	if _, err := buildTransformations(reg, []TransformationConfig{{Key: "nope"}}); err == nil {
		t.Error("unknown key succeeded")
	}
	if chain, err := buildTransformations(reg, nil); err != nil || chain != nil {
		t.Errorf("empty chain = %v, %v", chain, err)
	}
}
