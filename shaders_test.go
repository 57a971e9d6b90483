package compositor

import (
	"io/fs"
	"testing"
)

func TestValidateShaders(t *testing.T) {
	if err := ValidateShaders(); err != nil {
		t.Fatalf("ValidateShaders() = %v", err)
	}
}

func TestEmbeddedShadersPresent(t *testing.T) {
	want := map[string]bool{
		"compose.wgsl":          false,
		"yuv_to_rgba.wgsl":      false,
		"rgba_to_yuv.wgsl":      false,
		"crop.wgsl":             false,
		"corners_rounding.wgsl": false,
	}
	entries, err := fs.ReadDir(shaderFS, "shaders")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if _, ok := want[e.Name()]; ok {
			want[e.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("embedded shader %s is missing", name)
		}
	}
}

func TestShaderSource(t *testing.T) {
	if src := shaderSource("compose.wgsl"); src == "" {
		t.Error("shaderSource(compose.wgsl) is empty")
	}
	defer func() {
		if recover() == nil {
			t.Error("shaderSource on a missing file did not panic")
		}
	}()
	shaderSource("no_such.wgsl")
}
