package compositor

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/gogpu/naga"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// shaderSource returns an embedded WGSL source by file name.
func shaderSource(name string) string {
	data, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		// The embed directive guarantees the file exists; a miss here is a
		// build defect, not a runtime condition.
		panic("compositor: missing embedded shader " + name)
	}
	return string(data)
}

// ValidateShaders compiles every embedded WGSL source with naga and
// returns the first failure. New runs this before touching the GPU so a
// malformed shader surfaces as a recoverable initialization error rather
// than a device-side pipeline error.
func ValidateShaders() error {
	entries, err := fs.ReadDir(shaderFS, "shaders")
	if err != nil {
		return fmt.Errorf("compositor: read embedded shaders: %w", err)
	}
	for _, e := range entries {
		src, err := shaderFS.ReadFile("shaders/" + e.Name())
		if err != nil {
			return fmt.Errorf("compositor: read shader %s: %w", e.Name(), err)
		}
		if _, err := naga.Compile(string(src)); err != nil {
			return fmt.Errorf("compositor: shader %s: %w", e.Name(), err)
		}
	}
	return nil
}
