package compositor

import (
	"errors"
	"testing"
)

// fakeTransformation is a GPU-free Transformation for registry tests.
type fakeTransformation struct {
	name string
}

func (f *fakeTransformation) Name() string { return f.name }

func (f *fakeTransformation) Apply(_ *TransformContext, src *Texture) (*Texture, error) {
	return src, nil
}

// fakeFactory builds fakeTransformations, optionally under a lying key.
type fakeFactory struct {
	key   string
	built string
}

func (f fakeFactory) Key() string { return f.key }

func (f fakeFactory) New(map[string]any) (Transformation, error) {
	return &fakeTransformation{name: f.built}, nil
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(fakeFactory{key: "blur", built: "blur"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(fakeFactory{key: "blur", built: "blur"}); err == nil {
		t.Error("duplicate Register succeeded")
	}
	if err := r.Register(fakeFactory{key: "", built: ""}); err == nil {
		t.Error("empty-key Register succeeded")
	}
	if err := r.Register(nil); err == nil {
		t.Error("nil Register succeeded")
	}
}

func TestRegistryBuild(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(fakeFactory{key: "blur", built: "blur"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr, err := r.Build("blur", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.Name() != "blur" {
		t.Errorf("Name() = %q, want blur", tr.Name())
	}

	if _, err := r.Build("sharpen", nil); !errors.Is(err, ErrUnknownTransformation) {
		t.Errorf("Build(unknown) = %v, want ErrUnknownTransformation", err)
	}
}

func TestRegistryBuildKeyMismatch(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(fakeFactory{key: "blur", built: "sharpen"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Build("blur", nil); !errors.Is(err, ErrTransformationKeyMismatch) {
		t.Errorf("Build = %v, want ErrTransformationKeyMismatch", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tr, err := r.Build("cropping", map[string]any{
		"left": 0.1, "top": 0.2, "width": 0.5, "height": 0.5,
	})
	if err != nil {
		t.Fatalf("Build(cropping): %v", err)
	}
	if tr.Name() != "cropping" {
		t.Errorf("Name() = %q, want cropping", tr.Name())
	}

	tr, err = r.Build("corners_rounding", map[string]any{"radius": 24})
	if err != nil {
		t.Fatalf("Build(corners_rounding): %v", err)
	}
	if tr.Name() != "corners_rounding" {
		t.Errorf("Name() = %q, want corners_rounding", tr.Name())
	}
}

func TestDefaultRegistryArgErrors(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		name string
		key  string
		args map[string]any
	}{
		{"missing arg", "cropping", map[string]any{"left": 0.0, "top": 0.0, "width": 0.5}},
		{"wrong type", "corners_rounding", map[string]any{"radius": "big"}},
		{"rect out of range", "cropping", map[string]any{
			"left": 0.8, "top": 0.0, "width": 0.5, "height": 0.5,
		}},
		{"negative radius", "corners_rounding", map[string]any{"radius": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Build(tt.key, tt.args); err == nil {
				t.Errorf("Build(%s, %v) succeeded, want error", tt.key, tt.args)
			}
		})
	}
}

func TestNewCroppingValidation(t *testing.T) {
	if _, err := NewCropping(0, 0, 1, 1); err != nil {
		t.Errorf("NewCropping(full) = %v, want nil", err)
	}
	if _, err := NewCropping(0.25, 0.25, 0.5, 0.5); err != nil {
		t.Errorf("NewCropping(centre) = %v, want nil", err)
	}
	for _, bad := range [][4]float32{
		{-0.1, 0, 0.5, 0.5},
		{0, 0, 0, 0.5},
		{0.6, 0, 0.5, 0.5},
		{0, 0.6, 0.5, 0.5},
	} {
		if _, err := NewCropping(bad[0], bad[1], bad[2], bad[3]); err == nil {
			t.Errorf("NewCropping(%v) succeeded, want error", bad)
		}
	}
}
