package compositor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// uniformBlockSize pads every effect uniform to 16 bytes, the smallest
// binding size universally accepted for uniform buffers.
const uniformBlockSize = 16

// effectState holds the lazily-built GPU resources a built-in
// transformation keeps across frames: its pipeline and its parameter
// uniform. Parameters are immutable after construction, so the uniform is
// written once.
type effectState struct {
	pipeline  *wgpu.RenderPipeline
	uniform   *wgpu.Buffer
	uniformBG *wgpu.BindGroup
}

func (e *effectState) ensure(tc *TransformContext, shaderFile, label string, params []byte) error {
	if e.pipeline != nil {
		return nil
	}
	pipeline, err := buildEffectPipeline(tc, shaderFile, label)
	if err != nil {
		return err
	}
	block := make([]byte, uniformBlockSize)
	copy(block, params)
	uniform, err := tc.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label + " params",
		Contents: block,
		Usage:    wgpu.BufferUsageUniform,
	})
	if err != nil {
		pipeline.Release()
		return fmt.Errorf("compositor: create %s uniform: %w", label, err)
	}
	uniformBG, err := tc.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " params",
		Layout: tc.uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniform, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		uniform.Release()
		pipeline.Release()
		return fmt.Errorf("compositor: create %s uniform bind group: %w", label, err)
	}
	e.pipeline = pipeline
	e.uniform = uniform
	e.uniformBG = uniformBG
	return nil
}

func (e *effectState) release() {
	if e.uniformBG != nil {
		e.uniformBG.Release()
		e.uniformBG = nil
	}
	if e.uniform != nil {
		e.uniform.Release()
		e.uniform = nil
	}
	if e.pipeline != nil {
		e.pipeline.Release()
		e.pipeline = nil
	}
}

// apply runs the effect as one render pass: sample src, write dst.
func (e *effectState) apply(tc *TransformContext, src *Texture) (*Texture, error) {
	srcBG, err := tc.SourceBindGroup(src)
	if err != nil {
		return nil, err
	}
	w, h := src.Size()
	dst, err := tc.NewTexture(w, h)
	if err != nil {
		return nil, err
	}
	pass := tc.BeginPass(dst)
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, srcBG, nil)
	pass.SetBindGroup(1, tc.SamplerBindGroup(), nil)
	pass.SetBindGroup(2, e.uniformBG, nil)
	tc.DrawQuad(pass)
	pass.End()
	pass.Release()
	return dst, nil
}

// Cropping stretches a normalized sub-rectangle of the source frame over
// the whole frame. All fields are in [0, 1] relative to the frame size.
type Cropping struct {
	Left, Top     float32
	Width, Height float32

	state effectState
}

// NewCropping builds a cropping transformation for the given normalized
// source rectangle.
func NewCropping(left, top, width, height float32) (*Cropping, error) {
	if left < 0 || top < 0 || width <= 0 || height <= 0 ||
		left+width > 1 || top+height > 1 {
		return nil, fmt.Errorf("compositor: bad crop rectangle (%v, %v, %v, %v)",
			left, top, width, height)
	}
	return &Cropping{Left: left, Top: top, Width: width, Height: height}, nil
}

// Name implements Transformation.
func (c *Cropping) Name() string { return "cropping" }

// Apply implements Transformation.
func (c *Cropping) Apply(tc *TransformContext, src *Texture) (*Texture, error) {
	err := c.state.ensure(tc, "crop.wgsl", "cropping",
		f32Bytes(c.Left, c.Top, c.Width, c.Height))
	if err != nil {
		return nil, err
	}
	return c.state.apply(tc, src)
}

// Release frees the transformation's GPU resources.
func (c *Cropping) Release() { c.state.release() }

// CornersRounding masks the frame to a rounded rectangle with the given
// corner radius in source pixels. The compositing pass discards the
// masked-out fragments.
type CornersRounding struct {
	Radius float32

	state effectState
}

// NewCornersRounding builds a corners-rounding transformation.
func NewCornersRounding(radius float32) (*CornersRounding, error) {
	if radius < 0 {
		return nil, fmt.Errorf("compositor: bad corner radius %v", radius)
	}
	return &CornersRounding{Radius: radius}, nil
}

// Name implements Transformation.
func (c *CornersRounding) Name() string { return "corners_rounding" }

// Apply implements Transformation.
func (c *CornersRounding) Apply(tc *TransformContext, src *Texture) (*Texture, error) {
	err := c.state.ensure(tc, "corners_rounding.wgsl", "corners rounding",
		f32Bytes(c.Radius))
	if err != nil {
		return nil, err
	}
	return c.state.apply(tc, src)
}

// Release frees the transformation's GPU resources.
func (c *CornersRounding) Release() { c.state.release() }

// CroppingFactory builds Cropping transformations from configuration
// arguments: left, top, width, height (normalized floats).
type CroppingFactory struct{}

// Key implements TransformationFactory.
func (CroppingFactory) Key() string { return "cropping" }

// New implements TransformationFactory.
func (CroppingFactory) New(args map[string]any) (Transformation, error) {
	left, err := floatArg(args, "left")
	if err != nil {
		return nil, err
	}
	top, err := floatArg(args, "top")
	if err != nil {
		return nil, err
	}
	width, err := floatArg(args, "width")
	if err != nil {
		return nil, err
	}
	height, err := floatArg(args, "height")
	if err != nil {
		return nil, err
	}
	return NewCropping(left, top, width, height)
}

// CornersRoundingFactory builds CornersRounding transformations from
// configuration arguments: radius (pixels).
type CornersRoundingFactory struct{}

// Key implements TransformationFactory.
func (CornersRoundingFactory) Key() string { return "corners_rounding" }

// New implements TransformationFactory.
func (CornersRoundingFactory) New(args map[string]any) (Transformation, error) {
	radius, err := floatArg(args, "radius")
	if err != nil {
		return nil, err
	}
	return NewCornersRounding(radius)
}

// floatArg extracts a numeric argument. YAML and JSON decoders produce
// float64 or int depending on the literal, so both are accepted.
func floatArg(args map[string]any, name string) (float32, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", name)
	}
	switch n := v.(type) {
	case float64:
		return float32(n), nil
	case float32:
		return n, nil
	case int:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("argument %q is %T, want a number", name, v)
	}
}
