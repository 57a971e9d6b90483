package compositor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Transformation is a per-video texture effect: consume one frame texture,
// produce one. Chains run in order at upload time, inside the same command
// encoder as the YUV conversion, before the frame is queued for
// compositing. Effect-specific parameters are bound at construction time
// (see TransformationFactory), so Apply performs no type assertions.
type Transformation interface {
	// Name returns the registry key the transformation was built under.
	Name() string

	// Apply records the effect into the context's encoder and returns the
	// result texture. It must not retain src; intermediate resources that
	// have to outlive the call until submission go through
	// TransformContext.DeferRelease.
	Apply(tc *TransformContext, src *Texture) (*Texture, error)
}

// TransformationFactory builds transformations of one kind from opaque
// configuration arguments. The key a factory advertises must match the
// Name of every transformation it builds; the Registry enforces this when
// a chain is built, never during draw.
type TransformationFactory interface {
	Key() string
	New(args map[string]any) (Transformation, error)
}

var (
	// ErrUnknownTransformation reports a Build for a key no factory was
	// registered under.
	ErrUnknownTransformation = errors.New("compositor: unknown transformation")

	// ErrTransformationKeyMismatch reports a factory whose built
	// transformation names a different key than the factory advertises.
	ErrTransformationKeyMismatch = errors.New("compositor: transformation key mismatch")
)

// Registry maps transformation keys to factories. It is safe for
// concurrent use; registration normally happens once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]TransformationFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]TransformationFactory)}
}

// DefaultRegistry returns a registry with the built-in transformations
// (cropping, corners_rounding) registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-in factories are known to satisfy the key contract.
	_ = r.Register(CroppingFactory{})
	_ = r.Register(CornersRoundingFactory{})
	return r
}

// Register adds a factory. Empty and duplicate keys are rejected.
func (r *Registry) Register(f TransformationFactory) error {
	if f == nil {
		return errors.New("compositor: transformation factory must not be nil")
	}
	key := f.Key()
	if key == "" {
		return errors.New("compositor: transformation factory has an empty key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("compositor: transformation %q is already registered", key)
	}
	r.factories[key] = f
	return nil
}

// Build constructs a transformation by key. A factory that builds a
// transformation reporting a different key is rejected here, so no key
// check remains on the draw path.
func (r *Registry) Build(key string, args map[string]any) (Transformation, error) {
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransformation, key)
	}
	t, err := f.New(args)
	if err != nil {
		return nil, fmt.Errorf("compositor: build transformation %q: %w", key, err)
	}
	if t.Name() != key {
		return nil, fmt.Errorf("%w: factory %q built %q", ErrTransformationKeyMismatch, key, t.Name())
	}
	return t, nil
}

// TransformContext gives a transformation access to the GPU state it needs
// to record its pass: the device and queue, the command encoder of the
// upload in progress, the shared fullscreen quad, and the bind group
// layouts the built-in shaders use.
type TransformContext struct {
	device  *wgpu.Device
	queue   *wgpu.Queue
	encoder *wgpu.CommandEncoder

	quad          *quadBuffers
	textureLayout *wgpu.BindGroupLayout
	samplerLayout *wgpu.BindGroupLayout
	uniformLayout *wgpu.BindGroupLayout
	samplerBind   *wgpu.BindGroup

	retired []releaser
}

type releaser interface{ Release() }

// Device returns the shared GPU device.
func (tc *TransformContext) Device() *wgpu.Device { return tc.device }

// Queue returns the shared GPU queue.
func (tc *TransformContext) Queue() *wgpu.Queue { return tc.queue }

// Encoder returns the command encoder the transformation records into.
func (tc *TransformContext) Encoder() *wgpu.CommandEncoder { return tc.encoder }

// TextureLayout is the single-texture bind group layout (group 0 of the
// built-in effect shaders).
func (tc *TransformContext) TextureLayout() *wgpu.BindGroupLayout { return tc.textureLayout }

// SamplerLayout is the sampler bind group layout (group 1).
func (tc *TransformContext) SamplerLayout() *wgpu.BindGroupLayout { return tc.samplerLayout }

// UniformLayout is the single-uniform bind group layout (group 2).
func (tc *TransformContext) UniformLayout() *wgpu.BindGroupLayout { return tc.uniformLayout }

// SamplerBindGroup returns the shared linear-filtering sampler bound at
// group 1.
func (tc *TransformContext) SamplerBindGroup() *wgpu.BindGroup { return tc.samplerBind }

// NewTexture allocates an RGBA frame texture usable as both render target
// and sampled source.
func (tc *TransformContext) NewTexture(w, h uint32) (*Texture, error) {
	return newFrameTexture(tc.device, "transformation target", w, h)
}

// SourceBindGroup binds t's view under the single-texture layout.
// The bind group is released automatically after submission.
func (tc *TransformContext) SourceBindGroup(t *Texture) (*wgpu.BindGroup, error) {
	bg, err := tc.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "transformation source",
		Layout: tc.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.view},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create transformation bind group: %w", err)
	}
	tc.DeferRelease(bg)
	return bg, nil
}

// BeginPass starts a render pass targeting dst, cleared to transparent
// black. The caller must End and Release the pass.
func (tc *TransformContext) BeginPass(dst *Texture) *wgpu.RenderPassEncoder {
	return tc.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "transformation pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       dst.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
}

// DrawQuad binds the shared fullscreen quad and issues the draw.
func (tc *TransformContext) DrawQuad(pass *wgpu.RenderPassEncoder) {
	tc.quad.draw(pass)
}

// DeferRelease schedules r to be released once the upload's commands have
// been submitted.
func (tc *TransformContext) DeferRelease(r releaser) {
	tc.retired = append(tc.retired, r)
}

func (tc *TransformContext) releaseRetired() {
	for _, r := range tc.retired {
		r.Release()
	}
	tc.retired = nil
}

// buildEffectPipeline compiles one of the embedded effect shaders into a
// render pipeline over the layouts [texture, sampler, uniform] with an
// RGBA8 colour target and no depth attachment.
func buildEffectPipeline(tc *TransformContext, shaderFile, label string) (*wgpu.RenderPipeline, error) {
	module, err := tc.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource(shaderFile),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create %s shader module: %w", label, err)
	}
	defer module.Release()

	layout, err := tc.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			tc.textureLayout, tc.samplerLayout, tc.uniformLayout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create %s pipeline layout: %w", label, err)
	}
	defer layout.Release()

	pipeline, err := tc.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormatRGBA8Unorm,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create %s pipeline: %w", label, err)
	}
	return pipeline, nil
}
