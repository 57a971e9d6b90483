package compositor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// State is the compositor instance: one GPU device, the live input
// streams, the scene describing their layout, and the output target the
// composed frames are read back from.
//
// State is not safe for concurrent use; the caller serializes access.
// DrawIntoAsync exists for callers that want the readback wait off their
// own goroutine.
type State struct {
	cfg VideoFormat
	log *slog.Logger

	fallbackAdapter bool
	registry        *Registry

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	singleTextureLayout *wgpu.BindGroupLayout
	yuvTexturesLayout   *wgpu.BindGroupLayout
	samplerLayout       *wgpu.BindGroupLayout
	uniformLayout       *wgpu.BindGroupLayout

	linearSampler     *wgpu.Sampler
	linearSamplerBind *wgpu.BindGroup

	composePipeline *wgpu.RenderPipeline
	quad            *quadBuffers
	yuvToRGBA       *yuvToRGBAConverter
	rgbaToYUV       *rgbaToYUVConverter

	scene   *Scene
	streams map[VideoID]*inputStream
	output  *outputTarget

	lastPTS *uint64
	closed  bool
}

// New creates a compositor producing frames in the given output format.
// Failure to obtain an adapter or device is returned as an error, never a
// panic.
func New(cfg VideoFormat, opts ...Option) (*State, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := ValidateShaders(); err != nil {
		return nil, err
	}

	st := &State{
		cfg:      cfg,
		log:      Logger(),
		registry: DefaultRegistry(),
		scene:    NewScene(),
		streams:  make(map[VideoID]*inputStream),
	}
	for _, opt := range opts {
		opt(st)
	}

	if err := st.initGPU(); err != nil {
		st.Close()
		return nil, err
	}
	st.log.Info("compositor ready",
		"width", cfg.Width, "height", cfg.Height,
		"format", cfg.PixelFormat, "fallback", st.fallbackAdapter)
	return st, nil
}

func (st *State) initGPU() error {
	st.instance = wgpu.CreateInstance(nil)

	adapter, err := st.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
		ForceFallbackAdapter: st.fallbackAdapter,
	})
	if err != nil {
		return fmt.Errorf("compositor: request adapter: %w", err)
	}
	st.adapter = adapter

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("compositor: request device: %w", err)
	}
	st.device = device
	st.queue = device.GetQueue()

	if err := st.initLayouts(); err != nil {
		return err
	}
	if err := st.initSampler(); err != nil {
		return err
	}

	quad, err := newQuadBuffers(st.device)
	if err != nil {
		return err
	}
	st.quad = quad

	yuvToRGBA, err := newYUVToRGBAConverter(st.device, st.yuvTexturesLayout, st.samplerLayout)
	if err != nil {
		return err
	}
	st.yuvToRGBA = yuvToRGBA

	rgbaToYUV, err := newRGBAToYUVConverter(st.device,
		st.singleTextureLayout, st.samplerLayout, st.uniformLayout)
	if err != nil {
		return err
	}
	st.rgbaToYUV = rgbaToYUV

	if err := st.initComposePipeline(); err != nil {
		return err
	}

	output, err := newOutputTarget(st.device, st.cfg, st.singleTextureLayout)
	if err != nil {
		return err
	}
	st.output = output
	return nil
}

func (st *State) initLayouts() error {
	textureEntry := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		}
	}

	single, err := st.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "single texture",
		Entries: []wgpu.BindGroupLayoutEntry{textureEntry(0)},
	})
	if err != nil {
		return fmt.Errorf("compositor: create texture bind group layout: %w", err)
	}
	st.singleTextureLayout = single

	yuv, err := st.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "yuv planes",
		Entries: []wgpu.BindGroupLayoutEntry{textureEntry(0), textureEntry(1), textureEntry(2)},
	})
	if err != nil {
		return fmt.Errorf("compositor: create yuv bind group layout: %w", err)
	}
	st.yuvTexturesLayout = yuv

	sampler, err := st.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "sampler",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("compositor: create sampler bind group layout: %w", err)
	}
	st.samplerLayout = sampler

	uniform, err := st.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "uniform",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("compositor: create uniform bind group layout: %w", err)
	}
	st.uniformLayout = uniform
	return nil
}

func (st *State) initSampler() error {
	sampler, err := st.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "linear",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("compositor: create sampler: %w", err)
	}
	st.linearSampler = sampler

	bind, err := st.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "linear sampler",
		Layout: st.samplerLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("compositor: create sampler bind group: %w", err)
	}
	st.linearSamplerBind = bind
	return nil
}

// initComposePipeline builds the compositing pipeline: textured quads with
// a less-than depth test, so a lower placement Z ends up in front and on
// equal Z the first-drawn stream (lowest id) wins.
func (st *State) initComposePipeline() error {
	module, err := st.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "compose",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource("compose.wgsl"),
		},
	})
	if err != nil {
		return fmt.Errorf("compositor: create compose shader module: %w", err)
	}
	defer module.Release()

	layout, err := st.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: "compose",
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			st.singleTextureLayout, st.samplerLayout,
		},
	})
	if err != nil {
		return fmt.Errorf("compositor: create compose pipeline layout: %w", err)
	}
	defer layout.Release()

	pipeline, err := st.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "compose",
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
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilReadMask:  0xFFFFFFFF,
			StencilWriteMask: 0xFFFFFFFF,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("compositor: create compose pipeline: %w", err)
	}
	st.composePipeline = pipeline
	return nil
}

// newTransformContext wraps the upload encoder with the shared GPU state
// transformations record against.
func (st *State) newTransformContext(enc *wgpu.CommandEncoder) *TransformContext {
	return &TransformContext{
		device:        st.device,
		queue:         st.queue,
		encoder:       enc,
		quad:          st.quad,
		textureLayout: st.singleTextureLayout,
		samplerLayout: st.samplerLayout,
		uniformLayout: st.uniformLayout,
		samplerBind:   st.linearSamplerBind,
	}
}

// Registry returns the transformation registry used to build effect
// chains from configuration.
func (st *State) Registry() *Registry { return st.registry }

// OutputFormat returns the output format the compositor was created with.
func (st *State) OutputFormat() VideoFormat { return st.cfg }

// AddVideo registers a new input stream under id with the given raw-frame
// format and scene configuration. The id must be free.
func (st *State) AddVideo(id VideoID, f VideoFormat, cfg VideoConfig) error {
	if _, ok := st.streams[id]; ok {
		return VideoIndexAlreadyTakenError{Index: id}
	}
	if err := f.validate(); err != nil {
		return err
	}
	if err := cfg.Placement.validate(); err != nil {
		return err
	}
	s, err := newInputStream(st, f, cfg)
	if err != nil {
		return err
	}
	st.streams[id] = s
	st.scene.Set(id, cfg)
	st.log.Info("video added", "id", id,
		"width", f.Width, "height", f.Height, "format", f.PixelFormat)
	return nil
}

// RemoveVideo drops the stream registered under id, releasing its GPU
// resources and any buffered frames.
func (st *State) RemoveVideo(id VideoID) error {
	s, ok := st.streams[id]
	if !ok {
		return BadVideoIndexError{Index: id}
	}
	s.release()
	delete(st.streams, id)
	st.scene.Remove(id)
	st.log.Info("video removed", "id", id)
	return nil
}

// UploadFrame converts one raw frame of the stream registered under id and
// queues it for compositing at the given pts.
func (st *State) UploadFrame(id VideoID, frame []byte, pts uint64) error {
	s, ok := st.streams[id]
	if !ok {
		return BadVideoIndexError{Index: id}
	}
	return s.upload(st, frame, pts)
}

// AllFramesReady reports whether every live stream has a frame inside the
// synchronization window [lastPTS, lastPTS+framePeriod). Vacuously true
// with no streams; on the first tick only frame existence is required.
func (st *State) AllFramesReady(framePeriod uint64) bool {
	win := window{start: st.lastPTS}
	if st.lastPTS != nil {
		end := *st.lastPTS + framePeriod
		win.end = &end
	}
	for _, s := range st.streams {
		pts, ok := s.frontPTS()
		if !ok {
			return false
		}
		// A frame before the window start is stale, not ready; it will be
		// retired by the next draw.
		if win.end != nil && pts >= *win.end {
			return false
		}
		if win.start != nil && pts < *win.start {
			// Stale frames may hide a ready one behind them.
			if !st.hasFrameInWindow(s, win) {
				return false
			}
		}
	}
	return true
}

func (st *State) hasFrameInWindow(s *inputStream, win window) bool {
	for _, f := range s.queue.frames {
		if win.contains(f.pts) {
			return true
		}
	}
	return false
}

// DrawInto composes one output frame into out and returns its pts (the
// maximum pts drawn this tick). Streams with no frame in the current
// window contribute nothing. This is the single blocking call: it waits
// for the GPU before copying the staging buffers out.
func (st *State) DrawInto(ctx context.Context, out []byte) (uint64, error) {
	if want := st.cfg.FrameSize(); len(out) != want {
		return 0, BufferSizeError{Want: want, Got: len(out)}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	enc, err := st.device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, fmt.Errorf("compositor: create draw encoder: %w", err)
	}
	defer enc.Release()

	win := window{start: st.lastPTS}
	maxPTS := uint64(0)
	drew := false

	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "compose pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       st.output.rgba.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            st.output.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(st.composePipeline)
	pass.SetBindGroup(1, st.linearSamplerBind, nil)
	for _, id := range st.sortedIDs() {
		pts, ok := st.streams[id].draw(st, pass, win)
		if ok {
			drew = true
			if pts > maxPTS {
				maxPTS = pts
			}
		}
	}
	pass.End()
	pass.Release()

	st.output.convertToOutputFormat(enc, st.quad, st.rgbaToYUV, st.linearSamplerBind)

	cmd, err := enc.Finish(nil)
	if err != nil {
		return 0, fmt.Errorf("compositor: finish draw encoder: %w", err)
	}
	st.queue.Submit(cmd)
	cmd.Release()

	if err := st.output.download(st.device, out); err != nil {
		return 0, err
	}

	if drew && (st.lastPTS == nil || maxPTS > *st.lastPTS) {
		pts := maxPTS
		st.lastPTS = &pts
	}
	if st.lastPTS != nil {
		maxPTS = *st.lastPTS
	}
	st.log.Debug("frame composed", "pts", maxPTS, "streams", len(st.streams))
	return maxPTS, nil
}

// DrawResult is the outcome of a DrawIntoAsync tick.
type DrawResult struct {
	PTS uint64
	Err error
}

// DrawIntoAsync runs DrawInto on its own goroutine and delivers the result
// on the returned channel. The caller must not touch the State or out
// until the result arrives.
func (st *State) DrawIntoAsync(ctx context.Context, out []byte) <-chan DrawResult {
	ch := make(chan DrawResult, 1)
	go func() {
		pts, err := st.DrawInto(ctx, out)
		ch <- DrawResult{PTS: pts, Err: err}
	}()
	return ch
}

// SetScene replaces the whole scene. The new scene must configure exactly
// the ids of the live streams; a key mismatch is rejected without
// modifying anything.
func (st *State) SetScene(scene *Scene) error {
	if !scene.matchesIDs(st.streams) {
		return ErrDifferentVideoIndexes
	}
	for _, cfg := range scene.configs {
		if err := cfg.Placement.validate(); err != nil {
			return err
		}
	}
	for id, s := range st.streams {
		cfg, _ := scene.Get(id)
		s.setConfig(st, cfg)
		st.scene.Set(id, cfg)
	}
	return nil
}

// sortedIDs returns the live stream ids in ascending order, the order
// streams are drawn in.
func (st *State) sortedIDs() []VideoID {
	ids := make([]VideoID, 0, len(st.streams))
	for id := range st.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close releases every GPU resource. The State is unusable afterwards;
// Close is idempotent.
func (st *State) Close() {
	if st.closed {
		return
	}
	st.closed = true

	for id, s := range st.streams {
		s.release()
		delete(st.streams, id)
	}
	if st.output != nil {
		st.output.release()
		st.output = nil
	}
	if st.composePipeline != nil {
		st.composePipeline.Release()
		st.composePipeline = nil
	}
	if st.rgbaToYUV != nil {
		st.rgbaToYUV.release()
		st.rgbaToYUV = nil
	}
	if st.yuvToRGBA != nil {
		st.yuvToRGBA.release()
		st.yuvToRGBA = nil
	}
	if st.quad != nil {
		st.quad.release()
		st.quad = nil
	}
	if st.linearSamplerBind != nil {
		st.linearSamplerBind.Release()
		st.linearSamplerBind = nil
	}
	if st.linearSampler != nil {
		st.linearSampler.Release()
		st.linearSampler = nil
	}
	for _, l := range []**wgpu.BindGroupLayout{
		&st.uniformLayout, &st.samplerLayout, &st.yuvTexturesLayout, &st.singleTextureLayout,
	} {
		if *l != nil {
			(*l).Release()
			*l = nil
		}
	}
	if st.queue != nil {
		st.queue.Release()
		st.queue = nil
	}
	if st.device != nil {
		st.device.Release()
		st.device = nil
	}
	if st.adapter != nil {
		st.adapter.Release()
		st.adapter = nil
	}
	if st.instance != nil {
		st.instance.Release()
		st.instance = nil
	}
}
