package compositor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/compositor/internal/format"
)

// quadBuffers is the shared fullscreen quad every conversion and
// transformation pass draws with.
type quadBuffers struct {
	vertices *wgpu.Buffer
	indices  *wgpu.Buffer
}

func newQuadBuffers(dev *wgpu.Device) (*quadBuffers, error) {
	vs, err := dev.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "fullscreen quad vertices",
		Contents: vertexBytes(fullscreenVertices()),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create quad vertex buffer: %w", err)
	}
	is, err := dev.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "fullscreen quad indices",
		Contents: indexBytes(quadIndices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vs.Release()
		return nil, fmt.Errorf("compositor: create quad index buffer: %w", err)
	}
	return &quadBuffers{vertices: vs, indices: is}, nil
}

func (q *quadBuffers) draw(pass *wgpu.RenderPassEncoder) {
	pass.SetVertexBuffer(0, q.vertices, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(q.indices, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(len(quadIndices)), 1, 0, 0, 0)
}

func (q *quadBuffers) release() {
	if q.indices != nil {
		q.indices.Release()
		q.indices = nil
	}
	if q.vertices != nil {
		q.vertices.Release()
		q.vertices = nil
	}
}

// buildConvertPipeline compiles a conversion shader into a render pipeline
// with no depth attachment.
func buildConvertPipeline(dev *wgpu.Device, shaderFile, label string,
	target wgpu.TextureFormat, groups []*wgpu.BindGroupLayout) (*wgpu.RenderPipeline, error) {

	module, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource(shaderFile),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create %s shader module: %w", label, err)
	}
	defer module.Release()

	layout, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create %s pipeline layout: %w", label, err)
	}
	defer layout.Release()

	pipeline, err := dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
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
					Format:    target,
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

// yuvToRGBAConverter turns three planar YUV textures into one RGBA
// texture in a single render pass. Linear sampling of the chroma planes
// at luma resolution performs the upsampling.
type yuvToRGBAConverter struct {
	pipeline *wgpu.RenderPipeline
}

func newYUVToRGBAConverter(dev *wgpu.Device, yuvLayout, samplerLayout *wgpu.BindGroupLayout) (*yuvToRGBAConverter, error) {
	pipeline, err := buildConvertPipeline(dev, "yuv_to_rgba.wgsl", "yuv to rgba",
		wgpu.TextureFormatRGBA8Unorm, []*wgpu.BindGroupLayout{yuvLayout, samplerLayout})
	if err != nil {
		return nil, err
	}
	return &yuvToRGBAConverter{pipeline: pipeline}, nil
}

// convert records the conversion pass into enc.
func (c *yuvToRGBAConverter) convert(enc *wgpu.CommandEncoder, quad *quadBuffers,
	yuv *wgpu.BindGroup, sampler *wgpu.BindGroup, dst *Texture) {

	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "yuv to rgba pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       dst.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, yuv, nil)
	pass.SetBindGroup(1, sampler, nil)
	quad.draw(pass)
	pass.End()
	pass.Release()
}

func (c *yuvToRGBAConverter) release() {
	if c.pipeline != nil {
		c.pipeline.Release()
		c.pipeline = nil
	}
}

// rgbaToYUVConverter turns the RGBA render target into planar YUV, one
// render pass per plane. Each pass renders at the plane's own resolution,
// so chroma subsampling falls out of linear sampling. Plane selection is a
// small uniform, one immutable buffer per plane.
type rgbaToYUVConverter struct {
	pipeline   *wgpu.RenderPipeline
	planeBufs  [format.PlaneCount]*wgpu.Buffer
	planeBinds [format.PlaneCount]*wgpu.BindGroup
}

func newRGBAToYUVConverter(dev *wgpu.Device,
	singleLayout, samplerLayout, uniformLayout *wgpu.BindGroupLayout) (*rgbaToYUVConverter, error) {

	pipeline, err := buildConvertPipeline(dev, "rgba_to_yuv.wgsl", "rgba to yuv",
		wgpu.TextureFormatR8Unorm,
		[]*wgpu.BindGroupLayout{singleLayout, samplerLayout, uniformLayout})
	if err != nil {
		return nil, err
	}
	c := &rgbaToYUVConverter{pipeline: pipeline}
	for p := 0; p < format.PlaneCount; p++ {
		block := make([]byte, uniformBlockSize)
		copy(block, u32Bytes(uint32(p)))
		buf, err := dev.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    "plane selector",
			Contents: block,
			Usage:    wgpu.BufferUsageUniform,
		})
		if err != nil {
			c.release()
			return nil, fmt.Errorf("compositor: create plane selector: %w", err)
		}
		c.planeBufs[p] = buf
		bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "plane selector",
			Layout: uniformLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: buf, Offset: 0, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			c.release()
			return nil, fmt.Errorf("compositor: create plane selector bind group: %w", err)
		}
		c.planeBinds[p] = bg
	}
	return c, nil
}

// convertPlane records the pass extracting plane p of src into dst.
func (c *rgbaToYUVConverter) convertPlane(enc *wgpu.CommandEncoder, quad *quadBuffers,
	src *wgpu.BindGroup, sampler *wgpu.BindGroup, p format.Plane, dst *wgpu.TextureView) {

	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "rgba to yuv pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       dst,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, src, nil)
	pass.SetBindGroup(1, sampler, nil)
	pass.SetBindGroup(2, c.planeBinds[p], nil)
	quad.draw(pass)
	pass.End()
	pass.Release()
}

func (c *rgbaToYUVConverter) release() {
	for i := range c.planeBinds {
		if c.planeBinds[i] != nil {
			c.planeBinds[i].Release()
			c.planeBinds[i] = nil
		}
		if c.planeBufs[i] != nil {
			c.planeBufs[i].Release()
			c.planeBufs[i] = nil
		}
	}
	if c.pipeline != nil {
		c.pipeline.Release()
		c.pipeline = nil
	}
}
