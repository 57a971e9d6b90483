package compositor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/compositor/internal/format"
)

// inputStream owns everything one live video needs: the pts-ordered frame
// queue, the staging plane textures the raw uploads land in, and the quad
// geometry its frames are composited with. Created on AddVideo, destroyed
// on RemoveVideo.
type inputStream struct {
	format          VideoFormat
	placement       Placement
	transformations []Transformation

	queue frameQueue

	planeTextures [format.PlaneCount]*wgpu.Texture
	planeViews    [format.PlaneCount]*wgpu.TextureView
	yuvBindGroup  *wgpu.BindGroup

	vertexBuf *wgpu.Buffer
	indexBuf  *wgpu.Buffer
}

func newInputStream(st *State, f VideoFormat, cfg VideoConfig) (*inputStream, error) {
	s := &inputStream{
		format:          f,
		placement:       cfg.Placement,
		transformations: cfg.Transformations,
	}

	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pw, ph := f.PixelFormat.PlaneDims(p, f.Width, f.Height)
		tex, err := st.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "input plane",
			Size: wgpu.Extent3D{
				Width:              pw,
				Height:             ph,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        wgpu.TextureFormatR8Unorm,
			Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		})
		if err != nil {
			s.release()
			return nil, fmt.Errorf("compositor: create input plane texture: %w", err)
		}
		s.planeTextures[p] = tex
		view, err := tex.CreateView(nil)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("compositor: create input plane view: %w", err)
		}
		s.planeViews[p] = view
	}

	yuvBindGroup, err := st.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "input yuv planes",
		Layout: st.yuvTexturesLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: s.planeViews[format.PlaneY]},
			{Binding: 1, TextureView: s.planeViews[format.PlaneU]},
			{Binding: 2, TextureView: s.planeViews[format.PlaneV]},
		},
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("compositor: create input yuv bind group: %w", err)
	}
	s.yuvBindGroup = yuvBindGroup

	vb, err := st.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "stream quad vertices",
		Contents: vertexBytes(s.vertices(st.cfg)),
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("compositor: create stream vertex buffer: %w", err)
	}
	s.vertexBuf = vb

	ib, err := st.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "stream quad indices",
		Contents: indexBytes(quadIndices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("compositor: create stream index buffer: %w", err)
	}
	s.indexBuf = ib

	return s, nil
}

func (s *inputStream) vertices(out VideoFormat) [4]vertex {
	return placementVertices(s.placement, s.format.Width, s.format.Height, out.Width, out.Height)
}

// setConfig swaps the stream's placement and transformation chain and
// rewrites the quad to match. The old chain's lazily-built GPU state is
// released; a transformation that stays in the chain rebuilds it on its
// next Apply.
func (s *inputStream) setConfig(st *State, cfg VideoConfig) {
	for _, t := range s.transformations {
		if r, ok := t.(interface{ Release() }); ok {
			r.Release()
		}
	}
	s.placement = cfg.Placement
	s.transformations = cfg.Transformations
	st.queue.WriteBuffer(s.vertexBuf, 0, vertexBytes(s.vertices(st.cfg)))
}

// upload converts one raw planar frame into an RGBA texture, runs the
// transformation chain, and appends the result to the queue.
func (s *inputStream) upload(st *State, data []byte, pts uint64) error {
	f := s.format
	if want := f.FrameSize(); len(data) != want {
		return BufferSizeError{Want: want, Got: len(data)}
	}
	// Reject a pts regression before any GPU work happens.
	if s.queue.lastPTS != nil && pts < *s.queue.lastPTS {
		return NonMonotonicPTSError{Last: *s.queue.lastPTS, Got: pts}
	}

	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pw, ph := f.PixelFormat.PlaneDims(p, f.Width, f.Height)
		off := f.PixelFormat.PlaneOffset(p, f.Width, f.Height)
		size := f.PixelFormat.PlaneSize(p, f.Width, f.Height)
		st.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  s.planeTextures[p],
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			data[off:off+size],
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  pw,
				RowsPerImage: ph,
			},
			&wgpu.Extent3D{
				Width:              pw,
				Height:             ph,
				DepthOrArrayLayers: 1,
			},
		)
	}

	enc, err := st.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("compositor: create upload encoder: %w", err)
	}
	defer enc.Release()

	tex, err := newFrameTexture(st.device, "frame", f.Width, f.Height)
	if err != nil {
		return err
	}
	st.yuvToRGBA.convert(enc, st.quad, s.yuvBindGroup, st.linearSamplerBind, tex)

	tc := st.newTransformContext(enc)
	for _, t := range s.transformations {
		next, applyErr := t.Apply(tc, tex)
		if applyErr != nil {
			tc.releaseRetired()
			tex.Release()
			return fmt.Errorf("compositor: transformation %q: %w", t.Name(), applyErr)
		}
		// The previous texture is still referenced by recorded commands;
		// defer its release until after submission.
		tc.DeferRelease(tex)
		tex = next
	}

	cmd, err := enc.Finish(nil)
	if err != nil {
		tc.releaseRetired()
		tex.Release()
		return fmt.Errorf("compositor: finish upload encoder: %w", err)
	}
	st.queue.Submit(cmd)
	cmd.Release()
	tc.releaseRetired()

	bindGroup, err := st.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "frame",
		Layout: st.singleTextureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: tex.view},
		},
	})
	if err != nil {
		tex.Release()
		return fmt.Errorf("compositor: create frame bind group: %w", err)
	}

	if err := s.queue.push(streamFrame{pts: pts, tex: tex, bindGroup: bindGroup}); err != nil {
		bindGroup.Release()
		tex.Release()
		return err
	}
	st.log.Debug("frame uploaded",
		"pts", pts, "queued", s.queue.len(), "bytes", len(data))
	return nil
}

// frontPTS returns the timestamp of the oldest buffered frame.
func (s *inputStream) frontPTS() (uint64, bool) {
	return s.queue.frontPTS()
}

// draw retires frames older than the window, then draws the front frame
// if its pts lies inside the window. A stream with nothing ready this
// tick draws nothing: its previous contribution is intentionally not
// redrawn.
func (s *inputStream) draw(st *State, pass *wgpu.RenderPassEncoder, win window) (uint64, bool) {
	if win.start != nil {
		if n := s.queue.dropBefore(*win.start); n > 0 {
			st.log.Warn("stale frames retired", "count", n, "before", *win.start)
		}
	}
	f, ok := s.queue.front()
	if !ok || !win.contains(f.pts) {
		return 0, false
	}
	pass.SetBindGroup(0, f.bindGroup, nil)
	pass.SetVertexBuffer(0, s.vertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(s.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(len(quadIndices)), 1, 0, 0, 0)
	return f.pts, true
}

// release frees every GPU resource the stream owns, including buffered
// frames and lazily-built transformation state.
func (s *inputStream) release() {
	s.queue.releaseAll()
	for _, t := range s.transformations {
		if r, ok := t.(interface{ Release() }); ok {
			r.Release()
		}
	}
	if s.indexBuf != nil {
		s.indexBuf.Release()
		s.indexBuf = nil
	}
	if s.vertexBuf != nil {
		s.vertexBuf.Release()
		s.vertexBuf = nil
	}
	if s.yuvBindGroup != nil {
		s.yuvBindGroup.Release()
		s.yuvBindGroup = nil
	}
	for p := range s.planeViews {
		if s.planeViews[p] != nil {
			s.planeViews[p].Release()
			s.planeViews[p] = nil
		}
		if s.planeTextures[p] != nil {
			s.planeTextures[p].Release()
			s.planeTextures[p] = nil
		}
	}
}
