package compositor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/compositor/internal/format"
)

// planeTarget is one output plane: an R8 render target plus the mappable
// staging buffer its contents are read back through. Staging rows are
// padded to the copy alignment the device requires; download strips the
// padding again.
type planeTarget struct {
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	staging *wgpu.Buffer

	width, height uint32
	paddedRow     uint32
}

// outputTarget owns the composited RGBA render target, the depth buffer
// used for z-ordering, and the per-plane conversion and readback
// resources, all sized to the output resolution.
type outputTarget struct {
	format VideoFormat

	rgba     *Texture
	rgbaBind *wgpu.BindGroup

	depthTex  *wgpu.Texture
	depthView *wgpu.TextureView

	planes [format.PlaneCount]*planeTarget
}

// paddedBytesPerRow rounds a tightly-packed row up to the buffer copy
// alignment.
func paddedBytesPerRow(row uint32) uint32 {
	align := uint32(wgpu.CopyBytesPerRowAlignment)
	return (row + align - 1) / align * align
}

func newOutputTarget(dev *wgpu.Device, f VideoFormat, singleLayout *wgpu.BindGroupLayout) (*outputTarget, error) {
	o := &outputTarget{format: f}

	rgba, err := newFrameTexture(dev, "output", f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	o.rgba = rgba

	rgbaBind, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "output",
		Layout: singleLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: rgba.view},
		},
	})
	if err != nil {
		o.release()
		return nil, fmt.Errorf("compositor: create output bind group: %w", err)
	}
	o.rgbaBind = rgbaBind

	depthTex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "depth",
		Size: wgpu.Extent3D{
			Width:              f.Width,
			Height:             f.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		o.release()
		return nil, fmt.Errorf("compositor: create depth texture: %w", err)
	}
	o.depthTex = depthTex
	depthView, err := depthTex.CreateView(nil)
	if err != nil {
		o.release()
		return nil, fmt.Errorf("compositor: create depth view: %w", err)
	}
	o.depthView = depthView

	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pw, ph := f.PixelFormat.PlaneDims(p, f.Width, f.Height)
		pt := &planeTarget{width: pw, height: ph, paddedRow: paddedBytesPerRow(pw)}

		tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
			Label: "output plane",
			Size: wgpu.Extent3D{
				Width:              pw,
				Height:             ph,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        wgpu.TextureFormatR8Unorm,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		})
		if err != nil {
			o.release()
			return nil, fmt.Errorf("compositor: create output plane texture: %w", err)
		}
		pt.tex = tex
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			o.release()
			return nil, fmt.Errorf("compositor: create output plane view: %w", err)
		}
		pt.view = view

		staging, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "output plane staging",
			Size:  uint64(pt.paddedRow) * uint64(ph),
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			o.release()
			return nil, fmt.Errorf("compositor: create output staging buffer: %w", err)
		}
		pt.staging = staging
		o.planes[p] = pt
	}
	return o, nil
}

// convertToOutputFormat records the RGBA to planar conversion passes and
// the texture-to-staging copies into enc.
func (o *outputTarget) convertToOutputFormat(enc *wgpu.CommandEncoder, quad *quadBuffers,
	conv *rgbaToYUVConverter, sampler *wgpu.BindGroup) {

	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pt := o.planes[p]
		conv.convertPlane(enc, quad, o.rgbaBind, sampler, p, pt.view)
		enc.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{
				Texture:  pt.tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			&wgpu.ImageCopyBuffer{
				Buffer: pt.staging,
				Layout: wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  pt.paddedRow,
					RowsPerImage: pt.height,
				},
			},
			&wgpu.Extent3D{
				Width:              pt.width,
				Height:             pt.height,
				DepthOrArrayLayers: 1,
			},
		)
	}
}

// download waits for the GPU to finish writing the staging buffers, then
// copies them into dst with the row padding stripped, so dst is tightly
// packed. dst must be exactly one output frame long.
func (o *outputTarget) download(dev *wgpu.Device, dst []byte) error {
	if want := o.format.FrameSize(); len(dst) != want {
		return BufferSizeError{Want: want, Got: len(dst)}
	}
	off := 0
	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pt := o.planes[p]
		size := uint64(pt.paddedRow) * uint64(pt.height)

		var status wgpu.BufferMapAsyncStatus
		err := pt.staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
			status = s
		})
		if err != nil {
			return fmt.Errorf("compositor: map staging buffer: %w", err)
		}
		// This is the tick's one genuine wait: block until the queue has
		// drained and the mapping callback has run.
		dev.Poll(true, nil)
		if status != wgpu.BufferMapAsyncStatusSuccess {
			return fmt.Errorf("compositor: map staging buffer: status %v", status)
		}

		data := pt.staging.GetMappedRange(0, uint(size))
		for row := uint32(0); row < pt.height; row++ {
			src := data[row*pt.paddedRow : row*pt.paddedRow+pt.width]
			copy(dst[off:off+int(pt.width)], src)
			off += int(pt.width)
		}
		pt.staging.Unmap()
	}
	return nil
}

func (o *outputTarget) release() {
	for p := range o.planes {
		pt := o.planes[p]
		if pt == nil {
			continue
		}
		if pt.staging != nil {
			pt.staging.Release()
		}
		if pt.view != nil {
			pt.view.Release()
		}
		if pt.tex != nil {
			pt.tex.Release()
		}
		o.planes[p] = nil
	}
	if o.depthView != nil {
		o.depthView.Release()
		o.depthView = nil
	}
	if o.depthTex != nil {
		o.depthTex.Release()
		o.depthTex = nil
	}
	if o.rgbaBind != nil {
		o.rgbaBind.Release()
		o.rgbaBind = nil
	}
	o.rgba.Release()
	o.rgba = nil
}
