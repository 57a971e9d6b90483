package compositor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is an RGBA frame texture owned by the compositor: the converted
// form of an uploaded frame, or the product of a transformation. It is the
// currency of transformation chains.
type Texture struct {
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	width  uint32
	height uint32
}

// Size returns the texture dimensions in texels.
func (t *Texture) Size() (w, h uint32) { return t.width, t.height }

// View returns the texture view for binding.
func (t *Texture) View() *wgpu.TextureView { return t.view }

// Release frees the GPU resources. Safe on nil.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// newFrameTexture allocates an RGBA8 texture usable both as a render
// target (conversion and transformation passes write into it) and as a
// sampled texture (the compositing pass reads from it).
func newFrameTexture(dev *wgpu.Device, label string, w, h uint32) (*Texture, error) {
	tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              w,
			Height:             h,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: create %s texture: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("compositor: create %s texture view: %w", label, err)
	}
	return &Texture{tex: tex, view: view, width: w, height: h}, nil
}
