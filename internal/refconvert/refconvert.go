// Package refconvert is a CPU reference for the GPU colour conversion:
// packed RGBA to planar YUV and back, with chroma resampling, using the
// same BT.601 full-range matrix as the shaders. It exists for tests, as an
// oracle the GPU output is compared against, and makes no attempt at
// speed.
package refconvert

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor/internal/format"
)

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// yuv converts one full-range RGB pixel. U and V are centred on 128.
func yuv(r, g, b uint8) (y, u, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	y = clamp8(0.299*rf + 0.587*gf + 0.114*bf)
	u = clamp8(-0.168736*rf - 0.331264*gf + 0.5*bf + 128)
	v = clamp8(0.5*rf - 0.418688*gf - 0.081312*bf + 128)
	return
}

// rgb is the inverse of yuv.
func rgb(y, u, v uint8) (r, g, b uint8) {
	yf := float64(y)
	uf := float64(u) - 128
	vf := float64(v) - 128
	r = clamp8(yf + 1.402*vf)
	g = clamp8(yf - 0.344136*uf - 0.714136*vf)
	b = clamp8(yf + 1.772*vf)
	return
}

// resample scales a single-channel plane to the given size with bilinear
// filtering, mirroring what linear texture sampling does on the GPU.
func resample(src *image.Gray, w, h int) *image.Gray {
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// RGBAToPlanar converts an RGBA image into one tightly packed planar YUV
// frame in the given pixel format. Chroma is computed at full resolution
// and downsampled to the format's plane geometry.
func RGBAToPlanar(img *image.RGBA, pf format.PixelFormat) ([]byte, error) {
	w := uint32(img.Bounds().Dx())
	h := uint32(img.Bounds().Dy())
	if !pf.ValidResolution(w, h) {
		return nil, fmt.Errorf("refconvert: %dx%d is not valid for %s", w, h, pf)
	}

	full := image.Rect(0, 0, int(w), int(h))
	planes := [format.PlaneCount]*image.Gray{
		image.NewGray(full), image.NewGray(full), image.NewGray(full),
	}
	for py := 0; py < int(h); py++ {
		for px := 0; px < int(w); px++ {
			c := img.RGBAAt(px+img.Bounds().Min.X, py+img.Bounds().Min.Y)
			yv, uv, vv := yuv(c.R, c.G, c.B)
			planes[format.PlaneY].SetGray(px, py, color.Gray{Y: yv})
			planes[format.PlaneU].SetGray(px, py, color.Gray{Y: uv})
			planes[format.PlaneV].SetGray(px, py, color.Gray{Y: vv})
		}
	}

	out := make([]byte, 0, pf.FrameSize(w, h))
	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pw, ph := pf.PlaneDims(p, w, h)
		plane := resample(planes[p], int(pw), int(ph))
		for py := 0; py < int(ph); py++ {
			row := plane.Pix[py*plane.Stride : py*plane.Stride+int(pw)]
			out = append(out, row...)
		}
	}
	return out, nil
}

// PlanarToRGBA converts one tightly packed planar YUV frame back into an
// RGBA image. Chroma planes are upsampled to full resolution first.
func PlanarToRGBA(data []byte, pf format.PixelFormat, w, h uint32) (*image.RGBA, error) {
	if !pf.ValidResolution(w, h) {
		return nil, fmt.Errorf("refconvert: %dx%d is not valid for %s", w, h, pf)
	}
	if want := pf.FrameSize(w, h); len(data) != want {
		return nil, fmt.Errorf("refconvert: frame is %d bytes, want %d", len(data), want)
	}

	var planes [format.PlaneCount]*image.Gray
	for p := format.PlaneY; p < format.PlaneCount; p++ {
		pw, ph := pf.PlaneDims(p, w, h)
		off := pf.PlaneOffset(p, w, h)
		plane := image.NewGray(image.Rect(0, 0, int(pw), int(ph)))
		for py := 0; py < int(ph); py++ {
			copy(plane.Pix[py*plane.Stride:py*plane.Stride+int(pw)],
				data[off+py*int(pw):off+(py+1)*int(pw)])
		}
		planes[p] = resample(plane, int(w), int(h))
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for py := 0; py < int(h); py++ {
		for px := 0; px < int(w); px++ {
			r, g, b := rgb(
				planes[format.PlaneY].GrayAt(px, py).Y,
				planes[format.PlaneU].GrayAt(px, py).Y,
				planes[format.PlaneV].GrayAt(px, py).Y,
			)
			img.SetRGBA(px, py, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}
