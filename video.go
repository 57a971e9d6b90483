package compositor

import "github.com/gogpu/compositor/internal/format"

// VideoID is the opaque key a stream is known by. A stream is active iff
// the same id is present in both the scene and the live stream set; State
// keeps the two in sync and SetScene rejects a mismatch.
type VideoID uint32

// Framerate is a rational frames-per-second value, e.g. 30/1 or 30000/1001.
type Framerate struct {
	Num uint64
	Den uint64
}

// FramePeriod returns the duration of one frame in units of unit ticks per
// second (e.g. unit=1000 for millisecond pts, unit=90000 for MPEG pts).
func (r Framerate) FramePeriod(unit uint64) uint64 {
	return unit * r.Den / r.Num
}

func (r Framerate) validate() error {
	if r.Num == 0 || r.Den == 0 {
		return ErrBadFramerate
	}
	return nil
}

// VideoFormat declares the raw-frame geometry of one stream or of the
// output: resolution, planar pixel format and nominal framerate. It is
// declared once at setup and validated before any GPU resource is created.
type VideoFormat struct {
	Width       uint32
	Height      uint32
	PixelFormat format.PixelFormat
	Framerate   Framerate
}

// FrameSize returns the byte size of one tightly packed frame.
func (f VideoFormat) FrameSize() int {
	return f.PixelFormat.FrameSize(f.Width, f.Height)
}

func (f VideoFormat) validate() error {
	if !f.PixelFormat.Valid() {
		return UnsupportedPixelFormatError{Format: f.PixelFormat}
	}
	if !f.PixelFormat.ValidResolution(f.Width, f.Height) {
		return BadVideoResolutionError{Width: f.Width, Height: f.Height}
	}
	return f.Framerate.validate()
}
