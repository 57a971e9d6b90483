// Package format describes the planar pixel formats the compositor accepts
// and emits, and the plane geometry that follows from them.
package format

import (
	"fmt"
	"strings"
)

// PixelFormat identifies a planar 8-bit YUV layout. The zero value is
// invalid so that an unset configuration field cannot pass validation.
type PixelFormat uint8

const (
	// Invalid is the zero PixelFormat.
	Invalid PixelFormat = iota

	// I420 is 4:2:0 planar: full-resolution luma followed by two chroma
	// planes at half resolution in both dimensions.
	I420

	// I422 is 4:2:2 planar: chroma at half horizontal resolution.
	I422

	// I444 is 4:4:4 planar: all three planes at full resolution.
	I444
)

// Plane indexes the three planes of a planar frame.
type Plane int

const (
	PlaneY Plane = iota
	PlaneU
	PlaneV
)

// PlaneCount is the number of planes in every supported format.
const PlaneCount = 3

// String returns the conventional name of the format.
func (f PixelFormat) String() string {
	switch f {
	case I420:
		return "I420"
	case I422:
		return "I422"
	case I444:
		return "I444"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// Parse converts a config string such as "I420" into a PixelFormat.
func Parse(s string) (PixelFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "I420":
		return I420, nil
	case "I422":
		return I422, nil
	case "I444":
		return I444, nil
	default:
		return Invalid, fmt.Errorf("format: unknown pixel format %q", s)
	}
}

// Valid reports whether f is one of the supported formats.
func (f PixelFormat) Valid() bool {
	return f == I420 || f == I422 || f == I444
}

// chromaShift returns the horizontal and vertical subsampling shifts.
func (f PixelFormat) chromaShift() (x, y uint32) {
	switch f {
	case I420:
		return 1, 1
	case I422:
		return 1, 0
	default:
		return 0, 0
	}
}

// PlaneDims returns the dimensions of plane p for a frame of w x h.
func (f PixelFormat) PlaneDims(p Plane, w, h uint32) (pw, ph uint32) {
	if p == PlaneY {
		return w, h
	}
	sx, sy := f.chromaShift()
	return w >> sx, h >> sy
}

// PlaneSize returns the byte size of plane p for a frame of w x h.
func (f PixelFormat) PlaneSize(p Plane, w, h uint32) int {
	pw, ph := f.PlaneDims(p, w, h)
	return int(pw) * int(ph)
}

// PlaneOffset returns the byte offset of plane p inside a tightly packed
// frame of w x h.
func (f PixelFormat) PlaneOffset(p Plane, w, h uint32) int {
	off := 0
	for q := PlaneY; q < p; q++ {
		off += f.PlaneSize(q, w, h)
	}
	return off
}

// FrameSize returns the total byte size of a tightly packed frame.
func (f PixelFormat) FrameSize(w, h uint32) int {
	n := 0
	for p := PlaneY; p < PlaneCount; p++ {
		n += f.PlaneSize(p, w, h)
	}
	return n
}

// ValidResolution reports whether w x h is non-zero and divisible per the
// format's chroma subsampling, so every plane has integer dimensions.
func (f PixelFormat) ValidResolution(w, h uint32) bool {
	if w == 0 || h == 0 {
		return false
	}
	sx, sy := f.chromaShift()
	return w%(1<<sx) == 0 && h%(1<<sy) == 0
}
