package compositor

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/internal/format"
)

// The error taxonomy surfaced at the boundary. Parameterless conditions are
// sentinel values usable with errors.Is; parameterized ones are typed errors
// usable with errors.As. All are returned as values, never panics: the only
// conditions treated as unrecoverable are memory-safety violations inside
// the GPU runtime itself.
var (
	// ErrNotImplemented reports a requested capability this build does not
	// provide.
	ErrNotImplemented = errors.New("compositor: function not implemented")

	// ErrBadFramerate reports a framerate with a zero numerator or
	// denominator.
	ErrBadFramerate = errors.New("compositor: bad framerate")

	// ErrBadPlacement reports a placement with Z outside [0, 1] or a
	// non-positive scale.
	ErrBadPlacement = errors.New("compositor: bad placement")

	// ErrDifferentVideoIndexes reports that the scene and the live stream
	// set disagree on which video ids exist.
	ErrDifferentVideoIndexes = errors.New("compositor: stream and scene video indexes are different")
)

// BadVideoIndexError reports an operation on a video id with no live
// stream. Non-fatal: the tick in progress is otherwise unaffected.
type BadVideoIndexError struct {
	Index VideoID
}

func (e BadVideoIndexError) Error() string {
	return fmt.Sprintf("compositor: bad video index: %d", e.Index)
}

// VideoIndexAlreadyTakenError reports an AddVideo for an id that already
// has a live stream. The original stream is unaffected.
type VideoIndexAlreadyTakenError struct {
	Index VideoID
}

func (e VideoIndexAlreadyTakenError) Error() string {
	return fmt.Sprintf("compositor: video index %d is already taken", e.Index)
}

// BadVideoResolutionError reports a resolution that is zero-sized or not
// divisible per the pixel format's chroma subsampling.
type BadVideoResolutionError struct {
	Width, Height uint32
}

func (e BadVideoResolutionError) Error() string {
	return fmt.Sprintf("compositor: bad video resolution: %dx%d", e.Width, e.Height)
}

// UnsupportedPixelFormatError reports a pixel format outside the supported
// planar set.
type UnsupportedPixelFormatError struct {
	Format format.PixelFormat
}

func (e UnsupportedPixelFormatError) Error() string {
	return fmt.Sprintf("compositor: unsupported pixel format: %s", e.Format)
}

// NonMonotonicPTSError reports an upload whose pts precedes the previously
// uploaded frame of the same stream. This is a caller logic error; it is
// surfaced rather than silently corrected.
type NonMonotonicPTSError struct {
	Last, Got uint64
}

func (e NonMonotonicPTSError) Error() string {
	return fmt.Sprintf("compositor: non-monotonic pts: %d after %d", e.Got, e.Last)
}

// BufferSizeError reports a frame buffer whose length does not match
// width x height x bytes-per-pixel for the declared format.
type BufferSizeError struct {
	Want, Got int
}

func (e BufferSizeError) Error() string {
	return fmt.Sprintf("compositor: frame buffer is %d bytes, want %d", e.Got, e.Want)
}
