package compositor

import "github.com/cogentcore/webgpu/wgpu"

// streamFrame pairs a converted frame texture with its presentation
// timestamp and the bind group the compositing pass draws it with.
type streamFrame struct {
	pts       uint64
	tex       *Texture
	bindGroup *wgpu.BindGroup
}

func (f *streamFrame) release() {
	if f.bindGroup != nil {
		f.bindGroup.Release()
		f.bindGroup = nil
	}
	f.tex.Release()
	f.tex = nil
}

// window is the half-open pts interval [start, end) that decides which
// buffered frame of a stream is current for a tick. A nil bound is
// unbounded; the first tick of a session uses a fully unbounded window.
type window struct {
	start *uint64
	end   *uint64
}

func (w window) contains(pts uint64) bool {
	if w.start != nil && pts < *w.start {
		return false
	}
	if w.end != nil && pts >= *w.end {
		return false
	}
	return true
}

// frameQueue is a FIFO of frames in non-decreasing pts order. The pts
// invariant is enforced at push time; window selection and retirement are
// pure so they can be tested without a GPU.
type frameQueue struct {
	frames  []streamFrame
	lastPTS *uint64
}

// push appends a frame. A pts lower than the previously pushed frame's is
// a caller logic error and is rejected, not corrected.
func (q *frameQueue) push(f streamFrame) error {
	if q.lastPTS != nil && f.pts < *q.lastPTS {
		return NonMonotonicPTSError{Last: *q.lastPTS, Got: f.pts}
	}
	pts := f.pts
	q.lastPTS = &pts
	q.frames = append(q.frames, f)
	return nil
}

// frontPTS returns the timestamp of the oldest un-retired frame. The
// second result is false when the queue is empty (stream starved).
func (q *frameQueue) frontPTS() (uint64, bool) {
	if len(q.frames) == 0 {
		return 0, false
	}
	return q.frames[0].pts, true
}

// front returns the oldest un-retired frame without removing it.
func (q *frameQueue) front() (*streamFrame, bool) {
	if len(q.frames) == 0 {
		return nil, false
	}
	return &q.frames[0], true
}

// dropBefore retires frames with pts strictly before start, releasing
// their GPU resources, and returns how many were dropped.
func (q *frameQueue) dropBefore(start uint64) int {
	n := 0
	for len(q.frames) > 0 && q.frames[0].pts < start {
		q.frames[0].release()
		q.frames = q.frames[1:]
		n++
	}
	return n
}

// len returns the number of buffered frames.
func (q *frameQueue) len() int { return len(q.frames) }

// releaseAll drops every buffered frame.
func (q *frameQueue) releaseAll() {
	for i := range q.frames {
		q.frames[i].release()
	}
	q.frames = nil
}
