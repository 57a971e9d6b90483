// Package compositor composes multiple independently-timed raw video
// streams into a single output stream on the GPU.
//
// # Overview
//
// Producers push decoded planar YUV frames per video id, and at a fixed
// output cadence the compositor emits one composed frame as a byte buffer.
// Each stream is buffered as a queue of (pts, texture) pairs; a tick drains
// one ready frame per stream, draws it as a positioned, depth-ordered,
// colour-converted quad, and reads the result back in the configured output
// pixel format. All pixel-format conversion (planar YUV to packed RGBA and
// the inverse, including chroma resampling) runs on the GPU.
//
// # Quick Start
//
//	cfg := compositor.VideoFormat{
//	    Width: 1280, Height: 720,
//	    PixelFormat: format.I420,
//	    Framerate:   compositor.Framerate{Num: 30, Den: 1},
//	}
//	st, err := compositor.New(cfg)
//	if err != nil {
//	    // no usable adapter, out of device memory, ...
//	}
//	defer st.Close()
//
//	st.AddVideo(0, streamFormat, compositor.VideoConfig{
//	    Placement: compositor.Placement{X: 0, Y: 0, Z: 0, Scale: 1},
//	})
//
//	st.UploadFrame(0, frame, pts)
//	if st.AllFramesReady(framePeriod) {
//	    out := make([]byte, cfg.FrameSize())
//	    pts, err := st.DrawInto(ctx, out)
//	    ...
//	}
//
// # Synchronization model
//
// Streams produce frames at different, possibly drifting rates. The
// compositor reconciles them with a half-open synchronization window
// [last_pts, last_pts+frame_period): AllFramesReady reports whether every
// active stream has a frame inside the window, and DrawInto advances
// last_pts to the maximum timestamp it drew. A starved stream simply keeps
// AllFramesReady false; eviction policy belongs to the caller.
//
// Operations on a single State must be serialized by the caller. DrawInto
// is the single suspension point: command submission is asynchronous, but
// the final readback waits for the GPU to finish writing the staging
// buffers. DrawIntoAsync moves that wait onto a separate goroutine.
//
// # Transformations
//
// Per-video effect chains are polymorphic over the Transformation
// interface (consume one texture, produce one texture). Third-party
// effects register a TransformationFactory in a Registry; key consistency
// is checked when a chain is built, never on the draw path.
package compositor
