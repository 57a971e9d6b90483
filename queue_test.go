package compositor

import (
	"errors"
	"testing"
)

func u64(v uint64) *uint64 { return &v }

func TestFrameQueuePushMonotonic(t *testing.T) {
	var q frameQueue
	for _, pts := range []uint64{0, 33, 33, 66} {
		if err := q.push(streamFrame{pts: pts}); err != nil {
			t.Fatalf("push(%d): %v", pts, err)
		}
	}
	var nonMono NonMonotonicPTSError
	err := q.push(streamFrame{pts: 50})
	if !errors.As(err, &nonMono) {
		t.Fatalf("push(50) = %v, want NonMonotonicPTSError", err)
	}
	if nonMono.Last != 66 || nonMono.Got != 50 {
		t.Errorf("error = %+v, want Last=66 Got=50", nonMono)
	}
	if q.len() != 4 {
		t.Errorf("len = %d after rejected push, want 4", q.len())
	}
}

func TestFrameQueueFront(t *testing.T) {
	var q frameQueue
	if _, ok := q.frontPTS(); ok {
		t.Fatal("frontPTS on empty queue reported a frame")
	}
	for _, pts := range []uint64{10, 20, 30} {
		if err := q.push(streamFrame{pts: pts}); err != nil {
			t.Fatalf("push(%d): %v", pts, err)
		}
	}
	if pts, ok := q.frontPTS(); !ok || pts != 10 {
		t.Errorf("frontPTS = %d, %v, want 10, true", pts, ok)
	}
}

func TestFrameQueueDropBefore(t *testing.T) {
	var q frameQueue
	for _, pts := range []uint64{10, 20, 30, 40} {
		if err := q.push(streamFrame{pts: pts}); err != nil {
			t.Fatalf("push(%d): %v", pts, err)
		}
	}
	if n := q.dropBefore(30); n != 2 {
		t.Errorf("dropBefore(30) = %d, want 2", n)
	}
	if pts, _ := q.frontPTS(); pts != 30 {
		t.Errorf("frontPTS after drop = %d, want 30", pts)
	}
	if n := q.dropBefore(30); n != 0 {
		t.Errorf("dropBefore(30) again = %d, want 0", n)
	}
	if n := q.dropBefore(100); n != 2 {
		t.Errorf("dropBefore(100) = %d, want 2", n)
	}
	if q.len() != 0 {
		t.Errorf("len = %d, want 0", q.len())
	}
}

func TestWindowContains(t *testing.T) {
	tests := []struct {
		name string
		win  window
		pts  uint64
		want bool
	}{
		{"unbounded", window{}, 12345, true},
		{"inside", window{start: u64(10), end: u64(20)}, 15, true},
		{"at start", window{start: u64(10), end: u64(20)}, 10, true},
		{"at end", window{start: u64(10), end: u64(20)}, 20, false},
		{"before", window{start: u64(10), end: u64(20)}, 9, false},
		{"no upper bound", window{start: u64(10)}, 1 << 40, true},
		{"no lower bound", window{end: u64(20)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.win.contains(tt.pts); got != tt.want {
				t.Errorf("contains(%d) = %v, want %v", tt.pts, got, tt.want)
			}
		})
	}
}

func TestFrameQueueReleaseAll(t *testing.T) {
	var q frameQueue
	for _, pts := range []uint64{1, 2, 3} {
		if err := q.push(streamFrame{pts: pts}); err != nil {
			t.Fatalf("push(%d): %v", pts, err)
		}
	}
	q.releaseAll()
	if q.len() != 0 {
		t.Errorf("len = %d after releaseAll, want 0", q.len())
	}
	// lastPTS survives a flush: the monotonicity contract spans the
	// stream's whole lifetime, not the buffer's.
	if err := q.push(streamFrame{pts: 2}); err == nil {
		t.Error("push(2) after releaseAll succeeded, want monotonicity error")
	}
}
