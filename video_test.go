package compositor

import (
	"errors"
	"testing"

	"github.com/gogpu/compositor/internal/format"
)

func TestFrameratePeriod(t *testing.T) {
	tests := []struct {
		r    Framerate
		unit uint64
		want uint64
	}{
		{Framerate{Num: 30, Den: 1}, 1000, 33},
		{Framerate{Num: 25, Den: 1}, 1000, 40},
		{Framerate{Num: 30000, Den: 1001}, 90000, 3003},
		{Framerate{Num: 60, Den: 1}, 90000, 1500},
	}
	for _, tt := range tests {
		if got := tt.r.FramePeriod(tt.unit); got != tt.want {
			t.Errorf("%d/%d FramePeriod(%d) = %d, want %d",
				tt.r.Num, tt.r.Den, tt.unit, got, tt.want)
		}
	}
}

func TestVideoFormatValidate(t *testing.T) {
	good := VideoFormat{
		Width: 640, Height: 480,
		PixelFormat: format.I420,
		Framerate:   Framerate{Num: 30, Den: 1},
	}
	if err := good.validate(); err != nil {
		t.Fatalf("validate() = %v, want nil", err)
	}

	t.Run("unsupported format", func(t *testing.T) {
		f := good
		f.PixelFormat = format.Invalid
		var unsupported UnsupportedPixelFormatError
		if err := f.validate(); !errors.As(err, &unsupported) {
			t.Errorf("validate() = %v, want UnsupportedPixelFormatError", err)
		}
	})

	t.Run("odd resolution", func(t *testing.T) {
		f := good
		f.Width = 641
		var badRes BadVideoResolutionError
		err := f.validate()
		if !errors.As(err, &badRes) {
			t.Fatalf("validate() = %v, want BadVideoResolutionError", err)
		}
		if badRes.Width != 641 || badRes.Height != 480 {
			t.Errorf("error = %+v, want 641x480", badRes)
		}
	})

	t.Run("zero framerate", func(t *testing.T) {
		f := good
		f.Framerate = Framerate{}
		if err := f.validate(); !errors.Is(err, ErrBadFramerate) {
			t.Errorf("validate() = %v, want ErrBadFramerate", err)
		}
	})
}

func TestVideoFormatFrameSize(t *testing.T) {
	f := VideoFormat{
		Width: 640, Height: 480,
		PixelFormat: format.I420,
		Framerate:   Framerate{Num: 30, Den: 1},
	}
	if got := f.FrameSize(); got != 460800 {
		t.Errorf("FrameSize() = %d, want 460800", got)
	}
}
