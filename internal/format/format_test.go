package format

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    PixelFormat
		wantErr bool
	}{
		{"I420", I420, false},
		{"i422", I422, false},
		{" I444 ", I444, false},
		{"NV12", Invalid, true},
		{"", Invalid, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlaneDims(t *testing.T) {
	tests := []struct {
		f      PixelFormat
		p      Plane
		w, h   uint32
		pw, ph uint32
	}{
		{I420, PlaneY, 640, 480, 640, 480},
		{I420, PlaneU, 640, 480, 320, 240},
		{I420, PlaneV, 640, 480, 320, 240},
		{I422, PlaneU, 640, 480, 320, 480},
		{I444, PlaneV, 640, 480, 640, 480},
	}
	for _, tt := range tests {
		pw, ph := tt.f.PlaneDims(tt.p, tt.w, tt.h)
		if pw != tt.pw || ph != tt.ph {
			t.Errorf("%v.PlaneDims(%v, %d, %d) = %dx%d, want %dx%d",
				tt.f, tt.p, tt.w, tt.h, pw, ph, tt.pw, tt.ph)
		}
	}
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		f    PixelFormat
		w, h uint32
		want int
	}{
		{I420, 640, 480, 640*480 + 2*320*240},
		{I422, 640, 480, 640*480 + 2*320*480},
		{I444, 640, 480, 3 * 640 * 480},
		{I420, 2, 2, 6},
	}
	for _, tt := range tests {
		if got := tt.f.FrameSize(tt.w, tt.h); got != tt.want {
			t.Errorf("%v.FrameSize(%d, %d) = %d, want %d", tt.f, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestPlaneOffset(t *testing.T) {
	// I420 640x480: Y is 307200 bytes, U is 76800.
	if got := I420.PlaneOffset(PlaneU, 640, 480); got != 307200 {
		t.Errorf("PlaneOffset(PlaneU) = %d, want 307200", got)
	}
	if got := I420.PlaneOffset(PlaneV, 640, 480); got != 307200+76800 {
		t.Errorf("PlaneOffset(PlaneV) = %d, want %d", got, 307200+76800)
	}
}

func TestValidResolution(t *testing.T) {
	tests := []struct {
		f    PixelFormat
		w, h uint32
		want bool
	}{
		{I420, 640, 480, true},
		{I420, 641, 480, false},
		{I420, 640, 481, false},
		{I422, 641, 480, false},
		{I422, 640, 481, true},
		{I444, 641, 481, true},
		{I444, 0, 480, false},
		{I420, 640, 0, false},
	}
	for _, tt := range tests {
		if got := tt.f.ValidResolution(tt.w, tt.h); got != tt.want {
			t.Errorf("%v.ValidResolution(%d, %d) = %v, want %v", tt.f, tt.w, tt.h, got, tt.want)
		}
	}
}
