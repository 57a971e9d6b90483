package compositor

import "testing"

func TestNDCMapping(t *testing.T) {
	if got := ndcX(0, 1280); got != -1 {
		t.Errorf("ndcX(0) = %v, want -1", got)
	}
	if got := ndcX(1280, 1280); got != 1 {
		t.Errorf("ndcX(1280) = %v, want 1", got)
	}
	if got := ndcY(0, 720); got != 1 {
		t.Errorf("ndcY(0) = %v, want 1", got)
	}
	if got := ndcY(720, 720); got != -1 {
		t.Errorf("ndcY(720) = %v, want -1", got)
	}
	if got := ndcX(640, 1280); got != 0 {
		t.Errorf("ndcX(640) = %v, want 0", got)
	}
}

func TestPlacementVerticesFullCanvas(t *testing.T) {
	p := Placement{X: 0, Y: 0, Z: 0.25, Scale: 1}
	vs := placementVertices(p, 1280, 720, 1280, 720)
	want := fullscreenVertices()
	for i := range vs {
		if vs[i].texCoords != want[i].texCoords {
			t.Errorf("vertex %d texCoords = %v, want %v", i, vs[i].texCoords, want[i].texCoords)
		}
		if vs[i].position[0] != want[i].position[0] || vs[i].position[1] != want[i].position[1] {
			t.Errorf("vertex %d position = %v, want xy of %v", i, vs[i].position, want[i].position)
		}
		if vs[i].position[2] != 0.25 {
			t.Errorf("vertex %d depth = %v, want 0.25", i, vs[i].position[2])
		}
	}
}

func TestPlacementVerticesScaledOffset(t *testing.T) {
	// A 320x240 stream at (320, 120), scale 2, covers [320,960)x[120,600)
	// on a 1280x720 canvas.
	p := Placement{X: 320, Y: 120, Z: 0, Scale: 2}
	vs := placementVertices(p, 320, 240, 1280, 720)

	x0, y0 := vs[0].position[0], vs[0].position[1] // top-left
	x1, y1 := vs[2].position[0], vs[2].position[1] // bottom-right
	if x0 != ndcX(320, 1280) || y0 != ndcY(120, 720) {
		t.Errorf("top-left = (%v, %v), want (%v, %v)", x0, y0, ndcX(320, 1280), ndcY(120, 720))
	}
	if x1 != ndcX(960, 1280) || y1 != ndcY(600, 720) {
		t.Errorf("bottom-right = (%v, %v), want (%v, %v)", x1, y1, ndcX(960, 1280), ndcY(600, 720))
	}
}

func TestVertexBytesLayout(t *testing.T) {
	b := vertexBytes(fullscreenVertices())
	if len(b) != 4*vertexStride {
		t.Fatalf("len = %d, want %d", len(b), 4*vertexStride)
	}
	// First vertex is (-1, 1, 0): -1 is 0xBF800000 little-endian.
	if b[0] != 0x00 || b[1] != 0x00 || b[2] != 0x80 || b[3] != 0xBF {
		t.Errorf("first float bytes = % X, want 00 00 80 BF", b[:4])
	}
}

func TestIndexBytes(t *testing.T) {
	b := indexBytes(quadIndices)
	if len(b) != len(quadIndices)*2 {
		t.Fatalf("len = %d, want %d", len(b), len(quadIndices)*2)
	}
	if b[0] != 0 || b[2] != 1 || b[4] != 2 {
		t.Errorf("first triangle = %v, want 0 1 2", []byte{b[0], b[2], b[4]})
	}
}
