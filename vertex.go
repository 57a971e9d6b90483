package compositor

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertex matches the vertex input of every shader in this package:
// clip-space position and texture coordinates.
type vertex struct {
	position  [3]float32
	texCoords [2]float32
}

// vertexStride is the byte size of one vertex in the vertex buffer.
const vertexStride = 5 * 4

// quadIndices triangulates a quad laid out top-left, bottom-left,
// bottom-right, top-right. Both triangles wind counter-clockwise in NDC,
// matching the pipeline's CCW front face with back culling.
var quadIndices = []uint16{0, 1, 2, 0, 2, 3}

// ndcX maps an output-canvas x coordinate in pixels to clip space.
func ndcX(px float64, outW uint32) float32 {
	return float32(2*px/float64(outW) - 1)
}

// ndcY maps an output-canvas y coordinate in pixels to clip space.
// Canvas y grows downward, NDC y grows upward.
func ndcY(py float64, outH uint32) float32 {
	return float32(1 - 2*py/float64(outH))
}

// placementVertices builds the quad for a stream of streamW x streamH
// placed on an outW x outH canvas. The quad's depth is the placement Z.
func placementVertices(p Placement, streamW, streamH, outW, outH uint32) [4]vertex {
	w := float64(streamW) * p.Scale
	h := float64(streamH) * p.Scale
	x0 := ndcX(float64(p.X), outW)
	y0 := ndcY(float64(p.Y), outH)
	x1 := ndcX(float64(p.X)+w, outW)
	y1 := ndcY(float64(p.Y)+h, outH)
	return [4]vertex{
		{position: [3]float32{x0, y0, p.Z}, texCoords: [2]float32{0, 0}},
		{position: [3]float32{x0, y1, p.Z}, texCoords: [2]float32{0, 1}},
		{position: [3]float32{x1, y1, p.Z}, texCoords: [2]float32{1, 1}},
		{position: [3]float32{x1, y0, p.Z}, texCoords: [2]float32{1, 0}},
	}
}

// fullscreenVertices is the clip-space quad used by conversion and
// transformation passes.
func fullscreenVertices() [4]vertex {
	return [4]vertex{
		{position: [3]float32{-1, 1, 0}, texCoords: [2]float32{0, 0}},
		{position: [3]float32{-1, -1, 0}, texCoords: [2]float32{0, 1}},
		{position: [3]float32{1, -1, 0}, texCoords: [2]float32{1, 1}},
		{position: [3]float32{1, 1, 0}, texCoords: [2]float32{1, 0}},
	}
}

// vertexBytes encodes vertices as little-endian float32s, the layout the
// vertex buffer declares.
func vertexBytes(vs [4]vertex) []byte {
	out := make([]byte, 0, len(vs)*vertexStride)
	put := func(f float32) {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	for _, v := range vs {
		put(v.position[0])
		put(v.position[1])
		put(v.position[2])
		put(v.texCoords[0])
		put(v.texCoords[1])
	}
	return out
}

// indexBytes encodes indices as little-endian uint16s.
func indexBytes(is []uint16) []byte {
	out := make([]byte, 0, len(is)*2)
	for _, i := range is {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

// vertexLayout declares the vertex buffer layout every pipeline in this
// package shares: position at location 0, texture coordinates at 1.
func vertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: vertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		},
	}
}

// f32Bytes encodes a uniform block of float32s.
func f32Bytes(fs ...float32) []byte {
	out := make([]byte, 0, len(fs)*4)
	for _, f := range fs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

// u32Bytes encodes a uniform block of uint32s.
func u32Bytes(us ...uint32) []byte {
	out := make([]byte, 0, len(us)*4)
	for _, u := range us {
		out = binary.LittleEndian.AppendUint32(out, u)
	}
	return out
}
