package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Format identifies the component layout of a vertex attribute
type Format int

const (
	Float32x2 Format = iota
	Float32x3
	Float32x4
)

// Size returns the attribute size in bytes
func (f Format) Size() uint64 {
	return uint64(f.Components()) * 4
}

// Components returns the number of float32 components
func (f Format) Components() int {
	switch f {
	case Float32x2:
		return 2
	case Float32x3:
		return 3
	case Float32x4:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case Float32x2:
		return "float32x2"
	case Float32x3:
		return "float32x3"
	case Float32x4:
		return "float32x4"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Attribute describes one vertex attribute inside an interleaved buffer
type Attribute struct {
	Location uint32
	Offset   uint64
	Format   Format
}

// Layout describes an interleaved vertex buffer
type Layout struct {
	Stride     uint64
	Attributes []Attribute
}

// Vertex is the simple vertex consumed by the shaders: position + uv
type Vertex struct {
	Position [3]float32
	UV       [2]float32
}

// ModelVertex adds a normal at location 2. The shaders ignore it.
type ModelVertex struct {
	Position [3]float32
	UV       [2]float32
	Normal   [3]float32
}

// VertexStride is the size of Vertex in a vertex buffer
const VertexStride = 20

// ModelVertexStride is the size of ModelVertex in a vertex buffer
const ModelVertexStride = 32

// VertexLayout returns the buffer layout for Vertex
func VertexLayout() Layout {
	return Layout{
		Stride: VertexStride,
		Attributes: []Attribute{
			{Location: 0, Offset: 0, Format: Float32x3},
			{Location: 1, Offset: 12, Format: Float32x2},
		},
	}
}

// ModelVertexLayout returns the buffer layout for ModelVertex
func ModelVertexLayout() Layout {
	return Layout{
		Stride: ModelVertexStride,
		Attributes: []Attribute{
			{Location: 0, Offset: 0, Format: Float32x3},
			{Location: 1, Offset: 12, Format: Float32x2},
			{Location: 2, Offset: 20, Format: Float32x3},
		},
	}
}

// Mesh is an indexed triangle list
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint16
}

// Triangles returns the number of complete triangles in the index list
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// Triangle returns the vertex indices of triangle i
func (m *Mesh) Triangle(i int) (a, b, c uint16) {
	return m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]
}

// Validate checks that every index refers to an existing vertex
func (m *Mesh) Validate() error {
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("mesh %q: index %d at position %d out of range (%d vertices)", m.Name, idx, i, len(m.Vertices))
		}
	}
	return nil
}

// VertexBytes packs the vertices little-endian with VertexStride
func (m *Mesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*VertexStride)
	for i, v := range m.Vertices {
		o := buf[i*VertexStride:]
		putFloats(o, v.Position[:])
		putFloats(o[12:], v.UV[:])
	}
	return buf
}

// IndexBytes packs the indices as uint16, padded to a multiple of 4 bytes
func (m *Mesh) IndexBytes() []byte {
	n := len(m.Indices) * 2
	if n%4 != 0 {
		n += 2
	}
	buf := make([]byte, n)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}

// ModelVertices returns the vertices with smooth normals. A vertex normal is
// the normalized sum of the area-weighted normals of the counter-clockwise
// triangles that use it; unused vertices get a zero normal.
func (m *Mesh) ModelVertices() []ModelVertex {
	sums := make([]mgl32.Vec3, len(m.Vertices))
	for i := 0; i < m.Triangles(); i++ {
		a, b, c := m.Triangle(i)
		pa := mgl32.Vec3(m.Vertices[a].Position)
		pb := mgl32.Vec3(m.Vertices[b].Position)
		pc := mgl32.Vec3(m.Vertices[c].Position)
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		sums[a] = sums[a].Add(n)
		sums[b] = sums[b].Add(n)
		sums[c] = sums[c].Add(n)
	}

	out := make([]ModelVertex, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = ModelVertex{Position: v.Position, UV: v.UV}
		if sums[i].Len() > 0 {
			out[i].Normal = sums[i].Normalize()
		}
	}
	return out
}

// ModelVertexBytes packs model vertices little-endian with ModelVertexStride
func ModelVertexBytes(vertices []ModelVertex) []byte {
	buf := make([]byte, len(vertices)*ModelVertexStride)
	for i, v := range vertices {
		o := buf[i*ModelVertexStride:]
		putFloats(o, v.Position[:])
		putFloats(o[12:], v.UV[:])
		putFloats(o[20:], v.Normal[:])
	}
	return buf
}

func putFloats(dst []byte, values []float32) {
	for i, f := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

// Quad returns a unit quad centered on the origin in the z=0 plane, facing +z
func Quad(halfSize float32) *Mesh {
	s := halfSize
	return &Mesh{
		Name: "quad",
		Vertices: []Vertex{
			{Position: [3]float32{-s, -s, 0}, UV: [2]float32{0, 1}},
			{Position: [3]float32{s, -s, 0}, UV: [2]float32{1, 1}},
			{Position: [3]float32{s, s, 0}, UV: [2]float32{1, 0}},
			{Position: [3]float32{-s, s, 0}, UV: [2]float32{0, 0}},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
}

// Pentagon returns the five-vertex textured pentagon. Its uv coordinates are
// the positions shifted by 0.5, so v grows upwards with y.
func Pentagon() *Mesh {
	return &Mesh{
		Name: "pentagon",
		Vertices: []Vertex{
			{Position: [3]float32{-0.0868241, 0.49240386, 0.0}, UV: [2]float32{0.4131759, 0.99240386}},
			{Position: [3]float32{-0.49513406, 0.06958647, 0.0}, UV: [2]float32{0.0048659444, 0.56958646}},
			{Position: [3]float32{-0.21918549, -0.44939706, 0.0}, UV: [2]float32{0.28081453, 0.050602943}},
			{Position: [3]float32{0.35966998, -0.3473291, 0.0}, UV: [2]float32{0.85967, 0.15267089}},
			{Position: [3]float32{0.44147372, 0.2347359, 0.0}, UV: [2]float32{0.9414737, 0.7347359}},
		},
		Indices: []uint16{0, 1, 4, 1, 2, 4, 2, 3, 4},
	}
}

// ByName returns one of the built-in meshes
func ByName(name string) (*Mesh, error) {
	switch name {
	case "quad":
		return Quad(0.5), nil
	case "fullscreen":
		return Quad(1), nil
	case "pentagon":
		return Pentagon(), nil
	}
	return nil, fmt.Errorf("unknown mesh %q", name)
}
