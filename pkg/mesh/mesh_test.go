package mesh

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestVertexLayoutMatchesStride(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"vertex", VertexLayout()},
		{"model", ModelVertexLayout()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var end uint64
			for i, a := range tt.layout.Attributes {
				if a.Location != uint32(i) {
					t.Errorf("attribute %d: location %d", i, a.Location)
				}
				if a.Offset != end {
					t.Errorf("attribute %d: offset %d, want %d", i, a.Offset, end)
				}
				end = a.Offset + a.Format.Size()
			}
			if end != tt.layout.Stride {
				t.Errorf("stride %d, attributes end at %d", tt.layout.Stride, end)
			}
		})
	}
}

func TestVertexBytes(t *testing.T) {
	m := &Mesh{Vertices: []Vertex{
		{Position: [3]float32{1, 2, 3}, UV: [2]float32{0.25, 0.75}},
		{Position: [3]float32{-1, -2, -3}, UV: [2]float32{1, 0}},
	}}
	buf := m.VertexBytes()
	if len(buf) != 2*VertexStride {
		t.Fatalf("got %d bytes, want %d", len(buf), 2*VertexStride)
	}
	read := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	if got := read(VertexStride + 4); got != -2 {
		t.Errorf("second vertex y = %v, want -2", got)
	}
	if got := read(16); got != 0.75 {
		t.Errorf("first vertex v = %v, want 0.75", got)
	}
}

func TestIndexBytesPadded(t *testing.T) {
	m := Pentagon()
	buf := m.IndexBytes()
	if len(buf)%4 != 0 {
		t.Fatalf("index buffer size %d not a multiple of 4", len(buf))
	}
	if len(buf) != 20 {
		t.Errorf("got %d bytes, want 20 (9 indices + padding)", len(buf))
	}
	if got := binary.LittleEndian.Uint16(buf[16:]); got != 4 {
		t.Errorf("last index = %d, want 4", got)
	}
}

func TestBuiltinMeshesValid(t *testing.T) {
	for _, name := range []string{"quad", "fullscreen", "pentagon"} {
		m, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if m.Triangles() == 0 {
			t.Errorf("%s: no triangles", name)
		}
	}
	if _, err := ByName("teapot"); err == nil {
		t.Error("expected error for unknown mesh")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	m := &Mesh{Name: "bad", Vertices: make([]Vertex, 2), Indices: []uint16{0, 1, 2}}
	if err := m.Validate(); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestModelVertexBytesNormalOffset(t *testing.T) {
	buf := ModelVertexBytes([]ModelVertex{{Normal: [3]float32{0, 1, 0}}})
	if len(buf) != ModelVertexStride {
		t.Fatalf("got %d bytes", len(buf))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[24:])); got != 1 {
		t.Errorf("normal.y = %v, want 1", got)
	}
}

func TestPentagonUVFollowsPosition(t *testing.T) {
	for i, v := range Pentagon().Vertices {
		for k := 0; k < 2; k++ {
			if d := math.Abs(float64(v.UV[k] - (v.Position[k] + 0.5))); d > 1e-6 {
				t.Errorf("vertex %d uv[%d] = %v, want position + 0.5", i, k, v.UV[k])
			}
		}
	}
}

func nearNormal(got, want [3]float32) bool {
	for k := range want {
		if math.Abs(float64(got[k]-want[k])) > 1e-6 {
			return false
		}
	}
	return true
}

func TestModelVerticesFlatNormals(t *testing.T) {
	for _, m := range []*Mesh{Quad(1), Pentagon()} {
		got := m.ModelVertices()
		if len(got) != len(m.Vertices) {
			t.Fatalf("%s: got %d vertices, want %d", m.Name, len(got), len(m.Vertices))
		}
		for i, v := range got {
			if !nearNormal(v.Normal, [3]float32{0, 0, 1}) {
				t.Errorf("%s vertex %d normal = %v, want +z", m.Name, i, v.Normal)
			}
			if v.Position != m.Vertices[i].Position || v.UV != m.Vertices[i].UV {
				t.Errorf("%s vertex %d position/uv changed", m.Name, i)
			}
		}
	}
}

func TestModelVerticesSmoothsSharedEdges(t *testing.T) {
	// two faces folded 90 degrees along the y axis
	m := &Mesh{
		Vertices: []Vertex{
			{Position: [3]float32{0, 0, 0}},
			{Position: [3]float32{0, 1, 0}},
			{Position: [3]float32{-1, 0, 0}},
			{Position: [3]float32{0, 0, -1}},
			{Position: [3]float32{5, 5, 5}},
		},
		Indices: []uint16{0, 1, 2, 1, 0, 3},
	}
	got := m.ModelVertices()

	// face 0 faces +z, face 1 faces +x
	s := float32(1 / math.Sqrt2)
	want := [3]float32{s, 0, s}
	for _, i := range []int{0, 1} {
		if !nearNormal(got[i].Normal, want) {
			t.Errorf("shared vertex %d normal = %v, want %v", i, got[i].Normal, want)
		}
	}
	if !nearNormal(got[2].Normal, [3]float32{0, 0, 1}) {
		t.Errorf("vertex 2 normal = %v, want +z", got[2].Normal)
	}
	if !nearNormal(got[3].Normal, [3]float32{1, 0, 0}) {
		t.Errorf("vertex 3 normal = %v, want +x", got[3].Normal)
	}
	if got[4].Normal != [3]float32{} {
		t.Errorf("unused vertex normal = %v, want zero", got[4].Normal)
	}
}
