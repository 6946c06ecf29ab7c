// Package pipeline is a CPU implementation of the textured mesh pipeline. It
// runs the same vertex and fragment stages the WGSL shaders declare, with a
// rasterizer in between, so their behavior can be checked without a GPU.
package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"

	"quadviewer/internal/shader"
	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

// VertexInput is one vertex as read from the vertex buffer
type VertexInput struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
}

// VertexOutput is what the vertex stage hands to the rasterizer
type VertexOutput struct {
	Clip mgl32.Vec4
	UV   mgl32.Vec2
}

// Pipeline draws textured triangles. A nil Transform runs the passthrough
// vertex stage; otherwise positions are multiplied by it.
type Pipeline struct {
	Transform *mgl32.Mat4
	Texture   *texture.Texture
	Sampler   texture.Sampler

	// CullBack drops triangles that are clockwise on screen
	CullBack bool

	// Workers bounds the goroutines used by Draw; 0 means GOMAXPROCS
	Workers int
}

// New creates a passthrough pipeline sampling tex
func New(tex *texture.Texture, s texture.Sampler) *Pipeline {
	return &Pipeline{Texture: tex, Sampler: s}
}

// SetTransform makes the pipeline behave like the camera shader variant
func (p *Pipeline) SetTransform(m mgl32.Mat4) {
	p.Transform = &m
}

// Variant returns the shader variant this pipeline mirrors
func (p *Pipeline) Variant() shader.Variant {
	if p.Transform == nil {
		return shader.Passthrough
	}
	return shader.Camera
}

// Vertex runs the vertex stage
func (p *Pipeline) Vertex(in VertexInput) VertexOutput {
	pos := in.Position.Vec4(1)
	if p.Transform != nil {
		pos = p.Transform.Mul4x1(pos)
	}
	return VertexOutput{Clip: pos, UV: in.UV}
}

// Fragment runs the fragment stage
func (p *Pipeline) Fragment(uv mgl32.Vec2) mgl32.Vec4 {
	return p.Sampler.Sample(p.Texture, uv)
}

// Input converts a mesh vertex to a stage input
func Input(v mesh.Vertex) VertexInput {
	return VertexInput{Position: mgl32.Vec3(v.Position), UV: mgl32.Vec2(v.UV)}
}
