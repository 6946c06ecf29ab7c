package camera

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinFovy     = 10
	MaxFovy     = 120
	DefaultFovy = 45
)

// OpenGLToWGPU remaps clip-space depth from [-1,1] to [0,1]
var OpenGLToWGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Projection holds the perspective parameters of the view
type Projection struct {
	Aspect float32
	// Vertical field of view in degrees
	Fovy  float32
	ZNear float32
	ZFar  float32
}

// Resize updates the aspect ratio for a new viewport size
func (p *Projection) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.Aspect = float32(width) / float32(height)
}

// Matrix returns the OpenGL-convention perspective matrix
func (p Projection) Matrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(p.Fovy), p.Aspect, p.ZNear, p.ZFar)
}

// Camera is a right-handed look-at camera
type Camera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3

	Projection
}

// NewCamera creates a camera looking at the origin from +Z
func NewCamera(width, height int) *Camera {
	c := &Camera{
		Eye:    mgl32.Vec3{0, 1, 2},
		Target: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		Projection: Projection{
			Aspect: 1,
			Fovy:   DefaultFovy,
			ZNear:  0.1,
			ZFar:   100,
		},
	}
	c.Resize(width, height)
	return c
}

// SetViewport updates the viewport dimensions
func (c *Camera) SetViewport(width, height int) {
	c.Resize(width, height)
}

// View returns the world-to-view matrix
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

// ViewProjection returns the matrix the camera shader variant multiplies
// positions by.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	return OpenGLToWGPU.Mul4(c.Matrix()).Mul4(c.View())
}

// ClampFovy limits a field of view to [MinFovy, MaxFovy]. Non-positive
// values select DefaultFovy.
func ClampFovy(fovy float32) float32 {
	if fovy <= 0 {
		return DefaultFovy
	}
	return mgl32.Clamp(fovy, MinFovy, MaxFovy)
}

// Forward returns the unit view direction
func (c *Camera) Forward() mgl32.Vec3 {
	f := c.Target.Sub(c.Eye)
	if f.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return f.Normalize()
}

// Uniform is the GPU layout of the camera binding: one column-major
// mat4x4<f32>.
type Uniform struct {
	ViewProj [16]float32
}

// UniformSize is the size of Uniform in bytes
const UniformSize = 64

// NewUniform returns a uniform holding the identity matrix
func NewUniform() Uniform {
	return Uniform{ViewProj: mgl32.Ident4()}
}

// Update copies the camera's view-projection into the uniform
func (u *Uniform) Update(c *Camera) {
	u.ViewProj = c.ViewProjection()
}

// Matrix returns the stored matrix
func (u Uniform) Matrix() mgl32.Mat4 {
	return mgl32.Mat4(u.ViewProj)
}

// Bytes returns the uniform as little-endian bytes for a buffer write
func (u Uniform) Bytes() []byte {
	buf := make([]byte, UniformSize)
	for i, f := range u.ViewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
