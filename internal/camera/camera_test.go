package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// within compares absolutely. mgl32's threshold helpers are relative and
// reject any noise around zero.
func within(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func withinVec(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() <= eps
}

func TestUniformIdentityByDefault(t *testing.T) {
	u := NewUniform()
	if u.Matrix() != mgl32.Ident4() {
		t.Errorf("NewUniform = %v, want identity", u.ViewProj)
	}
}

func TestUniformBytes(t *testing.T) {
	var u Uniform
	for i := range u.ViewProj {
		u.ViewProj[i] = float32(i) + 0.5
	}
	b := u.Bytes()
	if len(b) != UniformSize {
		t.Fatalf("len = %d, want %d", len(b), UniformSize)
	}
	for i, want := range u.ViewProj {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if got != want {
			t.Errorf("element %d = %v, want %v", i, got, want)
		}
	}
}

func TestUniformColumnMajor(t *testing.T) {
	var u Uniform
	u.ViewProj = mgl32.Translate3D(1, 2, 3)
	b := u.Bytes()
	// Translation lives in the fourth column: elements 12..14.
	for i, want := range []float32{1, 2, 3} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[(12+i)*4:]))
		if got != want {
			t.Errorf("translation[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestViewProjectionDepthRange(t *testing.T) {
	c := NewCamera(800, 600)
	c.Eye = mgl32.Vec3{0, 0, 5}
	c.Target = mgl32.Vec3{0, 0, 0}
	vp := c.ViewProjection()

	ndcDepth := func(p mgl32.Vec3) float32 {
		clip := vp.Mul4x1(p.Vec4(1))
		return clip.Z() / clip.W()
	}
	near := ndcDepth(mgl32.Vec3{0, 0, 5 - c.ZNear})
	far := ndcDepth(mgl32.Vec3{0, 0, 5 - c.ZFar})
	if !within(near, 0, 1e-4) {
		t.Errorf("near plane depth = %v, want 0", near)
	}
	if !within(far, 1, 1e-4) {
		t.Errorf("far plane depth = %v, want 1", far)
	}

	// The target projects to the center of the screen.
	clip := vp.Mul4x1(c.Target.Vec4(1))
	if !within(clip.X()/clip.W(), 0, 1e-6) || !within(clip.Y()/clip.W(), 0, 1e-6) {
		t.Errorf("target clip = %v, want centered", clip)
	}
}

func TestResize(t *testing.T) {
	c := NewCamera(800, 400)
	if c.Aspect != 2 {
		t.Errorf("aspect = %v, want 2", c.Aspect)
	}
	c.SetViewport(300, 300)
	if c.Aspect != 1 {
		t.Errorf("aspect = %v, want 1", c.Aspect)
	}
	// A minimized window must not produce a zero or infinite aspect.
	c.SetViewport(0, 0)
	if c.Aspect != 1 {
		t.Errorf("aspect after zero resize = %v, want 1", c.Aspect)
	}
}

func TestClampFovy(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{-1, DefaultFovy},
		{0, DefaultFovy},
		{5, MinFovy},
		{60, 60},
		{1000, MaxFovy},
	}
	for _, tt := range tests {
		if got := ClampFovy(tt.in); got != tt.want {
			t.Errorf("ClampFovy(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestControllerMovesEyeAndTarget(t *testing.T) {
	c := NewCamera(1, 1)
	c.Eye = mgl32.Vec3{0, 0, 5}
	c.Target = mgl32.Vec3{0, 0, 0}

	ctl := NewController(2)
	if ctl.Update(c, 1) {
		t.Fatal("moved with no keys held")
	}

	ctl.SetHeld(Forward, true)
	if !ctl.Update(c, 0.5) {
		t.Fatal("did not move")
	}
	if !withinVec(c.Eye, mgl32.Vec3{0, 0, 4}, 1e-5) || !withinVec(c.Target, mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("eye %v target %v", c.Eye, c.Target)
	}

	ctl.SetHeld(Forward, false)
	ctl.SetHeld(Right, true)
	ctl.Update(c, 1)
	if !withinVec(c.Eye, mgl32.Vec3{2, 0, 4}, 1e-5) {
		t.Errorf("eye after strafe = %v", c.Eye)
	}

	ctl.SetHeld(Right, false)
	ctl.SetHeld(Up, true)
	ctl.SetHeld(Down, true)
	if ctl.Update(c, 1) {
		t.Error("opposing keys should cancel")
	}
}

func TestOrbitKeepsDistance(t *testing.T) {
	c := NewCamera(1, 1)
	c.Eye = mgl32.Vec3{0, 0, 3}
	Orbit(c, float32(math.Pi/2))
	if !withinVec(c.Eye, mgl32.Vec3{3, 0, 0}, 1e-5) {
		t.Errorf("eye = %v, want (3,0,0)", c.Eye)
	}
}
