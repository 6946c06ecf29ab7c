package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"quadviewer/internal/camera"
	"quadviewer/internal/shader"
	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

func randomVec3(r *rand.Rand) mgl32.Vec3 {
	return mgl32.Vec3{r.Float32()*20 - 10, r.Float32()*20 - 10, r.Float32()*20 - 10}
}

func randomMat4(r *rand.Rand) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = r.Float32()*4 - 2
	}
	return m
}

func TestIdentityCameraMatchesPassthrough(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	flat := New(texture.Solid(mgl32.Vec4{1, 1, 1, 1}), texture.DefaultSampler())
	cam := New(flat.Texture, flat.Sampler)
	cam.SetTransform(camera.NewUniform().Matrix())

	if flat.Variant() != shader.Passthrough || cam.Variant() != shader.Camera {
		t.Fatalf("variants = %s, %s", flat.Variant(), cam.Variant())
	}
	for range 100 {
		in := VertexInput{Position: randomVec3(r), UV: mgl32.Vec2{r.Float32(), r.Float32()}}
		if a, b := cam.Vertex(in), flat.Vertex(in); a != b {
			t.Fatalf("identity camera %v != passthrough %v for %v", a, b, in)
		}
	}
}

func TestCameraVariantMultipliesPosition(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	p := New(texture.Solid(mgl32.Vec4{}), texture.DefaultSampler())
	for range 100 {
		m := randomMat4(r)
		p.SetTransform(m)
		pos := randomVec3(r)
		got := p.Vertex(VertexInput{Position: pos}).Clip
		if want := m.Mul4x1(pos.Vec4(1)); !got.ApproxEqualThreshold(want, 1e-5) {
			t.Fatalf("clip = %v, want %v", got, want)
		}
	}
}

func TestVertexPassesUVThrough(t *testing.T) {
	p := New(texture.Solid(mgl32.Vec4{}), texture.DefaultSampler())
	p.SetTransform(mgl32.Perspective(1, 1, 0.1, 10))
	in := VertexInput{Position: mgl32.Vec3{1, 2, 3}, UV: mgl32.Vec2{0.25, 0.75}}
	if got := p.Vertex(in).UV; got != in.UV {
		t.Errorf("uv = %v, want %v", got, in.UV)
	}
}

func TestInterpolateAtVerticesIsExact(t *testing.T) {
	outs := [3]VertexOutput{
		{Clip: mgl32.Vec4{0, 0, 0, 1}, UV: mgl32.Vec2{0.1, 0.2}},
		{Clip: mgl32.Vec4{1, 0, 0, 3}, UV: mgl32.Vec2{0.7, 0.3}},
		{Clip: mgl32.Vec4{0, 1, 0, 7}, UV: mgl32.Vec2{0.9, 0.6}},
	}
	for i := range outs {
		var w mgl32.Vec3
		w[i] = 1
		if got := Interpolate(outs, w); got != outs[i].UV {
			t.Errorf("vertex %d: uv = %v, want %v", i, got, outs[i].UV)
		}
	}
}

func TestCentroidSamplesThird(t *testing.T) {
	a, b, c := mgl32.Vec2{0, 0}, mgl32.Vec2{9, 0}, mgl32.Vec2{0, 9}
	centroid := a.Add(b).Add(c).Mul(1.0 / 3)
	w, ok := Barycentric(a, b, c, centroid)
	if !ok {
		t.Fatal("degenerate triangle")
	}
	outs := [3]VertexOutput{
		{Clip: mgl32.Vec4{0, 0, 0, 1}, UV: mgl32.Vec2{0, 0}},
		{Clip: mgl32.Vec4{0, 0, 0, 1}, UV: mgl32.Vec2{1, 0}},
		{Clip: mgl32.Vec4{0, 0, 0, 1}, UV: mgl32.Vec2{0, 1}},
	}
	uv := Interpolate(outs, w)
	if !uv.ApproxEqualThreshold(mgl32.Vec2{1.0 / 3, 1.0 / 3}, 1e-5) {
		t.Errorf("centroid uv = %v, want (0.33, 0.33)", uv)
	}
}

func TestInterpolateIsPerspectiveCorrect(t *testing.T) {
	// Halfway across the screen between a near (w=1) and far (w=3) vertex
	// lies a quarter of the way along the edge in uv.
	outs := [3]VertexOutput{
		{Clip: mgl32.Vec4{0, 0, 0, 1}, UV: mgl32.Vec2{0, 0}},
		{Clip: mgl32.Vec4{0, 0, 0, 3}, UV: mgl32.Vec2{1, 0}},
		{Clip: mgl32.Vec4{0, 0, 0, 1}, UV: mgl32.Vec2{0, 1}},
	}
	uv := Interpolate(outs, mgl32.Vec3{0.5, 0.5, 0})
	if !mgl32.FloatEqualThreshold(uv.X(), 0.25, 1e-6) {
		t.Errorf("u = %v, want 0.25", uv.X())
	}
}

func TestBarycentricDegenerate(t *testing.T) {
	a := mgl32.Vec2{1, 1}
	if _, ok := Barycentric(a, a, mgl32.Vec2{2, 2}, a); ok {
		t.Error("expected degenerate")
	}
}

func TestFragmentSolidTexture(t *testing.T) {
	want := mgl32.Vec4{0.3, 0.6, 0.9, 1}
	for _, f := range []texture.FilterMode{texture.FilterNearest, texture.FilterLinear} {
		p := New(texture.Solid(want), texture.Sampler{MagFilter: f, MinFilter: f})
		for _, uv := range []mgl32.Vec2{{0, 0}, {0.5, 0.5}, {1, 1}, {-2, 3}} {
			if got := p.Fragment(uv); got != want {
				t.Errorf("%s at %v = %v", f, uv, got)
			}
		}
	}
}

func TestDrawFullscreenQuadReproducesTexture(t *testing.T) {
	tex := texture.Checkerboard(8, 4, mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec4{0, 0, 1, 1})
	tex.Set(0, 0, mgl32.Vec4{0, 1, 0, 1})
	p := New(tex, texture.Sampler{MagFilter: texture.FilterNearest})
	p.CullBack = true
	p.Workers = 3

	fb := NewFramebuffer(8, 8)
	if err := p.Draw(context.Background(), fb, mesh.Quad(1)); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			if got, want := fb.At(x, y), tex.At(x, y); got != want {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDrawCameraQuadCoversCenter(t *testing.T) {
	white := mgl32.Vec4{1, 1, 1, 1}
	bg := mgl32.Vec4{0, 0, 0, 1}
	cam := camera.NewCamera(32, 32)
	cam.Eye = mgl32.Vec3{0, 0, 3}

	p := New(texture.Solid(white), texture.DefaultSampler())
	p.SetTransform(cam.ViewProjection())
	fb := NewFramebuffer(32, 32)
	fb.Clear(bg)
	if err := p.Draw(context.Background(), fb, mesh.Quad(0.5)); err != nil {
		t.Fatal(err)
	}
	if got := fb.At(16, 16); got != white {
		t.Errorf("center = %v, want quad color", got)
	}
	if got := fb.At(0, 0); got != bg {
		t.Errorf("corner = %v, want clear color", got)
	}
}

func TestDrawCullsClockwise(t *testing.T) {
	white := mgl32.Vec4{1, 1, 1, 1}
	quad := mesh.Quad(1)
	quad.Indices = []uint16{0, 2, 1, 0, 3, 2}

	p := New(texture.Solid(white), texture.DefaultSampler())
	fb := NewFramebuffer(4, 4)

	p.CullBack = true
	if err := p.Draw(context.Background(), fb, quad); err != nil {
		t.Fatal(err)
	}
	for i, px := range fb.Pixels {
		if px != (mgl32.Vec4{}) {
			t.Fatalf("pixel %d drawn by a culled triangle", i)
		}
	}

	p.CullBack = false
	if err := p.Draw(context.Background(), fb, quad); err != nil {
		t.Fatal(err)
	}
	for i, px := range fb.Pixels {
		if px != white {
			t.Fatalf("pixel %d = %v with culling off", i, px)
		}
	}
}

func TestDrawDropsTrianglesBehindEye(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []mesh.Vertex{
			{Position: [3]float32{-1, -1, 0}},
			{Position: [3]float32{1, -1, 0}},
			{Position: [3]float32{0, 1, 0}},
		},
		Indices: []uint16{0, 1, 2},
	}
	p := New(texture.Solid(mgl32.Vec4{1, 1, 1, 1}), texture.DefaultSampler())
	flip := mgl32.Scale3D(1, 1, 1)
	flip[15] = -1
	p.SetTransform(flip)

	fb := NewFramebuffer(4, 4)
	if err := p.Draw(context.Background(), fb, m); err != nil {
		t.Fatal(err)
	}
	for i, px := range fb.Pixels {
		if px != (mgl32.Vec4{}) {
			t.Fatalf("pixel %d drawn with w < 0", i)
		}
	}
}

func TestDrawSamplesInterpolatedUV(t *testing.T) {
	const n, size = 26, 30
	// each texel stores the uv of its center in red and green
	tex := texture.New("uv", n, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			tex.Set(x, y, mgl32.Vec4{(float32(x) + 0.5) / n, (float32(y) + 0.5) / n, 0, 1})
		}
	}
	ndc := func(sx, sy float32) [3]float32 {
		return [3]float32{sx/size*2 - 1, 1 - sy/size*2, 0}
	}
	m := &mesh.Mesh{
		Vertices: []mesh.Vertex{
			{Position: ndc(2, 2), UV: [2]float32{0, 0}},
			{Position: ndc(28, 2), UV: [2]float32{1, 0}},
			{Position: ndc(2, 28), UV: [2]float32{0, 1}},
		},
		Indices: []uint16{0, 1, 2},
	}

	p := New(tex, texture.Sampler{MagFilter: texture.FilterNearest})
	fb := NewFramebuffer(size, size)
	if err := p.Draw(context.Background(), fb, m); err != nil {
		t.Fatal(err)
	}

	// one texel of sampling error plus the half pixel to the pixel center
	const tol = 2.0 / n
	tests := []struct {
		name string
		x, y int
		uv   mgl32.Vec2
	}{
		{"vertex", 2, 2, mgl32.Vec2{0, 0}},
		{"centroid", 10, 10, mgl32.Vec2{1.0 / 3, 1.0 / 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fb.At(tt.x, tt.y)
			if got.W() != 1 {
				t.Fatalf("pixel (%d,%d) not drawn", tt.x, tt.y)
			}
			if mgl32.Abs(got.X()-tt.uv.X()) > tol || mgl32.Abs(got.Y()-tt.uv.Y()) > tol {
				t.Errorf("pixel (%d,%d) sampled uv (%v, %v), want about %v", tt.x, tt.y, got.X(), got.Y(), tt.uv)
			}
		})
	}
	if got := fb.At(27, 27); got != (mgl32.Vec4{}) {
		t.Errorf("pixel outside the triangle = %v", got)
	}
}

func TestDrawErrors(t *testing.T) {
	p := New(texture.Solid(mgl32.Vec4{}), texture.DefaultSampler())
	fb := NewFramebuffer(2, 2)

	if err := p.Draw(context.Background(), fb, &mesh.Mesh{}); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("empty mesh: err = %v", err)
	}

	bad := mesh.Quad(1)
	bad.Indices = []uint16{0, 1, 9}
	if err := p.Draw(context.Background(), fb, bad); err == nil {
		t.Error("expected out-of-range index error")
	}

	empty := New(texture.New("empty", 0, 0), texture.DefaultSampler())
	if err := empty.Draw(context.Background(), fb, mesh.Quad(1)); !errors.Is(err, texture.ErrEmptyImage) {
		t.Errorf("empty texture: err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Draw(ctx, fb, mesh.Quad(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled draw: err = %v", err)
	}
}

func TestFramebufferImage(t *testing.T) {
	fb := NewFramebuffer(2, 1)
	fb.Clear(mgl32.Vec4{0, 0, 0, 1})
	fb.Set(1, 0, mgl32.Vec4{1, 0.5, 0, 1})
	img := fb.Image()
	if c := img.NRGBAAt(1, 0); c.R != 255 || c.G != 128 || c.B != 0 || c.A != 255 {
		t.Errorf("pixel = %v", c)
	}
	if c := img.NRGBAAt(0, 0); c.R != 0 || c.A != 255 {
		t.Errorf("pixel = %v", c)
	}
}
