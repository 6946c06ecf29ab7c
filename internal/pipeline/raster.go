package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

// ErrEmptyMesh is returned by Draw for meshes without a complete triangle
var ErrEmptyMesh = errors.New("pipeline: mesh has no triangles")

// rows per band handed to one goroutine
const bandRows = 16

// edge is twice the signed area of (a, b, p) in framebuffer coordinates.
// With y pointing down it is positive when a, b, p run clockwise on screen.
func edge(a, b, p mgl32.Vec2) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

// Barycentric returns the weights of p relative to triangle (a, b, c). ok is
// false for a degenerate triangle.
func Barycentric(a, b, c, p mgl32.Vec2) (w mgl32.Vec3, ok bool) {
	area := edge(a, b, c)
	if area == 0 {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{
		edge(b, c, p) / area,
		edge(c, a, p) / area,
		edge(a, b, p) / area,
	}, true
}

// Interpolate returns the perspective-correct uv at screen-space barycentric
// weights w.
func Interpolate(v [3]VertexOutput, w mgl32.Vec3) mgl32.Vec2 {
	var k [3]float32
	var sum float32
	for i := range v {
		k[i] = w[i] / v[i].Clip.W()
		sum += k[i]
	}
	var uv mgl32.Vec2
	for i := range v {
		uv = uv.Add(v[i].UV.Mul(k[i] / sum))
	}
	return uv
}

// triangle is a triangle after vertex shading and viewport transform,
// wound clockwise on screen.
type triangle struct {
	out    [3]VertexOutput
	screen [3]mgl32.Vec2
	area   float32

	// top-left flags for edges (1,2), (2,0), (0,1)
	topLeft [3]bool

	minX, maxX int
	minY, maxY int
}

// Draw renders m into fb
func (p *Pipeline) Draw(ctx context.Context, fb *Framebuffer, m *mesh.Mesh) error {
	if m.Triangles() == 0 {
		return ErrEmptyMesh
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if p.Texture == nil {
		return fmt.Errorf("pipeline: no texture bound")
	}
	if p.Texture.Width <= 0 || p.Texture.Height <= 0 {
		return fmt.Errorf("pipeline: texture %s: %w", p.Texture.Label, texture.ErrEmptyImage)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outs, err := p.shadeVertices(ctx, m, workers)
	if err != nil {
		return err
	}

	tris := make([]triangle, 0, m.Triangles())
	for i := 0; i < m.Triangles(); i++ {
		a, b, c := m.Triangle(i)
		if t, ok := p.setup(fb, [3]VertexOutput{outs[a], outs[b], outs[c]}); ok {
			tris = append(tris, t)
		}
	}
	if len(tris) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < fb.Height; y0 += bandRows {
		y1 := min(y0+bandRows, fb.Height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := range tris {
				p.rasterize(fb, &tris[i], y0, y1)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) shadeVertices(ctx context.Context, m *mesh.Mesh, workers int) ([]VertexOutput, error) {
	outs := make([]VertexOutput, len(m.Vertices))
	chunk := (len(outs) + workers - 1) / workers
	if chunk < 64 {
		chunk = 64
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(outs); start += chunk {
		end := min(start+chunk, len(outs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				outs[i] = p.Vertex(Input(m.Vertices[i]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// setup performs the perspective divide, viewport transform and culling.
// Triangles with a vertex at or behind the eye (w <= 0) are dropped rather
// than clipped.
func (p *Pipeline) setup(fb *Framebuffer, out [3]VertexOutput) (triangle, bool) {
	t := triangle{out: out}
	for i, o := range out {
		w := o.Clip.W()
		if w <= 0 {
			return t, false
		}
		ndcX, ndcY := o.Clip.X()/w, o.Clip.Y()/w
		t.screen[i] = mgl32.Vec2{
			(ndcX*0.5 + 0.5) * float32(fb.Width),
			(0.5 - ndcY*0.5) * float32(fb.Height),
		}
	}

	t.area = edge(t.screen[0], t.screen[1], t.screen[2])
	if t.area == 0 || math.IsNaN(float64(t.area)) {
		return t, false
	}
	// Counter-clockwise on screen is the front face.
	if t.area > 0 && p.CullBack {
		return t, false
	}
	if t.area < 0 {
		t.out[1], t.out[2] = t.out[2], t.out[1]
		t.screen[1], t.screen[2] = t.screen[2], t.screen[1]
		t.area = -t.area
	}

	for i := range 3 {
		a, b := t.screen[(i+1)%3], t.screen[(i+2)%3]
		d := b.Sub(a)
		t.topLeft[i] = (d.Y() == 0 && d.X() > 0) || d.Y() < 0
	}

	lo, hi := t.screen[0], t.screen[0]
	for _, s := range t.screen[1:] {
		lo = mgl32.Vec2{min(lo.X(), s.X()), min(lo.Y(), s.Y())}
		hi = mgl32.Vec2{max(hi.X(), s.X()), max(hi.Y(), s.Y())}
	}
	t.minX = max(int(math.Floor(float64(lo.X()))), 0)
	t.minY = max(int(math.Floor(float64(lo.Y()))), 0)
	t.maxX = min(int(math.Ceil(float64(hi.X()))), fb.Width-1)
	t.maxY = min(int(math.Ceil(float64(hi.Y()))), fb.Height-1)
	return t, t.minX <= t.maxX && t.minY <= t.maxY
}

// rasterize shades the pixels of t whose centers lie in rows [y0, y1)
func (p *Pipeline) rasterize(fb *Framebuffer, t *triangle, y0, y1 int) {
	y0 = max(y0, t.minY)
	y1 = min(y1, t.maxY+1)
	s := t.screen
	for y := y0; y < y1; y++ {
		for x := t.minX; x <= t.maxX; x++ {
			c := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			e := [3]float32{edge(s[1], s[2], c), edge(s[2], s[0], c), edge(s[0], s[1], c)}
			if !covered(e, t.topLeft) {
				continue
			}
			w := mgl32.Vec3{e[0] / t.area, e[1] / t.area, e[2] / t.area}
			fb.Set(x, y, p.Fragment(Interpolate(t.out, w)))
		}
	}
}

// covered applies the top-left fill rule: a center exactly on an edge belongs
// to the triangle only if that edge is a top or left edge.
func covered(e [3]float32, topLeft [3]bool) bool {
	for i := range e {
		if e[i] < 0 || (e[i] == 0 && !topLeft[i]) {
			return false
		}
	}
	return true
}
