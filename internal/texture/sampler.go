package texture

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// FilterMode selects how texels are combined
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

func (f FilterMode) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "nearest"
}

// ParseFilterMode accepts "nearest" and "linear"
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(s) {
	case "nearest":
		return FilterNearest, nil
	case "linear", "":
		return FilterLinear, nil
	}
	return 0, fmt.Errorf("unknown filter mode %q", s)
}

// AddressMode selects how coordinates outside [0,1] are resolved
type AddressMode int

const (
	ClampToEdge AddressMode = iota
	Repeat
	MirrorRepeat
)

func (a AddressMode) String() string {
	switch a {
	case Repeat:
		return "repeat"
	case MirrorRepeat:
		return "mirror-repeat"
	}
	return "clamp-to-edge"
}

// ParseAddressMode accepts "clamp-to-edge", "repeat" and "mirror-repeat"
func ParseAddressMode(s string) (AddressMode, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "-") {
	case "clamp-to-edge", "clamp", "":
		return ClampToEdge, nil
	case "repeat":
		return Repeat, nil
	case "mirror-repeat", "mirror":
		return MirrorRepeat, nil
	}
	return 0, fmt.Errorf("unknown address mode %q", s)
}

// Sampler mirrors the fields of a GPU sampler that affect a 2D sample.
// Textures carry a single mip level, so the CPU path filters with MagFilter;
// MinFilter is kept for the GPU sampler.
type Sampler struct {
	AddressU  AddressMode
	AddressV  AddressMode
	MagFilter FilterMode
	MinFilter FilterMode
}

// DefaultSampler clamps to edge, magnifies linearly and minifies nearest
func DefaultSampler() Sampler {
	return Sampler{
		AddressU:  ClampToEdge,
		AddressV:  ClampToEdge,
		MagFilter: FilterLinear,
		MinFilter: FilterNearest,
	}
}

// Sample returns the filtered color of t at uv. (0,0) is the top-left corner
// of the first texel and (1,1) the bottom-right corner of the last one.
func (s Sampler) Sample(t *Texture, uv mgl32.Vec2) mgl32.Vec4 {
	if s.MagFilter == FilterNearest {
		x := int(math.Floor(float64(uv.X()) * float64(t.Width)))
		y := int(math.Floor(float64(uv.Y()) * float64(t.Height)))
		return t.At(address(s.AddressU, x, t.Width), address(s.AddressV, y, t.Height))
	}

	// Texel centers sit at half-integer coordinates.
	fx := float64(uv.X())*float64(t.Width) - 0.5
	fy := float64(uv.Y())*float64(t.Height) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	ax := float32(fx - float64(x0))
	ay := float32(fy - float64(y0))

	xa := address(s.AddressU, x0, t.Width)
	xb := address(s.AddressU, x0+1, t.Width)
	ya := address(s.AddressV, y0, t.Height)
	yb := address(s.AddressV, y0+1, t.Height)

	top := lerp(t.At(xa, ya), t.At(xb, ya), ax)
	bottom := lerp(t.At(xa, yb), t.At(xb, yb), ax)
	return lerp(top, bottom, ay)
}

func lerp(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	if t == 0 {
		return a
	}
	if t == 1 {
		return b
	}
	return a.Add(b.Sub(a).Mul(t))
}

// address maps an integer texel coordinate into [0,n)
func address(mode AddressMode, i, n int) int {
	switch mode {
	case Repeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case MirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
