package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga/ir"
	"github.com/pkg/errors"
)

// Binding slots shared with the host
const (
	TextureGroup   = 0
	TextureBinding = 0
	SamplerBinding = 1

	CameraGroup   = 1
	CameraBinding = 0

	// CameraUniformSize is one column-major mat4x4<f32>.
	CameraUniformSize = 64

	PositionLocation = 0
	UVLocation       = 1
	ColorLocation    = 0
)

// ErrContract is returned by Verify when the shader interface deviates from
// what the host binds.
var ErrContract = errors.New("shader contract violated")

// Contract returns the interface the host expects from a variant
func Contract(v Variant) *Reflection {
	r := &Reflection{
		Resources: []Resource{
			{Name: "t_diffuse", Group: TextureGroup, Binding: TextureBinding, Kind: ResourceTexture, Dim: ir.Dim2D, Visibility: StageFragment},
			{Name: "s_diffuse", Group: TextureGroup, Binding: SamplerBinding, Kind: ResourceSampler, Visibility: StageFragment},
		},
		EntryPoints: []EntryPoint{
			{
				Name:  VertexEntry,
				Stage: StageVertex,
				Inputs: []Location{
					{Name: "position", Location: PositionLocation, Scalar: ir.ScalarFloat, Components: 3},
					{Name: "uv", Location: UVLocation, Scalar: ir.ScalarFloat, Components: 2},
				},
				Outputs: []Location{
					{Name: "uv", Location: 0, Scalar: ir.ScalarFloat, Components: 2},
				},
				Position: true,
			},
			{
				Name:  FragmentEntry,
				Stage: StageFragment,
				Inputs: []Location{
					{Name: "uv", Location: 0, Scalar: ir.ScalarFloat, Components: 2},
				},
				Outputs: []Location{
					{Location: ColorLocation, Scalar: ir.ScalarFloat, Components: 4},
				},
			},
		},
	}
	if v.HasCamera() {
		r.Resources = append(r.Resources, Resource{
			Name: "camera", Group: CameraGroup, Binding: CameraBinding,
			Kind: ResourceUniform, Size: CameraUniformSize, Visibility: StageVertex,
		})
	}
	return r
}

// Verify loads a variant, reflects it and compares the result with Contract
func Verify(v Variant) (*Reflection, error) {
	module, err := Load(v)
	if err != nil {
		return nil, err
	}
	got, err := Reflect(module)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reflect %s shader", v)
	}
	if err := Check(got, Contract(v)); err != nil {
		return got, errors.Wrapf(err, "%s shader", v)
	}
	return got, nil
}

// Check compares two reflections. Names are not compared: the host binds by
// slot, never by name.
func Check(got, want *Reflection) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	for _, w := range want.Resources {
		g, ok := got.Resource(w.Group, w.Binding)
		if !ok {
			add("missing %s at group %d binding %d", w.Kind, w.Group, w.Binding)
			continue
		}
		if g.Kind != w.Kind {
			add("group %d binding %d is a %s, want %s", w.Group, w.Binding, g.Kind, w.Kind)
			continue
		}
		if w.Size != 0 && g.Size != w.Size {
			add("group %d binding %d is %d bytes, want %d", w.Group, w.Binding, g.Size, w.Size)
		}
		if w.Kind == ResourceTexture && g.Dim != w.Dim {
			add("group %d binding %d has dimension %d, want %d", w.Group, w.Binding, g.Dim, w.Dim)
		}
		if g.Visibility&^w.Visibility != 0 {
			add("group %d binding %d is visible to %s, want only %s", w.Group, w.Binding, g.Visibility, w.Visibility)
		}
	}
	for _, g := range got.Resources {
		if _, ok := want.Resource(g.Group, g.Binding); !ok {
			add("unexpected %s %s at group %d binding %d", g.Kind, g.Name, g.Group, g.Binding)
		}
	}

	for _, w := range want.EntryPoints {
		g, ok := got.EntryPoint(w.Stage)
		if !ok {
			add("missing %s entry point", w.Stage)
			continue
		}
		if g.Name != w.Name {
			add("%s entry point is %s, want %s", w.Stage, g.Name, w.Name)
		}
		if w.Position && !g.Position {
			add("%s entry point does not write @builtin(position)", w.Stage)
		}
		compareLocations(w.Stage.String()+" input", g.Inputs, w.Inputs, add)
		compareLocations(w.Stage.String()+" output", g.Outputs, w.Outputs, add)
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Wrap(ErrContract, strings.Join(problems, "; "))
}

func compareLocations(what string, got, want []Location, add func(string, ...any)) {
	if len(got) != len(want) {
		add("%s has %d locations, want %d", what, len(got), len(want))
		return
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Location != w.Location || g.Scalar != w.Scalar || g.Components != w.Components {
			add("%s %d: location %d with %d components of kind %d, want location %d with %d of kind %d",
				what, i, g.Location, g.Components, g.Scalar, w.Location, w.Components, w.Scalar)
		}
	}
}
