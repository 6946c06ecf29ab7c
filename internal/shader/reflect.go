package shader

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga/ir"
)

// ResourceKind classifies a bound global
type ResourceKind int

const (
	ResourceUniform ResourceKind = iota
	ResourceStorage
	ResourceTexture
	ResourceSampler
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUniform:
		return "uniform"
	case ResourceStorage:
		return "storage"
	case ResourceTexture:
		return "texture"
	case ResourceSampler:
		return "sampler"
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// Stage is a bit set of shader stages
type Stage uint8

const (
	StageVertex Stage = 1 << iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case 0:
		return "none"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageVertex | StageFragment:
		return "vertex|fragment"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Resource is one @group/@binding global
type Resource struct {
	Name    string
	Group   uint32
	Binding uint32
	Kind    ResourceKind
	// Size is the byte size of a uniform or storage block, zero otherwise.
	Size uint32
	// Dim is set for textures.
	Dim ir.ImageDimension
	// Visibility lists the stages whose entry points reference the resource.
	Visibility Stage
}

// Location is one @location input or output
type Location struct {
	Name       string
	Location   uint32
	Scalar     ir.ScalarKind
	Components int
}

// EntryPoint describes the interface of one stage
type EntryPoint struct {
	Name    string
	Stage   Stage
	Inputs  []Location
	Outputs []Location
	// Position is set when a vertex stage writes @builtin(position).
	Position bool
}

// Reflection is the interface of a shader module seen from the host
type Reflection struct {
	Resources   []Resource
	EntryPoints []EntryPoint
}

// Resource looks up a binding
func (r *Reflection) Resource(group, binding uint32) (Resource, bool) {
	for _, res := range r.Resources {
		if res.Group == group && res.Binding == binding {
			return res, true
		}
	}
	return Resource{}, false
}

// EntryPoint looks up an entry point by stage
func (r *Reflection) EntryPoint(stage Stage) (EntryPoint, bool) {
	for _, ep := range r.EntryPoints {
		if ep.Stage == stage {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Groups returns the distinct bind group indices in ascending order
func (r *Reflection) Groups() []uint32 {
	seen := make(map[uint32]bool)
	var groups []uint32
	for _, res := range r.Resources {
		if !seen[res.Group] {
			seen[res.Group] = true
			groups = append(groups, res.Group)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// Reflect extracts bindings and stage interfaces from a lowered module
func Reflect(module *ir.Module) (*Reflection, error) {
	r := &Reflection{}

	resourceIndex := make(map[ir.GlobalVariableHandle]int)
	for i, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		kind, err := resourceKind(module, gv)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", gv.Name, err)
		}
		res := Resource{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Kind:    kind,
		}
		switch kind {
		case ResourceUniform, ResourceStorage:
			res.Size = typeSize(module, gv.Type)
		case ResourceTexture:
			res.Dim = module.Types[gv.Type].Inner.(ir.ImageType).Dim
		}
		resourceIndex[ir.GlobalVariableHandle(i)] = len(r.Resources)
		r.Resources = append(r.Resources, res)
	}

	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		fn := &ep.Function

		var stage Stage
		switch ep.Stage {
		case ir.StageVertex:
			stage = StageVertex
		case ir.StageFragment:
			stage = StageFragment
		default:
			continue
		}

		out := EntryPoint{Name: ep.Name, Stage: stage}
		for _, arg := range fn.Arguments {
			out.Inputs = append(out.Inputs, locations(module, arg.Name, arg.Type, arg.Binding, nil)...)
		}
		if fn.Result != nil {
			out.Outputs = locations(module, "", fn.Result.Type, fn.Result.Binding, &out.Position)
		}
		sortLocations(out.Inputs)
		sortLocations(out.Outputs)
		r.EntryPoints = append(r.EntryPoints, out)

		for handle := range usedGlobals(module, fn) {
			if i, ok := resourceIndex[handle]; ok {
				r.Resources[i].Visibility |= stage
			}
		}
	}

	sort.Slice(r.Resources, func(i, j int) bool {
		a, b := r.Resources[i], r.Resources[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Binding < b.Binding
	})

	return r, nil
}

func resourceKind(module *ir.Module, gv ir.GlobalVariable) (ResourceKind, error) {
	if int(gv.Type) >= len(module.Types) {
		return 0, fmt.Errorf("invalid type handle %d", gv.Type)
	}
	switch inner := module.Types[gv.Type].Inner.(type) {
	case ir.ImageType:
		return ResourceTexture, nil
	case ir.SamplerType:
		return ResourceSampler, nil
	default:
		switch gv.Space {
		case ir.SpaceUniform:
			return ResourceUniform, nil
		case ir.SpaceStorage:
			return ResourceStorage, nil
		}
		return 0, fmt.Errorf("unsupported bound type %T in address space %d", inner, gv.Space)
	}
}

// locations flattens a binding, or the member bindings of a struct, into
// location entries. Builtins are dropped; position sets *position.
func locations(module *ir.Module, name string, th ir.TypeHandle, binding *ir.Binding, position *bool) []Location {
	if binding != nil {
		switch b := (*binding).(type) {
		case ir.LocationBinding:
			scalar, n := components(module, th)
			return []Location{{Name: name, Location: b.Location, Scalar: scalar, Components: n}}
		case ir.BuiltinBinding:
			if b.Builtin == ir.BuiltinPosition && position != nil {
				*position = true
			}
		}
		return nil
	}

	st, ok := module.Types[th].Inner.(ir.StructType)
	if !ok {
		return nil
	}
	var out []Location
	for _, m := range st.Members {
		out = append(out, locations(module, m.Name, m.Type, m.Binding, position)...)
	}
	return out
}

func components(module *ir.Module, th ir.TypeHandle) (ir.ScalarKind, int) {
	switch t := module.Types[th].Inner.(type) {
	case ir.ScalarType:
		return t.Kind, 1
	case ir.VectorType:
		return t.Scalar.Kind, int(t.Size)
	}
	return ir.ScalarFloat, 0
}

func sortLocations(l []Location) {
	sort.Slice(l, func(i, j int) bool { return l[i].Location < l[j].Location })
}

// typeSize returns the host-shareable size of a type under WGSL layout rules
func typeSize(module *ir.Module, th ir.TypeHandle) uint32 {
	switch t := module.Types[th].Inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width)
	case ir.VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case ir.MatrixType:
		// Columns are padded to vec4 alignment when the column is a vec3.
		rows := uint32(t.Rows)
		if rows == 3 {
			rows = 4
		}
		return uint32(t.Columns) * rows * uint32(t.Scalar.Width)
	case ir.StructType:
		if t.Span != 0 {
			return t.Span
		}
		var end uint32
		for _, m := range t.Members {
			if e := m.Offset + typeSize(module, m.Type); e > end {
				end = e
			}
		}
		return end
	case ir.ArrayType:
		if t.Size.Constant != nil {
			return *t.Size.Constant * t.Stride
		}
	}
	return 0
}

// usedGlobals collects the globals referenced by an entry point function and
// everything it calls.
func usedGlobals(module *ir.Module, root *ir.Function) map[ir.GlobalVariableHandle]bool {
	used := make(map[ir.GlobalVariableHandle]bool)
	visited := make(map[ir.FunctionHandle]bool)

	var visitFn func(fn *ir.Function)
	var visitBlock func(b ir.Block)

	visitBlock = func(b ir.Block) {
		for _, stmt := range b {
			switch s := stmt.Kind.(type) {
			case ir.StmtCall:
				if visited[s.Function] || int(s.Function) >= len(module.Functions) {
					continue
				}
				visited[s.Function] = true
				visitFn(&module.Functions[s.Function])
			case ir.StmtBlock:
				visitBlock(s.Block)
			case ir.StmtIf:
				visitBlock(s.Accept)
				visitBlock(s.Reject)
			case ir.StmtLoop:
				visitBlock(s.Body)
				visitBlock(s.Continuing)
			case ir.StmtSwitch:
				for _, c := range s.Cases {
					visitBlock(c.Body)
				}
			}
		}
	}

	visitFn = func(fn *ir.Function) {
		for _, expr := range fn.Expressions {
			if g, ok := expr.Kind.(ir.ExprGlobalVariable); ok {
				used[g.Variable] = true
			}
		}
		visitBlock(fn.Body)
	}

	visitFn(root)
	return used
}
