package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
	"github.com/gogpu/naga/spirv"
	"github.com/pkg/errors"
)

// Target is an output language for Compile
type Target int

const (
	TargetWGSL Target = iota
	TargetSPIRV
	TargetGLSL
	TargetMSL
	TargetHLSL
)

var targetNames = map[Target]string{
	TargetWGSL:  "wgsl",
	TargetSPIRV: "spirv",
	TargetGLSL:  "glsl",
	TargetMSL:   "msl",
	TargetHLSL:  "hlsl",
}

func (t Target) String() string {
	if s, ok := targetNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// Binary reports whether the target output is a binary blob
func (t Target) Binary() bool {
	return t == TargetSPIRV
}

// ParseTarget parses a target name; "spv" and "metal" are accepted aliases
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "spv":
		return TargetSPIRV, nil
	case "metal":
		return TargetMSL, nil
	}
	for t, name := range targetNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown target %q", s)
}

// Load parses, lowers and validates the WGSL source of a variant
func Load(v Variant) (*ir.Module, error) {
	return LoadSource(v.String(), Source(v))
}

// LoadSource parses, lowers and validates arbitrary WGSL source. The name is
// only used in error messages.
func LoadSource(name, source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s shader", name)
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lower %s shader", name)
	}

	problems, err := naga.Validate(module)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to validate %s shader", name)
	}
	if len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i := range problems {
			msgs[i] = problems[i].Error()
		}
		return nil, errors.Errorf("%s shader is invalid: %s", name, strings.Join(msgs, "; "))
	}

	return module, nil
}

// Compile translates a variant into the target language. SPIR-V is returned
// as a little-endian word stream, everything else as source text.
func Compile(v Variant, target Target) ([]byte, error) {
	if target == TargetWGSL {
		return []byte(Source(v)), nil
	}

	module, err := Load(v)
	if err != nil {
		return nil, err
	}

	return CompileModule(module, target, v.String())
}

// CompileModule translates an already loaded module
func CompileModule(module *ir.Module, target Target, name string) ([]byte, error) {
	switch target {
	case TargetSPIRV:
		opts := spirv.DefaultOptions()
		code, err := naga.GenerateSPIRV(module, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile %s shader to SPIR-V", name)
		}
		return code, nil

	case TargetGLSL:
		return compileGLSL(module, name)

	case TargetMSL:
		code, _, err := msl.Compile(module, msl.DefaultOptions())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile %s shader to MSL", name)
		}
		return []byte(code), nil

	case TargetHLSL:
		code, _, err := hlsl.Compile(module, hlsl.DefaultOptions())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile %s shader to HLSL", name)
		}
		return []byte(code), nil
	}

	return nil, errors.Errorf("cannot compile %s shader to %s", name, target)
}

// GLSL has one entry point per program, so both stages are emitted one after
// the other, each headed by a marker comment.
func compileGLSL(module *ir.Module, name string) ([]byte, error) {
	var out strings.Builder
	for _, entry := range []string{VertexEntry, FragmentEntry} {
		opts := glsl.DefaultOptions()
		opts.EntryPoint = entry
		code, _, err := glsl.Compile(module, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile %s shader entry %s to GLSL", name, entry)
		}
		fmt.Fprintf(&out, "// --- %s ---\n%s\n", entry, code)
	}
	return []byte(out.String()), nil
}
