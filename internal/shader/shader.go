// Package shader holds the WGSL source for the textured mesh pipeline and the
// tooling around it: compilation to the native shading languages, reflection
// of the resource bindings, and verification against the host contract.
//
// Both pipeline variants come from one template. The camera variant
// multiplies each position by a view-projection uniform at @group(1)
// @binding(0); the passthrough variant writes the position straight to clip
// space and declares no uniform.
package shader

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Entry point names shared by both variants
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// Variant selects whether the vertex stage applies the camera transform
type Variant int

const (
	Camera Variant = iota
	Passthrough
)

func (v Variant) String() string {
	switch v {
	case Camera:
		return "camera"
	case Passthrough:
		return "passthrough"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// HasCamera reports whether the variant binds the camera uniform
func (v Variant) HasCamera() bool {
	return v == Camera
}

// ParseVariant parses the names produced by Variant.String
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "camera", "textured", "":
		return Camera, nil
	case "passthrough", "flat":
		return Passthrough, nil
	}
	return 0, fmt.Errorf("unknown shader variant %q", s)
}

// Variants lists every variant in declaration order
func Variants() []Variant {
	return []Variant{Camera, Passthrough}
}

//go:embed textured.wgsl.tmpl
var templateSource string

var (
	tmplOnce sync.Once
	tmpl     *template.Template
	sources  sync.Map // Variant -> string
)

// Source returns the WGSL source for the variant
func Source(v Variant) string {
	if s, ok := sources.Load(v); ok {
		return s.(string)
	}

	tmplOnce.Do(func() {
		tmpl = template.Must(template.New("textured").Parse(templateSource))
	})

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Variant       string
		Camera        bool
		VertexEntry   string
		FragmentEntry string
	}{
		Variant:       v.String(),
		Camera:        v.HasCamera(),
		VertexEntry:   VertexEntry,
		FragmentEntry: FragmentEntry,
	})
	if err != nil {
		panic(fmt.Sprintf("shader: render %s template: %v", v, err))
	}

	s, _ := sources.LoadOrStore(v, buf.String())
	return s.(string)
}
