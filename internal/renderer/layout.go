package renderer

import (
	"fmt"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"quadviewer/internal/shader"
	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

// Layout holds one bind group layout per group index
type Layout struct {
	Groups []*wgpu.BindGroupLayout
}

// NewLayout creates bind group layouts for every group a reflection declares
func NewLayout(device *wgpu.Device, refl *shader.Reflection) (*Layout, error) {
	l := &Layout{}
	groups := refl.Groups()
	if len(groups) == 0 {
		return l, nil
	}
	for g := uint32(0); g <= groups[len(groups)-1]; g++ {
		entries, err := LayoutEntries(refl, g)
		if err != nil {
			l.Release()
			return nil, err
		}
		bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("group%d_layout", g),
			Entries: entries,
		})
		if err != nil {
			l.Release()
			return nil, fmt.Errorf("bind group layout %d creation failed: %w", g, err)
		}
		l.Groups = append(l.Groups, bgl)
	}
	return l, nil
}

func (l *Layout) Release() {
	for _, g := range l.Groups {
		g.Release()
	}
	l.Groups = nil
}

// LayoutEntries converts the resources of one group into layout entries
func LayoutEntries(refl *shader.Reflection, group uint32) ([]wgpu.BindGroupLayoutEntry, error) {
	var entries []wgpu.BindGroupLayoutEntry
	for _, res := range refl.Resources {
		if res.Group != group {
			continue
		}
		e := wgpu.BindGroupLayoutEntry{
			Binding:    res.Binding,
			Visibility: Visibility(res.Visibility),
		}
		switch res.Kind {
		case shader.ResourceUniform:
			e.Buffer = wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingType_Uniform,
				MinBindingSize: uint64(res.Size),
			}
		case shader.ResourceStorage:
			e.Buffer = wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingType_ReadOnlyStorage,
				MinBindingSize: uint64(res.Size),
			}
		case shader.ResourceSampler:
			e.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingType_Filtering}
		case shader.ResourceTexture:
			e.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleType_Float,
				ViewDimension: wgpu.TextureViewDimension_2D,
			}
		default:
			return nil, fmt.Errorf("group %d binding %d: unsupported resource %s", res.Group, res.Binding, res.Kind)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Visibility maps reflected stages to wgpu shader stages
func Visibility(s shader.Stage) wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if s&shader.StageVertex != 0 {
		v |= wgpu.ShaderStage_Vertex
	}
	if s&shader.StageFragment != 0 {
		v |= wgpu.ShaderStage_Fragment
	}
	return v
}

// VertexBufferLayout converts a mesh layout
func VertexBufferLayout(l mesh.Layout) wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = wgpu.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		}
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: l.Stride,
		StepMode:    wgpu.VertexStepMode_Vertex,
		Attributes:  attrs,
	}
}

// VertexData packs a mesh's vertices for the given layout
func VertexData(m *mesh.Mesh, l mesh.Layout) []byte {
	if l.Stride == mesh.ModelVertexStride {
		return mesh.ModelVertexBytes(m.ModelVertices())
	}
	return m.VertexBytes()
}

func vertexFormat(f mesh.Format) wgpu.VertexFormat {
	switch f {
	case mesh.Float32x2:
		return wgpu.VertexFormat_Float32x2
	case mesh.Float32x3:
		return wgpu.VertexFormat_Float32x3
	}
	return wgpu.VertexFormat_Float32x4
}

// SamplerDescriptor converts a CPU sampler description
func SamplerDescriptor(s texture.Sampler) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		AddressModeU:   addressMode(s.AddressU),
		AddressModeV:   addressMode(s.AddressV),
		AddressModeW:   wgpu.AddressMode_ClampToEdge,
		MagFilter:      filterMode(s.MagFilter),
		MinFilter:      filterMode(s.MinFilter),
		MipmapFilter:   wgpu.MipmapFilterMode_Nearest,
		LodMaxClamp:    32,
		MaxAnisotrophy: 1,
	}
}

func addressMode(a texture.AddressMode) wgpu.AddressMode {
	switch a {
	case texture.Repeat:
		return wgpu.AddressMode_Repeat
	case texture.MirrorRepeat:
		return wgpu.AddressMode_MirrorRepeat
	}
	return wgpu.AddressMode_ClampToEdge
}

func filterMode(f texture.FilterMode) wgpu.FilterMode {
	if f == texture.FilterLinear {
		return wgpu.FilterMode_Linear
	}
	return wgpu.FilterMode_Nearest
}
