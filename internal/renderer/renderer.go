package renderer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"quadviewer/internal/camera"
	"quadviewer/internal/shader"
	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

// GPUTexture holds GPU resources for one sampled texture
type GPUTexture struct {
	Label     string
	Texture   *wgpu.Texture
	View      *wgpu.TextureView
	BindGroup *wgpu.BindGroup
}

func (t *GPUTexture) release() {
	t.BindGroup.Release()
	t.View.Release()
	t.Texture.Release()
}

// Options selects what the renderer draws with
type Options struct {
	Variant  shader.Variant
	Sampler  texture.Sampler
	CullBack bool
	// ModelVertices uploads meshes with mesh.ModelVertexLayout, normals
	// included, instead of the plain position + uv layout.
	ModelVertices bool
}

// VertexLayout returns the buffer layout meshes are uploaded with
func (o Options) VertexLayout() mesh.Layout {
	if o.ModelVertices {
		return mesh.ModelVertexLayout()
	}
	return mesh.VertexLayout()
}

// Renderer handles all WebGPU rendering
type Renderer struct {
	device          *wgpu.Device
	queue           *wgpu.Queue
	surface         *wgpu.Surface
	adapter         *wgpu.Adapter
	swapChain       *wgpu.SwapChain
	swapChainFormat wgpu.TextureFormat
	pipeline        *wgpu.RenderPipeline
	sampler         *wgpu.Sampler

	opts   Options
	layout *Layout

	// camera resources, nil for the passthrough variant
	cameraBuffer    *wgpu.Buffer
	cameraBindGroup *wgpu.BindGroup

	textures   []*GPUTexture
	current    int
	texturesMu sync.RWMutex

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32

	width  uint32
	height uint32
}

// NewRenderer creates a new WebGPU renderer
func NewRenderer(adapter *wgpu.Adapter, device *wgpu.Device, queue *wgpu.Queue, surface *wgpu.Surface, width, height uint32, opts Options) (*Renderer, error) {
	r := &Renderer{
		adapter: adapter,
		device:  device,
		queue:   queue,
		surface: surface,
		width:   width,
		height:  height,
		opts:    opts,
	}

	if err := r.init(); err != nil {
		r.Release()
		return nil, err
	}

	return r, nil
}

func (r *Renderer) init() error {
	// Layouts are built from the contract; the WGSL must match it.
	if _, err := shader.Verify(r.opts.Variant); err != nil {
		return err
	}

	r.swapChainFormat = r.surface.GetPreferredFormat(r.adapter)

	var err error
	r.swapChain, err = r.device.CreateSwapChain(r.surface, &wgpu.SwapChainDescriptor{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      r.swapChainFormat,
		Width:       r.width,
		Height:      r.height,
		PresentMode: wgpu.PresentMode_Fifo,
	})
	if err != nil {
		return fmt.Errorf("swap chain creation failed: %w", err)
	}

	module, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          r.opts.Variant.String() + "_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shader.Source(r.opts.Variant)},
	})
	if err != nil {
		return fmt.Errorf("shader creation failed: %w", err)
	}
	defer module.Release()

	r.sampler, err = r.device.CreateSampler(SamplerDescriptor(r.opts.Sampler))
	if err != nil {
		return fmt.Errorf("sampler creation failed: %w", err)
	}

	r.layout, err = NewLayout(r.device, shader.Contract(r.opts.Variant))
	if err != nil {
		return err
	}

	pipelineLayout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "textured_pipeline_layout",
		BindGroupLayouts: r.layout.Groups,
	})
	if err != nil {
		return fmt.Errorf("pipeline layout creation failed: %w", err)
	}
	defer pipelineLayout.Release()

	cullMode := wgpu.CullMode_None
	if r.opts.CullBack {
		cullMode = wgpu.CullMode_Back
	}

	r.pipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "textured_pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    []wgpu.VertexBufferLayout{VertexBufferLayout(r.opts.VertexLayout())},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    r.swapChainFormat,
				Blend:     &wgpu.BlendState_Replace,
				WriteMask: wgpu.ColorWriteMask_All,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopology_TriangleList,
			FrontFace: wgpu.FrontFace_CCW,
			CullMode:  cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline creation failed: %w", err)
	}

	if r.opts.Variant.HasCamera() {
		if err := r.createCamera(); err != nil {
			return fmt.Errorf("camera buffer creation failed: %w", err)
		}
	}

	return nil
}

func (r *Renderer) createCamera() error {
	u := camera.NewUniform()
	var err error
	r.cameraBuffer, err = r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "camera_uniform",
		Contents: u.Bytes(),
		Usage:    wgpu.BufferUsage_Uniform | wgpu.BufferUsage_CopyDst,
	})
	if err != nil {
		return err
	}

	r.cameraBindGroup, err = r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "camera_bind_group",
		Layout: r.layout.Groups[shader.CameraGroup],
		Entries: []wgpu.BindGroupEntry{
			{Binding: shader.CameraBinding, Buffer: r.cameraBuffer, Size: camera.UniformSize},
		},
	})
	return err
}

func (r *Renderer) Variant() shader.Variant {
	return r.opts.Variant
}

// UpdateCamera writes the view-projection uniform. It is a no-op for the
// passthrough variant.
func (r *Renderer) UpdateCamera(u camera.Uniform) {
	if r.cameraBuffer == nil {
		return
	}
	r.queue.WriteBuffer(r.cameraBuffer, 0, u.Bytes())
}

// AddTexture uploads a texture and makes it current
func (r *Renderer) AddTexture(t *texture.Texture) error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("texture %s: %w", t.Label, texture.ErrEmptyImage)
	}
	img := t.NRGBA()
	size := wgpu.Extent3D{
		Width:              uint32(t.Width),
		Height:             uint32(t.Height),
		DepthOrArrayLayers: 1,
	}

	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.Label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension_2D,
		Format:        wgpu.TextureFormat_RGBA8UnormSrgb,
		Usage:         wgpu.TextureUsage_TextureBinding | wgpu.TextureUsage_CopyDst,
	})
	if err != nil {
		return fmt.Errorf("texture %s creation failed: %w", t.Label, err)
	}

	r.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspect_All},
		img.Pix,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: uint32(img.Stride), RowsPerImage: uint32(t.Height)},
		&size,
	)

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Format:          wgpu.TextureFormat_RGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimension_2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspect_All,
	})
	if err != nil {
		tex.Release()
		return fmt.Errorf("texture %s view creation failed: %w", t.Label, err)
	}

	bindGroup, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  t.Label + "_bind_group",
		Layout: r.layout.Groups[shader.TextureGroup],
		Entries: []wgpu.BindGroupEntry{
			{Binding: shader.TextureBinding, TextureView: view},
			{Binding: shader.SamplerBinding, Sampler: r.sampler},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("texture %s bind group creation failed: %w", t.Label, err)
	}

	r.texturesMu.Lock()
	r.textures = append(r.textures, &GPUTexture{Label: t.Label, Texture: tex, View: view, BindGroup: bindGroup})
	r.current = len(r.textures) - 1
	r.texturesMu.Unlock()

	slog.Debug("uploaded texture", "label", t.Label, "width", t.Width, "height", t.Height)
	return nil
}

// NextTexture makes the following texture current and returns its label
func (r *Renderer) NextTexture() string {
	r.texturesMu.Lock()
	defer r.texturesMu.Unlock()
	if len(r.textures) == 0 {
		return ""
	}
	r.current = (r.current + 1) % len(r.textures)
	return r.textures[r.current].Label
}

// SetMesh replaces the vertex and index buffers
func (r *Renderer) SetMesh(m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Triangles() == 0 {
		return fmt.Errorf("mesh %q has no triangles", m.Name)
	}

	vb, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    m.Name + "_vertices",
		Contents: VertexData(m, r.opts.VertexLayout()),
		Usage:    wgpu.BufferUsage_Vertex,
	})
	if err != nil {
		return fmt.Errorf("vertex buffer creation failed: %w", err)
	}
	ib, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    m.Name + "_indices",
		Contents: m.IndexBytes(),
		Usage:    wgpu.BufferUsage_Index,
	})
	if err != nil {
		vb.Release()
		return fmt.Errorf("index buffer creation failed: %w", err)
	}

	r.releaseMesh()
	r.vertexBuffer = vb
	r.indexBuffer = ib
	r.indexCount = uint32(m.Triangles() * 3)
	return nil
}

// Render clears the frame and draws the current mesh with the current texture
func (r *Renderer) Render(background wgpu.Color) error {
	if r.swapChain == nil {
		return fmt.Errorf("no swap chain")
	}
	view, err := r.swapChain.GetCurrentTextureView()
	if err != nil {
		// lost or outdated surface, the next frame gets a new swap chain
		r.Resize(r.width, r.height)
		return fmt.Errorf("acquiring surface texture: %w", err)
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{})
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOp_Clear,
			StoreOp:    wgpu.StoreOp_Store,
			ClearValue: background,
		}},
	})

	r.texturesMu.RLock()
	var current *GPUTexture
	if len(r.textures) > 0 {
		current = r.textures[r.current]
	}
	r.texturesMu.RUnlock()

	if current != nil && r.vertexBuffer != nil {
		pass.SetPipeline(r.pipeline)
		pass.SetBindGroup(shader.TextureGroup, current.BindGroup, nil)
		if r.cameraBindGroup != nil {
			pass.SetBindGroup(shader.CameraGroup, r.cameraBindGroup, nil)
		}
		pass.SetVertexBuffer(0, r.vertexBuffer, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(r.indexBuffer, wgpu.IndexFormat_Uint16, 0, wgpu.WholeSize)
		pass.DrawIndexed(r.indexCount, 1, 0, 0, 0)
	}

	pass.End()

	cmdBuffer, err := encoder.Finish(&wgpu.CommandBufferDescriptor{})
	if err != nil {
		return err
	}
	defer cmdBuffer.Release()

	r.queue.Submit(cmdBuffer)
	r.swapChain.Present()

	return nil
}

// Resize handles window resize
func (r *Renderer) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	r.width = width
	r.height = height

	if r.swapChain != nil {
		r.swapChain.Release()
	}

	var err error
	r.swapChain, err = r.device.CreateSwapChain(r.surface, &wgpu.SwapChainDescriptor{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      r.swapChainFormat,
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentMode_Fifo,
	})
	if err != nil {
		slog.Error("failed to recreate swap chain", "width", width, "height", height, "error", err)
		r.swapChain = nil
	}
}

func (r *Renderer) releaseMesh() {
	if r.vertexBuffer != nil {
		r.vertexBuffer.Release()
		r.vertexBuffer = nil
	}
	if r.indexBuffer != nil {
		r.indexBuffer.Release()
		r.indexBuffer = nil
	}
}

// Release frees all GPU resources
func (r *Renderer) Release() {
	r.texturesMu.Lock()
	for _, tex := range r.textures {
		tex.release()
	}
	r.textures = nil
	r.texturesMu.Unlock()

	r.releaseMesh()

	if r.cameraBindGroup != nil {
		r.cameraBindGroup.Release()
	}
	if r.cameraBuffer != nil {
		r.cameraBuffer.Release()
	}
	if r.layout != nil {
		r.layout.Release()
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	if r.swapChain != nil {
		r.swapChain.Release()
	}
}
