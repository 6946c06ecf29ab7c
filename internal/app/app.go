package app

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rajveermalviya/go-webgpu/wgpu"

	"quadviewer/internal/camera"
	"quadviewer/internal/config"
	"quadviewer/internal/renderer"
	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

// ScrollZoomStep is the field of view change per scroll notch, in degrees
const ScrollZoomStep = 2

var keyDirections = map[glfw.Key]camera.Direction{
	glfw.KeyW:     camera.Forward,
	glfw.KeyUp:    camera.Forward,
	glfw.KeyS:     camera.Backward,
	glfw.KeyDown:  camera.Backward,
	glfw.KeyA:     camera.Left,
	glfw.KeyLeft:  camera.Left,
	glfw.KeyD:     camera.Right,
	glfw.KeyRight: camera.Right,
	glfw.KeyE:     camera.Up,
	glfw.KeyQ:     camera.Down,
}

type App struct {
	cfg *config.Config

	window   *glfw.Window
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	renderer   *renderer.Renderer
	camera     *camera.Camera
	controller *camera.Controller
	uniform    camera.Uniform

	keys   map[glfw.Key]bool
	keysMu sync.RWMutex

	start         time.Time
	width, height int
}

func New(cfg *config.Config) (*App, error) {
	runtime.LockOSThread()

	variant, err := cfg.ShaderVariant()
	if err != nil {
		return nil, err
	}
	sampler, err := cfg.TextureSampler()
	if err != nil {
		return nil, err
	}
	m, err := mesh.ByName(cfg.Mesh)
	if err != nil {
		return nil, err
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("GLFW init failed: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.CocoaRetinaFramebuffer, glfw.True)

	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window creation failed: %w", err)
	}

	app := &App{
		cfg:    cfg,
		window: window,
		keys:   make(map[glfw.Key]bool),
		start:  time.Now(),
	}
	app.width, app.height = window.GetFramebufferSize()

	if err := app.initWebGPU(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.camera = cfg.NewCamera(app.width, app.height)
	app.controller = camera.NewController(cfg.Camera.MoveSpeed)
	app.uniform = camera.NewUniform()

	app.renderer, err = renderer.NewRenderer(app.adapter, app.device, app.queue, app.surface,
		uint32(app.width), uint32(app.height), renderer.Options{
			Variant:       variant,
			Sampler:       sampler,
			CullBack:      cfg.Features.CullBackFaces,
			ModelVertices: cfg.Features.ModelVertices,
		})
	if err != nil {
		app.Cleanup()
		return nil, fmt.Errorf("renderer creation failed: %w", err)
	}

	if err := app.renderer.SetMesh(m); err != nil {
		app.Cleanup()
		return nil, err
	}
	if err := app.loadTextures(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.setupCallbacks()
	slog.Info("viewer ready", "variant", variant, "mesh", m.Name, "width", app.width, "height", app.height)

	return app, nil
}

func (app *App) initWebGPU() error {
	app.instance = wgpu.CreateInstance(&wgpu.InstanceDescriptor{
		Backends: instanceBackends,
	})
	if app.instance == nil {
		return fmt.Errorf("failed to create WebGPU instance")
	}

	var err error
	app.surface, err = CreateSurface(app.instance, app.window)
	if err != nil {
		return fmt.Errorf("surface creation failed: %w", err)
	}

	// Request adapter - try with surface first, then without
	app.adapter, err = app.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: app.surface,
		PowerPreference:   wgpu.PowerPreference_HighPerformance,
	})
	if err != nil {
		slog.Warn("no adapter for surface, retrying without constraint", "error", err)
		app.adapter, err = app.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreference_HighPerformance,
		})
		if err != nil {
			return fmt.Errorf("adapter request failed: %w", err)
		}
	}

	props := app.adapter.GetProperties()
	slog.Info("using adapter", "name", props.Name, "driver", props.DriverDescription)

	app.device, err = app.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "QuadViewerDevice",
	})
	if err != nil {
		return fmt.Errorf("device request failed: %w", err)
	}

	app.queue = app.device.GetQueue()
	return nil
}

// loadTextures uploads the configured images, or a checkerboard when none
// are configured or none of them load.
func (app *App) loadTextures() error {
	loaded := 0
	for _, path := range app.cfg.Textures {
		tex, err := texture.Load(path)
		if err != nil {
			slog.Warn("skipping texture", "path", path, "error", err)
			continue
		}
		if err := app.renderer.AddTexture(tex); err != nil {
			return err
		}
		loaded++
	}
	if loaded > 0 {
		return nil
	}
	return app.renderer.AddTexture(texture.Checkerboard(256, 8,
		mgl32.Vec4{0.9, 0.9, 0.9, 1}, mgl32.Vec4{0.2, 0.2, 0.25, 1}))
}

func (app *App) setupCallbacks() {
	app.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		app.width = width
		app.height = height
		app.camera.SetViewport(width, height)
		app.renderer.Resize(uint32(width), uint32(height))
	})

	app.window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		if yoff == 0 {
			return
		}
		app.camera.Fovy = config.AdjustFovy(float32(-yoff) * ScrollZoomStep)
		slog.Debug("zoom", "fovy", app.camera.Fovy)
	})

	app.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		app.keysMu.Lock()
		if action == glfw.Press {
			app.keys[key] = true
		} else if action == glfw.Release {
			app.keys[key] = false
		}
		app.keysMu.Unlock()

		// Handle single-press actions (not held)
		if action == glfw.Press {
			switch key {
			case glfw.KeyEscape:
				w.SetShouldClose(true)
			case glfw.KeySpace:
				label := app.renderer.NextTexture()
				slog.Info("texture", "label", label)
			case glfw.KeyEqual, glfw.KeyKPAdd:
				app.setMoveSpeed(app.controller.Speed * 1.5)
			case glfw.KeyMinus, glfw.KeyKPSubtract:
				app.setMoveSpeed(app.controller.Speed / 1.5)
			}
		}
	})
}

func (app *App) setMoveSpeed(speed float32) {
	config.SetMoveSpeed(speed)
	app.controller.Speed = config.Get().Camera.MoveSpeed
	slog.Debug("move speed", "speed", app.controller.Speed)
}

func (app *App) processInput(dt float32) {
	held := make(map[camera.Direction]bool, len(keyDirections))
	app.keysMu.RLock()
	for key, d := range keyDirections {
		held[d] = held[d] || app.keys[key]
	}
	app.keysMu.RUnlock()

	for d, down := range held {
		app.controller.SetHeld(d, down)
	}
	app.controller.Update(app.camera, dt)
}

// clearColor returns the background, cycling slowly when animated
func (app *App) clearColor() wgpu.Color {
	if !app.cfg.Features.AnimatedClearColor {
		return wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}
	}
	t := time.Since(app.start).Seconds()
	return wgpu.Color{
		R: 0.5 + 0.5*math.Sin(t),
		G: 0.5 + 0.5*math.Sin(t+2*math.Pi/3),
		B: 0.5 + 0.5*math.Sin(t+4*math.Pi/3),
		A: 1.0,
	}
}

func (app *App) Run() error {
	lastTime := time.Now()
	lastFrame := lastTime
	frames := 0
	variant := app.renderer.Variant()

	for !app.window.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		app.processInput(float32(now.Sub(lastFrame).Seconds()))
		lastFrame = now

		if variant.HasCamera() {
			app.uniform.Update(app.camera)
			app.renderer.UpdateCamera(app.uniform)
		}

		if err := app.renderer.Render(app.clearColor()); err != nil {
			slog.Error("render failed", "error", err)
		}

		frames++
		if time.Since(lastTime) >= time.Second {
			app.window.SetTitle(fmt.Sprintf("%s | %s | FOV: %.0f | FPS: %d", app.cfg.Window.Title, variant, config.GetFovy(), frames))
			frames = 0
			lastTime = time.Now()
		}
	}

	return nil
}

func (app *App) Cleanup() {
	if app.renderer != nil {
		app.renderer.Release()
	}
	if app.queue != nil {
		app.queue.Release()
	}
	if app.device != nil {
		app.device.Release()
	}
	if app.adapter != nil {
		app.adapter.Release()
	}
	if app.surface != nil {
		app.surface.Release()
	}
	if app.instance != nil {
		app.instance.Release()
	}
	if app.window != nil {
		app.window.Destroy()
	}
	glfw.Terminate()
}
