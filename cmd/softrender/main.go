// Command softrender draws a built-in mesh with the CPU reference pipeline
// and writes the result as PNG. With -frames N it orbits the camera around
// the target and writes one numbered image per frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/schollz/progressbar/v3"

	"quadviewer/internal/camera"
	"quadviewer/internal/config"
	"quadviewer/internal/pipeline"
	"quadviewer/internal/texture"
	"quadviewer/pkg/mesh"
)

var (
	configPath  = flag.String("config", "", "configuration file (JSON or YAML)")
	width       = flag.Int("width", 512, "image width")
	height      = flag.Int("height", 512, "image height")
	variantName = flag.String("variant", "", "shader variant, overrides the configuration")
	meshName    = flag.String("mesh", "", "built-in mesh: pentagon, quad or fullscreen")
	texturePath = flag.String("texture", "", "texture image (default: checkerboard)")
	output      = flag.String("o", "out.png", "output file")
	frames      = flag.Int("frames", 1, "number of orbit frames")
	workers     = flag.Int("workers", 0, "raster workers (default: GOMAXPROCS)")
	logLevel    = flag.String("log-level", "", "log level, overrides the configuration")
)

var background = mgl32.Vec4{0.1, 0.2, 0.3, 1}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "softrender: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		if err := config.Load(*configPath); err != nil {
			return err
		}
		cfg = config.Get()
	}
	if *variantName != "" {
		cfg.Features.Variant = *variantName
	}
	if *meshName != "" {
		cfg.Mesh = *meshName
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", *width, *height)
	}
	if *frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", *frames)
	}

	variant, err := cfg.ShaderVariant()
	if err != nil {
		return err
	}
	sampler, err := cfg.TextureSampler()
	if err != nil {
		return err
	}
	m, err := mesh.ByName(cfg.Mesh)
	if err != nil {
		return err
	}
	tex, err := loadTexture(*texturePath)
	if err != nil {
		return err
	}

	p := pipeline.New(tex, sampler)
	p.CullBack = cfg.Features.CullBackFaces
	p.Workers = *workers

	cam := cfg.NewCamera(*width, *height)
	uniform := camera.NewUniform()
	fb := pipeline.NewFramebuffer(*width, *height)

	slog.Info("rendering", "variant", variant, "mesh", m.Name, "texture", tex.Label,
		"size", fmt.Sprintf("%dx%d", *width, *height), "frames", *frames)

	var bar *progressbar.ProgressBar
	if *frames > 1 {
		bar = progressbar.Default(int64(*frames), "rendering")
		defer bar.Close()
	}

	step := float32(2*math.Pi) / float32(*frames)
	for i := 0; i < *frames; i++ {
		if variant.HasCamera() {
			uniform.Update(cam)
			p.SetTransform(uniform.Matrix())
		}

		fb.Clear(background)
		if err := p.Draw(ctx, fb, m); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		path := *output
		if *frames > 1 {
			path = framePath(*output, i, *frames)
		}
		if err := writePNG(path, fb); err != nil {
			return err
		}
		slog.Debug("frame written", "path", path)

		if bar != nil {
			bar.Add(1)
		}
		camera.Orbit(cam, step)
	}

	if *frames == 1 {
		slog.Info("wrote image", "path", *output)
	}
	return nil
}

func loadTexture(path string) (*texture.Texture, error) {
	if path == "" {
		return texture.Checkerboard(256, 8, mgl32.Vec4{0.9, 0.9, 0.9, 1}, mgl32.Vec4{0.2, 0.2, 0.25, 1}), nil
	}
	return texture.Load(path)
}

// framePath numbers an output path, "out.png" becoming "out_007.png"
func framePath(path string, i, n int) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".png"
	}
	digits := len(fmt.Sprint(n - 1))
	return fmt.Sprintf("%s_%0*d%s", strings.TrimSuffix(path, filepath.Ext(path)), digits, i, ext)
}

func writePNG(path string, fb *pipeline.Framebuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, fb.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
