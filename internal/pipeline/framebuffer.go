package pipeline

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"quadviewer/internal/texture"
)

// Framebuffer is a color target with (0,0) at the top-left pixel
type Framebuffer struct {
	Width  int
	Height int
	Pixels []mgl32.Vec4
}

// NewFramebuffer allocates a transparent black framebuffer
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]mgl32.Vec4, width*height),
	}
}

// Clear fills every pixel with c
func (f *Framebuffer) Clear(c mgl32.Vec4) {
	for i := range f.Pixels {
		f.Pixels[i] = c
	}
}

func (f *Framebuffer) At(x, y int) mgl32.Vec4 {
	return f.Pixels[y*f.Width+x]
}

func (f *Framebuffer) Set(x, y int, c mgl32.Vec4) {
	f.Pixels[y*f.Width+x] = c
}

// Image quantizes the framebuffer to 8 bits per channel
func (f *Framebuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetNRGBA(x, y, texture.ToNRGBA(f.At(x, y)))
		}
	}
	return img
}
