// Package texture implements the CPU side of the sampled 2D texture: storage
// as normalized float texels, decoding from image files, and the sampler
// filtering and address modes.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrEmptyImage is returned for images with no pixels
var ErrEmptyImage = errors.New("texture: image has no pixels")

// Texture is a single-level RGBA texture with texels in [0,1]
type Texture struct {
	Label  string
	Width  int
	Height int
	Texels []mgl32.Vec4
}

// New allocates a transparent black texture
func New(label string, width, height int) *Texture {
	return &Texture{
		Label:  label,
		Width:  width,
		Height: height,
		Texels: make([]mgl32.Vec4, width*height),
	}
}

// At returns the texel at (x, y); (0,0) is the top-left texel
func (t *Texture) At(x, y int) mgl32.Vec4 {
	return t.Texels[y*t.Width+x]
}

// Set writes the texel at (x, y)
func (t *Texture) Set(x, y int, c mgl32.Vec4) {
	t.Texels[y*t.Width+x] = c
}

// Solid returns a 1x1 texture of one color
func Solid(c mgl32.Vec4) *Texture {
	t := New("solid", 1, 1)
	t.Texels[0] = c
	return t
}

// Checkerboard returns a size x size texture of cells x cells squares
// alternating between a and b, starting with a in the top-left corner.
func Checkerboard(size, cells int, a, b mgl32.Vec4) *Texture {
	if cells < 1 {
		cells = 1
	}
	t := New("checkerboard", size, size)
	cell := size / cells
	if cell < 1 {
		cell = 1
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				t.Set(x, y, a)
			} else {
				t.Set(x, y, b)
			}
		}
	}
	return t
}

// FromImage converts any image to a texture, un-premultiplying alpha
func FromImage(label string, img image.Image) (*Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(b)
		draw.Draw(nrgba, b, img, b.Min, draw.Src)
	}

	t := New(label, b.Dx(), b.Dy())
	for y := 0; y < t.Height; y++ {
		row := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < t.Width; x++ {
			p := row[x*4 : x*4+4]
			t.Set(x, y, mgl32.Vec4{
				float32(p[0]) / 255,
				float32(p[1]) / 255,
				float32(p[2]) / 255,
				float32(p[3]) / 255,
			})
		}
	}
	return t, nil
}

// Decode decodes PNG, JPEG or GIF data into a texture
func Decode(label string, data []byte) (*Texture, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", label, err)
	}
	t, err := FromImage(label, img)
	if err != nil {
		return nil, fmt.Errorf("convert %s image %s: %w", format, label, err)
	}
	return t, nil
}

// Load reads and decodes an image file
func Load(path string) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read texture: %w", err)
	}
	return Decode(path, data)
}

// NRGBA converts the texture to 8-bit straight-alpha RGBA for GPU upload
func (t *Texture) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			img.SetNRGBA(x, y, ToNRGBA(t.At(x, y)))
		}
	}
	return img
}

// ToNRGBA quantizes a float color to 8 bits per channel
func ToNRGBA(c mgl32.Vec4) color.NRGBA {
	return color.NRGBA{R: quantize(c[0]), G: quantize(c[1]), B: quantize(c[2]), A: quantize(c[3])}
}

func quantize(f float32) uint8 {
	return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
}
