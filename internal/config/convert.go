package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"quadviewer/internal/camera"
	"quadviewer/internal/shader"
	"quadviewer/internal/texture"
)

// ShaderVariant parses Features.Variant
func (c *Config) ShaderVariant() (shader.Variant, error) {
	return shader.ParseVariant(c.Features.Variant)
}

// TextureSampler parses the sampler section. The filter applies to both
// magnification and minification.
func (c *Config) TextureSampler() (texture.Sampler, error) {
	filter, err := texture.ParseFilterMode(c.Sampler.Filter)
	if err != nil {
		return texture.Sampler{}, fmt.Errorf("sampler: %w", err)
	}
	address, err := texture.ParseAddressMode(c.Sampler.AddressMode)
	if err != nil {
		return texture.Sampler{}, fmt.Errorf("sampler: %w", err)
	}
	return texture.Sampler{
		AddressU:  address,
		AddressV:  address,
		MagFilter: filter,
		MinFilter: filter,
	}, nil
}

// NewCamera builds a camera from the camera section
func (c *Config) NewCamera(width, height int) *camera.Camera {
	cam := camera.NewCamera(width, height)
	cam.Eye = mgl32.Vec3(c.Camera.Eye)
	cam.Target = mgl32.Vec3(c.Camera.Target)
	cam.Fovy = camera.ClampFovy(c.Camera.Fovy)
	if c.Camera.ZNear > 0 && c.Camera.ZFar > c.Camera.ZNear {
		cam.ZNear = c.Camera.ZNear
		cam.ZFar = c.Camera.ZFar
	}
	return cam
}
