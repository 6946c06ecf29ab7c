package app

import (
	"errors"
	"log/slog"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rajveermalviya/go-webgpu/wgpu"
)

const instanceBackends = wgpu.InstanceBackend_Vulkan

// CreateSurface creates a surface for the window's X11 handle
func CreateSurface(instance *wgpu.Instance, window *glfw.Window) (*wgpu.Surface, error) {
	display := glfw.GetX11Display()
	if display == nil {
		return nil, errors.New("no X11 display")
	}
	xid := window.GetX11Window()
	slog.Debug("x11 window", "xid", uint32(xid))

	surface := instance.CreateSurface(&wgpu.SurfaceDescriptor{
		Label: "MainSurface",
		XlibWindow: &wgpu.SurfaceDescriptorFromXlibWindow{
			Display: unsafe.Pointer(display),
			Window:  uint32(xid),
		},
	})
	if surface == nil {
		return nil, errors.New("xlib surface creation failed")
	}
	return surface, nil
}
