package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"quadviewer/internal/camera"
)

// DefaultPath is read by Get when present
const DefaultPath = "config.json"

// Config holds application configuration and feature flags
type Config struct {
	Window   Window   `json:"window" yaml:"window"`
	Features Features `json:"features" yaml:"features"`
	Camera   Camera   `json:"camera" yaml:"camera"`
	Sampler  Sampler  `json:"sampler" yaml:"sampler"`

	// Textures are image files cycled with Space; empty means a built-in
	// checkerboard.
	Textures []string `json:"textures" yaml:"textures"`

	// Mesh is one of the built-in meshes: quad, fullscreen, pentagon
	Mesh string `json:"mesh" yaml:"mesh"`

	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Window contains the initial window settings
type Window struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Title  string `json:"title" yaml:"title"`
}

// Features contains feature flags
type Features struct {
	// Variant selects the shader: "camera" or "passthrough"
	Variant string `json:"variant" yaml:"variant"`

	// CullBackFaces drops clockwise triangles
	CullBackFaces bool `json:"cull_back_faces" yaml:"cull_back_faces"`

	// AnimatedClearColor cycles the background color over time
	AnimatedClearColor bool `json:"animated_clear_color" yaml:"animated_clear_color"`

	// ModelVertices uploads meshes with per-vertex normals at location 2
	ModelVertices bool `json:"model_vertices" yaml:"model_vertices"`
}

// Camera contains the initial camera placement and movement speed
type Camera struct {
	Eye       [3]float32 `json:"eye" yaml:"eye"`
	Target    [3]float32 `json:"target" yaml:"target"`
	Fovy      float32    `json:"fovy" yaml:"fovy"`
	ZNear     float32    `json:"znear" yaml:"znear"`
	ZFar      float32    `json:"zfar" yaml:"zfar"`
	MoveSpeed float32    `json:"move_speed" yaml:"move_speed"`
}

// Sampler contains the texture sampler modes
type Sampler struct {
	// Filter is "nearest" or "linear"
	Filter string `json:"filter" yaml:"filter"`

	// AddressMode is "clamp-to-edge", "repeat" or "mirror-repeat"
	AddressMode string `json:"address_mode" yaml:"address_mode"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: Window{
			Width:  1280,
			Height: 720,
			Title:  "quadviewer",
		},
		Features: Features{
			Variant:            "camera",
			CullBackFaces:      true,
			AnimatedClearColor: false,
		},
		Camera: Camera{
			Eye:       [3]float32{0, 1, 2},
			Target:    [3]float32{0, 0, 0},
			Fovy:      45,
			ZNear:     0.1,
			ZFar:      100,
			MoveSpeed: 2,
		},
		Sampler: Sampler{
			Filter:      "linear",
			AddressMode: "clamp-to-edge",
		},
		Mesh:     "pentagon",
		LogLevel: "info",
	}
}

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if instance == nil {
			instance = DefaultConfig()
		}
		// Try to load from file
		if data, err := os.ReadFile(DefaultPath); err == nil {
			if err := decode(DefaultPath, data, instance); err != nil {
				slog.Warn("ignoring config file", "path", DefaultPath, "error", err)
			}
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Load loads configuration from a JSON or YAML file. The file takes the
// place of DefaultPath: a later Get does not read DefaultPath.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	once.Do(func() {})

	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	if err := decode(path, data, instance); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a file, as YAML if the extension says so
func Save(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(instance)
	} else {
		data, err = json.MarshalIndent(instance, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Reset restores the defaults and lets the next Get read DefaultPath again
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = DefaultConfig()
	once = sync.Once{}
}

func decode(path string, data []byte, into *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, into)
	}
	return json.Unmarshal(data, into)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// SetVariant sets the shader variant name
func SetVariant(name string) {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}
	instance.Features.Variant = name
}

// GetFovy returns the current field of view in degrees
func GetFovy() float32 {
	mu.RLock()
	defer mu.RUnlock()

	if instance == nil {
		return camera.DefaultFovy
	}
	return camera.ClampFovy(instance.Camera.Fovy)
}

// AdjustFovy adjusts the field of view by a delta
func AdjustFovy(delta float32) float32 {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}

	fovy := camera.ClampFovy(instance.Camera.Fovy) + delta
	instance.Camera.Fovy = mgl32.Clamp(fovy, camera.MinFovy, camera.MaxFovy)

	return instance.Camera.Fovy
}

// SetMoveSpeed sets the camera speed, ignoring non-positive values
func SetMoveSpeed(speed float32) {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		instance = DefaultConfig()
	}
	if speed > 0 {
		instance.Camera.MoveSpeed = speed
	}
}

// Level parses LogLevel, defaulting to info
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
