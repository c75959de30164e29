// Package config loads the engine's TOML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the file name Load looks for when no path is given.
const DefaultPath = "oxy.toml"

// Config is the root of oxy.toml.
type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Uniform  UniformConfig  `toml:"uniform"`
	Log      LogConfig      `toml:"log"`
}

// RendererConfig controls device selection and the deferred pass outputs.
type RendererConfig struct {
	// MSAA is the sample count of the G-buffer and deferred output: 4, 8 or 16. The deferred pass
	// reads multisampled textures, so single sampling is not supported.
	MSAA uint32 `toml:"msaa"`
	// Format is the output color format name, see ParseTextureFormat.
	Format string `toml:"format"`
	// Width and Height are the G-buffer dimensions in pixels.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// ForceSoftware requests the fallback (CPU) adapter.
	ForceSoftware bool `toml:"force_software"`
	// ValidateShaders runs WGSL through naga before handing it to the device.
	ValidateShaders bool `toml:"validate_shaders"`
	// ShaderDir, when set, loads deferred shaders from disk instead of the embedded copies.
	ShaderDir string `toml:"shader_dir"`
	// WatchShaders rebuilds pipelines when files under ShaderDir change.
	WatchShaders bool `toml:"watch_shaders"`
}

// UniformConfig sizes the dynamic uniform arena.
type UniformConfig struct {
	Capacity  uint64 `toml:"capacity"`
	Alignment uint64 `toml:"alignment"`
}

// LogConfig selects the logger level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Renderer: RendererConfig{
			MSAA:            4,
			Format:          "bgra8unorm",
			Width:           1280,
			Height:          720,
			ValidateShaders: true,
		},
		Uniform: UniformConfig{
			Capacity:  16384,
			Alignment: 256,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the TOML file at path on top of Default. A missing file yields the defaults.
//
// Parameters:
//   - path: file to read; empty means DefaultPath
//
// Returns:
//   - Config: the merged configuration
//   - error: read, decode or validation failure
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return Parse(data, cfg)
}

// Parse decodes TOML bytes over base and validates the result. Unknown keys are rejected.
func Parse(data []byte, base Config) (Config, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&base); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return base, fmt.Errorf("config: %s", strict.String())
		}
		return base, fmt.Errorf("config: %w", err)
	}
	return base, base.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Renderer.MSAA {
	case 4, 8, 16:
	default:
		return fmt.Errorf("config: renderer.msaa must be 4, 8 or 16, got %d", c.Renderer.MSAA)
	}
	if _, err := ParseTextureFormat(c.Renderer.Format); err != nil {
		return err
	}
	if c.Renderer.Width == 0 || c.Renderer.Height == 0 {
		return fmt.Errorf("config: renderer size must be non-zero, got %dx%d", c.Renderer.Width, c.Renderer.Height)
	}
	if c.Renderer.WatchShaders && c.Renderer.ShaderDir == "" {
		return errors.New("config: renderer.watch_shaders requires renderer.shader_dir")
	}
	a := c.Uniform.Alignment
	if a == 0 || a&(a-1) != 0 {
		return fmt.Errorf("config: uniform.alignment must be a power of two, got %d", a)
	}
	if c.Uniform.Capacity < a || c.Uniform.Capacity%a != 0 {
		return fmt.Errorf("config: uniform.capacity must be a non-zero multiple of %d, got %d", a, c.Uniform.Capacity)
	}
	if c.Uniform.Capacity > math.MaxUint32 {
		return fmt.Errorf("config: uniform.capacity must fit a 32-bit offset, got %d", c.Uniform.Capacity)
	}
	return nil
}

// Encode renders c as TOML, used to write a starter file.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
