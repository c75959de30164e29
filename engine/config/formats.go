package config

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var textureFormats = map[string]wgpu.TextureFormat{
	"bgra8unorm":      wgpu.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb": wgpu.TextureFormatBGRA8UnormSrgb,
	"rgba8unorm":      wgpu.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb": wgpu.TextureFormatRGBA8UnormSrgb,
	"rgba16float":     wgpu.TextureFormatRGBA16Float,
}

// ParseTextureFormat maps a WebGPU format name to its enum value.
func ParseTextureFormat(name string) (wgpu.TextureFormat, error) {
	f, ok := textureFormats[strings.ToLower(name)]
	if !ok {
		return wgpu.TextureFormatUndefined, fmt.Errorf("config: unsupported texture format %q", name)
	}
	return f, nil
}
