package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// GBufferTarget names one G-buffer attachment.
type GBufferTarget int

const (
	// GBufferDiffuse holds albedo color.
	GBufferDiffuse GBufferTarget = iota
	// GBufferNormal holds view-space normals packed into [0, 1].
	GBufferNormal
	// GBufferLight holds baked and accumulated light.
	GBufferLight
	// GBufferDepth holds the projected depth sampled by the deferred pass.
	GBufferDepth

	gbufferTargetCount
)

// gbufferFormats is the color format of each G-buffer target.
var gbufferFormats = [gbufferTargetCount]wgpu.TextureFormat{
	GBufferDiffuse: wgpu.TextureFormatRGBA8Unorm,
	GBufferNormal:  wgpu.TextureFormatRGBA16Float,
	GBufferLight:   wgpu.TextureFormatRGBA16Float,
	GBufferDepth:   wgpu.TextureFormatR32Float,
}

var gbufferNames = [gbufferTargetCount]string{"diffuse", "normal", "light", "depth"}

func (t GBufferTarget) String() string {
	if t >= 0 && t < gbufferTargetCount {
		return gbufferNames[t]
	}
	return fmt.Sprintf("GBufferTarget(%d)", int(t))
}

// Format returns the texture format of the target.
func (t GBufferTarget) Format() wgpu.TextureFormat {
	return gbufferFormats[t]
}

type renderTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// GBuffer owns the multisampled geometry-pass attachments read by the deferred pass, plus the
// deferred output and its single-sample resolve target.
type GBuffer struct {
	device      gpu.Device
	id          uuid.UUID
	width       uint32
	height      uint32
	sampleCount uint32
	format      wgpu.TextureFormat

	targets [gbufferTargetCount]renderTarget
	output  renderTarget
	resolve renderTarget
}

// NewGBuffer creates the G-buffer textures at the given size. Texture labels carry a per-buffer
// id so captures can tell successive G-buffers apart.
//
// Parameters:
//   - device: the device to create textures on
//   - width, height: the attachment size in pixels
//   - sampleCount: the multisample count, matching the pipelines
//   - format: the deferred output format, matching the deferred pipeline
//
// Returns:
//   - *GBuffer: the G-buffer
//   - error: texture or view creation failure
func NewGBuffer(device gpu.Device, width, height uint32, sampleCount MSAASampleCount, format wgpu.TextureFormat) (*GBuffer, error) {
	g := &GBuffer{device: device, format: format}
	if err := g.Resize(width, height, sampleCount); err != nil {
		return nil, err
	}
	return g, nil
}

// Resize recreates every attachment. Views handed out before are released, so dependent bind
// groups (a deferred.Renderer) must be recreated too. On failure the previous attachments stay.
//
// Parameters:
//   - width, height: the new size in pixels
//   - sampleCount: the multisample count
//
// Returns:
//   - error: ErrUnsupportedSampleCount, a zero size, or a creation failure
func (g *GBuffer) Resize(width, height uint32, sampleCount MSAASampleCount) error {
	if !sampleCount.Multisampled() {
		return fmt.Errorf("%w: %d", ErrUnsupportedSampleCount, sampleCount)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("renderer: g-buffer size must be non-zero, got %dx%d", width, height)
	}

	next := &GBuffer{
		device:      g.device,
		id:          uuid.New(),
		width:       width,
		height:      height,
		sampleCount: uint32(sampleCount),
		format:      g.format,
	}

	attachment := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	for t := GBufferTarget(0); t < gbufferTargetCount; t++ {
		rt, err := next.createTarget(t.String(), t.Format(), next.sampleCount, attachment)
		if err != nil {
			next.release()
			return err
		}
		next.targets[t] = rt
	}

	// The deferred pass draws into the multisampled output; the resolved result is what the caller reads.
	var err error
	if next.output, err = next.createTarget("output", next.format, next.sampleCount, wgpu.TextureUsageRenderAttachment); err != nil {
		next.release()
		return err
	}
	resolveUsage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc
	if next.resolve, err = next.createTarget("resolve", next.format, 1, resolveUsage); err != nil {
		next.release()
		return err
	}

	g.release()
	*g = *next
	return nil
}

func (g *GBuffer) createTarget(name string, format wgpu.TextureFormat, samples uint32, usage wgpu.TextureUsage) (renderTarget, error) {
	label := fmt.Sprintf("gbuffer %s %s", name, g.id)
	tex, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              g.width,
			Height:             g.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return renderTarget{}, fmt.Errorf("renderer: failed to create %s texture: %w", name, err)
	}
	view, err := gpu.CreateView(g.device, tex, nil)
	if err != nil {
		gpu.Release(g.device, tex)
		return renderTarget{}, fmt.Errorf("renderer: failed to create %s view: %w", name, err)
	}
	return renderTarget{texture: tex, view: view}, nil
}

// ID returns the id carried in the texture labels.
func (g *GBuffer) ID() uuid.UUID {
	return g.id
}

// Size returns the attachment size in pixels.
func (g *GBuffer) Size() (width, height uint32) {
	return g.width, g.height
}

// SampleCount returns the multisample count of the attachments.
func (g *GBuffer) SampleCount() uint32 {
	return g.sampleCount
}

// View returns the view of a G-buffer target.
func (g *GBuffer) View(t GBufferTarget) *wgpu.TextureView {
	return g.targets[t].view
}

// Views returns the diffuse, normal, light and depth views in deferred binding order.
func (g *GBuffer) Views() (diffuse, normal, light, depth *wgpu.TextureView) {
	return g.View(GBufferDiffuse), g.View(GBufferNormal), g.View(GBufferLight), g.View(GBufferDepth)
}

// ResolveTexture returns the single-sample texture holding the deferred result.
func (g *GBuffer) ResolveTexture() *wgpu.Texture {
	return g.resolve.texture
}

// GeometryPassDescriptor returns a render pass clearing the four G-buffer targets, for geometry
// passes that fill them.
//
// Returns:
//   - *wgpu.RenderPassDescriptor: the pass descriptor
func (g *GBuffer) GeometryPassDescriptor() *wgpu.RenderPassDescriptor {
	attachments := make([]wgpu.RenderPassColorAttachment, 0, gbufferTargetCount)
	for t := GBufferTarget(0); t < gbufferTargetCount; t++ {
		clear := wgpu.Color{}
		if t == GBufferDepth {
			clear = wgpu.Color{R: 1}
		}
		attachments = append(attachments, wgpu.RenderPassColorAttachment{
			View:       g.targets[t].view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		})
	}
	return &wgpu.RenderPassDescriptor{
		Label:            "geometry pass",
		ColorAttachments: attachments,
	}
}

// DeferredPassDescriptor returns the render pass for the deferred draw: the multisampled output
// is cleared and resolved into the resolve texture. There is no depth attachment.
//
// Returns:
//   - *wgpu.RenderPassDescriptor: the pass descriptor
func (g *GBuffer) DeferredPassDescriptor() *wgpu.RenderPassDescriptor {
	return &wgpu.RenderPassDescriptor{
		Label: "deferred pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          g.output.view,
				ResolveTarget: g.resolve.view,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       wgpu.StoreOpDiscard, // Don't store MSAA data, just resolve
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
	}
}

// Release frees every texture and view.
func (g *GBuffer) Release() {
	g.release()
}

func (g *GBuffer) release() {
	for i := range g.targets {
		gpu.Release(g.device, g.targets[i].view, g.targets[i].texture)
		g.targets[i] = renderTarget{}
	}
	gpu.Release(g.device, g.output.view, g.output.texture, g.resolve.view, g.resolve.texture)
	g.output = renderTarget{}
	g.resolve = renderTarget{}
}
