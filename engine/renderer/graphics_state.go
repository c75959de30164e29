// Package renderer owns the long-lived GPU state shared by the screen-space passes: device and
// queue, the diffuse sampler, the quad and deferred pipelines, and the G-buffer targets.
package renderer

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/quad"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// graphicsState is the implementation of the GraphicsState interface.
type graphicsState struct {
	device   gpu.Device
	queue    gpu.Queue
	compiler shader.Compiler
	logger   *log.Logger

	format      wgpu.TextureFormat
	sampleCount MSAASampleCount
	samplerData common.SamplerStagingData

	diffuseSampler *wgpu.Sampler
	quadPipeline   quad.Pipeline
	deferred       *deferred.Pipeline
	deferredOpts   []deferred.PipelineBuilderOption
}

// GraphicsState is the GPU state shared by every frame. It is created once at startup and used
// from the render thread only.
type GraphicsState interface {
	// Device returns the device all objects are created on.
	Device() gpu.Device

	// Queue returns the queue uniform writes and submissions go through.
	Queue() gpu.Queue

	// Compiler returns the shader compiler used to build pipelines.
	Compiler() shader.Compiler

	// Logger returns the renderer logger.
	Logger() *log.Logger

	// Format returns the color format of the deferred output.
	Format() wgpu.TextureFormat

	// DiffuseSampler returns the sampler bound alongside the G-buffer textures.
	DiffuseSampler() *wgpu.Sampler

	// QuadPipeline returns the full-screen quad pipeline.
	QuadPipeline() quad.Pipeline

	// DeferredPipeline returns the deferred lighting pipeline.
	DeferredPipeline() *deferred.Pipeline

	// SampleCount returns the multisample count of the pipelines and the G-buffer.
	SampleCount() MSAASampleCount

	// SetSampleCount rebuilds the quad and deferred pipelines for a new sample count. The caller
	// must recreate the G-buffer and any deferred.Renderer afterwards. On failure the previous
	// pipelines stay in use.
	//
	// Parameters:
	//   - count: the new sample count
	//
	// Returns:
	//   - error: ErrUnsupportedSampleCount or a rebuild failure
	SetSampleCount(count MSAASampleCount) error

	// ReloadShaders re-reads the deferred shaders from disk and rebuilds the deferred pipeline.
	//
	// Returns:
	//   - error: load, compile or creation failure; the previous pipeline stays in use
	ReloadShaders() error

	// Release frees every GPU object owned by the state.
	Release()
}

var (
	_ GraphicsState  = &graphicsState{}
	_ deferred.State = &graphicsState{}
)

// NewGraphicsState creates the diffuse sampler and the quad and deferred pipelines.
// A failure here leaves nothing to render with, so it panics.
//
// Parameters:
//   - device: the device to create objects on
//   - queue: the device queue
//   - opts: a variadic list of GraphicsStateBuilderOption functions
//
// Returns:
//   - GraphicsState: the ready-to-use state
func NewGraphicsState(device gpu.Device, queue gpu.Queue, opts ...GraphicsStateBuilderOption) GraphicsState {
	s := &graphicsState{
		device:      device,
		queue:       queue,
		format:      wgpu.TextureFormatBGRA8Unorm,
		sampleCount: MSAA4x,
		samplerData: common.DefaultSamplerStagingData(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.Coalesce(s.logger, logger.Named("renderer"))
	s.compiler = common.Coalesce(s.compiler, shader.NewCompiler(shader.WithCompilerLogger(s.logger)))

	if !s.sampleCount.Multisampled() {
		panic(fmt.Sprintf("renderer: %v: %d", ErrUnsupportedSampleCount, s.sampleCount))
	}

	var err error
	s.diffuseSampler, err = device.CreateSampler(s.samplerData.Descriptor("diffuse sampler"))
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to create diffuse sampler: %v", err))
	}
	s.quadPipeline, err = quad.NewPipeline(device, s.compiler, s.format, uint32(s.sampleCount))
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to create quad pipeline: %v", err))
	}
	deferredOpts := append([]deferred.PipelineBuilderOption{deferred.WithLogger(s.logger)}, s.deferredOpts...)
	s.deferred, err = deferred.NewPipeline(device, s.compiler, s.quadPipeline, uint32(s.sampleCount), deferredOpts...)
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to create deferred pipeline: %v", err))
	}

	s.logger.Info("graphics state ready", "format", s.format, "samples", uint32(s.sampleCount))
	return s
}

func (s *graphicsState) Device() gpu.Device {
	return s.device
}

func (s *graphicsState) Queue() gpu.Queue {
	return s.queue
}

func (s *graphicsState) Compiler() shader.Compiler {
	return s.compiler
}

func (s *graphicsState) Logger() *log.Logger {
	return s.logger
}

func (s *graphicsState) Format() wgpu.TextureFormat {
	return s.format
}

func (s *graphicsState) DiffuseSampler() *wgpu.Sampler {
	return s.diffuseSampler
}

func (s *graphicsState) QuadPipeline() quad.Pipeline {
	return s.quadPipeline
}

func (s *graphicsState) DeferredPipeline() *deferred.Pipeline {
	return s.deferred
}

func (s *graphicsState) SampleCount() MSAASampleCount {
	return s.sampleCount
}

func (s *graphicsState) SetSampleCount(count MSAASampleCount) error {
	if !count.Multisampled() {
		return fmt.Errorf("%w: %d", ErrUnsupportedSampleCount, count)
	}
	if count == s.sampleCount {
		return nil
	}

	if err := s.quadPipeline.Rebuild(s.device, s.compiler, uint32(count)); err != nil {
		return err
	}
	if err := s.deferred.Rebuild(s.device, s.compiler, uint32(count)); err != nil {
		if rbErr := s.quadPipeline.Rebuild(s.device, s.compiler, uint32(s.sampleCount)); rbErr != nil {
			s.logger.Error("failed to restore quad pipeline", "samples", uint32(s.sampleCount), "err", rbErr)
		}
		return err
	}

	s.logger.Info("sample count changed", "from", uint32(s.sampleCount), "to", uint32(count))
	s.sampleCount = count
	return nil
}

func (s *graphicsState) ReloadShaders() error {
	return s.deferred.Reload(s.device, s.compiler)
}

func (s *graphicsState) Release() {
	s.deferred.Release(s.device)
	s.quadPipeline.Release(s.device)
	gpu.Release(s.device, s.diffuseSampler)
	s.diffuseSampler = nil
}
