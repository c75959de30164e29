package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
)

const (
	ringLights = 12
	ringRadius = 4
	orbitSpeed = 0.6 // radians per second
)

// scene owns the per-frame resources of the demo: the G-buffer, the deferred renderer,
// a camera arena and the orbiting lights.
type scene struct {
	hd       *renderer.HeadlessDevice
	state    renderer.GraphicsState
	gbuffer  *renderer.GBuffer
	deferred *deferred.Renderer
	cameras  *uniform.DynamicUniformBuffer[camera.GPUCameraUniform]
	binding  *cameraBinding
	camera   camera.Camera
	lights   []light.Light
	logger   *log.Logger

	mu    sync.Mutex
	angle float64
}

func newScene(hd *renderer.HeadlessDevice, state renderer.GraphicsState, cfg config.Config) (*scene, error) {
	w, h := cfg.Renderer.Width, cfg.Renderer.Height
	gb, err := renderer.NewGBuffer(hd.Device(), w, h, state.SampleCount(), state.Format())
	if err != nil {
		return nil, err
	}
	diffuse, normal, lighting, depth := gb.Views()
	dr, err := deferred.NewRenderer(state, diffuse, normal, lighting, depth)
	if err != nil {
		gb.Release()
		return nil, err
	}

	s := &scene{
		hd:       hd,
		state:    state,
		gbuffer:  gb,
		deferred: dr,
		cameras: uniform.NewDynamicUniformBuffer[camera.GPUCameraUniform](hd.Device(),
			uniform.WithLabel("camera arena"),
			uniform.WithCapacity(cfg.Uniform.Capacity),
			uniform.WithAlignment(cfg.Uniform.Alignment),
		),
		camera: camera.NewCamera(
			camera.WithPosition(0, 3, 9),
			camera.WithTarget(0, 0, 0),
			camera.WithAspect(float32(w)/float32(h)),
			camera.WithClipPlanes(0.1, 100),
		),
		logger: logger.Named("scene"),
	}
	if s.binding, err = newCameraBinding(hd.Device(), s.cameras); err != nil {
		s.cameras.Release()
		dr.Release(state.Device())
		gb.Release()
		return nil, err
	}
	for i := 0; i < ringLights; i++ {
		s.lights = append(s.lights, light.NewPointLight(light.WithRadius(3)))
	}
	s.placeLights(0)
	return s, nil
}

// Tick advances the light orbit. It runs on the engine tick goroutine.
func (s *scene) Tick(dt float32) {
	s.mu.Lock()
	s.angle = math.Mod(s.angle+orbitSpeed*float64(dt), 2*math.Pi)
	s.mu.Unlock()
}

func (s *scene) placeLights(angle float64) {
	for i, l := range s.lights {
		a := angle + 2*math.Pi*float64(i)/ringLights
		l.SetPosition(float32(ringRadius*math.Cos(a)), 1, float32(ringRadius*math.Sin(a)))
	}
}

// Render uploads this frame's uniforms and submits the geometry and deferred passes.
func (s *scene) Render() error {
	s.mu.Lock()
	angle := s.angle
	s.mu.Unlock()
	s.placeLights(angle)

	// every block from the previous frame was released after its submit
	if err := s.cameras.Clear(); err != nil {
		return err
	}
	block, err := s.cameras.TryAllocate(s.camera.Uniform())
	if err != nil {
		return err
	}
	defer block.Release()
	if err := s.cameras.Flush(s.state.Queue()); err != nil {
		return fmt.Errorf("failed to flush camera arena: %w", err)
	}

	frustum := s.camera.Frustum()
	view := s.camera.ViewMatrix()
	u, dropped := light.BuildDeferredUniforms(s.camera.InverseProjectionMatrix(), s.lights, light.PackOptions{
		Frustum: &frustum,
		View:    &view,
	})
	if dropped > 0 {
		s.logger.Warn("lights dropped", "dropped", dropped, "max", light.MaxLights)
	}

	// mesh draws recorded after the bind read this frame's camera block
	if err := s.hd.RenderFrame(s.gbuffer.GeometryPassDescriptor(), func(pass gpu.RenderPass) {
		s.binding.Bind(pass, block)
	}); err != nil {
		return err
	}
	return s.hd.RenderFrame(s.gbuffer.DeferredPassDescriptor(), func(pass gpu.RenderPass) {
		s.deferred.RecordDraw(s.state, pass, u)
	})
}

func (s *scene) Release() {
	s.deferred.Release(s.state.Device())
	s.binding.Release()
	s.cameras.Release()
	s.gbuffer.Release()
}
