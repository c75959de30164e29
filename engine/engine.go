package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
)

// engine implements the Engine interface.
// Coordinates the tick goroutine and the render loop.
type engine struct {
	tickRateChannel chan struct{} // Wakes the tick loop after engineTickRate changes

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	logger           *log.Logger

	engineTickRate atomic.Int64 // time.Duration between ticks
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32) error

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // 0 = run until quit
	frames           atomic.Uint64
}

// Engine drives a fixed-rate tick loop and a render loop for offscreen rendering.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for simulation updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick. It runs on the tick
	// goroutine, concurrently with the render callback.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame on the goroutine that
	// called Run. Uniform writes and frame submission belong here. Returning an error stops the engine.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32) error)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frames returns the number of frames rendered so far.
	Frames() uint64

	// Run starts the tick goroutine and runs the render loop on the calling goroutine. It blocks
	// until ctx is done, Quit is called, the frame budget is spent, or a frame fails.
	//
	// Parameters:
	//   - ctx: cancels the run
	//
	// Returns:
	//   - error: the render callback error or recovered panic, nil on a clean stop
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan struct{}, 1),
		quitChannel:     make(chan struct{}),
	}
	e.engineTickRate.Store(int64(time.Second / 60))

	for _, opt := range options {
		opt(e)
	}
	e.logger = common.Coalesce(e.logger, logger.Named("engine"))
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: already running")
	}
	defer func() {
		e.signalQuit()
		e.wg.Wait()
	}()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit(ctx)

	return e.handleRender()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and reloads the rate whenever
// tickRateChannel fires. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(time.Duration(e.engineTickRate.Load()))
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case <-e.tickRateChannel:
			ticker.Reset(time.Duration(e.engineTickRate.Load()))
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop. A panic inside the render
// callback is recovered and returned as an error.
func (e *engine) handleRender() (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render loop recovered from panic", "panic", r)
			err = fmt.Errorf("engine: render panic: %v", r)
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}

		frameStart := time.Now()
		dt := float32(frameStart.Sub(lastRender).Seconds())
		lastRender = frameStart

		if e.renderCallback != nil {
			if err := e.renderCallback(dt); err != nil {
				e.logger.Error("frame failed", "frame", e.frames.Load(), "err", err)
				return err
			}
		}
		n := e.frames.Add(1)

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if e.maxFrames > 0 && n >= e.maxFrames {
			e.logger.Debug("frame budget reached", "frames", n)
			return nil
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(frameStart); remaining > 0 {
				select {
				case <-e.quitChannel:
					return nil
				case <-time.After(remaining):
				}
			}
		}
	}
}

// handleQuit turns context cancellation into a quit signal.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-ctx.Done():
		e.signalQuit()
	case <-e.quitChannel:
	}
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately. Safe for concurrent use.
func (e *engine) SetTickRate(fps float64) {
	e.engineTickRate.Store(int64(tickInterval(fps)))

	// a pending wake-up already reloads the latest rate
	select {
	case e.tickRateChannel <- struct{}{}:
	default:
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32) error) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
