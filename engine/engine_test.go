package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() EngineBuilderOption {
	return WithLogger(log.New(io.Discard))
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	e := NewEngine(quiet(), WithMaxFrames(5))
	var calls int
	e.SetRenderCallback(func(dt float32) error {
		calls++
		assert.GreaterOrEqual(t, dt, float32(0))
		return nil
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 5, calls)
	assert.Equal(t, uint64(5), e.Frames())
}

func TestRunReturnsFrameError(t *testing.T) {
	boom := errors.New("submit failed")
	e := NewEngine(quiet())
	e.SetRenderCallback(func(float32) error {
		return boom
	})

	assert.ErrorIs(t, e.Run(context.Background()), boom)
	assert.Zero(t, e.Frames())
}

func TestRunRecoversPanic(t *testing.T) {
	e := NewEngine(quiet())
	e.SetRenderCallback(func(float32) error {
		panic("lost device")
	})

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lost device")
}

func TestRunStopsOnQuit(t *testing.T) {
	e := NewEngine(quiet(), WithRenderFrameLimit(1000))
	e.SetRenderCallback(func(float32) error {
		if e.Frames() == 2 {
			e.Quit()
		}
		return nil
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.Frames())
	e.Quit()
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine(quiet(), WithRenderFrameLimit(200))
	e.SetRenderCallback(func(float32) error {
		cancel()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
}

func TestTickCallbackRuns(t *testing.T) {
	var ticks atomic.Int32
	e := NewEngine(quiet(), WithTickRate(500), WithRenderFrameLimit(100))
	e.SetTickCallback(func(float32) {
		ticks.Add(1)
	})
	e.SetRenderCallback(func(float32) error {
		if ticks.Load() >= 3 {
			e.Quit()
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tick callback never reached 3 ticks")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestSetTickRateConcurrent(t *testing.T) {
	var ticks atomic.Int32
	e := NewEngine(quiet(), WithRenderFrameLimit(100))
	e.SetTickCallback(func(float32) {
		ticks.Add(1)
	})
	e.SetRenderCallback(func(float32) error {
		if ticks.Load() >= 3 {
			e.Quit()
		}
		return nil
	})

	// setters race each other and the engine starting up
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.SetTickRate(500)
			}
		}()
	}
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	setters := make(chan struct{})
	go func() {
		wg.Wait()
		close(setters)
	}()
	select {
	case <-setters:
	case <-time.After(5 * time.Second):
		t.Fatal("SetTickRate blocked")
	}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine never reached 3 ticks")
	}
	assert.Equal(t, int64(2*time.Millisecond), e.(*engine).engineTickRate.Load())
}

func TestRunTwiceFails(t *testing.T) {
	started := make(chan struct{})
	e := NewEngine(quiet())
	e.SetRenderCallback(func(float32) error {
		select {
		case <-started:
		default:
			close(started)
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-started
	assert.Error(t, e.Run(context.Background()))

	e.Quit()
	assert.NoError(t, <-done)
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, time.Second/60, tickInterval(0))
	assert.Equal(t, 4*time.Millisecond, tickInterval(250))
	assert.Equal(t, time.Duration(0), frameInterval(-1))
	assert.Equal(t, 10*time.Millisecond, frameInterval(100))
}
