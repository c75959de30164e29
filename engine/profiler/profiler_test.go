package profiler

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsEachInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(
		WithClock(clock.now),
		WithInterval(time.Second),
		WithLogger(log.NewWithOptions(&buf, log.Options{Formatter: log.LogfmtFormatter})),
	)

	for i := 0; i < 29; i++ {
		clock.t = clock.t.Add(time.Second / 60)
		assert.False(t, p.Tick())
	}
	assert.Empty(t, buf.String())

	// 29/60 s + 0.5 s is still short of the interval
	clock.t = clock.t.Add(time.Second / 2)
	assert.False(t, p.Tick())
	assert.Empty(t, buf.String())

	clock.t = clock.t.Add(100 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.InDelta(t, 31/(29.0/60+0.6), p.Last().FPS, 1e-3)
	assert.Positive(t, p.Last().HeapMB)
	assert.Contains(t, buf.String(), "frame stats")
	assert.Contains(t, buf.String(), "fps=")

	// counter restarts after a report
	clock.t = clock.t.Add(2 * time.Second)
	assert.True(t, p.Tick())
	assert.InDelta(t, 0.5, p.Last().FPS, 1e-9)
}

func TestTickIgnoresStalledClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(0), WithLogger(log.New(&bytes.Buffer{})))

	assert.False(t, p.Tick())
	clock.t = clock.t.Add(time.Millisecond)
	assert.True(t, p.Tick())
}
