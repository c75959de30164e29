package gpu_test

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/gputest"
)

func TestReleaseSkipsNilHandles(t *testing.T) {
	dev := &gputest.Device{}
	buf := &wgpu.Buffer{}
	var missing *wgpu.BindGroup

	gpu.Release(dev, nil, missing, buf)

	assert.Equal(t, []gpu.Releasable{buf}, dev.Released)
}
