//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/quad"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

type Shaders mg.Namespace

type shaderSource struct {
	key    string
	stage  shader.Stage
	source string
	opts   []shader.ShaderBuilderOption
}

func embeddedShaders() []shaderSource {
	withUniforms := shader.WithStruct("deferred_uniforms", light.DeferredUniformsSource, "DeferredUniforms")
	return []shaderSource{
		{key: "quad_vs", stage: shader.StageVertex, source: quad.VertexSource},
		{key: "quad_fs", stage: shader.StageFragment, source: quad.FragmentSource},
		{key: "deferred_vs", stage: shader.StageVertex, source: deferred.VertexSource},
		{key: "deferred_fs", stage: shader.StageFragment, source: deferred.FragmentSource, opts: []shader.ShaderBuilderOption{withUniforms}},
	}
}

// Preprocesses every embedded shader and validates it with naga.
func (Shaders) Validate() error {
	c := shader.NewCompiler(shader.WithValidation(true))
	var failed int
	for _, src := range embeddedShaders() {
		s, err := shader.NewShaderFromSource(src.key, src.stage, src.source, src.opts...)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", src.key, err)
			failed++
			continue
		}
		if err := c.Validate(s.Key(), s.Source()); err != nil {
			fmt.Printf("FAIL %s: %v\n", src.key, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s (%s, entry %s)\n", s.Key(), s.Stage(), s.EntryPoint())
	}
	if failed > 0 {
		return fmt.Errorf("%d shader(s) failed validation", failed)
	}
	return nil
}
