// Command oxy-deferred renders the deferred lighting pass offscreen on a headless device.
// It animates a ring of point lights around the origin and reports frame statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file")
	frames := flag.Uint64("frames", 300, "frames to render before exiting, 0 runs until interrupted")
	profile := flag.Bool("profile", false, "log frame statistics every second")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Parse()

	if err := run(*configPath, *frames, *profile, *writeConfig); err != nil {
		logger.Default().Fatal("oxy-deferred failed", "err", err)
	}
}

func run(configPath string, frames uint64, profile, writeConfig bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if writeConfig {
		data, err := cfg.Encode()
		if err != nil {
			return err
		}
		return os.WriteFile(configPath, data, 0o644)
	}
	logger.SetLevel(cfg.Log.Level)
	log := logger.Named("main")

	format, err := config.ParseTextureFormat(cfg.Renderer.Format)
	if err != nil {
		return err
	}

	hd, err := renderer.RequestHeadlessDevice(cfg.Renderer.ForceSoftware)
	if err != nil {
		return err
	}
	defer hd.Release()

	opts := []renderer.GraphicsStateBuilderOption{
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Renderer.MSAA)),
		renderer.WithFormat(format),
		renderer.WithCompiler(shader.NewCompiler(shader.WithValidation(cfg.Renderer.ValidateShaders))),
	}
	var shaderPaths []string
	if dir := cfg.Renderer.ShaderDir; dir != "" {
		shaderPaths = []string{
			filepath.Join(dir, "deferred_vs.wgsl"),
			filepath.Join(dir, "deferred_fs.wgsl"),
		}
		opts = append(opts, renderer.WithDeferredShaderPaths(shaderPaths[0], shaderPaths[1]))
	}
	state := renderer.NewGraphicsState(hd.Device(), hd.Queue(), opts...)
	defer state.Release()

	var watcher *shader.Watcher
	if cfg.Renderer.WatchShaders {
		if watcher, err = shader.NewWatcher(nil); err != nil {
			return err
		}
		defer watcher.Close()
		for _, p := range shaderPaths {
			if err := watcher.Watch(p); err != nil {
				return err
			}
		}
	}

	s, err := newScene(hd, state, cfg)
	if err != nil {
		return err
	}
	defer s.Release()

	e := engine.NewEngine(
		engine.WithTickRate(60),
		engine.WithMaxFrames(frames),
		engine.WithProfiling(profile),
	)
	e.SetTickCallback(s.Tick)
	e.SetRenderCallback(func(float32) error {
		if watcher != nil {
			if changed := watcher.Drain(); len(changed) > 0 {
				// a broken edit keeps the previous pipeline; keep rendering with it
				if err := state.ReloadShaders(); err != nil {
					log.Error("shader reload failed", "files", changed, "err", err)
				} else {
					log.Info("shaders reloaded", "files", changed)
				}
			}
		}
		return s.Render()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("rendering",
		"size", fmt.Sprintf("%dx%d", cfg.Renderer.Width, cfg.Renderer.Height),
		"msaa", cfg.Renderer.MSAA,
		"frames", frames,
	)
	if err := e.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("done", "frames", e.Frames())
	return nil
}
