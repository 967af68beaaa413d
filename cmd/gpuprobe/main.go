// Command gpuprobe resolves a GPU context, prints the selected adapter and
// uploads an image to check the texture path end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oliverbestmann/gpuctx/glimpse"
	"github.com/oliverbestmann/gpuctx/hal"
	"github.com/oliverbestmann/gpuctx/hal/soft"
	"github.com/oliverbestmann/gpuctx/hal/webgpu"
	"github.com/oliverbestmann/gpuctx/pulse"
	"github.com/pkg/profile"
)

func main() {
	cfg, err := ParseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type eventSource interface {
	ShouldClose() bool
	PollEvents()
}

// holdWindow processes window events until the window should close.
func holdWindow(window eventSource, interval time.Duration) {
	slog.Info("Holding window open, press escape to close")

	for !window.ShouldClose() {
		window.PollEvents()
		time.Sleep(interval)
	}
}

func run(cfg Config) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	pulse.SetLogger(logger)

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if cfg.Profile != "" && !cfg.Window {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile), profile.NoShutdownHook).Stop()
	}

	switch cfg.Backend {
	case "soft":
		if cfg.Window || cfg.Hold {
			return errors.New("-window and -hold need the webgpu backend")
		}

		return Probe(ctx, os.Stdout, soft.NewInstance(nil), nil, cfg)

	case "webgpu":
		instance := webgpu.NewInstance()
		defer instance.Release()

		var surface hal.Surface
		if cfg.Window {
			window, err := glimpse.NewWindow(glimpse.WindowOptions{
				Width:       640,
				Height:      480,
				Title:       "gpuprobe",
				ProfilePath: cfg.Profile,
			})
			if err != nil {
				return err
			}

			defer window.Terminate()

			width, height := window.Size()
			slog.Debug("Window opened", slog.Uint64("width", uint64(width)), slog.Uint64("height", uint64(height)))

			wgpuSurface := instance.CreateSurface(window.SurfaceDescriptor())
			defer wgpuSurface.Release()

			surface = wgpuSurface

			if err := Probe(ctx, os.Stdout, instance, surface, cfg); err != nil {
				return err
			}

			if cfg.Hold {
				holdWindow(window, 10*time.Millisecond)
			}

			return nil
		}

		return Probe(ctx, os.Stdout, instance, surface, cfg)

	default:
		return fmt.Errorf("unknown backend %q, expected soft or webgpu", cfg.Backend)
	}
}
