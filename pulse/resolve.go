package pulse

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

var forceFallbackAdapter = os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"

type ResolveOptions struct {
	// Surface the adapter must be able to present to. Optional, the surface
	// stays owned by the caller.
	Surface hal.Surface

	PowerPreference gputypes.PowerPreference

	// ForceFallbackAdapter requests a software adapter. Also enabled by
	// setting WGPU_FORCE_FALLBACK_ADAPTER=1.
	ForceFallbackAdapter bool

	// RequiredLimits for the device, nil for the backend defaults.
	RequiredLimits *gputypes.Limits

	// Label of the device, defaults to "pulse".
	Label string

	// SamplerCacheSize is the number of samplers kept by the Context,
	// defaults to 16.
	SamplerCacheSize int
}

func (opts *ResolveOptions) withDefaults() ResolveOptions {
	var result ResolveOptions
	if opts != nil {
		result = *opts
	}

	result.ForceFallbackAdapter = result.ForceFallbackAdapter || forceFallbackAdapter

	if result.Label == "" {
		result.Label = "pulse"
	}

	if result.SamplerCacheSize <= 0 {
		result.SamplerCacheSize = defaultSamplerCacheSize
	}

	return result
}

// ResolveDefault resolves a Context without surface constraint using the
// default options.
func ResolveDefault(ctx context.Context, instance hal.Instance) (*Context, error) {
	return Resolve(ctx, instance, nil)
}

// Resolve requests an adapter from the instance, a device from the adapter
// and returns both wrapped in a new Context. The adapter is released once
// the device exists. The instance stays owned by the caller.
//
// Resolve blocks until the backend answered or ctx is done. If ctx is done
// first, ctx.Err() is returned and a late adapter or device is released.
func Resolve(ctx context.Context, instance hal.Instance, opts *ResolveOptions) (*Context, error) {
	if instance == nil {
		panic("pulse: Resolve called without instance")
	}

	o := opts.withDefaults()

	adapter, err := await(ctx, func() (hal.Adapter, error) {
		return instance.RequestAdapter(&hal.AdapterOptions{
			PowerPreference:      o.PowerPreference,
			ForceFallbackAdapter: o.ForceFallbackAdapter,
			CompatibleSurface:    o.Surface,
		})
	}, releaseIfSet[hal.Adapter])

	switch {
	case isContextErr(ctx, err):
		return nil, err

	case err != nil:
		return nil, &Error{Kind: AdapterNotFound, Op: "resolve", Label: o.Label, Err: err}

	case adapter == nil:
		return nil, &Error{Kind: AdapterNotFound, Op: "resolve", Label: o.Label}
	}

	defer adapter.Release()

	info := adapter.Info()

	if o.Surface != nil && !adapter.SupportsSurface(o.Surface) {
		return nil, &Error{Kind: SurfaceIncompatible, Op: "resolve", Label: o.Label}
	}

	device, err := await(ctx, func() (hal.Device, error) {
		return adapter.RequestDevice(&hal.DeviceDescriptor{
			Label:          o.Label,
			RequiredLimits: o.RequiredLimits,
		})
	}, releaseIfSet[hal.Device])

	switch {
	case isContextErr(ctx, err):
		return nil, err

	case err != nil:
		return nil, &Error{Kind: DeviceRequestFailed, Op: "resolve", Label: o.Label, Err: err}

	case device == nil:
		return nil, &Error{Kind: DeviceRequestFailed, Op: "resolve", Label: o.Label}
	}

	c, err := newContext(o.Label, device, info, o.SamplerCacheSize)
	if err != nil {
		device.Release()
		return nil, &Error{Kind: DeviceRequestFailed, Op: "resolve", Label: o.Label, Err: err}
	}

	limits := c.Limits()

	Logger().Info("Adapter selected",
		slogLabel(o.Label),
		slog.String("name", info.Name),
		slog.String("backend", info.Backend),
		slog.String("type", info.Type),
		slog.Uint64("maxTextureDimension2D", uint64(limits.MaxTextureDimension2D)),
		slog.Uint64("maxBufferSize", limits.MaxBufferSize),
	)

	return c, nil
}

func isContextErr(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	return err != nil && ctxErr != nil && errors.Is(err, ctxErr)
}

// await runs fn on its own goroutine and waits for the result or for ctx to
// be done. If ctx wins, a successful late result is passed to discard.
func await[T any](ctx context.Context, fn func() (T, error), discard func(T)) (T, error) {
	if ctx.Done() == nil {
		return fn()
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	type result struct {
		value T
		err   error
	}

	ch := make(chan result, 1)

	go func() {
		value, err := fn()
		ch <- result{value, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err

	case <-ctx.Done():
		go func() {
			r := <-ch
			if r.err == nil && discard != nil {
				Logger().Warn("Releasing result of abandoned request")
				discard(r.value)
			}
		}()

		var zero T
		return zero, ctx.Err()
	}
}

func releaseIfSet[T interface{ Release() }](value T) {
	if any(value) != nil {
		value.Release()
	}
}
