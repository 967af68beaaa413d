// Package soft is an in-memory implementation of hal. Texels live in Go
// slices, command buffers are executed on the caller's goroutine when they
// are submitted. The device validates usages, limits and the copy row
// alignment like a strict WebGPU implementation would, and counts
// submissions so tests can observe what reached the queue.
package soft

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

// ErrValidation is wrapped by every error caused by invalid API usage.
var ErrValidation = errors.New("soft: validation failed")

type AdapterOptions struct {
	Name string

	// LowPower marks an integrated adapter. It is preferred for
	// gputypes.PowerPreferenceLowPower, the others for HighPerformance.
	LowPower bool

	// Fallback marks a software fallback adapter. Only fallback adapters are
	// offered if ForceFallbackAdapter is requested.
	Fallback bool

	// Headless adapters can not present to any surface.
	Headless bool

	// Limits defaults to gputypes.DefaultLimits().
	Limits *gputypes.Limits

	// DeviceError makes RequestDevice fail with this error.
	DeviceError error
}

type InstanceOptions struct {
	// Adapters defaults to a single adapter named "soft".
	Adapters []AdapterOptions
}

type Instance struct {
	adapters []AdapterOptions

	mu       sync.Mutex
	requests int
}

var _ hal.Instance = (*Instance)(nil)

func NewInstance(opts *InstanceOptions) *Instance {
	var adapters []AdapterOptions

	switch {
	case opts == nil:
		adapters = []AdapterOptions{{Name: "soft"}}
	default:
		adapters = append(adapters, opts.Adapters...)
	}

	return &Instance{adapters: adapters}
}

// AdapterRequests returns how often RequestAdapter was called.
func (i *Instance) AdapterRequests() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.requests
}

func (i *Instance) RequestAdapter(opts *hal.AdapterOptions) (hal.Adapter, error) {
	i.mu.Lock()
	i.requests++
	i.mu.Unlock()

	if opts == nil {
		opts = &hal.AdapterOptions{}
	}

	var candidates []AdapterOptions
	for _, adapter := range i.adapters {
		if opts.ForceFallbackAdapter && !adapter.Fallback {
			continue
		}

		candidates = append(candidates, adapter)
	}

	if len(candidates) == 0 {
		return nil, hal.ErrNoAdapter
	}

	// prefer adapters that can present to the requested surface
	if opts.CompatibleSurface != nil {
		var presenting []AdapterOptions
		for _, adapter := range candidates {
			if !adapter.Headless {
				presenting = append(presenting, adapter)
			}
		}

		if len(presenting) > 0 {
			candidates = presenting
		}
	}

	chosen := candidates[0]
	for _, adapter := range candidates {
		if matchesPowerPreference(adapter, opts.PowerPreference) {
			chosen = adapter
			break
		}
	}

	limits := gputypes.DefaultLimits()
	if chosen.Limits != nil {
		limits = *chosen.Limits
	}

	return &Adapter{opts: chosen, limits: limits}, nil
}

func (i *Instance) Release() {}

func matchesPowerPreference(adapter AdapterOptions, pref gputypes.PowerPreference) bool {
	switch pref {
	case gputypes.PowerPreferenceLowPower:
		return adapter.LowPower
	case gputypes.PowerPreferenceHighPerformance:
		return !adapter.LowPower
	default:
		return true
	}
}

// Surface is a stand-in for a window surface.
type Surface struct {
	Label string
}

var _ hal.Surface = (*Surface)(nil)

func NewSurface(label string) *Surface {
	return &Surface{Label: label}
}

func (s *Surface) Release() {}

type Adapter struct {
	opts     AdapterOptions
	limits   gputypes.Limits
	released bool
}

var _ hal.Adapter = (*Adapter)(nil)

func (a *Adapter) Info() hal.AdapterInfo {
	adapterType := "DiscreteGPU"
	switch {
	case a.opts.Fallback:
		adapterType = "CPU"
	case a.opts.LowPower:
		adapterType = "IntegratedGPU"
	}

	return hal.AdapterInfo{
		Name:    a.opts.Name,
		Backend: "soft",
		Type:    adapterType,
	}
}

func (a *Adapter) Limits() gputypes.Limits {
	return a.limits
}

func (a *Adapter) SupportsSurface(surface hal.Surface) bool {
	_, ok := surface.(*Surface)
	return ok && !a.opts.Headless
}

func (a *Adapter) RequestDevice(desc *hal.DeviceDescriptor) (hal.Device, error) {
	if a.released {
		return nil, fmt.Errorf("%w: adapter was released", ErrValidation)
	}

	if a.opts.DeviceError != nil {
		return nil, a.opts.DeviceError
	}

	limits := a.limits
	if desc != nil && desc.RequiredLimits != nil {
		required := desc.RequiredLimits
		if required.MaxTextureDimension2D > a.limits.MaxTextureDimension2D {
			return nil, fmt.Errorf("%w: required MaxTextureDimension2D %d exceeds adapter limit %d",
				ErrValidation, required.MaxTextureDimension2D, a.limits.MaxTextureDimension2D)
		}

		if required.MaxBufferSize > a.limits.MaxBufferSize {
			return nil, fmt.Errorf("%w: required MaxBufferSize %d exceeds adapter limit %d",
				ErrValidation, required.MaxBufferSize, a.limits.MaxBufferSize)
		}

		limits = *required
	}

	var label string
	if desc != nil {
		label = desc.Label
	}

	return newDevice(label, limits), nil
}

func (a *Adapter) Release() {
	a.released = true
}
