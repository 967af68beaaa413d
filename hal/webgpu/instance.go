// Package webgpu implements hal on top of wgpu-native using
// github.com/cogentcore/webgpu.
//
// The log level of wgpu-native is taken from the WGPU_LOG_LEVEL environment
// variable (OFF, ERROR, WARN, INFO, DEBUG or TRACE).
package webgpu

import (
	"fmt"
	"os"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

func init() {
	switch strings.ToUpper(os.Getenv("WGPU_LOG_LEVEL")) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}
}

type Instance struct {
	instance *wgpu.Instance
}

var _ hal.Instance = (*Instance)(nil)

func NewInstance() *Instance {
	return &Instance{instance: wgpu.CreateInstance(nil)}
}

// CreateSurface creates a surface for a window, e.g. from
// glimpse.Window.SurfaceDescriptor. The caller owns the surface.
func (i *Instance) CreateSurface(desc *wgpu.SurfaceDescriptor) *Surface {
	return &Surface{surface: i.instance.CreateSurface(desc)}
}

func (i *Instance) RequestAdapter(opts *hal.AdapterOptions) (hal.Adapter, error) {
	if opts == nil {
		opts = &hal.AdapterOptions{}
	}

	wgpuOpts := &wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		PowerPreference:      toPowerPreference(opts.PowerPreference),
	}

	if surface, ok := opts.CompatibleSurface.(*Surface); ok && surface != nil {
		wgpuOpts.CompatibleSurface = surface.surface
	}

	adapter, err := i.instance.RequestAdapter(wgpuOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hal.ErrNoAdapter, err)
	}

	if adapter == nil {
		return nil, hal.ErrNoAdapter
	}

	return &Adapter{adapter: adapter}, nil
}

func (i *Instance) Release() {
	if i.instance != nil {
		i.instance.Release()
		i.instance = nil
	}
}

type Surface struct {
	surface *wgpu.Surface
}

var _ hal.Surface = (*Surface)(nil)

func (s *Surface) Release() {
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
}

type Adapter struct {
	adapter *wgpu.Adapter
}

var _ hal.Adapter = (*Adapter)(nil)

func (a *Adapter) Info() hal.AdapterInfo {
	info := a.adapter.GetInfo()

	name := info.Name
	if name == "" {
		name = info.VendorName
	}

	return hal.AdapterInfo{
		Name:    name,
		Backend: fmt.Sprint(info.BackendType),
		Type:    fmt.Sprint(info.AdapterType),
	}
}

func (a *Adapter) Limits() gputypes.Limits {
	return fromLimits(a.adapter.GetLimits().Limits)
}

func (a *Adapter) SupportsSurface(surface hal.Surface) bool {
	wgpuSurface, ok := surface.(*Surface)
	if !ok || wgpuSurface.surface == nil {
		return false
	}

	caps := wgpuSurface.surface.GetCapabilities(a.adapter)
	return len(caps.Formats) > 0
}

func (a *Adapter) RequestDevice(desc *hal.DeviceDescriptor) (hal.Device, error) {
	wgpuDesc := &wgpu.DeviceDescriptor{}

	if desc != nil {
		wgpuDesc.Label = desc.Label

		if desc.RequiredLimits != nil {
			wgpuDesc.RequiredLimits = &wgpu.RequiredLimits{
				Limits: toLimits(*desc.RequiredLimits),
			}
		}
	}

	device, err := a.adapter.RequestDevice(wgpuDesc)
	if err != nil {
		return nil, err
	}

	return &Device{
		device: device,
		queue:  &Queue{queue: device.GetQueue()},
	}, nil
}

func (a *Adapter) Release() {
	if a.adapter != nil {
		a.adapter.Release()
		a.adapter = nil
	}
}
