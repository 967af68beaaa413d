package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/gpuctx/hal"
)

// The Raw functions return the wgpu objects behind hal objects created by
// this package, or nil for objects of other backends. They are the escape
// hatch for everything hal does not cover, e.g. pipelines and render passes.

func RawDevice(device hal.Device) *wgpu.Device {
	if d, ok := device.(*Device); ok {
		return d.device
	}

	return nil
}

func RawQueue(queue hal.Queue) *wgpu.Queue {
	if q, ok := queue.(*Queue); ok {
		return q.queue
	}

	return nil
}

func RawCommandEncoder(encoder hal.CommandEncoder) *wgpu.CommandEncoder {
	if e, ok := encoder.(*CommandEncoder); ok {
		return e.encoder
	}

	return nil
}

func RawTexture(texture hal.Texture) *wgpu.Texture {
	if t, ok := texture.(*Texture); ok {
		return t.texture
	}

	return nil
}

func RawTextureView(view hal.TextureView) *wgpu.TextureView {
	if v, ok := view.(*TextureView); ok {
		return v.view
	}

	return nil
}

func RawSampler(sampler hal.Sampler) *wgpu.Sampler {
	if s, ok := sampler.(*Sampler); ok {
		return s.sampler
	}

	return nil
}

func RawSurface(surface hal.Surface) *wgpu.Surface {
	if s, ok := surface.(*Surface); ok {
		return s.surface
	}

	return nil
}
