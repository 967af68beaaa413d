package pulse

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

const defaultSamplerCacheSize = 16

// DefaultSamplerDescriptor filters linearly and clamps to the edge.
var DefaultSamplerDescriptor = hal.SamplerDescriptor{
	AddressModeU: gputypes.AddressModeClampToEdge,
	AddressModeV: gputypes.AddressModeClampToEdge,
	AddressModeW: gputypes.AddressModeClampToEdge,
	MagFilter:    gputypes.FilterModeLinear,
	MinFilter:    gputypes.FilterModeLinear,
	MipmapFilter: gputypes.FilterModeLinear,
	LodMinClamp:  0,
	LodMaxClamp:  32,
}

// DepthSamplerDescriptor is a comparison sampler for depth textures.
var DepthSamplerDescriptor = hal.SamplerDescriptor{
	AddressModeU: gputypes.AddressModeClampToEdge,
	AddressModeV: gputypes.AddressModeClampToEdge,
	AddressModeW: gputypes.AddressModeClampToEdge,
	MagFilter:    gputypes.FilterModeLinear,
	MinFilter:    gputypes.FilterModeLinear,
	MipmapFilter: gputypes.FilterModeNearest,
	LodMinClamp:  0,
	LodMaxClamp:  100,
	Compare:      gputypes.CompareFunctionLessEqual,
}

// cachedSampler counts the textures holding a sampler. An evicted sampler
// is released once the last texture lets go of it.
type cachedSampler struct {
	sampler hal.Sampler
	refs    int
	evicted bool
}

// onSamplerEvicted runs with samplerMu held.
func (c *Context) onSamplerEvicted(_ hal.SamplerDescriptor, entry *cachedSampler) {
	entry.evicted = true

	// a released context takes its samplers with it
	if entry.refs == 0 || c.released.Load() {
		entry.sampler.Release()
	}
}

// acquireSampler returns a sampler matching the descriptor and takes a
// reference on it. Pair with releaseSampler.
func (c *Context) acquireSampler(desc hal.SamplerDescriptor) (*cachedSampler, error) {
	c.samplerMu.Lock()
	defer c.samplerMu.Unlock()

	if entry, ok := c.samplers.Get(desc); ok {
		entry.refs++
		return entry, nil
	}

	sampler, err := c.device.CreateSampler(&desc)
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	entry := &cachedSampler{sampler: sampler, refs: 1}
	c.samplers.Add(desc, entry)

	Logger().Debug("Sampler created", slogLabel(c.label), "cached", c.samplers.Len())

	return entry, nil
}

func (c *Context) releaseSampler(entry *cachedSampler) {
	c.samplerMu.Lock()
	defer c.samplerMu.Unlock()

	entry.refs--
	if entry.refs == 0 && entry.evicted {
		entry.sampler.Release()
	}
}
