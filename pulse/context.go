package pulse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/gpuctx/hal"
)

// Context holds a device and its queue. It is created by Resolve and is
// safe for concurrent use. All resources created through a Context must be
// released before the Context itself.
type Context struct {
	label     string
	device    hal.Device
	queue     hal.Queue
	info      hal.AdapterInfo
	limits    gputypes.Limits
	alignment uint32

	samplerMu sync.Mutex
	samplers  *lru.Cache[hal.SamplerDescriptor, *cachedSampler]

	released atomic.Bool
}

func newContext(label string, device hal.Device, info hal.AdapterInfo, samplerCacheSize int) (*Context, error) {
	queue := device.Queue()
	if queue == nil {
		return nil, fmt.Errorf("device %q has no queue", label)
	}

	alignment := device.CopyRowAlignment()
	if alignment == 0 {
		alignment = hal.DefaultCopyRowAlignment
	}

	c := &Context{
		label:     label,
		device:    device,
		queue:     queue,
		info:      info,
		limits:    device.Limits(),
		alignment: alignment,
	}

	samplers, err := lru.NewWithEvict[hal.SamplerDescriptor, *cachedSampler](samplerCacheSize, c.onSamplerEvicted)
	if err != nil {
		return nil, fmt.Errorf("create sampler cache: %w", err)
	}

	c.samplers = samplers

	return c, nil
}

func (c *Context) checkAlive() {
	if c.released.Load() {
		panic(fmt.Sprintf("pulse: context %q used after Release", c.label))
	}
}

// Device returns the device. Use webgpu.RawDevice to access the underlying
// wgpu device.
func (c *Context) Device() hal.Device {
	c.checkAlive()
	return c.device
}

// Queue returns the queue of the device.
func (c *Context) Queue() hal.Queue {
	c.checkAlive()
	return c.queue
}

func (c *Context) Label() string {
	return c.label
}

// AdapterInfo describes the adapter the device was created on.
func (c *Context) AdapterInfo() hal.AdapterInfo {
	return c.info
}

// Limits returns the limits of the device.
func (c *Context) Limits() gputypes.Limits {
	return c.limits
}

// Wait blocks until the queue is idle or ctx is done. Submissions never
// wait implicitly.
func (c *Context) Wait(ctx context.Context) error {
	c.checkAlive()

	_, err := await(ctx, func() (struct{}, error) {
		c.device.Poll(true)
		return struct{}{}, nil
	}, nil)

	return err
}

// Release releases the cached samplers, the queue and the device. Calling
// Release more than once has no effect.
func (c *Context) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}

	c.samplerMu.Lock()
	c.samplers.Purge()
	c.samplerMu.Unlock()

	c.queue.Release()
	c.device.Release()

	Logger().Debug("Context released", slogLabel(c.label))
}
