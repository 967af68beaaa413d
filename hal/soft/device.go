package soft

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

type Device struct {
	label  string
	limits gputypes.Limits
	queue  *Queue

	released atomic.Bool

	mu       sync.Mutex
	textures int
	samplers int
	buffers  int
}

var _ hal.Device = (*Device)(nil)

func newDevice(label string, limits gputypes.Limits) *Device {
	dev := &Device{label: label, limits: limits}
	dev.queue = &Queue{device: dev}
	return dev
}

func (d *Device) Label() string {
	return d.label
}

func (d *Device) Queue() hal.Queue {
	return d.queue
}

// SoftQueue returns the queue with its counters.
func (d *Device) SoftQueue() *Queue {
	return d.queue
}

func (d *Device) Limits() gputypes.Limits {
	return d.limits
}

func (d *Device) CopyRowAlignment() uint32 {
	return hal.DefaultCopyRowAlignment
}

// Released reports whether Release was called.
func (d *Device) Released() bool {
	return d.released.Load()
}

// LiveResources returns the number of textures, samplers and buffers that
// were created but not yet released.
func (d *Device) LiveResources() (textures, samplers, buffers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures, d.samplers, d.buffers
}

func (d *Device) track(counter *int, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*counter += delta
}

func (d *Device) checkAlive() error {
	if d.released.Load() {
		return fmt.Errorf("%w: device %q was released", ErrValidation, d.label)
	}

	return nil
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}

	bpt := hal.BytesPerTexel(desc.Format)
	if bpt == 0 {
		return nil, fmt.Errorf("%w: texture format %v not supported", ErrValidation, desc.Format)
	}

	width, height := desc.Size.Width, desc.Size.Height
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: texture size %dx%d is empty", ErrValidation, width, height)
	}

	if width > d.limits.MaxTextureDimension2D || height > d.limits.MaxTextureDimension2D {
		return nil, fmt.Errorf("%w: texture size %dx%d exceeds MaxTextureDimension2D %d",
			ErrValidation, width, height, d.limits.MaxTextureDimension2D)
	}

	if desc.Size.DepthOrArrayLayers > 1 {
		return nil, fmt.Errorf("%w: texture arrays are not supported", ErrValidation)
	}

	if desc.Usage == 0 {
		return nil, fmt.Errorf("%w: texture usage must not be empty", ErrValidation)
	}

	mips := max(1, desc.MipLevelCount)
	if mips > maxMipLevels(width, height) {
		return nil, fmt.Errorf("%w: %d mip levels requested for a %dx%d texture", ErrValidation, mips, width, height)
	}

	levels := make([][]byte, mips)
	for level := range levels {
		w, h := hal.MipSize(width, height, uint32(level))
		levels[level] = make([]byte, int(w)*int(h)*int(bpt))
	}

	d.track(&d.textures, 1)

	return &Texture{
		device: d,
		desc:   *desc,
		mips:   mips,
		levels: levels,
	}, nil
}

func (d *Device) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}

	if desc.LodMaxClamp < desc.LodMinClamp {
		return nil, fmt.Errorf("%w: LodMaxClamp %f is below LodMinClamp %f",
			ErrValidation, desc.LodMaxClamp, desc.LodMinClamp)
	}

	d.track(&d.samplers, 1)
	return &Sampler{device: d, desc: *desc}, nil
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}

	if desc.Size > d.limits.MaxBufferSize {
		return nil, fmt.Errorf("%w: buffer size %d exceeds MaxBufferSize %d",
			ErrValidation, desc.Size, d.limits.MaxBufferSize)
	}

	d.track(&d.buffers, 1)
	return &Buffer{device: d, desc: *desc, data: make([]byte, desc.Size)}, nil
}

func (d *Device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}

	return &CommandEncoder{device: d, label: label}, nil
}

// Poll is a no-op, all work is executed at submission time.
func (d *Device) Poll(wait bool) {}

func (d *Device) Release() {
	d.released.Store(true)
}

func maxMipLevels(width, height uint32) uint32 {
	levels := uint32(1)
	for size := max(width, height); size > 1; size >>= 1 {
		levels++
	}

	return levels
}

type Sampler struct {
	device   *Device
	desc     hal.SamplerDescriptor
	released atomic.Bool
}

func (s *Sampler) Descriptor() hal.SamplerDescriptor {
	return s.desc
}

func (s *Sampler) Released() bool {
	return s.released.Load()
}

func (s *Sampler) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.device.track(&s.device.samplers, -1)
	}
}

type Buffer struct {
	device   *Device
	desc     hal.BufferDescriptor
	released atomic.Bool

	mu   sync.Mutex
	data []byte
}

func (b *Buffer) Size() uint64 {
	return b.desc.Size
}

func (b *Buffer) Usage() gputypes.BufferUsage {
	return b.desc.Usage
}

func (b *Buffer) MapRead(ctx context.Context, offset, size uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.desc.Usage&gputypes.BufferUsageMapRead == 0 {
		return nil, fmt.Errorf("%w: buffer %q is not mappable for reading", ErrValidation, b.desc.Label)
	}

	if offset+size > b.desc.Size {
		return nil, fmt.Errorf("%w: range %d+%d exceeds buffer size %d", ErrValidation, offset, size, b.desc.Size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]byte, size)
	copy(result, b.data[offset:offset+size])
	return result, nil
}

// Write fills the buffer from the CPU, like a mapped-at-creation buffer.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("%w: write of %d bytes at %d exceeds buffer size %d",
			ErrValidation, len(data), offset, b.desc.Size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) Release() {
	if b.released.CompareAndSwap(false, true) {
		b.device.track(&b.device.buffers, -1)
	}
}
