package webgpu

import (
	"context"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

type Device struct {
	device *wgpu.Device
	queue  *Queue
}

var _ hal.Device = (*Device)(nil)

func (d *Device) Queue() hal.Queue {
	return d.queue
}

func (d *Device) Limits() gputypes.Limits {
	return fromLimits(d.device.GetLimits().Limits)
}

func (d *Device) CopyRowAlignment() uint32 {
	return hal.DefaultCopyRowAlignment
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	format, ok := toTextureFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("texture format %v not supported", desc.Format)
	}

	texture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: max(1, desc.Size.DepthOrArrayLayers),
		},
		MipLevelCount: max(1, desc.MipLevelCount),
		SampleCount:   max(1, desc.SampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         toTextureUsage(desc.Usage),
	})

	if err != nil {
		return nil, err
	}

	return &Texture{texture: texture, desc: *desc}, nil
}

func (d *Device) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	sampler, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  toAddressMode(desc.AddressModeU),
		AddressModeV:  toAddressMode(desc.AddressModeV),
		AddressModeW:  toAddressMode(desc.AddressModeW),
		MagFilter:     toFilterMode(desc.MagFilter),
		MinFilter:     toFilterMode(desc.MinFilter),
		MipmapFilter:  toMipmapFilterMode(desc.MipmapFilter),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   desc.LodMaxClamp,
		Compare:       toCompareFunction(desc.Compare),
		MaxAnisotropy: max(1, desc.MaxAnisotropy),
	})

	if err != nil {
		return nil, err
	}

	return &Sampler{sampler: sampler}, nil
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buffer, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Usage: toBufferUsage(desc.Usage),
		Size:  desc.Size,
	})

	if err != nil {
		return nil, err
	}

	return &Buffer{buffer: buffer, device: d.device, desc: *desc}, nil
}

func (d *Device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: label,
	})

	if err != nil {
		return nil, err
	}

	return &CommandEncoder{encoder: enc}, nil
}

func (d *Device) Poll(wait bool) {
	d.device.Poll(wait, nil)
}

func (d *Device) Release() {
	if d.queue != nil {
		d.queue.Release()
	}

	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
}

type Queue struct {
	queue *wgpu.Queue
}

var _ hal.Queue = (*Queue)(nil)

func (q *Queue) Submit(buffers ...hal.CommandBuffer) error {
	wgpuBuffers := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		cmdBuffer, ok := buffer.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("foreign command buffer %T", buffer)
		}

		wgpuBuffers = append(wgpuBuffers, cmdBuffer.buffer)
	}

	q.queue.Submit(wgpuBuffers...)

	return nil
}

func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.TextureDataLayout, size *gputypes.Extent3D) error {
	dest, err := toImageCopyTexture(dst)
	if err != nil {
		return err
	}

	err = q.queue.WriteTexture(
		dest,
		data,
		&wgpu.TextureDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.BytesPerRow,
			RowsPerImage: layout.RowsPerImage,
		},
		toExtent(size),
	)

	if err != nil {
		return fmt.Errorf("write texture: %w", err)
	}

	return nil
}

func (q *Queue) Release() {
	if q.queue != nil {
		q.queue.Release()
		q.queue = nil
	}
}

type CommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

var _ hal.CommandEncoder = (*CommandEncoder)(nil)

func (e *CommandEncoder) CopyBufferToTexture(src *hal.ImageCopyBuffer, dst *hal.ImageCopyTexture, size *gputypes.Extent3D) error {
	source, err := toImageCopyBuffer(src)
	if err != nil {
		return err
	}

	dest, err := toImageCopyTexture(dst)
	if err != nil {
		return err
	}

	if err := e.encoder.CopyBufferToTexture(source, dest, toExtent(size)); err != nil {
		return fmt.Errorf("copy buffer to texture: %w", err)
	}

	return nil
}

func (e *CommandEncoder) CopyTextureToBuffer(src *hal.ImageCopyTexture, dst *hal.ImageCopyBuffer, size *gputypes.Extent3D) error {
	source, err := toImageCopyTexture(src)
	if err != nil {
		return err
	}

	dest, err := toImageCopyBuffer(dst)
	if err != nil {
		return err
	}

	if err := e.encoder.CopyTextureToBuffer(source, dest, toExtent(size)); err != nil {
		return fmt.Errorf("copy texture to buffer: %w", err)
	}

	return nil
}

func (e *CommandEncoder) CopyTextureToTexture(src, dst *hal.ImageCopyTexture, size *gputypes.Extent3D) error {
	source, err := toImageCopyTexture(src)
	if err != nil {
		return err
	}

	dest, err := toImageCopyTexture(dst)
	if err != nil {
		return err
	}

	if err := e.encoder.CopyTextureToTexture(source, dest, toExtent(size)); err != nil {
		return fmt.Errorf("copy texture to texture: %w", err)
	}

	return nil
}

func (e *CommandEncoder) Finish(label string) (hal.CommandBuffer, error) {
	buffer, err := e.encoder.Finish(&wgpu.CommandBufferDescriptor{Label: label})
	if err != nil {
		return nil, err
	}

	return &CommandBuffer{buffer: buffer}, nil
}

func (e *CommandEncoder) Release() {
	if e.encoder != nil {
		e.encoder.Release()
		e.encoder = nil
	}
}

type CommandBuffer struct {
	buffer *wgpu.CommandBuffer
}

func (b *CommandBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type Buffer struct {
	buffer *wgpu.Buffer
	device *wgpu.Device
	desc   hal.BufferDescriptor
}

func (b *Buffer) Size() uint64 {
	return b.desc.Size
}

func (b *Buffer) Usage() gputypes.BufferUsage {
	return b.desc.Usage
}

func (b *Buffer) MapRead(ctx context.Context, offset, size uint64) ([]byte, error) {
	done := make(chan wgpu.BufferMapAsyncStatus, 1)

	err := b.buffer.MapAsync(wgpu.MapModeRead, offset, size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})

	if err != nil {
		return nil, fmt.Errorf("map buffer %q: %w", b.desc.Label, err)
	}

	for {
		select {
		case status := <-done:
			if status != wgpu.BufferMapAsyncStatusSuccess {
				return nil, fmt.Errorf("map buffer %q: status %v", b.desc.Label, status)
			}

			mapped := b.buffer.GetMappedRange(uint(offset), uint(size))
			result := append([]byte(nil), mapped...)
			b.buffer.Unmap()

			return result, nil

		case <-ctx.Done():
			return nil, ctx.Err()

		default:
			b.device.Poll(true, nil)
		}
	}
}

func (b *Buffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type Texture struct {
	texture *wgpu.Texture
	desc    hal.TextureDescriptor
}

var _ hal.Texture = (*Texture)(nil)

func (t *Texture) Width() uint32                  { return t.desc.Size.Width }
func (t *Texture) Height() uint32                 { return t.desc.Size.Height }
func (t *Texture) MipLevelCount() uint32          { return max(1, t.desc.MipLevelCount) }
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *Texture) Usage() gputypes.TextureUsage   { return t.desc.Usage }

func (t *Texture) CreateView(desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	var wgpuDesc *wgpu.TextureViewDescriptor

	if desc != nil {
		format, _ := toTextureFormat(t.desc.Format)

		count := desc.MipLevelCount
		if count == 0 {
			count = t.MipLevelCount() - desc.BaseMipLevel
		}

		wgpuDesc = &wgpu.TextureViewDescriptor{
			Label:           desc.Label,
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    desc.BaseMipLevel,
			MipLevelCount:   count,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		}
	}

	view, err := t.texture.CreateView(wgpuDesc)
	if err != nil {
		return nil, err
	}

	return &TextureView{view: view}, nil
}

func (t *Texture) Release() {
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type TextureView struct {
	view *wgpu.TextureView
}

func (v *TextureView) Release() {
	if v.view != nil {
		v.view.Release()
		v.view = nil
	}
}

type Sampler struct {
	sampler *wgpu.Sampler
}

func (s *Sampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}
