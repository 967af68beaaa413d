// Package hal describes the small slice of a WebGPU implementation that
// pulse builds on: adapter and device negotiation, a single queue, command
// encoders, textures, samplers and mappable buffers.
//
// Two implementations exist. Package webgpu drives wgpu-native through
// cogentcore/webgpu, package soft is a pure Go in-memory device used for
// tests and headless tooling.
//
// Resource lifecycle:
//   - Resources are created by a Device and must be released with Release.
//   - A resource must not be used after its Device was released.
//   - Release is idempotent for all resources.
package hal

import (
	"context"
	"errors"

	"github.com/gogpu/gputypes"
)

// ErrNoAdapter is returned by Instance.RequestAdapter if the backend has no
// adapter matching the requested options.
var ErrNoAdapter = errors.New("hal: no matching adapter")

// DefaultCopyRowAlignment is the WebGPU row pitch alignment for copies between
// buffers and textures.
const DefaultCopyRowAlignment = 256

// Instance is the entry point of a backend. It is owned by the caller.
type Instance interface {
	// RequestAdapter blocks until the backend offers an adapter matching the
	// options or reports that none exists.
	RequestAdapter(opts *AdapterOptions) (Adapter, error)

	Release()
}

// Surface is a presentable target created by the caller. pulse only uses it
// to constrain adapter selection and never presents to it.
type Surface interface {
	Release()
}

type AdapterOptions struct {
	PowerPreference      gputypes.PowerPreference
	ForceFallbackAdapter bool

	// CompatibleSurface asks for an adapter that can present to the surface.
	// Backends treat this as a preference, use Adapter.SupportsSurface to
	// verify the result.
	CompatibleSurface Surface
}

// AdapterInfo describes the physical GPU behind an adapter.
type AdapterInfo struct {
	Name    string
	Backend string
	Type    string
}

type Adapter interface {
	Info() AdapterInfo
	Limits() gputypes.Limits

	// SupportsSurface reports whether the adapter can present to the surface.
	SupportsSurface(surface Surface) bool

	// RequestDevice blocks until the device is created or negotiation failed.
	RequestDevice(desc *DeviceDescriptor) (Device, error)

	Release()
}

type DeviceDescriptor struct {
	Label string

	// RequiredLimits is nil to request the backend defaults.
	RequiredLimits *gputypes.Limits
}

type Device interface {
	// Queue returns the one queue of this device. The queue is owned by
	// the device.
	Queue() Queue

	Limits() gputypes.Limits

	// CopyRowAlignment is the required alignment of BytesPerRow in texture
	// data layouts.
	CopyRowAlignment() uint32

	CreateTexture(desc *TextureDescriptor) (Texture, error)
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Poll processes finished work. If wait is true it blocks until the
	// queue is idle.
	Poll(wait bool)

	Release()
}

type Queue interface {
	// Submit enqueues the command buffers in order. Each buffer can be
	// submitted once.
	Submit(buffers ...CommandBuffer) error

	// WriteTexture enqueues a copy of data into the texture. The data is
	// copied before WriteTexture returns.
	WriteTexture(dst *ImageCopyTexture, data []byte, layout *TextureDataLayout, size *gputypes.Extent3D) error

	Release()
}

// CommandEncoder records commands into a single CommandBuffer.
type CommandEncoder interface {
	CopyBufferToTexture(src *ImageCopyBuffer, dst *ImageCopyTexture, size *gputypes.Extent3D) error
	CopyTextureToBuffer(src *ImageCopyTexture, dst *ImageCopyBuffer, size *gputypes.Extent3D) error
	CopyTextureToTexture(src, dst *ImageCopyTexture, size *gputypes.Extent3D) error

	// Finish ends recording. The encoder must not be used afterwards.
	Finish(label string) (CommandBuffer, error)

	Release()
}

type CommandBuffer interface {
	Release()
}

type Buffer interface {
	Size() uint64
	Usage() gputypes.BufferUsage

	// MapRead waits for all submitted work touching the buffer and returns
	// a copy of the requested range. The buffer needs BufferUsageMapRead.
	MapRead(ctx context.Context, offset, size uint64) ([]byte, error)

	Release()
}

type Texture interface {
	Width() uint32
	Height() uint32
	MipLevelCount() uint32
	Format() gputypes.TextureFormat
	Usage() gputypes.TextureUsage

	// CreateView creates a view of the texture. A nil descriptor
	// creates a view over the full resource.
	CreateView(desc *TextureViewDescriptor) (TextureView, error)

	Release()
}

type TextureView interface {
	Release()
}

type Sampler interface {
	Release()
}

type TextureDescriptor struct {
	Label         string
	Size          gputypes.Extent3D
	MipLevelCount uint32
	SampleCount   uint32
	Dimension     gputypes.TextureDimension
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
}

type TextureViewDescriptor struct {
	Label         string
	BaseMipLevel  uint32
	MipLevelCount uint32
}

// SamplerDescriptor only holds comparable fields so it can be used as a
// cache key.
type SamplerDescriptor struct {
	Label         string
	AddressModeU  gputypes.AddressMode
	AddressModeV  gputypes.AddressMode
	AddressModeW  gputypes.AddressMode
	MagFilter     gputypes.FilterMode
	MinFilter     gputypes.FilterMode
	MipmapFilter  gputypes.FilterMode
	LodMinClamp   float32
	LodMaxClamp   float32
	Compare       gputypes.CompareFunction
	MaxAnisotropy uint16
}

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

type TextureDataLayout struct {
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
}

type ImageCopyTexture struct {
	Texture  Texture
	MipLevel uint32
	Origin   gputypes.Origin3D
	Aspect   gputypes.TextureAspect
}

type ImageCopyBuffer struct {
	Buffer Buffer
	Layout TextureDataLayout
}
