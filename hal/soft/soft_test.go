package soft

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDevice(t *testing.T) *Device {
	t.Helper()

	adapter, err := NewInstance(nil).RequestAdapter(nil)
	require.NoError(t, err)

	device, err := adapter.RequestDevice(&hal.DeviceDescriptor{Label: "test"})
	require.NoError(t, err)

	t.Cleanup(device.Release)

	return device.(*Device)
}

func createTexture(t *testing.T, device *Device, width, height uint32, usage gputypes.TextureUsage) *Texture {
	t.Helper()

	texture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "texture",
		Size:          gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         usage,
	})
	require.NoError(t, err)

	return texture.(*Texture)
}

func TestRequestAdapter(t *testing.T) {
	instance := NewInstance(&InstanceOptions{
		Adapters: []AdapterOptions{
			{Name: "integrated", LowPower: true},
			{Name: "discrete"},
			{Name: "cpu", Fallback: true, LowPower: true, Headless: true},
		},
	})

	tests := []struct {
		name     string
		opts     hal.AdapterOptions
		expected string
	}{
		{"default picks the first", hal.AdapterOptions{}, "integrated"},
		{"low power", hal.AdapterOptions{PowerPreference: gputypes.PowerPreferenceLowPower}, "integrated"},
		{"high performance", hal.AdapterOptions{PowerPreference: gputypes.PowerPreferenceHighPerformance}, "discrete"},
		{"fallback", hal.AdapterOptions{ForceFallbackAdapter: true}, "cpu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := instance.RequestAdapter(&tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, adapter.Info().Name)
		})
	}

	assert.Equal(t, len(tests), instance.AdapterRequests())
}

func TestRequestAdapterNone(t *testing.T) {
	_, err := NewInstance(&InstanceOptions{}).RequestAdapter(nil)
	assert.ErrorIs(t, err, hal.ErrNoAdapter)

	_, err = NewInstance(nil).RequestAdapter(&hal.AdapterOptions{ForceFallbackAdapter: true})
	assert.ErrorIs(t, err, hal.ErrNoAdapter)
}

func TestSurfaceSupport(t *testing.T) {
	surface := NewSurface("window")

	instance := NewInstance(&InstanceOptions{
		Adapters: []AdapterOptions{{Name: "headless", Headless: true}, {Name: "display"}},
	})

	adapter, err := instance.RequestAdapter(&hal.AdapterOptions{CompatibleSurface: surface})
	require.NoError(t, err)
	assert.Equal(t, "display", adapter.Info().Name)
	assert.True(t, adapter.SupportsSurface(surface))

	headless := NewInstance(&InstanceOptions{Adapters: []AdapterOptions{{Name: "headless", Headless: true}}})
	adapter, err = headless.RequestAdapter(&hal.AdapterOptions{CompatibleSurface: surface})
	require.NoError(t, err)
	assert.False(t, adapter.SupportsSurface(surface))
}

func TestRequestDeviceFailure(t *testing.T) {
	failure := errors.New("out of memory")

	instance := NewInstance(&InstanceOptions{Adapters: []AdapterOptions{{Name: "broken", DeviceError: failure}}})
	adapter, err := instance.RequestAdapter(nil)
	require.NoError(t, err)

	_, err = adapter.RequestDevice(nil)
	assert.ErrorIs(t, err, failure)
}

func TestRequestDeviceLimits(t *testing.T) {
	adapter, err := NewInstance(nil).RequestAdapter(nil)
	require.NoError(t, err)

	limits := gputypes.DefaultLimits()
	limits.MaxTextureDimension2D = adapter.Limits().MaxTextureDimension2D * 2

	_, err = adapter.RequestDevice(&hal.DeviceDescriptor{RequiredLimits: &limits})
	assert.ErrorIs(t, err, ErrValidation)

	limits.MaxTextureDimension2D = 64
	device, err := adapter.RequestDevice(&hal.DeviceDescriptor{RequiredLimits: &limits})
	require.NoError(t, err)
	assert.EqualValues(t, 64, device.Limits().MaxTextureDimension2D)
}

func TestCreateTextureValidation(t *testing.T) {
	device := createDevice(t)
	maxDim := device.Limits().MaxTextureDimension2D

	tests := []struct {
		name string
		desc hal.TextureDescriptor
	}{
		{"empty", hal.TextureDescriptor{
			Size:   gputypes.Extent3D{Width: 0, Height: 4, DepthOrArrayLayers: 1},
			Format: gputypes.TextureFormatRGBA8Unorm,
			Usage:  gputypes.TextureUsageCopyDst,
		}},
		{"too large", hal.TextureDescriptor{
			Size:   gputypes.Extent3D{Width: maxDim + 1, Height: 4, DepthOrArrayLayers: 1},
			Format: gputypes.TextureFormatRGBA8Unorm,
			Usage:  gputypes.TextureUsageCopyDst,
		}},
		{"no usage", hal.TextureDescriptor{
			Size:   gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
			Format: gputypes.TextureFormatRGBA8Unorm,
		}},
		{"too many mips", hal.TextureDescriptor{
			Size:          gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
			MipLevelCount: 4,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Usage:         gputypes.TextureUsageCopyDst,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := device.CreateTexture(&tt.desc)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestWriteTextureRequiresAlignedRows(t *testing.T) {
	device := createDevice(t)
	texture := createTexture(t, device, 3, 2, gputypes.TextureUsageCopyDst)

	size := &gputypes.Extent3D{Width: 3, Height: 2, DepthOrArrayLayers: 1}
	dst := &hal.ImageCopyTexture{Texture: texture, Aspect: gputypes.TextureAspectAll}

	err := device.Queue().WriteTexture(dst, make([]byte, 24), &hal.TextureDataLayout{BytesPerRow: 12, RowsPerImage: 2}, size)
	assert.ErrorIs(t, err, ErrValidation)

	data := make([]byte, 256+12)
	for idx := range 12 {
		data[idx] = byte(idx + 1)
		data[256+idx] = byte(idx + 101)
	}

	err = device.Queue().WriteTexture(dst, data, &hal.TextureDataLayout{BytesPerRow: 256, RowsPerImage: 2}, size)
	require.NoError(t, err)

	texels := texture.Texels(0)
	assert.Equal(t, data[:12], texels[:12])
	assert.Equal(t, data[256:268], texels[12:])
	assert.Equal(t, 1, device.SoftQueue().TextureWrites())
}

func TestWriteTextureRequiresCopyDst(t *testing.T) {
	device := createDevice(t)
	texture := createTexture(t, device, 1, 1, gputypes.TextureUsageTextureBinding)

	err := device.Queue().WriteTexture(
		&hal.ImageCopyTexture{Texture: texture},
		make([]byte, 4),
		&hal.TextureDataLayout{BytesPerRow: 256},
		&gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitExecutesInOrder(t *testing.T) {
	device := createDevice(t)

	usage := gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	first := createTexture(t, device, 2, 2, usage)
	second := createTexture(t, device, 2, 2, usage)

	size := &gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1}
	pixels := make([]byte, 256+8)
	for idx := range pixels {
		pixels[idx] = byte(idx)
	}

	err := device.Queue().WriteTexture(&hal.ImageCopyTexture{Texture: first}, pixels, &hal.TextureDataLayout{BytesPerRow: 256}, size)
	require.NoError(t, err)

	buffer, err := device.CreateBuffer(&hal.BufferDescriptor{
		Size:  512,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	require.NoError(t, err)

	encoder, err := device.CreateCommandEncoder("copy")
	require.NoError(t, err)

	require.NoError(t, encoder.CopyTextureToTexture(&hal.ImageCopyTexture{Texture: first}, &hal.ImageCopyTexture{Texture: second}, size))
	require.NoError(t, encoder.CopyTextureToBuffer(
		&hal.ImageCopyTexture{Texture: second},
		&hal.ImageCopyBuffer{Buffer: buffer, Layout: hal.TextureDataLayout{BytesPerRow: 256}},
		size,
	))

	cmdBuffer, err := encoder.Finish("")
	require.NoError(t, err)

	// nothing executed before submission
	assert.Equal(t, make([]byte, 16), second.Texels(0))

	require.NoError(t, device.Queue().Submit(cmdBuffer))
	assert.Equal(t, first.Texels(0), second.Texels(0))

	readback, err := buffer.MapRead(context.Background(), 0, 512)
	require.NoError(t, err)
	assert.Equal(t, pixels[:8], readback[:8])
	assert.Equal(t, pixels[256:264], readback[256:264])

	queue := device.SoftQueue()
	assert.Equal(t, 1, queue.Submissions())
	assert.Equal(t, 2, queue.Commands())
	assert.Equal(t, []string{"copy"}, queue.Labels())

	// command buffers are single use
	assert.ErrorIs(t, device.Queue().Submit(cmdBuffer), ErrValidation)
	assert.Equal(t, 1, queue.Submissions())
}

func TestInvalidEncoderFailsFinish(t *testing.T) {
	device := createDevice(t)
	texture := createTexture(t, device, 2, 2, gputypes.TextureUsageCopyDst)

	buffer, err := device.CreateBuffer(&hal.BufferDescriptor{Size: 512, Usage: gputypes.BufferUsageCopyDst})
	require.NoError(t, err)

	encoder, err := device.CreateCommandEncoder("invalid")
	require.NoError(t, err)

	// missing CopySrc usage
	err = encoder.CopyTextureToBuffer(
		&hal.ImageCopyTexture{Texture: texture},
		&hal.ImageCopyBuffer{Buffer: buffer, Layout: hal.TextureDataLayout{BytesPerRow: 256}},
		&gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1},
	)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = encoder.Finish("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReleaseTracksResources(t *testing.T) {
	device := createDevice(t)

	texture := createTexture(t, device, 1, 1, gputypes.TextureUsageCopyDst)
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{LodMaxClamp: 32})
	require.NoError(t, err)

	textures, samplers, _ := device.LiveResources()
	assert.Equal(t, 1, textures)
	assert.Equal(t, 1, samplers)

	texture.Release()
	texture.Release()
	sampler.Release()

	textures, samplers, _ = device.LiveResources()
	assert.Equal(t, 0, textures)
	assert.Equal(t, 0, samplers)

	device.Release()
	_, err = device.CreateCommandEncoder("late")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMapReadRequiresUsage(t *testing.T) {
	device := createDevice(t)

	buffer, err := device.CreateBuffer(&hal.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageCopyDst})
	require.NoError(t, err)

	_, err = buffer.MapRead(context.Background(), 0, 16)
	assert.ErrorIs(t, err, ErrValidation)
}
