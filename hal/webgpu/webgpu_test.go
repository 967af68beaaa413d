package webgpu

import (
	"context"
	"os"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatMapping(t *testing.T) {
	tests := []struct {
		format   gputypes.TextureFormat
		expected wgpu.TextureFormat
	}{
		{gputypes.TextureFormatR8Unorm, wgpu.TextureFormatR8Unorm},
		{gputypes.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb},
		{gputypes.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8Unorm},
		{gputypes.TextureFormatDepth32Float, wgpu.TextureFormatDepth32Float},
	}

	for _, tt := range tests {
		format, ok := toTextureFormat(tt.format)
		require.True(t, ok)
		assert.Equal(t, tt.expected, format)
	}

	_, ok := toTextureFormat(gputypes.TextureFormatUndefined)
	assert.False(t, ok)
}

func TestUsageMapping(t *testing.T) {
	usage := toTextureUsage(gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding)
	assert.Equal(t, wgpu.TextureUsageCopyDst|wgpu.TextureUsageTextureBinding, usage)

	bufferUsage := toBufferUsage(gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst)
	assert.Equal(t, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst, bufferUsage)
}

func TestSamplerMapping(t *testing.T) {
	assert.Equal(t, wgpu.FilterModeLinear, toFilterMode(gputypes.FilterModeLinear))
	assert.Equal(t, wgpu.MipmapFilterModeNearest, toMipmapFilterMode(gputypes.FilterModeNearest))
	assert.Equal(t, wgpu.AddressModeClampToEdge, toAddressMode(gputypes.AddressModeClampToEdge))
	assert.Equal(t, wgpu.CompareFunctionLessEqual, toCompareFunction(gputypes.CompareFunctionLessEqual))
}

// requireGPU skips tests that need a working wgpu-native adapter.
func requireGPU(t *testing.T) *Instance {
	t.Helper()

	if os.Getenv("GPUCTX_WEBGPU_TESTS") != "1" {
		t.Skip("set GPUCTX_WEBGPU_TESTS=1 to run tests against wgpu-native")
	}

	instance := NewInstance()
	t.Cleanup(instance.Release)

	return instance
}

func TestDeviceReadback(t *testing.T) {
	instance := requireGPU(t)

	adapter, err := instance.RequestAdapter(&hal.AdapterOptions{ForceFallbackAdapter: os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"})
	require.NoError(t, err)
	defer adapter.Release()

	device, err := adapter.RequestDevice(&hal.DeviceDescriptor{Label: "test"})
	require.NoError(t, err)
	defer device.Release()

	texture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "texture",
		Size:          gputypes.Extent3D{Width: 3, Height: 2, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc,
	})
	require.NoError(t, err)
	defer texture.Release()

	data := make([]byte, 256+12)
	for idx := range 12 {
		data[idx] = byte(idx + 1)
		data[256+idx] = byte(idx + 101)
	}

	size := &gputypes.Extent3D{Width: 3, Height: 2, DepthOrArrayLayers: 1}
	layout := hal.TextureDataLayout{BytesPerRow: 256, RowsPerImage: 2}

	require.NoError(t, device.Queue().WriteTexture(&hal.ImageCopyTexture{Texture: texture}, data, &layout, size))

	buffer, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback",
		Size:  512,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	require.NoError(t, err)
	defer buffer.Release()

	encoder, err := device.CreateCommandEncoder("readback")
	require.NoError(t, err)
	defer encoder.Release()

	require.NoError(t, encoder.CopyTextureToBuffer(
		&hal.ImageCopyTexture{Texture: texture},
		&hal.ImageCopyBuffer{Buffer: buffer, Layout: layout},
		size,
	))

	cmdBuffer, err := encoder.Finish("readback")
	require.NoError(t, err)
	defer cmdBuffer.Release()

	require.NoError(t, device.Queue().Submit(cmdBuffer))

	readback, err := buffer.MapRead(context.Background(), 0, 512)
	require.NoError(t, err)

	assert.Equal(t, data[:12], readback[:12])
	assert.Equal(t, data[256:268], readback[256:268])
}

func TestCopiesRejectForeignObjects(t *testing.T) {
	size := &gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1}
	layout := &hal.TextureDataLayout{BytesPerRow: 256}

	queue := &Queue{}
	assert.Error(t, queue.WriteTexture(&hal.ImageCopyTexture{}, make([]byte, 4), layout, size))

	encoder := &CommandEncoder{}
	assert.Error(t, encoder.CopyBufferToTexture(&hal.ImageCopyBuffer{}, &hal.ImageCopyTexture{}, size))
	assert.Error(t, encoder.CopyTextureToBuffer(&hal.ImageCopyTexture{}, &hal.ImageCopyBuffer{}, size))
	assert.Error(t, encoder.CopyTextureToTexture(&hal.ImageCopyTexture{}, &hal.ImageCopyTexture{}, size))
}

func TestWriteTextureReportsValidationError(t *testing.T) {
	instance := requireGPU(t)

	adapter, err := instance.RequestAdapter(&hal.AdapterOptions{ForceFallbackAdapter: os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"})
	require.NoError(t, err)
	defer adapter.Release()

	device, err := adapter.RequestDevice(&hal.DeviceDescriptor{Label: "test"})
	require.NoError(t, err)
	defer device.Release()

	// no CopyDst usage, the upload must be rejected
	texture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "sampled only",
		Size:          gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding,
	})
	require.NoError(t, err)
	defer texture.Release()

	err = device.Queue().WriteTexture(
		&hal.ImageCopyTexture{Texture: texture},
		make([]byte, 4),
		&hal.TextureDataLayout{BytesPerRow: 256, RowsPerImage: 1},
		&gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	assert.ErrorContains(t, err, "write texture")
}

func TestAdapterInfoNamesTheAdapter(t *testing.T) {
	instance := requireGPU(t)

	adapter, err := instance.RequestAdapter(&hal.AdapterOptions{ForceFallbackAdapter: os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"})
	require.NoError(t, err)
	defer adapter.Release()

	info := adapter.Info()
	assert.NotEmpty(t, info.Name)
	assert.NotEmpty(t, info.Backend)
}
