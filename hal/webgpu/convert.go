package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

var textureFormats = map[gputypes.TextureFormat]wgpu.TextureFormat{
	gputypes.TextureFormatR8Unorm:        wgpu.TextureFormatR8Unorm,
	gputypes.TextureFormatRG8Unorm:       wgpu.TextureFormatRG8Unorm,
	gputypes.TextureFormatRGBA8Unorm:     wgpu.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb: wgpu.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatBGRA8Unorm:     wgpu.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb: wgpu.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatR32Float:       wgpu.TextureFormatR32Float,
	gputypes.TextureFormatRGBA32Float:    wgpu.TextureFormatRGBA32Float,
	gputypes.TextureFormatDepth32Float:   wgpu.TextureFormatDepth32Float,
}

func toTextureFormat(format gputypes.TextureFormat) (wgpu.TextureFormat, bool) {
	wgpuFormat, ok := textureFormats[format]
	return wgpuFormat, ok
}

func toTextureUsage(usage gputypes.TextureUsage) wgpu.TextureUsage {
	var result wgpu.TextureUsage

	if usage&gputypes.TextureUsageCopySrc != 0 {
		result |= wgpu.TextureUsageCopySrc
	}

	if usage&gputypes.TextureUsageCopyDst != 0 {
		result |= wgpu.TextureUsageCopyDst
	}

	if usage&gputypes.TextureUsageTextureBinding != 0 {
		result |= wgpu.TextureUsageTextureBinding
	}

	if usage&gputypes.TextureUsageRenderAttachment != 0 {
		result |= wgpu.TextureUsageRenderAttachment
	}

	return result
}

func toBufferUsage(usage gputypes.BufferUsage) wgpu.BufferUsage {
	var result wgpu.BufferUsage

	if usage&gputypes.BufferUsageMapRead != 0 {
		result |= wgpu.BufferUsageMapRead
	}

	if usage&gputypes.BufferUsageCopySrc != 0 {
		result |= wgpu.BufferUsageCopySrc
	}

	if usage&gputypes.BufferUsageCopyDst != 0 {
		result |= wgpu.BufferUsageCopyDst
	}

	return result
}

func toAddressMode(mode gputypes.AddressMode) wgpu.AddressMode {
	switch mode {
	case gputypes.AddressModeRepeat:
		return wgpu.AddressModeRepeat
	case gputypes.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func toFilterMode(mode gputypes.FilterMode) wgpu.FilterMode {
	if mode == gputypes.FilterModeLinear {
		return wgpu.FilterModeLinear
	}

	return wgpu.FilterModeNearest
}

func toMipmapFilterMode(mode gputypes.FilterMode) wgpu.MipmapFilterMode {
	if mode == gputypes.FilterModeLinear {
		return wgpu.MipmapFilterModeLinear
	}

	return wgpu.MipmapFilterModeNearest
}

func toCompareFunction(fn gputypes.CompareFunction) wgpu.CompareFunction {
	switch fn {
	case gputypes.CompareFunctionNever:
		return wgpu.CompareFunctionNever
	case gputypes.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case gputypes.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gputypes.CompareFunctionEqual:
		return wgpu.CompareFunctionEqual
	case gputypes.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case gputypes.CompareFunctionGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case gputypes.CompareFunctionNotEqual:
		return wgpu.CompareFunctionNotEqual
	case gputypes.CompareFunctionAlways:
		return wgpu.CompareFunctionAlways
	default:
		// no comparison sampler
		return wgpu.CompareFunctionUndefined
	}
}

func toPowerPreference(pref gputypes.PowerPreference) wgpu.PowerPreference {
	switch pref {
	case gputypes.PowerPreferenceLowPower:
		return wgpu.PowerPreferenceLowPower
	case gputypes.PowerPreferenceHighPerformance:
		return wgpu.PowerPreferenceHighPerformance
	default:
		var undefined wgpu.PowerPreference
		return undefined
	}
}

func toLimits(limits gputypes.Limits) wgpu.Limits {
	result := wgpu.DefaultLimits()
	result.MaxTextureDimension2D = limits.MaxTextureDimension2D
	result.MaxBufferSize = limits.MaxBufferSize
	return result
}

func fromLimits(limits wgpu.Limits) gputypes.Limits {
	result := gputypes.DefaultLimits()
	result.MaxTextureDimension2D = limits.MaxTextureDimension2D
	result.MaxBufferSize = limits.MaxBufferSize
	return result
}

func toExtent(size *gputypes.Extent3D) *wgpu.Extent3D {
	return &wgpu.Extent3D{
		Width:              size.Width,
		Height:             size.Height,
		DepthOrArrayLayers: max(1, size.DepthOrArrayLayers),
	}
}

func toImageCopyTexture(copy *hal.ImageCopyTexture) (*wgpu.ImageCopyTexture, error) {
	texture, ok := copy.Texture.(*Texture)
	if !ok {
		return nil, fmt.Errorf("foreign texture %T", copy.Texture)
	}

	return &wgpu.ImageCopyTexture{
		Texture:  texture.texture,
		MipLevel: copy.MipLevel,
		Origin: wgpu.Origin3D{
			X: copy.Origin.X,
			Y: copy.Origin.Y,
			Z: copy.Origin.Z,
		},
		Aspect: wgpu.TextureAspectAll,
	}, nil
}

func toImageCopyBuffer(copy *hal.ImageCopyBuffer) (*wgpu.ImageCopyBuffer, error) {
	buffer, ok := copy.Buffer.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("foreign buffer %T", copy.Buffer)
	}

	return &wgpu.ImageCopyBuffer{
		Buffer: buffer.buffer,
		Layout: wgpu.TextureDataLayout{
			Offset:       copy.Layout.Offset,
			BytesPerRow:  copy.Layout.BytesPerRow,
			RowsPerImage: copy.Layout.RowsPerImage,
		},
	}, nil
}
