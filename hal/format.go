package hal

import "github.com/gogpu/gputypes"

// BytesPerTexel returns the size of one texel of the given format, or 0 if the
// format is not supported by this package.
func BytesPerTexel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1

	case gputypes.TextureFormatRG8Unorm:
		return 2

	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatR32Float,
		gputypes.TextureFormatDepth32Float:
		return 4

	case gputypes.TextureFormatRGBA32Float:
		return 16

	default:
		return 0
	}
}

// MipSize returns the size of the given mip level of a texture with the
// given base size.
func MipSize(width, height, level uint32) (uint32, uint32) {
	return max(1, width>>level), max(1, height>>level)
}
