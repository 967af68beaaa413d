package pulse

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

//go:generate go tool stringer -type=ChannelLayout

// ChannelLayout describes the memory layout of a pixel in an Image.
// 16 bit channels are stored big-endian, like in the image package.
type ChannelLayout int

const (
	Gray8 ChannelLayout = iota + 1
	GrayAlpha8
	RGB8
	RGBA8
	BGRA8
	Gray16
	RGBA16
)

// Channels returns the number of channels in a pixel.
func (l ChannelLayout) Channels() int {
	switch l {
	case Gray8, Gray16:
		return 1
	case GrayAlpha8:
		return 2
	case RGB8:
		return 3
	case RGBA8, BGRA8, RGBA16:
		return 4
	default:
		return 0
	}
}

// BytesPerPixel returns the size of one pixel in bytes.
func (l ChannelLayout) BytesPerPixel() int {
	switch l {
	case Gray16, RGBA16:
		return 2 * l.Channels()
	default:
		return l.Channels()
	}
}

var formatNames = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatR8Unorm:        "r8unorm",
	gputypes.TextureFormatRG8Unorm:       "rg8unorm",
	gputypes.TextureFormatRGBA8Unorm:     "rgba8unorm",
	gputypes.TextureFormatRGBA8UnormSrgb: "rgba8unorm-srgb",
	gputypes.TextureFormatBGRA8Unorm:     "bgra8unorm",
	gputypes.TextureFormatBGRA8UnormSrgb: "bgra8unorm-srgb",
	gputypes.TextureFormatR32Float:       "r32float",
	gputypes.TextureFormatRGBA32Float:    "rgba32float",
	gputypes.TextureFormatDepth32Float:   "depth32float",
}

// FormatName returns the WebGPU name of a texture format, e.g. "rgba8unorm-srgb".
func FormatName(format gputypes.TextureFormat) string {
	if name, ok := formatNames[format]; ok {
		return name
	}

	return "unknown"
}

// ParseFormat parses a WebGPU texture format name as returned by FormatName.
func ParseFormat(name string) (gputypes.TextureFormat, bool) {
	name = strings.ToLower(strings.TrimSpace(name))

	for format, formatName := range formatNames {
		if formatName == name {
			return format, true
		}
	}

	return gputypes.TextureFormatUndefined, false
}

// IsSrgb reports whether the GPU decodes the format from sRGB when sampling.
func IsSrgb(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatRGBA8UnormSrgb || format == gputypes.TextureFormatBGRA8UnormSrgb
}

// formatChannels returns the number of color channels of a format that images
// can be uploaded to, or 0 if images can not be uploaded to the format.
func formatChannels(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR32Float:
		return 1
	case gputypes.TextureFormatRG8Unorm:
		return 2
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGBA32Float:
		return 4
	default:
		return 0
	}
}

// CanConvert reports whether pixels of the layout can be uploaded into a
// texture of the format. The format must be able to hold every channel of the
// layout: gray is replicated into rgb and a missing alpha channel becomes
// opaque, so every layout can be stored in a four channel format. Single and
// two channel formats only accept gray and gray+alpha pixels.
func CanConvert(layout ChannelLayout, format gputypes.TextureFormat) bool {
	channels := formatChannels(format)
	switch channels {
	case 0:
		return false
	case 4:
		return layout.Channels() > 0
	default:
		return layout.Channels() == channels
	}
}

// EncodeTexels converts the pixels of the image into tightly packed texels of
// the given format.
func EncodeTexels(img Image, format gputypes.TextureFormat) ([]byte, error) {
	if !CanConvert(img.Layout, format) {
		return nil, &Error{
			Kind:   UnsupportedFormatConversion,
			Op:     "encode texels",
			Layout: img.Layout,
			Format: format,
		}
	}

	if err := img.Validate(); err != nil {
		return nil, &Error{Kind: TextureCreationFailed, Op: "encode texels", Err: err}
	}

	bpt := int(hal.BytesPerTexel(format))
	width, height := int(img.Width), int(img.Height)
	rowBytes := img.RowBytes()

	// pixels already in the target layout
	if sameMemoryLayout(img.Layout, format) {
		if img.Stride == rowBytes || height == 1 {
			return img.Pix[:rowBytes*height], nil
		}

		texels := make([]byte, rowBytes*height)
		for y := range height {
			copy(texels[y*rowBytes:(y+1)*rowBytes], img.Pix[y*img.Stride:])
		}

		return texels, nil
	}

	texels := make([]byte, width*height*bpt)
	for y := range height {
		src := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		dst := texels[y*width*bpt : (y+1)*width*bpt]
		convertRow(dst, src, width, img.Layout, format)
	}

	return texels, nil
}

func sameMemoryLayout(layout ChannelLayout, format gputypes.TextureFormat) bool {
	switch layout {
	case Gray8:
		return format == gputypes.TextureFormatR8Unorm
	case GrayAlpha8:
		return format == gputypes.TextureFormatRG8Unorm
	case RGBA8:
		return format == gputypes.TextureFormatRGBA8Unorm || format == gputypes.TextureFormatRGBA8UnormSrgb
	case BGRA8:
		return format == gputypes.TextureFormatBGRA8Unorm || format == gputypes.TextureFormatBGRA8UnormSrgb
	default:
		return false
	}
}

// pixel reads the pixel at index x as 16 bit channels in rgba order. Gray is
// replicated, missing alpha is opaque.
func pixel(src []byte, x int, layout ChannelLayout) [4]uint16 {
	expand := func(v byte) uint16 { return uint16(v) * 0x101 }

	switch layout {
	case Gray8:
		g := expand(src[x])
		return [4]uint16{g, g, g, 0xffff}

	case GrayAlpha8:
		g := expand(src[2*x])
		return [4]uint16{g, g, g, expand(src[2*x+1])}

	case RGB8:
		p := src[3*x:]
		return [4]uint16{expand(p[0]), expand(p[1]), expand(p[2]), 0xffff}

	case RGBA8:
		p := src[4*x:]
		return [4]uint16{expand(p[0]), expand(p[1]), expand(p[2]), expand(p[3])}

	case BGRA8:
		p := src[4*x:]
		return [4]uint16{expand(p[2]), expand(p[1]), expand(p[0]), expand(p[3])}

	case Gray16:
		g := binary.BigEndian.Uint16(src[2*x:])
		return [4]uint16{g, g, g, 0xffff}

	case RGBA16:
		p := src[8*x:]
		return [4]uint16{
			binary.BigEndian.Uint16(p[0:]),
			binary.BigEndian.Uint16(p[2:]),
			binary.BigEndian.Uint16(p[4:]),
			binary.BigEndian.Uint16(p[6:]),
		}

	default:
		panic("pulse: invalid channel layout")
	}
}

func quantize8(v uint16) byte {
	return byte((uint32(v)*255 + 32767) / 65535)
}

func putFloat(dst []byte, v uint16) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)/65535))
}

func convertRow(dst, src []byte, width int, layout ChannelLayout, format gputypes.TextureFormat) {
	for x := range width {
		p := pixel(src, x, layout)

		switch format {
		case gputypes.TextureFormatR8Unorm:
			dst[x] = quantize8(p[0])

		case gputypes.TextureFormatRG8Unorm:
			dst[2*x+0] = quantize8(p[0])
			dst[2*x+1] = quantize8(p[3])

		case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
			d := dst[4*x : 4*x+4]
			d[0], d[1], d[2], d[3] = quantize8(p[0]), quantize8(p[1]), quantize8(p[2]), quantize8(p[3])

		case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
			d := dst[4*x : 4*x+4]
			d[0], d[1], d[2], d[3] = quantize8(p[2]), quantize8(p[1]), quantize8(p[0]), quantize8(p[3])

		case gputypes.TextureFormatR32Float:
			putFloat(dst[4*x:], p[0])

		case gputypes.TextureFormatRGBA32Float:
			for c := range 4 {
				putFloat(dst[16*x+4*c:], p[c])
			}
		}
	}
}
