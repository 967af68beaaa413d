package pulse

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/gogpu/gputypes"
)

// mipLevelCount returns the number of levels of a full mip chain.
func mipLevelCount(width, height uint32) uint32 {
	return uint32(bits.Len32(max(width, height)))
}

// downsample halves the texels with a 2x2 box filter. Odd sizes clamp the
// sample position at the last row and column.
func downsample(texels []byte, width, height uint32, format gputypes.TextureFormat) ([]byte, uint32, uint32) {
	nw, nh := max(1, width/2), max(1, height/2)

	isFloat := format == gputypes.TextureFormatR32Float || format == gputypes.TextureFormatRGBA32Float
	channels := formatChannels(format)

	channelBytes := 1
	if isFloat {
		channelBytes = 4
	}

	texelBytes := channels * channelBytes
	result := make([]byte, int(nw)*int(nh)*texelBytes)

	offset := func(x, y uint32) int {
		x, y = min(x, width-1), min(y, height-1)
		return (int(y)*int(width) + int(x)) * texelBytes
	}

	for y := range nh {
		for x := range nw {
			samples := [4]int{
				offset(2*x, 2*y),
				offset(2*x+1, 2*y),
				offset(2*x, 2*y+1),
				offset(2*x+1, 2*y+1),
			}

			dst := (int(y)*int(nw) + int(x)) * texelBytes

			for c := range channels {
				if isFloat {
					var sum float32
					for _, s := range samples {
						sum += math.Float32frombits(binary.LittleEndian.Uint32(texels[s+4*c:]))
					}

					binary.LittleEndian.PutUint32(result[dst+4*c:], math.Float32bits(sum/4))
					continue
				}

				var sum uint32
				for _, s := range samples {
					sum += uint32(texels[s+c])
				}

				result[dst+c] = byte((sum + 2) / 4)
			}
		}
	}

	return result, nw, nh
}
