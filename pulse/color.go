package pulse

import (
	"encoding/binary"
	"math"

	"github.com/oliverbestmann/gpuctx/glm"
)

var ColorWhite = ColorLinearRGBA(1, 1, 1, 1)
var ColorBlack = ColorLinearRGBA(0, 0, 0, 1)
var ColorTransparent = ColorLinearRGBA(0, 0, 0, 0)

// Color is a straight rgba color value with alpha in linear rgb color space.
// The default value of a Color value is fully opaque white.
type Color struct {
	r1, g1, b1, a1 float32
}

// ColorLinearRGBA creates a new Color value from the given color values.
func ColorLinearRGBA(r, g, b, a float32) Color {
	return Color{
		r1: r - 1,
		g1: g - 1,
		b1: b - 1,
		a1: a - 1,
	}
}

// ColorSRGBA creates a Color value from non linear srgb encoded values. The color values
// will be transferred into linear rgb space.
// Use this if you picked a color from a jpeg image.
func ColorSRGBA(r, g, b, a float32) Color {
	return ColorLinearRGBA(degamma(r), degamma(g), degamma(b), a)
}

// ToVec returns a glm.Vec4f containing the components of this Color instance in
// linear rgb space.
func (c Color) ToVec() glm.Vec4f {
	return glm.Vec4f{
		c.r1 + 1,
		c.g1 + 1,
		c.b1 + 1,
		c.a1 + 1,
	}
}

// Components returns the color components.
func (c Color) Components() (r, g, b, a float32) {
	return c.ToVec().XYZW()
}

// WithAlpha returns a new color with the alpha component set to the given value.
func (c Color) WithAlpha(alpha float32) Color {
	c.a1 = alpha - 1
	return c
}

// rgba16Bytes encodes the color as a big-endian RGBA16 pixel. Color channels
// are sRGB encoded if srgb is set, alpha is always linear.
func (c Color) rgba16Bytes(srgb bool) []byte {
	v := c.ToVec().Clamp(0, 1)

	if srgb {
		v[0], v[1], v[2] = gamma(v[0]), gamma(v[1]), gamma(v[2])
	}

	pix := make([]byte, 8)
	for idx, value := range v {
		binary.BigEndian.PutUint16(pix[2*idx:], uint16(math.Round(float64(value)*0xffff)))
	}

	return pix
}

// float32Bytes encodes the linear color as an RGBA32Float texel.
func (c Color) float32Bytes() []byte {
	texel := make([]byte, 16)
	for idx, value := range c.ToVec() {
		binary.LittleEndian.PutUint32(texel[4*idx:], math.Float32bits(value))
	}

	return texel
}

func degamma(value float32) float32 {
	x := float64(value)

	// https://www.w3.org/TR/css-color-4/#color-conversion-code
	sign := math.Copysign(1, x)
	abs := math.Abs(x)
	if abs <= 0.04045 {
		return float32(x / 12.92)
	}

	return float32(sign * math.Pow((abs+0.055)/1.055, 2.4))
}

func gamma(value float32) float32 {
	x := float64(value)

	sign := math.Copysign(1, x)
	abs := math.Abs(x)
	if abs <= 0.0031308 {
		return float32(x * 12.92)
	}

	return float32(sign * (1.055*math.Pow(abs, 1/2.4) - 0.055))
}
