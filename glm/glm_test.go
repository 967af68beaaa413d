package glm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2(t *testing.T) {
	a := Vec2u{4, 6}
	b := Vec2u{2, 3}

	assert.Equal(t, Vec2u{6, 9}, a.Add(b))
	assert.Equal(t, Vec2u{2, 3}, a.Sub(b))

	x, y := a.XY()
	assert.Equal(t, uint32(4), x)
	assert.Equal(t, uint32(6), y)
}

func TestVec4Clamp(t *testing.T) {
	v := Vec4f{-0.5, 0.25, 1.5, 1}
	assert.Equal(t, Vec4f{0, 0.25, 1, 1}, v.Clamp(0, 1))

	_, _, z, w := v.XYZW()
	assert.Equal(t, float32(1.5), z)
	assert.Equal(t, float32(1), w)
}
