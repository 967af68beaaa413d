package pulse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesKind(t *testing.T) {
	cause := errors.New("out of memory")
	err := fmt.Errorf("load assets: %w", &Error{Kind: TextureCreationFailed, Op: "texture from image", Err: cause})

	assert.ErrorIs(t, err, ErrTextureCreationFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrImageDecodeFailed)

	var pulseErr *Error
	require.ErrorAs(t, err, &pulseErr)
	assert.Equal(t, TextureCreationFailed, pulseErr.Kind)
}

func TestErrorIsTypedNil(t *testing.T) {
	var target *Error

	assert.NotPanics(t, func() {
		assert.False(t, ErrAdapterNotFound.Is(target))
		assert.NotErrorIs(t, &Error{Kind: AdapterNotFound}, target)
	})
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{
			&Error{Kind: AdapterNotFound},
			"pulse: AdapterNotFound",
		},
		{
			&Error{Kind: DeviceRequestFailed, Op: "resolve", Label: "main", Err: errors.New("lost")},
			`pulse: resolve "main": DeviceRequestFailed: lost`,
		},
		{
			&Error{Kind: UnsupportedFormatConversion, Op: "texture from image", Layout: RGB8, Format: gputypes.TextureFormatRG8Unorm},
			"pulse: texture from image: UnsupportedFormatConversion from RGB8 to rg8unorm",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Error())
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SurfaceIncompatible", SurfaceIncompatible.String())
	assert.Equal(t, "ImageDecodeFailed", ImageDecodeFailed.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, "GrayAlpha8", GrayAlpha8.String())
}
