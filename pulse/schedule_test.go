package pulse

import (
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
	"github.com/oliverbestmann/gpuctx/hal/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleSubmitsOncePerCall(t *testing.T) {
	c := createContext(t)
	queue := softQueue(t, c)

	src := createTestTexture(t, c, 4, 4, true)
	dst := createTestTexture(t, c, 4, 4, true)

	for idx := range 5 {
		err := c.Schedule(func(enc *Encoder) {
			// vary the number of commands, including none
			for range idx {
				enc.CopyTextureToTexture(src, dst)
			}
		})

		require.NoError(t, err)
	}

	assert.Equal(t, 5, queue.Submissions())
	assert.Equal(t, 5, queue.CommandBuffers())
	assert.Equal(t, 0+1+2+3+4, queue.Commands())
}

func TestScheduleEmpty(t *testing.T) {
	c := createContext(t)

	var commands int
	require.NoError(t, c.Schedule(func(enc *Encoder) {
		commands = enc.Commands()
	}))

	assert.Equal(t, 0, commands)
	assert.Equal(t, 1, softQueue(t, c).Submissions())
}

func TestScheduleInvokesRecordOnce(t *testing.T) {
	c := createContext(t)

	var calls int
	require.NoError(t, c.Schedule(func(enc *Encoder) { calls++ }))
	assert.Equal(t, 1, calls)
}

func TestScheduleLabeled(t *testing.T) {
	c := createContext(t)

	require.NoError(t, c.ScheduleLabeled("upload", func(enc *Encoder) {}))
	require.NoError(t, c.Schedule(func(enc *Encoder) {}))

	assert.Equal(t, []string{"upload", defaultEncoderLabel}, softQueue(t, c).Labels())
}

func TestSchedulePanicDoesNotSubmit(t *testing.T) {
	c := createContext(t)

	var raw hal.CommandEncoder

	assert.PanicsWithValue(t, "recording failed", func() {
		_ = c.Schedule(func(enc *Encoder) {
			raw = enc.Raw()
			panic("recording failed")
		})
	})

	assert.Equal(t, 0, softQueue(t, c).Submissions())
	assert.True(t, raw.(*soft.CommandEncoder).Released())

	// the context is still usable
	require.NoError(t, c.Schedule(func(enc *Encoder) {}))
	assert.Equal(t, 1, softQueue(t, c).Submissions())
}

func TestEncoderUseAfterSchedulePanics(t *testing.T) {
	c := createContext(t)
	tex := createTestTexture(t, c, 2, 2, true)

	var leaked *Encoder
	require.NoError(t, c.Schedule(func(enc *Encoder) { leaked = enc }))

	assert.Panics(t, func() { leaked.CopyTextureToTexture(tex, tex) })
	assert.Panics(t, func() { leaked.Raw() })
}

func TestScheduleRecordingError(t *testing.T) {
	c := createContext(t)

	// not readable, so it can not be a copy source
	src := createTestTexture(t, c, 2, 2, false)
	dst := createTestTexture(t, c, 2, 2, false)
	small := createTestTexture(t, c, 1, 1, false)

	err := c.Schedule(func(enc *Encoder) {
		enc.CopyTextureToTexture(src, dst)
	})
	assert.ErrorIs(t, err, soft.ErrValidation)

	err = c.Schedule(func(enc *Encoder) {
		enc.CopyTextureToTexture(src, small)
	})
	assert.Error(t, err)

	assert.Equal(t, 0, softQueue(t, c).Submissions())
}

func TestScheduleConcurrent(t *testing.T) {
	c := createContext(t)

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range perGoroutine {
				assert.NoError(t, c.Schedule(func(enc *Encoder) {}))
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, softQueue(t, c).Submissions())
}

func TestScheduleCopyBufferToTexture(t *testing.T) {
	c := createContext(t)
	tex := createTestTexture(t, c, 2, 1, true)

	buffer, err := c.Device().CreateBuffer(&hal.BufferDescriptor{
		Size:  256,
		Usage: gputypes.BufferUsageCopySrc,
	})
	require.NoError(t, err)
	defer buffer.Release()

	texels := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, buffer.(*soft.Buffer).Write(0, texels))

	require.NoError(t, c.Schedule(func(enc *Encoder) {
		enc.CopyBufferToTexture(buffer, 256, tex, 0)
	}))

	assert.Equal(t, texels, tex.Texture().(*soft.Texture).Texels(0))
}

func createTestTexture(t *testing.T, c *Context, width, height uint32, readable bool) *Texture {
	t.Helper()

	img := Image{
		Width:  width,
		Height: height,
		Layout: RGBA8,
		Pix:    make([]byte, width*height*4),
	}

	tex, err := c.TextureFromImageWithOptions(img, TextureOptions{
		Format:   gputypes.TextureFormatRGBA8Unorm,
		Label:    "test",
		Readable: readable,
	})
	require.NoError(t, err)

	t.Cleanup(tex.Release)

	return tex
}
