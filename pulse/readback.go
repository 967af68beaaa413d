package pulse

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

// ReadTexture copies a mip level of the texture back to the CPU and returns
// its tightly packed texels. The texture must have been created with
// TextureOptions.Readable. ReadTexture blocks until the copy finished or
// ctx is done.
func (c *Context) ReadTexture(ctx context.Context, tex *Texture, mipLevel uint32) ([]byte, error) {
	c.checkAlive()

	if tex.Usage()&gputypes.TextureUsageCopySrc == 0 {
		return nil, fmt.Errorf("read texture %q: texture is not readable", tex.Label())
	}

	if mipLevel >= tex.MipLevelCount() {
		return nil, fmt.Errorf("read texture %q: mip level %d out of range", tex.Label(), mipLevel)
	}

	width, height := hal.MipSize(tex.Width(), tex.Height(), mipLevel)
	rowBytes := width * hal.BytesPerTexel(tex.Format())
	alignedRowBytes := alignUp(rowBytes, c.alignment)
	size := uint64(alignedRowBytes) * uint64(height)

	buffer, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: tex.Label() + " readback",
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("read texture %q: create staging buffer: %w", tex.Label(), err)
	}

	defer buffer.Release()

	err = c.ScheduleLabeled("Readback", func(enc *Encoder) {
		enc.CopyTextureToBuffer(tex, mipLevel, buffer, alignedRowBytes)
	})
	if err != nil {
		return nil, fmt.Errorf("read texture %q: %w", tex.Label(), err)
	}

	padded, err := buffer.MapRead(ctx, 0, size)
	if err != nil {
		return nil, fmt.Errorf("read texture %q: map staging buffer: %w", tex.Label(), err)
	}

	return stripRows(padded, rowBytes, height, alignedRowBytes), nil
}
