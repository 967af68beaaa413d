package pulse

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

const defaultEncoderLabel = "Command Encoder"

// Schedule creates a command encoder, lets record fill it and submits the
// resulting command buffer to the queue. Every call submits exactly one
// command buffer, even if record does not encode any command.
//
// If record panics, the encoder is released without submitting anything
// and the panic propagates. Schedule does not wait for the GPU.
func (c *Context) Schedule(record func(enc *Encoder)) error {
	return c.ScheduleLabeled(defaultEncoderLabel, record)
}

// ScheduleLabeled is Schedule with a label for the encoder and command buffer.
func (c *Context) ScheduleLabeled(label string, record func(enc *Encoder)) error {
	c.checkAlive()

	raw, err := c.device.CreateCommandEncoder(label)
	if err != nil {
		return fmt.Errorf("create command encoder %q: %w", label, err)
	}

	encGuard := NewReleaseGuard(raw)
	defer encGuard.Release()

	enc := &Encoder{ctx: c, raw: raw}

	func() {
		defer enc.close()
		record(enc)
	}()

	if enc.err != nil {
		return fmt.Errorf("record commands into %q: %w", label, enc.err)
	}

	// encode into a command buffer
	buf, err := raw.Finish(label)
	if err != nil {
		return fmt.Errorf("finish command encoder %q: %w", label, err)
	}

	defer buf.Release()

	if err := c.queue.Submit(buf); err != nil {
		return fmt.Errorf("submit %q: %w", label, err)
	}

	Logger().Debug("Commands submitted", slogLabel(label), "commands", enc.commands)

	return nil
}

// Encoder records commands for a single Schedule call. It must not be used
// after the call returned.
type Encoder struct {
	ctx      *Context
	raw      hal.CommandEncoder
	commands int
	closed   bool

	// first recording error
	err error
}

func (e *Encoder) close() {
	e.closed = true
}

func (e *Encoder) checkOpen() {
	if e.closed {
		panic("pulse: Encoder used after its Schedule call returned")
	}
}

func (e *Encoder) recorded(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}

	e.commands++
}

// Commands returns the number of commands recorded through this Encoder.
func (e *Encoder) Commands() int {
	return e.commands
}

// Raw returns the backend encoder to record commands this package does not
// cover, e.g. render passes. Use webgpu.RawCommandEncoder for the wgpu type.
func (e *Encoder) Raw() hal.CommandEncoder {
	e.checkOpen()
	return e.raw
}

// CopyTextureToTexture copies mip level 0 of src into mip level 0 of dst.
// Both textures need the same size and format.
func (e *Encoder) CopyTextureToTexture(src, dst *Texture) {
	e.checkOpen()

	if src.Width() != dst.Width() || src.Height() != dst.Height() {
		e.recorded(fmt.Errorf("copy %dx%d texture %q into %dx%d texture %q",
			src.Width(), src.Height(), src.label, dst.Width(), dst.Height(), dst.label))
		return
	}

	e.recorded(e.raw.CopyTextureToTexture(
		&hal.ImageCopyTexture{Texture: src.Texture(), Aspect: gputypes.TextureAspectAll},
		&hal.ImageCopyTexture{Texture: dst.Texture(), Aspect: gputypes.TextureAspectAll},
		&gputypes.Extent3D{Width: src.Width(), Height: src.Height(), DepthOrArrayLayers: 1},
	))
}

// CopyTextureToBuffer copies a mip level of the texture into the buffer.
// bytesPerRow must be a multiple of the device copy row alignment.
func (e *Encoder) CopyTextureToBuffer(src *Texture, mipLevel uint32, dst hal.Buffer, bytesPerRow uint32) {
	e.checkOpen()

	width, height := hal.MipSize(src.Width(), src.Height(), mipLevel)

	e.recorded(e.raw.CopyTextureToBuffer(
		&hal.ImageCopyTexture{Texture: src.Texture(), MipLevel: mipLevel, Aspect: gputypes.TextureAspectAll},
		&hal.ImageCopyBuffer{Buffer: dst, Layout: hal.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: height}},
		&gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	))
}

// CopyBufferToTexture copies texels from the buffer into a mip level of the texture.
// bytesPerRow must be a multiple of the device copy row alignment.
func (e *Encoder) CopyBufferToTexture(src hal.Buffer, bytesPerRow uint32, dst *Texture, mipLevel uint32) {
	e.checkOpen()

	width, height := hal.MipSize(dst.Width(), dst.Height(), mipLevel)

	e.recorded(e.raw.CopyBufferToTexture(
		&hal.ImageCopyBuffer{Buffer: src, Layout: hal.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: height}},
		&hal.ImageCopyTexture{Texture: dst.Texture(), MipLevel: mipLevel, Aspect: gputypes.TextureAspectAll},
		&gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	))
}

type Releaser interface {
	Release()
}

// ReleaseGuard releases its delegate unless Keep was called.
type ReleaseGuard struct {
	delegate Releaser
}

func NewReleaseGuard(delegate Releaser) ReleaseGuard {
	return ReleaseGuard{delegate: delegate}
}

func (r *ReleaseGuard) Keep() {
	r.delegate = nil
}

func (r *ReleaseGuard) Release() {
	if r.delegate != nil {
		r.delegate.Release()
		r.delegate = nil
	}
}
