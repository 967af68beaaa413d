package soft

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

// CommandEncoder validates commands while recording and defers their
// execution to Queue.Submit.
type CommandEncoder struct {
	device   *Device
	label    string
	commands []func()
	finished bool
	released bool

	// first recording error, reported by Finish
	err error
}

var _ hal.CommandEncoder = (*CommandEncoder)(nil)

func (e *CommandEncoder) Released() bool {
	return e.released
}

func (e *CommandEncoder) record(command func(), err error) error {
	if e.finished {
		err = fmt.Errorf("%w: encoder %q already finished", ErrValidation, e.label)
	}

	if err != nil {
		if e.err == nil {
			e.err = err
		}

		return err
	}

	e.commands = append(e.commands, command)
	return nil
}

func (e *CommandEncoder) CopyBufferToTexture(src *hal.ImageCopyBuffer, dst *hal.ImageCopyTexture, size *gputypes.Extent3D) error {
	buffer, texture, err := e.validateBufferCopy(src, dst, size, gputypes.BufferUsageCopySrc, gputypes.TextureUsageCopyDst)
	if err != nil {
		return e.record(nil, err)
	}

	return e.record(func() {
		buffer.mu.Lock()
		defer buffer.mu.Unlock()
		texture.writeRows(dst.MipLevel, dst.Origin, size, buffer.data, src.Layout)
	}, nil)
}

func (e *CommandEncoder) CopyTextureToBuffer(src *hal.ImageCopyTexture, dst *hal.ImageCopyBuffer, size *gputypes.Extent3D) error {
	buffer, texture, err := e.validateBufferCopy(dst, src, size, gputypes.BufferUsageCopyDst, gputypes.TextureUsageCopySrc)
	if err != nil {
		return e.record(nil, err)
	}

	return e.record(func() {
		buffer.mu.Lock()
		defer buffer.mu.Unlock()
		texture.readRows(src.MipLevel, src.Origin, size, buffer.data, dst.Layout)
	}, nil)
}

func (e *CommandEncoder) CopyTextureToTexture(src, dst *hal.ImageCopyTexture, size *gputypes.Extent3D) error {
	srcTexture, err := e.texture(src.Texture, gputypes.TextureUsageCopySrc)
	if err != nil {
		return e.record(nil, err)
	}

	dstTexture, err := e.texture(dst.Texture, gputypes.TextureUsageCopyDst)
	if err != nil {
		return e.record(nil, err)
	}

	if srcTexture.desc.Format != dstTexture.desc.Format {
		return e.record(nil, fmt.Errorf("%w: copy between formats %v and %v",
			ErrValidation, srcTexture.desc.Format, dstTexture.desc.Format))
	}

	if srcTexture == dstTexture && src.MipLevel == dst.MipLevel {
		return e.record(nil, fmt.Errorf("%w: copy within the same mip level of texture %q",
			ErrValidation, srcTexture.desc.Label))
	}

	if _, _, err := srcTexture.region(src.MipLevel, src.Origin, size); err != nil {
		return e.record(nil, err)
	}

	if _, _, err := dstTexture.region(dst.MipLevel, dst.Origin, size); err != nil {
		return e.record(nil, err)
	}

	return e.record(func() {
		// stage through a linear buffer, the textures might share a lock
		layout := hal.TextureDataLayout{
			BytesPerRow: size.Width * hal.BytesPerTexel(srcTexture.desc.Format),
		}

		staging := make([]byte, int(layout.BytesPerRow)*int(size.Height))
		srcTexture.readRows(src.MipLevel, src.Origin, size, staging, layout)
		dstTexture.writeRows(dst.MipLevel, dst.Origin, size, staging, layout)
	}, nil)
}

func (e *CommandEncoder) Finish(label string) (hal.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("%w: encoder %q already finished", ErrValidation, e.label)
	}

	e.finished = true

	if e.err != nil {
		return nil, fmt.Errorf("encoder %q is invalid: %w", e.label, e.err)
	}

	if label == "" {
		label = e.label
	}

	return &CommandBuffer{device: e.device, label: label, commands: e.commands}, nil
}

func (e *CommandEncoder) Release() {
	e.released = true
}

func (e *CommandEncoder) texture(texture hal.Texture, usage gputypes.TextureUsage) (*Texture, error) {
	softTexture, ok := texture.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: foreign texture %T", ErrValidation, texture)
	}

	if softTexture.device != e.device {
		return nil, fmt.Errorf("%w: texture %q belongs to a different device", ErrValidation, softTexture.desc.Label)
	}

	if softTexture.desc.Usage&usage == 0 {
		return nil, fmt.Errorf("%w: texture %q lacks usage %v", ErrValidation, softTexture.desc.Label, usage)
	}

	return softTexture, nil
}

func (e *CommandEncoder) validateBufferCopy(
	bufferCopy *hal.ImageCopyBuffer,
	textureCopy *hal.ImageCopyTexture,
	size *gputypes.Extent3D,
	bufferUsage gputypes.BufferUsage,
	textureUsage gputypes.TextureUsage,
) (*Buffer, *Texture, error) {
	buffer, ok := bufferCopy.Buffer.(*Buffer)
	if !ok {
		return nil, nil, fmt.Errorf("%w: foreign buffer %T", ErrValidation, bufferCopy.Buffer)
	}

	if buffer.released.Load() {
		return nil, nil, fmt.Errorf("%w: buffer %q was released", ErrValidation, buffer.desc.Label)
	}

	if buffer.desc.Usage&bufferUsage == 0 {
		return nil, nil, fmt.Errorf("%w: buffer %q lacks usage %v", ErrValidation, buffer.desc.Label, bufferUsage)
	}

	texture, err := e.texture(textureCopy.Texture, textureUsage)
	if err != nil {
		return nil, nil, err
	}

	if _, _, err := texture.region(textureCopy.MipLevel, textureCopy.Origin, size); err != nil {
		return nil, nil, err
	}

	required, err := validateLayout(texture.desc.Format, bufferCopy.Layout, size)
	if err != nil {
		return nil, nil, err
	}

	if required > buffer.desc.Size {
		return nil, nil, fmt.Errorf("%w: copy needs %d bytes but buffer %q has %d",
			ErrValidation, required, buffer.desc.Label, buffer.desc.Size)
	}

	return buffer, texture, nil
}
