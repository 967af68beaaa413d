package soft

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

// Queue executes command buffers in submission order.
type Queue struct {
	device *Device

	mu          sync.Mutex
	submissions int
	buffers     int
	commands    int
	writes      int
	labels      []string
}

var _ hal.Queue = (*Queue)(nil)

// Submissions returns the number of successful Submit calls.
func (q *Queue) Submissions() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submissions
}

// CommandBuffers returns the number of command buffers executed.
func (q *Queue) CommandBuffers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buffers
}

// Commands returns the number of commands executed over all command buffers.
func (q *Queue) Commands() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.commands
}

// TextureWrites returns the number of successful WriteTexture calls.
func (q *Queue) TextureWrites() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.writes
}

// Labels returns the labels of all executed command buffers in order.
func (q *Queue) Labels() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.labels...)
}

func (q *Queue) Submit(buffers ...hal.CommandBuffer) error {
	if err := q.device.checkAlive(); err != nil {
		return err
	}

	cmdBuffers := make([]*CommandBuffer, 0, len(buffers))
	for _, buffer := range buffers {
		cmdBuffer, ok := buffer.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: foreign command buffer %T", ErrValidation, buffer)
		}

		if cmdBuffer.device != q.device {
			return fmt.Errorf("%w: command buffer %q belongs to a different device", ErrValidation, cmdBuffer.label)
		}

		cmdBuffers = append(cmdBuffers, cmdBuffer)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, cmdBuffer := range cmdBuffers {
		if cmdBuffer.submitted.Load() {
			return fmt.Errorf("%w: command buffer %q was already submitted", ErrValidation, cmdBuffer.label)
		}
	}

	for _, cmdBuffer := range cmdBuffers {
		cmdBuffer.submitted.Store(true)

		for _, command := range cmdBuffer.commands {
			command()
		}

		q.buffers++
		q.commands += len(cmdBuffer.commands)
		q.labels = append(q.labels, cmdBuffer.label)
	}

	q.submissions++

	return nil
}

func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.TextureDataLayout, size *gputypes.Extent3D) error {
	if err := q.device.checkAlive(); err != nil {
		return err
	}

	texture, ok := dst.Texture.(*Texture)
	if !ok {
		return fmt.Errorf("%w: foreign texture %T", ErrValidation, dst.Texture)
	}

	if texture.desc.Usage&gputypes.TextureUsageCopyDst == 0 {
		return fmt.Errorf("%w: texture %q lacks CopyDst usage", ErrValidation, texture.desc.Label)
	}

	if _, _, err := texture.region(dst.MipLevel, dst.Origin, size); err != nil {
		return err
	}

	required, err := validateLayout(texture.desc.Format, *layout, size)
	if err != nil {
		return err
	}

	if uint64(len(data)) < required {
		return fmt.Errorf("%w: %d bytes of data for a copy that needs %d", ErrValidation, len(data), required)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	texture.writeRows(dst.MipLevel, dst.Origin, size, data, *layout)
	q.writes++

	return nil
}

// Release does nothing, the queue is owned by the device.
func (q *Queue) Release() {}

type CommandBuffer struct {
	device    *Device
	label     string
	commands  []func()
	submitted atomic.Bool
}

func (b *CommandBuffer) Label() string {
	return b.label
}

func (b *CommandBuffer) Release() {}
