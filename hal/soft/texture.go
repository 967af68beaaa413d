package soft

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/hal"
)

type Texture struct {
	device   *Device
	desc     hal.TextureDescriptor
	mips     uint32
	released atomic.Bool

	mu sync.Mutex

	// tightly packed texels for each mip level
	levels [][]byte
}

var _ hal.Texture = (*Texture)(nil)

func (t *Texture) Label() string                  { return t.desc.Label }
func (t *Texture) Width() uint32                  { return t.desc.Size.Width }
func (t *Texture) Height() uint32                 { return t.desc.Size.Height }
func (t *Texture) MipLevelCount() uint32          { return t.mips }
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *Texture) Usage() gputypes.TextureUsage   { return t.desc.Usage }

// Texels returns a copy of the tightly packed texels of the mip level.
func (t *Texture) Texels(level uint32) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.levels[level]...)
}

func (t *Texture) Released() bool {
	return t.released.Load()
}

func (t *Texture) CreateView(desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if t.released.Load() {
		return nil, fmt.Errorf("%w: texture %q was released", ErrValidation, t.desc.Label)
	}

	base, count := uint32(0), t.mips
	if desc != nil {
		base = desc.BaseMipLevel
		if desc.MipLevelCount != 0 {
			count = desc.MipLevelCount
		} else {
			count = t.mips - min(base, t.mips)
		}
	}

	if count == 0 || base+count > t.mips {
		return nil, fmt.Errorf("%w: view of mip levels [%d, %d) outside of texture with %d levels",
			ErrValidation, base, base+count, t.mips)
	}

	return &TextureView{texture: t, baseMipLevel: base, mipLevelCount: count}, nil
}

func (t *Texture) Release() {
	if t.released.CompareAndSwap(false, true) {
		t.device.track(&t.device.textures, -1)
	}
}

// region validates that a copy of the given size at the origin fits into the
// mip level and returns the size of that level.
func (t *Texture) region(level uint32, origin gputypes.Origin3D, size *gputypes.Extent3D) (uint32, uint32, error) {
	if t.released.Load() {
		return 0, 0, fmt.Errorf("%w: texture %q was released", ErrValidation, t.desc.Label)
	}

	if level >= t.mips {
		return 0, 0, fmt.Errorf("%w: mip level %d out of range, texture has %d levels", ErrValidation, level, t.mips)
	}

	w, h := hal.MipSize(t.desc.Size.Width, t.desc.Size.Height, level)
	if origin.X+size.Width > w || origin.Y+size.Height > h {
		return 0, 0, fmt.Errorf("%w: copy region %dx%d at (%d, %d) exceeds mip level %d of size %dx%d",
			ErrValidation, size.Width, size.Height, origin.X, origin.Y, level, w, h)
	}

	if origin.Z != 0 || size.DepthOrArrayLayers > 1 {
		return 0, 0, fmt.Errorf("%w: copies between array layers are not supported", ErrValidation)
	}

	return w, h, nil
}

// writeRows copies rows from a linear layout into the texture.
func (t *Texture) writeRows(level uint32, origin gputypes.Origin3D, size *gputypes.Extent3D, src []byte, layout hal.TextureDataLayout) {
	bpt := int(hal.BytesPerTexel(t.desc.Format))
	w, _ := hal.MipSize(t.desc.Size.Width, t.desc.Size.Height, level)

	t.mu.Lock()
	defer t.mu.Unlock()

	texels := t.levels[level]
	rowBytes := int(size.Width) * bpt
	for y := range int(size.Height) {
		srcOffset := int(layout.Offset) + y*int(layout.BytesPerRow)
		dstOffset := ((int(origin.Y)+y)*int(w) + int(origin.X)) * bpt
		copy(texels[dstOffset:dstOffset+rowBytes], src[srcOffset:srcOffset+rowBytes])
	}
}

// readRows copies rows from the texture into a linear layout.
func (t *Texture) readRows(level uint32, origin gputypes.Origin3D, size *gputypes.Extent3D, dst []byte, layout hal.TextureDataLayout) {
	bpt := int(hal.BytesPerTexel(t.desc.Format))
	w, _ := hal.MipSize(t.desc.Size.Width, t.desc.Size.Height, level)

	t.mu.Lock()
	defer t.mu.Unlock()

	texels := t.levels[level]
	rowBytes := int(size.Width) * bpt
	for y := range int(size.Height) {
		srcOffset := ((int(origin.Y)+y)*int(w) + int(origin.X)) * bpt
		dstOffset := int(layout.Offset) + y*int(layout.BytesPerRow)
		copy(dst[dstOffset:dstOffset+rowBytes], texels[srcOffset:srcOffset+rowBytes])
	}
}

type TextureView struct {
	texture       *Texture
	baseMipLevel  uint32
	mipLevelCount uint32
	released      atomic.Bool
}

func (v *TextureView) Texture() *Texture {
	return v.texture
}

func (v *TextureView) MipLevels() (base, count uint32) {
	return v.baseMipLevel, v.mipLevelCount
}

func (v *TextureView) Released() bool {
	return v.released.Load()
}

func (v *TextureView) Release() {
	v.released.Store(true)
}

// validateLayout checks a linear texel layout against the copy alignment
// rules and returns the number of bytes the copy touches.
func validateLayout(format gputypes.TextureFormat, layout hal.TextureDataLayout, size *gputypes.Extent3D) (uint64, error) {
	rowBytes := uint64(size.Width) * uint64(hal.BytesPerTexel(format))

	if layout.BytesPerRow%hal.DefaultCopyRowAlignment != 0 {
		return 0, fmt.Errorf("%w: BytesPerRow %d is not a multiple of %d",
			ErrValidation, layout.BytesPerRow, hal.DefaultCopyRowAlignment)
	}

	if uint64(layout.BytesPerRow) < rowBytes {
		return 0, fmt.Errorf("%w: BytesPerRow %d is smaller than a row of %d bytes",
			ErrValidation, layout.BytesPerRow, rowBytes)
	}

	if layout.RowsPerImage != 0 && layout.RowsPerImage < size.Height {
		return 0, fmt.Errorf("%w: RowsPerImage %d is smaller than the copy height %d",
			ErrValidation, layout.RowsPerImage, size.Height)
	}

	if size.Height == 0 || size.Width == 0 {
		return layout.Offset, nil
	}

	return layout.Offset + uint64(layout.BytesPerRow)*uint64(size.Height-1) + rowBytes, nil
}
