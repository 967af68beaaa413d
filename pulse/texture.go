package pulse

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/oliverbestmann/gpuctx/glm"
	"github.com/oliverbestmann/gpuctx/hal"
)

// Texture bundles a texture with a view over the whole resource and a
// sampler. Samplers are shared through the Context's sampler cache and stay
// alive until every texture using them is released.
type Texture struct {
	ctx *Context

	texture hal.Texture
	view    hal.TextureView
	sampler *cachedSampler

	label  string
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage
	mips   uint32
	region Rectangle2u

	released atomic.Bool
}

type TextureOptions struct {
	// Format of the texture, defaults to gputypes.TextureFormatRGBA8Unorm.
	Format gputypes.TextureFormat
	Label  string

	// GenerateMips builds and uploads a full mip chain.
	GenerateMips bool

	// Readable adds CopySrc usage, required for Context.ReadTexture.
	Readable bool

	// Sampler defaults to DefaultSamplerDescriptor.
	Sampler *hal.SamplerDescriptor
}

// TextureFromImage uploads the image into a new texture of the given format
// with a single mip level.
func (c *Context) TextureFromImage(img Image, format gputypes.TextureFormat, label string) (*Texture, error) {
	return c.TextureFromImageWithOptions(img, TextureOptions{Format: format, Label: label})
}

// TextureFromImageWithOptions uploads the image into a new texture. The
// pixels are converted into the texture format, see CanConvert for the
// supported combinations.
func (c *Context) TextureFromImageWithOptions(img Image, opts TextureOptions) (*Texture, error) {
	c.checkAlive()

	const op = "texture from image"

	if opts.Format == gputypes.TextureFormatUndefined {
		opts.Format = gputypes.TextureFormatRGBA8Unorm
	}

	if !CanConvert(img.Layout, opts.Format) {
		return nil, &Error{
			Kind:   UnsupportedFormatConversion,
			Op:     op,
			Label:  opts.Label,
			Layout: img.Layout,
			Format: opts.Format,
		}
	}

	if err := c.checkTextureSize(img.Width, img.Height); err != nil {
		return nil, &Error{Kind: TextureCreationFailed, Op: op, Label: opts.Label, Err: err}
	}

	texels, err := EncodeTexels(img, opts.Format)
	if err != nil {
		var pulseErr *Error
		if errors.As(err, &pulseErr) {
			pulseErr.Op, pulseErr.Label = op, opts.Label
		}

		return nil, err
	}

	return c.createTexture(op, texels, img.Width, img.Height, opts)
}

// TextureWithData creates a texture from tightly packed texels that are
// already in the target format.
func (c *Context) TextureWithData(data []byte, width, height uint32, format gputypes.TextureFormat, label string) (*Texture, error) {
	c.checkAlive()

	const op = "texture with data"

	bpt := hal.BytesPerTexel(format)
	if bpt == 0 || formatChannels(format) == 0 {
		return nil, &Error{Kind: TextureCreationFailed, Op: op, Label: label,
			Err: fmt.Errorf("format %s can not be uploaded", FormatName(format))}
	}

	if err := c.checkTextureSize(width, height); err != nil {
		return nil, &Error{Kind: TextureCreationFailed, Op: op, Label: label, Err: err}
	}

	required := int(width) * int(height) * int(bpt)
	if len(data) < required {
		return nil, &Error{Kind: TextureCreationFailed, Op: op, Label: label,
			Err: fmt.Errorf("%d bytes of data for a %dx%d %s texture, need %d bytes",
				len(data), width, height, FormatName(format), required)}
	}

	return c.createTexture(op, data[:required], width, height, TextureOptions{Format: format, Label: label})
}

// TextureFromColor creates a 1x1 texture filled with the color. For sRGB
// formats the color is encoded into sRGB first.
func (c *Context) TextureFromColor(color Color, format gputypes.TextureFormat, label string) (*Texture, error) {
	c.checkAlive()

	if format == gputypes.TextureFormatRGBA32Float {
		return c.TextureWithData(color.float32Bytes(), 1, 1, format, label)
	}

	img := Image{Width: 1, Height: 1, Layout: RGBA16, Pix: color.rgba16Bytes(IsSrgb(format))}
	return c.TextureFromImage(img, format, label)
}

// TextureFromImageData decodes an encoded image (png, jpeg, gif, bmp, tiff or
// webp) and uploads it. Decoder failures are reported as ImageDecodeFailed
// wrapping the decoder error.
func (c *Context) TextureFromImageData(data []byte, opts TextureOptions) (*Texture, error) {
	c.checkAlive()

	img, err := DecodeImage(data)
	if err != nil {
		return nil, &Error{Kind: ImageDecodeFailed, Op: "texture from image data", Label: opts.Label, Err: err}
	}

	return c.TextureFromImageWithOptions(img, opts)
}

// DepthTexture creates a Depth32Float texture usable as render attachment
// with a comparison sampler.
func (c *Context) DepthTexture(width, height uint32, label string) (*Texture, error) {
	c.checkAlive()

	const op = "depth texture"

	if err := c.checkTextureSize(width, height); err != nil {
		return nil, &Error{Kind: TextureCreationFailed, Op: op, Label: label, Err: err}
	}

	sampler := DepthSamplerDescriptor
	sampler.Label = label

	return c.newTexture(op, &hal.TextureDescriptor{
		Label:         label,
		Size:          gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatDepth32Float,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	}, sampler)
}

func (c *Context) checkTextureSize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("texture size %dx%d is empty", width, height)
	}

	maxDim := c.limits.MaxTextureDimension2D
	if width > maxDim || height > maxDim {
		return fmt.Errorf("texture size %dx%d exceeds the device limit of %d", width, height, maxDim)
	}

	return nil
}

// createTexture creates the texture and uploads the tightly packed texels
// into mip level 0, plus the generated levels if requested.
func (c *Context) createTexture(op string, texels []byte, width, height uint32, opts TextureOptions) (*Texture, error) {
	usage := gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
	if opts.Readable {
		usage |= gputypes.TextureUsageCopySrc
	}

	mips := uint32(1)
	if opts.GenerateMips {
		mips = mipLevelCount(width, height)
	}

	sampler := DefaultSamplerDescriptor
	if opts.Sampler != nil {
		sampler = *opts.Sampler
	}

	t, err := c.newTexture(op, &hal.TextureDescriptor{
		Label:         opts.Label,
		Size:          gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        opts.Format,
		Usage:         usage,
	}, sampler)

	if err != nil {
		return nil, err
	}

	guard := NewReleaseGuard(t)
	defer guard.Release()

	w, h := width, height
	for level := range mips {
		if level > 0 {
			texels, w, h = downsample(texels, w, h, opts.Format)
		}

		if err := t.upload(level, glm.Vec2u{}, texels, w, h); err != nil {
			return nil, &Error{Kind: TextureCreationFailed, Op: op, Label: opts.Label, Err: err}
		}
	}

	guard.Keep()

	Logger().Debug("Texture uploaded",
		slogLabel(opts.Label),
		slog.String("format", FormatName(opts.Format)),
		slog.Uint64("width", uint64(width)),
		slog.Uint64("height", uint64(height)),
		slog.Uint64("mips", uint64(mips)),
	)

	return t, nil
}

// newTexture creates texture, view and sampler, releasing everything
// already created on failure.
func (c *Context) newTexture(op string, desc *hal.TextureDescriptor, samplerDesc hal.SamplerDescriptor) (*Texture, error) {
	fail := func(err error) error {
		return &Error{Kind: TextureCreationFailed, Op: op, Label: desc.Label, Err: err}
	}

	texture, err := c.device.CreateTexture(desc)
	if err != nil {
		return nil, fail(fmt.Errorf("create texture: %w", err))
	}

	textureGuard := NewReleaseGuard(texture)
	defer textureGuard.Release()

	// now create a default texture view
	view, err := texture.CreateView(nil)
	if err != nil {
		return nil, fail(fmt.Errorf("create texture view: %w", err))
	}

	viewGuard := NewReleaseGuard(view)
	defer viewGuard.Release()

	sampler, err := c.acquireSampler(samplerDesc)
	if err != nil {
		return nil, fail(err)
	}

	textureGuard.Keep()
	viewGuard.Keep()

	return &Texture{
		ctx:     c,
		texture: texture,
		view:    view,
		sampler: sampler,
		label:   desc.Label,
		format:  desc.Format,
		usage:   desc.Usage,
		mips:    max(1, desc.MipLevelCount),
		region:  RectangleFromXYWH(0, 0, desc.Size.Width, desc.Size.Height),
	}, nil
}

// upload writes tightly packed texels into a mip level, padding the rows to
// the copy row alignment of the device.
func (t *Texture) upload(level uint32, origin glm.Vec2u, texels []byte, width, height uint32) error {
	c := t.ctx

	rowBytes := width * hal.BytesPerTexel(t.format)
	alignedRowBytes := alignUp(rowBytes, c.alignment)

	data := padRows(texels, rowBytes, height, alignedRowBytes)

	dest := &hal.ImageCopyTexture{
		Texture:  t.texture,
		MipLevel: level,
		Origin:   gputypes.Origin3D{X: origin[0], Y: origin[1]},
		Aspect:   gputypes.TextureAspectAll,
	}

	layout := &hal.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  alignedRowBytes,
		RowsPerImage: height,
	}

	size := &gputypes.Extent3D{
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
	}

	// send data to the gpu
	if err := c.queue.WriteTexture(dest, data, layout, size); err != nil {
		return fmt.Errorf("write mip level %d: %w", level, err)
	}

	return nil
}

// WriteRegion uploads the image into a region of mip level 0. The image must
// have the size of the region and is converted like in TextureFromImage.
// Generated mip levels are not updated.
func (t *Texture) WriteRegion(region Rectangle2u, img Image) error {
	t.checkAlive()

	const op = "write region"

	if !t.region.Contains(region) {
		return &Error{Kind: TextureCreationFailed, Op: op, Label: t.label,
			Err: fmt.Errorf("target rect %s not in texture region %s", region, t.region)}
	}

	if region.Width() != img.Width || region.Height() != img.Height {
		return &Error{Kind: TextureCreationFailed, Op: op, Label: t.label,
			Err: fmt.Errorf("image of size %dx%d does not fill region %s", img.Width, img.Height, region)}
	}

	texels, err := EncodeTexels(img, t.format)
	if err != nil {
		var pulseErr *Error
		if errors.As(err, &pulseErr) {
			pulseErr.Op, pulseErr.Label = op, t.label
		}

		return err
	}

	if err := t.upload(0, region.Min, texels, img.Width, img.Height); err != nil {
		return &Error{Kind: TextureCreationFailed, Op: op, Label: t.label, Err: err}
	}

	return nil
}

func (t *Texture) checkAlive() {
	t.ctx.checkAlive()

	if t.released.Load() {
		panic(fmt.Sprintf("pulse: texture %q used after Release", t.label))
	}
}

// Texture returns the backend texture. Use webgpu.RawTexture for the wgpu type.
func (t *Texture) Texture() hal.Texture {
	t.checkAlive()
	return t.texture
}

// View returns the default view over all mip levels.
func (t *Texture) View() hal.TextureView {
	t.checkAlive()
	return t.view
}

// Sampler returns the sampler. It may be shared with other textures and
// must not be released.
func (t *Texture) Sampler() hal.Sampler {
	t.checkAlive()
	return t.sampler.sampler
}

func (t *Texture) Label() string {
	return t.label
}

func (t *Texture) Format() gputypes.TextureFormat {
	return t.format
}

func (t *Texture) Usage() gputypes.TextureUsage {
	return t.usage
}

func (t *Texture) MipLevelCount() uint32 {
	return t.mips
}

func (t *Texture) Width() uint32 {
	return t.region.Width()
}

func (t *Texture) Height() uint32 {
	return t.region.Height()
}

func (t *Texture) Size() glm.Vec2u {
	return t.region.Size()
}

// Release releases view and texture and drops the reference on the
// sampler. Calling Release more than once has no effect.
func (t *Texture) Release() {
	t.ctx.checkAlive()

	if t.released.CompareAndSwap(false, true) {
		t.view.Release()
		t.texture.Release()
		t.ctx.releaseSampler(t.sampler)
	}
}
