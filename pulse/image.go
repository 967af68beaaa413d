package pulse

import (
	"bytes"
	"fmt"
	"image"

	// decoders for TextureFromImageData
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/image/draw"
)

// Image is a decoded image in CPU memory. Row y starts at Pix[y*Stride].
type Image struct {
	Width  uint32
	Height uint32
	Layout ChannelLayout

	// Stride is the distance between two rows in bytes. Zero means the rows
	// are tightly packed.
	Stride int

	Pix []byte
}

// RowBytes returns the number of bytes of pixel data in one row.
func (img Image) RowBytes() int {
	return int(img.Width) * img.Layout.BytesPerPixel()
}

// Validate normalizes the Stride and checks that Pix holds all rows.
func (img *Image) Validate() error {
	if img.Layout.Channels() == 0 {
		return fmt.Errorf("invalid channel layout %d", img.Layout)
	}

	if img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("image size %dx%d is empty", img.Width, img.Height)
	}

	rowBytes := img.RowBytes()

	if img.Stride == 0 {
		img.Stride = rowBytes
	}

	if img.Stride < rowBytes {
		return fmt.Errorf("stride %d is smaller than a row of %d bytes", img.Stride, rowBytes)
	}

	required := img.Stride*int(img.Height-1) + rowBytes
	if len(img.Pix) < required {
		return fmt.Errorf("pixel buffer of %d bytes is too short for a %dx%d %s image, need %d bytes",
			len(img.Pix), img.Width, img.Height, img.Layout, required)
	}

	return nil
}

// ImageFromGo adapts an image from the standard library. Gray, Gray16, RGBA,
// NRGBA, RGBA64 and NRGBA64 images share their pixel memory with the result,
// all other image types are converted to NRGBA first.
//
// Note that image.RGBA and image.RGBA64 hold alpha premultiplied colors which
// are uploaded unchanged.
func ImageFromGo(src image.Image) Image {
	bounds := src.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())

	wrap := func(layout ChannelLayout, pix []byte, stride, offset int) Image {
		return Image{Width: width, Height: height, Layout: layout, Stride: stride, Pix: pix[offset:]}
	}

	if bounds.Empty() {
		return Image{Layout: RGBA8}
	}

	switch src := src.(type) {
	case *image.Gray:
		return wrap(Gray8, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y))
	case *image.Gray16:
		return wrap(Gray16, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y))
	case *image.RGBA:
		return wrap(RGBA8, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y))
	case *image.NRGBA:
		return wrap(RGBA8, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y))
	case *image.RGBA64:
		return wrap(RGBA16, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y))
	case *image.NRGBA64:
		return wrap(RGBA16, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y))
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	return wrap(RGBA8, nrgba.Pix, nrgba.Stride, 0)
}

// DecodeImage decodes an encoded image using the formats registered with the
// image package. Decoder errors are returned unchanged.
func DecodeImage(data []byte) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, err
	}

	return ImageFromGo(src), nil
}
