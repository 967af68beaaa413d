package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/oliverbestmann/gpuctx/hal"
	"github.com/oliverbestmann/gpuctx/pulse"
)

// Probe resolves a context on the instance, prints what was selected and
// uploads an image as a texture.
func Probe(ctx context.Context, out io.Writer, instance hal.Instance, surface hal.Surface, cfg Config) error {
	power, err := cfg.PowerPreference()
	if err != nil {
		return err
	}

	format, ok := pulse.ParseFormat(cfg.Format)
	if !ok {
		return fmt.Errorf("unknown texture format %q", cfg.Format)
	}

	gpu, err := pulse.Resolve(ctx, instance, &pulse.ResolveOptions{
		Surface:              surface,
		PowerPreference:      power,
		ForceFallbackAdapter: cfg.Fallback,
		Label:                "gpuprobe",
	})
	if err != nil {
		return err
	}

	defer gpu.Release()

	info := gpu.AdapterInfo()
	limits := gpu.Limits()

	fmt.Fprintf(out, "adapter:  %s\n", info.Name)
	fmt.Fprintf(out, "backend:  %s\n", info.Backend)
	fmt.Fprintf(out, "type:     %v\n", info.Type)
	fmt.Fprintf(out, "max texture size: %d\n", limits.MaxTextureDimension2D)
	fmt.Fprintf(out, "max buffer size:  %d\n", limits.MaxBufferSize)

	if surface != nil {
		fmt.Fprintln(out, "surface:  compatible")
	}

	img, err := loadImage(cfg.Image)
	if err != nil {
		return err
	}

	tex, err := gpu.TextureFromImageWithOptions(img, pulse.TextureOptions{
		Format:       format,
		Label:        "probe",
		GenerateMips: cfg.Mips,
		Readable:     cfg.Verify,
	})
	if err != nil {
		return err
	}

	defer tex.Release()

	fmt.Fprintf(out, "texture:  %dx%d %s, %d mip levels\n",
		tex.Width(), tex.Height(), pulse.FormatName(tex.Format()), tex.MipLevelCount())

	if !cfg.Verify {
		return nil
	}

	expected, err := pulse.EncodeTexels(img, format)
	if err != nil {
		return err
	}

	actual, err := gpu.ReadTexture(ctx, tex, 0)
	if err != nil {
		return fmt.Errorf("read texture: %w", err)
	}

	if !bytes.Equal(expected, actual) {
		return fmt.Errorf("readback differs from the uploaded texels at byte %d", firstDifference(expected, actual))
	}

	fmt.Fprintln(out, "verify:   ok")

	return nil
}

func loadImage(path string) (pulse.Image, error) {
	if path == "" {
		return testPattern(64, 48), nil
	}

	slog.Debug("Loading image", slog.String("path", path))

	buf, err := os.ReadFile(path)
	if err != nil {
		return pulse.Image{}, fmt.Errorf("read image: %w", err)
	}

	img, err := pulse.DecodeImage(buf)
	if err != nil {
		return pulse.Image{}, fmt.Errorf("decode image %q: %w", path, err)
	}

	return img, nil
}

// testPattern returns a gradient with a checkerboard in the blue channel.
func testPattern(width, height uint32) pulse.Image {
	pix := make([]byte, 0, width*height*4)

	for y := range height {
		for x := range width {
			var blue byte
			if (x/8+y/8)%2 == 0 {
				blue = 0xff
			}

			pix = append(pix, byte(x*255/(width-1)), byte(y*255/(height-1)), blue, 0xff)
		}
	}

	return pulse.Image{
		Width:  width,
		Height: height,
		Layout: pulse.RGBA8,
		Stride: int(width) * 4,
		Pix:    pix,
	}
}

func firstDifference(a, b []byte) int {
	for idx := range min(len(a), len(b)) {
		if a[idx] != b[idx] {
			return idx
		}
	}

	return min(len(a), len(b))
}
