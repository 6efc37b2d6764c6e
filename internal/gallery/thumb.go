package gallery

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Format is an output encoding for thumbnails.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// ParseFormat maps the fmt query value to an encoder. There is no pure-Go
// WebP or AVIF encoder, so those and "auto" fall back to JPEG.
func ParseFormat(s string) Format {
	if s == "png" {
		return FormatPNG
	}
	return FormatJPEG
}

// ThumbOptions are already clamped by the handler.
type ThumbOptions struct {
	Width   int
	Quality int
	Square  bool
	Format  Format
}

// MaxPixels bounds the decoded size of a source image.
const MaxPixels = 100_000_000

var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Decode reads any registered image format: JPEG, PNG, GIF and WebP.
// The header is checked against MaxPixels before the pixels are decoded.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("decode image: %dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("decode image: empty bounds %v", b)
	}
	return img, nil
}

// Resize crops src to a centred square and scales it to width x width when
// square is set. Otherwise it fits src inside width, never enlarging.
func Resize(src image.Image, width int, square bool) image.Image {
	b := src.Bounds()
	sr := b
	dw, dh := b.Dx(), b.Dy()

	if square {
		side := min(b.Dx(), b.Dy())
		x0 := b.Min.X + (b.Dx()-side)/2
		y0 := b.Min.Y + (b.Dy()-side)/2
		sr = image.Rect(x0, y0, x0+side, y0+side)
		dw, dh = width, width
	} else if b.Dx() > width {
		dw = width
		dh = max(1, (b.Dy()*width+b.Dx()/2)/b.Dx())
	} else {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst
}

// Encode writes img in the requested format. JPEG output is flattened onto
// white so transparent PNG sources do not turn black.
func Encode(w io.Writer, img image.Image, opts ThumbOptions) error {
	if opts.Format == FormatPNG {
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, img)
	}

	b := img.Bounds()
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, b, img, b.Min, draw.Over)
	return jpeg.Encode(w, flat, &jpeg.Options{Quality: opts.Quality})
}

// Thumbnail decodes src and returns the encoded thumbnail.
func Thumbnail(src io.Reader, opts ThumbOptions) ([]byte, error) {
	img, err := Decode(src)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, Resize(img, opts.Width, opts.Square), opts); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
