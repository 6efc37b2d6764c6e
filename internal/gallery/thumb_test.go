package gallery

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResize_FitsWidthWithoutEnlarging(t *testing.T) {
	out := Resize(testImage(400, 200), 100, false)
	assert.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())

	small := testImage(50, 80)
	assert.Same(t, small, Resize(small, 100, false))
}

func TestResize_SquareCropsCentre(t *testing.T) {
	out := Resize(testImage(300, 100), 64, true)
	assert.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())

	// Square output enlarges, like a fill resize.
	out = Resize(testImage(30, 40), 64, true)
	assert.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())
}

func TestThumbnail_JPEGAndPNG(t *testing.T) {
	src := pngBytes(t, testImage(200, 100))

	data, err := Thumbnail(bytes.NewReader(src), ThumbOptions{Width: 64, Quality: 60, Format: FormatJPEG})
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)

	data, err = Thumbnail(bytes.NewReader(src), ThumbOptions{Width: 64, Quality: 60, Square: true, Format: FormatPNG})
	require.NoError(t, err)
	pcfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, pcfg.Width)
	assert.Equal(t, 64, pcfg.Height)
}

// pngHeader is a PNG signature plus an IHDR chunk for a w x h grayscale
// image. DecodeConfig accepts it; a full decode would need pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; colour type 0 is grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_RejectsHugeDimensions(t *testing.T) {
	_, err := Decode(bytes.NewReader(pngHeader(20000, 20000)))
	require.ErrorIs(t, err, ErrTooManyPixels)

	// Under the limit the header passes and the missing pixel data fails.
	_, err = Decode(bytes.NewReader(pngHeader(100, 100)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooManyPixels)
}

func TestThumbnail_Garbage(t *testing.T) {
	_, err := Thumbnail(bytes.NewReader([]byte("not an image")), ThumbOptions{Width: 64, Quality: 60})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatPNG, ParseFormat("png"))
	for _, s := range []string{"auto", "webp", "avif", "jpeg", ""} {
		assert.Equal(t, FormatJPEG, ParseFormat(s), s)
	}
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
}
