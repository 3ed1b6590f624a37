package media

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

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

// pngHeader returns a png that declares w by h pixels but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolor with alpha

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalizeImage(t *testing.T) {
	t.Run("small png is kept as is", func(t *testing.T) {
		data := encodePNG(t, 20, 10)

		out, contentType, err := NormalizeImage(data, 64)

		require.NoError(t, err)
		assert.Equal(t, "image/png", contentType)
		assert.Equal(t, data, out)
	})

	t.Run("wide png is scaled to max width", func(t *testing.T) {
		out, contentType, err := NormalizeImage(encodePNG(t, 200, 100), 50)

		require.NoError(t, err)
		assert.Equal(t, "image/png", contentType)
		cfg, err := png.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 25, cfg.Height)
	})

	t.Run("wide jpeg stays jpeg", func(t *testing.T) {
		out, contentType, err := NormalizeImage(encodeJPEG(t, 300, 300), 100)

		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", contentType)
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.Width)
	})

	t.Run("non-image is rejected", func(t *testing.T) {
		_, _, err := NormalizeImage([]byte("definitely not an image"), 100)
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})

	t.Run("oversized dimensions are refused before decoding", func(t *testing.T) {
		tests := []struct {
			name string
			w, h uint32
		}{
			{"square", 10_000, 10_000},
			{"very wide", 1_000_000, 100},
			{"very tall", 30, 1_000_000},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := NormalizeImage(pngHeader(tt.w, tt.h), 100)
				assert.ErrorIs(t, err, ErrImageTooLarge)
			})
		}
	})

	t.Run("header within the pixel limit still needs pixel data", func(t *testing.T) {
		_, _, err := NormalizeImage(pngHeader(100, 100), 100)
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})

	t.Run("truncated png is rejected", func(t *testing.T) {
		data := encodePNG(t, 20, 20)
		_, _, err := NormalizeImage(data[:len(data)/2], 100)
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})
}

func TestNewObjectKey(t *testing.T) {
	a := NewObjectKey("avatars", "image/png")
	b := NewObjectKey("avatars", "image/png")

	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^avatars/\d{4}/\d{2}/[0-9a-f-]{36}\.png$`, a)
}
