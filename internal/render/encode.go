package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// HeaderSize is the length of the bitmap width/height header
const HeaderSize = 16

// ErrShortBitmap is returned when a bitmap is truncated
var ErrShortBitmap = errors.New("bitmap too short")

// EncodeBitmap serializes img as an 8-byte big-endian width, an 8-byte
// big-endian height and the row-major RGB pixels, 3 bytes each.
func EncodeBitmap(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	out := make([]byte, HeaderSize+w*h*3)
	binary.BigEndian.PutUint64(out[0:8], uint64(w))
	binary.BigEndian.PutUint64(out[8:16], uint64(h))

	i := HeaderSize
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			out[i] = row[x*4]
			out[i+1] = row[x*4+1]
			out[i+2] = row[x*4+2]
			i += 3
		}
	}
	return out
}

// DecodeBitmap parses the header of an encoded bitmap and returns the
// dimensions and the RGB payload
func DecodeBitmap(data []byte) (width, height int, pixels []byte, err error) {
	if len(data) < HeaderSize {
		return 0, 0, nil, ErrShortBitmap
	}
	w := binary.BigEndian.Uint64(data[0:8])
	h := binary.BigEndian.Uint64(data[8:16])
	pixels = data[HeaderSize:]
	if uint64(len(pixels)) != w*h*3 {
		return 0, 0, nil, fmt.Errorf("%w: want %d pixel bytes, got %d", ErrShortBitmap, w*h*3, len(pixels))
	}
	return int(w), int(h), pixels, nil
}

// EncodePNG compresses img as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
