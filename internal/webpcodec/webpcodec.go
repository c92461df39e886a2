// Package webpcodec defines the narrow WebP interface the SOG codec
// consumes, with a default implementation on pure-Go encoders: lossless
// encode via nativewebp, decode via x/image. Lossless round trips are
// byte-exact, which the codebook textures rely on.
package webpcodec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"
	xwebp "golang.org/x/image/webp"
)

// Codec encodes and decodes RGBA texture data.
type Codec interface {
	// EncodeLosslessRGBA encodes w*h RGBA pixels (row-major, 4 bytes per
	// pixel) into a lossless WebP stream.
	EncodeLosslessRGBA(rgba []byte, w, h int) ([]byte, error)
	// DecodeRGBA decodes a WebP stream into RGBA pixels plus dimensions.
	DecodeRGBA(data []byte) ([]byte, int, int, error)
}

// Native is the default pure-Go codec.
type Native struct{}

// EncodeLosslessRGBA implements Codec.
func (Native) EncodeLosslessRGBA(rgba []byte, w, h int) ([]byte, error) {
	if len(rgba) != w*h*4 {
		return nil, fmt.Errorf("webp: rgba length %d does not match %dx%d", len(rgba), w, h)
	}
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("webp encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRGBA implements Codec.
func (Native) DecodeRGBA(data []byte) ([]byte, int, int, error) {
	img, err := xwebp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("webp decode: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == w*4 && len(nrgba.Pix) >= w*h*4 {
		return nrgba.Pix[:w*h*4], w, h, nil
	}

	// Generic fallback for non-NRGBA sources.
	out := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out[i+0] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(bl >> 8)
			out[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out, w, h, nil
}
