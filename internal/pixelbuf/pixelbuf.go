// Package pixelbuf implements the RGBA8 pixel buffer operations spec.md §2
// calls out as the "PixelBuffer ops" leaf component: decode from bytes,
// linear resize, PNG/JPEG encode, and disk load. It is grounded on the
// teacher's internal/texture/loader.go (decode + channel-order
// normalization) and internal/postprocess/supersample.go (premultiplied-
// alpha-aware resize via golang.org/x/image/draw).
package pixelbuf

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"image/gif" // broadens decode coverage for whatever a source scene embeds

	"github.com/lodgen/lodgen/internal/lodgenerr"

	_ "github.com/ftrvxmtrx/tga" // TGA decode support for legacy texture sets
)

// Buffer is a decoded RGBA8 (non-premultiplied) pixel rectangle, row-major,
// matching spec.md §3's DecodedTexture.
type Buffer struct {
	Width, Height int
	Pix           []byte // len == Width*Height*4, R G B A order
	FormatHint    string // "png", "jpg", "" — the format the bytes were decoded from
}

// NewBuffer allocates a zero-initialized buffer of the given size.
func NewBuffer(w, h int) *Buffer {
	return &Buffer{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

// offset returns the byte offset of pixel (x, y)'s first channel.
func (b *Buffer) offset(x, y int) int { return y*b.Width*4 + x*4 }

// Decode turns an encoded image (PNG, JPEG, GIF or TGA) into an RGBA8
// Buffer. PNG, JPEG and GIF are recognised by their magic bytes and decoded
// directly; anything else goes through image.Decode, where the TGA codec
// (registered with no magic prefix) picks it up.
func Decode(data []byte, formatHint string) (*Buffer, error) {
	var img image.Image
	var err error
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		img, err = png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		img, err = jpeg.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte("GIF8")):
		img, err = gif.Decode(bytes.NewReader(data))
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.TextureDecodeFailed, err, "decode embedded texture")
	}
	return fromImage(img, formatHint), nil
}

// DecodeARGB transcodes an uncompressed ARGB8888 pixel rectangle (spec.md
// §3's EmbeddedTexture uncompressed variant) to RGBA8 channel order.
func DecodeARGB(w, h int, argb []byte) (*Buffer, error) {
	if len(argb) < w*h*4 {
		return nil, lodgenerr.New(lodgenerr.TextureDecodeFailed, "ARGB buffer too small: have %d want %d", len(argb), w*h*4)
	}
	out := NewBuffer(w, h)
	for i := 0; i < w*h; i++ {
		a, r, g, bch := argb[i*4+0], argb[i*4+1], argb[i*4+2], argb[i*4+3]
		out.Pix[i*4+0] = r
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = bch
		out.Pix[i*4+3] = a
	}
	return out, nil
}

// fromImage converts any decoded image.Image into an RGBA8 Buffer,
// assigning full opacity when the source has no alpha channel.
func fromImage(src image.Image, formatHint string) *Buffer {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewBuffer(w, h)

	if n, ok := src.(*image.NRGBA); ok && bounds.Min.X == 0 && bounds.Min.Y == 0 {
		copy(out.Pix, n.Pix)
		out.FormatHint = formatHint
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bch, a := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := out.offset(x, y)
			if a == 0 {
				out.Pix[i+3] = 0
				continue
			}
			out.Pix[i+0] = uint8((r * 0xff / a))
			out.Pix[i+1] = uint8((g * 0xff / a))
			out.Pix[i+2] = uint8((bch * 0xff / a))
			out.Pix[i+3] = uint8(a >> 8)
		}
	}
	out.FormatHint = formatHint
	return out
}

// LoadFromDisk reads and decodes an image file, using its extension as the
// format hint (spec.md §4.2 Pass B).
func LoadFromDisk(path string) (*Buffer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lodgenerr.Wrap(lodgenerr.FileNotFound, err, "texture file not found: %s", path)
		}
		return nil, lodgenerr.Wrap(lodgenerr.TextureLoadFailed, err, "read %s", path)
	}
	hint := extHint(path)
	buf, err := Decode(raw, hint)
	if err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.TextureLoadFailed, err, "decode %s", path)
	}
	buf.FormatHint = hint
	return buf, nil
}

// Encode re-encodes buf as PNG, or JPEG at quality 85 when hint is "jpg" or
// "jpeg" (spec.md §4.2 step 4). Any other hint, including empty, produces PNG.
func Encode(buf *Buffer, hint string) ([]byte, error) {
	var w bytes.Buffer
	img := buf.toNRGBA()

	switch hint {
	case "jpg", "jpeg":
		if err := jpeg.Encode(&w, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, err, "jpeg encode")
		}
	default:
		if err := png.Encode(&w, img); err != nil {
			return nil, lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, err, "png encode")
		}
	}
	return w.Bytes(), nil
}

// EncodedExt returns the actual file extension used for a given hint, after
// normalization to the encoder actually used (spec.md §4.2 step 5).
func EncodedExt(hint string) string {
	if hint == "jpg" || hint == "jpeg" {
		return "jpg"
	}
	return "png"
}

func (b *Buffer) toNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}

func extHint(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '.' {
		i--
	}
	if i < 0 {
		return ""
	}
	ext := path[i+1:]
	for j := range ext {
		if ext[j] >= 'A' && ext[j] <= 'Z' {
			ext = ext[:j] + string(ext[j]+32) + ext[j+1:]
		}
	}
	return ext
}

// Copy returns a deep copy of buf.
func (b *Buffer) Copy() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height, FormatHint: b.FormatHint}
	out.Pix = make([]byte, len(b.Pix))
	copy(out.Pix, b.Pix)
	return out
}
