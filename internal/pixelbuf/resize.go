package pixelbuf

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/lodgen/lodgen/internal/lodgenerr"
)

// Resize linearly resizes buf to newW x newH (spec.md §4.2 step 3, "linearly
// resize"). Alpha is premultiplied before scaling and unpremultiplied after,
// the same way internal/postprocess/supersample.go avoids dark halos at
// transparent edges, but using a bilinear filter rather than CatmullRom —
// spec.md calls for a linear resize, not a sharpening resample.
func Resize(buf *Buffer, newW, newH int) (*Buffer, error) {
	if newW <= 0 || newH <= 0 {
		return nil, lodgenerr.New(lodgenerr.TextureResizeFailed, "invalid target dimensions %dx%d", newW, newH)
	}

	src := buf.toNRGBA()
	b := src.Bounds()

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(src.Pix[si+3]) / 255.0
			premul.Pix[di+0] = uint8(float64(src.Pix[si+0])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(src.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(src.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = src.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := NewBuffer(newW, newH)
	out.FormatHint = buf.FormatHint
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			si := dst.PixOffset(x, y)
			di := out.offset(x, y)
			a := float64(dst.Pix[si+3])
			out.Pix[di+3] = dst.Pix[si+3]
			if a <= 1 {
				continue
			}
			inv := 255.0 / a
			out.Pix[di+0] = clamp8(float64(dst.Pix[si+0]) * inv)
			out.Pix[di+1] = clamp8(float64(dst.Pix[si+1]) * inv)
			out.Pix[di+2] = clamp8(float64(dst.Pix[si+2]) * inv)
		}
	}
	return out, nil
}

// RatioDims computes the new dimensions for a resize ratio, clamped to a
// minimum of 1px on each axis (spec.md §4.2 step 2).
func RatioDims(w, h int, ratio float64) (int, int) {
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
