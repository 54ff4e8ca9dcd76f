package pixelbuf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, w, h int, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeRoundTrip(t *testing.T) {
	data := encodeTestPNG(t, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	buf, err := Decode(data, "png")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.Width != 4 || buf.Height != 4 {
		t.Fatalf("Decode size = %dx%d, want 4x4", buf.Width, buf.Height)
	}
	if buf.Pix[0] != 10 || buf.Pix[1] != 20 || buf.Pix[2] != 30 || buf.Pix[3] != 255 {
		t.Errorf("unexpected pixel 0: %v", buf.Pix[:4])
	}
}

func TestDecodeARGB(t *testing.T) {
	argb := []byte{
		255, 10, 20, 30, // A R G B
	}
	buf, err := DecodeARGB(1, 1, argb)
	if err != nil {
		t.Fatalf("DecodeARGB: %v", err)
	}
	want := []byte{10, 20, 30, 255}
	for i := range want {
		if buf.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %d, want %d", i, buf.Pix[i], want[i])
		}
	}
}

func TestDecodeARGBTooSmall(t *testing.T) {
	_, err := DecodeARGB(2, 2, []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for undersized ARGB buffer")
	}
}

func TestEncodeDefaultsToPNG(t *testing.T) {
	buf := NewBuffer(2, 2)
	data, err := Encode(buf, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) < 8 || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Encode with empty hint did not produce a PNG")
	}
}

func TestEncodeJPEGHint(t *testing.T) {
	buf := NewBuffer(2, 2)
	data, err := Encode(buf, "jpg")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("Encode with jpg hint did not produce a JPEG")
	}
}

func TestEncodedExt(t *testing.T) {
	if EncodedExt("jpeg") != "jpg" {
		t.Error("EncodedExt(jpeg) should normalize to jpg")
	}
	if EncodedExt("png") != "png" {
		t.Error("EncodedExt(png) should stay png")
	}
	if EncodedExt("") != "png" {
		t.Error("EncodedExt('') should default to png")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	buf := NewBuffer(2, 2)
	buf.Pix[0] = 42
	cp := buf.Copy()
	cp.Pix[0] = 99
	if buf.Pix[0] != 42 {
		t.Error("Copy shares backing array with original")
	}
}
