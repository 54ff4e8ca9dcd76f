package pixelbuf

import "testing"

func TestRatioDimsClampsToOnePixel(t *testing.T) {
	w, h := RatioDims(4, 4, 0.01)
	if w < 1 || h < 1 {
		t.Errorf("RatioDims should never return less than 1px, got %dx%d", w, h)
	}
}

func TestRatioDimsScalesProportionally(t *testing.T) {
	w, h := RatioDims(100, 50, 0.5)
	if w != 50 || h != 25 {
		t.Errorf("RatioDims(100,50,0.5) = %d,%d, want 50,25", w, h)
	}
}

func TestResizeOpaqueBuffer(t *testing.T) {
	buf := NewBuffer(4, 4)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i+0] = 200
		buf.Pix[i+1] = 100
		buf.Pix[i+2] = 50
		buf.Pix[i+3] = 255
	}

	out, err := Resize(buf, 2, 2)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Width != 2 || out.Height != 2 {
		t.Fatalf("Resize size = %dx%d, want 2x2", out.Width, out.Height)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+3] != 255 {
			t.Errorf("expected fully opaque output, got alpha %d", out.Pix[i+3])
		}
	}
}

func TestResizeRejectsNonPositiveDims(t *testing.T) {
	buf := NewBuffer(2, 2)
	if _, err := Resize(buf, 0, 2); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := Resize(buf, 2, -1); err == nil {
		t.Error("expected error for negative height")
	}
}
