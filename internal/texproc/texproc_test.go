package texproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lodgen/lodgen/internal/scene"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 128, G: 64, B: 32, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write test PNG: %v", err)
	}
}

func TestCanonicalKeyNormalizesSeparatorsAndCase(t *testing.T) {
	a := canonicalKey(`Textures\Body.PNG`)
	b := canonicalKey("textures/body.png")
	if a != b {
		t.Errorf("canonicalKey should normalize slashes and case: %q != %q", a, b)
	}
}

func TestDisambiguateAppendsStemSuffixOnCollision(t *testing.T) {
	dedup := map[string]string{"a": "body.png"}
	got := disambiguate("body.png", dedup)
	if got != "body__1.png" {
		t.Errorf("disambiguate collision = %q, want body__1.png", got)
	}
}

func TestDisambiguateKeepsBasenameWhenUnclaimed(t *testing.T) {
	dedup := map[string]string{}
	got := disambiguate("body.png", dedup)
	if got != "body.png" {
		t.Errorf("disambiguate unclaimed = %q, want body.png", got)
	}
}

func TestProcessExternalDedupesDistinctDirsSameBasename(t *testing.T) {
	modelDir := t.TempDir()
	outputDir := t.TempDir()

	os.MkdirAll(filepath.Join(modelDir, "a"), 0755)
	os.MkdirAll(filepath.Join(modelDir, "b"), 0755)
	writeTestPNG(t, filepath.Join(modelDir, "a", "body.png"), 8, 8)
	writeTestPNG(t, filepath.Join(modelDir, "b", "body.png"), 8, 8)

	s := &scene.Scene{
		Materials: []scene.Material{
			{Name: "m0", Slots: map[scene.TextureType][]scene.TextureSlot{
				scene.Diffuse: {{Path: "a/body.png"}},
			}},
			{Name: "m1", Slots: map[scene.TextureType][]scene.TextureSlot{
				scene.Diffuse: {{Path: "b/body.png"}},
			}},
		},
	}

	stats, err := Process(s, 1.0, Options{ModelDir: modelDir, OutputDir: outputDir, Resize: false})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if stats.InputCount != 2 {
		t.Errorf("InputCount = %d, want 2 (distinct canonical paths)", stats.InputCount)
	}
	if stats.OutputCount != 2 {
		t.Errorf("OutputCount = %d, want 2 (disambiguated outputs)", stats.OutputCount)
	}

	p0 := s.Materials[0].Slots[scene.Diffuse][0].Path
	p1 := s.Materials[1].Slots[scene.Diffuse][0].Path
	if p0 == p1 {
		t.Errorf("expected disambiguated output paths, got identical %q for both", p0)
	}
}

func TestProcessExternalDedupesIdenticalCanonicalPath(t *testing.T) {
	modelDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestPNG(t, filepath.Join(modelDir, "body.png"), 8, 8)

	s := &scene.Scene{
		Materials: []scene.Material{
			{Name: "m0", Slots: map[scene.TextureType][]scene.TextureSlot{
				scene.Diffuse: {{Path: "body.png"}},
			}},
			{Name: "m1", Slots: map[scene.TextureType][]scene.TextureSlot{
				scene.Diffuse: {{Path: "BODY.PNG"}},
			}},
		},
	}

	stats, err := Process(s, 1.0, Options{ModelDir: modelDir, OutputDir: outputDir, Resize: false})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if stats.InputCount != 1 {
		t.Errorf("InputCount = %d, want 1 (same canonical path, different case)", stats.InputCount)
	}

	p0 := s.Materials[0].Slots[scene.Diffuse][0].Path
	p1 := s.Materials[1].Slots[scene.Diffuse][0].Path
	if p0 != p1 {
		t.Errorf("expected identical output path for case-insensitive duplicate, got %q vs %q", p0, p1)
	}
}

func TestProcessEmbeddedReencodesInPlace(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	s := &scene.Scene{
		EmbeddedTextures: []scene.EmbeddedTexture{
			{Format: scene.FormatOf{Kind: scene.EmbeddedCompressed, Bytes: buf.Bytes(), FormatHint: "png"}},
		},
	}

	stats, err := Process(s, 0.5, Options{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if stats.InputCount != 1 || stats.OutputCount != 1 {
		t.Errorf("stats = %+v, want 1/1", stats)
	}
	if len(s.EmbeddedTextures[0].Format.Bytes) == 0 {
		t.Error("embedded texture bytes should be re-encoded, not empty")
	}
}
