package atlaspack

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lodgen/lodgen/internal/pixelbuf"
	"github.com/lodgen/lodgen/internal/scene"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 65: 128}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func encodedTestPNG(t *testing.T, w, h int, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestShelfPackPlacesNonOverlappingRegions(t *testing.T) {
	sources := []source{
		{decoded: pixelbuf.NewBuffer(4, 4)},
		{decoded: pixelbuf.NewBuffer(4, 4)},
		{decoded: pixelbuf.NewBuffer(4, 4)},
	}
	regions, w, h, err := shelfPack(sources, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("shelfPack: %v", err)
	}
	if w <= 0 || h <= 0 {
		t.Fatalf("expected positive atlas dims, got %dx%d", w, h)
	}
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if regionsOverlap(regions[i], regions[j]) {
				t.Errorf("regions %d and %d overlap: %+v %+v", i, j, regions[i], regions[j])
			}
		}
	}
}

func regionsOverlap(a, b Region) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

func TestShelfPackErrorsWhenHeightExceedsLimit(t *testing.T) {
	// A handful of very tall, narrow textures forces atlasH past maxAtlasDim
	// once the shelf packer wraps to enough rows.
	n := 20
	sources := make([]source, n)
	idxs := make([]int, n)
	for i := range sources {
		sources[i] = source{decoded: pixelbuf.NewBuffer(8, 8192)}
		idxs[i] = i
	}
	_, _, _, err := shelfPack(sources, idxs)
	if err == nil {
		t.Fatal("expected error when packed height exceeds maxAtlasDim")
	}
}

func TestDiffuseFirstMappingPrefersDiffuseSlot(t *testing.T) {
	refs := []slotRef{
		{material: 0, typ: scene.Normals, slot: 0, source: 5},
		{material: 0, typ: scene.Diffuse, slot: 0, source: 9},
	}
	mapping := diffuseFirstMapping(nil, refs)
	if mapping[0] != 9 {
		t.Errorf("expected material 0 to map to its diffuse source 9, got %d", mapping[0])
	}
}

func TestDiffuseFirstMappingFallsBackToFirstSlot(t *testing.T) {
	refs := []slotRef{
		{material: 1, typ: scene.Specular, slot: 0, source: 3},
	}
	mapping := diffuseFirstMapping(nil, refs)
	if mapping[1] != 3 {
		t.Errorf("expected fallback to first-any source 3, got %d", mapping[1])
	}
}

func TestBuildPacksEmbeddedDiffuseAndRewritesSlots(t *testing.T) {
	data := encodedTestPNG(t, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	s := &scene.Scene{
		EmbeddedTextures: []scene.EmbeddedTexture{
			{Format: scene.FormatOf{Kind: scene.EmbeddedCompressed, Bytes: data, FormatHint: "png"}},
		},
		Materials: []scene.Material{
			{Name: "m0", Slots: map[scene.TextureType][]scene.TextureSlot{
				scene.Diffuse: {{Path: "*0", WrapU: scene.WrapRepeat, WrapV: scene.WrapRepeat}},
			}},
		},
		Meshes: []scene.Mesh{
			{
				MaterialIndex: 0,
				UVChannels:    [][][3]float32{{{0, 0, 0}, {1, 1, 0}}},
			},
		},
	}

	infos, err := Build(s, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(infos) != 1 || infos[0].Type != scene.Diffuse {
		t.Fatalf("expected one Diffuse atlas, got %+v", infos)
	}

	slot := s.Materials[0].Slots[scene.Diffuse][0]
	if slot.WrapU != scene.WrapClamp || slot.WrapV != scene.WrapClamp {
		t.Errorf("expected clamp wrap modes after atlasing, got %v/%v", slot.WrapU, slot.WrapV)
	}
	if slot.Path == "*0" {
		t.Error("expected slot path rewritten away from embedded-texture reference")
	}

	uv := s.Meshes[0].UVChannels[0][1]
	if uv[0] <= 0 || uv[0] > 1 || uv[1] <= 0 || uv[1] > 1 {
		t.Errorf("remapped UV out of unit range: %v", uv)
	}

	if len(s.EmbeddedTextures) != 1 {
		t.Fatalf("expected the old embedded texture array to be replaced by the new one, got %d entries", len(s.EmbeddedTextures))
	}
	if s.EmbeddedTextures[0].Format.Filename != "atlas_diffuse.png" {
		t.Errorf("expected the surviving embedded texture to be the built atlas, got %q", s.EmbeddedTextures[0].Format.Filename)
	}
}

func TestBuildReturnsNilForSceneWithNoTextures(t *testing.T) {
	s := &scene.Scene{Materials: []scene.Material{{Name: "m0"}}}
	infos, err := Build(s, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if infos != nil {
		t.Errorf("expected nil infos for a scene with no textures, got %+v", infos)
	}
}
