// Package atlaspack implements the per-type atlas packer of spec.md §4.3:
// collect every texture referenced across materials, group by semantic
// type, shelf-pack each group into one image, and remap mesh UVs so the
// transform is valid in every per-type atlas. Grounded on
// original_source/lodgen/texture_atlas.cpp's dedup-by-source-index design.
package atlaspack

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/lodgen/lodgen/internal/lodgenerr"
	"github.com/lodgen/lodgen/internal/pixelbuf"
	"github.com/lodgen/lodgen/internal/scene"
)

// Options configures one Build call.
type Options struct {
	ModelDir  string
	OutputDir string
}

// Region is one packed texture's placement inside its type's atlas image.
type Region struct {
	X, Y, W, H int
}

// Info describes one built per-type atlas.
type Info struct {
	Type          scene.TextureType
	Path          string
	Width, Height int
}

const maxAtlasDim = 8192

type source struct {
	decoded  *pixelbuf.Buffer
	diskPath string // set if loaded from disk, for Phase 6 cleanup
}

type slotRef struct {
	material int
	typ      scene.TextureType
	slot     int
	source   int
}

// Build packs every texture a scene's materials reference into one atlas
// image per active texture type, rewrites material slots and mesh UVs, and
// best-effort deletes the external source files it replaced.
func Build(s *scene.Scene, opts Options) ([]Info, error) {
	sources, keyToSource, refs, activeTypes, err := collectSources(s, opts)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}

	matToSrc := diffuseFirstMapping(s, refs)

	var infos []Info
	var newEmbedded []scene.EmbeddedTexture
	var diffuseRegions map[int]Region
	var diffuseW, diffuseH int
	gotDiffuse := false

	for _, t := range scene.TextureTypes {
		if !activeTypes[t] {
			continue
		}

		srcIdxs := orderedSourcesForType(refs, t)
		regions, atlasW, atlasH, err := shelfPack(sources, srcIdxs)
		if err != nil {
			return nil, err
		}

		pixels := blit(sources, srcIdxs, regions, atlasW, atlasH)
		encoded, err := pixelbuf.Encode(pixels, "png")
		if err != nil {
			return nil, lodgenerr.Wrap(lodgenerr.AtlasBuildFailed, err, "encode atlas %s", t.AtlasSuffix())
		}

		filename := "atlas_" + t.AtlasSuffix() + ".png"
		if opts.OutputDir != "" {
			if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
				return nil, lodgenerr.Wrap(lodgenerr.AtlasBuildFailed, err, "create output dir")
			}
			if err := os.WriteFile(filepath.Join(opts.OutputDir, filename), encoded, 0644); err != nil {
				return nil, lodgenerr.Wrap(lodgenerr.AtlasBuildFailed, err, "write %s", filename)
			}
		}

		newEmbedded = append(newEmbedded, scene.EmbeddedTexture{
			Format: scene.FormatOf{
				Kind:       scene.EmbeddedCompressed,
				Bytes:      encoded,
				FormatHint: "png",
				Filename:   filename,
			},
		})
		rewriteSlots(s, refs, t, filename)

		infos = append(infos, Info{Type: t, Path: filename, Width: atlasW, Height: atlasH})

		if t == scene.Diffuse && !gotDiffuse {
			diffuseRegions = map[int]Region{}
			for i, si := range srcIdxs {
				diffuseRegions[si] = regions[i]
			}
			diffuseW, diffuseH = atlasW, atlasH
			gotDiffuse = true
		}
	}

	// Phase 4: free the old embedded texture array, install the new one
	// built above. Every slot reference was already rewritten to a leaf
	// filename, so no surviving slot pointed at an old "*N" index.
	s.EmbeddedTextures = newEmbedded

	if gotDiffuse {
		remapUVs(s, matToSrc, diffuseRegions, diffuseW, diffuseH)
	}

	cleanupSources(sources)
	_ = keyToSource
	return infos, nil
}

// collectSources walks every material x type x slot in canonical order
// (spec.md §4.3 Phase 1), decoding each distinct texture exactly once.
func collectSources(s *scene.Scene, opts Options) ([]source, map[string]int, []slotRef, map[scene.TextureType]bool, error) {
	var sources []source
	keyToSource := map[string]int{}
	var refs []slotRef
	activeTypes := map[scene.TextureType]bool{}

	for mi := range s.Materials {
		mat := &s.Materials[mi]
		for _, t := range scene.TextureTypes {
			slots := mat.Slots[t]
			for si, slot := range slots {
				key := slot.Path
				if key == "" {
					continue
				}
				idx, ok := keyToSource[key]
				if !ok {
					src, err := resolveSource(s, key, opts)
					if err != nil {
						return nil, nil, nil, nil, err
					}
					idx = len(sources)
					sources = append(sources, src)
					keyToSource[key] = idx
				}
				refs = append(refs, slotRef{material: mi, typ: t, slot: si, source: idx})
				activeTypes[t] = true
			}
		}
	}
	return sources, keyToSource, refs, activeTypes, nil
}

func resolveSource(s *scene.Scene, key string, opts Options) (source, error) {
	if embIdx, ok := s.LookupEmbedded(key); ok {
		tex := &s.EmbeddedTextures[embIdx]
		var buf *pixelbuf.Buffer
		var err error
		switch tex.Format.Kind {
		case scene.EmbeddedCompressed:
			buf, err = pixelbuf.Decode(tex.Format.Bytes, tex.Format.FormatHint)
		case scene.EmbeddedUncompressed:
			buf, err = pixelbuf.DecodeARGB(tex.Format.Width, tex.Format.Height, tex.Format.ARGB)
		}
		if err != nil {
			return source{}, err
		}
		return source{decoded: buf}, nil
	}

	base := filepath.Base(key)
	fromOutput := filepath.Join(opts.OutputDir, base)
	fromModel := filepath.Join(opts.ModelDir, base)
	path := fromModel
	if opts.OutputDir != "" {
		if _, err := os.Stat(fromOutput); err == nil {
			path = fromOutput
		}
	}

	buf, err := pixelbuf.LoadFromDisk(path)
	if err != nil {
		return source{}, err
	}
	return source{decoded: buf, diskPath: path}, nil
}

// diffuseFirstMapping computes, per material, the source driving its mesh's
// UV remap: its first diffuse slot, or failing that, its first slot of any
// type (spec.md §4.3 Phase 2).
func diffuseFirstMapping(s *scene.Scene, refs []slotRef) map[int]int {
	out := map[int]int{}
	firstAny := map[int]int{}
	for _, r := range refs {
		if _, ok := firstAny[r.material]; !ok {
			firstAny[r.material] = r.source
		}
		if r.typ == scene.Diffuse {
			if _, ok := out[r.material]; !ok {
				out[r.material] = r.source
			}
		}
	}
	for m, src := range firstAny {
		if _, ok := out[m]; !ok {
			out[m] = src
		}
	}
	return out
}

func orderedSourcesForType(refs []slotRef, t scene.TextureType) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range refs {
		if r.typ != t {
			continue
		}
		if !seen[r.source] {
			seen[r.source] = true
			out = append(out, r.source)
		}
	}
	return out
}

// shelfPack places every source's decoded texture on horizontal shelves
// (spec.md §4.3 Phase 3 step 2).
func shelfPack(sources []source, srcIdxs []int) ([]Region, int, int, error) {
	n := len(srcIdxs)
	maxW := 0
	for _, si := range srcIdxs {
		if sources[si].decoded.Width > maxW {
			maxW = sources[si].decoded.Width
		}
	}

	cols := 1
	for cols*cols < n {
		cols++
	}
	atlasW := nextPow2(maxW * cols)
	if atlasW > maxAtlasDim {
		atlasW = maxAtlasDim
	}

	order := append([]int(nil), srcIdxs...)
	sort.SliceStable(order, func(i, j int) bool {
		return sources[order[i]].decoded.Height > sources[order[j]].decoded.Height
	})

	regions := make(map[int]Region, n)
	curX, curY, shelfH := 0, 0, 0
	for _, si := range order {
		buf := sources[si].decoded
		w, h := buf.Width, buf.Height
		if curX+w > atlasW && curX > 0 {
			curY += shelfH
			curX = 0
			shelfH = 0
		}
		regions[si] = Region{X: curX, Y: curY, W: w, H: h}
		curX += w
		if h > shelfH {
			shelfH = h
		}
	}
	curY += shelfH
	atlasH := nextPow2(curY)
	if atlasH > maxAtlasDim {
		return nil, 0, 0, lodgenerr.New(lodgenerr.AtlasBuildFailed, "atlas height %d exceeds %d", atlasH, maxAtlasDim)
	}

	out := make([]Region, n)
	for i, si := range srcIdxs {
		out[i] = regions[si]
	}
	return out, atlasW, atlasH, nil
}

func blit(sources []source, srcIdxs []int, regions []Region, atlasW, atlasH int) *pixelbuf.Buffer {
	out := pixelbuf.NewBuffer(atlasW, atlasH)
	for i, si := range srcIdxs {
		buf := sources[si].decoded
		reg := regions[i]
		for y := 0; y < buf.Height; y++ {
			srcOff := y * buf.Width * 4
			dstOff := (reg.Y+y)*atlasW*4 + reg.X*4
			copy(out.Pix[dstOff:dstOff+buf.Width*4], buf.Pix[srcOff:srcOff+buf.Width*4])
		}
	}
	return out
}

// rewriteSlots sets every slot of type t to the atlas leaf filename (not
// "*N": a text-based exporter emits the path verbatim per spec.md §4.3
// Phase 3 step 7) with clamp wrap modes on both axes.
func rewriteSlots(s *scene.Scene, refs []slotRef, t scene.TextureType, filename string) {
	for _, r := range refs {
		if r.typ != t {
			continue
		}
		slots := s.Materials[r.material].Slots[t]
		slots[r.slot].Path = filename
		slots[r.slot].WrapU = scene.WrapClamp
		slots[r.slot].WrapV = scene.WrapClamp
	}
}

// remapUVs rewrites every mesh's UVs into its material's diffuse atlas
// region (spec.md §4.3 Phase 5).
func remapUVs(s *scene.Scene, matToSrc map[int]int, regions map[int]Region, atlasW, atlasH int) {
	for mi := range s.Meshes {
		mesh := &s.Meshes[mi]
		if mesh.MaterialIndex < 0 || mesh.MaterialIndex >= len(s.Materials) {
			continue
		}
		srcIdx, ok := matToSrc[mesh.MaterialIndex]
		if !ok {
			continue
		}
		reg, ok := regions[srcIdx]
		if !ok || reg.W == 0 || reg.H == 0 {
			continue
		}
		u0 := float32(reg.X) / float32(atlasW)
		v0 := float32(reg.Y) / float32(atlasH)
		us := float32(reg.W) / float32(atlasW)
		vs := float32(reg.H) / float32(atlasH)

		for ch := range mesh.UVChannels {
			for vi := range mesh.UVChannels[ch] {
				uv := mesh.UVChannels[ch][vi]
				uv[0] = u0 + uv[0]*us
				uv[1] = v0 + uv[1]*vs
				mesh.UVChannels[ch][vi] = uv
			}
		}
	}
}

// cleanupSources best-effort deletes every external source file the atlas
// replaced (spec.md §4.3 Phase 6). Failures are ignored per the spec's
// "best-effort" exception to never-swallow-errors.
func cleanupSources(sources []source) {
	for _, src := range sources {
		if src.diskPath != "" {
			_ = os.Remove(src.diskPath)
		}
	}
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
