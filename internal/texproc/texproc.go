// Package texproc implements the texture processor of spec.md §4.2: decode,
// resize and re-encode every texture a scene's materials reference, for one
// LOD ratio. Grounded on the teacher's internal/texture/cache.go
// double-checked dedup cache and internal/texture/loader.go decode path.
package texproc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lodgen/lodgen/internal/lodgenerr"
	"github.com/lodgen/lodgen/internal/pixelbuf"
	"github.com/lodgen/lodgen/internal/scene"
)

// Options configures one Process call.
type Options struct {
	ModelDir  string // source model directory, for resolving external paths
	OutputDir string // LOD output directory; resized external files land here
	Resize    bool
}

// Stats reports how many distinct textures were read and written.
type Stats struct {
	InputCount  int
	OutputCount int
}

// Process retargets every embedded and external texture a scene's
// materials reference for one LOD ratio, rewriting material paths in
// place. Pass A (embedded) always runs first, then Pass B (external),
// matching spec.md §4.2's ordering contract.
func Process(s *scene.Scene, ratio float64, opts Options) (Stats, error) {
	var stats Stats

	if err := processEmbedded(s, ratio); err != nil {
		return stats, err
	}
	for range s.EmbeddedTextures {
		stats.InputCount++
		stats.OutputCount++
	}

	dedup := map[string]string{} // canonical key -> output filename
	n, err := processExternal(s, ratio, opts, dedup)
	if err != nil {
		return stats, err
	}
	stats.InputCount += n
	stats.OutputCount += len(dedup)

	return stats, nil
}

// processEmbedded is Pass A: decode, resize, re-encode every embedded
// texture in place (spec.md §4.2 Pass A). Material references ("*N") stay
// valid because the EmbeddedTextures index ordering is preserved.
func processEmbedded(s *scene.Scene, ratio float64) error {
	for i := range s.EmbeddedTextures {
		tex := &s.EmbeddedTextures[i]

		var buf *pixelbuf.Buffer
		var err error
		switch tex.Format.Kind {
		case scene.EmbeddedCompressed:
			buf, err = pixelbuf.Decode(tex.Format.Bytes, tex.Format.FormatHint)
		case scene.EmbeddedUncompressed:
			buf, err = pixelbuf.DecodeARGB(tex.Format.Width, tex.Format.Height, tex.Format.ARGB)
		}
		if err != nil {
			return err
		}
		if tex.Format.Kind == scene.EmbeddedUncompressed {
			buf.FormatHint = tex.Format.FormatHint
		}

		nw, nh := pixelbuf.RatioDims(buf.Width, buf.Height, ratio)
		resized, err := pixelbuf.Resize(buf, nw, nh)
		if err != nil {
			return err
		}

		hint := tex.Format.FormatHint
		encoded, err := pixelbuf.Encode(resized, hint)
		if err != nil {
			return err
		}

		usedHint := pixelbuf.EncodedExt(hint)
		filename := tex.Format.Filename
		if filename == "" {
			filename = "texture_" + strconv.Itoa(i) + "." + usedHint
		}

		tex.Format = scene.FormatOf{
			Kind:       scene.EmbeddedCompressed,
			Bytes:      encoded,
			FormatHint: usedHint,
			Filename:   filename,
		}
	}
	return nil
}

// processExternal is Pass B: walk every material's slots in canonical
// order, resolve and retarget each distinct external texture once, and
// rewrite slot paths to the written leaf filename (spec.md §4.2 Pass B).
func processExternal(s *scene.Scene, ratio float64, opts Options, dedup map[string]string) (int, error) {
	if opts.OutputDir == "" {
		return 0, nil
	}

	inputs := map[string]bool{}

	for mi := range s.Materials {
		mat := &s.Materials[mi]
		for _, t := range scene.TextureTypes {
			slots := mat.Slots[t]
			for si := range slots {
				key := slots[si].Path
				if _, ok := s.LookupEmbedded(key); ok {
					continue // handled by Pass A
				}
				if key == "" {
					continue
				}

				canon := canonicalKey(key)
				inputs[canon] = true

				outName, ok := dedup[canon]
				if !ok {
					var err error
					outName, err = retargetExternal(key, ratio, opts, dedup, canon)
					if err != nil {
						return 0, err
					}
				}
				slots[si].Path = outName
			}
			mat.Slots[t] = slots
		}
	}

	return len(inputs), nil
}

// retargetExternal reads, resizes and re-encodes one external texture,
// writing it to opts.OutputDir, disambiguating output basenames that
// collide across distinct source directories (spec.md §9's Open Question:
// this repo resolves it by keying dedup on the full canonical path and
// generating a disambiguated filename on basename collision, rather than
// replicating the original's ambiguous basename-only behavior).
func retargetExternal(key string, ratio float64, opts Options, dedup map[string]string, canon string) (string, error) {
	src := filepath.Join(opts.ModelDir, key)
	buf, err := pixelbuf.LoadFromDisk(src)
	if err != nil {
		return "", err
	}

	out := buf
	if opts.Resize {
		nw, nh := pixelbuf.RatioDims(buf.Width, buf.Height, ratio)
		out, err = pixelbuf.Resize(buf, nw, nh)
		if err != nil {
			return "", err
		}
	}

	hint := extOf(key)
	encoded, err := pixelbuf.Encode(out, hint)
	if err != nil {
		return "", err
	}

	base := filepath.Base(key)
	outName := disambiguate(base, dedup)

	dst := filepath.Join(opts.OutputDir, outName)
	if err := writeFile(dst, encoded); err != nil {
		return "", err
	}

	dedup[canon] = outName
	return outName, nil
}

// disambiguate returns base unless some other canonical key already claimed
// it, in which case it appends a numeric suffix before the extension.
func disambiguate(base string, dedup map[string]string) string {
	taken := map[string]bool{}
	for _, v := range dedup {
		taken[v] = true
	}
	if !taken[base] {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; ; n++ {
		candidate := stem + "__" + strconv.Itoa(n) + ext
		if !taken[candidate] {
			return candidate
		}
	}
}

// canonicalKey normalizes a material slot path for dedup comparison:
// lower-cased, forward-slash separators (spec.md §9's second Open Question).
func canonicalKey(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(p)
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	return strings.ToLower(ext)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, err, "create output dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, err, "write %s", path)
	}
	return nil
}
