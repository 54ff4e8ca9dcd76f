// Package orchestrator drives the LOD generation pipeline of spec.md §4.4:
// for each ratio, clone the scene, simplify every mesh, optionally retarget
// its textures, and persist it — sequentially, one ratio at a time, so the
// core never races two ratios over the same scene clone. Grounded on the
// teacher's internal/batch/processor.go Config/Result shape, adapted from a
// parallel worker pool (teacher has no per-item cross-dependency) to a
// sequential pipeline (each ratio here depends on nothing but the original
// scene, but writes its own directory tree, so parallelizing across ratios
// is a caller decision — see internal/batch for that host-level fan-out).
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/lodgen/lodgen/internal/atlaspack"
	"github.com/lodgen/lodgen/internal/lodgenerr"
	"github.com/lodgen/lodgen/internal/scene"
	"github.com/lodgen/lodgen/internal/sceneio"
	"github.com/lodgen/lodgen/internal/simplify"
	"github.com/lodgen/lodgen/internal/texproc"
)

// Options configures one GenerateLODs call.
type Options struct {
	Ratios         []float64
	ResizeTextures bool
	OutputDir      string
}

// MeshResult reports one mesh's simplification outcome within a LOD.
type MeshResult struct {
	OriginalTris   int
	SimplifiedTris int
	ErrorMetric    float32
}

// LodInfo reports the outcome of generating one ratio's LOD.
type LodInfo struct {
	Ratio         float64
	OutputPath    string
	MeshResults   []MeshResult
	TextureStats  *texproc.Stats
}

// GenerateLODs produces one output scene per ratio in opts.Ratios, in order,
// mirroring lodgen.cpp's generateLods: "lod1", "lod2", ... subdirectories
// named by ratio position, each containing "<stem>_lodN<ext>".
func GenerateLODs(ctx context.Context, s *scene.Scene, inputPath string, opts Options) ([]LodInfo, error) {
	var results []LodInfo

	for i, ratio := range opts.Ratios {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		info, err := generateOne(s, inputPath, ratio, i+1, opts)
		if err != nil {
			return results, err
		}
		results = append(results, info)
	}

	return results, nil
}

func generateOne(s *scene.Scene, inputPath string, ratio float64, ordinal int, opts Options) (LodInfo, error) {
	lodName := "lod" + strconv.Itoa(ordinal)
	lodDir := filepath.Join(opts.OutputDir, lodName)

	ext := filepath.Ext(inputPath)
	stem := filepath.Base(inputPath[:len(inputPath)-len(ext)])
	outPath := filepath.Join(lodDir, fmt.Sprintf("%s_%s%s", stem, lodName, ext))

	clone := s.Clone()

	meshResults := make([]MeshResult, len(clone.Meshes))
	for i := range clone.Meshes {
		r := simplify.Simplify(&clone.Meshes[i], ratio)
		meshResults[i] = MeshResult{OriginalTris: r.OriginalTris, SimplifiedTris: r.SimplifiedTris, ErrorMetric: r.ErrorMetric}
	}

	var texStats *texproc.Stats
	if opts.ResizeTextures {
		stats, err := texproc.Process(clone, ratio, texproc.Options{
			ModelDir:  filepath.Dir(inputPath),
			OutputDir: lodDir,
			Resize:    true,
		})
		if err != nil {
			return LodInfo{}, err
		}
		texStats = &stats
	}

	if err := sceneio.Save(clone, outPath); err != nil {
		return LodInfo{}, err
	}

	return LodInfo{Ratio: ratio, OutputPath: outPath, MeshResults: meshResults, TextureStats: texStats}, nil
}

// BuildLODAtlas reloads a previously generated LOD model, packs its textures
// into one atlas image per active texture type, and re-saves it in place
// (spec.md §4.4's separate build_lod_atlas step, grounded on lodgen.cpp's
// buildLodAtlas: load mutable -> build atlas -> re-save the same path).
func BuildLODAtlas(modelPath string, outputDir string) ([]atlaspack.Info, error) {
	s, err := sceneio.Load(modelPath)
	if err != nil {
		return nil, err
	}

	infos, err := atlaspack.Build(s, atlaspack.Options{ModelDir: filepath.Dir(modelPath), OutputDir: outputDir})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, nil
	}

	if err := sceneio.Save(s, modelPath); err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.AtlasBuildFailed, err, "re-save %s after atlas build", modelPath)
	}

	return infos, nil
}
