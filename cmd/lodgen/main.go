// Command lodgen is the CLI front end over the core library: generate LOD
// scenes for one model, or drive a batch of scenes from an XML manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lodgen/lodgen/internal/appconfig"
	"github.com/lodgen/lodgen/internal/batch"
	"github.com/lodgen/lodgen/internal/orchestrator"
	"github.com/lodgen/lodgen/internal/report"
	"github.com/lodgen/lodgen/internal/sceneio"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	modelPath := flag.String("model", "", "Path to the input scene file")
	outputDir := flag.String("output", "", "Output directory (default: <model dir>/lods)")
	ratiosFlag := flag.String("ratios", "", "Comma-separated LOD ratios, e.g. 0.5,0.25,0.1")
	resizeTextures := flag.Bool("resize-textures", false, "Resize and re-encode textures per LOD")
	buildAtlas := flag.Bool("build-atlas", false, "Pack textures into atlases after each LOD")
	manifestPath := flag.String("manifest", "", "Path to an XML batch manifest (overrides -model)")
	workers := flag.Int("workers", 0, "Batch worker count (default: NumCPU)")

	flag.Parse()

	var cfg appconfig.Config
	if *configFile != "" {
		var err error
		cfg, err = appconfig.Load(*configFile)
		if err != nil {
			report.Err("loading config: %v", err)
			os.Exit(1)
		}
	}

	ratios, err := parseRatios(*ratiosFlag)
	if err != nil {
		report.Err("%v", err)
		os.Exit(1)
	}

	if err := cfg.Resolve(appconfig.Flags{
		ModelPath:      *modelPath,
		OutputDir:      *outputDir,
		Ratios:         ratios,
		ResizeTextures: *resizeTextures,
		BuildAtlas:     *buildAtlas,
		ParallelLODs:   *workers,
	}); err != nil {
		report.Err("%v", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *manifestPath != "" {
		runBatch(ctx, *manifestPath, cfg)
		return
	}

	if cfg.ModelPath == "" {
		report.Err("no model specified; use -model or -manifest")
		os.Exit(1)
	}
	runSingle(ctx, cfg)
}

func runSingle(ctx context.Context, cfg appconfig.Config) {
	s, err := sceneio.Load(cfg.ModelPath)
	if err != nil {
		report.Err("loading %s: %v", cfg.ModelPath, err)
		os.Exit(1)
	}

	lods, err := orchestrator.GenerateLODs(ctx, s, cfg.ModelPath, orchestrator.Options{
		Ratios:         cfg.Ratios,
		ResizeTextures: cfg.ResizeTextures,
		OutputDir:      cfg.OutputDir,
	})
	if err != nil {
		report.Err("generating LODs: %v", err)
		os.Exit(1)
	}

	for _, lod := range lods {
		report.OK("lod %.3f -> %s (%d meshes)", lod.Ratio, lod.OutputPath, len(lod.MeshResults))
		if cfg.BuildAtlas {
			if _, err := orchestrator.BuildLODAtlas(lod.OutputPath, filepath.Dir(lod.OutputPath)); err != nil {
				report.Err("atlas for %s: %v", lod.OutputPath, err)
			}
		}
	}
}

func runBatch(ctx context.Context, manifestPath string, cfg appconfig.Config) {
	jobs, err := batch.ParseManifest(manifestPath)
	if err != nil {
		report.Err("reading manifest: %v", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		report.Info("no scenes in manifest")
		return
	}

	results := batch.Run(ctx, batch.Config{Workers: cfg.ParallelLODs}, jobs)

	summaryPath := cfg.OutputDir
	if summaryPath == "" {
		summaryPath = "."
	}
	if err := batch.WriteSummary(summaryPath+"/manifest.json", results); err != nil {
		report.Err("writing summary: %v", err)
	}

	for _, r := range results {
		if r.Success {
			report.OK("%s: %d LODs", r.Job.ScenePath, len(r.Lods))
		} else {
			report.Err("%s: %s", r.Job.ScenePath, r.Error)
		}
	}
}

func parseRatios(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ratio %q: %w", part, err)
		}
		if f <= 0 || f >= 1 {
			return nil, fmt.Errorf("ratio %q out of range (0, 1)", part)
		}
		out = append(out, f)
	}
	return out, nil
}
