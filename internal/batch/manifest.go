// Package batch is the host-level multi-scene driver spec.md §5 leaves room
// for: "the core library itself performs no internal parallelism... a host
// application may parallelize independent invocations across ratios or
// scenes." This package is that host, reading a worklist of scenes from an
// XML manifest and running them through a worker pool, each job owning its
// own orchestrator.GenerateLODs call over its own scene clone. Grounded on
// the teacher's internal/itemlist/parser.go XML-unmarshal pattern (this
// file) and internal/batch/processor.go's worker pool (processor.go).
package batch

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Job is one scene to run through the LOD pipeline.
type Job struct {
	ScenePath      string
	OutputDir      string
	Ratios         []float64
	ResizeTextures bool
	BuildAtlas     bool
}

type xmlManifest struct {
	Scenes []xmlScene `xml:"Scene"`
}

type xmlScene struct {
	Path           string `xml:"path,attr"`
	OutputDir      string `xml:"outputDir,attr"`
	Ratios         string `xml:"ratios,attr"`
	ResizeTextures bool   `xml:"resizeTextures,attr"`
	BuildAtlas     bool   `xml:"buildAtlas,attr"`
}

// ParseManifest reads an XML worklist of the form:
//
//	<Manifest>
//	  <Scene path="models/hero.lodscene" outputDir="out/hero" ratios="0.5,0.25,0.1" resizeTextures="true"/>
//	</Manifest>
func ParseManifest(path string) ([]Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}

	var doc xmlManifest
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("batch: parse %s: %w", path, err)
	}

	var jobs []Job
	for _, sc := range doc.Scenes {
		if sc.Path == "" {
			continue
		}
		ratios, err := parseRatios(sc.Ratios)
		if err != nil {
			return nil, fmt.Errorf("batch: scene %s: %w", sc.Path, err)
		}
		jobs = append(jobs, Job{
			ScenePath:      sc.Path,
			OutputDir:      sc.OutputDir,
			Ratios:         ratios,
			ResizeTextures: sc.ResizeTextures,
			BuildAtlas:     sc.BuildAtlas,
		})
	}

	return jobs, nil
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
