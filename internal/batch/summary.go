package batch

import (
	"encoding/json"
	"os"
)

// SummaryEntry is one job's outcome in the output manifest.
type SummaryEntry struct {
	ScenePath string   `json:"scene_path"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
}

// WriteSummary writes a JSON manifest of every job's outcome to path,
// mirroring the teacher's WriteManifest step but summarizing LOD outputs
// instead of rendered item thumbnails.
func WriteSummary(path string, results []Result) error {
	entries := make([]SummaryEntry, len(results))
	for i, r := range results {
		var outputs []string
		for _, lod := range r.Lods {
			outputs = append(outputs, lod.OutputPath)
		}
		entries[i] = SummaryEntry{
			ScenePath: r.Job.ScenePath,
			Success:   r.Success,
			Error:     r.Error,
			Outputs:   outputs,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
