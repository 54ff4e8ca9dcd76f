package batch

import (
	"os"
	"path/filepath"
	"testing"
)

const manifestXML = `<Manifest>
  <Scene path="models/hero.lodscene" outputDir="out/hero" ratios="0.5,0.25,0.1" resizeTextures="true"/>
  <Scene path="models/sword.lodscene" ratios="0.75" buildAtlas="true"/>
  <Scene path="" ratios="0.5"/>
</Manifest>`

func TestParseManifestBuildsJobsSkippingEmptyPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.xml")
	os.WriteFile(path, []byte(manifestXML), 0644)

	jobs, err := ParseManifest(path)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs (empty path skipped), got %d", len(jobs))
	}

	if jobs[0].ScenePath != "models/hero.lodscene" {
		t.Errorf("job0 ScenePath = %q", jobs[0].ScenePath)
	}
	if len(jobs[0].Ratios) != 3 || jobs[0].Ratios[2] != 0.1 {
		t.Errorf("job0 Ratios = %v", jobs[0].Ratios)
	}
	if !jobs[0].ResizeTextures {
		t.Error("job0 ResizeTextures should be true")
	}

	if jobs[1].ScenePath != "models/sword.lodscene" {
		t.Errorf("job1 ScenePath = %q", jobs[1].ScenePath)
	}
	if !jobs[1].BuildAtlas {
		t.Error("job1 BuildAtlas should be true")
	}
}

func TestParseManifestRejectsInvalidRatio(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.xml")
	os.WriteFile(path, []byte(`<Manifest><Scene path="a.obj" ratios="not-a-number"/></Manifest>`), 0644)

	if _, err := ParseManifest(path); err == nil {
		t.Fatal("expected error for an unparseable ratio")
	}
}

func TestParseManifestRejectsRatioOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.xml")
	os.WriteFile(path, []byte(`<Manifest><Scene path="a.obj" ratios="0.5,1.5"/></Manifest>`), 0644)

	if _, err := ParseManifest(path); err == nil {
		t.Fatal("expected error for a ratio outside (0, 1)")
	}
}

func TestParseManifestMissingFile(t *testing.T) {
	if _, err := ParseManifest("/nonexistent/manifest.xml"); err == nil {
		t.Fatal("expected error for missing manifest file")
	}
}
