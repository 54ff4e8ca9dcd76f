// Package sceneio is the scene load/save collaborator spec.md §1 and §3.1
// describe: OBJ import triangulates and joins identical vertices; export
// works from a private deep copy and strips materials no mesh references.
// Meshes are not sorted or split by primitive kind. Grounded on
// original_source/lodgen/scene_io.cpp's Assimp-backed loadScene/saveScene
// pair, reworked onto two formats a pure-Go module can actually read and
// write: Wavefront OBJ and a native JSON scene format ("lodscene").
package sceneio

import (
	"path/filepath"
	"strings"

	"github.com/lodgen/lodgen/internal/lodgenerr"
	"github.com/lodgen/lodgen/internal/scene"
)

// SupportedFormats lists the file extensions Load and Save accept, mirroring
// scene_io.cpp's supportedFormats() (there backed by every format Assimp's
// Exporter registry knows; here, the two this module implements).
func SupportedFormats() []string {
	return []string{".obj", ".lodscene"}
}

// Load reads path. For .obj it fan-triangulates every face (dropping faces
// with fewer than three vertices) and joins identical vertices, so every
// mesh it returns is Triangles. A .lodscene file is loaded as stored: no
// triangulation, joining or sorting, and a mesh may keep any PrimitiveKind,
// including Mixed.
func Load(path string) (*scene.Scene, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var s *scene.Scene
	var err error

	switch ext {
	case ".obj":
		s, err = loadOBJ(path)
	case ".lodscene":
		s, err = loadLodScene(path)
	default:
		return nil, lodgenerr.New(lodgenerr.UnsupportedFormat, "no import format for extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	s.SourcePath = path
	return s, nil
}

// Save exports s to path from a private deep copy, so the caller's in-memory
// Scene is never mutated by the export step (scene_io.cpp's saveScene does
// the same for exporters that rewrite vertex data in place). Materials no
// mesh references are stripped first.
func Save(s *scene.Scene, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".obj" && ext != ".lodscene" {
		return lodgenerr.New(lodgenerr.UnsupportedFormat, "no export format for extension %q", ext)
	}

	copy := s.Clone()
	copy.CompactMaterials()

	switch ext {
	case ".obj":
		return saveOBJ(copy, path)
	case ".lodscene":
		return saveLodScene(copy, path)
	}
	return nil
}

// triangulate fans a polygonal face list into triangles, mirroring
// aiProcess_Triangulate.
func triangulate(face []uint32) []uint32 {
	if len(face) < 3 {
		return nil
	}
	if len(face) == 3 {
		return []uint32{face[0], face[1], face[2]}
	}
	out := make([]uint32, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		out = append(out, face[0], face[i], face[i+1])
	}
	return out
}
