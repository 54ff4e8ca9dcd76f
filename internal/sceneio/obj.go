package sceneio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lodgen/lodgen/internal/lodgenerr"
	"github.com/lodgen/lodgen/internal/scene"
)

// objVertexKey is the (position, uv, normal) attribute triple OBJ faces
// reference; joinIdenticalVertices merges faces that reuse the exact same
// triple into one mesh-local vertex, mirroring aiProcess_JoinIdenticalVertices.
type objVertexKey struct{ p, t, n int }

type objFace struct {
	verts  []objVertexKey
	matIdx int
}

func loadOBJ(path string) (*scene.Scene, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.FileNotFound, err, "scene file not found: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.ImportFailed, err, "open %s", path)
	}
	defer f.Close()

	var positions, normals [][3]float32
	var uvs [][3]float32
	materialNames := map[string]int{}
	var materials []scene.Material
	mtlLib := ""

	var faces []objFace
	curMat := -1

	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			positions = append(positions, parseVec3(fields[1:]))
		case "vn":
			normals = append(normals, parseVec3(fields[1:]))
		case "vt":
			uvs = append(uvs, parseVec3(fields[1:]))
		case "mtllib":
			mtlLib = strings.Join(fields[1:], " ")
		case "usemtl":
			name := strings.Join(fields[1:], " ")
			idx, ok := materialNames[name]
			if !ok {
				idx = len(materials)
				materials = append(materials, scene.Material{Name: name, Slots: map[scene.TextureType][]scene.TextureSlot{}})
				materialNames[name] = idx
			}
			curMat = idx
		case "f":
			var verts []objVertexKey
			for _, tok := range fields[1:] {
				verts = append(verts, parseFaceToken(tok))
			}
			faces = append(faces, objFace{verts: verts, matIdx: curMat})
		}
	}
	if err := scan.Err(); err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.ImportFailed, err, "scan %s", path)
	}

	if mtlLib != "" {
		mtlPath := filepath.Join(filepath.Dir(path), mtlLib)
		if err := loadMTL(mtlPath, materialNames, materials); err != nil {
			return nil, err
		}
	}

	// Group faces by material index; each group becomes one Mesh
	// (spec.md §3.1's "one material per mesh" invariant).
	byMat := map[int][]objFace{}
	var matOrder []int
	for _, fc := range faces {
		if _, ok := byMat[fc.matIdx]; !ok {
			matOrder = append(matOrder, fc.matIdx)
		}
		byMat[fc.matIdx] = append(byMat[fc.matIdx], fc)
	}

	var meshes []scene.Mesh
	for _, matIdx := range matOrder {
		mesh := buildMeshFromFaces(byMat[matIdx], positions, normals, uvs, matIdx)
		meshes = append(meshes, mesh)
	}

	root := &scene.Node{Name: "root"}
	for i := range meshes {
		root.MeshIndices = append(root.MeshIndices, i)
	}

	return &scene.Scene{Meshes: meshes, Materials: materials, Root: root}, nil
}

func parseVec3(fields []string) [3]float32 {
	var v [3]float32
	for i := 0; i < 3 && i < len(fields); i++ {
		f, _ := strconv.ParseFloat(fields[i], 32)
		v[i] = float32(f)
	}
	return v
}

// parseFaceToken parses "v", "v/t", "v//n" or "v/t/n", 1-based and possibly
// negative (relative-to-end) per the OBJ spec. 0 means absent.
func parseFaceToken(tok string) objVertexKey {
	parts := strings.Split(tok, "/")
	var k objVertexKey
	if len(parts) > 0 && parts[0] != "" {
		k.p, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 && parts[1] != "" {
		k.t, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 && parts[2] != "" {
		k.n, _ = strconv.Atoi(parts[2])
	}
	return k
}

// buildMeshFromFaces triangulates each face fan and joins identical
// (position, uv, normal) vertex triples into one compacted Mesh.
func buildMeshFromFaces(faces []objFace, positions, normals, uvs [][3]float32, matIdx int) scene.Mesh {
	seen := map[objVertexKey]uint32{}
	var outPos, outNorm, outUV [][3]float32
	hasNormals := false
	hasUV := false

	resolve := func(k objVertexKey) uint32 {
		if idx, ok := seen[k]; ok {
			return idx
		}
		idx := uint32(len(outPos))
		seen[k] = idx
		outPos = append(outPos, resolveIndexed(positions, k.p))
		if k.n != 0 {
			outNorm = append(outNorm, resolveIndexed(normals, k.n))
			hasNormals = true
		} else {
			outNorm = append(outNorm, [3]float32{})
		}
		if k.t != 0 {
			outUV = append(outUV, resolveIndexed(uvs, k.t))
			hasUV = true
		} else {
			outUV = append(outUV, [3]float32{})
		}
		return idx
	}

	var indices []uint32
	for _, fc := range faces {
		polyIdx := make([]uint32, len(fc.verts))
		for i, k := range fc.verts {
			polyIdx[i] = resolve(k)
		}
		indices = append(indices, triangulate(polyIdx)...)
	}

	mesh := scene.Mesh{
		Positions:     outPos,
		Indices:       indices,
		PrimitiveKind: scene.Triangles,
		MaterialIndex: matIdx,
	}
	if hasNormals {
		mesh.Normals = outNorm
	}
	if hasUV {
		mesh.UVChannels = [][][3]float32{outUV}
	}
	return mesh
}

// resolveIndexed turns a 1-based, possibly negative OBJ index into a
// zero-based array lookup; out-of-range indices yield a zero vector.
func resolveIndexed(arr [][3]float32, idx int) [3]float32 {
	if idx == 0 {
		return [3]float32{}
	}
	var i int
	if idx > 0 {
		i = idx - 1
	} else {
		i = len(arr) + idx
	}
	if i < 0 || i >= len(arr) {
		return [3]float32{}
	}
	return arr[i]
}

func loadMTL(path string, names map[string]int, materials []scene.Material) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // MTL is best-effort; a missing library leaves untextured materials
	}
	defer f.Close()

	cur := -1
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "newmtl":
			name := strings.Join(fields[1:], " ")
			if idx, ok := names[name]; ok {
				cur = idx
			} else {
				cur = -1
			}
		case "map_Kd":
			addSlot(materials, cur, scene.Diffuse, fields[len(fields)-1])
		case "map_Bump", "map_bump":
			addSlot(materials, cur, scene.Normals, fields[len(fields)-1])
		case "map_Ks":
			addSlot(materials, cur, scene.Specular, fields[len(fields)-1])
		case "map_Ns":
			addSlot(materials, cur, scene.Shininess, fields[len(fields)-1])
		case "map_d":
			addSlot(materials, cur, scene.Opacity, fields[len(fields)-1])
		}
	}
	return nil
}

func addSlot(materials []scene.Material, idx int, t scene.TextureType, path string) {
	if idx < 0 || idx >= len(materials) {
		return
	}
	if materials[idx].Slots == nil {
		materials[idx].Slots = map[scene.TextureType][]scene.TextureSlot{}
	}
	materials[idx].Slots[t] = append(materials[idx].Slots[t], scene.TextureSlot{Path: path})
}

// saveOBJ writes s as a Wavefront OBJ + sidecar MTL, with material texture
// paths emitted verbatim: a "*N" embedded-texture reference is written as
// "*N", and embedded texture data is not exported.
func saveOBJ(s *scene.Scene, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "create output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "create %s", path)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mtlName := base + ".mtl"

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "mtllib %s\n", mtlName)

	posBase, uvBase, normBase := 1, 1, 1
	for mi := range s.Meshes {
		mesh := &s.Meshes[mi]
		for _, p := range mesh.Positions {
			fmt.Fprintf(w, "v %g %g %g\n", p[0], p[1], p[2])
		}
		hasUV := len(mesh.UVChannels) > 0
		if hasUV {
			for _, uv := range mesh.UVChannels[0] {
				fmt.Fprintf(w, "vt %g %g\n", uv[0], uv[1])
			}
		}
		hasNorm := mesh.Normals != nil
		if hasNorm {
			for _, n := range mesh.Normals {
				fmt.Fprintf(w, "vn %g %g %g\n", n[0], n[1], n[2])
			}
		}

		if mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(s.Materials) {
			fmt.Fprintf(w, "usemtl %s\n", materialExportName(&s.Materials[mesh.MaterialIndex], mesh.MaterialIndex))
		}

		for t := 0; t+2 < len(mesh.Indices); t += 3 {
			fmt.Fprint(w, "f")
			for k := 0; k < 3; k++ {
				idx := int(mesh.Indices[t+k])
				writeFaceVertex(w, idx, posBase, uvBase, normBase, hasUV, hasNorm)
			}
			fmt.Fprint(w, "\n")
		}

		posBase += len(mesh.Positions)
		if hasUV {
			uvBase += len(mesh.UVChannels[0])
		}
		if hasNorm {
			normBase += len(mesh.Normals)
		}
	}
	if err := w.Flush(); err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "write %s", path)
	}

	return saveMTL(s, filepath.Join(filepath.Dir(path), mtlName))
}

func writeFaceVertex(w *bufio.Writer, idx, posBase, uvBase, normBase int, hasUV, hasNorm bool) {
	p := posBase + idx
	switch {
	case hasUV && hasNorm:
		fmt.Fprintf(w, " %d/%d/%d", p, uvBase+idx, normBase+idx)
	case hasUV:
		fmt.Fprintf(w, " %d/%d", p, uvBase+idx)
	case hasNorm:
		fmt.Fprintf(w, " %d//%d", p, normBase+idx)
	default:
		fmt.Fprintf(w, " %d", p)
	}
}

func materialExportName(m *scene.Material, idx int) string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("material_%d", idx)
}

func saveMTL(s *scene.Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for mi := range s.Materials {
		m := &s.Materials[mi]
		fmt.Fprintf(w, "newmtl %s\n", materialExportName(m, mi))
		writeMTLSlot(w, m, scene.Diffuse, "map_Kd")
		writeMTLSlot(w, m, scene.Specular, "map_Ks")
		writeMTLSlot(w, m, scene.Shininess, "map_Ns")
		writeMTLSlot(w, m, scene.Opacity, "map_d")
		writeMTLSlot(w, m, scene.Normals, "map_Bump")
	}
	if err := w.Flush(); err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "write %s", path)
	}
	return nil
}

func writeMTLSlot(w *bufio.Writer, m *scene.Material, t scene.TextureType, keyword string) {
	slots := m.SlotsOf(t)
	if len(slots) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %s\n", keyword, slots[0].Path)
}
