// Package simplify implements the attribute-aware mesh simplifier of
// spec.md §4.1: interleave → extract positions/attributes → quadric
// collapse via internal/meshkernel → vertex-cache/overdraw reorder →
// atomic compaction → bone-weight remap.
package simplify

import (
	"github.com/lodgen/lodgen/internal/meshkernel"
	"github.com/lodgen/lodgen/internal/scene"
)

// Result reports one mesh's simplification outcome.
type Result struct {
	OriginalTris   int
	SimplifiedTris int
	ErrorMetric    float32
}

const (
	maxUVChannels    = 8
	maxColorChannels = 8
)

// layout records which optional per-vertex arrays mesh carries.
type layout struct {
	hasNormals   bool
	hasTangents  bool // tangents + bitangents travel together
	uvChannels   int
	colorChannels int
}

func detectLayout(m *scene.Mesh) layout {
	l := layout{
		hasNormals:  m.Normals != nil,
		hasTangents: m.Tangents != nil && m.Bitangents != nil,
	}
	for _, ch := range m.UVChannels {
		if ch == nil {
			break
		}
		l.uvChannels++
		if l.uvChannels == maxUVChannels {
			break
		}
	}
	for _, ch := range m.ColorChannels {
		if ch == nil {
			break
		}
		l.colorChannels++
		if l.colorChannels == maxColorChannels {
			break
		}
	}
	return l
}

// aosVertex is the wide interleaved record used ONLY for the single
// compaction remap pass (spec.md §4.1 step 2 and §9's "three separate
// views" design note). It is never handed to the kernel directly: the
// kernel's stride limit (meshkernel.MaxPositionStrideBytes, 256) is smaller
// than sizeof(aosVertex), 272 bytes.
type aosVertex struct {
	position [3]float32
	normal   [3]float32
	tangent  [3]float32
	bitangent [3]float32
	uv       [maxUVChannels][3]float32
	color    [maxColorChannels][4]float32
}

func interleave(m *scene.Mesh, l layout) []aosVertex {
	v := m.VertexCount()
	out := make([]aosVertex, v)
	for i := 0; i < v; i++ {
		out[i].position = m.Positions[i]
		if l.hasNormals {
			out[i].normal = m.Normals[i]
		}
		if l.hasTangents {
			out[i].tangent = m.Tangents[i]
			out[i].bitangent = m.Bitangents[i]
		}
		for ch := 0; ch < l.uvChannels; ch++ {
			out[i].uv[ch] = m.UVChannels[ch][i]
		}
		for ch := 0; ch < l.colorChannels; ch++ {
			out[i].color[ch] = m.ColorChannels[ch][i]
		}
	}
	return out
}

func extractPositions(verts []aosVertex) []float32 {
	out := make([]float32, len(verts)*3)
	for i, v := range verts {
		out[i*3+0] = v.position[0]
		out[i*3+1] = v.position[1]
		out[i*3+2] = v.position[2]
	}
	return out
}

// attributeBundle is the §4.1 step 4 compact attribute array plus the
// per-component weight vector that biases the quadric toward UV0 and shape.
type attributeBundle struct {
	data    []float32
	weights []float32
	count   int
}

func buildAttributes(verts []aosVertex, l layout) attributeBundle {
	uvChans := l.uvChannels
	needed := uvChans*2 + boolToInt(l.hasNormals)*3
	for needed > meshkernel.MaxAttributeCount && uvChans > 0 {
		uvChans--
		needed = uvChans*2 + boolToInt(l.hasNormals)*3
	}
	useNormals := l.hasNormals && needed <= meshkernel.MaxAttributeCount

	count := uvChans*2 + boolToInt(useNormals)*3
	if count == 0 {
		return attributeBundle{}
	}

	n := len(verts)
	data := make([]float32, n*count)
	weights := make([]float32, count)

	offset := 0
	for ch := 0; ch < uvChans; ch++ {
		w := float32(0.8)
		if ch == 0 {
			w = 1.5
		}
		for i, v := range verts {
			data[i*count+offset+0] = v.uv[ch][0]
			data[i*count+offset+1] = v.uv[ch][1]
		}
		weights[offset+0] = w
		weights[offset+1] = w
		offset += 2
	}
	if useNormals {
		for i, v := range verts {
			data[i*count+offset+0] = v.normal[0]
			data[i*count+offset+1] = v.normal[1]
			data[i*count+offset+2] = v.normal[2]
		}
		weights[offset+0] = 0.5
		weights[offset+1] = 0.5
		weights[offset+2] = 0.5
	}

	return attributeBundle{data: data, weights: weights, count: count}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Simplify mutates mesh in place to approximately ratio * original triangle
// count, preserving every per-vertex attribute array's lockstep with the
// compacted vertex set and remapping bone weights. ratio must be in (0, 1).
// Meshes whose PrimitiveKind isn't Triangles, or with no indices, are left
// unchanged (spec.md §4.1 contract, "the simplifier never fails").
func Simplify(mesh *scene.Mesh, ratio float64) Result {
	originalTris := len(mesh.Indices) / 3
	result := Result{OriginalTris: originalTris, SimplifiedTris: originalTris}

	if mesh.PrimitiveKind != scene.Triangles || len(mesh.Indices) == 0 {
		return result
	}

	l := detectLayout(mesh)
	verts := interleave(mesh, l)
	positions := extractPositions(verts)

	target := (int(float64(len(mesh.Indices))*ratio) / 3) * 3
	if target < 3 {
		target = 3
	}

	attrs := buildAttributes(verts, l)

	var simplified []uint32
	var errMetric float32
	if attrs.count > 0 {
		simplified, errMetric = meshkernel.SimplifyWithAttributes(
			mesh.Indices, positions, len(verts), attrs.data, attrs.count, attrs.weights, target, 0.01)
	} else {
		simplified, errMetric = meshkernel.Simplify(mesh.Indices, positions, len(verts), target, 0.01)
	}

	simplified = meshkernel.OptimizeVertexCache(simplified, len(verts))
	simplified = meshkernel.OptimizeOverdraw(simplified, positions, len(verts), 1.05)

	remap := meshkernel.OptimizeVertexFetchRemap(simplified, len(verts))
	simplified = meshkernel.RemapIndexBuffer(simplified, remap)

	newVertCount := 0
	for _, r := range remap {
		if r != meshkernel.SentinelRemap && int(r)+1 > newVertCount {
			newVertCount = int(r) + 1
		}
	}
	compacted := make([]aosVertex, newVertCount)
	for old, r := range remap {
		if r != meshkernel.SentinelRemap {
			compacted[r] = verts[old]
		}
	}

	remapBones(mesh, remap)
	unpack(mesh, compacted, l)
	mesh.Indices = simplified

	result.SimplifiedTris = len(mesh.Indices) / 3
	result.ErrorMetric = errMetric
	return result
}

// remapBones rewrites each bone's vertex_id through remap, dropping weights
// for vertices the collapse removed (spec.md §4.1 step 8).
func remapBones(mesh *scene.Mesh, remap []uint32) {
	for b := range mesh.Bones {
		weights := mesh.Bones[b].Weights
		out := weights[:0]
		for _, w := range weights {
			if int(w.VertexID) >= len(remap) {
				continue
			}
			nv := remap[w.VertexID]
			if nv == meshkernel.SentinelRemap {
				continue
			}
			out = append(out, scene.BoneWeight{VertexID: nv, Weight: w.Weight})
		}
		mesh.Bones[b].Weights = out
	}
}

// unpack rebuilds mesh's per-vertex arrays from the compacted AoS buffer,
// matching the layout detected in step 1 (spec.md §4.1 step 9).
func unpack(mesh *scene.Mesh, verts []aosVertex, l layout) {
	n := len(verts)
	mesh.Positions = make([][3]float32, n)
	for i, v := range verts {
		mesh.Positions[i] = v.position
	}

	if l.hasNormals {
		mesh.Normals = make([][3]float32, n)
		for i, v := range verts {
			mesh.Normals[i] = v.normal
		}
	} else {
		mesh.Normals = nil
	}

	if l.hasTangents {
		mesh.Tangents = make([][3]float32, n)
		mesh.Bitangents = make([][3]float32, n)
		for i, v := range verts {
			mesh.Tangents[i] = v.tangent
			mesh.Bitangents[i] = v.bitangent
		}
	} else {
		mesh.Tangents = nil
		mesh.Bitangents = nil
	}

	if l.uvChannels > 0 {
		mesh.UVChannels = make([][][3]float32, l.uvChannels)
		for ch := 0; ch < l.uvChannels; ch++ {
			chData := make([][3]float32, n)
			for i, v := range verts {
				chData[i] = v.uv[ch]
			}
			mesh.UVChannels[ch] = chData
		}
	} else {
		mesh.UVChannels = nil
	}

	if l.colorChannels > 0 {
		mesh.ColorChannels = make([][][4]float32, l.colorChannels)
		for ch := 0; ch < l.colorChannels; ch++ {
			chData := make([][4]float32, n)
			for i, v := range verts {
				chData[i] = v.color[ch]
			}
			mesh.ColorChannels[ch] = chData
		}
	} else {
		mesh.ColorChannels = nil
	}
}
