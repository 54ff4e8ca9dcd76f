package simplify

import (
	"testing"

	"github.com/lodgen/lodgen/internal/scene"
)

func gridMesh() *scene.Mesh {
	// Two coplanar triangles forming a unit square, split along the diagonal.
	return &scene.Mesh{
		Positions: [][3]float32{
			{0, 0, 0},
			{1, 0, 0},
			{1, 1, 0},
			{0, 1, 0},
		},
		Normals: [][3]float32{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		UVChannels: [][][3]float32{
			{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		},
		Indices:       []uint32{0, 1, 2, 0, 2, 3},
		PrimitiveKind: scene.Triangles,
	}
}

func TestSimplifyLeavesNonTriangleMeshUnchanged(t *testing.T) {
	mesh := gridMesh()
	mesh.PrimitiveKind = scene.PrimitiveKind(99)
	origIndices := append([]uint32(nil), mesh.Indices...)

	result := Simplify(mesh, 0.1)

	if result.OriginalTris != result.SimplifiedTris {
		t.Errorf("non-triangle mesh should report unchanged triangle count, got %d -> %d", result.OriginalTris, result.SimplifiedTris)
	}
	for i, idx := range mesh.Indices {
		if idx != origIndices[i] {
			t.Fatalf("non-triangle mesh indices were mutated")
		}
	}
}

func TestSimplifyLeavesEmptyIndicesUnchanged(t *testing.T) {
	mesh := gridMesh()
	mesh.Indices = nil

	result := Simplify(mesh, 0.5)
	if result.OriginalTris != 0 || result.SimplifiedTris != 0 {
		t.Errorf("empty-index mesh should report zero triangles, got %+v", result)
	}
}

func TestSimplifyKeepsAttributeArraysInLockstepWithVertices(t *testing.T) {
	mesh := gridMesh()
	Simplify(mesh, 0.5)

	v := mesh.VertexCount()
	if len(mesh.Normals) != v {
		t.Errorf("Normals length %d != vertex count %d", len(mesh.Normals), v)
	}
	if len(mesh.UVChannels) != 1 || len(mesh.UVChannels[0]) != v {
		t.Errorf("UVChannels[0] length mismatch with vertex count %d", v)
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= v {
			t.Fatalf("index %d out of range for %d vertices", idx, v)
		}
	}
}

func TestSimplifyDropsBoneWeightsForCollapsedVertices(t *testing.T) {
	mesh := gridMesh()
	mesh.Bones = []scene.Bone{
		{Name: "root", Weights: []scene.BoneWeight{
			{VertexID: 0, Weight: 1.0},
			{VertexID: 1, Weight: 1.0},
			{VertexID: 2, Weight: 1.0},
			{VertexID: 3, Weight: 1.0},
		}},
	}

	Simplify(mesh, 0.25)

	v := mesh.VertexCount()
	for _, w := range mesh.Bones[0].Weights {
		if int(w.VertexID) >= v {
			t.Errorf("bone weight references vertex %d, but mesh only has %d vertices after collapse", w.VertexID, v)
		}
	}
}

func TestSimplifyReducesTriangleCountForLargeRatio(t *testing.T) {
	mesh := gridMesh()
	result := Simplify(mesh, 0.01)
	if result.SimplifiedTris >= result.OriginalTris {
		t.Errorf("simplification did not reduce triangle count: %d >= %d", result.SimplifiedTris, result.OriginalTris)
	}
}
