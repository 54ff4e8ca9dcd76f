package meshkernel

import "testing"

// quadPositions builds two coplanar triangles forming a unit square in the
// XY plane, split along the diagonal.
func quadPositions() []float32 {
	return []float32{
		0, 0, 0,
		1, 0, 0,
		1, 1, 0,
		0, 1, 0,
	}
}

func quadIndices() []uint32 {
	return []uint32{0, 1, 2, 0, 2, 3}
}

func TestSimplifyNoOpWhenAlreadyUnderTarget(t *testing.T) {
	indices := quadIndices()
	out, errMetric := Simplify(indices, quadPositions(), 4, 6, 0)
	if len(out) != len(indices) {
		t.Fatalf("expected passthrough of %d indices, got %d", len(indices), len(out))
	}
	if errMetric != 0 {
		t.Errorf("expected zero error for passthrough, got %f", errMetric)
	}
}

func TestSimplifyReducesTriangleCount(t *testing.T) {
	indices := quadIndices()
	out, _ := Simplify(indices, quadPositions(), 4, 3, 1.0)
	if len(out)%3 != 0 {
		t.Fatalf("output index count %d is not a multiple of 3", len(out))
	}
	if len(out) >= len(indices) {
		t.Fatalf("simplification did not reduce the index buffer: %d >= %d", len(out), len(indices))
	}
}

func TestSimplifyEmptyIndices(t *testing.T) {
	out, errMetric := Simplify(nil, nil, 0, 0, 0)
	if len(out) != 0 {
		t.Errorf("expected empty output for empty input, got %v", out)
	}
	if errMetric != 0 {
		t.Errorf("expected zero error for empty input, got %f", errMetric)
	}
}

func TestOptimizeVertexCachePreservesTriangleSet(t *testing.T) {
	indices := []uint32{0, 1, 2, 2, 1, 3, 3, 1, 4}
	out := OptimizeVertexCache(indices, 5)
	if len(out) != len(indices) {
		t.Fatalf("OptimizeVertexCache changed index count: %d != %d", len(out), len(indices))
	}

	origTris := triSet(indices)
	outTris := triSet(out)
	for k := range origTris {
		if !outTris[k] {
			t.Errorf("triangle %v missing after reorder", k)
		}
	}
}

func triSet(indices []uint32) map[[3]uint32]bool {
	set := map[[3]uint32]bool{}
	for t := 0; t < len(indices)/3; t++ {
		tri := [3]uint32{indices[t*3], indices[t*3+1], indices[t*3+2]}
		// normalize rotation-invariant membership by sorting
		if tri[0] > tri[1] {
			tri[0], tri[1] = tri[1], tri[0]
		}
		if tri[1] > tri[2] {
			tri[1], tri[2] = tri[2], tri[1]
		}
		if tri[0] > tri[1] {
			tri[0], tri[1] = tri[1], tri[0]
		}
		set[tri] = true
	}
	return set
}

func TestOptimizeOverdrawPreservesTriangleCount(t *testing.T) {
	indices := quadIndices()
	positions := quadPositions()
	out := OptimizeOverdraw(indices, positions, 4, 3.0)
	if len(out) != len(indices) {
		t.Fatalf("OptimizeOverdraw changed index count: %d != %d", len(out), len(indices))
	}
}

func TestOptimizeVertexFetchRemapCompactsToFirstAppearance(t *testing.T) {
	indices := []uint32{2, 0, 1, 2}
	remap := OptimizeVertexFetchRemap(indices, 4)

	if remap[2] != 0 {
		t.Errorf("vertex 2 (first seen) should remap to 0, got %d", remap[2])
	}
	if remap[0] != 1 {
		t.Errorf("vertex 0 (second seen) should remap to 1, got %d", remap[0])
	}
	if remap[1] != 2 {
		t.Errorf("vertex 1 (third seen) should remap to 2, got %d", remap[1])
	}
	if remap[3] != SentinelRemap {
		t.Errorf("unreferenced vertex 3 should be SentinelRemap, got %d", remap[3])
	}
}

func TestRemapIndexBuffer(t *testing.T) {
	indices := []uint32{0, 1, 2}
	remap := []uint32{5, 6, 7}
	out := RemapIndexBuffer(indices, remap)
	want := []uint32{5, 6, 7}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}
