package meshkernel

import "sort"

// cacheSize is the simulated post-transform vertex cache size the Forsyth
// scoring function optimizes for (meshopt defaults to 16).
const cacheSize = 16

// OptimizeVertexCache reorders a triangle list to improve post-transform
// vertex cache hit rate, mirroring meshopt_optimizeVertexCache's contract:
// a greedy Tom Forsyth-style scorer that always emits the highest-scoring
// available triangle next.
func OptimizeVertexCache(indices []uint32, vertexCount int) []uint32 {
	triCount := len(indices) / 3
	if triCount == 0 {
		return append([]uint32(nil), indices...)
	}

	vertTris := make([][]int, vertexCount)
	for t := 0; t < triCount; t++ {
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			vertTris[v] = append(vertTris[v], t)
		}
	}

	liveTriCount := make([]int, vertexCount)
	for v := range vertTris {
		liveTriCount[v] = len(vertTris[v])
	}

	cachePos := make([]int, vertexCount)
	for i := range cachePos {
		cachePos[i] = -1
	}
	emitted := make([]bool, triCount)

	cache := make([]uint32, 0, cacheSize+3)

	score := func(v uint32) float64 {
		ltc := liveTriCount[v]
		if ltc == 0 {
			return -1
		}
		var cs float64
		pos := cachePos[v]
		if pos >= 0 {
			if pos < 3 {
				cs = 0.75
			} else {
				scaled := 1.0 - float64(pos-3)/float64(cacheSize-3)
				cs = scaled * scaled * scaled
			}
		}
		valence := 2.0 / float64(ltc)
		return cs + valence
	}

	triScore := func(t int) float64 {
		s := 0.0
		for k := 0; k < 3; k++ {
			s += score(indices[t*3+k])
		}
		return s
	}

	out := make([]uint32, 0, len(indices))
	next := -1

	for emittedCount := 0; emittedCount < triCount; emittedCount++ {
		if next < 0 {
			best, bestScore := -1, -1.0
			for t := 0; t < triCount; t++ {
				if emitted[t] {
					continue
				}
				s := triScore(t)
				if s > bestScore {
					bestScore, best = s, t
				}
			}
			next = best
		}
		if next < 0 {
			break
		}

		t := next
		next = -1
		emitted[t] = true
		out = append(out, indices[t*3], indices[t*3+1], indices[t*3+2])

		touched := map[uint32]bool{}
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			liveTriCount[v]--
			touched[v] = true
		}

		newCache := make([]uint32, 0, len(cache)+3)
		newCache = append(newCache, indices[t*3], indices[t*3+1], indices[t*3+2])
		for _, v := range cache {
			if v != indices[t*3] && v != indices[t*3+1] && v != indices[t*3+2] {
				newCache = append(newCache, v)
			}
		}
		if len(newCache) > cacheSize {
			newCache = newCache[:cacheSize]
		}
		cache = newCache
		for i := range cachePos {
			cachePos[i] = -1
		}
		for i, v := range cache {
			cachePos[v] = i
		}

		bestScore := -1.0
		for _, v := range cache {
			for _, ct := range vertTris[v] {
				if emitted[ct] {
					continue
				}
				s := triScore(ct)
				if s > bestScore {
					bestScore, next = s, ct
				}
			}
		}
	}

	return out
}

// OptimizeOverdraw further reorders triangles using positions, approximating
// meshopt_optimizeOverdraw's contract: split the triangle list, in its
// vertex-cache order, into consecutive groups and sort each group by the Z
// coordinate of its triangle centroids, trading cache locality (bounded by
// threshold) for reduced overdraw.
func OptimizeOverdraw(indices []uint32, positions []float32, vertexCount int, threshold float32) []uint32 {
	triCount := len(indices) / 3
	if triCount == 0 {
		return append([]uint32(nil), indices...)
	}

	centroidZ := make([]float64, triCount)
	for t := 0; t < triCount; t++ {
		var sum float64
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			sum += float64(positions[int(v)*PositionStrideFloats+2])
		}
		centroidZ[t] = sum / 3
	}

	groupSize := int(float64(triCount) / float64(threshold) / 4)
	if groupSize < 1 {
		groupSize = 1
	}

	out := make([]uint32, 0, len(indices))
	for start := 0; start < triCount; start += groupSize {
		end := start + groupSize
		if end > triCount {
			end = triCount
		}
		group := make([]int, end-start)
		for i := range group {
			group[i] = start + i
		}
		sort.Slice(group, func(i, j int) bool { return centroidZ[group[i]] < centroidZ[group[j]] })
		for _, t := range group {
			out = append(out, indices[t*3], indices[t*3+1], indices[t*3+2])
		}
	}
	return out
}

// OptimizeVertexFetchRemap computes a remap table that compacts vertices to
// their first-appearance order in indices, mirroring
// meshopt_optimizeVertexFetchRemap's contract. Entries for vertices never
// referenced are left as SentinelRemap.
const SentinelRemap = ^uint32(0)

func OptimizeVertexFetchRemap(indices []uint32, vertexCount int) []uint32 {
	remap := make([]uint32, vertexCount)
	for i := range remap {
		remap[i] = SentinelRemap
	}
	next := uint32(0)
	for _, idx := range indices {
		if remap[idx] == SentinelRemap {
			remap[idx] = next
			next++
		}
	}
	return remap
}

// RemapIndexBuffer rewrites indices through remap, mirroring
// meshopt_remapIndexBuffer's contract.
func RemapIndexBuffer(indices []uint32, remap []uint32) []uint32 {
	out := make([]uint32, len(indices))
	for i, idx := range indices {
		out[i] = remap[idx]
	}
	return out
}
