// Package meshkernel implements the edge-collapse numeric kernel that
// spec.md §1 calls out as an external collaborator invoked "as a black box
// with a documented API" and §9 describes as "stride-limited": position
// stride <= 256 bytes, attribute count <= 32 floats per vertex. No
// importable pure-Go binding of the reference implementation
// (meshoptimizer, used by original_source/lodgen/mesh_simplifier.cpp) is
// available in this repo's dependency set, so this package is a
// from-scratch Go implementation of the same public contract: quadric-error
// greedy edge collapse, Tom Forsyth vertex-cache scoring, and an overdraw
// reorder pass. See DESIGN.md for why the core carries this on the standard
// library rather than a third-party dependency.
package meshkernel

import (
	"container/heap"

	"github.com/lodgen/lodgen/internal/mathutil"
)

// MaxPositionStrideBytes is the hard limit the kernel accepts for the
// position buffer's vertex stride (spec.md §9).
const MaxPositionStrideBytes = 256

// MaxAttributeCount is the hard limit on attribute floats per vertex
// (spec.md §9).
const MaxAttributeCount = 32

// PositionStrideFloats is the stride lodgen always passes: a tightly
// packed float3, 12 bytes, well under the 256-byte limit (spec.md §4.1
// step 3).
const PositionStrideFloats = 3

// Simplify runs positions-only quadric simplification, mirroring
// meshopt_simplify's contract: indices are a flat triangle-index buffer,
// positions is a flat, tightly packed float3-per-vertex array. Returns the
// simplified index buffer (length a multiple of 3, <= len(indices)) and the
// kernel's scalar error estimate.
func Simplify(indices []uint32, positions []float32, vertexCount int, targetIndexCount int, targetError float32) ([]uint32, float32) {
	return simplifyCore(indices, positions, vertexCount, nil, 0, nil, targetIndexCount, targetError)
}

// SimplifyWithAttributes runs attribute-aware quadric simplification,
// mirroring meshopt_simplifyWithAttributes's contract: attrs is a flat,
// tightly packed array of attrCount floats per vertex, weights has
// attrCount entries biasing the quadric error metric per component.
func SimplifyWithAttributes(indices []uint32, positions []float32, vertexCount int, attrs []float32, attrCount int, weights []float32, targetIndexCount int, targetError float32) ([]uint32, float32) {
	return simplifyCore(indices, positions, vertexCount, attrs, attrCount, weights, targetIndexCount, targetError)
}

// vec3 is an alias for the teacher's own vector type (internal/mathutil),
// reused here for the plane/edge-cost arithmetic the quadric kernel needs.
type vec3 = mathutil.Vec3

// quadric is the symmetric 4x4 error matrix accumulated from adjacent
// triangle planes, flattened to its upper triangle (10 terms) plus the
// weighted sum of attribute quadrics.
type quadric struct {
	a, b, c, d               float64
	a2, ab, ac, ad, b2, bc   float64
	bd, c2, cd, d2           float64
	attrErr                  []float64 // per-attribute accumulated squared-error sum
	attrWeight               float64   // area weight accumulated, for averaging attrErr
}

func newQuadric(attrCount int) quadric {
	return quadric{attrErr: make([]float64, attrCount)}
}

func (q *quadric) addPlane(p vec3, n vec3, area float64) {
	a, b, c := n[0], n[1], n[2]
	d := -n.Dot(p)
	q.a += a * area
	q.b += b * area
	q.c += c * area
	q.d += d * area
	q.a2 += a * a * area
	q.ab += a * b * area
	q.ac += a * c * area
	q.ad += a * d * area
	q.b2 += b * b * area
	q.bc += b * c * area
	q.bd += b * d * area
	q.c2 += c * c * area
	q.cd += c * d * area
	q.d2 += d * d * area
}

func (q *quadric) add(o quadric) {
	q.a += o.a
	q.b += o.b
	q.c += o.c
	q.d += o.d
	q.a2 += o.a2
	q.ab += o.ab
	q.ac += o.ac
	q.ad += o.ad
	q.b2 += o.b2
	q.bc += o.bc
	q.bd += o.bd
	q.c2 += o.c2
	q.cd += o.cd
	q.d2 += o.d2
	q.attrWeight += o.attrWeight
	for i := range q.attrErr {
		q.attrErr[i] += o.attrErr[i]
	}
}

// eval returns the quadric error at point p: p^T A p + 2 b^T p + c form,
// expanded from the plane-distance accumulation above.
func (q *quadric) eval(p vec3) float64 {
	x, y, z := p[0], p[1], p[2]
	e := q.a2*x*x + q.b2*y*y + q.c2*z*z +
		2*q.ab*x*y + 2*q.ac*x*z + 2*q.ad*x +
		2*q.bc*y*z + 2*q.bd*y +
		2*q.cd*z + q.d2
	if e < 0 {
		e = 0
	}
	return e
}

type edgeKey struct{ a, b uint32 }

func normEdge(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

type collapseCandidate struct {
	edge edgeKey
	cost float64
	gen  int // vertex generation stamp to detect stale entries
	ga, gb int
}

type candidateHeap []*collapseCandidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)         { *h = append(*h, x.(*collapseCandidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// simplifyCore is the shared quadric edge-collapse driver for both the
// positions-only and attribute-aware entry points.
func simplifyCore(indices []uint32, positions []float32, vertexCount int, attrs []float32, attrCount int, weights []float32, targetIndexCount int, targetError float32) ([]uint32, float32) {
	if targetIndexCount < 3 {
		targetIndexCount = 3
	}
	targetIndexCount = (targetIndexCount / 3) * 3

	if len(indices) <= targetIndexCount || len(indices) == 0 {
		out := make([]uint32, len(indices))
		copy(out, indices)
		return out, 0
	}

	pos := func(v uint32) vec3 {
		i := int(v) * PositionStrideFloats
		return vec3{float64(positions[i]), float64(positions[i+1]), float64(positions[i+2])}
	}
	attr := func(v uint32) []float64 {
		if attrCount == 0 {
			return nil
		}
		i := int(v) * attrCount
		out := make([]float64, attrCount)
		for k := 0; k < attrCount; k++ {
			out[k] = float64(attrs[i+k])
		}
		return out
	}

	quadrics := make([]quadric, vertexCount)
	for i := range quadrics {
		quadrics[i] = newQuadric(attrCount)
	}

	triCount := len(indices) / 3
	for t := 0; t < triCount; t++ {
		i0, i1, i2 := indices[t*3], indices[t*3+1], indices[t*3+2]
		p0, p1, p2 := pos(i0), pos(i1), pos(i2)
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		area := n.Len() * 0.5
		if area < 1e-12 {
			continue
		}
		nn := vec3{n[0] / (area * 2), n[1] / (area * 2), n[2] / (area * 2)}
		for _, v := range [3]uint32{i0, i1, i2} {
			quadrics[v].addPlane(pos(v), nn, area)
		}
	}

	// Vertex adjacency, for collapse-candidate enumeration and attribute error.
	adjacency := make(map[uint32]map[uint32]bool, vertexCount)
	addAdj := func(a, b uint32) {
		if adjacency[a] == nil {
			adjacency[a] = map[uint32]bool{}
		}
		adjacency[a][b] = true
	}
	for t := 0; t < triCount; t++ {
		i0, i1, i2 := indices[t*3], indices[t*3+1], indices[t*3+2]
		addAdj(i0, i1)
		addAdj(i1, i0)
		addAdj(i1, i2)
		addAdj(i2, i1)
		addAdj(i2, i0)
		addAdj(i0, i2)
	}

	remap := make([]uint32, vertexCount) // union-find: remap[v] == v means alive
	alive := make([]bool, vertexCount)
	gen := make([]int, vertexCount)
	for i := range remap {
		remap[i] = uint32(i)
		alive[i] = true
	}
	find := func(v uint32) uint32 {
		for remap[v] != v {
			v = remap[v]
		}
		return v
	}

	edgeCost := func(a, b uint32) float64 {
		q := quadrics[a]
		q.add(quadrics[b])
		mid := vec3{
			(pos(a)[0] + pos(b)[0]) / 2,
			(pos(a)[1] + pos(b)[1]) / 2,
			(pos(a)[2] + pos(b)[2]) / 2,
		}
		cost := q.eval(mid)
		if attrCount > 0 {
			aa, ba := attr(a), attr(b)
			for k := 0; k < attrCount; k++ {
				d := aa[k] - ba[k]
				w := 1.0
				if weights != nil {
					w = float64(weights[k])
				}
				cost += w * w * d * d * 0.25
			}
		}
		return cost
	}

	h := &candidateHeap{}
	heap.Init(h)
	pushEdge := func(a, b uint32) {
		heap.Push(h, &collapseCandidate{
			edge: normEdge(a, b),
			cost: edgeCost(a, b),
			ga:   gen[a], gb: gen[b],
		})
	}
	seen := map[edgeKey]bool{}
	for a, nbrs := range adjacency {
		for b := range nbrs {
			e := normEdge(a, b)
			if seen[e] {
				continue
			}
			seen[e] = true
			pushEdge(e.a, e.b)
		}
	}

	liveTris := triCount
	liveVerts := 0
	for _, a := range alive {
		if a {
			liveVerts++
		}
	}

	for liveTris*3 > targetIndexCount && h.Len() > 0 {
		cand := heap.Pop(h).(*collapseCandidate)
		a, b := cand.edge.a, cand.edge.b
		if gen[a] != cand.ga || gen[b] != cand.gb {
			continue // stale: one endpoint already collapsed since this was queued
		}
		if !alive[a] || !alive[b] {
			continue
		}

		// Collapse b into a.
		quadrics[a].add(quadrics[b])
		alive[b] = false
		remap[b] = a
		gen[a]++
		gen[b]++
		liveVerts--

		for nb := range adjacency[b] {
			if find(nb) == a {
				continue
			}
			addAdj(a, nb)
			addAdj(nb, a)
		}
		delete(adjacency, b)

		// Recompute triangle count: triangles degenerate when two of their
		// three (resolved) corners collide.
		liveTris = countLiveTriangles(indices, find)

		for nb := range adjacency[a] {
			if alive[nb] {
				pushEdge(a, nb)
			}
		}
	}

	out := make([]uint32, 0, liveTris*3)
	for t := 0; t < triCount; t++ {
		i0 := find(indices[t*3])
		i1 := find(indices[t*3+1])
		i2 := find(indices[t*3+2])
		if i0 == i1 || i1 == i2 || i0 == i2 {
			continue
		}
		out = append(out, i0, i1, i2)
	}

	// Trim toward the exact target if we overshot due to heap draining order.
	if len(out) > targetIndexCount && targetIndexCount >= 3 {
		out = out[:targetIndexCount-(targetIndexCount%3)]
	}

	errEstimate := float32(0)
	for i := range quadrics {
		if alive[i] {
			e := quadrics[i].eval(pos(uint32(i)))
			if float32(e) > errEstimate {
				errEstimate = float32(e)
			}
		}
	}

	return out, errEstimate
}

func countLiveTriangles(indices []uint32, find func(uint32) uint32) int {
	n := 0
	for t := 0; t < len(indices)/3; t++ {
		i0 := find(indices[t*3])
		i1 := find(indices[t*3+1])
		i2 := find(indices[t*3+2])
		if i0 != i1 && i1 != i2 && i0 != i2 {
			n++
		}
	}
	return n
}
