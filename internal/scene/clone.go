package scene

// Clone performs a scene-graph-aware deep copy: every mesh, material and
// embedded texture is copied so that mutating the clone never touches the
// source (spec.md §3 "Lifecycle", §5 "the source scene passed in by the
// caller is read-only").
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	out := &Scene{SourcePath: s.SourcePath}

	out.Meshes = make([]Mesh, len(s.Meshes))
	for i := range s.Meshes {
		out.Meshes[i] = s.Meshes[i].clone()
	}

	out.Materials = make([]Material, len(s.Materials))
	for i := range s.Materials {
		out.Materials[i] = s.Materials[i].clone()
	}

	out.EmbeddedTextures = make([]EmbeddedTexture, len(s.EmbeddedTextures))
	for i := range s.EmbeddedTextures {
		out.EmbeddedTextures[i] = s.EmbeddedTextures[i].clone()
	}

	out.Root = s.Root.clone()
	return out
}

// Close releases the scene's owned resources. Go's GC reclaims the
// backing arrays regardless, but every clone still has an explicit
// release point matching the opaque-handle lifecycle from spec.md §9 —
// callers that wrap lodgen in a pooled or pinned-memory host can hook here.
func (s *Scene) Close() {
	if s == nil {
		return
	}
	s.Meshes = nil
	s.Materials = nil
	s.EmbeddedTextures = nil
	s.Root = nil
}

func clone2D3(src [][3]float32) [][3]float32 {
	if src == nil {
		return nil
	}
	out := make([][3]float32, len(src))
	copy(out, src)
	return out
}

func clone3D3(src [][][3]float32) [][][3]float32 {
	if src == nil {
		return nil
	}
	out := make([][][3]float32, len(src))
	for i, ch := range src {
		out[i] = clone2D3(ch)
	}
	return out
}

func clone3D4(src [][][4]float32) [][][4]float32 {
	if src == nil {
		return nil
	}
	out := make([][][4]float32, len(src))
	for i, ch := range src {
		c := make([][4]float32, len(ch))
		copy(c, ch)
		out[i] = c
	}
	return out
}

func (m *Mesh) clone() Mesh {
	out := *m
	out.Positions = clone2D3(m.Positions)
	out.Normals = clone2D3(m.Normals)
	out.Tangents = clone2D3(m.Tangents)
	out.Bitangents = clone2D3(m.Bitangents)
	out.UVChannels = clone3D3(m.UVChannels)
	out.ColorChannels = clone3D4(m.ColorChannels)

	out.Indices = make([]uint32, len(m.Indices))
	copy(out.Indices, m.Indices)

	out.Bones = make([]Bone, len(m.Bones))
	for i, b := range m.Bones {
		w := make([]BoneWeight, len(b.Weights))
		copy(w, b.Weights)
		out.Bones[i] = Bone{Name: b.Name, Weights: w}
	}
	return out
}

func (mat *Material) clone() Material {
	out := Material{Name: mat.Name}
	if mat.Slots != nil {
		out.Slots = make(map[TextureType][]TextureSlot, len(mat.Slots))
		for t, slots := range mat.Slots {
			cp := make([]TextureSlot, len(slots))
			copy(cp, slots)
			out.Slots[t] = cp
		}
	}
	return out
}

func (et *EmbeddedTexture) clone() EmbeddedTexture {
	out := EmbeddedTexture{Format: et.Format}
	if et.Format.Bytes != nil {
		b := make([]byte, len(et.Format.Bytes))
		copy(b, et.Format.Bytes)
		out.Format.Bytes = b
	}
	if et.Format.ARGB != nil {
		a := make([]byte, len(et.Format.ARGB))
		copy(a, et.Format.ARGB)
		out.Format.ARGB = a
	}
	return out
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name}
	out.MeshIndices = append([]int(nil), n.MeshIndices...)
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.clone()
		}
	}
	return out
}

// CompactMaterials strips materials no mesh references, rewriting every
// mesh.MaterialIndex to the compacted table (spec.md §6.1, part of export).
func (s *Scene) CompactMaterials() {
	used := make([]bool, len(s.Materials))
	for i := range s.Meshes {
		mi := s.Meshes[i].MaterialIndex
		if mi >= 0 && mi < len(used) {
			used[mi] = true
		}
	}

	remap := make([]int, len(s.Materials))
	out := make([]Material, 0, len(s.Materials))
	for i, mat := range s.Materials {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out)
		out = append(out, mat)
	}
	s.Materials = out

	for i := range s.Meshes {
		mi := s.Meshes[i].MaterialIndex
		if mi >= 0 && mi < len(remap) && remap[mi] >= 0 {
			s.Meshes[i].MaterialIndex = remap[mi]
		} else {
			s.Meshes[i].MaterialIndex = 0
		}
	}
}
