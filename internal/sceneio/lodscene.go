package sceneio

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lodgen/lodgen/internal/lodgenerr"
	"github.com/lodgen/lodgen/internal/scene"
)

// lodSceneDoc is the on-disk JSON shape of the native ".lodscene" format,
// lodgen's own interchange format for scenes whose attribute set (tangents,
// multiple UV/color channels, embedded textures, bone weights) an OBJ file
// cannot represent.
type lodSceneDoc struct {
	Meshes     []lodMeshDoc     `json:"meshes"`
	Materials  []lodMaterialDoc `json:"materials"`
	Embedded   []lodEmbeddedDoc `json:"embedded_textures"`
	Root       *lodNodeDoc      `json:"root"`
}

type lodMeshDoc struct {
	Positions     [][3]float32      `json:"positions"`
	Normals       [][3]float32      `json:"normals,omitempty"`
	Tangents      [][3]float32      `json:"tangents,omitempty"`
	Bitangents    [][3]float32      `json:"bitangents,omitempty"`
	UVChannels    [][][3]float32    `json:"uv_channels,omitempty"`
	ColorChannels [][][4]float32    `json:"color_channels,omitempty"`
	Indices       []uint32          `json:"indices"`
	PrimitiveKind string            `json:"primitive_kind"`
	MaterialIndex int               `json:"material_index"`
	Bones         []lodBoneDoc      `json:"bones,omitempty"`
}

type lodBoneDoc struct {
	Name    string             `json:"name"`
	Weights []lodBoneWeightDoc `json:"weights"`
}

type lodBoneWeightDoc struct {
	VertexID uint32  `json:"vertex_id"`
	Weight   float32 `json:"weight"`
}

type lodMaterialDoc struct {
	Name  string                      `json:"name"`
	Slots map[string][]lodSlotDoc `json:"slots,omitempty"`
}

type lodSlotDoc struct {
	Path  string `json:"path"`
	WrapU string `json:"wrap_u"`
	WrapV string `json:"wrap_v"`
}

type lodEmbeddedDoc struct {
	Kind       string `json:"kind"` // "compressed" | "uncompressed"
	Bytes      []byte `json:"bytes,omitempty"`
	FormatHint string `json:"format_hint,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	ARGB       []byte `json:"argb,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

type lodNodeDoc struct {
	Name        string        `json:"name"`
	MeshIndices []int         `json:"mesh_indices,omitempty"`
	Children    []*lodNodeDoc `json:"children,omitempty"`
}

func loadLodScene(path string) (*scene.Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lodgenerr.Wrap(lodgenerr.FileNotFound, err, "scene file not found: %s", path)
		}
		return nil, lodgenerr.Wrap(lodgenerr.ImportFailed, err, "read %s", path)
	}

	var doc lodSceneDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.ImportFailed, err, "parse %s", path)
	}

	s := &scene.Scene{}
	for _, md := range doc.Meshes {
		s.Meshes = append(s.Meshes, meshFromDoc(md))
	}
	for _, matd := range doc.Materials {
		s.Materials = append(s.Materials, materialFromDoc(matd))
	}
	for _, ed := range doc.Embedded {
		s.EmbeddedTextures = append(s.EmbeddedTextures, embeddedFromDoc(ed))
	}
	s.Root = nodeFromDoc(doc.Root)

	return s, nil
}

func meshFromDoc(md lodMeshDoc) scene.Mesh {
	m := scene.Mesh{
		Positions:     md.Positions,
		Normals:       md.Normals,
		Tangents:      md.Tangents,
		Bitangents:    md.Bitangents,
		UVChannels:    md.UVChannels,
		ColorChannels: md.ColorChannels,
		Indices:       md.Indices,
		PrimitiveKind: primitiveKindFromString(md.PrimitiveKind),
		MaterialIndex: md.MaterialIndex,
	}
	for _, bd := range md.Bones {
		var weights []scene.BoneWeight
		for _, wd := range bd.Weights {
			weights = append(weights, scene.BoneWeight{VertexID: wd.VertexID, Weight: wd.Weight})
		}
		m.Bones = append(m.Bones, scene.Bone{Name: bd.Name, Weights: weights})
	}
	return m
}

func materialFromDoc(matd lodMaterialDoc) scene.Material {
	m := scene.Material{Name: matd.Name, Slots: map[scene.TextureType][]scene.TextureSlot{}}
	for key, slots := range matd.Slots {
		t := textureTypeFromString(key)
		for _, sd := range slots {
			m.Slots[t] = append(m.Slots[t], scene.TextureSlot{
				Path:  sd.Path,
				WrapU: wrapModeFromString(sd.WrapU),
				WrapV: wrapModeFromString(sd.WrapV),
			})
		}
	}
	return m
}

func embeddedFromDoc(ed lodEmbeddedDoc) scene.EmbeddedTexture {
	kind := scene.EmbeddedCompressed
	if ed.Kind == "uncompressed" {
		kind = scene.EmbeddedUncompressed
	}
	return scene.EmbeddedTexture{Format: scene.FormatOf{
		Kind: kind, Bytes: ed.Bytes, FormatHint: ed.FormatHint,
		Width: ed.Width, Height: ed.Height, ARGB: ed.ARGB, Filename: ed.Filename,
	}}
}

func nodeFromDoc(nd *lodNodeDoc) *scene.Node {
	if nd == nil {
		return nil
	}
	n := &scene.Node{Name: nd.Name, MeshIndices: nd.MeshIndices}
	for _, c := range nd.Children {
		n.Children = append(n.Children, nodeFromDoc(c))
	}
	return n
}

// saveLodScene writes s verbatim as JSON: every scene.Scene field round-trips
// exactly, unlike saveOBJ which can only carry positions/one UV channel/normals.
func saveLodScene(s *scene.Scene, path string) error {
	doc := lodSceneDoc{Root: nodeToDoc(s.Root)}
	for i := range s.Meshes {
		doc.Meshes = append(doc.Meshes, meshToDoc(&s.Meshes[i]))
	}
	for i := range s.Materials {
		doc.Materials = append(doc.Materials, materialToDoc(&s.Materials[i]))
	}
	for i := range s.EmbeddedTextures {
		doc.Embedded = append(doc.Embedded, embeddedToDoc(&s.EmbeddedTextures[i]))
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "marshal %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "create output dir for %s", path)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, err, "write %s", path)
	}
	return nil
}

func meshToDoc(m *scene.Mesh) lodMeshDoc {
	md := lodMeshDoc{
		Positions:     m.Positions,
		Normals:       m.Normals,
		Tangents:      m.Tangents,
		Bitangents:    m.Bitangents,
		UVChannels:    m.UVChannels,
		ColorChannels: m.ColorChannels,
		Indices:       m.Indices,
		PrimitiveKind: primitiveKindToString(m.PrimitiveKind),
		MaterialIndex: m.MaterialIndex,
	}
	for _, b := range m.Bones {
		var weights []lodBoneWeightDoc
		for _, w := range b.Weights {
			weights = append(weights, lodBoneWeightDoc{VertexID: w.VertexID, Weight: w.Weight})
		}
		md.Bones = append(md.Bones, lodBoneDoc{Name: b.Name, Weights: weights})
	}
	return md
}

func materialToDoc(m *scene.Material) lodMaterialDoc {
	matd := lodMaterialDoc{Name: m.Name, Slots: map[string][]lodSlotDoc{}}
	for _, t := range scene.TextureTypes {
		slots := m.SlotsOf(t)
		if len(slots) == 0 {
			continue
		}
		var sdl []lodSlotDoc
		for _, slot := range slots {
			sdl = append(sdl, lodSlotDoc{Path: slot.Path, WrapU: wrapModeToString(slot.WrapU), WrapV: wrapModeToString(slot.WrapV)})
		}
		matd.Slots[textureTypeToString(t)] = sdl
	}
	return matd
}

func embeddedToDoc(e *scene.EmbeddedTexture) lodEmbeddedDoc {
	kind := "compressed"
	if e.Format.Kind == scene.EmbeddedUncompressed {
		kind = "uncompressed"
	}
	return lodEmbeddedDoc{
		Kind: kind, Bytes: e.Format.Bytes, FormatHint: e.Format.FormatHint,
		Width: e.Format.Width, Height: e.Format.Height, ARGB: e.Format.ARGB, Filename: e.Format.Filename,
	}
}

func nodeToDoc(n *scene.Node) *lodNodeDoc {
	if n == nil {
		return nil
	}
	nd := &lodNodeDoc{Name: n.Name, MeshIndices: n.MeshIndices}
	for _, c := range n.Children {
		nd.Children = append(nd.Children, nodeToDoc(c))
	}
	return nd
}

func primitiveKindFromString(s string) scene.PrimitiveKind {
	switch s {
	case "lines":
		return scene.Lines
	case "points":
		return scene.Points
	case "mixed":
		return scene.Mixed
	default:
		return scene.Triangles
	}
}

func primitiveKindToString(k scene.PrimitiveKind) string {
	switch k {
	case scene.Lines:
		return "lines"
	case scene.Points:
		return "points"
	case scene.Mixed:
		return "mixed"
	default:
		return "triangles"
	}
}

func wrapModeFromString(s string) scene.WrapMode {
	switch s {
	case "clamp":
		return scene.WrapClamp
	case "mirror":
		return scene.WrapMirror
	default:
		return scene.WrapRepeat
	}
}

func wrapModeToString(w scene.WrapMode) string {
	switch w {
	case scene.WrapClamp:
		return "clamp"
	case scene.WrapMirror:
		return "mirror"
	default:
		return "repeat"
	}
}

func textureTypeFromString(s string) scene.TextureType {
	for _, t := range scene.TextureTypes {
		if textureTypeToString(t) == s {
			return t
		}
	}
	return scene.Diffuse
}

func textureTypeToString(t scene.TextureType) string {
	return t.AtlasSuffix()
}
