package loader

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/birdinforest/gltfmesh/geometry"
)

// errDracoUnsupported marks primitives whose vertex data is
// Draco-compressed; the loader cannot decompress them.
var errDracoUnsupported = errors.New("draco mesh compression unsupported")

// gltfSemanticSlots maps glTF attribute semantics to the internal
// attribute slot names. Semantics outside this table are skipped.
var gltfSemanticSlots = map[string]string{
	"POSITION":   "position",
	"NORMAL":     "normal",
	"TANGENT":    "tangent",
	"TEXCOORD_0": "uv",
	"TEXCOORD_1": "uv2",
	"COLOR_0":    "color",
	"JOINTS_0":   "joints",
	"WEIGHTS_0":  "weights",
}

// gltfPrimitiveModes maps glTF mode indices 0-6 to primitive modes.
// Absent or out-of-range modes fall back to triangles.
var gltfPrimitiveModes = [...]geometry.PrimitiveMode{
	geometry.ModePoints,
	geometry.ModeLines,
	geometry.ModeLineLoop,
	geometry.ModeLineStrip,
	geometry.ModeTriangles,
	geometry.ModeTriangleStrip,
	geometry.ModeTriangleFan,
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor defines the interface for assembling geometry from a
// parsed glTF document. It converts raw accessor data into decoded
// Geometry values, one per primitive.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index, with one Geometry per
	// primitive.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - geometry.Mesh: the decoded mesh
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) (geometry.Mesh, error)

	// ExtractPrimitive assembles a single primitive of a mesh. Primitives
	// are independent of each other, so callers may run extractions for
	// different primitives concurrently.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh
	//   - primIndex: the index of the primitive within the mesh
	//
	// Returns:
	//   - *geometry.Geometry: the decoded geometry
	//   - error: error if assembly fails
	ExtractPrimitive(meshIndex, primIndex int) (*geometry.Geometry, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (geometry.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return geometry.Mesh{}, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return geometry.Mesh{}, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	result := geometry.Mesh{
		Name:       meshName(mesh, meshIndex),
		Primitives: make([]*geometry.Geometry, len(mesh.Primitives)),
	}

	for primIdx := range mesh.Primitives {
		g, err := e.ExtractPrimitive(meshIndex, primIdx)
		if err != nil {
			return geometry.Mesh{}, err
		}
		result.Primitives[primIdx] = g
	}

	return result, nil
}

func (e *gltfMeshExtractorImpl) ExtractPrimitive(meshIndex, primIndex int) (*geometry.Geometry, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}
	mesh := &doc.Meshes[meshIndex]
	if primIndex < 0 || primIndex >= len(mesh.Primitives) {
		return nil, fmt.Errorf("mesh %d primitive index %d out of range", meshIndex, primIndex)
	}

	g, err := e.extractPrimitive(&mesh.Primitives[primIndex])
	if err != nil {
		return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, err)
	}
	return g, nil
}

// extractPrimitive assembles one primitive's attribute and index buffers.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) (*geometry.Geometry, error) {
	if prim.Extensions != nil && prim.Extensions.Draco != nil {
		return nil, errDracoUnsupported
	}

	g := &geometry.Geometry{
		Attributes: make(map[string]*geometry.Attribute),
		Mode:       geometry.ModeTriangles,
	}
	if prim.Mode != nil && *prim.Mode >= 0 && *prim.Mode < len(gltfPrimitiveModes) {
		g.Mode = gltfPrimitiveModes[*prim.Mode]
	}

	doc := e.parser.Document()

	for semantic, accessorIndex := range prim.Attributes {
		slot, ok := gltfSemanticSlots[semantic]
		if !ok {
			// Application-specific semantics (e.g. _CUSTOM) are skipped.
			continue
		}

		attr, err := e.parser.ReadAccessor(accessorIndex, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", semantic, err)
		}

		switch {
		case slot == "weights" && attr.Components == 4:
			attr = renormalizeWeights(attr)
		case slot == "color" && attr.Components == 3:
			attr = expandColor(attr)
		}

		if slot == "position" && accessorIndex >= 0 && accessorIndex < len(doc.Accessors) {
			acc := &doc.Accessors[accessorIndex]
			if len(acc.Min) >= 3 && len(acc.Max) >= 3 {
				g.Bounds = &geometry.Bounds{
					Min: mgl32.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]},
					Max: mgl32.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]},
				}
			}
		}

		g.Attributes[slot] = attr
	}

	if prim.Indices != nil {
		indices, err := e.parser.ReadIndices(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		g.Indices = indices
	}

	// Synthesize missing shading attributes. Normals must come first:
	// tangent generation orthonormalizes against them.
	if _, ok := g.Attributes["normal"]; !ok {
		geometry.GenerateNormals(g)
	}
	if _, ok := g.Attributes["tangent"]; !ok {
		if uv, ok := g.Attributes["uv"]; ok && uv.Len() > 0 {
			geometry.GenerateTangents(g)
		}
	}

	return g, nil
}

// renormalizeWeights converts a 4-component joint-weight attribute to the
// 3-component stored form: each stored value is the raw weight divided by
// the sum of all four, so the fourth weight is reconstructible as one
// minus the stored sum.
func renormalizeWeights(attr *geometry.Attribute) *geometry.Attribute {
	count := attr.Count()
	out := make([]float32, count*3)

	for i := range count {
		w0 := rawComponent(attr, i*4)
		w1 := rawComponent(attr, i*4+1)
		w2 := rawComponent(attr, i*4+2)
		w3 := rawComponent(attr, i*4+3)

		sum := w0 + w1 + w2 + w3
		if sum == 0 {
			continue
		}
		out[i*3+0] = w0 / sum
		out[i*3+1] = w1 / sum
		out[i*3+2] = w2 / sum
	}

	return &geometry.Attribute{
		Element:    geometry.ElementFloat32,
		Components: 3,
		Float32:    out,
	}
}

// expandColor widens a 3-component color attribute to 4 components by
// appending an opaque alpha per vertex, preserving the element type.
func expandColor(attr *geometry.Attribute) *geometry.Attribute {
	count := attr.Count()
	out := &geometry.Attribute{Element: attr.Element, Components: 4}

	switch attr.Element {
	case geometry.ElementUint8:
		out.Uint8 = make([]uint8, count*4)
		for i := range count {
			copy(out.Uint8[i*4:], attr.Uint8[i*3:i*3+3])
			out.Uint8[i*4+3] = 255
		}
	case geometry.ElementUint16:
		out.Uint16 = make([]uint16, count*4)
		for i := range count {
			copy(out.Uint16[i*4:], attr.Uint16[i*3:i*3+3])
			out.Uint16[i*4+3] = 65535
		}
	default:
		out.Element = geometry.ElementFloat32
		out.Float32 = make([]float32, count*4)
		for i := range count {
			out.Float32[i*4+0] = rawComponent(attr, i*3)
			out.Float32[i*4+1] = rawComponent(attr, i*3+1)
			out.Float32[i*4+2] = rawComponent(attr, i*3+2)
			out.Float32[i*4+3] = 1.0
		}
	}

	return out
}

// meshName builds a stable mesh identifier.
func meshName(mesh *gltfMesh, meshIndex int) string {
	if mesh.Name != "" {
		return mesh.Name
	}
	return fmt.Sprintf("mesh_%d", meshIndex)
}
