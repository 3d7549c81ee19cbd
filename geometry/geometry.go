package geometry

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ElementType identifies the scalar storage type of a decoded attribute.
type ElementType int

const (
	// ElementInt8 is a signed 8-bit integer component.
	ElementInt8 ElementType = iota

	// ElementUint8 is an unsigned 8-bit integer component.
	ElementUint8

	// ElementInt16 is a signed 16-bit integer component.
	ElementInt16

	// ElementUint16 is an unsigned 16-bit integer component.
	ElementUint16

	// ElementFloat32 is a 32-bit IEEE float component.
	ElementFloat32
)

// Size returns the byte width of a single component of this element type.
//
// Returns:
//   - int: component size in bytes
func (t ElementType) Size() int {
	switch t {
	case ElementInt8, ElementUint8:
		return 1
	case ElementInt16, ElementUint16:
		return 2
	default:
		return 4
	}
}

// String returns a human-readable name for the element type.
//
// Returns:
//   - string: the element type name
func (t ElementType) String() string {
	switch t {
	case ElementInt8:
		return "int8"
	case ElementUint8:
		return "uint8"
	case ElementInt16:
		return "int16"
	case ElementUint16:
		return "uint16"
	case ElementFloat32:
		return "float32"
	default:
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
}

// PrimitiveMode identifies how a geometry's vertices assemble into primitives.
type PrimitiveMode int

const (
	// ModePoints renders each vertex as an isolated point.
	ModePoints PrimitiveMode = iota

	// ModeLines renders each vertex pair as a line segment.
	ModeLines

	// ModeLineLoop renders a closed polyline through all vertices.
	ModeLineLoop

	// ModeLineStrip renders an open polyline through all vertices.
	ModeLineStrip

	// ModeTriangles renders each vertex triple as a triangle.
	ModeTriangles

	// ModeTriangleStrip renders a triangle strip.
	ModeTriangleStrip

	// ModeTriangleFan renders a triangle fan.
	ModeTriangleFan
)

// String returns a human-readable name for the primitive mode.
//
// Returns:
//   - string: the mode name
func (m PrimitiveMode) String() string {
	switch m {
	case ModePoints:
		return "points"
	case ModeLines:
		return "lines"
	case ModeLineLoop:
		return "line_loop"
	case ModeLineStrip:
		return "line_strip"
	case ModeTriangles:
		return "triangles"
	case ModeTriangleStrip:
		return "triangle_strip"
	case ModeTriangleFan:
		return "triangle_fan"
	default:
		return fmt.Sprintf("PrimitiveMode(%d)", int(m))
	}
}

// Attribute is a decoded vertex attribute buffer. Exactly one of the typed
// slices is populated, selected by Element; the others are nil. Consumers
// switch on Element rather than reflecting over the payload.
type Attribute struct {
	// Element is the scalar storage type of the populated slice.
	Element ElementType

	// Components is the number of scalars per vertex (1-16).
	Components int

	// Int8 holds the data when Element is ElementInt8.
	Int8 []int8

	// Uint8 holds the data when Element is ElementUint8.
	Uint8 []uint8

	// Int16 holds the data when Element is ElementInt16.
	Int16 []int16

	// Uint16 holds the data when Element is ElementUint16.
	Uint16 []uint16

	// Float32 holds the data when Element is ElementFloat32.
	Float32 []float32
}

// Len returns the total scalar count of the populated slice.
//
// Returns:
//   - int: number of scalar components stored
func (a *Attribute) Len() int {
	switch a.Element {
	case ElementInt8:
		return len(a.Int8)
	case ElementUint8:
		return len(a.Uint8)
	case ElementInt16:
		return len(a.Int16)
	case ElementUint16:
		return len(a.Uint16)
	default:
		return len(a.Float32)
	}
}

// Count returns the number of vertices covered by this attribute.
//
// Returns:
//   - int: vertex count (Len divided by Components)
func (a *Attribute) Count() int {
	if a.Components <= 0 {
		return 0
	}
	return a.Len() / a.Components
}

// Bounds is an axis-aligned bounding box in model space.
type Bounds struct {
	// Min is the component-wise minimum corner.
	Min mgl32.Vec3

	// Max is the component-wise maximum corner.
	Max mgl32.Vec3
}

// Geometry is the decoded form of a single renderable primitive: a set of
// named attribute buffers, an index buffer, a primitive mode, and an
// optional bounding box taken from the source position accessor.
type Geometry struct {
	// Attributes maps internal slot names (position, normal, tangent, uv,
	// uv2, color, joints, weights) to their decoded buffers.
	Attributes map[string]*Attribute

	// Indices is the index buffer, always widened to 32 bits. Empty for
	// non-indexed geometry.
	Indices []uint32

	// Mode is how the vertices assemble into primitives.
	Mode PrimitiveMode

	// Bounds is the axis-aligned bounding box from the position accessor's
	// min/max metadata, or nil when the source omits them.
	Bounds *Bounds
}

// VertexCount returns the number of vertices in the geometry, derived from
// the position attribute. A geometry without positions has zero vertices.
//
// Returns:
//   - int: the vertex count
func (g *Geometry) VertexCount() int {
	pos, ok := g.Attributes["position"]
	if !ok {
		return 0
	}
	return pos.Count()
}

// Mesh groups the geometries decoded from a single source mesh, one per
// primitive.
type Mesh struct {
	// Name is the mesh identifier from the source document.
	Name string

	// Primitives are the decoded geometries, in source order.
	Primitives []*Geometry
}

// Asset is the complete decoded output of one document: every mesh with
// every primitive, ready for upload or further processing.
type Asset struct {
	// Name is the asset identifier (scene name or source path).
	Name string

	// Meshes are the decoded meshes, in source order.
	Meshes []Mesh
}
