package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// GenerateNormals computes smooth per-vertex normals from the triangle
// topology and stores them in the geometry's "normal" attribute, replacing
// any existing one. For each triangle the face normal is the cross product
// of its edges, whose magnitude is proportional to the triangle's area, so
// accumulating the raw cross products onto each vertex weights large faces
// more heavily. The accumulated vectors are normalized at the end.
//
// Running it again on already-generated normals produces the same result.
//
// Parameters:
//   - g: the geometry to write normals into (requires a float32 position attribute)
func GenerateNormals(g *Geometry) {
	pos, ok := g.Attributes["position"]
	if !ok || pos.Element != ElementFloat32 {
		return
	}

	vertexCount := pos.Count()
	accum := make([]mgl32.Vec3, vertexCount)

	eachTriangle(g, vertexCount, func(i0, i1, i2 int) {
		p1 := positionAt(pos, i0)
		p2 := positionAt(pos, i1)
		p3 := positionAt(pos, i2)

		// Face normal, area-weighted by construction.
		n := p1.Sub(p2).Cross(p2.Sub(p3))

		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	})

	out := make([]float32, vertexCount*3)
	for i, n := range accum {
		if n.Len() < 1e-6 {
			// Degenerate: default to up vector
			n = mgl32.Vec3{0, 1, 0}
		} else {
			n = n.Normalize()
		}
		out[i*3+0] = n.X()
		out[i*3+1] = n.Y()
		out[i*3+2] = n.Z()
	}

	g.Attributes["normal"] = &Attribute{
		Element:    ElementFloat32,
		Components: 3,
		Float32:    out,
	}
}

// eachTriangle walks the geometry's triangles, indexed or sequential,
// skipping any triple that references a vertex out of range.
func eachTriangle(g *Geometry, vertexCount int, fn func(i0, i1, i2 int)) {
	if len(g.Indices) > 0 {
		for i := 0; i+2 < len(g.Indices); i += 3 {
			i0, i1, i2 := int(g.Indices[i]), int(g.Indices[i+1]), int(g.Indices[i+2])
			if i0 >= vertexCount || i1 >= vertexCount || i2 >= vertexCount {
				continue
			}
			fn(i0, i1, i2)
		}
		return
	}
	for i := 0; i+2 < vertexCount; i += 3 {
		fn(i, i+1, i+2)
	}
}

// positionAt reads vertex i of a 3-component float attribute.
func positionAt(a *Attribute, i int) mgl32.Vec3 {
	return mgl32.Vec3{a.Float32[i*3], a.Float32[i*3+1], a.Float32[i*3+2]}
}
