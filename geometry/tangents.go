package geometry

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
)

// GenerateTangents computes per-vertex tangent vectors from triangle
// topology and UV gradients (Lengyel's method) and stores them in the
// geometry's "tangent" attribute as VEC4 data: xyz is the tangent
// direction, w is the handedness (±1).
//
// For each triangle the tangent and bitangent directions are derived from
// the UV coordinate differences across its edges, scaled by the inverse of
// the UV-area determinant, and accumulated onto each vertex. Triangles with
// a zero UV determinant contribute non-finite values that propagate into
// the affected vertices; callers feeding collapsed UVs get what they asked
// for. Each accumulated tangent is then Gram-Schmidt orthonormalized
// against the vertex normal, and the handedness is the sign of
// dot(cross(N, T), B).
//
// Requires position, normal, and uv attributes; when uv is missing or
// empty the call logs and leaves the geometry untouched.
//
// Parameters:
//   - g: the geometry to write tangents into
func GenerateTangents(g *Geometry) {
	pos, ok := g.Attributes["position"]
	if !ok || pos.Element != ElementFloat32 {
		return
	}
	norm, ok := g.Attributes["normal"]
	if !ok || norm.Element != ElementFloat32 {
		return
	}
	uv, ok := g.Attributes["uv"]
	if !ok || uv.Len() == 0 {
		log.Printf("[geometry] skipping tangent generation: no texture coordinates")
		return
	}
	if uv.Element != ElementFloat32 || uv.Components < 2 {
		log.Printf("[geometry] skipping tangent generation: unsupported uv layout")
		return
	}

	vertexCount := pos.Count()
	tan := make([]mgl32.Vec3, vertexCount)  // accumulated tangent
	btan := make([]mgl32.Vec3, vertexCount) // accumulated bitangent
	uvStride := uv.Components

	eachTriangle(g, vertexCount, func(i0, i1, i2 int) {
		p1 := positionAt(pos, i0)
		p2 := positionAt(pos, i1)
		p3 := positionAt(pos, i2)

		u1 := mgl32.Vec2{uv.Float32[i0*uvStride], uv.Float32[i0*uvStride+1]}
		u2 := mgl32.Vec2{uv.Float32[i1*uvStride], uv.Float32[i1*uvStride+1]}
		u3 := mgl32.Vec2{uv.Float32[i2*uvStride], uv.Float32[i2*uvStride+1]}

		e1 := p2.Sub(p1)
		e2 := p3.Sub(p1)

		s1, t1 := u2.X()-u1.X(), u2.Y()-u1.Y()
		s2, t2 := u3.X()-u1.X(), u3.Y()-u1.Y()

		r := 1.0 / (s1*t2 - t1*s2)

		sdir := mgl32.Vec3{
			(t2*e1.X() - t1*e2.X()) * r,
			(t2*e1.Y() - t1*e2.Y()) * r,
			(t2*e1.Z() - t1*e2.Z()) * r,
		}
		tdir := mgl32.Vec3{
			(s1*e2.X() - s2*e1.X()) * r,
			(s1*e2.Y() - s2*e1.Y()) * r,
			(s1*e2.Z() - s2*e1.Z()) * r,
		}

		tan[i0] = tan[i0].Add(sdir)
		tan[i1] = tan[i1].Add(sdir)
		tan[i2] = tan[i2].Add(sdir)
		btan[i0] = btan[i0].Add(tdir)
		btan[i1] = btan[i1].Add(tdir)
		btan[i2] = btan[i2].Add(tdir)
	})

	out := make([]float32, vertexCount*4)
	for i := range vertexCount {
		n := positionAt(norm, i)
		t := tan[i]

		// Gram-Schmidt orthonormalize: T' = normalize(T - N * dot(N, T))
		ortho := t.Sub(n.Mul(n.Dot(t)))
		if ortho.Len() < 1e-6 {
			// Degenerate tangent: use a default tangent perpendicular to the normal.
			out[i*4+0] = 1
			out[i*4+3] = 1
			continue
		}
		ortho = ortho.Normalize()

		// Handedness: sign of dot(cross(N, T), B) determines if bitangent is flipped.
		w := float32(1.0)
		if n.Cross(ortho).Dot(btan[i]) < 0 {
			w = -1.0
		}

		out[i*4+0] = ortho.X()
		out[i*4+1] = ortho.Y()
		out[i*4+2] = ortho.Z()
		out[i*4+3] = w
	}

	g.Attributes["tangent"] = &Attribute{
		Element:    ElementFloat32,
		Components: 4,
		Float32:    out,
	}
}
