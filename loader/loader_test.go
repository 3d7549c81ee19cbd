package loader

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/birdinforest/gltfmesh/geometry"
)

// fixtureFS returns a readFileFunc backed by an in-memory file map.
func fixtureFS(files map[string][]byte) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file: %s", path)
		}
		return data, nil
	}
}

func quadDocJSON() ([]byte, []byte) {
	positions := floatBytes(
		0, 0, 0,
		1, 0, 0,
		1, 1, 0,
		0, 1, 0,
	)
	uvs := floatBytes(
		0, 0,
		1, 0,
		1, 1,
		0, 1,
	)
	indices := uint16Bytes(0, 1, 2, 0, 2, 3)

	var bin []byte
	bin = append(bin, positions...)
	bin = append(bin, uvs...)
	bin = append(bin, indices...)

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"scene": 0,
		"scenes": [{"name": "quad_scene"}],
		"buffers": [{"uri": "geometry/quad.bin", "byteLength": %d}],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": %d},
			{"buffer": 0, "byteOffset": %d, "byteLength": %d},
			{"buffer": 0, "byteOffset": %d, "byteLength": %d}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3",
			 "min": [0, 0, 0], "max": [1, 1, 0]},
			{"bufferView": 1, "componentType": 5126, "count": 4, "type": "VEC2"},
			{"bufferView": 2, "componentType": 5123, "count": 6, "type": "SCALAR"}
		],
		"meshes": [{"name": "quad", "primitives": [
			{"attributes": {"POSITION": 0, "TEXCOORD_0": 1}, "indices": 2}
		]}]
	}`, len(bin), len(positions), len(positions), len(uvs), len(positions)+len(uvs), len(indices))

	return []byte(doc), bin
}

func TestLoaderEndToEnd(t *testing.T) {
	doc, bin := quadDocJSON()
	l := NewLoader(BackendTypeGLTF,
		WithReadFile(fixtureFS(map[string][]byte{
			"assets/quad.gltf":         doc,
			"assets/geometry/quad.bin": bin,
		})),
		WithWorkers(2),
	)

	asset, err := l.Load("assets/quad.gltf")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if asset.Name != "quad_scene" {
		t.Errorf("asset name\nhave %q\nwant %q", asset.Name, "quad_scene")
	}
	if len(asset.Meshes) != 1 || len(asset.Meshes[0].Primitives) != 1 {
		t.Fatalf("asset shape\nhave %d meshes\nwant 1 mesh with 1 primitive", len(asset.Meshes))
	}

	g := asset.Meshes[0].Primitives[0]
	if g.VertexCount() != 4 {
		t.Errorf("vertex count\nhave %d\nwant 4", g.VertexCount())
	}
	if len(g.Indices) != 6 {
		t.Errorf("index count\nhave %d\nwant 6", len(g.Indices))
	}
	if _, ok := g.Attributes["normal"]; !ok {
		t.Error("normals were not generated")
	}
	if _, ok := g.Attributes["tangent"]; !ok {
		t.Error("tangents were not generated despite texture coordinates")
	}
	if g.Bounds == nil {
		t.Error("bounds were not captured")
	}
}

func TestLoaderEmbeddedDataURI(t *testing.T) {
	positions := floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}]
	}`, dataURI(positions), len(positions), len(positions))

	// No read-file collaborator needed: the buffer is embedded.
	l := NewLoader(BackendTypeGLTF, WithReadFile(fixtureFS(map[string][]byte{
		"embedded.gltf": []byte(doc),
	})))

	asset, err := l.Load("embedded.gltf")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if asset.Meshes[0].Primitives[0].VertexCount() != 3 {
		t.Errorf("vertex count\nhave %d\nwant 3", asset.Meshes[0].Primitives[0].VertexCount())
	}
}

func TestLoaderCachesByPath(t *testing.T) {
	doc, bin := quadDocJSON()
	reads := 0
	files := map[string][]byte{
		"assets/quad.gltf":         doc,
		"assets/geometry/quad.bin": bin,
	}
	l := NewLoader(BackendTypeGLTF, WithReadFile(func(path string) ([]byte, error) {
		reads++
		data, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file: %s", path)
		}
		return data, nil
	}))

	first, err := l.Load("assets/quad.gltf")
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	readsAfterFirst := reads

	second, err := l.Load("assets/quad.gltf")
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}

	if first != second {
		t.Error("second Load did not return the cached asset")
	}
	if reads != readsAfterFirst {
		t.Errorf("cached Load touched the filesystem: %d reads after caching", reads-readsAfterFirst)
	}
	if l.Get("assets/quad.gltf") != first {
		t.Error("Get did not return the cached asset")
	}
}

func TestLoaderLoadReaderGLB(t *testing.T) {
	bin := floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	jsonDoc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}]
	}`, len(bin), len(bin))

	l := NewLoader(BackendTypeGLTF)
	asset, err := l.LoadReader("tri.glb", bytes.NewReader(buildGLB(jsonDoc, bin)), true)
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	if asset.Meshes[0].Primitives[0].VertexCount() != 3 {
		t.Errorf("vertex count\nhave %d\nwant 3", asset.Meshes[0].Primitives[0].VertexCount())
	}
	if l.Get("tri.glb") != asset {
		t.Error("LoadReader did not cache by name")
	}
}

func TestLoaderUnsupportedFormat(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	if _, err := l.Load("model.obj"); err == nil {
		t.Fatal("unsupported extension should fail")
	}
}

func TestLoaderDracoFailsWholeLoad(t *testing.T) {
	positions := floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": %q, "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"meshes": [{"primitives": [
			{"attributes": {"POSITION": 0}},
			{"attributes": {"POSITION": 0},
			 "extensions": {"KHR_draco_mesh_compression": {"bufferView": 0}}}
		]}]
	}`, dataURI(positions), len(positions), len(positions))

	l := NewLoader(BackendTypeGLTF, WithReadFile(fixtureFS(map[string][]byte{
		"draco.gltf": []byte(doc),
	})))

	if _, err := l.Load("draco.gltf"); err == nil {
		t.Fatal("draco-flagged primitive should fail the load")
	}
}

func TestLoaderWithAsset(t *testing.T) {
	seeded := &geometry.Asset{Name: "seeded"}
	l := NewLoader(BackendTypeGLTF, WithAsset("seeded.gltf", seeded))

	got, err := l.Load("seeded.gltf")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != seeded {
		t.Error("pre-seeded asset was not served from the cache")
	}
	if len(l.Assets()) != 1 {
		t.Errorf("cache size\nhave %d\nwant 1", len(l.Assets()))
	}
}
